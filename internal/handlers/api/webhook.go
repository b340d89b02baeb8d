package api

import (
	"io"
	"log/slog"
	"net/http"

	stripe "github.com/stripe/stripe-go/v82"

	quotifystripe "github.com/quotify/api/internal/stripe"
)

// WebhookObserver counts received webhook events.
type WebhookObserver interface {
	WebhookReceived(eventType string)
}

// WebhookHandler handles incoming Stripe webhook events.
type WebhookHandler struct {
	stripeSvc *quotifystripe.Service
	observer  WebhookObserver
	logger    *slog.Logger
	secret    string // webhook signing secret
}

// NewWebhookHandler creates a new Stripe webhook handler. observer may be nil.
func NewWebhookHandler(
	stripeSvc *quotifystripe.Service,
	observer WebhookObserver,
	logger *slog.Logger,
	webhookSecret string,
) *WebhookHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookHandler{
		stripeSvc: stripeSvc,
		observer:  observer,
		logger:    logger,
		secret:    webhookSecret,
	}
}

// RegisterRoutes registers the webhook endpoint.
func (h *WebhookHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/webhooks/stripe", h.HandleStripeWebhook)
}

// HandleStripeWebhook handles POST /api/v1/webhooks/stripe.
// It verifies the Stripe signature, then dispatches based on event type.
func (h *WebhookHandler) HandleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	// Read the body (Stripe requires raw body for signature verification).
	body, err := io.ReadAll(io.LimitReader(r.Body, 65536))
	if err != nil {
		h.logger.Error("failed to read webhook body", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	event, err := h.stripeSvc.ParseEvent(body, r.Header.Get("Stripe-Signature"), h.secret)
	if err != nil {
		h.logger.Warn("webhook rejected", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	h.logger.Info("stripe webhook received",
		slog.String("event_id", event.ID),
		slog.String("event_type", string(event.Type)),
	)
	if h.observer != nil {
		h.observer.WebhookReceived(string(event.Type))
	}

	switch event.Type {
	case "checkout.session.completed":
		h.handleCheckoutSessionCompleted(event)
	default:
		h.logger.Debug("unhandled webhook event type", "type", string(event.Type))
	}

	// Always return 200 to Stripe to acknowledge receipt.
	w.WriteHeader(http.StatusOK)
}

// handleCheckoutSessionCompleted records a paid session. The download itself
// happens on the return URL, so there is nothing to fulfil here.
func (h *WebhookHandler) handleCheckoutSessionCompleted(event stripe.Event) {
	session, err := quotifystripe.SessionFromEvent(event)
	if err != nil {
		h.logger.Error("failed to unmarshal checkout session", "error", err, "event_id", event.ID)
		return
	}

	email := session.CustomerEmail
	if session.CustomerDetails != nil && session.CustomerDetails.Email != "" {
		email = session.CustomerDetails.Email
	}

	h.logger.Info("checkout session completed",
		slog.String("session_id", session.ID),
		slog.String("reference", session.ClientReferenceID),
		slog.String("quote_number", session.Metadata["quote_number"]),
		slog.String("payment_status", string(session.PaymentStatus)),
		slog.Int64("amount_total", session.AmountTotal),
		slog.String("currency", string(session.Currency)),
		slog.String("email", email),
	)
}
