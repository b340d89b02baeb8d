package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/quotify/api/internal/checkout"
)

// CheckoutHandler holds dependencies for the payment endpoints.
type CheckoutHandler struct {
	orch      *checkout.Orchestrator
	exports   *ExportHandler
	quotes    QuoteSource
	publicKey string
	logger    *slog.Logger
}

// NewCheckoutHandler creates a new checkout handler. After a completed
// payment the PDF is served through exports.
func NewCheckoutHandler(
	orch *checkout.Orchestrator,
	exports *ExportHandler,
	quotes QuoteSource,
	publicKey string,
	logger *slog.Logger,
) *CheckoutHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CheckoutHandler{
		orch:      orch,
		exports:   exports,
		quotes:    quotes,
		publicKey: publicKey,
		logger:    logger,
	}
}

// RegisterRoutes registers all checkout routes on the given mux.
func (h *CheckoutHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/checkout", h.Open)
	mux.HandleFunc("GET /api/v1/checkout", h.Current)
	mux.HandleFunc("DELETE /api/v1/checkout", h.Close)
	mux.HandleFunc("GET /checkout/return", h.Return)
}

// --- JSON request/response types ---

type checkoutResponse struct {
	checkout.Mount
	PublishableKey string `json:"publishableKey,omitempty"`
}

// --- Handlers ---

// Open handles POST /api/v1/checkout. Any previous mount is replaced.
func (h *CheckoutHandler) Open(w http.ResponseWriter, r *http.Request) {
	m, err := h.orch.Open(r.Context())
	if err != nil {
		switch {
		case errors.Is(err, checkout.ErrInFlight), errors.Is(err, checkout.ErrClosed),
			errors.Is(err, checkout.ErrNotPayable):
			errorJSON(w, statusFor(err), err.Error())
		case checkout.IsRetryable(err):
			writeJSON(w, http.StatusBadGateway, errorResponse{
				Error:     "payment provider unavailable, please try again",
				Retryable: true,
			})
		default:
			// Open already logged the provider error.
			errorJSON(w, http.StatusBadRequest, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusCreated, checkoutResponse{Mount: m, PublishableKey: h.publicKey})
}

// Current handles GET /api/v1/checkout.
func (h *CheckoutHandler) Current(w http.ResponseWriter, r *http.Request) {
	m, ok := h.orch.Current()
	if !ok {
		errorJSON(w, http.StatusNotFound, "no checkout mounted")
		return
	}
	writeJSON(w, http.StatusOK, checkoutResponse{Mount: m, PublishableKey: h.publicKey})
}

// Close handles DELETE /api/v1/checkout.
func (h *CheckoutHandler) Close(w http.ResponseWriter, r *http.Request) {
	h.orch.Close()
	w.WriteHeader(http.StatusNoContent)
}

// Return handles GET /checkout/return?session_id=... and answers with the
// PDF download.
func (h *CheckoutHandler) Return(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if err := h.orch.Complete(sessionID); err != nil {
		errorJSON(w, statusFor(err), err.Error())
		return
	}
	h.exports.servePDF(w, h.quotes.View())
}
