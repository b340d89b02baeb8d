// Package stripe wraps the Stripe Go SDK for the quote service's payment
// step: creating Checkout Sessions and verifying webhook events.
package stripe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"
	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
)

var (
	// ErrInvalidAmount is returned when no positive amount and no price ID is given.
	ErrInvalidAmount = errors.New("checkout amount must be positive")

	// ErrInvalidCurrency is returned when the currency string is empty.
	ErrInvalidCurrency = errors.New("currency must not be empty")

	// ErrMissingURLs is returned when a redirect session lacks success or cancel URLs.
	ErrMissingURLs = errors.New("success and cancel URLs are required")

	// ErrMissingReturnURL is returned when an embedded session lacks a return URL.
	ErrMissingReturnURL = errors.New("return URL is required for embedded checkout")

	// ErrInvalidMode is returned for a mode other than embedded or redirect.
	ErrInvalidMode = errors.New("checkout mode must be embedded or redirect")
)

// Mode selects how the payment page is presented.
type Mode string

const (
	// ModeEmbedded mounts Stripe's checkout inside the page using a client secret.
	ModeEmbedded Mode = "embedded"

	// ModeRedirect sends the customer to the hosted checkout page.
	ModeRedirect Mode = "redirect"
)

// SessionIDPlaceholder is substituted by Stripe in return and success URLs.
const SessionIDPlaceholder = "{CHECKOUT_SESSION_ID}"

// DefaultProductName is the line item shown on the payment page.
const DefaultProductName = "Offerte PDF Download"

// Service wraps the Stripe Go SDK to create Checkout Sessions and verify
// webhook signatures.
type Service struct {
	logger *slog.Logger
}

// NewService creates a new Stripe service and sets the global API key.
//
// The Stripe Go SDK uses a package-level Key variable for authentication.
// This must be set before any API calls are made.
func NewService(secretKey string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	stripe.Key = secretKey
	return &Service{
		logger: logger,
	}
}

// CheckoutInput contains all data needed to create a Stripe Checkout Session.
type CheckoutInput struct {
	// Reference identifies the checkout mount. It is sent as the
	// client_reference_id and echoed back by webhooks.
	Reference string

	Mode Mode

	// PriceID charges a price configured in the Stripe dashboard. When set,
	// Amount is ignored.
	PriceID string

	// Amount is the gross amount in currency units (e.g. 0.50).
	Amount decimal.Decimal

	// Currency is the three-letter ISO currency code (e.g., "eur").
	Currency string

	// ProductName defaults to DefaultProductName.
	ProductName string

	// Description is shown under the product name, e.g. the quote number.
	Description string

	// Email pre-fills the Checkout page.
	Email string

	// ReturnURL is required for embedded sessions. It should contain
	// SessionIDPlaceholder.
	ReturnURL string

	// SuccessURL and CancelURL are required for redirect sessions.
	SuccessURL string
	CancelURL  string

	// Metadata is attached to both the session and its PaymentIntent.
	Metadata map[string]string
}

// CheckoutResult contains the output of a successfully created Checkout Session.
type CheckoutResult struct {
	// SessionID is the Stripe Checkout Session ID (e.g., "cs_test_...").
	SessionID string

	// URL is the hosted page for redirect sessions.
	URL string

	// ClientSecret mounts an embedded session in the browser.
	ClientSecret string
}

// CreateCheckoutSession creates a one-line-item payment session.
func (s *Service) CreateCheckoutSession(ctx context.Context, input CheckoutInput) (CheckoutResult, error) {
	if err := validateCheckoutInput(input); err != nil {
		return CheckoutResult{}, fmt.Errorf("validating checkout input: %w", err)
	}

	params := buildSessionParams(input)
	params.Context = ctx

	s.logger.Info("creating stripe checkout session",
		slog.String("reference", input.Reference),
		slog.String("mode", string(input.Mode)),
		slog.String("currency", input.Currency),
		slog.Bool("fixed_price", input.PriceID != ""),
	)

	sess, err := session.New(params)
	if err != nil {
		return CheckoutResult{}, fmt.Errorf("creating stripe checkout session: %w", err)
	}

	result := CheckoutResult{
		SessionID:    sess.ID,
		URL:          sess.URL,
		ClientSecret: sess.ClientSecret,
	}

	s.logger.Info("stripe checkout session created",
		slog.String("session_id", sess.ID),
		slog.String("reference", input.Reference),
	)

	return result, nil
}

// buildSessionParams maps input onto the Stripe request without calling the API.
func buildSessionParams(input CheckoutInput) *stripe.CheckoutSessionParams {
	lineItem := &stripe.CheckoutSessionLineItemParams{Quantity: stripe.Int64(1)}
	if input.PriceID != "" {
		lineItem.Price = stripe.String(input.PriceID)
	} else {
		name := input.ProductName
		if name == "" {
			name = DefaultProductName
		}
		lineItem.PriceData = &stripe.CheckoutSessionLineItemPriceDataParams{
			Currency:   stripe.String(strings.ToLower(input.Currency)),
			UnitAmount: stripe.Int64(decimalToCents(input.Amount)),
			ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
				Name:        stripe.String(name),
				Description: strPtr(input.Description),
			},
		}
	}

	metadata := make(map[string]string, len(input.Metadata)+1)
	for k, v := range input.Metadata {
		metadata[k] = v
	}
	if input.Reference != "" {
		metadata["reference"] = input.Reference
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems:         []*stripe.CheckoutSessionLineItemParams{lineItem},
		ClientReferenceID: strPtr(input.Reference),
		CustomerEmail:     strPtr(input.Email),
		Metadata:          metadata,
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: metadata,
		},
	}

	switch input.Mode {
	case ModeEmbedded:
		params.UIMode = stripe.String(string(stripe.CheckoutSessionUIModeEmbedded))
		params.ReturnURL = stripe.String(input.ReturnURL)
	default:
		params.SuccessURL = stripe.String(input.SuccessURL)
		params.CancelURL = stripe.String(input.CancelURL)
	}
	return params
}

// decimalToCents converts a shopspring/decimal value representing a currency
// amount (e.g., 42.50) to the smallest currency unit (e.g., 4250 cents).
func decimalToCents(d decimal.Decimal) int64 {
	return d.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// strPtr returns a pointer to the string, or nil if empty. This avoids
// sending empty strings to Stripe where nil means "not provided".
func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func validateCheckoutInput(input CheckoutInput) error {
	switch input.Mode {
	case ModeEmbedded:
		if input.ReturnURL == "" {
			return ErrMissingReturnURL
		}
	case ModeRedirect:
		if input.SuccessURL == "" || input.CancelURL == "" {
			return ErrMissingURLs
		}
	default:
		return ErrInvalidMode
	}
	if input.PriceID != "" {
		return nil
	}
	if input.Currency == "" {
		return ErrInvalidCurrency
	}
	if decimalToCents(input.Amount) <= 0 {
		return ErrInvalidAmount
	}
	return nil
}
