// Package checkout coordinates the payment step in front of the PDF
// download. It owns the single checkout mount, guards against overlapping
// session requests and decides the amount to charge.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/quotify/api/internal/quote"
	"github.com/quotify/api/internal/stripe"
)

var (
	// ErrInFlight is returned when Open is called while a session request is pending.
	ErrInFlight = errors.New("checkout session request already in flight")

	// ErrClosed is returned when the mount was closed before the session came back.
	ErrClosed = errors.New("checkout closed while the session was being created")

	// ErrNotPayable is returned when the computed amount is zero or negative.
	ErrNotPayable = errors.New("nothing to pay")

	// ErrMissingSession is returned by Complete without a session id.
	ErrMissingSession = errors.New("session id is required")
)

// Error wraps a failed Open and tells the caller whether trying again can help.
type Error struct {
	Err       error
	Retryable bool
}

func (e *Error) Error() string { return e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

// IsRetryable reports whether err is a checkout failure worth retrying.
func IsRetryable(err error) bool {
	var ce *Error
	return errors.As(err, &ce) && ce.Retryable
}

// AmountMode selects what the payment charges.
type AmountMode string

const (
	// AmountFixed charges the configured service fee.
	AmountFixed AmountMode = "fixed"

	// AmountQuote charges the quote's grand total.
	AmountQuote AmountMode = "quote"
)

// DefaultServiceFee is charged in AmountFixed mode when nothing is configured.
var DefaultServiceFee = decimal.RequireFromString("0.50")

// SessionCreator creates provider payment sessions. *stripe.Service implements it.
type SessionCreator interface {
	CreateCheckoutSession(ctx context.Context, input stripe.CheckoutInput) (stripe.CheckoutResult, error)
}

// QuoteSource exposes the current quote. *editor.Controller implements it.
type QuoteSource interface {
	View() quote.Document
}

// Observer receives session outcomes. *metrics.Metrics implements it.
type Observer interface {
	CheckoutOpened(mode, outcome string)
}

// Config selects presentation and amount.
type Config struct {
	Mode       stripe.Mode
	AmountMode AmountMode
	ServiceFee decimal.Decimal
	Currency   string
	PriceID    string
	// BaseURL is the public origin used to build return and cancel URLs.
	BaseURL string
}

// Mount is the checkout currently presented to the user.
type Mount struct {
	Token        string          `json:"token"`
	Mode         stripe.Mode     `json:"mode"`
	SessionID    string          `json:"sessionId"`
	ClientSecret string          `json:"clientSecret,omitempty"`
	URL          string          `json:"url,omitempty"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
	OpenedAt     time.Time       `json:"openedAt"`
}

// Orchestrator holds at most one mount and at most one pending request.
type Orchestrator struct {
	mu         sync.Mutex
	inFlight   bool
	generation uint64
	mount      *Mount

	creator  SessionCreator
	quotes   QuoteSource
	cfg      Config
	logger   *slog.Logger
	observer Observer
	now      func() time.Time
}

// New creates an Orchestrator. observer may be nil.
func New(creator SessionCreator, quotes QuoteSource, cfg Config, observer Observer, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Mode == "" {
		cfg.Mode = stripe.ModeEmbedded
	}
	if cfg.AmountMode == "" {
		cfg.AmountMode = AmountFixed
	}
	if cfg.ServiceFee.IsZero() {
		cfg.ServiceFee = DefaultServiceFee
	}
	if cfg.Currency == "" {
		cfg.Currency = "EUR"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Orchestrator{
		creator:  creator,
		quotes:   quotes,
		cfg:      cfg,
		logger:   logger,
		observer: observer,
		now:      time.Now,
	}
}

// ReturnURL is where the provider sends the user after paying.
func (o *Orchestrator) ReturnURL() string {
	return o.cfg.BaseURL + "/checkout/return?session_id=" + stripe.SessionIDPlaceholder
}

// CancelURL is where a redirect checkout goes when the user backs out.
func (o *Orchestrator) CancelURL() string {
	return o.cfg.BaseURL + "/?canceled=true"
}

// Open replaces any existing mount with a fresh payment session. A second
// Open while one is pending fails with ErrInFlight.
func (o *Orchestrator) Open(ctx context.Context) (Mount, error) {
	o.mu.Lock()
	if o.inFlight {
		o.mu.Unlock()
		o.outcome("in_flight")
		return Mount{}, ErrInFlight
	}
	o.inFlight = true
	o.mount = nil
	o.generation++
	gen := o.generation
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.inFlight = false
		o.mu.Unlock()
	}()

	doc := o.quotes.View()
	input, err := o.input(doc)
	if err != nil {
		o.outcome("rejected")
		return Mount{}, &Error{Err: err}
	}
	input.Reference = uuid.NewString()

	res, err := o.creator.CreateCheckoutSession(ctx, input)
	if err != nil {
		o.logger.Error("checkout session failed",
			"error", err,
			"mode", string(o.cfg.Mode),
			"reference", input.Reference,
		)
		o.outcome("failed")
		return Mount{}, &Error{Err: err, Retryable: retryable(err)}
	}

	m := Mount{
		Token:        input.Reference,
		Mode:         o.cfg.Mode,
		SessionID:    res.SessionID,
		ClientSecret: res.ClientSecret,
		URL:          res.URL,
		Amount:       input.Amount,
		Currency:     strings.ToUpper(input.Currency),
		OpenedAt:     o.now(),
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.generation != gen {
		o.logger.Info("discarding checkout session opened after close", "session_id", res.SessionID)
		o.outcome("discarded")
		return Mount{}, ErrClosed
	}
	o.mount = &m
	o.outcome("ok")
	return m, nil
}

// Close tears down the current mount. A pending Open finishes but its
// session is discarded.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.generation++
	o.mount = nil
}

// Current returns the mounted checkout, if any.
func (o *Orchestrator) Current() (Mount, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.mount == nil {
		return Mount{}, false
	}
	return *o.mount, true
}

// Complete handles the return from the payment page. The mount is cleared;
// the caller then serves the export.
func (o *Orchestrator) Complete(sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return ErrMissingSession
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.mount != nil && o.mount.SessionID != sessionID {
		o.logger.Warn("payment return for a session that is not mounted",
			"session_id", sessionID,
			"mounted", o.mount.SessionID,
		)
	}
	o.logger.Info("payment completed", "session_id", sessionID)
	o.generation++
	o.mount = nil
	return nil
}

func (o *Orchestrator) input(doc quote.Document) (stripe.CheckoutInput, error) {
	in := stripe.CheckoutInput{
		Mode:        o.cfg.Mode,
		Description: strings.TrimSpace(doc.State.Meta.DisplayTitle() + " " + doc.State.Meta.Number),
		Email:       doc.State.Sender.Email,
		Metadata: map[string]string{
			"quote_number": doc.State.Meta.Number,
			"amount_mode":  string(o.cfg.AmountMode),
		},
	}
	switch o.cfg.Mode {
	case stripe.ModeEmbedded:
		in.ReturnURL = o.ReturnURL()
	default:
		in.SuccessURL = o.ReturnURL()
		in.CancelURL = o.CancelURL()
	}

	switch o.cfg.AmountMode {
	case AmountQuote:
		in.Amount = doc.Totals.GrandTotal.Round(2)
		in.Currency = doc.Currency()
		if !in.Amount.IsPositive() {
			return in, fmt.Errorf("%w: grand total %s", ErrNotPayable, quote.FormatAmount(in.Amount))
		}
	default:
		in.Amount = o.cfg.ServiceFee
		in.Currency = o.cfg.Currency
		in.PriceID = o.cfg.PriceID
	}
	return in, nil
}

func (o *Orchestrator) outcome(outcome string) {
	if o.observer != nil {
		o.observer.CheckoutOpened(string(o.cfg.Mode), outcome)
	}
}

// retryable is false for input the provider will keep rejecting.
func retryable(err error) bool {
	for _, permanent := range []error{
		stripe.ErrInvalidAmount,
		stripe.ErrInvalidCurrency,
		stripe.ErrInvalidMode,
		stripe.ErrMissingURLs,
		stripe.ErrMissingReturnURL,
	} {
		if errors.Is(err, permanent) {
			return false
		}
	}
	return true
}
