// Package editor owns the quote being authored. All mutation goes through
// the Controller's action methods, which serialize on one mutex, re-derive
// the totals and write the snapshot through after every change.
package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/quotify/api/internal/quote"
	"github.com/quotify/api/internal/snapshot"
)

var (
	// ErrValidation is returned when an action's input is rejected.
	ErrValidation = errors.New("validation failed")

	// ErrUnknownRole is returned by SetParty for a role other than sender or client.
	ErrUnknownRole = errors.New("unknown party role")
)

// Observer receives action and snapshot outcomes. *metrics.Metrics
// implements it.
type Observer interface {
	ActionApplied(action string, err error, recompute time.Duration)
	SnapshotFailed(op string)
}

// Options configures a Controller. Store defaults to an in-memory snapshot.
type Options struct {
	Store    snapshot.Store
	Logger   *slog.Logger
	Policy   Policy
	Observer Observer
	Now      func() time.Time
}

// Controller is the single owner of the quote state.
type Controller struct {
	mu     sync.Mutex
	state  quote.State
	totals quote.GroupedTotals

	store     snapshot.Store
	logger    *slog.Logger
	validator *validator
	observer  Observer
	now       func() time.Time
}

// New restores the last snapshot, or starts from defaults with the example
// row. A corrupt snapshot is discarded and never fails startup.
func New(ctx context.Context, opts Options) *Controller {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Store == nil {
		opts.Store = snapshot.NewMemory()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	c := &Controller{
		store:     opts.Store,
		logger:    opts.Logger,
		validator: newValidator(opts.Policy),
		observer:  opts.Observer,
		now:       opts.Now,
	}

	defaults := quote.DefaultState(c.now())
	state, restored, err := c.store.Load(ctx, defaults)
	switch {
	case errors.Is(err, snapshot.ErrCorrupt):
		c.logger.Warn("discarding corrupt snapshot", "error", err)
		c.snapshotFailed("load")
		if err := c.store.Clear(ctx); err != nil {
			c.logger.Warn("failed to clear corrupt snapshot", "error", err)
			c.snapshotFailed("clear")
		}
		state, restored = defaults, false
	case err != nil:
		c.logger.Warn("snapshot unavailable, starting fresh", "error", err)
		c.snapshotFailed("load")
		state, restored = defaults, false
	}

	if len(state.Items) == 0 {
		state.Items = quote.Items{quote.DefaultLineItem()}
	}
	c.state = state
	c.totals = quote.Compute(state.Items)
	c.state.Total = c.totals.GrandTotal

	c.logger.Info("quote loaded",
		"restored", restored,
		"items", len(c.state.Items),
		"policy", string(c.validator.policy),
	)
	return c
}

// View returns a deep copy of the state together with its derived totals.
func (c *Controller) View() quote.Document {
	c.mu.Lock()
	defer c.mu.Unlock()
	return quote.Document{State: c.state.Clone(), Totals: c.totals}
}

// apply runs one action: mutate a clone, validate, recompute, commit, save.
// A failed mutation or validation leaves the state untouched.
func (c *Controller) apply(ctx context.Context, action string, mutate func(s *quote.State) error) (quote.Document, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := c.state.Clone()
	if err := mutate(&next); err != nil {
		c.actionApplied(action, err, 0)
		return quote.Document{}, err
	}
	if err := c.validator.state(next); err != nil {
		c.actionApplied(action, err, 0)
		return quote.Document{}, err
	}

	start := time.Now()
	totals := quote.Compute(next.Items)
	elapsed := time.Since(start)
	next.Total = totals.GrandTotal

	c.state = next
	c.totals = totals
	c.actionApplied(action, nil, elapsed)
	c.logger.Debug("action applied",
		"action", action,
		"items", len(next.Items),
		"total", quote.FormatAmount(totals.GrandTotal),
	)

	c.save(ctx)
	return quote.Document{State: c.state.Clone(), Totals: c.totals}, nil
}

// save writes the snapshot. Failures degrade persistence only.
func (c *Controller) save(ctx context.Context) {
	if err := c.store.Save(ctx, c.state); err != nil {
		c.logger.Error("failed to save snapshot", "error", err)
		c.snapshotFailed("save")
	}
}

func (c *Controller) actionApplied(action string, err error, d time.Duration) {
	if err != nil {
		c.logger.Debug("action rejected", "action", action, "error", err)
	}
	if c.observer != nil {
		c.observer.ActionApplied(action, err, d)
	}
}

func (c *Controller) snapshotFailed(op string) {
	if c.observer != nil {
		c.observer.SnapshotFailed(op)
	}
}

func validationError(field, msg string) error {
	return fmt.Errorf("%w: %s %s", ErrValidation, field, msg)
}
