//go:build !devwebhook

package stripe

import (
	"log/slog"

	stripe "github.com/stripe/stripe-go/v82"
)

// UnverifiedEventsAllowed reports whether this binary accepts unsigned webhooks.
const UnverifiedEventsAllowed = false

func (s *Service) parseUnverified(payload []byte) (stripe.Event, error) {
	s.logger.Warn("rejecting unsigned webhook", slog.Int("bytes", len(payload)))
	return stripe.Event{}, ErrUnverifiedEvent
}
