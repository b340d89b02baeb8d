//go:build !devwebhook

package stripe

import (
	"errors"
	"testing"
)

func TestParseEvent_ProductionRejectsUnsigned(t *testing.T) {
	svc := NewService("sk_test_webhook", testLogger())

	for _, secret := range []string{"", PlaceholderWebhookSecret} {
		_, err := svc.ParseEvent(completedPayload(), "", secret)
		if !errors.Is(err, ErrUnverifiedEvent) {
			t.Errorf("secret %q: err = %v, want ErrUnverifiedEvent", secret, err)
		}
	}
	if UnverifiedEventsAllowed {
		t.Error("default build must not allow unverified events")
	}
}
