//go:build devwebhook

package stripe

import "testing"

func TestParseEvent_DevAcceptsUnsigned(t *testing.T) {
	svc := NewService("sk_test_webhook", testLogger())

	event, err := svc.ParseEvent(completedPayload(), "", "")
	if err != nil {
		t.Fatalf("ParseEvent: %v", err)
	}
	if event.Type != "checkout.session.completed" {
		t.Errorf("type = %q", event.Type)
	}
	if _, err := svc.ParseEvent([]byte("not json"), "", ""); err == nil {
		t.Error("expected decode error")
	}
}
