// Package metrics holds the Prometheus collectors for the quote service.
// Every method is safe on a nil *Metrics so components can run without
// instrumentation in tests.
package metrics

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the domain collectors.
type Metrics struct {
	Actions          *prometheus.CounterVec
	RecomputeDur     prometheus.Histogram
	Renders          *prometheus.CounterVec
	CheckoutSessions *prometheus.CounterVec
	WebhookEvents    *prometheus.CounterVec
	SnapshotFailures *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New creates the collectors and registers them with reg. A nil reg uses a
// fresh registry, which keeps repeated construction in tests from colliding.
func New(namespace string, reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		Actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quote_actions_total",
			Help:      "Editor actions applied, by action and result.",
		}, []string{"action", "result"}),
		RecomputeDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "quote_recompute_duration_ms",
			Help:      "Time spent re-deriving grouped totals in milliseconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
		}),
		Renders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "document_renders_total",
			Help:      "Document renders by surface and result.",
		}, []string{"surface", "result"}),
		CheckoutSessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_sessions_total",
			Help:      "Checkout session requests by mode and outcome.",
		}, []string{"mode", "outcome"}),
		WebhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stripe_webhook_events_total",
			Help:      "Stripe webhook events received, by event type.",
		}, []string{"type"}),
		SnapshotFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_failures_total",
			Help:      "Snapshot operations that failed, by operation.",
		}, []string{"op"}),
		gatherer: reg,
	}

	mustRegister(reg, &m.Actions)
	mustRegister(reg, &m.Renders)
	mustRegister(reg, &m.CheckoutSessions)
	mustRegister(reg, &m.WebhookEvents)
	mustRegister(reg, &m.SnapshotFailures)
	if err := reg.Register(m.RecomputeDur); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			panic(fmt.Errorf("register histogram: %w", err))
		}
		if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
			m.RecomputeDur = existing
		}
	}
	return m
}

func mustRegister(reg prometheus.Registerer, c **prometheus.CounterVec) {
	if err := reg.Register(*c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			panic(fmt.Errorf("register counter: %w", err))
		}
		if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
			*c = existing
		}
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// ActionApplied records one editor action and the recompute it triggered.
func (m *Metrics) ActionApplied(action string, err error, recompute time.Duration) {
	if m == nil {
		return
	}
	m.Actions.WithLabelValues(action, result(err)).Inc()
	if err == nil {
		m.RecomputeDur.Observe(float64(recompute) / float64(time.Millisecond))
	}
}

// SnapshotFailed records a failed snapshot operation ("save", "load", "clear").
func (m *Metrics) SnapshotFailed(op string) {
	if m == nil {
		return
	}
	m.SnapshotFailures.WithLabelValues(op).Inc()
}

// Rendered records a preview, pdf or xlsx render.
func (m *Metrics) Rendered(surface string, err error) {
	if m == nil {
		return
	}
	m.Renders.WithLabelValues(surface, result(err)).Inc()
}

// CheckoutOpened records the outcome of a checkout session request.
func (m *Metrics) CheckoutOpened(mode, outcome string) {
	if m == nil {
		return
	}
	m.CheckoutSessions.WithLabelValues(mode, outcome).Inc()
}

// WebhookReceived records an accepted webhook event.
func (m *Metrics) WebhookReceived(eventType string) {
	if m == nil {
		return
	}
	m.WebhookEvents.WithLabelValues(eventType).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
