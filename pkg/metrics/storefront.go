package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// StorefrontMetrics tracks checkout and webhook outcomes.
type StorefrontMetrics struct {
	checkoutSessions *prometheus.CounterVec
	webhookEvents    *prometheus.CounterVec
	webhookDuration  *prometheus.HistogramVec
	ordersCreated    *prometheus.CounterVec
}

// NewStorefrontMetrics registers the storefront metrics on reg. A nil
// registerer yields a no-op recorder.
func NewStorefrontMetrics(reg prometheus.Registerer) *StorefrontMetrics {
	if reg == nil {
		return &StorefrontMetrics{}
	}
	checkoutSessions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_checkout_sessions_total",
		Help: "Checkout session attempts by outcome.",
	}, []string{"outcome"})
	webhookEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_webhook_events_total",
		Help: "Payment webhook events by type and outcome.",
	}, []string{"event_type", "outcome"})
	webhookDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storefront_webhook_duration_seconds",
		Help:    "Time spent handling payment webhook events.",
		Buckets: prometheus.DefBuckets,
	}, []string{"event_type"})
	ordersCreated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_orders_created_total",
		Help: "Orders recorded from completed checkouts.",
	}, []string{"tenant"})
	reg.MustRegister(checkoutSessions, webhookEvents, webhookDuration, ordersCreated)
	return &StorefrontMetrics{
		checkoutSessions: checkoutSessions,
		webhookEvents:    webhookEvents,
		webhookDuration:  webhookDuration,
		ordersCreated:    ordersCreated,
	}
}

func (m *StorefrontMetrics) IncCheckout(outcome string) {
	if m == nil || m.checkoutSessions == nil {
		return
	}
	m.checkoutSessions.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (m *StorefrontMetrics) IncWebhook(eventType, outcome string) {
	if m == nil || m.webhookEvents == nil {
		return
	}
	m.webhookEvents.WithLabelValues(normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}

func (m *StorefrontMetrics) ObserveWebhook(eventType string, d time.Duration) {
	if m == nil || m.webhookDuration == nil {
		return
	}
	m.webhookDuration.WithLabelValues(normalizeLabel(eventType)).Observe(d.Seconds())
}

func (m *StorefrontMetrics) IncOrderCreated(tenant string) {
	if m == nil || m.ordersCreated == nil {
		return
	}
	m.ordersCreated.WithLabelValues(normalizeLabel(tenant)).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
