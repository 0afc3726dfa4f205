package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestStorefrontMetricsExportsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewStorefrontMetrics(reg)
	m.IncCheckout("created")
	m.IncCheckout("created")
	m.IncWebhook("checkout.session.completed", "order_created")
	m.ObserveWebhook("checkout.session.completed", 120*time.Millisecond)
	m.IncOrderCreated("")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "storefront_checkout_sessions_total", "outcome", "created"); err != nil || got != 2 {
		t.Fatalf("expected checkout=2, got %f err=%v", got, err)
	}
	if got, err := fetchCounterValue(mfs, "storefront_webhook_events_total", "outcome", "order_created"); err != nil || got != 1 {
		t.Fatalf("expected webhook=1, got %f err=%v", got, err)
	}
	if got, err := fetchCounterValue(mfs, "storefront_orders_created_total", "tenant", "unknown"); err != nil || got != 1 {
		t.Fatalf("expected orders=1, got %f err=%v", got, err)
	}
	if got, err := fetchHistogramSum(mfs, "storefront_webhook_duration_seconds", "event_type", "checkout.session.completed"); err != nil || got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f err=%v", got, err)
	}
}

func TestOutboxMetricsExportsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOutboxMetrics(reg)
	m.IncPublished("order_created")
	m.IncTerminal("max_attempts")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "outbox_events_published_total", "event_type", "order_created"); err != nil || got != 1 {
		t.Fatalf("expected published=1, got %f err=%v", got, err)
	}
	if got, err := fetchCounterValue(mfs, "outbox_events_terminal_total", "reason", "max_attempts"); err != nil || got != 1 {
		t.Fatalf("expected terminal=1, got %f err=%v", got, err)
	}
}

func TestCronJobMetricsExportsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)
	m.IncFailure("outbox-retention")
	m.AddAffected("customer-totals", 4)
	m.AddAffected("customer-totals", 0)
	m.ObserveDuration("customer-totals", 50*time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "storefront_maintenance_job_runs_total", "outcome", "failure"); err != nil || got != 1 {
		t.Fatalf("expected failure=1, got %f err=%v", got, err)
	}
	if got, err := fetchCounterValue(mfs, "storefront_maintenance_rows_affected_total", "job", "customer-totals"); err != nil || got != 4 {
		t.Fatalf("expected affected=4, got %f err=%v", got, err)
	}
	if got, err := fetchHistogramSum(mfs, "storefront_maintenance_job_duration_seconds", "job", "customer-totals"); err != nil || got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f err=%v", got, err)
	}
}

func TestNilRecordersAreNoops(t *testing.T) {
	var s *StorefrontMetrics
	s.IncCheckout("x")
	s.IncWebhook("a", "b")
	NewStorefrontMetrics(nil).ObserveWebhook("a", time.Second)
	var o *OutboxMetrics
	o.IncPublished("x")
	NewOutboxMetrics(nil).IncTerminal("y")
	var c *CronJobMetrics
	c.IncSuccess("z")
	NewCronJobMetrics(nil).AddAffected("z", 3)
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
