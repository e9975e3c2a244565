package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics records counters for the checkout and order lifecycle paths.
type CheckoutMetrics struct {
	checkouts   *prometheus.CounterVec
	ordersTotal prometheus.Counter
	cancels     *prometheus.CounterVec
	fulfills    *prometheus.CounterVec
}

// NewCheckoutMetrics registers the lifecycle metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	checkouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_attempts_total",
		Help: "Checkout attempts by outcome.",
	}, []string{"outcome"})
	ordersTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Orders created by successful checkouts.",
	})
	cancels := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_cancellations_total",
		Help: "Order cancellation attempts by outcome.",
	}, []string{"outcome"})
	fulfills := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_fulfillments_total",
		Help: "Order fulfillment attempts by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(checkouts, ordersTotal, cancels, fulfills)
	return &CheckoutMetrics{
		checkouts:   checkouts,
		ordersTotal: ordersTotal,
		cancels:     cancels,
		fulfills:    fulfills,
	}
}

// IncCheckout increments the checkout counter for the given outcome.
func (m *CheckoutMetrics) IncCheckout(outcome string) {
	if m == nil || m.checkouts == nil {
		return
	}
	m.checkouts.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// AddOrdersCreated records how many orders a checkout produced.
func (m *CheckoutMetrics) AddOrdersCreated(n int) {
	if m == nil || m.ordersTotal == nil || n <= 0 {
		return
	}
	m.ordersTotal.Add(float64(n))
}

// IncCancel increments the cancellation counter for the given outcome.
func (m *CheckoutMetrics) IncCancel(outcome string) {
	if m == nil || m.cancels == nil {
		return
	}
	m.cancels.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncFulfill increments the fulfillment counter for the given outcome.
func (m *CheckoutMetrics) IncFulfill(outcome string) {
	if m == nil || m.fulfills == nil {
		return
	}
	m.fulfills.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// PublisherMetrics records metadata for the outbox publisher loop.
type PublisherMetrics struct {
	duration  *prometheus.HistogramVec
	published *prometheus.CounterVec
	failed    *prometheus.CounterVec
}

// NewPublisherMetrics registers the publisher metrics on the provided registerer.
func NewPublisherMetrics(reg prometheus.Registerer) *PublisherMetrics {
	if reg == nil {
		return &PublisherMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "outbox_publish_duration_seconds",
		Help:    "Duration of outbox publish batches in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"topic"})
	published := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_events_published_total",
		Help: "Outbox events published successfully.",
	}, []string{"topic"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_events_failed_total",
		Help: "Outbox events that failed to publish.",
	}, []string{"topic"})
	reg.MustRegister(duration, published, failed)
	return &PublisherMetrics{
		duration:  duration,
		published: published,
		failed:    failed,
	}
}

// ObserveBatch records the duration of a publish batch for the named topic.
func (p *PublisherMetrics) ObserveBatch(topic string, duration time.Duration) {
	if p == nil || p.duration == nil {
		return
	}
	p.duration.WithLabelValues(normalizeLabel(topic)).Observe(duration.Seconds())
}

// IncPublished increments the published counter for the named topic.
func (p *PublisherMetrics) IncPublished(topic string) {
	if p == nil || p.published == nil {
		return
	}
	p.published.WithLabelValues(normalizeLabel(topic)).Inc()
}

// IncFailed increments the failed counter for the named topic.
func (p *PublisherMetrics) IncFailed(topic string) {
	if p == nil || p.failed == nil {
		return
	}
	p.failed.WithLabelValues(normalizeLabel(topic)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
