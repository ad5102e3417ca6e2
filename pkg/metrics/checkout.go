package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Checkout confirmation outcomes.
const (
	OutcomeCreated   = "created"
	OutcomeDuplicate = "duplicate"
	OutcomeRejected  = "rejected"
	OutcomeFailed    = "failed"
)

// CheckoutMetrics counts confirmation outcomes and inventory shortfalls.
type CheckoutMetrics struct {
	confirmations *prometheus.CounterVec
	duration      prometheus.Histogram
	shortfalls    prometheus.Counter
	intents       *prometheus.CounterVec
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	confirmations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_confirmations_total",
		Help: "Checkout confirmations by outcome.",
	}, []string{"outcome"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "checkout_confirm_duration_seconds",
		Help:    "Duration of checkout confirmation transactions in seconds.",
		Buckets: prometheus.DefBuckets,
	})
	shortfalls := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "checkout_inventory_shortfalls_total",
		Help: "Confirmations aborted because a product ran out of stock.",
	})
	intents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_payment_intents_total",
		Help: "Payment intents requested at checkout begin, by whether one was created or reused.",
	}, []string{"result"})
	reg.MustRegister(confirmations, duration, shortfalls, intents)
	return &CheckoutMetrics{
		confirmations: confirmations,
		duration:      duration,
		shortfalls:    shortfalls,
		intents:       intents,
	}
}

// ObserveConfirmation records one confirmation attempt.
func (c *CheckoutMetrics) ObserveConfirmation(outcome string, took time.Duration) {
	if c == nil || c.confirmations == nil {
		return
	}
	c.confirmations.WithLabelValues(normalizeLabel(outcome)).Inc()
	c.duration.Observe(took.Seconds())
}

// IncInventoryShortfall counts a confirmation rejected for stock.
func (c *CheckoutMetrics) IncInventoryShortfall() {
	if c == nil || c.shortfalls == nil {
		return
	}
	c.shortfalls.Inc()
}

// IncPaymentIntent counts a begin call; reused is true when the cart already had an intent.
func (c *CheckoutMetrics) IncPaymentIntent(reused bool) {
	if c == nil || c.intents == nil {
		return
	}
	result := "created"
	if reused {
		result = "reused"
	}
	c.intents.WithLabelValues(result).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
