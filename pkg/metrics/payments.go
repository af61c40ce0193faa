package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PaymentMetrics records settlement and webhook activity.
type PaymentMetrics struct {
	settlements    *prometheus.CounterVec
	webhookEvents  *prometheus.CounterVec
	settleDuration *prometheus.HistogramVec
	intentsCreated prometheus.Counter
}

// NewPaymentMetrics registers the payment metrics on the provided registerer.
func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	if reg == nil {
		return &PaymentMetrics{}
	}
	settlements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_settlements_total",
		Help: "Settlement attempts by ingress path and outcome.",
	}, []string{"path", "outcome"})
	webhookEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_webhook_events_total",
		Help: "Webhook events received by event type.",
	}, []string{"event"})
	settleDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "payment_settlement_duration_seconds",
		Help:    "Duration of settlement transactions in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"path"})
	intentsCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "payment_intents_created_total",
		Help: "Orders registered with the payment gateway.",
	})
	reg.MustRegister(settlements, webhookEvents, settleDuration, intentsCreated)
	return &PaymentMetrics{
		settlements:    settlements,
		webhookEvents:  webhookEvents,
		settleDuration: settleDuration,
		intentsCreated: intentsCreated,
	}
}

// IncSettlement increments the settlement counter for the path and outcome.
func (p *PaymentMetrics) IncSettlement(path, outcome string) {
	if p == nil || p.settlements == nil {
		return
	}
	p.settlements.WithLabelValues(normalizeLabel(path), normalizeLabel(outcome)).Inc()
}

// IncWebhookEvent increments the webhook counter for the event type.
func (p *PaymentMetrics) IncWebhookEvent(event string) {
	if p == nil || p.webhookEvents == nil {
		return
	}
	p.webhookEvents.WithLabelValues(normalizeLabel(event)).Inc()
}

// ObserveSettlement records how long a settlement transaction took.
func (p *PaymentMetrics) ObserveSettlement(path string, duration time.Duration) {
	if p == nil || p.settleDuration == nil {
		return
	}
	p.settleDuration.WithLabelValues(normalizeLabel(path)).Observe(duration.Seconds())
}

// IncIntentCreated counts a new gateway order registration.
func (p *PaymentMetrics) IncIntentCreated() {
	if p == nil || p.intentsCreated == nil {
		return
	}
	p.intentsCreated.Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
