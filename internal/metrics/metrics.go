package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "custom_gateway"

type Metrics struct {
	gatherer prometheus.Gatherer

	ChargeAttempts  *prometheus.CounterVec
	ChargeDuration  prometheus.Histogram
	OrderOutcomes   *prometheus.CounterVec
	Reconciliations *prometheus.CounterVec
}

// New registers the collectors on reg. Tests pass a fresh registry.
func New(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		gatherer: reg,
		ChargeAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "charge_attempts_total",
			Help:      "Processor charge calls by result (success, declined, unavailable, rejected).",
		}, []string{"result"}),
		ChargeDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "charge_duration_seconds",
			Help:      "Latency of a single processor charge call.",
			Buckets:   prometheus.DefBuckets,
		}),
		OrderOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_outcomes_total",
			Help:      "Orders leaving Process by resulting status.",
		}, []string{"status"}),
		Reconciliations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconciliations_total",
			Help:      "Reconciliation decisions for stuck orders.",
		}, []string{"result"}),
	}
}

func (m *Metrics) ObserveCharge(result string, d time.Duration) {
	m.ChargeAttempts.WithLabelValues(result).Inc()
	m.ChargeDuration.Observe(d.Seconds())
}

func (m *Metrics) OrderOutcome(status string) {
	m.OrderOutcomes.WithLabelValues(status).Inc()
}

func (m *Metrics) Reconciled(result string) {
	m.Reconciliations.WithLabelValues(result).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
