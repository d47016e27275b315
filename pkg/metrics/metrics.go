package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for the metering core. The core
// has no HTTP surface of its own; the host application registers Registry()
// (or the individual collectors) on whatever endpoint it already serves.
//
// All methods are safe on a nil *Metrics, so instrumentation can be left
// unwired in tests and small tools.
type Metrics struct {
	registry *prometheus.Registry

	AdmissionChecksTotal *prometheus.CounterVec
	AdmissionBlocksTotal *prometheus.CounterVec

	RecordsTotal       prometheus.Counter
	TokensRecorded     *prometheus.CounterVec
	SpendRecordedUSD   prometheus.Counter
	StoreFailuresTotal *prometheus.CounterVec
}

// New creates and registers all collectors on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,

		AdmissionChecksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tollgate_admission_checks_total",
			Help: "Total number of admission checks, by operation and result.",
		}, []string{"operation", "result"}),

		AdmissionBlocksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tollgate_admission_blocks_total",
			Help: "Total number of blocked requests, by operation and limit.",
		}, []string{"operation", "limit"}),

		RecordsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tollgate_usage_records_total",
			Help: "Total number of usage records appended to the ledger.",
		}),

		TokensRecorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tollgate_tokens_recorded_total",
			Help: "Total tokens recorded, by direction (input or output).",
		}, []string{"direction"}),

		SpendRecordedUSD: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tollgate_spend_recorded_usd_total",
			Help: "Total estimated spend recorded, in USD.",
		}),

		StoreFailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tollgate_store_failures_total",
			Help: "Persistence failures degraded to defaults, by operation.",
		}, []string{"op"}),
	}

	reg.MustRegister(
		m.AdmissionChecksTotal,
		m.AdmissionBlocksTotal,
		m.RecordsTotal,
		m.TokensRecorded,
		m.SpendRecordedUSD,
		m.StoreFailuresTotal,
	)

	return m
}

// Registry returns the private registry holding all collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveDecision counts one admission check and, when blocked, the limit
// that fired.
func (m *Metrics) ObserveDecision(operation, limit string, blocked bool) {
	if m == nil {
		return
	}
	result := "allowed"
	if blocked {
		result = "blocked"
		m.AdmissionBlocksTotal.WithLabelValues(operation, limit).Inc()
	}
	m.AdmissionChecksTotal.WithLabelValues(operation, result).Inc()
}

// ObserveRecord counts one appended usage record.
func (m *Metrics) ObserveRecord(inputTokens, outputTokens int, costUSD float64) {
	if m == nil {
		return
	}
	m.RecordsTotal.Inc()
	m.TokensRecorded.WithLabelValues("input").Add(float64(inputTokens))
	m.TokensRecorded.WithLabelValues("output").Add(float64(outputTokens))
	if costUSD > 0 {
		m.SpendRecordedUSD.Add(costUSD)
	}
}

// ObserveStoreFailure counts one persistence failure that was degraded to a
// default instead of being surfaced.
func (m *Metrics) ObserveStoreFailure(op string) {
	if m == nil {
		return
	}
	m.StoreFailuresTotal.WithLabelValues(op).Inc()
}
