package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// OrderMetrics tracks division verdicts and split outcomes.
type OrderMetrics struct {
	verdicts      *prometheus.CounterVec
	verdictErrors prometheus.Counter
	splits        *prometheus.CounterVec
	gateDecisions *prometheus.CounterVec
}

// NewOrderMetrics registers the order metrics on the provided registerer. A nil
// registerer yields a no-op recorder.
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	verdicts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storeorders_completion_verdicts_total",
		Help: "Completion verdicts computed, by status.",
	}, []string{"status"})
	verdictErrors := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "storeorders_completion_fetch_errors_total",
		Help: "Division fetches that failed while computing a verdict.",
	})
	splits := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storeorders_split_results_total",
		Help: "Per-store split attempts, by outcome.",
	}, []string{"outcome"})
	gateDecisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storeorders_delivery_gate_decisions_total",
		Help: "Delivery gate evaluations, by result.",
	}, []string{"result"})
	reg.MustRegister(verdicts, verdictErrors, splits, gateDecisions)
	return &OrderMetrics{
		verdicts:      verdicts,
		verdictErrors: verdictErrors,
		splits:        splits,
		gateDecisions: gateDecisions,
	}
}

// IncVerdict counts one computed verdict.
func (m *OrderMetrics) IncVerdict(status string) {
	if m == nil || m.verdicts == nil {
		return
	}
	m.verdicts.WithLabelValues(labelOr(status, "unknown")).Inc()
}

// IncVerdictError counts one failed division fetch.
func (m *OrderMetrics) IncVerdictError() {
	if m == nil || m.verdictErrors == nil {
		return
	}
	m.verdictErrors.Inc()
}

// IncSplit counts one per-store split attempt.
func (m *OrderMetrics) IncSplit(success bool) {
	if m == nil || m.splits == nil {
		return
	}
	outcome := "failure"
	if success {
		outcome = "success"
	}
	m.splits.WithLabelValues(outcome).Inc()
}

// IncGateDecision counts one delivery gate evaluation.
func (m *OrderMetrics) IncGateDecision(canDeliver bool) {
	if m == nil || m.gateDecisions == nil {
		return
	}
	result := "blocked"
	if canDeliver {
		result = "open"
	}
	m.gateDecisions.WithLabelValues(result).Inc()
}
