// Package metrics exposes Prometheus counters for pipeline activity.
//
// A nil *Metrics is valid and records nothing, so components can take one
// unconditionally.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "phasegrid"

// Outcome labels for remote calls.
const (
	OutcomeOK        = "ok"
	OutcomeTransport = "transport_error"
	OutcomeIdentity  = "identity_error"
	OutcomeStale     = "stale"
)

// Metrics groups every collector the pipeline updates.
type Metrics struct {
	Transitions   *prometheus.CounterVec
	RemoteCalls   *prometheus.CounterVec
	RemoteSeconds *prometheus.HistogramVec
	Violations    *prometheus.CounterVec
	Invalidations *prometheus.CounterVec
	Stale         *prometheus.CounterVec
}

// New registers the collectors with reg. Pass prometheus.NewRegistry() in
// tests to keep them isolated from the default registry.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Transitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "phase_transitions_total",
			Help:      "Phase status transitions by phase and target status.",
		}, []string{"phase", "status"}),
		RemoteCalls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remote_calls_total",
			Help:      "Calls to the compiler service by phase, action and outcome.",
		}, []string{"phase", "action", "outcome"}),
		RemoteSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "remote_call_duration_seconds",
			Help:      "Latency of calls to the compiler service.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"phase", "action"}),
		Violations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_violations_total",
			Help:      "Local validation failures by violation kind.",
		}, []string{"kind"}),
		Invalidations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invalidations_total",
			Help:      "Downstream phases reset because an upstream phase changed.",
		}, []string{"phase"}),
		Stale: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_completions_total",
			Help:      "Remote completions discarded because the phase moved on.",
		}, []string{"phase"}),
	}
}

func (m *Metrics) Transition(phase, status string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(phase, status).Inc()
}

func (m *Metrics) RemoteCall(phase, action, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.RemoteCalls.WithLabelValues(phase, action, outcome).Inc()
	m.RemoteSeconds.WithLabelValues(phase, action).Observe(seconds)
}

func (m *Metrics) Violation(kind string) {
	if m == nil {
		return
	}
	m.Violations.WithLabelValues(kind).Inc()
}

func (m *Metrics) Invalidated(phase string) {
	if m == nil {
		return
	}
	m.Invalidations.WithLabelValues(phase).Inc()
}

func (m *Metrics) StaleCompletion(phase string) {
	if m == nil {
		return
	}
	m.Stale.WithLabelValues(phase).Inc()
}
