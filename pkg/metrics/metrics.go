// Package metrics exposes prometheus instrumentation for rule
// evaluation.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Config controls metric naming.
type Config struct {
	// Namespace is the metric name prefix.
	Namespace string
}

// DefaultConfig returns the default metrics configuration.
func DefaultConfig() *Config {
	return &Config{Namespace: "ruleengine"}
}

// Metrics tracks decision, invariant, and transition evaluation.
//
// Metrics:
//   - <ns>_decisions_total: access decisions by entity, operation, outcome, reason
//   - <ns>_decision_duration_seconds: decision evaluation duration
//   - <ns>_invariant_violations_total: invariant violations by entity and invariant
//   - <ns>_guard_rejections_total: blocked transitions by entity and outcome
//   - <ns>_reloads_total: definition reloads by result
type Metrics struct {
	decisionsTotal      *prometheus.CounterVec
	decisionDuration    *prometheus.HistogramVec
	invariantViolations *prometheus.CounterVec
	guardRejections     *prometheus.CounterVec
	reloadsTotal        *prometheus.CounterVec
}

// New creates and registers the metric set with the provided registry.
func New(cfg *Config, registry *prometheus.Registry) *Metrics {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	m := &Metrics{
		decisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "decisions_total",
				Help:      "Total number of access decisions",
			},
			[]string{"entity", "operation", "outcome", "reason"},
		),

		decisionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "decision_duration_seconds",
				Help:      "Duration of access decision evaluation in seconds",
				// Decisions are in-memory tree walks (< 10ms)
				Buckets: prometheus.ExponentialBuckets(0.000001, 2, 15),
			},
			[]string{"entity", "operation"},
		),

		invariantViolations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "invariant_violations_total",
				Help:      "Total number of invariant violations",
			},
			[]string{"entity", "invariant"},
		),

		guardRejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "guard_rejections_total",
				Help:      "Total number of rejected state transitions",
			},
			[]string{"entity", "outcome"},
		),

		reloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "reloads_total",
				Help:      "Total number of definition reloads",
			},
			[]string{"result"},
		),
	}

	registry.MustRegister(
		m.decisionsTotal,
		m.decisionDuration,
		m.invariantViolations,
		m.guardRejections,
		m.reloadsTotal,
	)
	return m
}

// RecordDecision records one access decision.
func (m *Metrics) RecordDecision(entity, operation, outcome, reason string, duration time.Duration) {
	m.decisionsTotal.WithLabelValues(entity, operation, outcome, reason).Inc()
	m.decisionDuration.WithLabelValues(entity, operation).Observe(duration.Seconds())
}

// RecordInvariantViolation records one invariant violation.
func (m *Metrics) RecordInvariantViolation(entity, invariant string) {
	m.invariantViolations.WithLabelValues(entity, invariant).Inc()
}

// RecordGuardRejection records one blocked transition. Outcome is
// "invalid_transition" or "guard_failed".
func (m *Metrics) RecordGuardRejection(entity, outcome string) {
	m.guardRejections.WithLabelValues(entity, outcome).Inc()
}

// RecordReload records one definition reload. Result is "ok" or "error".
func (m *Metrics) RecordReload(result string) {
	m.reloadsTotal.WithLabelValues(result).Inc()
}
