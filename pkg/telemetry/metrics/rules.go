package metrics

import (
	"time"

	"cpathways/cprules/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// RuleMetrics tracks rule chain evaluation.
//
// Metrics:
//   - cprules_rules_evaluations_total: decisions by action and verdict
//   - cprules_rules_evaluation_duration_seconds: chain evaluation duration
//   - cprules_rules_fallbacks_total: decisions answered by the fallback
//   - cprules_rules_faults_total: decision functions that failed
type RuleMetrics struct {
	evaluationsTotal   *prometheus.CounterVec
	evaluationDuration *prometheus.HistogramVec
	fallbacksTotal     *prometheus.CounterVec
	faultsTotal        *prometheus.CounterVec
}

// NewRuleMetrics creates and registers rule metrics with the provided registry.
func NewRuleMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *RuleMetrics {
	rm := &RuleMetrics{
		evaluationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "evaluations_total",
				Help:      "Total number of rule evaluations",
			},
			[]string{"action", "verdict"},
		),

		evaluationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "evaluation_duration_seconds",
				Help:      "Duration of rule chain evaluation in seconds",
				Buckets:   cfg.DurationBuckets,
			},
			[]string{"action"},
		),

		fallbacksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "fallbacks_total",
				Help:      "Total number of decisions answered by the fallback",
			},
			[]string{"action"},
		),

		faultsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "faults_total",
				Help:      "Total number of failed decision functions",
			},
			[]string{"action"},
		),
	}

	registry.MustRegister(
		rm.evaluationsTotal,
		rm.evaluationDuration,
		rm.fallbacksTotal,
		rm.faultsTotal,
	)

	return rm
}

// RecordEvaluation records one decision.
func (rm *RuleMetrics) RecordEvaluation(action, verdict string, duration time.Duration) {
	rm.evaluationsTotal.WithLabelValues(action, verdict).Inc()
	rm.evaluationDuration.WithLabelValues(action).Observe(duration.Seconds())
}

// RecordFallback records a fallback decision.
func (rm *RuleMetrics) RecordFallback(action string) {
	rm.fallbacksTotal.WithLabelValues(action).Inc()
}

// RecordFault records a failed decision function.
func (rm *RuleMetrics) RecordFault(action string) {
	rm.faultsTotal.WithLabelValues(action).Inc()
}
