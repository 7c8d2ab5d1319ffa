package metrics

import (
	"cpathways/cprules/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// ScenarioMetrics tracks scenario suite runs.
type ScenarioMetrics struct {
	runsTotal     prometheus.Counter
	lastPassed    prometheus.Gauge
	lastFailed    prometheus.Gauge
	failuresTotal prometheus.Counter
}

// NewScenarioMetrics creates and registers scenario metrics with the provided registry.
func NewScenarioMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *ScenarioMetrics {
	sm := &ScenarioMetrics{
		runsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: "scenarios",
			Name:      "runs_total",
			Help:      "Total number of scenario suite runs",
		}),
		lastPassed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: "scenarios",
			Name:      "last_passed",
			Help:      "Scenarios passed in the most recent run",
		}),
		lastFailed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: "scenarios",
			Name:      "last_failed",
			Help:      "Scenarios failed in the most recent run",
		}),
		failuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: "scenarios",
			Name:      "failures_total",
			Help:      "Total number of failed scenarios across runs",
		}),
	}

	registry.MustRegister(sm.runsTotal, sm.lastPassed, sm.lastFailed, sm.failuresTotal)

	return sm
}

// RecordRun records one suite run.
func (sm *ScenarioMetrics) RecordRun(passed, failed int) {
	sm.runsTotal.Inc()
	sm.lastPassed.Set(float64(passed))
	sm.lastFailed.Set(float64(failed))
	sm.failuresTotal.Add(float64(failed))
}
