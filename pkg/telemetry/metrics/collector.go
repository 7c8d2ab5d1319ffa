package metrics

import (
	"time"

	"cpathways/cprules/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector owns every cprules metric and the registry they live in.
// It satisfies engine.MetricsRecorder and recorder.DropCounter.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	rules    *RuleMetrics
	audit    *AuditMetrics
	http     *HTTPMetrics
	scenario *ScenarioMetrics
}

// NewCollector creates a new metrics collector. If registry is nil a fresh
// registry is created.
//
// Example:
//
//	cfg := &config.MetricsConfig{
//		Enabled:   true,
//		Namespace: "cprules",
//		Subsystem: "rules",
//	}
//	collector := metrics.NewCollector(cfg, nil)
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = config.DefaultMetricsSubsystem
	}
	if len(cfg.DurationBuckets) == 0 {
		cfg.DurationBuckets = append([]float64(nil), config.DefaultDurationBuckets...)
	}

	return &Collector{
		config:   cfg,
		registry: registry,
		rules:    NewRuleMetrics(cfg, registry),
		audit:    NewAuditMetrics(cfg, registry),
		http:     NewHTTPMetrics(cfg, registry),
		scenario: NewScenarioMetrics(cfg, registry),
	}
}

// RecordEvaluation records a completed engine decision.
//
// Parameters:
//   - action: rule action name (e.g., "connection.create")
//   - verdict: verdict label ("allow", "deny", "defer", "qualified")
//   - duration: time spent walking the rule chain
func (c *Collector) RecordEvaluation(action, verdict string, duration time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.rules.RecordEvaluation(action, verdict, duration)
}

// RecordFallback records a decision answered by the fallback because every
// rule deferred.
func (c *Collector) RecordFallback(action string) {
	if !c.config.Enabled {
		return
	}
	c.rules.RecordFallback(action)
}

// RecordFault records a decision function that failed.
func (c *Collector) RecordFault(action string) {
	if !c.config.Enabled {
		return
	}
	c.rules.RecordFault(action)
}

// RecordAuditDropped records a decision the audit recorder could not queue.
func (c *Collector) RecordAuditDropped() {
	if !c.config.Enabled {
		return
	}
	c.audit.RecordDropped()
}

// RecordAuditPruned records records removed by retention.
func (c *Collector) RecordAuditPruned(reason string, count int64) {
	if !c.config.Enabled {
		return
	}
	c.audit.RecordPruned(reason, count)
}

// RecordHTTPRequest records a served HTTP request.
func (c *Collector) RecordHTTPRequest(route, method string, status int, duration time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.http.RecordRequest(route, method, status, duration)
}

// RecordScenarioRun records the outcome of a scenario suite run.
func (c *Collector) RecordScenarioRun(passed, failed int) {
	if !c.config.Enabled {
		return
	}
	c.scenario.RecordRun(passed, failed)
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
