package metrics

import (
	"cpathways/cprules/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// AuditMetrics tracks the decision audit trail.
//
// Metrics:
//   - cprules_audit_records_dropped_total: decisions the recorder could not queue
//   - cprules_audit_pruned_total: records removed by retention, by reason
type AuditMetrics struct {
	droppedTotal prometheus.Counter
	prunedTotal  *prometheus.CounterVec
}

// NewAuditMetrics creates and registers audit metrics with the provided registry.
func NewAuditMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *AuditMetrics {
	am := &AuditMetrics{
		droppedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "audit",
				Name:      "records_dropped_total",
				Help:      "Total number of decisions dropped by the audit recorder",
			},
		),

		prunedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "audit",
				Name:      "pruned_total",
				Help:      "Total number of audit records removed by retention",
			},
			[]string{"reason"},
		),
	}

	registry.MustRegister(am.droppedTotal, am.prunedTotal)

	return am
}

// RecordDropped records a dropped decision.
func (am *AuditMetrics) RecordDropped() {
	am.droppedTotal.Inc()
}

// RecordPruned records pruned records. reason is "age" or "count".
func (am *AuditMetrics) RecordPruned(reason string, count int64) {
	if count > 0 {
		am.prunedTotal.WithLabelValues(reason).Add(float64(count))
	}
}
