// Package metrics provides Prometheus metrics collection for cprules.
//
// # Metrics Categories
//
//   - Rule Metrics: evaluations by action and verdict, evaluation duration,
//     fallback decisions and faulting decision functions
//   - Audit Metrics: decisions dropped by the async recorder, pruned records
//   - HTTP Metrics: request count and latency by route
//   - Scenario Metrics: scenario suite results
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//
//	eng, _ := engine.New(chain, engineCfg, logger, engine.WithMetrics(collector))
//	rec.SetDropCounter(collector)
//
//	router.Handle("/metrics", collector.Handler())
//
// The collector owns a private registry so several collectors can coexist in
// tests without duplicate registration panics.
package metrics
