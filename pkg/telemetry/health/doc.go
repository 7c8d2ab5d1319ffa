// Package health provides liveness, readiness and version endpoints.
//
// Readiness aggregates named component checks. cprules registers two:
//
//   - rules: every action has at least one decision function on the chain
//   - audit: the audit storage answers a count query
//
// Usage:
//
//	checker := health.New(2 * time.Second)
//	checker.RegisterCheck("rules", health.RulesCheck(chain))
//	checker.RegisterCheck("audit", health.StorageCheck(store))
//
//	router.Get("/health", checker.LivenessHandler())
//	router.Get("/ready", checker.ReadinessHandler())
package health
