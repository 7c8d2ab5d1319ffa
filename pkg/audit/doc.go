// Package audit defines the audit trail of authorization decisions.
//
// Every decision produced by the engine can be captured as a Record: which
// action was requested, which element types were involved, what the rule
// chain answered and whether the fallback or a fault decided the outcome.
//
// Subpackages:
//   - storage: memory, SQLite and Redis backends implementing Storage
//   - recorder: asynchronous writer fed by the engine
//   - retention: age and count based pruning on a cron schedule
//   - export: JSON and CSV exporters
package audit
