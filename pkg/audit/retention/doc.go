// Package retention prunes old audit records.
//
// A Pruner deletes records older than RetentionDays and, when MaxRecords is
// set, the oldest records beyond that count. Records can be archived to a JSON
// file before deletion. A Scheduler runs the pruner on a standard five-field
// cron expression such as "0 3 * * *".
package retention
