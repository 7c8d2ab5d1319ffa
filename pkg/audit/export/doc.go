// Package export writes audit records as JSON or CSV.
//
// JSON output is an array of records (a single object when exactly one record
// is exported, matching what retention archives contain). CSV output flattens
// each record to one row with an optional header.
package export
