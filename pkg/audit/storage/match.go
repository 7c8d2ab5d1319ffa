package storage

import (
	"slices"
	"sort"

	"cpathways/cprules/pkg/audit"
)

// matchesQuery reports whether record passes every filter of query.
func matchesQuery(record *audit.Record, query *audit.Query) bool {
	if query == nil {
		return true
	}

	if query.StartTime != nil && record.EvaluatedAt.Before(*query.StartTime) {
		return false
	}
	if query.EndTime != nil && record.EvaluatedAt.After(*query.EndTime) {
		return false
	}

	if query.Action != "" && record.Action != query.Action {
		return false
	}
	if query.Verdict != "" && record.Verdict != query.Verdict {
		return false
	}
	if query.SessionID != "" && record.SessionID != query.SessionID {
		return false
	}
	if query.Permitted != nil && record.Permitted != *query.Permitted {
		return false
	}

	if len(query.IDs) > 0 && !slices.Contains(query.IDs, record.ID) {
		return false
	}

	switch query.Status {
	case "success":
		if record.Error != "" {
			return false
		}
	case "error":
		if record.Error == "" {
			return false
		}
	}

	return true
}

// sortRecords orders records by evaluation time then ID, newest first unless
// order is "asc". The order is total, so offset pages never overlap.
func sortRecords(records []*audit.Record, order string) {
	asc := order == "asc"
	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if !a.EvaluatedAt.Equal(b.EvaluatedAt) {
			if asc {
				return a.EvaluatedAt.Before(b.EvaluatedAt)
			}
			return a.EvaluatedAt.After(b.EvaluatedAt)
		}
		if asc {
			return a.ID < b.ID
		}
		return a.ID > b.ID
	})
}

// paginate applies the query's offset and limit to sorted records.
func paginate(records []*audit.Record, query *audit.Query) []*audit.Record {
	if query.Offset >= len(records) {
		return []*audit.Record{}
	}
	records = records[query.Offset:]
	if query.Limit > 0 && query.Limit < len(records) {
		records = records[:query.Limit]
	}
	return records
}
