package audit

import "fmt"

const (
	// DefaultLimit is the number of records returned when a query sets no limit.
	DefaultLimit = 100

	// MaxLimit is the largest limit a query may request.
	MaxLimit = 10000
)

var validStatuses = map[string]bool{
	"success": true,
	"error":   true,
}

var validVerdicts = map[string]bool{
	"allow":     true,
	"deny":      true,
	"defer":     true,
	"qualified": true,
}

// ValidateQuery checks query parameters.
func ValidateQuery(q *Query) error {
	if q.Limit < 0 {
		return NewQueryError(q, fmt.Errorf("limit must be >= 0, got %d", q.Limit))
	}
	if q.Limit > MaxLimit {
		return NewQueryError(q, fmt.Errorf("limit must be <= %d, got %d", MaxLimit, q.Limit))
	}
	if q.Offset < 0 {
		return NewQueryError(q, fmt.Errorf("offset must be >= 0, got %d", q.Offset))
	}

	switch q.SortOrder {
	case "", "asc", "desc":
	default:
		return NewQueryError(q, fmt.Errorf("invalid sort order: %s (must be 'asc' or 'desc')", q.SortOrder))
	}

	if q.StartTime != nil && q.EndTime != nil && q.StartTime.After(*q.EndTime) {
		return NewQueryError(q, fmt.Errorf("start_time must be before end_time"))
	}

	if q.Status != "" && !validStatuses[q.Status] {
		return NewQueryError(q, fmt.Errorf("invalid status: %s (must be 'success' or 'error')", q.Status))
	}
	if q.Verdict != "" && !validVerdicts[q.Verdict] {
		return NewQueryError(q, fmt.Errorf("invalid verdict: %s", q.Verdict))
	}

	return nil
}

// ApplyQueryDefaults fills in the default limit and sort order.
func ApplyQueryDefaults(q *Query) {
	if q.Limit == 0 {
		q.Limit = DefaultLimit
	}
	if q.SortOrder == "" {
		q.SortOrder = "desc"
	}
}
