package audit

import (
	"context"
	"io"
	"time"
)

// Record is the audit entry for a single authorization decision.
type Record struct {
	// Identity
	ID        string `json:"id"`         // UUID v4
	SessionID string `json:"session_id"` // Editing session, if supplied

	// Decision
	Action         string `json:"action"`          // Host action name
	Verdict        string `json:"verdict"`         // "allow", "deny", "defer", "qualified"
	ConnectionType string `json:"connection_type"` // Set for qualified verdicts
	Permitted      bool   `json:"permitted"`       // Final answer
	Fallback       bool   `json:"fallback"`        // Answer came from the fallback

	// Context summary
	ShapeType    string `json:"shape_type"`
	SourceType   string `json:"source_type"`
	TargetType   string `json:"target_type"`
	HoverType    string `json:"hover_type"`
	ConnectionID string `json:"connection_id"`
	ContextHash  string `json:"context_hash"` // SHA-256 of the context JSON

	// Timing
	EvaluatedAt time.Time     `json:"evaluated_at"`
	RecordedAt  time.Time     `json:"recorded_at"`
	Duration    time.Duration `json:"duration"`

	// Fault message, empty on success
	Error string `json:"error"`
}

// Query defines filter parameters for querying audit records.
type Query struct {
	// Time range over EvaluatedAt
	StartTime *time.Time `json:"start_time,omitempty"` // Inclusive
	EndTime   *time.Time `json:"end_time,omitempty"`   // Inclusive

	// Filters
	Action    string `json:"action,omitempty"`
	Verdict   string `json:"verdict,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	Permitted *bool  `json:"permitted,omitempty"`

	// Status is "success" or "error".
	Status string `json:"status,omitempty"`

	// IDs restricts the query to these record IDs. Empty means no restriction.
	IDs []string `json:"ids,omitempty"`

	// Pagination
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`

	// SortOrder is "asc" or "desc" over EvaluatedAt, ties broken by ID in
	// the same direction.
	SortOrder string `json:"sort_order,omitempty"`
}

// Storage defines the interface for audit storage backends.
// Implementations must be safe for concurrent use.
type Storage interface {
	// Store persists a record.
	Store(ctx context.Context, record *Record) error

	// Query retrieves records matching the query filters.
	// Returns an empty slice if no records match.
	Query(ctx context.Context, query *Query) ([]*Record, error)

	// Count returns the number of records matching the query filters.
	// Pagination fields are ignored.
	Count(ctx context.Context, query *Query) (int64, error)

	// Delete removes records matching the query filters and returns how many
	// were removed. Pagination fields are ignored.
	Delete(ctx context.Context, query *Query) (int64, error)

	// Close releases any resources held by the backend.
	Close() error
}

// Exporter writes audit records in some output format.
type Exporter interface {
	Export(ctx context.Context, records []*Record, w io.Writer) error
}
