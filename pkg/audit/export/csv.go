package export

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"cpathways/cprules/pkg/audit"
)

// CSVExporter exports audit records to CSV.
type CSVExporter struct {
	// IncludeHeader writes a header row first.
	IncludeHeader bool
}

// NewCSVExporter creates a new CSV exporter.
func NewCSVExporter(includeHeader bool) *CSVExporter {
	return &CSVExporter{IncludeHeader: includeHeader}
}

// Header returns the CSV column names.
func Header() []string {
	return []string{
		"id", "session_id",
		"action", "verdict", "connection_type", "permitted", "fallback",
		"shape_type", "source_type", "target_type", "hover_type", "connection_id", "context_hash",
		"evaluated_at", "recorded_at", "duration_us",
		"error",
	}
}

// Export writes records to w.
func (e *CSVExporter) Export(ctx context.Context, records []*audit.Record, w io.Writer) error {
	writer := csv.NewWriter(w)

	if e.IncludeHeader {
		if err := writer.Write(Header()); err != nil {
			return audit.NewExportError("csv", len(records), err)
		}
	}

	for _, record := range records {
		if err := ctx.Err(); err != nil {
			return audit.NewExportError("csv", len(records), err)
		}
		if err := writer.Write(recordToRow(record)); err != nil {
			return audit.NewExportError("csv", len(records), err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return audit.NewExportError("csv", len(records), err)
	}
	return nil
}

func recordToRow(record *audit.Record) []string {
	formatTime := func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.UTC().Format(time.RFC3339Nano)
	}

	return []string{
		record.ID,
		record.SessionID,
		record.Action,
		record.Verdict,
		record.ConnectionType,
		strconv.FormatBool(record.Permitted),
		strconv.FormatBool(record.Fallback),
		record.ShapeType,
		record.SourceType,
		record.TargetType,
		record.HoverType,
		record.ConnectionID,
		record.ContextHash,
		formatTime(record.EvaluatedAt),
		formatTime(record.RecordedAt),
		strconv.FormatInt(record.Duration.Microseconds(), 10),
		record.Error,
	}
}
