package export

import (
	"context"
	"encoding/json"
	"io"

	"cpathways/cprules/pkg/audit"
)

// JSONExporter exports audit records to JSON.
type JSONExporter struct {
	// Pretty enables indentation.
	Pretty bool
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(pretty bool) *JSONExporter {
	return &JSONExporter{Pretty: pretty}
}

// Export writes records to w. No records produce "[]".
func (e *JSONExporter) Export(ctx context.Context, records []*audit.Record, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return audit.NewExportError("json", len(records), err)
	}

	if len(records) == 0 {
		_, err := w.Write([]byte("[]"))
		return err
	}

	var v interface{} = records
	if len(records) == 1 {
		v = records[0]
	}

	var data []byte
	var err error
	if e.Pretty {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return audit.NewExportError("json", len(records), err)
	}

	if _, err := w.Write(data); err != nil {
		return audit.NewExportError("json", len(records), err)
	}
	return nil
}
