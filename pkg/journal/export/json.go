package export

import (
	"context"
	"encoding/json"
	"io"

	"mercator-hq/aegis/pkg/journal"
)

// JSONExporter writes entries as a JSON array.
type JSONExporter struct {
	Pretty bool
}

// NewJSONExporter creates a JSON exporter.
func NewJSONExporter(pretty bool) *JSONExporter {
	return &JSONExporter{Pretty: pretty}
}

// Export writes entries to w. An empty slice produces "[]".
func (e *JSONExporter) Export(ctx context.Context, entries []*journal.Entry, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return journal.NewExportError("json", len(entries), err)
	}
	// Encode nil as an empty array, not null
	if entries == nil {
		entries = []*journal.Entry{}
	}

	enc := json.NewEncoder(w)
	if e.Pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(entries); err != nil {
		return journal.NewExportError("json", len(entries), err)
	}
	return nil
}
