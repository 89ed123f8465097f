package export

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"mercator-hq/aegis/pkg/journal"
)

// csvHeader lists the exported columns in order.
var csvHeader = []string{
	"id", "kind", "time",
	"request_id", "method", "path", "client_key", "remote_addr", "subject",
	"service", "code", "status", "reason",
	"from_phase", "to_phase", "failure_count",
	"duration_ms",
}

// CSVExporter writes entries as CSV with a header row.
type CSVExporter struct{}

// NewCSVExporter creates a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Export writes entries to w.
func (e *CSVExporter) Export(ctx context.Context, entries []*journal.Entry, w io.Writer) error {
	cw := csv.NewWriter(w)

	// Write header
	if err := cw.Write(csvHeader); err != nil {
		return journal.NewExportError("csv", len(entries), err)
	}

	// Write rows, stopping early on cancellation
	for i, entry := range entries {
		if err := ctx.Err(); err != nil {
			return journal.NewExportError("csv", i, err)
		}
		if err := cw.Write(row(entry)); err != nil {
			return journal.NewExportError("csv", i, err)
		}
	}

	// Flush and surface buffered write errors
	cw.Flush()
	if err := cw.Error(); err != nil {
		return journal.NewExportError("csv", len(entries), err)
	}
	return nil
}

func row(e *journal.Entry) []string {
	return []string{
		e.ID,
		string(e.Kind),
		e.Time.UTC().Format(time.RFC3339Nano),
		e.RequestID,
		e.Method,
		e.Path,
		e.ClientKey,
		e.RemoteAddr,
		e.Subject,
		e.Service,
		e.Code,
		optionalInt(e.Status),
		e.Reason,
		e.FromPhase,
		e.ToPhase,
		optionalInt(e.FailureCount),
		optionalInt(int(e.Duration.Milliseconds())),
	}
}

// optionalInt leaves zero values blank so they read as "not set".
func optionalInt(v int) string {
	if v == 0 {
		return ""
	}
	return strconv.Itoa(v)
}
