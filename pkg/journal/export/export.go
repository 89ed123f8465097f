package export

import (
	"fmt"

	"mercator-hq/aegis/pkg/journal"
)

// Supported format names.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// New returns the exporter for format.
func New(format string, pretty bool) (journal.Exporter, error) {
	switch format {
	case FormatJSON:
		return NewJSONExporter(pretty), nil
	case FormatCSV:
		return NewCSVExporter(), nil
	default:
		return nil, fmt.Errorf("unsupported export format %q (want json or csv)", format)
	}
}
