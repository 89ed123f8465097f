package cli

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// OutputFormat represents the output format for command results.
type OutputFormat string

const (
	// FormatText is aligned plain text (default).
	FormatText OutputFormat = "text"

	// FormatJSON is indented JSON.
	FormatJSON OutputFormat = "json"

	// FormatCSV is CSV with a header row.
	FormatCSV OutputFormat = "csv"
)

// ParseFormat validates a --format flag value.
func ParseFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(s)); f {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON, FormatCSV:
		return f, nil
	default:
		return "", NewConfigError("--format", fmt.Sprintf("unsupported format %q (want text, json or csv)", s))
	}
}

// Table is tabular command output.
type Table struct {
	Headers []string
	Rows    [][]string
}

// AddRow appends a row. Missing cells are left empty.
func (t *Table) AddRow(cells ...string) {
	t.Rows = append(t.Rows, cells)
}

// records returns the rows as header-keyed maps.
func (t *Table) records() []map[string]string {
	out := make([]map[string]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		rec := make(map[string]string, len(t.Headers))
		for i, h := range t.Headers {
			if i < len(row) {
				rec[h] = row[i]
			} else {
				rec[h] = ""
			}
		}
		out = append(out, rec)
	}
	return out
}

// Formatter writes command output.
type Formatter interface {
	FormatTo(w io.Writer, data any) error
}

// TextFormatter aligns a Table in columns. Any other value is printed
// with %v.
type TextFormatter struct{}

// FormatTo writes data to w.
func (f *TextFormatter) FormatTo(w io.Writer, data any) error {
	t, ok := data.(*Table)
	if !ok {
		_, err := fmt.Fprintf(w, "%v\n", data)
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(upper(t.Headers), "\t"))
	for _, row := range t.Rows {
		cells := make([]string, len(row))
		for i, c := range row {
			if c == "" {
				c = "-"
			}
			cells[i] = c
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

// JSONFormatter writes indented JSON. A Table becomes an array of objects
// keyed by header.
type JSONFormatter struct {
	Indent bool
}

// FormatTo writes data to w.
func (f *JSONFormatter) FormatTo(w io.Writer, data any) error {
	if t, ok := data.(*Table); ok {
		data = t.records()
	}
	encoder := json.NewEncoder(w)
	if f.Indent {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(data)
}

// CSVFormatter writes a Table as CSV.
type CSVFormatter struct{}

// FormatTo writes data to w. Only *Table is supported.
func (f *CSVFormatter) FormatTo(w io.Writer, data any) error {
	t, ok := data.(*Table)
	if !ok {
		return fmt.Errorf("csv output requires tabular data, got %T", data)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(t.Headers); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return err
	}
	return cw.Error()
}

// NewFormatter creates a formatter for format.
func NewFormatter(format OutputFormat) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatCSV:
		return &CSVFormatter{}
	default:
		return &TextFormatter{}
	}
}

func upper(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToUpper(s)
	}
	return out
}
