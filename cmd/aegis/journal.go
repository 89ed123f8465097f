package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/aegis/pkg/cli"
	"mercator-hq/aegis/pkg/journal"
	"mercator-hq/aegis/pkg/journal/export"
	"mercator-hq/aegis/pkg/journal/storage"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Inspect the decision journal",
	Long: `Query and export the decision journal.

The journal records every request Aegis rejected, every circuit state change
and, unless disabled, every failed downstream call.`,
}

var journalFlags struct {
	kind      string
	service   string
	code      string
	requestID string
	since     string
	until     string
	limit     int
	offset    int
	output    string

	listFormat   string
	exportFormat string
}

var journalListCmd = &cobra.Command{
	Use:   "list",
	Short: "List journal entries, newest first",
	Long: `List journal entries matching the given filters, newest first.

--since and --until accept RFC 3339 timestamps or a duration relative to now
(for example 15m, 24h).

Examples:
  aegis journal list --kind rejection --since 1h
  aegis journal list --service billing --code circuit_open --format json
  aegis journal list --request-id 7f1c2e4a-9b0d-4c1e-8f3a-2d6b5e7c9a01`,
	RunE: listJournal,
}

var journalExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export journal entries as JSON or CSV",
	Long: `Export journal entries matching the given filters to a file or stdout.

Examples:
  aegis journal export --format csv --since 24h --output rejections.csv
  aegis journal export --kind transition`,
	RunE: exportJournal,
}

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalListCmd)
	journalCmd.AddCommand(journalExportCmd)

	for _, c := range []*cobra.Command{journalListCmd, journalExportCmd} {
		c.Flags().StringVar(&journalFlags.kind, "kind", "", "entry kind: rejection, transition, downstream_failure")
		c.Flags().StringVar(&journalFlags.service, "service", "", "filter by service")
		c.Flags().StringVar(&journalFlags.code, "code", "", "filter by error code")
		c.Flags().StringVar(&journalFlags.requestID, "request-id", "", "filter by request ID")
		c.Flags().StringVar(&journalFlags.since, "since", "", "only entries at or after this time")
		c.Flags().StringVar(&journalFlags.until, "until", "", "only entries at or before this time")
		c.Flags().IntVar(&journalFlags.limit, "limit", journal.DefaultQueryLimit, "maximum number of entries")
		c.Flags().IntVar(&journalFlags.offset, "offset", 0, "number of entries to skip")
	}
	journalListCmd.Flags().StringVarP(&journalFlags.listFormat, "format", "f", "text", "output format: text, json, csv")
	journalExportCmd.Flags().StringVarP(&journalFlags.exportFormat, "format", "f", "json", "export format: json, csv")
	journalExportCmd.Flags().StringVarP(&journalFlags.output, "output", "o", "", "output file (default stdout)")
}

func listJournal(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(journalFlags.listFormat)
	if err != nil {
		return err
	}

	entries, err := queryJournal(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if format != cli.FormatText {
		exp, err := export.New(string(format), true)
		if err != nil {
			return err
		}
		return exp.Export(cmd.Context(), entries, out)
	}

	if len(entries) == 0 {
		fmt.Fprintln(out, "No journal entries found")
		return nil
	}

	table := &cli.Table{Headers: []string{"time", "kind", "service", "code", "status", "detail", "request_id"}}
	for _, e := range entries {
		table.AddRow(
			e.Time.Format(time.RFC3339),
			string(e.Kind),
			e.Service,
			e.Code,
			statusCell(e.Status),
			entryDetail(e),
			e.RequestID,
		)
	}
	return cli.NewFormatter(format).FormatTo(out, table)
}

func exportJournal(cmd *cobra.Command, args []string) error {
	exp, err := export.New(journalFlags.exportFormat, true)
	if err != nil {
		return cli.NewConfigError("--format", err.Error())
	}

	entries, err := queryJournal(cmd.Context())
	if err != nil {
		return err
	}

	var w io.Writer = cmd.OutOrStdout()
	if journalFlags.output != "" {
		f, err := os.Create(journalFlags.output)
		if err != nil {
			return cli.NewCommandError("journal export", err)
		}
		defer f.Close()
		w = f
	}

	if err := exp.Export(cmd.Context(), entries, w); err != nil {
		return cli.NewCommandError("journal export", err)
	}
	if journalFlags.output != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d entries to %s\n", len(entries), journalFlags.output)
	}
	return nil
}

// queryJournal opens the configured journal storage and runs the query
// described by the flags.
func queryJournal(ctx context.Context) ([]*journal.Entry, error) {
	q, err := buildQuery(time.Now())
	if err != nil {
		return nil, err
	}

	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	store, err := storage.New(&cfg.Journal)
	if err != nil {
		return nil, cli.NewCommandError("journal", err)
	}
	defer store.Close()

	entries, err := store.Query(ctx, q)
	if err != nil {
		return nil, cli.NewCommandError("journal", err)
	}
	return entries, nil
}

func buildQuery(now time.Time) (*journal.Query, error) {
	q := &journal.Query{
		Service:   journalFlags.service,
		Code:      journalFlags.code,
		RequestID: journalFlags.requestID,
		Limit:     journalFlags.limit,
		Offset:    journalFlags.offset,
	}

	if journalFlags.kind != "" {
		kind, err := journal.ParseKind(journalFlags.kind)
		if err != nil {
			return nil, cli.NewConfigError("--kind", err.Error())
		}
		q.Kind = kind
	}

	var err error
	if q.Since, err = parseTimeFlag("--since", journalFlags.since, now); err != nil {
		return nil, err
	}
	if q.Until, err = parseTimeFlag("--until", journalFlags.until, now); err != nil {
		return nil, err
	}

	if err := q.Validate(); err != nil {
		return nil, cli.NewConfigError("query", err.Error())
	}
	return q, nil
}

// parseTimeFlag accepts an RFC 3339 timestamp or a duration before now.
func parseTimeFlag(name, value string, now time.Time) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	if d, err := time.ParseDuration(value); err == nil {
		if d < 0 {
			return nil, cli.NewConfigError(name, "duration must not be negative")
		}
		t := now.Add(-d)
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, cli.NewConfigError(name, fmt.Sprintf("%q is neither a duration nor an RFC 3339 time", value))
	}
	return &t, nil
}

func statusCell(status int) string {
	if status == 0 {
		return ""
	}
	return strconv.Itoa(status)
}

func entryDetail(e *journal.Entry) string {
	switch e.Kind {
	case journal.KindTransition:
		return fmt.Sprintf("%s -> %s (failures=%d)", e.FromPhase, e.ToPhase, e.FailureCount)
	case journal.KindDownstreamFailure:
		if e.Reason != "" {
			return fmt.Sprintf("%s after %s", e.Reason, e.Duration)
		}
		return fmt.Sprintf("after %s", e.Duration)
	default:
		return e.Reason
	}
}
