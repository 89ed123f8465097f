package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mercator-hq/aegis/pkg/cli"
	"mercator-hq/aegis/pkg/config"
	"mercator-hq/aegis/pkg/journal"
	"mercator-hq/aegis/pkg/journal/storage"
)

const testConfigYAML = `
server:
  listen_address: "127.0.0.1:0"
auth:
  secret: "cli-test-secret-that-is-long-enough"
ratelimit:
  store: memory
  window: 1m
  max_requests: 10
routing:
  routes:
    - prefix: /api/v1/identity
      service: identity
      target: http://127.0.0.1:9001
      auth: mandatory
    - prefix: /api/v1/billing/admin
      service: billing
      target: http://127.0.0.1:9002
      auth: mandatory
      roles: [admin]
journal:
  driver: sqlite
  path: %s
telemetry:
  logging:
    level: error
`

// writeConfig writes a config file whose journal lives in the same temp
// directory and returns both paths.
func writeConfig(t *testing.T) (cfgPath, dbPath string) {
	t.Helper()
	dir := t.TempDir()
	dbPath = filepath.Join(dir, "journal.db")
	cfgPath = filepath.Join(dir, "aegis.yaml")
	content := strings.Replace(testConfigYAML, "%s", dbPath, 1)
	if err := os.WriteFile(cfgPath, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return cfgPath, dbPath
}

// execute runs the root command with args and returns combined output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cfgFile, logLevel = "aegis.yaml", ""
	runFlags.listenAddress, runFlags.dryRun = "", false
	validateFlags.checkSecret = false
	routesFlags.format = "text"
	journalFlags.kind, journalFlags.service, journalFlags.code, journalFlags.requestID = "", "", "", ""
	journalFlags.since, journalFlags.until, journalFlags.output = "", "", ""
	journalFlags.limit, journalFlags.offset = journal.DefaultQueryLimit, 0
	journalFlags.listFormat, journalFlags.exportFormat = "text", "json"

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func seedJournal(t *testing.T, dbPath string) {
	t.Helper()
	store, err := storage.New(&config.JournalConfig{Driver: "sqlite", Path: dbPath})
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	defer store.Close()

	now := time.Now()
	entries := []*journal.Entry{
		{ID: "1", Kind: journal.KindRejection, Time: now.Add(-3 * time.Hour), Service: "identity", Code: "missing_credentials", Status: 401, Reason: "Authorization header is required", RequestID: "req-1"},
		{ID: "2", Kind: journal.KindRejection, Time: now.Add(-10 * time.Minute), Service: "billing", Code: "circuit_open", Status: 503, Reason: "Service temporarily unavailable", RequestID: "req-2"},
		{ID: "3", Kind: journal.KindTransition, Time: now.Add(-5 * time.Minute), Service: "billing", FromPhase: "CLOSED", ToPhase: "OPEN", FailureCount: 6},
	}
	for _, e := range entries {
		if err := store.Store(context.Background(), e); err != nil {
			t.Fatalf("store entry: %v", err)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	for _, want := range []string{"Aegis " + Version, "Git Commit:", "Go Version:", "OS/Arch:"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestValidateCommand(t *testing.T) {
	cfgPath, _ := writeConfig(t)

	out, err := execute(t, "validate", "-c", cfgPath)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !strings.Contains(out, "Configuration valid") {
		t.Errorf("output = %q, want confirmation", out)
	}
	if !strings.Contains(out, "2 routes, 2 services") {
		t.Errorf("output = %q, want route summary", out)
	}
}

func TestValidateCommand_CheckSecret(t *testing.T) {
	cfgPath, _ := writeConfig(t)

	out, err := execute(t, "validate", "-c", cfgPath, "--check-secret")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !strings.Contains(out, "Secret loaded") {
		t.Errorf("output = %q, want secret confirmation", out)
	}
}

func TestValidateCommand_Invalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	bad := "ratelimit:\n  store: etcd\nrouting:\n  routes: []\n"
	if err := os.WriteFile(path, []byte(bad), 0o600); err != nil {
		t.Fatal(err)
	}

	_, err := execute(t, "validate", "-c", path)
	if err == nil {
		t.Fatal("validate succeeded on invalid config")
	}
	if code := cli.ExitCode(err); code != cli.ExitConfigError {
		t.Errorf("ExitCode() = %d, want %d", code, cli.ExitConfigError)
	}
}

func TestValidateCommand_MissingFile(t *testing.T) {
	_, err := execute(t, "validate", "-c", filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("validate succeeded with missing file")
	}
	if code := cli.ExitCode(err); code != cli.ExitConfigError {
		t.Errorf("ExitCode() = %d, want %d", code, cli.ExitConfigError)
	}
}

func TestValidateCommand_BadLogLevel(t *testing.T) {
	cfgPath, _ := writeConfig(t)

	_, err := execute(t, "validate", "-c", cfgPath, "--log-level", "loud")
	var ce *cli.ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("err = %v, want ConfigError", err)
	}
	if ce.Field != "--log-level" {
		t.Errorf("Field = %q, want --log-level", ce.Field)
	}
}

func TestRunCommand_DryRun(t *testing.T) {
	cfgPath, _ := writeConfig(t)

	out, err := execute(t, "run", "-c", cfgPath, "--dry-run", "--listen", "127.0.0.1:9999")
	if err != nil {
		t.Fatalf("run --dry-run: %v", err)
	}
	if !strings.Contains(out, "Configuration valid") {
		t.Errorf("output = %q", out)
	}
}

func TestRoutesCommand(t *testing.T) {
	cfgPath, _ := writeConfig(t)

	t.Run("text", func(t *testing.T) {
		out, err := execute(t, "routes", "-c", cfgPath)
		if err != nil {
			t.Fatalf("routes: %v", err)
		}
		lines := strings.Split(strings.TrimSpace(out), "\n")
		if len(lines) != 3 {
			t.Fatalf("got %d lines, want header and 2 rows:\n%s", len(lines), out)
		}
		if !strings.HasPrefix(lines[0], "PREFIX") {
			t.Errorf("header = %q", lines[0])
		}
		// Longest prefix first.
		if !strings.HasPrefix(lines[1], "/api/v1/billing/admin") {
			t.Errorf("first row = %q, want billing admin route", lines[1])
		}
	})

	t.Run("json", func(t *testing.T) {
		out, err := execute(t, "routes", "-c", cfgPath, "--format", "json")
		if err != nil {
			t.Fatalf("routes: %v", err)
		}
		var rows []map[string]string
		if err := json.Unmarshal([]byte(out), &rows); err != nil {
			t.Fatalf("decode: %v\n%s", err, out)
		}
		if len(rows) != 2 {
			t.Fatalf("got %d rows, want 2", len(rows))
		}
		if rows[0]["service"] != "billing" || rows[0]["roles"] != "admin" || rows[0]["auth"] != "mandatory" {
			t.Errorf("row[0] = %v", rows[0])
		}
		if rows[1]["target"] != "http://127.0.0.1:9001" {
			t.Errorf("row[1] target = %q", rows[1]["target"])
		}
	})

	t.Run("bad format", func(t *testing.T) {
		_, err := execute(t, "routes", "-c", cfgPath, "--format", "xml")
		if cli.ExitCode(err) != cli.ExitConfigError {
			t.Errorf("err = %v, want config error", err)
		}
	})
}

func TestJournalList(t *testing.T) {
	cfgPath, dbPath := writeConfig(t)
	seedJournal(t, dbPath)

	tests := []struct {
		name    string
		args    []string
		wantIDs []string
	}{
		{"all", nil, []string{"3", "2", "1"}},
		{"kind", []string{"--kind", "rejection"}, []string{"2", "1"}},
		{"service", []string{"--service", "billing"}, []string{"3", "2"}},
		{"code", []string{"--code", "missing_credentials"}, []string{"1"}},
		{"request id", []string{"--request-id", "req-2"}, []string{"2"}},
		{"since", []string{"--since", "1h"}, []string{"3", "2"}},
		{"limit", []string{"--limit", "1"}, []string{"3"}},
		{"offset", []string{"--offset", "2"}, []string{"1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"journal", "list", "-c", cfgPath, "--format", "json"}, tt.args...)
			out, err := execute(t, args...)
			if err != nil {
				t.Fatalf("journal list: %v", err)
			}
			var entries []journal.Entry
			if err := json.Unmarshal([]byte(out), &entries); err != nil {
				t.Fatalf("decode: %v\n%s", err, out)
			}
			var got []string
			for _, e := range entries {
				got = append(got, e.ID)
			}
			if strings.Join(got, ",") != strings.Join(tt.wantIDs, ",") {
				t.Errorf("ids = %v, want %v", got, tt.wantIDs)
			}
		})
	}
}

func TestJournalList_Text(t *testing.T) {
	cfgPath, dbPath := writeConfig(t)
	seedJournal(t, dbPath)

	out, err := execute(t, "journal", "list", "-c", cfgPath)
	if err != nil {
		t.Fatalf("journal list: %v", err)
	}
	for _, want := range []string{"KIND", "CLOSED -> OPEN (failures=6)", "Service temporarily unavailable", "401"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestJournalList_Empty(t *testing.T) {
	cfgPath, _ := writeConfig(t)

	out, err := execute(t, "journal", "list", "-c", cfgPath)
	if err != nil {
		t.Fatalf("journal list: %v", err)
	}
	if !strings.Contains(out, "No journal entries found") {
		t.Errorf("output = %q", out)
	}
}

func TestJournalList_InvalidFlags(t *testing.T) {
	cfgPath, _ := writeConfig(t)

	tests := []struct {
		name string
		args []string
	}{
		{"kind", []string{"--kind", "audit"}},
		{"since", []string{"--since", "yesterday"}},
		{"range", []string{"--since", "1h", "--until", "2h"}},
		{"format", []string{"--format", "yaml"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"journal", "list", "-c", cfgPath}, tt.args...)
			_, err := execute(t, args...)
			if cli.ExitCode(err) != cli.ExitConfigError {
				t.Errorf("err = %v, want config error", err)
			}
		})
	}
}

func TestJournalExport(t *testing.T) {
	cfgPath, dbPath := writeConfig(t)
	seedJournal(t, dbPath)
	outPath := filepath.Join(t.TempDir(), "rejections.csv")

	out, err := execute(t, "journal", "export", "-c", cfgPath, "--kind", "rejection", "--format", "csv", "--output", outPath)
	if err != nil {
		t.Fatalf("journal export: %v", err)
	}
	if !strings.Contains(out, "Exported 2 entries") {
		t.Errorf("output = %q", out)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want header and 2 rows:\n%s", len(lines), data)
	}
	if !strings.HasPrefix(lines[0], "id,") {
		t.Errorf("header = %q", lines[0])
	}
}

func TestJournalExport_UnsupportedFormat(t *testing.T) {
	cfgPath, _ := writeConfig(t)

	_, err := execute(t, "journal", "export", "-c", cfgPath, "--format", "text")
	if cli.ExitCode(err) != cli.ExitConfigError {
		t.Errorf("err = %v, want config error", err)
	}
}

func TestParseTimeFlag(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		value   string
		want    time.Time
		wantNil bool
		wantErr bool
	}{
		{value: "", wantNil: true},
		{value: "90m", want: now.Add(-90 * time.Minute)},
		{value: "2026-02-28T00:00:00Z", want: time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)},
		{value: "-1h", wantErr: true},
		{value: "last week", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			got, err := parseTimeFlag("--since", tt.value, now)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if tt.wantNil {
				if got != nil {
					t.Errorf("got %v, want nil", got)
				}
				return
			}
			if got == nil || !got.Equal(tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}
