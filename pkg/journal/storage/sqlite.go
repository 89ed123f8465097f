package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"mercator-hq/aegis/pkg/journal"
)

const (
	// DriverSQLite is the pure Go driver from modernc.org/sqlite.
	DriverSQLite = "sqlite"

	// DriverSQLite3 is the cgo driver from github.com/mattn/go-sqlite3.
	DriverSQLite3 = "sqlite3"
)

// SQLiteConfig contains configuration for the SQLite storage backend.
type SQLiteConfig struct {
	// Driver is the database/sql driver name: "sqlite" or "sqlite3".
	// Default: "sqlite"
	Driver string

	// Path is the database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections.
	// Default: 4
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 2
	MaxIdleConns int

	// WALMode enables Write-Ahead Logging.
	// Default: true
	WALMode bool

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Driver:       DriverSQLite,
		Path:         "data/journal.db",
		MaxOpenConns: 4,
		MaxIdleConns: 2,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStorage implements journal.Storage on SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteStorage opens the database and creates the schema if needed.
func NewSQLiteStorage(config *SQLiteConfig) (*SQLiteStorage, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}
	if config.Driver == "" {
		config.Driver = DriverSQLite
	}
	if config.Driver != DriverSQLite && config.Driver != DriverSQLite3 {
		return nil, journal.NewStorageError(config.Driver, "open", fmt.Errorf("unsupported driver %q", config.Driver))
	}

	logger := slog.Default().With("component", "journal.storage.sqlite")

	// Open database connection
	db, err := sql.Open(config.Driver, config.Path)
	if err != nil {
		return nil, journal.NewStorageError(config.Driver, "open", err)
	}

	// Configure connection pool
	if config.MaxOpenConns > 0 {
		db.SetMaxOpenConns(config.MaxOpenConns)
	}
	if config.MaxIdleConns > 0 {
		db.SetMaxIdleConns(config.MaxIdleConns)
	}

	s := &SQLiteStorage{
		db:     db,
		config: config,
		logger: logger,
	}

	// Initialize schema
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite journal initialized",
		"driver", config.Driver,
		"path", config.Path,
		"wal_mode", config.WALMode,
	)

	return s, nil
}

func (s *SQLiteStorage) initialize() error {
	backend := s.config.Driver

	if s.config.WALMode {
		// journal_mode returns a row; QueryRow keeps both drivers happy.
		var mode string
		if err := s.db.QueryRow("PRAGMA journal_mode=WAL;").Scan(&mode); err != nil {
			return journal.NewStorageError(backend, "enable_wal", err)
		}
		s.logger.Debug("journal mode set", "mode", mode)
	}

	// Set busy timeout
	if s.config.BusyTimeout > 0 {
		if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", s.config.BusyTimeout.Milliseconds())); err != nil {
			return journal.NewStorageError(backend, "set_busy_timeout", err)
		}
	}

	// Create tables and indexes
	if _, err := s.db.Exec(Schema); err != nil {
		return journal.NewStorageError(backend, "create_schema", err)
	}

	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion, time.Now().UnixNano()); err != nil {
		return journal.NewStorageError(backend, "insert_schema_version", err)
	}

	// Verify schema version
	var version int
	err := s.db.QueryRow(GetSchemaVersion).Scan(&version)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return journal.NewStorageError(backend, "get_schema_version", err)
	}
	if version != SchemaVersion {
		return journal.NewStorageError(backend, "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}

	return nil
}

// Store persists an entry.
func (s *SQLiteStorage) Store(ctx context.Context, e *journal.Entry) error {
	_, err := s.db.ExecContext(ctx, insertEntry,
		e.ID, string(e.Kind), e.Time.UnixNano(),
		e.RequestID, e.Method, e.Path, e.ClientKey, e.RemoteAddr, e.Subject,
		e.Service, e.Code, e.Status, e.Reason,
		e.FromPhase, e.ToPhase, e.FailureCount,
		int64(e.Duration),
	)
	if err != nil {
		return journal.NewStorageError(s.config.Driver, "store", err)
	}
	return nil
}

// Query returns entries matching q, newest first.
func (s *SQLiteStorage) Query(ctx context.Context, q *journal.Query) ([]*journal.Entry, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	// Build query with filters
	where, args := buildWhereClause(q)
	stmt := "SELECT " + selectColumns + " FROM journal" + where +
		" ORDER BY recorded_at DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, q.EffectiveLimit(), q.Offset)

	// Execute query
	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, journal.NewStorageError(s.config.Driver, "query", err)
	}
	defer rows.Close()

	// Scan results
	var entries []*journal.Entry
	for rows.Next() {
		e, err := scanRow(rows)
		if err != nil {
			return nil, journal.NewStorageError(s.config.Driver, "scan", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, journal.NewStorageError(s.config.Driver, "query", err)
	}

	return entries, nil
}

// Count returns the number of entries matching q.
func (s *SQLiteStorage) Count(ctx context.Context, q *journal.Query) (int64, error) {
	if err := q.Validate(); err != nil {
		return 0, err
	}

	where, args := buildWhereClause(q)
	var count int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM journal"+where, args...).Scan(&count); err != nil {
		return 0, journal.NewStorageError(s.config.Driver, "count", err)
	}
	return count, nil
}

// DeleteBefore removes entries recorded before cutoff.
func (s *SQLiteStorage) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM journal WHERE recorded_at < ?", cutoff.UnixNano())
	if err != nil {
		return 0, journal.NewStorageError(s.config.Driver, "delete", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, journal.NewStorageError(s.config.Driver, "delete", err)
	}
	return deleted, nil
}

// Ping checks the database connection.
func (s *SQLiteStorage) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return journal.NewStorageError(s.config.Driver, "ping", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	if err := s.db.Close(); err != nil {
		return journal.NewStorageError(s.config.Driver, "close", err)
	}
	s.logger.Info("SQLite journal closed")
	return nil
}

// buildWhereClause builds a WHERE clause from the query filters.
func buildWhereClause(q *journal.Query) (string, []any) {
	var (
		conditions []string
		args       []any
	)

	if q.Since != nil {
		conditions = append(conditions, "recorded_at >= ?")
		args = append(args, q.Since.UnixNano())
	}
	if q.Until != nil {
		conditions = append(conditions, "recorded_at <= ?")
		args = append(args, q.Until.UnixNano())
	}
	if q.Kind != "" {
		conditions = append(conditions, "kind = ?")
		args = append(args, string(q.Kind))
	}
	if q.Service != "" {
		conditions = append(conditions, "service = ?")
		args = append(args, q.Service)
	}
	if q.Code != "" {
		conditions = append(conditions, "code = ?")
		args = append(args, q.Code)
	}
	if q.RequestID != "" {
		conditions = append(conditions, "request_id = ?")
		args = append(args, q.RequestID)
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func scanRow(rows *sql.Rows) (*journal.Entry, error) {
	var (
		e                                  journal.Entry
		kind                               string
		recordedAt, durationNS             int64
		requestID, method, path, clientKey sql.NullString
		remoteAddr, subject, service, code sql.NullString
		reason, fromPhase, toPhase         sql.NullString
		status, failureCount               sql.NullInt64
	)

	err := rows.Scan(
		&e.ID, &kind, &recordedAt,
		&requestID, &method, &path, &clientKey, &remoteAddr, &subject,
		&service, &code, &status, &reason,
		&fromPhase, &toPhase, &failureCount,
		&durationNS,
	)
	if err != nil {
		return nil, err
	}

	// Optional columns are NULL for entry kinds that do not set them
	e.Kind = journal.Kind(kind)
	e.Time = time.Unix(0, recordedAt).UTC()
	e.RequestID = requestID.String
	e.Method = method.String
	e.Path = path.String
	e.ClientKey = clientKey.String
	e.RemoteAddr = remoteAddr.String
	e.Subject = subject.String
	e.Service = service.String
	e.Code = code.String
	e.Status = int(status.Int64)
	e.Reason = reason.String
	e.FromPhase = fromPhase.String
	e.ToPhase = toPhase.String
	e.FailureCount = int(failureCount.Int64)
	e.Duration = time.Duration(durationNS)

	return &e, nil
}
