package storage

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema contains the SQL statements to create the journal schema.
// Times are stored as Unix nanoseconds so both drivers agree on the
// representation.
const Schema = `
CREATE TABLE IF NOT EXISTS journal (
    id TEXT PRIMARY KEY,
    kind TEXT NOT NULL,
    recorded_at INTEGER NOT NULL,

    -- Request
    request_id TEXT,
    method TEXT,
    path TEXT,
    client_key TEXT,
    remote_addr TEXT,
    subject TEXT,

    service TEXT,
    code TEXT,
    status INTEGER,
    reason TEXT,

    -- Circuit transition
    from_phase TEXT,
    to_phase TEXT,
    failure_count INTEGER,

    duration_ns INTEGER
);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_journal_recorded_at ON journal(recorded_at);
CREATE INDEX IF NOT EXISTS idx_journal_kind ON journal(kind);
CREATE INDEX IF NOT EXISTS idx_journal_service ON journal(service);
CREATE INDEX IF NOT EXISTS idx_journal_request_id ON journal(request_id);
`

// InsertSchemaVersion records the schema version.
const InsertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, ?)
ON CONFLICT(version) DO NOTHING;
`

// GetSchemaVersion retrieves the current schema version.
const GetSchemaVersion = `
SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;
`

const insertEntry = `
INSERT INTO journal (
    id, kind, recorded_at,
    request_id, method, path, client_key, remote_addr, subject,
    service, code, status, reason,
    from_phase, to_phase, failure_count,
    duration_ns
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const selectColumns = `
    id, kind, recorded_at,
    request_id, method, path, client_key, remote_addr, subject,
    service, code, status, reason,
    from_phase, to_phase, failure_count,
    duration_ns
`
