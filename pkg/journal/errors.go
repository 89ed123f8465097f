package journal

import (
	"errors"
	"fmt"
)

// ErrRecorderClosed is returned when an entry is submitted after Close.
var ErrRecorderClosed = errors.New("journal recorder closed")

// StorageError represents an error from the storage backend.
type StorageError struct {
	Backend   string // "sqlite", "sqlite3" or "memory"
	Operation string // "store", "query", "delete", ...
	Cause     error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("journal storage error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageError creates a new StorageError.
func NewStorageError(backend, operation string, cause error) *StorageError {
	return &StorageError{Backend: backend, Operation: operation, Cause: cause}
}

// QueryError represents an invalid query.
type QueryError struct {
	Query *Query
	Cause error
}

// Error implements the error interface.
func (e *QueryError) Error() string {
	return fmt.Sprintf("journal query error: %v", e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *QueryError) Unwrap() error {
	return e.Cause
}

// NewQueryError creates a new QueryError.
func NewQueryError(q *Query, cause error) *QueryError {
	return &QueryError{Query: q, Cause: cause}
}

// RetentionError represents an error during retention pruning.
type RetentionError struct {
	RetentionDays int
	Cause         error
}

// Error implements the error interface.
func (e *RetentionError) Error() string {
	return fmt.Sprintf("journal retention error [retention_days=%d]: %v", e.RetentionDays, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *RetentionError) Unwrap() error {
	return e.Cause
}

// NewRetentionError creates a new RetentionError.
func NewRetentionError(retentionDays int, cause error) *RetentionError {
	return &RetentionError{RetentionDays: retentionDays, Cause: cause}
}

// ExportError represents an error during export.
type ExportError struct {
	Format     string
	EntryCount int
	Cause      error
}

// Error implements the error interface.
func (e *ExportError) Error() string {
	return fmt.Sprintf("journal export error [format=%s, entry_count=%d]: %v", e.Format, e.EntryCount, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *ExportError) Unwrap() error {
	return e.Cause
}

// NewExportError creates a new ExportError.
func NewExportError(format string, entryCount int, cause error) *ExportError {
	return &ExportError{Format: format, EntryCount: entryCount, Cause: cause}
}
