package journal

import (
	"context"
	"fmt"
	"io"
	"time"
)

// Kind classifies a journal entry.
type Kind string

const (
	// KindRejection is a request the gateway answered itself: 401, 403,
	// 404, 429 or 503 circuit open.
	KindRejection Kind = "rejection"

	// KindTransition is a circuit breaker phase change.
	KindTransition Kind = "transition"

	// KindDownstreamFailure is a forwarded request that counted as a
	// failure: a transport error or a 5xx response.
	KindDownstreamFailure Kind = "downstream_failure"
)

// ParseKind converts a string into a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindRejection, KindTransition, KindDownstreamFailure:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("unknown journal kind %q", s)
	}
}

// Entry is one decision recorded by the gateway. Fields that do not apply
// to a kind are left empty.
type Entry struct {
	ID   string    `json:"id"`
	Kind Kind      `json:"kind"`
	Time time.Time `json:"time"`

	// Request fields, empty for transitions.
	RequestID  string `json:"request_id,omitempty"`
	Method     string `json:"method,omitempty"`
	Path       string `json:"path,omitempty"`
	ClientKey  string `json:"client_key,omitempty"`
	RemoteAddr string `json:"remote_addr,omitempty"`
	Subject    string `json:"subject,omitempty"`

	// Service is the downstream service, empty for rejections before
	// routing.
	Service string `json:"service,omitempty"`

	// Code is the rejection code or the outcome label of a failure.
	Code   string `json:"code,omitempty"`
	Status int    `json:"status,omitempty"`
	Reason string `json:"reason,omitempty"`

	// Transition fields.
	FromPhase    string `json:"from_phase,omitempty"`
	ToPhase      string `json:"to_phase,omitempty"`
	FailureCount int    `json:"failure_count,omitempty"`

	// Duration is the downstream time of a failure.
	Duration time.Duration `json:"duration_ns,omitempty"`
}

// MaxQueryLimit caps the number of entries a single query returns.
const MaxQueryLimit = 10000

// DefaultQueryLimit is used when Query.Limit is zero.
const DefaultQueryLimit = 100

// Query defines filter parameters for reading entries. Results are ordered
// newest first.
type Query struct {
	Since     *time.Time `json:"since,omitempty"`
	Until     *time.Time `json:"until,omitempty"`
	Kind      Kind       `json:"kind,omitempty"`
	Service   string     `json:"service,omitempty"`
	Code      string     `json:"code,omitempty"`
	RequestID string     `json:"request_id,omitempty"`

	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// Validate checks the query for impossible combinations.
func (q *Query) Validate() error {
	if q.Since != nil && q.Until != nil && q.Since.After(*q.Until) {
		return NewQueryError(q, fmt.Errorf("since %s is after until %s", q.Since.Format(time.RFC3339), q.Until.Format(time.RFC3339)))
	}
	if q.Kind != "" {
		if _, err := ParseKind(string(q.Kind)); err != nil {
			return NewQueryError(q, err)
		}
	}
	if q.Limit < 0 || q.Limit > MaxQueryLimit {
		return NewQueryError(q, fmt.Errorf("limit must be between 0 and %d", MaxQueryLimit))
	}
	if q.Offset < 0 {
		return NewQueryError(q, fmt.Errorf("offset must be non-negative"))
	}
	return nil
}

// EffectiveLimit returns the limit to apply.
func (q *Query) EffectiveLimit() int {
	if q.Limit == 0 {
		return DefaultQueryLimit
	}
	return q.Limit
}

// Matches reports whether e satisfies the filters of q, ignoring
// pagination.
func (q *Query) Matches(e *Entry) bool {
	switch {
	case q.Since != nil && e.Time.Before(*q.Since):
		return false
	case q.Until != nil && e.Time.After(*q.Until):
		return false
	case q.Kind != "" && e.Kind != q.Kind:
		return false
	case q.Service != "" && e.Service != q.Service:
		return false
	case q.Code != "" && e.Code != q.Code:
		return false
	case q.RequestID != "" && e.RequestID != q.RequestID:
		return false
	}
	return true
}

// Storage defines the interface for journal storage backends.
// Implementations must be safe for concurrent use.
type Storage interface {
	// Store persists an entry.
	Store(ctx context.Context, entry *Entry) error

	// Query returns entries matching q, newest first.
	Query(ctx context.Context, q *Query) ([]*Entry, error)

	// Count returns the number of entries matching q, ignoring pagination.
	Count(ctx context.Context, q *Query) (int64, error)

	// DeleteBefore removes entries older than cutoff and returns how many
	// were deleted.
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// Ping reports whether the backend is usable.
	Ping(ctx context.Context) error

	// Close releases any resources held by the backend.
	Close() error
}

// Exporter writes entries in a specific format.
type Exporter interface {
	Export(ctx context.Context, entries []*Entry, w io.Writer) error
}
