package ratelimit

import (
	"context"
	"errors"
	"time"
)

// ErrStoreUnavailable wraps counter store failures returned by Allow.
var ErrStoreUnavailable = errors.New("rate limit store unavailable")

// Config contains the fixed window settings shared by every client key.
type Config struct {
	// Window is the fixed window size. Windows are aligned to the Unix
	// epoch, so every gateway instance agrees on boundaries.
	Window time.Duration

	// MaxRequests is the ceiling per key per window.
	MaxRequests int64
}

// Window is the counter state of one key in one fixed window.
type Window struct {
	// Count is the number of requests seen in the window, including the
	// one that produced this value.
	Count int64

	// Start is when the window began.
	Start time.Time

	// Reset is when the window ends and the count starts over.
	Reset time.Time
}

// Store atomically counts requests per key and window.
//
// Implementations must be safe for concurrent use from many goroutines and,
// for shared stores, from many gateway instances.
type Store interface {
	// Increment adds one to the counter of key for the window containing
	// now and returns the updated window.
	Increment(ctx context.Context, key string, window time.Duration, now time.Time) (Window, error)

	// Ping reports whether the store is reachable.
	Ping(ctx context.Context) error
}

// Decision contains the result of a rate limit check.
type Decision struct {
	// Allowed indicates if the request is permitted.
	Allowed bool

	// Degraded is set when the store failed and the request was admitted
	// without being counted.
	Degraded bool

	// Limit is the configured ceiling.
	Limit int64

	// Remaining is how many requests remain in the window.
	Remaining int64

	// Reset is when the current window ends.
	Reset time.Time

	// RetryAfter suggests how long to wait before retrying. Zero when
	// Allowed.
	RetryAfter time.Duration
}

// windowBounds returns the index, start and end of the fixed window of size
// w containing now.
func windowBounds(now time.Time, w time.Duration) (int64, time.Time, time.Time) {
	size := w.Milliseconds()
	if size <= 0 {
		size = 1
	}
	index := now.UnixMilli() / size
	start := time.UnixMilli(index * size)
	return index, start, start.Add(time.Duration(size) * time.Millisecond)
}
