package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"
)

// Limiter enforces a fixed window request ceiling per client key.
//
// Windows are wall-clock aligned rather than sliding, so a client may send
// up to twice the ceiling across a window boundary. This is an accepted
// approximation.
//
// When the store fails the request is admitted (fail open) and the failure
// is logged at most once every ten seconds.
type Limiter struct {
	store  Store
	config Config
	now    func() time.Time
	logger *slog.Logger
	logErr *rate.Sometimes
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

// WithLogger sets the logger used for store failures.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Limiter) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLimiter creates a limiter over store.
//
// Example:
//
//	limiter := ratelimit.NewLimiter(ratelimit.NewMemoryStore(), ratelimit.Config{
//	    Window:      15 * time.Minute,
//	    MaxRequests: 100,
//	})
func NewLimiter(store Store, config Config, opts ...Option) *Limiter {
	l := &Limiter{
		store:  store,
		config: config,
		now:    time.Now,
		logger: slog.Default(),
		logErr: &rate.Sometimes{First: 1, Interval: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Config returns the limiter settings.
func (l *Limiter) Config() Config {
	return l.config
}

// Allow counts one request for key and reports whether it is within the
// ceiling. The returned Decision is always usable. A non-nil error wraps
// ErrStoreUnavailable and comes with an allowed, degraded Decision.
func (l *Limiter) Allow(ctx context.Context, key string) (Decision, error) {
	now := l.now()

	win, err := l.store.Increment(ctx, key, l.config.Window, now)
	if err != nil {
		l.logErr.Do(func() {
			l.logger.WarnContext(ctx, "rate limit store unavailable, admitting requests",
				"error", err,
			)
		})
		_, _, reset := windowBounds(now, l.config.Window)
		return Decision{
			Allowed:   true,
			Degraded:  true,
			Limit:     l.config.MaxRequests,
			Remaining: l.config.MaxRequests,
			Reset:     reset,
		}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	d := Decision{
		Allowed: win.Count <= l.config.MaxRequests,
		Limit:   l.config.MaxRequests,
		Reset:   win.Reset,
	}
	if remaining := l.config.MaxRequests - win.Count; remaining > 0 {
		d.Remaining = remaining
	}
	if !d.Allowed {
		d.RetryAfter = win.Reset.Sub(now)
	}
	return d, nil
}
