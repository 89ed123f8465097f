package recorder

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"mercator-hq/aegis/pkg/breaker"
	"mercator-hq/aegis/pkg/journal"
	"mercator-hq/aegis/pkg/proxy"
)

var (
	_ proxy.EventObserver = (*Recorder)(nil)
	_ breaker.Observer    = (*Recorder)(nil)
)

// Config contains recorder settings.
type Config struct {
	// Buffer is the capacity of the write queue. Entries submitted while
	// the queue is full are dropped.
	// Default: 1024
	Buffer int

	// WriteTimeout bounds a single storage write.
	// Default: 5 seconds
	WriteTimeout time.Duration

	// RecordFailures also journals forwarded requests that counted as
	// downstream failures.
	// Default: true
	RecordFailures bool
}

// DefaultConfig returns the default recorder configuration.
func DefaultConfig() *Config {
	return &Config{
		Buffer:         1024,
		WriteTimeout:   5 * time.Second,
		RecordFailures: true,
	}
}

// Recorder journals pipeline rejections, downstream failures and circuit
// transitions. Submission never blocks: entries are queued and written by a
// single background worker.
type Recorder struct {
	storage journal.Storage
	config  *Config
	entries chan *journal.Entry
	done    chan struct{}
	wg      sync.WaitGroup
	logger  *slog.Logger
	now     func() time.Time

	// mu orders submissions against Close: once closed is set under the
	// write lock no further entry reaches the queue.
	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
	dropped   atomic.Int64
	written   atomic.Int64
	dropLog   rate.Sometimes
}

// NewRecorder starts a recorder writing to storage.
func NewRecorder(storage journal.Storage, config *Config) *Recorder {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Buffer <= 0 {
		config.Buffer = DefaultConfig().Buffer
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = DefaultConfig().WriteTimeout
	}

	r := &Recorder{
		storage: storage,
		config:  config,
		entries: make(chan *journal.Entry, config.Buffer),
		done:    make(chan struct{}),
		logger:  slog.Default().With("component", "journal.recorder"),
		now:     time.Now,
		dropLog: rate.Sometimes{Interval: 10 * time.Second},
	}

	r.wg.Add(1)
	go r.worker()

	r.logger.Info("journal recorder initialized",
		"buffer", config.Buffer,
		"write_timeout", config.WriteTimeout,
	)

	return r
}

// RequestRejected journals a rejection.
func (r *Recorder) RequestRejected(rej proxy.Rejection) {
	r.submit(&journal.Entry{
		Kind:       journal.KindRejection,
		Time:       r.timestamp(rej.Timestamp),
		RequestID:  rej.RequestID,
		Method:     rej.Method,
		Path:       rej.Path,
		ClientKey:  rej.ClientKey,
		RemoteAddr: rej.RemoteAddr,
		Subject:    rej.Subject,
		Service:    rej.Service,
		Code:       string(rej.Code),
		Status:     rej.Status,
		Reason:     rej.Reason,
	})
}

// RequestCompleted journals a forwarded request when it counted as a
// downstream failure. Successes and abandoned requests are not recorded.
func (r *Recorder) RequestCompleted(c proxy.Completion) {
	if !r.config.RecordFailures || !c.Outcome.Failed() {
		return
	}

	entry := &journal.Entry{
		Kind:       journal.KindDownstreamFailure,
		Time:       r.timestamp(c.Timestamp),
		RequestID:  c.RequestID,
		Method:     c.Method,
		Path:       c.Path,
		ClientKey:  c.ClientKey,
		RemoteAddr: c.RemoteAddr,
		Service:    c.Service,
		Code:       c.Outcome.Label(),
		Status:     c.Outcome.Status,
		Duration:   c.Outcome.Duration,
	}
	if c.Outcome.Err != nil {
		entry.Reason = c.Outcome.Err.Error()
	}
	r.submit(entry)
}

// CircuitTransition journals a circuit phase change.
func (r *Recorder) CircuitTransition(t breaker.Transition) {
	r.submit(&journal.Entry{
		Kind:         journal.KindTransition,
		Time:         r.timestamp(t.At),
		Service:      t.Service,
		FromPhase:    t.From.String(),
		ToPhase:      t.To.String(),
		FailureCount: t.FailureCount,
	})
}

// Dropped returns the number of entries discarded because the queue was
// full or the recorder was closed.
func (r *Recorder) Dropped() int64 {
	return r.dropped.Load()
}

// Written returns the number of entries persisted.
func (r *Recorder) Written() int64 {
	return r.written.Load()
}

// Pending returns the number of queued entries.
func (r *Recorder) Pending() int {
	return len(r.entries)
}

// Close stops accepting entries, drains the queue and waits for the worker.
// It does not close the storage.
func (r *Recorder) Close() error {
	r.closeOnce.Do(func() {
		r.logger.Info("shutting down journal recorder", "pending", len(r.entries))

		// Stop accepting entries
		r.mu.Lock()
		r.closed = true
		r.mu.Unlock()

		// Drain the queue and wait for the worker
		close(r.done)
		r.wg.Wait()
		r.logger.Info("journal recorder shut down",
			"written", r.written.Load(),
			"dropped", r.dropped.Load(),
		)
	})
	return nil
}

func (r *Recorder) submit(entry *journal.Entry) {
	entry.ID = uuid.New().String()

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		r.dropped.Add(1)
		return
	}

	// Enqueue without blocking the request path
	select {
	case r.entries <- entry:
	default:
		n := r.dropped.Add(1)
		r.dropLog.Do(func() {
			r.logger.Warn("journal queue full, dropping entries",
				"kind", entry.Kind,
				"capacity", r.config.Buffer,
				"dropped_total", n,
			)
		})
	}
}

func (r *Recorder) timestamp(t time.Time) time.Time {
	if t.IsZero() {
		return r.now().UTC()
	}
	return t.UTC()
}

func (r *Recorder) worker() {
	defer r.wg.Done()

	for {
		select {
		case entry := <-r.entries:
			r.write(entry)

		case <-r.done:
			for {
				select {
				case entry := <-r.entries:
					r.write(entry)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) write(entry *journal.Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteTimeout)
	defer cancel()

	start := time.Now()
	if err := r.storage.Store(ctx, entry); err != nil {
		r.logger.Error("failed to store journal entry",
			"entry_id", entry.ID,
			"kind", entry.Kind,
			"request_id", entry.RequestID,
			"error", err,
		)
		return
	}
	r.written.Add(1)

	if d := time.Since(start); d > r.config.WriteTimeout/2 {
		r.logger.Warn("slow journal write",
			"entry_id", entry.ID,
			"duration_ms", d.Milliseconds(),
		)
	}
}
