package breaker

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// circuit is the mutable state of one service. All fields are guarded by mu.
type circuit struct {
	mu            sync.Mutex
	service       string
	phase         Phase
	failureCount  int
	lastFailure   time.Time
	probeInFlight bool
	probeSeq      uint64
}

// holdsProbe reports whether t is the probe currently in flight.
// c.mu must be held.
func (c *circuit) holdsProbe(t Ticket) bool {
	return c.probeInFlight && t.probe != 0 && t.probe == c.probeSeq
}

// admitProbeLocked hands the probe slot to the caller. c.mu must be held.
func (c *circuit) admitProbeLocked() uint64 {
	c.probeSeq++
	c.probeInFlight = true
	return c.probeSeq
}

func (c *circuit) snapshot() Snapshot {
	return Snapshot{
		Service:       c.service,
		Phase:         c.phase,
		FailureCount:  c.failureCount,
		LastFailure:   c.lastFailure,
		ProbeInFlight: c.probeInFlight,
	}
}

// Registry owns one circuit per downstream service name.
type Registry struct {
	settings  Settings
	now       func() time.Time
	logger    *slog.Logger
	observers []Observer

	mu       sync.RWMutex
	circuits map[string]*circuit
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

// WithObserver registers an observer notified of every phase change.
func WithObserver(o Observer) Option {
	return func(r *Registry) {
		if o != nil {
			r.observers = append(r.observers, o)
		}
	}
}

// WithLogger sets the logger used for transition and consistency messages.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRegistry creates a registry and pre-creates a closed circuit for every
// name in services. Unknown names are still accepted later and created on
// first use.
//
// A SampleSize below 1 is treated as 1 so the failure ratio is always
// defined.
func NewRegistry(settings Settings, services []string, opts ...Option) *Registry {
	if settings.SampleSize < 1 {
		settings.SampleSize = 1
	}

	r := &Registry{
		settings: settings,
		now:      time.Now,
		logger:   slog.Default(),
		circuits: make(map[string]*circuit, len(services)),
	}
	for _, opt := range opts {
		opt(r)
	}

	for _, name := range services {
		if _, ok := r.circuits[name]; !ok {
			r.circuits[name] = &circuit{service: name}
		}
	}

	return r
}

// get returns the circuit for service, creating it if needed.
func (r *Registry) get(service string) *circuit {
	r.mu.RLock()
	c, ok := r.circuits[service]
	r.mu.RUnlock()
	if ok {
		return c
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok = r.circuits[service]; ok {
		return c
	}
	c = &circuit{service: service}
	r.circuits[service] = c
	return c
}

// Admit decides whether a request to service may proceed. It returns an
// error wrapping ErrCircuitOpen when the circuit rejects the request.
//
// An open circuit whose reset timeout has elapsed moves to HALF_OPEN and
// admits the calling request as its single probe. Every admitted request
// must later be settled with RecordOutcome or Release, passing back the
// returned ticket.
func (r *Registry) Admit(service string) (Ticket, error) {
	c := r.get(service)
	now := r.now()
	ticket := Ticket{Service: service}

	c.mu.Lock()
	var (
		admitted   bool
		transition *Transition
	)
	switch c.phase {
	case Closed:
		admitted = true
	case Open:
		if now.Sub(c.lastFailure) > r.settings.ResetTimeout {
			transition = r.moveLocked(c, HalfOpen, now)
			ticket.probe = c.admitProbeLocked()
			admitted = true
		}
	case HalfOpen:
		if !c.probeInFlight {
			ticket.probe = c.admitProbeLocked()
			admitted = true
		}
	default:
		transition = r.repairLocked(c, now)
		admitted = true
	}
	c.mu.Unlock()

	r.notify(transition)

	if !admitted {
		return Ticket{}, fmt.Errorf("%w: %s", ErrCircuitOpen, service)
	}
	return ticket, nil
}

// RecordOutcome feeds the result of a forwarded request back into the
// circuit. A request succeeded when the downstream answered with a status
// below 500.
//
// In HALF_OPEN only the probe's ticket settles the circuit. Outcomes of
// requests admitted earlier are discarded.
func (r *Registry) RecordOutcome(t Ticket, succeeded bool) {
	c := r.get(t.Service)
	now := r.now()

	c.mu.Lock()
	var transition *Transition
	switch c.phase {
	case Closed:
		if succeeded {
			if c.failureCount > 0 {
				c.failureCount--
			}
			break
		}
		c.failureCount++
		c.lastFailure = now
		if c.failureCount*100/r.settings.SampleSize >= r.settings.ErrorThresholdPercent {
			transition = r.moveLocked(c, Open, now)
		}
	case Open:
		// A straggler admitted before the circuit opened.
		if !succeeded {
			c.lastFailure = now
		}
	case HalfOpen:
		if !c.holdsProbe(t) {
			break
		}
		c.probeInFlight = false
		if succeeded {
			c.failureCount = 0
			transition = r.moveLocked(c, Closed, now)
		} else {
			c.lastFailure = now
			transition = r.moveLocked(c, Open, now)
		}
	default:
		transition = r.repairLocked(c, now)
	}
	c.mu.Unlock()

	r.notify(transition)
}

// Release settles an admitted request that produced no outcome. Releasing
// the half-open probe frees its slot so the next Admit can probe again.
func (r *Registry) Release(t Ticket) {
	c := r.get(t.Service)

	c.mu.Lock()
	if c.phase == HalfOpen && c.holdsProbe(t) {
		c.probeInFlight = false
	}
	c.mu.Unlock()
}

// State returns a snapshot of one circuit. Unknown services report CLOSED
// without being created.
func (r *Registry) State(service string) Snapshot {
	r.mu.RLock()
	c, ok := r.circuits[service]
	r.mu.RUnlock()
	if !ok {
		return Snapshot{Service: service, Phase: Closed}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

// Snapshot returns the state of every known circuit sorted by service name.
func (r *Registry) Snapshot() []Snapshot {
	r.mu.RLock()
	circuits := make([]*circuit, 0, len(r.circuits))
	for _, c := range r.circuits {
		circuits = append(circuits, c)
	}
	r.mu.RUnlock()

	out := make([]Snapshot, 0, len(circuits))
	for _, c := range circuits {
		c.mu.Lock()
		out = append(out, c.snapshot())
		c.mu.Unlock()
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Service < out[j].Service })
	return out
}

// Settings returns the thresholds the registry was built with.
func (r *Registry) Settings() Settings {
	return r.settings
}

// moveLocked changes the phase of c and returns the transition to report.
// c.mu must be held.
func (r *Registry) moveLocked(c *circuit, to Phase, now time.Time) *Transition {
	t := &Transition{
		Service:      c.service,
		From:         c.phase,
		To:           to,
		FailureCount: c.failureCount,
		At:           now,
	}
	c.phase = to
	return t
}

// repairLocked resets a circuit found in an unknown phase to CLOSED so that
// bookkeeping faults never block traffic. c.mu must be held.
func (r *Registry) repairLocked(c *circuit, now time.Time) *Transition {
	r.logger.Error("circuit in unknown phase, resetting to closed",
		"service", c.service,
		"phase", int(c.phase),
	)
	c.failureCount = 0
	c.probeInFlight = false
	return r.moveLocked(c, Closed, now)
}

func (r *Registry) notify(t *Transition) {
	if t == nil {
		return
	}

	level := slog.LevelInfo
	if t.To == Open {
		level = slog.LevelWarn
	}
	r.logger.Log(context.Background(), level, "circuit transition",
		"service", t.Service,
		"from", t.From.String(),
		"to", t.To.String(),
		"failure_count", t.FailureCount,
	)

	for _, o := range r.observers {
		o.CircuitTransition(*t)
	}
}
