package health

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// Status values reported by checks and endpoints.
const (
	StatusOK        = "ok"
	StatusReady     = "ready"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// CheckFunc is a function that performs a health check for a component.
// It returns nil if the component is healthy, or an error describing the problem.
type CheckFunc func(ctx context.Context) error

// DetailFunc reports the current state of a component for /health/detailed.
// The returned value is encoded as JSON. A component that wants to degrade
// the overall status returns degraded=true.
type DetailFunc func() (detail any, degraded bool)

// CheckResult represents the result of a single health check.
type CheckResult struct {
	// Status is "ok" or "unhealthy".
	Status string `json:"status"`

	// Message describes the problem for an unhealthy component.
	Message string `json:"message,omitempty"`

	// DurationMS is how long the check took in milliseconds.
	DurationMS float64 `json:"duration_ms"`
}

// Report is the aggregated result of the registered checks.
type Report struct {
	// Status is "ready" or "degraded".
	Status string `json:"status"`

	// Checks contains the result per component.
	Checks map[string]CheckResult `json:"checks"`

	// Timestamp is when the checks ran.
	Timestamp time.Time `json:"timestamp"`
}

// Ready reports whether every check passed.
func (r Report) Ready() bool {
	return r.Status == StatusReady
}

// Checker runs readiness checks and collects component details.
type Checker struct {
	mu      sync.RWMutex
	checks  map[string]CheckFunc
	details map[string]DetailFunc

	checkTimeout time.Duration
	started      time.Time
}

// ErrCheckTimeout is reported when a check exceeds its timeout.
var ErrCheckTimeout = errors.New("health check timeout")

// New creates a new health checker with the specified check timeout.
// If timeout is 0, defaults to 5 seconds per check.
func New(checkTimeout time.Duration) *Checker {
	if checkTimeout == 0 {
		checkTimeout = 5 * time.Second
	}

	return &Checker{
		checks:       make(map[string]CheckFunc),
		details:      make(map[string]DetailFunc),
		checkTimeout: checkTimeout,
		started:      time.Now(),
	}
}

// RegisterCheck registers a readiness check for a named component.
// If a check with the same name already exists, it will be replaced.
func (c *Checker) RegisterCheck(name string, check CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.checks[name] = check
}

// RegisterDetail registers a detail source for a named component.
func (c *Checker) RegisterDetail(name string, detail DetailFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.details[name] = detail
}

// ListChecks returns the sorted names of all registered checks.
func (c *Checker) ListChecks() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.checks))
	for name := range c.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Uptime returns how long the checker has existed.
func (c *Checker) Uptime() time.Duration {
	return time.Since(c.started)
}

// CheckReadiness runs every registered check concurrently and aggregates
// the results. With no checks registered the gateway is ready.
func (c *Checker) CheckReadiness(ctx context.Context) Report {
	c.mu.RLock()
	checks := make(map[string]CheckFunc, len(c.checks))
	for name, check := range c.checks {
		checks[name] = check
	}
	c.mu.RUnlock()

	results := make(map[string]CheckResult, len(checks))
	var resultMu sync.Mutex
	var wg sync.WaitGroup

	for name, check := range checks {
		wg.Add(1)
		go func(name string, check CheckFunc) {
			defer wg.Done()

			result := c.runCheck(ctx, check)

			resultMu.Lock()
			results[name] = result
			resultMu.Unlock()
		}(name, check)
	}

	wg.Wait()

	status := StatusReady
	for _, result := range results {
		if result.Status == StatusUnhealthy {
			status = StatusDegraded
		}
	}

	return Report{
		Status:    status,
		Checks:    results,
		Timestamp: time.Now().UTC(),
	}
}

// Details collects every registered detail and reports whether any
// component asked to degrade the overall status.
func (c *Checker) Details() (map[string]any, bool) {
	c.mu.RLock()
	details := make(map[string]DetailFunc, len(c.details))
	for name, fn := range c.details {
		details[name] = fn
	}
	c.mu.RUnlock()

	out := make(map[string]any, len(details))
	degraded := false
	for name, fn := range details {
		d, bad := fn()
		out[name] = d
		degraded = degraded || bad
	}
	return out, degraded
}

// runCheck executes a single health check with timeout.
func (c *Checker) runCheck(ctx context.Context, check CheckFunc) CheckResult {
	checkCtx, cancel := context.WithTimeout(ctx, c.checkTimeout)
	defer cancel()

	start := time.Now()

	// The check runs in its own goroutine so a check that ignores its
	// context still times out.
	errChan := make(chan error, 1)
	go func() {
		errChan <- check(checkCtx)
	}()

	var err error
	select {
	case err = <-errChan:
	case <-checkCtx.Done():
		err = ErrCheckTimeout
	}

	result := CheckResult{
		Status:     StatusOK,
		DurationMS: float64(time.Since(start).Microseconds()) / 1000,
	}
	if err != nil {
		result.Status = StatusUnhealthy
		result.Message = err.Error()
	}
	return result
}
