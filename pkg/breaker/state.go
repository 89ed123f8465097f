package breaker

import (
	"errors"
	"time"
)

// ErrCircuitOpen is returned by Admit when the circuit rejects the request.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Phase is the state of a circuit.
type Phase int

const (
	// Closed admits every request.
	Closed Phase = iota

	// Open rejects requests until the reset timeout has elapsed.
	Open

	// HalfOpen admits a single probe request.
	HalfOpen
)

// String returns the canonical upper-case phase name.
func (p Phase) String() string {
	switch p {
	case Closed:
		return "CLOSED"
	case Open:
		return "OPEN"
	case HalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// MarshalText encodes the phase by name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Settings holds the breaker thresholds shared by every circuit.
type Settings struct {
	// ErrorThresholdPercent trips the circuit when
	// failures*100/SampleSize >= ErrorThresholdPercent.
	ErrorThresholdPercent int

	// ResetTimeout is how long an open circuit waits after its last failure
	// before admitting a probe.
	ResetTimeout time.Duration

	// SampleSize is the fixed denominator of the failure ratio.
	SampleSize int
}

// Snapshot is a read-only copy of one circuit's state.
type Snapshot struct {
	Service       string    `json:"service"`
	Phase         Phase     `json:"phase"`
	FailureCount  int       `json:"failure_count"`
	LastFailure   time.Time `json:"last_failure"`
	ProbeInFlight bool      `json:"probe_in_flight"`
}

// Transition describes a phase change of one circuit.
type Transition struct {
	Service      string
	From         Phase
	To           Phase
	FailureCount int
	At           time.Time
}

// Observer receives circuit transitions. Implementations must not call back
// into the Registry synchronously for the same service.
type Observer interface {
	CircuitTransition(t Transition)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(t Transition)

// CircuitTransition calls f(t).
func (f ObserverFunc) CircuitTransition(t Transition) {
	f(t)
}

// Ticket identifies one admitted request. It is handed back to
// RecordOutcome or Release so that a half-open circuit is settled only by
// its probe.
type Ticket struct {
	Service string
	probe   uint64
}

// Probe reports whether the ticket was issued for a half-open probe.
func (t Ticket) Probe() bool {
	return t.probe != 0
}
