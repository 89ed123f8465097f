package proxy

import "time"

// Outcome is the result of one forwarded request, delivered exactly once to
// the completion callback passed to Forward.
type Outcome struct {
	// Status is the downstream status code. Zero when no response arrived.
	Status int

	// Err is the transport error, if any.
	Err error

	// Abandoned is set when the client went away before the downstream
	// answered. Such requests say nothing about downstream health.
	Abandoned bool

	// Duration is the time spent forwarding.
	Duration time.Duration
}

// Failed reports whether the outcome counts against the circuit: a transport
// error or a status of 500 and above.
func (o Outcome) Failed() bool {
	if o.Abandoned {
		return false
	}
	return o.Err != nil || o.Status >= 500
}

// Label returns a short classification used in logs and metrics.
func (o Outcome) Label() string {
	switch {
	case o.Abandoned:
		return "abandoned"
	case o.Err != nil:
		return "transport_error"
	case o.Status >= 500:
		return "failure"
	default:
		return "success"
	}
}
