// Package breaker implements per-service circuit breakers for downstream
// isolation.
//
// A Registry owns one circuit per downstream service name. Each circuit is a
// three-phase state machine:
//
//	CLOSED --(failures*100/sample_size >= threshold)--> OPEN
//	OPEN --(reset timeout elapsed, next Admit)--> HALF_OPEN (single probe)
//	HALF_OPEN --(probe succeeds)--> CLOSED
//	HALF_OPEN --(probe fails)--> OPEN
//
// While CLOSED every request is admitted and each success decrements the
// failure count (never below zero). The failure ratio uses a fixed
// denominator (SampleSize) rather than a trailing window, so with the
// defaults (50%, 10) the circuit opens after five net failures regardless of
// traffic volume.
//
// # Usage
//
//	reg := breaker.NewRegistry(breaker.Settings{
//	    ErrorThresholdPercent: 50,
//	    ResetTimeout:          30 * time.Second,
//	    SampleSize:            10,
//	}, []string{"identity", "credential"})
//
//	ticket, err := reg.Admit("identity")
//	if err != nil {
//	    // errors.Is(err, breaker.ErrCircuitOpen)
//	}
//	// ... forward the request ...
//	reg.RecordOutcome(ticket, status < 500)
//
// A request that was admitted but never produced an outcome (rejected later
// in the pipeline, or abandoned by its client) must call Release instead so a
// half-open circuit can admit another probe.
//
// Tickets tie outcomes to admissions. A request admitted while CLOSED that
// is still running when the circuit reaches HALF_OPEN holds a non-probe
// ticket, so its outcome or release cannot close, reopen or free the probe
// slot.
//
// # Concurrency
//
// Each circuit carries its own mutex; the name to circuit map is guarded by
// an RWMutex and only write-locked when an unknown service is first seen.
// Observers are notified after the circuit lock is released.
package breaker
