// Package ratelimit enforces a per-client request ceiling over fixed time
// windows.
//
// # Algorithm
//
// Every client key gets a counter per window. Windows are aligned to the
// Unix epoch, so all gateway instances sharing a store agree on where a
// window starts and ends. A request is admitted while the counter, after
// being incremented, does not exceed MaxRequests.
//
// # Stores
//
//   - RedisStore: shared across instances. INCR and PEXPIRE run in one
//     MULTI/EXEC so the count and its expiry are set together.
//   - MemoryStore: process local, for tests and single-instance setups.
//     StartJanitor evicts finished windows.
//
// # Failure Handling
//
// When the store is unreachable Allow admits the request, marks the Decision
// as Degraded and returns an error wrapping ErrStoreUnavailable. The gateway
// keeps serving traffic through a Redis outage.
//
// # HTTP Integration
//
//	key := ratelimit.DefaultKeyFunc("", false)(r)
//	d, _ := limiter.Allow(r.Context(), key)
//	ratelimit.SetHeaders(w.Header(), d, time.Now())
//	if !d.Allowed {
//	    // 429
//	}
package ratelimit
