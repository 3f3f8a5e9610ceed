package resilience

import "errors"

// ErrCircuitOpen is returned when the breaker rejects a call without running it.
// It is distinct from any downstream failure so callers can apply their own
// redelivery or fallback policy.
var ErrCircuitOpen = errors.New("circuit breaker is open")
