// Package breaker provides a three-state circuit breaker shared across
// concurrent requests to one upstream.
//
// Closed is the normal state: failures increment a consecutive counter and any
// success clears it. At FailureThreshold consecutive failures the circuit
// opens and Allow fails fast with a CircuitOpenError, attempting no network
// call. After RecoveryTimeout the next Allow transitions to half-open and
// permits probing; HalfOpenSuccessThreshold successes close the circuit, while
// any single failure reopens it.
//
// Half-open permits all concurrent calls through rather than a strict single
// probe; the upstream is being tested for recovery, not trickled at.
package breaker
