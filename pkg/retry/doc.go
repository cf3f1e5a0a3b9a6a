// Package retry provides the backoff retry policy used around transport calls.
//
// # Overview
//
// Policy is a pure decision object: ShouldRetry consults the error
// classification in the errors package, and Delay computes the wait for a
// given attempt. Do wires both into a context-aware attempt loop.
//
// # Delay formula
//
// Delay grows linearly with the attempt number:
//
//	Delay(n) = InitialDelay * Multiplier * n   (capped at MaxDelay)
//
// Delay(0) is zero, so the first retry fires immediately. Consumers pin the
// exact sequence in tests; the formula is part of the contract.
//
// # Usage
//
//	p := retry.DefaultPolicy()
//	err := p.Do(ctx, func() error {
//	    return client.Send(req)
//	})
package retry
