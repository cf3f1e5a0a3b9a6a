// Package dedup collapses concurrent identical requests into one in-flight
// execution.
//
// Key derives a deterministic logical key from a request payload via RFC 8785
// canonical JSON and a SHA-256 digest, so structurally identical payloads
// always collide and different payloads practically never do. Execute runs at
// most one operation per key at a time: concurrent duplicate callers block on
// the in-flight execution and all observe the same settled value or error.
//
// The tracked-entry set is insertion-ordered and bounded; the oldest entries
// are evicted first when the bound is reached, which only stops a key from
// absorbing new duplicates, never cancels the running execution.
package dedup
