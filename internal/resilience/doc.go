// Package resilience implements the circuit breaker guarding calls to
// the external status authority.
//
// State machine:
//   - Closed: all calls allowed; consecutive failures counted.
//   - Open: all calls denied until the cooldown elapses.
//   - HalfOpen: exactly one trial call allowed; success closes the
//     breaker, failure reopens it.
//
// The breaker is shared mutable state across all in-flight batches, so
// every read-modify-write is serialized under a mutex. A fresh process
// always starts closed with a zero failure count.
package resilience
