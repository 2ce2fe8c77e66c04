// Package resolver turns sets of feature identifiers into baseline
// status records by querying the external status authority in batches.
//
// The resolver degrades per-ID to Unknown instead of aborting the run:
// every requested identifier ends with exactly one status record no
// matter how the authority behaves. Batches run under a bounded
// concurrency window; each request carries its own timeout; 429/5xx and
// network errors retry with class-dependent jittered backoff, other 4xx
// and malformed bodies fail permanently. A shared circuit breaker is
// checked before every attempt.
package resolver
