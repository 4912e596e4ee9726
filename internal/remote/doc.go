// Package remote performs single logical calls against a rate-limited catalog API.
//
// A [Client] pre-checks a shared [quota.Tracker], falls back to a static API key for read-only calls when the
// bearer credential is missing or rejected, retries throttled and failed attempts with exponential backoff and
// jitter, and serves repeated GETs from a short-lived [Cache]. A sony/gobreaker circuit breaker sits in front of
// the transport so a platform that keeps failing stops receiving traffic.
package remote
