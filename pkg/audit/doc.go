// Package audit persists a log of access decisions, invariant
// violations, and blocked state transitions.
//
// Records carry who attempted what, the outcome, and the rule that
// produced it; superuser bypasses are flagged so they remain visible.
// Storage is an interface with an in-memory implementation for tests
// and a SQLite implementation (WAL mode) for durable use. The Recorder
// writes asynchronously so decision latency never waits on storage, and
// the Pruner with its cron Scheduler enforces retention.
package audit
