package audit

import (
	"time"

	"github.com/google/uuid"
)

// EventKind classifies an audit record.
type EventKind string

const (
	// EventDecision records an access decision.
	EventDecision EventKind = "decision"

	// EventInvariantViolation records a rejected write.
	EventInvariantViolation EventKind = "invariant_violation"

	// EventGuardRejection records a blocked state transition.
	EventGuardRejection EventKind = "guard_rejection"
)

// Record is one audit log entry. Every decision, rejected write, and
// blocked transition produces one.
type Record struct {
	// ID is a generated UUID.
	ID string

	// Time is when the event happened.
	Time time.Time

	// Event classifies the record.
	Event EventKind

	// Entity and Operation identify what was attempted.
	Entity    string
	Operation string

	// Principal and Persona identify who attempted it.
	Principal string
	Persona   string

	// Outcome is the result: allow/deny for decisions, the violation or
	// rejection outcome otherwise.
	Outcome string

	// Rule names the rule, invariant, or transition that produced the
	// outcome, when one did.
	Rule string

	// Bypass marks decisions produced by the superuser path.
	Bypass bool

	// Detail carries free-form context: violation messages, guard text.
	Detail string
}

// NewRecord creates a record with a fresh ID and timestamp.
func NewRecord(event EventKind) *Record {
	return &Record{
		ID:    uuid.NewString(),
		Time:  time.Now().UTC(),
		Event: event,
	}
}

// Filter selects records for queries.
type Filter struct {
	// Entity, when non-empty, restricts to one entity.
	Entity string

	// Event, when non-empty, restricts to one event kind.
	Event EventKind

	// Principal, when non-empty, restricts to one principal.
	Principal string

	// Since and Until bound the time range; zero values are open ends.
	Since time.Time
	Until time.Time

	// Limit caps the result count; zero means no cap.
	Limit int
}

// Matches reports whether a record passes the filter.
func (f *Filter) Matches(r *Record) bool {
	if f.Entity != "" && r.Entity != f.Entity {
		return false
	}
	if f.Event != "" && r.Event != f.Event {
		return false
	}
	if f.Principal != "" && r.Principal != f.Principal {
		return false
	}
	if !f.Since.IsZero() && r.Time.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && !r.Time.Before(f.Until) {
		return false
	}
	return true
}
