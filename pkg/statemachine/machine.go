package statemachine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/manwithacat/dazzle-sub014/pkg/expr"
	"github.com/manwithacat/dazzle-sub014/pkg/policy"
	"github.com/manwithacat/dazzle-sub014/pkg/value"
)

// Transition is one declared edge in the machine, optionally guarded.
type Transition struct {
	From    string
	To      string
	Trigger string

	// Guard, when non-nil, must evaluate strictly True for the
	// transition to fire.
	Guard policy.Condition
}

// Machine is the declared state machine for one entity field.
type Machine struct {
	// Field names the record field holding the current state.
	Field string

	States      []string
	Transitions []Transition
}

// HasState reports whether name is a declared state.
func (m *Machine) HasState(name string) bool {
	for _, s := range m.States {
		if s == name {
			return true
		}
	}
	return false
}

// Request is one transition attempt.
type Request struct {
	From    string
	To      string
	Trigger string

	// Record is the candidate record the guard evaluates against,
	// typically stored state merged with the pending change.
	Record *expr.Context

	// Auth is the acting principal, for guards with role or persona
	// checks.
	Auth *policy.AuthContext
}

// Outcome classifies a transition evaluation.
type Outcome string

const (
	// TransitionOK means the edge exists and its guard (if any) held.
	TransitionOK Outcome = "ok"

	// InvalidTransition means no declared edge matches: a structural
	// failure independent of record state.
	InvalidTransition Outcome = "invalid_transition"

	// GuardFailed means the edge exists but its guard did not evaluate
	// True: a logical failure of the current record state.
	GuardFailed Outcome = "guard_failed"
)

// Evaluator evaluates transition requests against a machine.
type Evaluator struct {
	matcher *policy.Matcher
	logger  *slog.Logger
}

// NewEvaluator creates a transition evaluator.
func NewEvaluator(logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{
		matcher: policy.NewMatcher(logger),
		logger:  logger,
	}
}

// Evaluate decides a transition request. The two failure modes are kept
// distinct because callers act on them differently: InvalidTransitionError
// means the request itself is wrong, GuardNotSatisfiedError means the
// record is not yet in a state that allows it. A guard evaluating Unknown
// (Null field, unresolved relation) fails closed as GuardFailed.
func (e *Evaluator) Evaluate(ctx context.Context, m *Machine, req *Request) (Outcome, error) {
	tr := m.findTransition(req)
	if tr == nil {
		return InvalidTransition, &InvalidTransitionError{
			From:    req.From,
			To:      req.To,
			Trigger: req.Trigger,
		}
	}

	if tr.Guard == nil {
		return TransitionOK, nil
	}

	t, err := e.matcher.Match(ctx, tr.Guard, &policy.Input{Record: req.Record, Auth: req.Auth})
	if err != nil {
		return GuardFailed, fmt.Errorf("guard for %s -> %s: %w", tr.From, tr.To, err)
	}
	if t != value.True {
		e.logger.Debug("transition guard not satisfied",
			"from", tr.From, "to", tr.To, "trigger", tr.Trigger,
			"result", t.String(),
		)
		return GuardFailed, &GuardNotSatisfiedError{
			From:    tr.From,
			To:      tr.To,
			Trigger: tr.Trigger,
			Guard:   tr.Guard.String(),
			Result:  t,
		}
	}

	return TransitionOK, nil
}

// findTransition returns the first declared edge matching the request.
// An empty request trigger matches any edge between the states; an edge
// with an empty trigger matches any request trigger.
func (m *Machine) findTransition(req *Request) *Transition {
	for i := range m.Transitions {
		tr := &m.Transitions[i]
		if tr.From != req.From || tr.To != req.To {
			continue
		}
		if tr.Trigger == "" || req.Trigger == "" || tr.Trigger == req.Trigger {
			return tr
		}
	}
	return nil
}
