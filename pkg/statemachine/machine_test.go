package statemachine

import (
	"context"
	"errors"
	"testing"

	"github.com/manwithacat/dazzle-sub014/pkg/expr"
	"github.com/manwithacat/dazzle-sub014/pkg/policy"
	"github.com/manwithacat/dazzle-sub014/pkg/value"
)

func mustCondition(t *testing.T, src string) policy.Condition {
	t.Helper()
	n, err := expr.Parse(src)
	if err != nil {
		t.Fatalf("Parse(%q): %v", src, err)
	}
	cond, err := policy.FromExpr(n)
	if err != nil {
		t.Fatalf("FromExpr(%q): %v", src, err)
	}
	return cond
}

// orderMachine declares an order lifecycle where submitting requires at
// least one line item.
func orderMachine(t *testing.T) *Machine {
	t.Helper()
	return &Machine{
		Field:  "status",
		States: []string{"draft", "submitted", "paid", "cancelled"},
		Transitions: []Transition{
			{From: "draft", To: "submitted", Trigger: "submit",
				Guard: mustCondition(t, "line_items.count() > 0")},
			{From: "submitted", To: "paid", Trigger: "pay"},
			{From: "draft", To: "cancelled"},
			{From: "submitted", To: "cancelled"},
		},
	}
}

func orderRecord(items int) *expr.Context {
	lineItems := make([]*expr.Context, items)
	for i := range lineItems {
		lineItems[i] = &expr.Context{Record: expr.Record{"price": value.Int(10)}}
	}
	return &expr.Context{
		Record:      expr.Record{"status": value.String("draft")},
		RelatedMany: map[string][]*expr.Context{"line_items": lineItems},
	}
}

func TestEvaluateGuardedSubmit(t *testing.T) {
	ev := NewEvaluator(nil)
	m := orderMachine(t)

	req := &Request{From: "draft", To: "submitted", Trigger: "submit", Record: orderRecord(2)}
	outcome, err := ev.Evaluate(context.Background(), m, req)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if outcome != TransitionOK {
		t.Errorf("outcome = %s, want ok", outcome)
	}
}

func TestEvaluateGuardFailed(t *testing.T) {
	ev := NewEvaluator(nil)
	m := orderMachine(t)

	req := &Request{From: "draft", To: "submitted", Trigger: "submit", Record: orderRecord(0)}
	outcome, err := ev.Evaluate(context.Background(), m, req)
	if outcome != GuardFailed {
		t.Fatalf("outcome = %s, want guard_failed", outcome)
	}

	var guardErr *GuardNotSatisfiedError
	if !errors.As(err, &guardErr) {
		t.Fatalf("error = %v, want *GuardNotSatisfiedError", err)
	}
	if guardErr.From != "draft" || guardErr.To != "submitted" {
		t.Errorf("error edge = %q -> %q", guardErr.From, guardErr.To)
	}
	if guardErr.Result != value.False {
		t.Errorf("result = %s, want false", guardErr.Result)
	}
}

func TestEvaluateInvalidTransition(t *testing.T) {
	ev := NewEvaluator(nil)
	m := orderMachine(t)

	// paid -> draft is not a declared edge, regardless of record state.
	req := &Request{From: "paid", To: "draft", Record: orderRecord(5)}
	outcome, err := ev.Evaluate(context.Background(), m, req)
	if outcome != InvalidTransition {
		t.Fatalf("outcome = %s, want invalid_transition", outcome)
	}

	var invalidErr *InvalidTransitionError
	if !errors.As(err, &invalidErr) {
		t.Fatalf("error = %v, want *InvalidTransitionError", err)
	}

	// The same edge with a guard failure must not be confused with this.
	var guardErr *GuardNotSatisfiedError
	if errors.As(err, &guardErr) {
		t.Errorf("invalid transition must not report a guard failure")
	}
}

func TestEvaluateUnknownGuardFailsClosed(t *testing.T) {
	ev := NewEvaluator(nil)
	m := &Machine{
		Field:  "status",
		States: []string{"draft", "approved"},
		Transitions: []Transition{
			{From: "draft", To: "approved",
				Guard: mustCondition(t, "reviewed_by is not null and reviewer_score > 3")},
		},
	}

	// reviewer_score is Null: the guard is Unknown, which blocks the
	// transition the same way False does.
	req := &Request{
		From: "draft", To: "approved",
		Record: &expr.Context{Record: expr.Record{
			"reviewed_by":    value.String("u9"),
			"reviewer_score": value.Null(),
		}},
	}
	outcome, err := ev.Evaluate(context.Background(), m, req)
	if outcome != GuardFailed {
		t.Fatalf("outcome = %s, want guard_failed", outcome)
	}

	var guardErr *GuardNotSatisfiedError
	if !errors.As(err, &guardErr) {
		t.Fatalf("error = %v, want *GuardNotSatisfiedError", err)
	}
	if guardErr.Result != value.Unknown {
		t.Errorf("result = %s, want unknown", guardErr.Result)
	}
}

func TestEvaluateUnguardedTransition(t *testing.T) {
	ev := NewEvaluator(nil)
	m := orderMachine(t)

	req := &Request{From: "submitted", To: "paid", Trigger: "pay", Record: orderRecord(0)}
	outcome, err := ev.Evaluate(context.Background(), m, req)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if outcome != TransitionOK {
		t.Errorf("outcome = %s, want ok", outcome)
	}
}

func TestEvaluateGuardWithPrincipal(t *testing.T) {
	ev := NewEvaluator(nil)
	m := &Machine{
		Field:  "status",
		States: []string{"submitted", "approved"},
		Transitions: []Transition{
			{From: "submitted", To: "approved",
				Guard: mustCondition(t, `role("approver")`)},
		},
	}
	record := &expr.Context{Record: expr.Record{}}

	outcome, err := ev.Evaluate(context.Background(), m, &Request{
		From: "submitted", To: "approved", Record: record,
		Auth: &policy.AuthContext{PrincipalID: "u1", Roles: []string{"approver"}},
	})
	if err != nil || outcome != TransitionOK {
		t.Errorf("with role: outcome = %s, err = %v, want ok", outcome, err)
	}

	outcome, _ = ev.Evaluate(context.Background(), m, &Request{
		From: "submitted", To: "approved", Record: record,
		Auth: &policy.AuthContext{PrincipalID: "u1"},
	})
	if outcome != GuardFailed {
		t.Errorf("without role: outcome = %s, want guard_failed", outcome)
	}
}

func TestFindTransitionTriggerMatching(t *testing.T) {
	m := orderMachine(t)

	tests := []struct {
		name  string
		req   Request
		found bool
	}{
		{"exact trigger", Request{From: "draft", To: "submitted", Trigger: "submit"}, true},
		{"wrong trigger", Request{From: "draft", To: "submitted", Trigger: "approve"}, false},
		{"request without trigger matches any edge", Request{From: "draft", To: "submitted"}, true},
		{"edge without trigger matches any request", Request{From: "draft", To: "cancelled", Trigger: "void"}, true},
		{"undeclared edge", Request{From: "cancelled", To: "draft"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := m.findTransition(&tt.req); (got != nil) != tt.found {
				t.Errorf("findTransition(%+v) found = %v, want %v", tt.req, got != nil, tt.found)
			}
		})
	}
}

func TestHasState(t *testing.T) {
	m := orderMachine(t)
	if !m.HasState("draft") {
		t.Errorf("draft should be declared")
	}
	if m.HasState("shipped") {
		t.Errorf("shipped should not be declared")
	}
}
