package policy

import "fmt"

// ConditionError reports a condition that could not be evaluated, such
// as an aggregate over a non-collection or a traversal past the hop
// limit. It wraps the underlying cause.
type ConditionError struct {
	// Field is the rendered condition that failed.
	Field string

	Cause error
}

func (e *ConditionError) Error() string {
	return fmt.Sprintf("condition %q: %v", e.Field, e.Cause)
}

func (e *ConditionError) Unwrap() error { return e.Cause }

// RuleError reports a rule whose condition failed to evaluate. It names
// the rule so audit records can cite it.
type RuleError struct {
	Rule  string
	Cause error
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("rule %q: %v", e.Rule, e.Cause)
}

func (e *RuleError) Unwrap() error { return e.Cause }
