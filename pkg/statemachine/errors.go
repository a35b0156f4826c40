package statemachine

import (
	"fmt"

	"github.com/manwithacat/dazzle-sub014/pkg/value"
)

// InvalidTransitionError reports a request for an edge the machine does
// not declare.
type InvalidTransitionError struct {
	From    string
	To      string
	Trigger string
}

func (e *InvalidTransitionError) Error() string {
	if e.Trigger != "" {
		return fmt.Sprintf("no transition from %q to %q for trigger %q", e.From, e.To, e.Trigger)
	}
	return fmt.Sprintf("no transition from %q to %q", e.From, e.To)
}

// GuardNotSatisfiedError reports a declared edge whose guard did not
// evaluate True. Result records whether the guard was False or Unknown.
type GuardNotSatisfiedError struct {
	From    string
	To      string
	Trigger string
	Guard   string
	Result  value.Tristate
}

func (e *GuardNotSatisfiedError) Error() string {
	return fmt.Sprintf("transition %q -> %q blocked: guard %q evaluated %s",
		e.From, e.To, e.Guard, e.Result)
}
