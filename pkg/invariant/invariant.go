package invariant

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/manwithacat/dazzle-sub014/pkg/expr"
	"github.com/manwithacat/dazzle-sub014/pkg/policy"
	"github.com/manwithacat/dazzle-sub014/pkg/value"
)

// Invariant is a named condition that must hold for every persisted
// record of an entity.
type Invariant struct {
	Name string

	// Condition must evaluate strictly True for the invariant to hold.
	Condition policy.Condition

	// Message is the violation message template. Occurrences of {field}
	// are replaced with the record's value for that field.
	Message string
}

// Violation reports one invariant that did not hold.
type Violation struct {
	// Invariant is the name of the violated invariant.
	Invariant string

	// Message is the rendered violation message.
	Message string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s", v.Invariant, v.Message)
}

// Violations is the error type for a failed invariant check. It carries
// every violation found, not just the first.
type Violations []Violation

func (vs Violations) Error() string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = v.String()
	}
	return fmt.Sprintf("%d invariant violation(s): %s", len(vs), strings.Join(parts, "; "))
}

// Checker evaluates invariants against records.
type Checker struct {
	matcher *policy.Matcher
	logger  *slog.Logger
}

// NewChecker creates an invariant checker.
func NewChecker(logger *slog.Logger) *Checker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Checker{
		matcher: policy.NewMatcher(logger),
		logger:  logger,
	}
}

// Check evaluates every invariant against the record and returns the
// violations. The asymmetry with access rules is deliberate: a condition
// that evaluates Unknown (a Null field, an unresolved relation) is
// reported as a violation, because an invariant that cannot be confirmed
// is not satisfied. Only a condition evaluation error aborts the check.
func (c *Checker) Check(ctx context.Context, invariants []Invariant, record *expr.Context) (Violations, error) {
	var violations Violations
	for i := range invariants {
		inv := &invariants[i]

		t, err := c.matcher.Match(ctx, inv.Condition, &policy.Input{Record: record})
		if err != nil {
			return nil, fmt.Errorf("invariant %q: %w", inv.Name, err)
		}
		if t == value.True {
			continue
		}

		c.logger.Debug("invariant violated",
			"invariant", inv.Name,
			"result", t.String(),
		)
		violations = append(violations, Violation{
			Invariant: inv.Name,
			Message:   renderMessage(inv.Message, record),
		})
	}
	return violations, nil
}

// Merge overlays pending changes on stored state, producing the record
// that invariants are checked against before a write is accepted. Fields
// absent from changes keep their stored value; a Null in changes clears
// the field explicitly.
func Merge(stored, changes expr.Record) expr.Record {
	merged := make(expr.Record, len(stored)+len(changes))
	for k, v := range stored {
		merged[k] = v
	}
	for k, v := range changes {
		merged[k] = v
	}
	return merged
}

// renderMessage substitutes {field} placeholders with record values.
// Absent and Null fields both render as "null", so a violation caused by
// a missing value still produces a readable message.
func renderMessage(template string, record *expr.Context) string {
	var b strings.Builder
	rest := template
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			b.WriteString(rest)
			return b.String()
		}
		close := strings.IndexByte(rest[open:], '}')
		if close < 0 {
			b.WriteString(rest)
			return b.String()
		}
		close += open

		b.WriteString(rest[:open])
		b.WriteString(record.Field(rest[open+1 : close]).String())
		rest = rest[close+1:]
	}
}
