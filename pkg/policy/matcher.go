package policy

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/manwithacat/dazzle-sub014/pkg/expr"
	"github.com/manwithacat/dazzle-sub014/pkg/value"
)

// AuthContext identifies the acting principal for an evaluation.
type AuthContext struct {
	PrincipalID string
	Roles       []string
	Persona     string

	// Superuser skips all rule evaluation; the decision is ALLOW via a
	// distinct, auditable path.
	Superuser bool
}

// HasRole reports whether the principal holds the named role.
func (a *AuthContext) HasRole(name string) bool {
	if a == nil {
		return false
	}
	for _, r := range a.Roles {
		if r == name {
			return true
		}
	}
	return false
}

// Input is one evaluation request: the record (with caller-resolved
// relations) plus the acting principal.
type Input struct {
	Record *expr.Context
	Auth   *AuthContext
}

// Matcher evaluates condition trees against an input, producing a
// Tristate. A Null comparison or an unresolved relation yields Unknown;
// each caller decides what Unknown means (access rules and guards treat
// it as non-matching, invariants as violated).
type Matcher struct {
	logger *slog.Logger
}

// NewMatcher creates a condition matcher.
func NewMatcher(logger *slog.Logger) *Matcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Matcher{logger: logger}
}

// Match evaluates a condition. A nil condition always matches.
func (m *Matcher) Match(ctx context.Context, cond Condition, input *Input) (value.Tristate, error) {
	if cond == nil {
		return value.True, nil
	}

	select {
	case <-ctx.Done():
		return value.Unknown, ctx.Err()
	default:
	}

	switch c := cond.(type) {
	case *Comparison:
		return m.matchComparison(c, input)

	case *Logical:
		return m.matchLogical(ctx, c, input)

	case *RoleCheck:
		if input.Auth.HasRole(c.Role) {
			return value.True, nil
		}
		return value.False, nil

	case *PersonaCheck:
		if input.Auth != nil && input.Auth.Persona == c.Persona {
			return value.True, nil
		}
		return value.False, nil
	}

	return value.Unknown, fmt.Errorf("unknown condition type %T", cond)
}

func (m *Matcher) matchComparison(c *Comparison, input *Input) (value.Tristate, error) {
	left, err := expr.ResolveField(input.Record, c.Path)
	if err != nil {
		return value.Unknown, &ConditionError{Field: c.String(), Cause: err}
	}

	if c.Aggregate != AggNone {
		left, err = applyAggregate(c.Aggregate, left)
		if err != nil {
			return value.Unknown, &ConditionError{Field: c.String(), Cause: err}
		}
	}

	// Null checks observe the discriminator directly and never yield
	// Unknown.
	switch c.Op {
	case CmpIsNull:
		return boolTristate(left.IsNull()), nil
	case CmpIsNotNull:
		return boolTristate(!left.IsNull()), nil
	}

	right := c.Right.Literal
	if c.Right.IsPath() {
		right, err = expr.ResolveField(input.Record, c.Right.Path)
		if err != nil {
			return value.Unknown, &ConditionError{Field: c.String(), Cause: err}
		}
	}

	result, err := value.Compare(value.CmpOp(c.Op), left, right)
	if err != nil {
		return value.Unknown, &ConditionError{Field: c.String(), Cause: err}
	}

	t, _ := value.Truth(result)

	m.logger.Debug("comparison evaluated",
		"condition", c.String(),
		"left", left.String(),
		"right", right.String(),
		"result", t.String(),
	)

	return t, nil
}

func (m *Matcher) matchLogical(ctx context.Context, c *Logical, input *Input) (value.Tristate, error) {
	switch c.Op {
	case LogicalNot:
		if len(c.Children) != 1 {
			return value.Unknown, fmt.Errorf("not condition must have exactly one child, got %d", len(c.Children))
		}
		t, err := m.Match(ctx, c.Children[0], input)
		if err != nil {
			return value.Unknown, err
		}
		return t.Not(), nil

	case LogicalAnd:
		acc := value.True
		for _, child := range c.Children {
			t, err := m.Match(ctx, child, input)
			if err != nil {
				return value.Unknown, err
			}
			acc = acc.And(t)
			if acc == value.False {
				return value.False, nil
			}
		}
		return acc, nil

	case LogicalOr:
		acc := value.False
		for _, child := range c.Children {
			t, err := m.Match(ctx, child, input)
			if err != nil {
				return value.Unknown, err
			}
			acc = acc.Or(t)
			if acc == value.True {
				return value.True, nil
			}
		}
		return acc, nil
	}

	return value.Unknown, fmt.Errorf("unknown logical operator %q", c.Op)
}

// applyAggregate reduces a collection value for an aggregated comparison.
// Null elements are skipped by sum and avg, per SQL aggregate semantics.
func applyAggregate(agg Aggregate, v value.Value) (value.Value, error) {
	if v.IsNull() {
		return value.Null(), nil
	}
	if v.Kind() != value.KindSet {
		return value.Null(), fmt.Errorf("aggregate %s requires a collection, got %s", agg, v.Kind())
	}

	elems := v.AsSet()
	if agg == AggCount {
		return value.Int(int64(len(elems))), nil
	}

	total := decimal.Zero
	n := 0
	for _, e := range elems {
		if e.IsNull() {
			continue
		}
		if !e.IsNumeric() {
			return value.Null(), fmt.Errorf("aggregate %s requires numeric elements, got %s", agg, e.Kind())
		}
		total = total.Add(e.AsDecimal())
		n++
	}
	if n == 0 {
		return value.Null(), nil
	}
	if agg == AggAvg {
		return value.Decimal(total.Div(decimal.NewFromInt(int64(n)))), nil
	}
	return value.Decimal(total), nil
}

func boolTristate(b bool) value.Tristate {
	if b {
		return value.True
	}
	return value.False
}
