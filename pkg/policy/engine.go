package policy

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/manwithacat/dazzle-sub014/pkg/expr"
	"github.com/manwithacat/dazzle-sub014/pkg/value"
)

// Outcome is the result of an access decision. AccessDenied is a
// first-class outcome, not an error.
type Outcome string

const (
	OutcomeAllow Outcome = "allow"
	OutcomeDeny  Outcome = "deny"
)

// Reason records which decision path produced an outcome, for audit.
type Reason string

const (
	// ReasonSuperuser marks the bypass path: rule evaluation was
	// skipped entirely.
	ReasonSuperuser Reason = "superuser"

	// ReasonForbid marks a deny produced by a matching forbid rule.
	ReasonForbid Reason = "forbid"

	// ReasonPermit marks an allow produced by a matching permit rule.
	ReasonPermit Reason = "permit"

	// ReasonDefaultDeny marks the fall-through: no rule matched.
	ReasonDefaultDeny Reason = "default_deny"
)

// Decision is the outcome of one access check.
type Decision struct {
	Outcome Outcome

	// Rule names the matching rule, empty for superuser bypass and
	// default deny.
	Rule string

	Reason Reason
}

// Allowed reports whether the decision permits the operation.
func (d *Decision) Allowed() bool { return d.Outcome == OutcomeAllow }

// Engine evaluates entity policies with Cedar-style combination: any
// matching forbid denies absolutely, otherwise any matching permit
// allows, otherwise deny. The engine is stateless and safe for
// concurrent use.
type Engine struct {
	matcher *Matcher
	logger  *slog.Logger
}

// NewEngine creates a policy engine.
func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		matcher: NewMatcher(logger),
		logger:  logger,
	}
}

// Authorize decides whether the acting principal may perform op on the
// record. The rule order is fixed and deliberate: forbid rules are
// evaluated before permit rules so a permit can never mask a forbid, and
// the absence of an explicit permit is not permission.
func (e *Engine) Authorize(ctx context.Context, pol *EntityPolicy, op Operation, input *Input) (*Decision, error) {
	if pol == nil {
		return nil, fmt.Errorf("policy cannot be nil")
	}
	if input == nil {
		return nil, fmt.Errorf("input cannot be nil")
	}

	// Superuser bypass: checked before any rule evaluation and
	// reported as its own decision path.
	if input.Auth != nil && input.Auth.Superuser {
		e.logger.Debug("superuser bypass",
			"entity", pol.Entity,
			"operation", op,
			"principal", input.Auth.PrincipalID,
		)
		return &Decision{Outcome: OutcomeAllow, Reason: ReasonSuperuser}, nil
	}

	// Forbid is absolute and cannot be overridden.
	for _, rule := range pol.rulesFor(EffectForbid, op) {
		matched, err := e.ruleMatches(ctx, rule, input)
		if err != nil {
			return nil, err
		}
		if matched {
			e.logger.Debug("forbid rule matched",
				"entity", pol.Entity, "operation", op, "rule", rule.Name)
			return &Decision{Outcome: OutcomeDeny, Rule: rule.Name, Reason: ReasonForbid}, nil
		}
	}

	for _, rule := range pol.rulesFor(EffectPermit, op) {
		matched, err := e.ruleMatches(ctx, rule, input)
		if err != nil {
			return nil, err
		}
		if matched {
			e.logger.Debug("permit rule matched",
				"entity", pol.Entity, "operation", op, "rule", rule.Name)
			return &Decision{Outcome: OutcomeAllow, Rule: rule.Name, Reason: ReasonPermit}, nil
		}
	}

	return &Decision{Outcome: OutcomeDeny, Reason: ReasonDefaultDeny}, nil
}

// ruleMatches evaluates persona scoping then the rule condition. An
// Unknown condition result (Null comparison, unresolved relation) makes
// the rule non-matching for permit and forbid alike: ambiguity never
// grants access and never satisfies a forbid.
func (e *Engine) ruleMatches(ctx context.Context, rule *AccessRule, input *Input) (bool, error) {
	if !rule.appliesToPersona(input.Auth) {
		return false, nil
	}

	t, err := e.matcher.Match(ctx, rule.Condition, input)
	if err != nil {
		return false, &RuleError{Rule: rule.Name, Cause: err}
	}
	return t == value.True, nil
}

// FilterVisible applies the read decision per record, returning only the
// records the principal may see. For pushdown into the storage layer use
// BuildPredicate instead of materializing and discarding records.
func (e *Engine) FilterVisible(ctx context.Context, pol *EntityPolicy, records []*expr.Context, auth *AuthContext) ([]*expr.Context, error) {
	visible := make([]*expr.Context, 0, len(records))
	for _, rec := range records {
		decision, err := e.Authorize(ctx, pol, OperationRead, &Input{Record: rec, Auth: auth})
		if err != nil {
			return nil, err
		}
		if decision.Allowed() {
			visible = append(visible, rec)
		}
	}
	return visible, nil
}
