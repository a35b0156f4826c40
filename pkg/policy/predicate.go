package policy

import "strings"

// Predicate is a record-shaped filter derived from the read rules of an
// entity policy. Principal-dependent checks (roles, personas, superuser)
// are already folded to constants, so what remains references record
// fields only and can be pushed down into a storage query instead of
// filtering rows after the fact.
//
// The node set is closed; translators switch exhaustively over the
// concrete types.
type Predicate interface {
	pred()
	String() string
}

// PredConst is a constant predicate. A Const(true) forbid branch denies
// every row; a Const(false) permit disjunction matches none.
type PredConst struct {
	Value bool
}

// PredCmp is a single field comparison, carried over verbatim from the
// rule condition.
type PredCmp struct {
	Cmp *Comparison
}

// PredAnd holds when every child holds.
type PredAnd struct {
	Children []Predicate
}

// PredOr holds when any child holds.
type PredOr struct {
	Children []Predicate
}

// PredNot inverts its child.
type PredNot struct {
	Child Predicate
}

func (*PredConst) pred() {}
func (*PredCmp) pred()   {}
func (*PredAnd) pred()   {}
func (*PredOr) pred()    {}
func (*PredNot) pred()   {}

func (p *PredConst) String() string {
	if p.Value {
		return "true"
	}
	return "false"
}

func (p *PredCmp) String() string { return p.Cmp.String() }

func (p *PredAnd) String() string { return joinPreds(p.Children, " and ") }

func (p *PredOr) String() string { return joinPreds(p.Children, " or ") }

func (p *PredNot) String() string { return "not (" + p.Child.String() + ")" }

func joinPreds(children []Predicate, sep string) string {
	parts := make([]string, len(children))
	for i, c := range children {
		parts[i] = "(" + c.String() + ")"
	}
	return strings.Join(parts, sep)
}

// BuildPredicate compiles the read rules of a policy into a single
// predicate for the given principal:
//
//	(permit-1 or permit-2 or ...) and not (forbid-1 or forbid-2 or ...)
//
// Role and persona checks are evaluated against auth immediately and
// folded to constants. The result is simplified, so a principal with no
// applicable permit rules gets Const(false) and a superuser gets
// Const(true) without touching the rules at all.
func BuildPredicate(pol *EntityPolicy, auth *AuthContext) (Predicate, error) {
	if auth != nil && auth.Superuser {
		return &PredConst{Value: true}, nil
	}

	permits, err := effectDisjunction(pol, EffectPermit, auth)
	if err != nil {
		return nil, err
	}
	forbids, err := effectDisjunction(pol, EffectForbid, auth)
	if err != nil {
		return nil, err
	}

	return simplifyAnd([]Predicate{permits, simplifyNot(forbids)}), nil
}

// effectDisjunction ORs together the compiled conditions of every read
// rule with the given effect that applies to the principal's persona.
func effectDisjunction(pol *EntityPolicy, effect Effect, auth *AuthContext) (Predicate, error) {
	var children []Predicate
	for _, rule := range pol.rulesFor(effect, OperationRead) {
		if !rule.appliesToPersona(auth) {
			continue
		}
		if rule.Condition == nil {
			children = append(children, &PredConst{Value: true})
			continue
		}
		p, err := compileCondition(rule.Condition, auth)
		if err != nil {
			return nil, &RuleError{Rule: rule.Name, Cause: err}
		}
		children = append(children, p)
	}
	if len(children) == 0 {
		return &PredConst{Value: false}, nil
	}
	return simplifyOr(children), nil
}

// compileCondition lowers a condition to a predicate, folding principal
// checks to constants.
func compileCondition(cond Condition, auth *AuthContext) (Predicate, error) {
	switch c := cond.(type) {
	case *Comparison:
		return &PredCmp{Cmp: c}, nil

	case *RoleCheck:
		return &PredConst{Value: auth.HasRole(c.Role)}, nil

	case *PersonaCheck:
		matched := auth != nil && auth.Persona == c.Persona
		return &PredConst{Value: matched}, nil

	case *Logical:
		children := make([]Predicate, len(c.Children))
		for i, child := range c.Children {
			p, err := compileCondition(child, auth)
			if err != nil {
				return nil, err
			}
			children[i] = p
		}
		switch c.Op {
		case LogicalAnd:
			return simplifyAnd(children), nil
		case LogicalOr:
			return simplifyOr(children), nil
		case LogicalNot:
			if len(children) != 1 {
				return nil, &ConditionError{Field: c.String(), Cause: errNotArity}
			}
			return simplifyNot(children[0]), nil
		}
	}

	return nil, &ConditionError{Field: cond.String(), Cause: errUnknownCondition}
}

var (
	errNotArity         = errString("not condition must have exactly one child")
	errUnknownCondition = errString("unknown condition type")
)

type errString string

func (e errString) Error() string { return string(e) }

// simplifyAnd folds constants: a false child collapses the conjunction,
// true children drop out.
func simplifyAnd(children []Predicate) Predicate {
	var kept []Predicate
	for _, c := range children {
		if k, ok := c.(*PredConst); ok {
			if !k.Value {
				return &PredConst{Value: false}
			}
			continue
		}
		kept = append(kept, c)
	}
	switch len(kept) {
	case 0:
		return &PredConst{Value: true}
	case 1:
		return kept[0]
	}
	return &PredAnd{Children: kept}
}

// simplifyOr folds constants: a true child collapses the disjunction,
// false children drop out.
func simplifyOr(children []Predicate) Predicate {
	var kept []Predicate
	for _, c := range children {
		if k, ok := c.(*PredConst); ok {
			if k.Value {
				return &PredConst{Value: true}
			}
			continue
		}
		kept = append(kept, c)
	}
	switch len(kept) {
	case 0:
		return &PredConst{Value: false}
	case 1:
		return kept[0]
	}
	return &PredOr{Children: kept}
}

func simplifyNot(child Predicate) Predicate {
	if k, ok := child.(*PredConst); ok {
		return &PredConst{Value: !k.Value}
	}
	if n, ok := child.(*PredNot); ok {
		return n.Child
	}
	return &PredNot{Child: child}
}
