package policy

// Effect is the declared effect of an access rule.
type Effect string

const (
	EffectPermit Effect = "permit"
	EffectForbid Effect = "forbid"
)

// Operation is the requested operation being authorized.
type Operation string

const (
	OperationCreate Operation = "create"
	OperationRead   Operation = "read"
	OperationUpdate Operation = "update"
	OperationDelete Operation = "delete"
)

// AccessRule is a single permit or forbid rule scoped to one operation.
type AccessRule struct {
	// Name identifies the rule for audit; decisions cite it.
	Name string

	// Effect is permit or forbid.
	Effect Effect

	// Operation the rule applies to.
	Operation Operation

	// Condition must hold for the rule to match. Nil means the rule
	// matches unconditionally (subject to persona scoping).
	Condition Condition

	// AllowedPersonas, when non-empty, restricts the rule to principals
	// acting under one of these personas.
	AllowedPersonas []string

	// DeniedPersonas, when non-empty, excludes principals acting under
	// any of these personas.
	DeniedPersonas []string
}

// appliesToPersona checks the rule's persona scoping. It runs before
// condition evaluation: the cheaper check first, layered on top of (not
// replacing) the condition.
func (r *AccessRule) appliesToPersona(auth *AuthContext) bool {
	persona := ""
	if auth != nil {
		persona = auth.Persona
	}

	for _, p := range r.DeniedPersonas {
		if p == persona {
			return false
		}
	}
	if len(r.AllowedPersonas) == 0 {
		return true
	}
	for _, p := range r.AllowedPersonas {
		if p == persona {
			return true
		}
	}
	return false
}

// EntityPolicy is the ordered access rule collection for one entity.
// Policies are read-only at evaluation time.
type EntityPolicy struct {
	Entity string
	Rules  []AccessRule
}

// rulesFor returns the rules with the given effect that apply to the
// operation, in declaration order.
func (p *EntityPolicy) rulesFor(effect Effect, op Operation) []*AccessRule {
	var out []*AccessRule
	for i := range p.Rules {
		r := &p.Rules[i]
		if r.Effect == effect && r.Operation == op {
			out = append(out, r)
		}
	}
	return out
}
