package policy

import "testing"

func readPolicy(t *testing.T) *EntityPolicy {
	t.Helper()
	return &EntityPolicy{
		Entity: "Document",
		Rules: []AccessRule{
			{
				Name:      "own-documents",
				Effect:    EffectPermit,
				Operation: OperationRead,
				Condition: mustCondition(t, "owner_id = principal_id"),
			},
			{
				Name:      "viewers-see-published",
				Effect:    EffectPermit,
				Operation: OperationRead,
				Condition: mustCondition(t, `role("viewer") and status = "published"`),
			},
			{
				Name:      "hide-archived",
				Effect:    EffectForbid,
				Operation: OperationRead,
				Condition: mustCondition(t, "archived = true"),
			},
		},
	}
}

func TestBuildPredicateSuperuser(t *testing.T) {
	p, err := BuildPredicate(readPolicy(t), &AuthContext{Superuser: true})
	if err != nil {
		t.Fatalf("BuildPredicate: %v", err)
	}
	k, ok := p.(*PredConst)
	if !ok || !k.Value {
		t.Errorf("superuser predicate = %s, want true", p)
	}
}

func TestBuildPredicateNoPermits(t *testing.T) {
	pol := &EntityPolicy{Entity: "Document"}
	p, err := BuildPredicate(pol, &AuthContext{PrincipalID: "u1"})
	if err != nil {
		t.Fatalf("BuildPredicate: %v", err)
	}
	k, ok := p.(*PredConst)
	if !ok || k.Value {
		t.Errorf("predicate with no permits = %s, want false", p)
	}
}

func TestBuildPredicateFoldsPrincipalChecks(t *testing.T) {
	// Without the viewer role the second permit folds to false and
	// drops out of the disjunction.
	p, err := BuildPredicate(readPolicy(t), &AuthContext{PrincipalID: "u1"})
	if err != nil {
		t.Fatalf("BuildPredicate: %v", err)
	}
	want := "(owner_id = principal_id) and (not (archived = true))"
	if got := p.String(); got != want {
		t.Errorf("predicate = %q, want %q", got, want)
	}
}

func TestBuildPredicateWithRole(t *testing.T) {
	// With the role, the role check folds to true and leaves only the
	// record comparison.
	p, err := BuildPredicate(readPolicy(t), &AuthContext{PrincipalID: "u1", Roles: []string{"viewer"}})
	if err != nil {
		t.Fatalf("BuildPredicate: %v", err)
	}
	want := `((owner_id = principal_id) or (status = "published")) and (not (archived = true))`
	if got := p.String(); got != want {
		t.Errorf("predicate = %q, want %q", got, want)
	}
}

func TestBuildPredicatePersonaScoping(t *testing.T) {
	pol := &EntityPolicy{
		Entity: "Report",
		Rules: []AccessRule{
			{
				Name:            "clerk-reads-all",
				Effect:          EffectPermit,
				Operation:       OperationRead,
				AllowedPersonas: []string{"clerk"},
			},
		},
	}

	p, err := BuildPredicate(pol, &AuthContext{Persona: "clerk"})
	if err != nil {
		t.Fatalf("BuildPredicate: %v", err)
	}
	if k, ok := p.(*PredConst); !ok || !k.Value {
		t.Errorf("clerk predicate = %s, want true", p)
	}

	p, err = BuildPredicate(pol, &AuthContext{Persona: "auditor"})
	if err != nil {
		t.Fatalf("BuildPredicate: %v", err)
	}
	if k, ok := p.(*PredConst); !ok || k.Value {
		t.Errorf("auditor predicate = %s, want false", p)
	}
}
