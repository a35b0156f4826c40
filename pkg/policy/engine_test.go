package policy

import (
	"context"
	"testing"

	"github.com/manwithacat/dazzle-sub014/pkg/expr"
	"github.com/manwithacat/dazzle-sub014/pkg/value"
)

// documentPolicy models a document entity: owners may read and update,
// everyone with the viewer role may read, archived documents reject
// updates outright.
func documentPolicy(t *testing.T) *EntityPolicy {
	t.Helper()
	return &EntityPolicy{
		Entity: "Document",
		Rules: []AccessRule{
			{
				Name:      "no-update-archived",
				Effect:    EffectForbid,
				Operation: OperationUpdate,
				Condition: mustCondition(t, "archived = true"),
			},
			{
				Name:      "owner-can-update",
				Effect:    EffectPermit,
				Operation: OperationUpdate,
				Condition: mustCondition(t, "owner_id = principal_id"),
			},
			{
				Name:      "viewer-can-read",
				Effect:    EffectPermit,
				Operation: OperationRead,
				Condition: mustCondition(t, `role("viewer")`),
			},
		},
	}
}

func docInput(record expr.Record, auth *AuthContext) *Input {
	return &Input{Record: &expr.Context{Record: record}, Auth: auth}
}

func TestAuthorizeForbidOverridesPermit(t *testing.T) {
	engine := NewEngine(nil)
	pol := documentPolicy(t)

	// Owner of an archived document: the permit matches but the forbid
	// matched first and is absolute.
	input := docInput(expr.Record{
		"archived":     value.Bool(true),
		"owner_id":     value.String("u1"),
		"principal_id": value.String("u1"),
	}, &AuthContext{PrincipalID: "u1"})

	d, err := engine.Authorize(context.Background(), pol, OperationUpdate, input)
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if d.Outcome != OutcomeDeny || d.Reason != ReasonForbid || d.Rule != "no-update-archived" {
		t.Errorf("decision = %+v, want forbid by no-update-archived", d)
	}
}

func TestAuthorizePermit(t *testing.T) {
	engine := NewEngine(nil)
	pol := documentPolicy(t)

	input := docInput(expr.Record{
		"archived":     value.Bool(false),
		"owner_id":     value.String("u1"),
		"principal_id": value.String("u1"),
	}, &AuthContext{PrincipalID: "u1"})

	d, err := engine.Authorize(context.Background(), pol, OperationUpdate, input)
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if d.Outcome != OutcomeAllow || d.Rule != "owner-can-update" {
		t.Errorf("decision = %+v, want allow by owner-can-update", d)
	}
}

func TestAuthorizeDefaultDeny(t *testing.T) {
	engine := NewEngine(nil)
	pol := documentPolicy(t)

	// Not the owner, no applicable rule matches.
	input := docInput(expr.Record{
		"archived":     value.Bool(false),
		"owner_id":     value.String("u1"),
		"principal_id": value.String("u2"),
	}, &AuthContext{PrincipalID: "u2"})

	d, err := engine.Authorize(context.Background(), pol, OperationUpdate, input)
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if d.Outcome != OutcomeDeny || d.Reason != ReasonDefaultDeny || d.Rule != "" {
		t.Errorf("decision = %+v, want default deny", d)
	}

	// An operation with no rules at all is also denied.
	d, err = engine.Authorize(context.Background(), pol, OperationDelete, input)
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if d.Outcome != OutcomeDeny || d.Reason != ReasonDefaultDeny {
		t.Errorf("decision = %+v, want default deny for unruled operation", d)
	}
}

func TestAuthorizeUnknownFailsClosed(t *testing.T) {
	engine := NewEngine(nil)
	pol := documentPolicy(t)

	// archived is Null: the forbid condition is Unknown, so the forbid
	// does not fire. owner_id is Null too, so the permit is Unknown as
	// well and the result is the default deny, never an allow.
	input := docInput(expr.Record{
		"archived":     value.Null(),
		"owner_id":     value.Null(),
		"principal_id": value.String("u1"),
	}, &AuthContext{PrincipalID: "u1"})

	d, err := engine.Authorize(context.Background(), pol, OperationUpdate, input)
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if d.Outcome != OutcomeDeny || d.Reason != ReasonDefaultDeny {
		t.Errorf("decision = %+v, want default deny under ambiguity", d)
	}
}

func TestAuthorizeSuperuserBypass(t *testing.T) {
	engine := NewEngine(nil)
	pol := documentPolicy(t)

	input := docInput(expr.Record{
		"archived": value.Bool(true),
	}, &AuthContext{PrincipalID: "root", Superuser: true})

	d, err := engine.Authorize(context.Background(), pol, OperationUpdate, input)
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if d.Outcome != OutcomeAllow || d.Reason != ReasonSuperuser || d.Rule != "" {
		t.Errorf("decision = %+v, want superuser allow", d)
	}
}

func TestAuthorizeRoleAndPersona(t *testing.T) {
	engine := NewEngine(nil)
	pol := documentPolicy(t)
	record := expr.Record{"archived": value.Bool(false)}

	d, err := engine.Authorize(context.Background(), pol, OperationRead,
		docInput(record, &AuthContext{PrincipalID: "u2", Roles: []string{"viewer"}}))
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if d.Outcome != OutcomeAllow || d.Rule != "viewer-can-read" {
		t.Errorf("decision = %+v, want allow by viewer-can-read", d)
	}

	d, err = engine.Authorize(context.Background(), pol, OperationRead,
		docInput(record, &AuthContext{PrincipalID: "u2"}))
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if d.Outcome != OutcomeDeny {
		t.Errorf("decision = %+v, want deny without the role", d)
	}
}

func TestAuthorizePersonaScoping(t *testing.T) {
	engine := NewEngine(nil)
	pol := &EntityPolicy{
		Entity: "Report",
		Rules: []AccessRule{
			{
				Name:            "clerks-can-read",
				Effect:          EffectPermit,
				Operation:       OperationRead,
				AllowedPersonas: []string{"clerk"},
			},
			{
				Name:           "not-contractors",
				Effect:         EffectPermit,
				Operation:      OperationDelete,
				DeniedPersonas: []string{"contractor"},
			},
		},
	}
	record := expr.Record{}

	tests := []struct {
		name    string
		op      Operation
		persona string
		want    Outcome
	}{
		{"allowed persona matches", OperationRead, "clerk", OutcomeAllow},
		{"other persona excluded", OperationRead, "auditor", OutcomeDeny},
		{"denied persona excluded", OperationDelete, "contractor", OutcomeDeny},
		{"undenied persona passes", OperationDelete, "clerk", OutcomeAllow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := engine.Authorize(context.Background(), pol, tt.op,
				docInput(record, &AuthContext{PrincipalID: "u1", Persona: tt.persona}))
			if err != nil {
				t.Fatalf("Authorize: %v", err)
			}
			if d.Outcome != tt.want {
				t.Errorf("decision = %+v, want %s", d, tt.want)
			}
		})
	}
}

func TestAuthorizeUnresolvedRelationFailsClosed(t *testing.T) {
	engine := NewEngine(nil)
	pol := &EntityPolicy{
		Entity: "Task",
		Rules: []AccessRule{
			{
				Name:      "team-member-can-read",
				Effect:    EffectPermit,
				Operation: OperationRead,
				Condition: mustCondition(t, "project.team_id = team_id"),
			},
		},
	}

	// The project relation was never resolved: the comparison is
	// Unknown and the permit must not fire.
	input := &Input{
		Record: &expr.Context{
			Record:  expr.Record{"team_id": value.String("t1")},
			Related: map[string]*expr.Context{"project": nil},
		},
		Auth: &AuthContext{PrincipalID: "u1"},
	}

	d, err := engine.Authorize(context.Background(), pol, OperationRead, input)
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if d.Outcome != OutcomeDeny {
		t.Errorf("decision = %+v, want deny for unresolved relation", d)
	}
}

func TestFilterVisible(t *testing.T) {
	engine := NewEngine(nil)
	pol := &EntityPolicy{
		Entity: "Note",
		Rules: []AccessRule{
			{
				Name:      "own-notes",
				Effect:    EffectPermit,
				Operation: OperationRead,
				Condition: mustCondition(t, "owner_id = principal_id"),
			},
		},
	}

	records := []*expr.Context{
		{Record: expr.Record{"id": value.String("n1"), "owner_id": value.String("u1"), "principal_id": value.String("u1")}},
		{Record: expr.Record{"id": value.String("n2"), "owner_id": value.String("u2"), "principal_id": value.String("u1")}},
		{Record: expr.Record{"id": value.String("n3"), "owner_id": value.String("u1"), "principal_id": value.String("u1")}},
	}

	visible, err := engine.FilterVisible(context.Background(), pol, records, &AuthContext{PrincipalID: "u1"})
	if err != nil {
		t.Fatalf("FilterVisible: %v", err)
	}
	if len(visible) != 2 {
		t.Fatalf("visible = %d records, want 2", len(visible))
	}
	for _, rec := range visible {
		if rec.Field("owner_id").AsString() != "u1" {
			t.Errorf("leaked record %s", rec.Field("id"))
		}
	}
}

func TestMatcherAggregate(t *testing.T) {
	m := NewMatcher(nil)
	items := []*expr.Context{
		{Record: expr.Record{"price": value.Int(10)}},
		{Record: expr.Record{"price": value.Int(20)}},
	}
	input := &Input{
		Record: &expr.Context{
			Record:      expr.Record{},
			RelatedMany: map[string][]*expr.Context{"line_items": items},
		},
	}

	tests := []struct {
		name string
		src  string
		want value.Tristate
	}{
		{"count", "line_items.count() > 1", value.True},
		{"sum", "sum(line_items.price) = 30", value.True},
		{"avg", "avg(line_items.price) < 10", value.False},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.Match(context.Background(), mustCondition(t, tt.src), input)
			if err != nil {
				t.Fatalf("Match(%q): %v", tt.src, err)
			}
			if got != tt.want {
				t.Errorf("Match(%q) = %s, want %s", tt.src, got, tt.want)
			}
		})
	}
}

func TestMatcherNilConditionMatches(t *testing.T) {
	m := NewMatcher(nil)
	got, err := m.Match(context.Background(), nil, &Input{Record: &expr.Context{}})
	if err != nil || got != value.True {
		t.Errorf("nil condition = %s, %v, want true", got, err)
	}
}
