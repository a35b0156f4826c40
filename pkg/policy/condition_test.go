package policy

import (
	"testing"

	"github.com/manwithacat/dazzle-sub014/pkg/expr"
)

func mustCondition(t *testing.T, src string) Condition {
	t.Helper()
	n, err := expr.Parse(src)
	if err != nil {
		t.Fatalf("Parse(%q): %v", src, err)
	}
	cond, err := FromExpr(n)
	if err != nil {
		t.Fatalf("FromExpr(%q): %v", src, err)
	}
	return cond
}

func TestFromExprAccepted(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string // rendered condition
	}{
		{"comparison with literal", "amount > 0", "amount > 0"},
		{"comparison with field", "owner.team_id = team_id", "owner.team_id = team_id"},
		{"null check", "amount is null", "amount is null"},
		{"not null check", "amount is not null", "amount is not null"},
		{"conjunction", "a = 1 and b = 2", "(a = 1) and (b = 2)"},
		{"disjunction", "a = 1 or b = 2", "(a = 1) or (b = 2)"},
		{"negation", "not (a = 1)", "not (a = 1)"},
		{"membership", `status in ["draft", "open"]`, "status in {draft, open}"},
		{"negated membership", `status not in ["closed"]`, "status not in {closed}"},
		{"count aggregate", "line_items.count() > 0", "line_items.count() > 0"},
		{"sum aggregate", "sum(line_items.price) >= 100", "line_items.price.sum() >= 100"},
		{"role check", `role("admin")`, `role("admin")`},
		{"persona check", `persona("clerk")`, `persona("clerk")`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cond := mustCondition(t, tt.src)
			if got := cond.String(); got != tt.want {
				t.Errorf("FromExpr(%q).String() = %q, want %q", tt.src, got, tt.want)
			}
		})
	}
}

func TestFromExprRejected(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"arithmetic", "amount + tax > 0"},
		{"conditional", "if a then b else c"},
		{"general function", "length(name) > 3"},
		{"bare literal", "true"},
		{"aggregate over call", "count(count(x)) > 0"},
		{"non-literal set element", "a in [b, 2]"},
		{"role with non-literal", "role(name)"},
		{"comparison of two literals", "1 = 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := expr.Parse(tt.src)
			if err != nil {
				t.Fatalf("Parse(%q): %v", tt.src, err)
			}
			if _, err := FromExpr(n); err == nil {
				t.Errorf("FromExpr(%q) should be rejected", tt.src)
			}
		})
	}
}

func TestFromExprComparisonShape(t *testing.T) {
	cond := mustCondition(t, "line_items.count() > 0")
	cmp, ok := cond.(*Comparison)
	if !ok {
		t.Fatalf("condition is %T, want *Comparison", cond)
	}
	if cmp.Aggregate != AggCount {
		t.Errorf("aggregate = %q, want count", cmp.Aggregate)
	}
	if len(cmp.Path) != 1 || cmp.Path[0] != "line_items" {
		t.Errorf("path = %v", cmp.Path)
	}
	if cmp.Op != CmpGt {
		t.Errorf("op = %q", cmp.Op)
	}
	if cmp.Right.IsPath() {
		t.Errorf("right operand should be a literal")
	}
}
