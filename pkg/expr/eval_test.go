package expr

import (
	"errors"
	"testing"

	"github.com/manwithacat/dazzle-sub014/pkg/value"
)

func evalSrc(t *testing.T, src string, ctx *Context) value.Value {
	t.Helper()
	v, err := Eval(mustParse(t, src), ctx)
	if err != nil {
		t.Fatalf("Eval(%q): %v", src, err)
	}
	return v
}

func TestEvalNullPropagation(t *testing.T) {
	ctx := &Context{Record: Record{
		"amount": value.Null(),
		"limit":  value.Int(100),
	}}

	tests := []struct {
		name string
		src  string
		want value.Value
	}{
		{"null comparison is null", "amount > 0", value.Null()},
		{"null arithmetic is null", "amount + 1", value.Null()},
		{"absent field is null", "missing = 1", value.Null()},
		{"is null observes directly", "amount is null", value.Bool(true)},
		{"is not null observes directly", "amount is not null", value.Bool(false)},
		{"present field is not null", "limit is not null", value.Bool(true)},
		{"null in set is null", `amount in [1, 2]`, value.Null()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := evalSrc(t, tt.src, ctx)
			if got.Kind() != tt.want.Kind() || got.String() != tt.want.String() {
				t.Errorf("Eval(%q) = %s, want %s", tt.src, got, tt.want)
			}
		})
	}
}

func TestEvalLogicalAbsorption(t *testing.T) {
	ctx := &Context{Record: Record{
		"unknown_flag": value.Null(),
		"yes":          value.Bool(true),
		"no":           value.Bool(false),
	}}

	tests := []struct {
		name string
		src  string
		want value.Value
	}{
		{"null and false is false", "unknown_flag and no", value.Bool(false)},
		{"false and null is false", "no and unknown_flag", value.Bool(false)},
		{"null and true is null", "unknown_flag and yes", value.Null()},
		{"null or true is true", "unknown_flag or yes", value.Bool(true)},
		{"true or null is true", "yes or unknown_flag", value.Bool(true)},
		{"null or false is null", "unknown_flag or no", value.Null()},
		{"not null is null", "not unknown_flag", value.Null()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := evalSrc(t, tt.src, ctx)
			if got.Kind() != tt.want.Kind() || got.String() != tt.want.String() {
				t.Errorf("Eval(%q) = %s, want %s", tt.src, got, tt.want)
			}
		})
	}
}

func TestEvalConditionalUnknownPredicate(t *testing.T) {
	ctx := &Context{Record: Record{"flag": value.Null()}}

	// An Unknown predicate selects the else branch, like SQL CASE.
	got := evalSrc(t, "if flag then 1 else 2", ctx)
	if got.AsInt() != 2 {
		t.Errorf("unknown predicate selected %s, want else branch 2", got)
	}
}

func TestEvalRelationTraversal(t *testing.T) {
	owner := &Context{Record: Record{
		"id":      value.String("u1"),
		"team_id": value.String("t9"),
	}}
	ctx := &Context{
		Record:  Record{"team_id": value.String("t9")},
		Related: map[string]*Context{"owner": owner},
	}

	got := evalSrc(t, "owner.team_id = team_id", ctx)
	if !got.AsBool() {
		t.Errorf("owner.team_id = team_id evaluated %s", got)
	}

	// Final to-one segment resolves to the related record's id.
	got = evalSrc(t, `owner = "u1"`, ctx)
	if !got.AsBool() {
		t.Errorf("owner = \"u1\" evaluated %s", got)
	}
}

func TestEvalAbsentRelationIsNull(t *testing.T) {
	ctx := &Context{
		Record:  Record{"x": value.Int(1)},
		Related: map[string]*Context{"owner": nil},
	}

	got := evalSrc(t, "owner.team_id", ctx)
	if !got.IsNull() {
		t.Errorf("path through unset relation = %s, want null", got)
	}

	got = evalSrc(t, "owner is null", ctx)
	if !got.AsBool() {
		t.Errorf("unset relation should be null")
	}
}

func TestEvalToManyTraversal(t *testing.T) {
	items := []*Context{
		{Record: Record{"price": value.Int(10), "quantity": value.Int(1)}},
		{Record: Record{"price": value.Int(20), "quantity": value.Int(2)}},
	}
	ctx := &Context{
		Record:      Record{},
		RelatedMany: map[string][]*Context{"line_items": items},
	}

	got := evalSrc(t, "line_items.count()", ctx)
	if got.AsInt() != 2 {
		t.Errorf("count = %s, want 2", got)
	}

	got = evalSrc(t, "sum(line_items.price)", ctx)
	if got.Kind() != value.KindInt || got.AsInt() != 30 {
		t.Errorf("sum = %s (%s), want 30", got, got.Kind())
	}

	got = evalSrc(t, "avg(line_items.price)", ctx)
	if got.String() != "15" {
		t.Errorf("avg = %s, want 15", got)
	}
}

func TestEvalHopLimit(t *testing.T) {
	// A cyclic parent chain exceeds any finite hop budget.
	a := &Context{Record: Record{"name": value.String("a")}, MaxHops: 3}
	a.Related = map[string]*Context{"parent": a}

	_, err := Eval(mustParse(t, "parent.parent.parent.parent.name"), a)
	var evalErr *EvalError
	if !errors.As(err, &evalErr) {
		t.Fatalf("deep traversal error = %v, want *EvalError", err)
	}
}

func TestEvalBuiltins(t *testing.T) {
	ctx := &Context{Record: Record{
		"first": value.String("Ada"),
		"last":  value.String("Lovelace"),
		"none":  value.Null(),
	}}

	tests := []struct {
		name string
		src  string
		want string
	}{
		{"concat", `concat(first, last)`, "AdaLovelace"},
		{"concat null propagates", `concat(first, none)`, "null"},
		{"length", "length(first)", "3"},
		{"substring", "substring(last, 0, 4)", "Love"},
		{"substring clamps", "substring(first, 1, 99)", "da"},
		{"coalesce null", "coalesce(none, 42)", "42"},
		{"coalesce non-null", "coalesce(first, last)", "Ada"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := evalSrc(t, tt.src, ctx)
			if got.String() != tt.want {
				t.Errorf("Eval(%q) = %s, want %s", tt.src, got, tt.want)
			}
		})
	}
}

func TestEvalRuntimeErrors(t *testing.T) {
	ctx := &Context{Record: Record{
		"zero": value.Int(0),
		"name": value.String("x"),
	}}

	tests := []struct {
		name string
		src  string
	}{
		{"division by zero", "1 / zero"},
		{"negative substring", "substring(name, -1, 2)"},
		{"principal check without context", `role("admin")`},
		{"truthiness of string", "name and true"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Eval(mustParse(t, tt.src), ctx)
			var evalErr *EvalError
			if !errors.As(err, &evalErr) {
				t.Fatalf("Eval(%q) error = %v, want *EvalError", tt.src, err)
			}
		})
	}
}

func TestEvalAggregateSkipsNulls(t *testing.T) {
	items := []*Context{
		{Record: Record{"price": value.Int(10)}},
		{Record: Record{"price": value.Null()}},
		{Record: Record{"price": value.Int(20)}},
	}
	ctx := &Context{RelatedMany: map[string][]*Context{"line_items": items}}

	got := evalSrc(t, "sum(line_items.price)", ctx)
	if got.AsInt() != 30 {
		t.Errorf("sum skipping nulls = %s, want 30", got)
	}

	// count includes null elements; it counts records, not values.
	got = evalSrc(t, "line_items.count()", ctx)
	if got.AsInt() != 3 {
		t.Errorf("count = %s, want 3", got)
	}
}

func TestEvalDecimalExactness(t *testing.T) {
	ctx := &Context{Record: Record{}}

	got := evalSrc(t, "0.1 + 0.2", ctx)
	if got.String() != "0.3" {
		t.Errorf("0.1 + 0.2 = %s, want exactly 0.3", got)
	}

	got = evalSrc(t, "0.1 + 0.2 = 0.3", ctx)
	if !got.AsBool() {
		t.Errorf("0.1 + 0.2 = 0.3 should hold under exact decimals")
	}
}
