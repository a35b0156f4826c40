package policy

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/manwithacat/dazzle-sub014/pkg/expr"
	"github.com/manwithacat/dazzle-sub014/pkg/value"
)

// CompareOp is a comparison operator in the condition grammar.
type CompareOp string

const (
	CmpEq        CompareOp = "="
	CmpNe        CompareOp = "!="
	CmpLt        CompareOp = "<"
	CmpLe        CompareOp = "<="
	CmpGt        CompareOp = ">"
	CmpGe        CompareOp = ">="
	CmpIn        CompareOp = "in"
	CmpNotIn     CompareOp = "not in"
	CmpIsNull    CompareOp = "is null"
	CmpIsNotNull CompareOp = "is not null"
)

// LogicalOp is a logical connective in the condition grammar.
type LogicalOp string

const (
	LogicalAnd LogicalOp = "and"
	LogicalOr  LogicalOp = "or"
	LogicalNot LogicalOp = "not"
)

// Aggregate is an optional aggregate applied to a comparison's field path
// when the path resolves to a collection, e.g. line_items.count() > 0.
type Aggregate string

const (
	AggNone  Aggregate = ""
	AggCount Aggregate = "count"
	AggSum   Aggregate = "sum"
	AggAvg   Aggregate = "avg"
)

// Condition is a node in the restricted condition grammar used by access
// rules, invariants, and transition guards: comparisons and logical
// connectives only, no arithmetic and no general function calls, so every
// condition translates mechanically into both an in-memory predicate and
// a storage-layer filter. The node set is closed; consumers switch
// exhaustively over the concrete types.
type Condition interface {
	cond()
	String() string
}

// Operand is the right-hand side of a comparison: either a literal value
// or another field path.
type Operand struct {
	// Path, when non-empty, compares against another field.
	Path []string

	// Literal is the comparison value when Path is empty.
	Literal value.Value
}

// IsPath reports whether the operand is a field reference.
func (o Operand) IsPath() bool { return len(o.Path) > 0 }

// String renders the operand. String literals are quoted so they read
// unambiguously next to field paths.
func (o Operand) String() string {
	if o.IsPath() {
		return strings.Join(o.Path, ".")
	}
	if o.Literal.Kind() == value.KindString {
		return strconv.Quote(o.Literal.AsString())
	}
	return o.Literal.String()
}

// Comparison compares a field path (optionally aggregated) against a
// literal or another field.
type Comparison struct {
	Path      []string
	Aggregate Aggregate
	Op        CompareOp
	Right     Operand
}

// Logical combines child conditions with and/or/not. Not takes exactly
// one child.
type Logical struct {
	Op       LogicalOp
	Children []Condition
}

// RoleCheck holds iff the acting principal's role set contains Role.
type RoleCheck struct {
	Role string
}

// PersonaCheck holds iff the acting principal's persona equals Persona.
type PersonaCheck struct {
	Persona string
}

func (*Comparison) cond()   {}
func (*Logical) cond()      {}
func (*RoleCheck) cond()    {}
func (*PersonaCheck) cond() {}

// String renders the comparison.
func (c *Comparison) String() string {
	path := strings.Join(c.Path, ".")
	if c.Aggregate != AggNone {
		path = fmt.Sprintf("%s.%s()", path, c.Aggregate)
	}
	if c.Op == CmpIsNull || c.Op == CmpIsNotNull {
		return fmt.Sprintf("%s %s", path, c.Op)
	}
	return fmt.Sprintf("%s %s %s", path, c.Op, c.Right)
}

// String renders the logical connective.
func (l *Logical) String() string {
	if l.Op == LogicalNot {
		if len(l.Children) == 1 {
			return fmt.Sprintf("not (%s)", l.Children[0])
		}
		return "not (?)"
	}
	parts := make([]string, len(l.Children))
	for i, c := range l.Children {
		parts[i] = "(" + c.String() + ")"
	}
	return strings.Join(parts, " "+string(l.Op)+" ")
}

// String renders the role check.
func (r *RoleCheck) String() string { return fmt.Sprintf("role(%q)", r.Role) }

// String renders the persona check.
func (p *PersonaCheck) String() string { return fmt.Sprintf("persona(%q)", p.Persona) }

// FromExpr converts a parsed expression into a condition tree, enforcing
// the restricted grammar. Comparisons, and/or/not, membership tests, null
// checks, count/sum/avg aggregates over a path, and role(...)/persona(...)
// checks are accepted; arithmetic, conditionals, and other function calls
// are rejected.
func FromExpr(n expr.Node) (Condition, error) {
	switch node := n.(type) {
	case *expr.Binary:
		return fromBinary(node)

	case *expr.Unary:
		return fromUnary(node)

	case *expr.InSet:
		path, agg, err := comparisonPath(node.Value)
		if err != nil {
			return nil, err
		}
		set, err := literalSet(node.Elems)
		if err != nil {
			return nil, err
		}
		op := CmpIn
		if node.Negate {
			op = CmpNotIn
		}
		return &Comparison{Path: path, Aggregate: agg, Op: op, Right: Operand{Literal: set}}, nil

	case *expr.Call:
		switch node.Name {
		case "role", "persona":
			if len(node.Args) != 1 {
				return nil, conditionErr(n, "%s() takes one argument", node.Name)
			}
			lit, ok := node.Args[0].(*expr.Literal)
			if !ok || lit.Val.Kind() != value.KindString {
				return nil, conditionErr(n, "%s() argument must be a string literal", node.Name)
			}
			if node.Name == "role" {
				return &RoleCheck{Role: lit.Val.AsString()}, nil
			}
			return &PersonaCheck{Persona: lit.Val.AsString()}, nil
		}
	}

	return nil, conditionErr(n, "not expressible in the condition grammar")
}

var exprCmpOps = map[expr.BinaryOp]CompareOp{
	expr.OpEq: CmpEq, expr.OpNe: CmpNe, expr.OpLt: CmpLt,
	expr.OpLe: CmpLe, expr.OpGt: CmpGt, expr.OpGe: CmpGe,
}

func fromBinary(node *expr.Binary) (Condition, error) {
	switch node.Op {
	case expr.OpAnd, expr.OpOr:
		left, err := FromExpr(node.Left)
		if err != nil {
			return nil, err
		}
		right, err := FromExpr(node.Right)
		if err != nil {
			return nil, err
		}
		op := LogicalAnd
		if node.Op == expr.OpOr {
			op = LogicalOr
		}
		return &Logical{Op: op, Children: []Condition{left, right}}, nil
	}

	if op, ok := exprCmpOps[node.Op]; ok {
		path, agg, err := comparisonPath(node.Left)
		if err != nil {
			return nil, err
		}
		right, err := comparisonOperand(node.Right)
		if err != nil {
			return nil, err
		}
		return &Comparison{Path: path, Aggregate: agg, Op: op, Right: right}, nil
	}

	return nil, conditionErr(node, "operator %q is not expressible in the condition grammar", node.Op)
}

func fromUnary(node *expr.Unary) (Condition, error) {
	switch node.Op {
	case expr.OpNot:
		child, err := FromExpr(node.Operand)
		if err != nil {
			return nil, err
		}
		return &Logical{Op: LogicalNot, Children: []Condition{child}}, nil

	case expr.OpIsNull, expr.OpIsNotNull:
		path, agg, err := comparisonPath(node.Operand)
		if err != nil {
			return nil, err
		}
		op := CmpIsNull
		if node.Op == expr.OpIsNotNull {
			op = CmpIsNotNull
		}
		return &Comparison{Path: path, Aggregate: agg, Op: op}, nil
	}

	return nil, conditionErr(node, "operator %q is not expressible in the condition grammar", node.Op)
}

// comparisonPath extracts a field path and optional aggregate from a
// comparison side.
func comparisonPath(n expr.Node) ([]string, Aggregate, error) {
	switch node := n.(type) {
	case *expr.FieldRef:
		return node.Path, AggNone, nil

	case *expr.Call:
		agg := Aggregate(node.Name)
		if agg != AggCount && agg != AggSum && agg != AggAvg {
			return nil, AggNone, conditionErr(n, "function %q is not expressible in the condition grammar", node.Name)
		}
		if len(node.Args) != 1 {
			return nil, AggNone, conditionErr(n, "%s() over a field path takes no extra arguments", node.Name)
		}
		ref, ok := node.Args[0].(*expr.FieldRef)
		if !ok {
			return nil, AggNone, conditionErr(n, "%s() must aggregate a field path", node.Name)
		}
		return ref.Path, agg, nil
	}

	return nil, AggNone, conditionErr(n, "comparison left side must be a field path")
}

func comparisonOperand(n expr.Node) (Operand, error) {
	switch node := n.(type) {
	case *expr.Literal:
		return Operand{Literal: node.Val}, nil
	case *expr.FieldRef:
		return Operand{Path: node.Path}, nil
	case *expr.SetLit:
		set, err := literalSet(node.Elems)
		if err != nil {
			return Operand{}, err
		}
		return Operand{Literal: set}, nil
	}
	return Operand{}, conditionErr(n, "comparison right side must be a literal or field path")
}

func literalSet(elems []expr.Node) (value.Value, error) {
	vals := make([]value.Value, len(elems))
	for i, e := range elems {
		lit, ok := e.(*expr.Literal)
		if !ok {
			return value.Null(), conditionErr(e, "set elements must be literals")
		}
		vals[i] = lit.Val
	}
	return value.Set(vals...), nil
}

func conditionErr(n expr.Node, format string, args ...any) error {
	return fmt.Errorf("%s: %s", n.Pos(), fmt.Sprintf(format, args...))
}
