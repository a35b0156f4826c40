package expr

import (
	"fmt"

	"github.com/manwithacat/dazzle-sub014/pkg/value"
)

// DefaultMaxHops bounds relationship traversal during evaluation.
const DefaultMaxHops = 8

// Record maps field names to runtime values.
type Record map[string]value.Value

// Context is the concrete value context for one evaluation. The caller
// resolves and attaches related records before evaluating; the evaluator
// itself performs no I/O.
type Context struct {
	// Record holds the entity's own field values. A field absent from
	// the map evaluates to Null.
	Record Record

	// Related maps to-one relation names to their resolved record
	// contexts. A nil entry or a missing key means the relation is
	// unset; any path through it evaluates to Null.
	Related map[string]*Context

	// RelatedMany maps to-many relation names to their resolved record
	// contexts.
	RelatedMany map[string][]*Context

	// MaxHops bounds relation traversal depth. Zero means
	// DefaultMaxHops.
	MaxHops int
}

func (c *Context) maxHops() int {
	if c.MaxHops > 0 {
		return c.MaxHops
	}
	return DefaultMaxHops
}

// Field returns the record's value for a field name, Null when absent.
func (c *Context) Field(name string) value.Value {
	if c == nil || c.Record == nil {
		return value.Null()
	}
	if v, ok := c.Record[name]; ok {
		return v
	}
	return value.Null()
}

// Eval walks the AST against the context and produces a value, or an
// *EvalError for conditions the type checker cannot rule out. Null
// propagates through arithmetic and comparison per SQL semantics.
func Eval(n Node, ctx *Context) (value.Value, error) {
	if ctx == nil {
		ctx = &Context{}
	}

	switch node := n.(type) {
	case *Literal:
		return node.Val, nil

	case *FieldRef:
		return resolvePath(node.Position, node.Path, ctx, ctx.maxHops())

	case *Unary:
		return evalUnary(node, ctx)

	case *Binary:
		return evalBinary(node, ctx)

	case *Conditional:
		return evalConditional(node, ctx)

	case *Call:
		return evalCall(node, ctx)

	case *SetLit:
		elems := make([]value.Value, len(node.Elems))
		for i, e := range node.Elems {
			v, err := Eval(e, ctx)
			if err != nil {
				return value.Null(), err
			}
			elems[i] = v
		}
		return value.Set(elems...), nil

	case *InSet:
		return evalInSet(node, ctx)
	}

	return value.Null(), &EvalError{Reason: fmt.Sprintf("unknown node type %T", n)}
}

// ResolveField resolves a dotted field path against a context without
// evaluating a full expression. The condition evaluators use it to share
// the same traversal semantics (Null for unset relations, hop limit) as
// expression evaluation.
func ResolveField(ctx *Context, path []string) (value.Value, error) {
	if ctx == nil {
		ctx = &Context{}
	}
	return resolvePath(Position{}, path, ctx, ctx.maxHops())
}

// resolvePath walks a dotted path through the record and its resolved
// relations. An unset relation yields Null; traversal past maxHops
// relation crossings is an error. Crossing a to-many relation maps the
// remaining path over each related record, producing a set. A to-one
// relation as the final segment resolves to the related record's id
// field, which supports both null checks and key comparisons.
func resolvePath(pos Position, path []string, ctx *Context, maxHops int) (value.Value, error) {
	cur := ctx
	hops := 0

	for i, seg := range path {
		last := i == len(path)-1

		if rel, ok := cur.Related[seg]; ok {
			hops++
			if hops > maxHops {
				return value.Null(), &EvalError{
					Pos:    pos,
					Reason: fmt.Sprintf("relationship traversal exceeds %d hops", maxHops),
				}
			}
			if rel == nil {
				return value.Null(), nil
			}
			if last {
				return rel.Field("id"), nil
			}
			cur = rel
			continue
		}

		if many, ok := cur.RelatedMany[seg]; ok {
			hops++
			if hops > maxHops {
				return value.Null(), &EvalError{
					Pos:    pos,
					Reason: fmt.Sprintf("relationship traversal exceeds %d hops", maxHops),
				}
			}
			var elems []value.Value
			for _, sub := range many {
				if sub == nil {
					continue
				}
				if last {
					elems = append(elems, sub.Field("id"))
					continue
				}
				v, err := resolvePath(pos, path[i+1:], sub, maxHops-hops)
				if err != nil {
					return value.Null(), err
				}
				// Nested to-many traversals flatten into one set.
				if v.Kind() == value.KindSet {
					elems = append(elems, v.AsSet()...)
				} else {
					elems = append(elems, v)
				}
			}
			return value.Set(elems...), nil
		}

		if !last {
			// The caller did not resolve this relation; the whole
			// path evaluates to Null (fails closed downstream).
			return value.Null(), nil
		}

		return cur.Field(seg), nil
	}

	return value.Null(), nil
}

func evalUnary(node *Unary, ctx *Context) (value.Value, error) {
	operand, err := Eval(node.Operand, ctx)
	if err != nil {
		return value.Null(), err
	}

	switch node.Op {
	case OpNot:
		t, err := value.Truth(operand)
		if err != nil {
			return value.Null(), &EvalError{Pos: node.Position, Reason: "not operand", Cause: err}
		}
		return tristateValue(t.Not()), nil

	case OpNeg:
		v, err := value.Neg(operand)
		if err != nil {
			return value.Null(), &EvalError{Pos: node.Position, Reason: "negation", Cause: err}
		}
		return v, nil

	case OpIsNull:
		return value.Bool(operand.IsNull()), nil

	case OpIsNotNull:
		return value.Bool(!operand.IsNull()), nil
	}

	return value.Null(), &EvalError{Pos: node.Position, Reason: fmt.Sprintf("unknown unary operator %q", node.Op)}
}

var binaryCmpOps = map[BinaryOp]value.CmpOp{
	OpEq: value.OpEq, OpNe: value.OpNe, OpLt: value.OpLt,
	OpLe: value.OpLe, OpGt: value.OpGt, OpGe: value.OpGe, OpIn: value.OpIn,
}

func evalBinary(node *Binary, ctx *Context) (value.Value, error) {
	// Logical connectives short-circuit on the absorbing operand, so
	// Null AND false is false and Null OR true is true even when the
	// Null side was evaluated first.
	if node.Op == OpAnd || node.Op == OpOr {
		return evalLogical(node, ctx)
	}

	left, err := Eval(node.Left, ctx)
	if err != nil {
		return value.Null(), err
	}
	right, err := Eval(node.Right, ctx)
	if err != nil {
		return value.Null(), err
	}

	if op, ok := binaryCmpOps[node.Op]; ok {
		v, err := value.Compare(op, left, right)
		if err != nil {
			return value.Null(), &EvalError{Pos: node.Position, Reason: "comparison", Cause: err}
		}
		return v, nil
	}

	var v value.Value
	switch node.Op {
	case OpAdd:
		v, err = value.Add(left, right)
	case OpSub:
		v, err = value.Sub(left, right)
	case OpMul:
		v, err = value.Mul(left, right)
	case OpDiv:
		v, err = value.Div(left, right)
	default:
		return value.Null(), &EvalError{Pos: node.Position, Reason: fmt.Sprintf("unknown operator %q", node.Op)}
	}
	if err != nil {
		return value.Null(), &EvalError{Pos: node.Position, Reason: "arithmetic", Cause: err}
	}
	return v, nil
}

func evalLogical(node *Binary, ctx *Context) (value.Value, error) {
	left, err := Eval(node.Left, ctx)
	if err != nil {
		return value.Null(), err
	}
	lt, err := value.Truth(left)
	if err != nil {
		return value.Null(), &EvalError{Pos: node.Position, Reason: "logical operand", Cause: err}
	}

	// Short-circuit when the left side decides the result.
	if node.Op == OpAnd && lt == value.False {
		return value.Bool(false), nil
	}
	if node.Op == OpOr && lt == value.True {
		return value.Bool(true), nil
	}

	right, err := Eval(node.Right, ctx)
	if err != nil {
		return value.Null(), err
	}
	rt, err := value.Truth(right)
	if err != nil {
		return value.Null(), &EvalError{Pos: node.Position, Reason: "logical operand", Cause: err}
	}

	if node.Op == OpAnd {
		return tristateValue(lt.And(rt)), nil
	}
	return tristateValue(lt.Or(rt)), nil
}

func evalConditional(node *Conditional, ctx *Context) (value.Value, error) {
	cond, err := Eval(node.If, ctx)
	if err != nil {
		return value.Null(), err
	}
	t, err := value.Truth(cond)
	if err != nil {
		return value.Null(), &EvalError{Pos: node.Position, Reason: "conditional predicate", Cause: err}
	}
	// An Unknown predicate selects the else branch, mirroring SQL CASE.
	if t == value.True {
		return Eval(node.Then, ctx)
	}
	return Eval(node.Else, ctx)
}

func evalInSet(node *InSet, ctx *Context) (value.Value, error) {
	v, err := Eval(node.Value, ctx)
	if err != nil {
		return value.Null(), err
	}
	elems := make([]value.Value, len(node.Elems))
	for i, e := range node.Elems {
		ev, err := Eval(e, ctx)
		if err != nil {
			return value.Null(), err
		}
		elems[i] = ev
	}

	op := value.OpIn
	if node.Negate {
		op = value.OpNotIn
	}
	result, err := value.Compare(op, v, value.Set(elems...))
	if err != nil {
		return value.Null(), &EvalError{Pos: node.Position, Reason: "membership test", Cause: err}
	}
	return result, nil
}

func tristateValue(t value.Tristate) value.Value {
	switch t {
	case value.True:
		return value.Bool(true)
	case value.False:
		return value.Bool(false)
	default:
		return value.Null()
	}
}
