package expr

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/manwithacat/dazzle-sub014/pkg/value"
)

// builtin describes one builtin function: fixed arity, a static signature
// check, and the runtime implementation.
type builtin struct {
	arity int
	check func(node *Call, args []Type) (Type, error)
	eval  func(pos Position, args []value.Value) (value.Value, error)
}

var builtins = map[string]builtin{
	"concat": {
		arity: 2,
		check: func(node *Call, args []Type) (Type, error) {
			for _, a := range args {
				if err := wantKind(node, a, TypeString); err != nil {
					return Type{}, err
				}
			}
			return Type{Kind: TypeString}, nil
		},
		eval: func(pos Position, args []value.Value) (value.Value, error) {
			if args[0].IsNull() || args[1].IsNull() {
				return value.Null(), nil
			}
			return value.String(args[0].AsString() + args[1].AsString()), nil
		},
	},

	"substring": {
		arity: 3,
		check: func(node *Call, args []Type) (Type, error) {
			if err := wantKind(node, args[0], TypeString); err != nil {
				return Type{}, err
			}
			if err := wantKind(node, args[1], TypeInt); err != nil {
				return Type{}, err
			}
			if err := wantKind(node, args[2], TypeInt); err != nil {
				return Type{}, err
			}
			return Type{Kind: TypeString}, nil
		},
		eval: func(pos Position, args []value.Value) (value.Value, error) {
			for _, a := range args {
				if a.IsNull() {
					return value.Null(), nil
				}
			}
			runes := []rune(args[0].AsString())
			start, length := args[1].AsInt(), args[2].AsInt()
			if start < 0 || length < 0 {
				return value.Null(), &EvalError{Pos: pos, Reason: "substring start and length must be non-negative"}
			}
			if start > int64(len(runes)) {
				return value.String(""), nil
			}
			end := start + length
			if end > int64(len(runes)) {
				end = int64(len(runes))
			}
			return value.String(string(runes[start:end])), nil
		},
	},

	"length": {
		arity: 1,
		check: func(node *Call, args []Type) (Type, error) {
			if err := wantKind(node, args[0], TypeString); err != nil {
				return Type{}, err
			}
			return Type{Kind: TypeInt}, nil
		},
		eval: func(pos Position, args []value.Value) (value.Value, error) {
			if args[0].IsNull() {
				return value.Null(), nil
			}
			return value.Int(int64(len([]rune(args[0].AsString())))), nil
		},
	},

	"count": {
		arity: 1,
		check: func(node *Call, args []Type) (Type, error) {
			if err := wantKind(node, args[0], TypeSet); err != nil {
				return Type{}, err
			}
			return Type{Kind: TypeInt}, nil
		},
		eval: func(pos Position, args []value.Value) (value.Value, error) {
			if args[0].IsNull() {
				return value.Null(), nil
			}
			if args[0].Kind() != value.KindSet {
				return value.Null(), &EvalError{Pos: pos, Reason: "count requires a collection"}
			}
			return value.Int(int64(len(args[0].AsSet()))), nil
		},
	},

	"sum": {
		arity: 1,
		check: checkNumericAggregate,
		eval: func(pos Position, args []value.Value) (value.Value, error) {
			elems, err := numericElems(pos, "sum", args[0])
			if err != nil || elems == nil {
				return value.Null(), err
			}
			if len(elems) == 0 {
				return value.Null(), nil
			}
			total := decimal.Zero
			allInt := true
			for _, e := range elems {
				total = total.Add(e.AsDecimal())
				if e.Kind() != value.KindInt {
					allInt = false
				}
			}
			if allInt {
				return value.Int(total.IntPart()), nil
			}
			return value.Decimal(total), nil
		},
	},

	"avg": {
		arity: 1,
		check: checkNumericAggregate,
		eval: func(pos Position, args []value.Value) (value.Value, error) {
			elems, err := numericElems(pos, "avg", args[0])
			if err != nil || elems == nil {
				return value.Null(), err
			}
			if len(elems) == 0 {
				return value.Null(), nil
			}
			total := decimal.Zero
			for _, e := range elems {
				total = total.Add(e.AsDecimal())
			}
			return value.Decimal(total.Div(decimal.NewFromInt(int64(len(elems))))), nil
		},
	},

	// role and persona are principal checks. They type-check as bool so
	// rule conditions that use them pass static validation, but they
	// carry no meaning in a bare record evaluation; the condition
	// evaluator substitutes the acting principal's role set and persona.
	"role": {
		arity: 1,
		check: checkPrincipalCheck,
		eval:  evalPrincipalCheck("role"),
	},

	"persona": {
		arity: 1,
		check: checkPrincipalCheck,
		eval:  evalPrincipalCheck("persona"),
	},

	"coalesce": {
		arity: 2,
		check: func(node *Call, args []Type) (Type, error) {
			unified, ok := unify(args[0], args[1])
			if !ok {
				return Type{}, &TypeError{Pos: node.Position, Expected: args[0].String(), Actual: args[1].String()}
			}
			return unified, nil
		},
		eval: func(pos Position, args []value.Value) (value.Value, error) {
			if !args[0].IsNull() {
				return args[0], nil
			}
			return args[1], nil
		},
	},
}

func checkPrincipalCheck(node *Call, args []Type) (Type, error) {
	if err := wantKind(node, args[0], TypeString); err != nil {
		return Type{}, err
	}
	return Type{Kind: TypeBool}, nil
}

func evalPrincipalCheck(name string) func(Position, []value.Value) (value.Value, error) {
	return func(pos Position, args []value.Value) (value.Value, error) {
		return value.Null(), &EvalError{
			Pos:    pos,
			Reason: name + "() requires a principal context and cannot be evaluated here",
		}
	}
}

func checkNumericAggregate(node *Call, args []Type) (Type, error) {
	if err := wantKind(node, args[0], TypeSet); err != nil {
		return Type{}, err
	}
	elem := args[0].Elem
	if elem != nil && !elem.IsNumeric() && elem.Kind != TypeAny && elem.Kind != TypeNull {
		return Type{}, &TypeError{Pos: node.Position, Expected: "set of numeric", Actual: args[0].String()}
	}
	return Type{Kind: TypeDecimal}, nil
}

// numericElems extracts the non-null numeric elements of a set aggregate
// argument; nulls are skipped per SQL aggregate semantics.
func numericElems(pos Position, name string, v value.Value) ([]value.Value, error) {
	if v.IsNull() {
		return nil, nil
	}
	if v.Kind() != value.KindSet {
		return nil, &EvalError{Pos: pos, Reason: name + " requires a collection"}
	}
	elems := make([]value.Value, 0, len(v.AsSet()))
	for _, e := range v.AsSet() {
		if e.IsNull() {
			continue
		}
		if !e.IsNumeric() {
			return nil, &EvalError{Pos: pos, Reason: fmt.Sprintf("%s requires numeric elements, got %s", name, e.Kind())}
		}
		elems = append(elems, e)
	}
	return elems, nil
}

func wantKind(node *Call, t Type, kind TypeKind) error {
	if t.Kind == kind || t.Kind == TypeNull || t.Kind == TypeAny {
		return nil
	}
	return &TypeError{Pos: node.Position, Expected: Type{Kind: kind}.String(), Actual: t.String()}
}

// checkCall validates a builtin invocation's name, arity, and argument
// types.
func (c *Checker) checkCall(node *Call) (Type, error) {
	fn, ok := builtins[node.Name]
	if !ok {
		return Type{}, &TypeError{Pos: node.Position, Expected: "builtin function", Actual: fmt.Sprintf("unknown function %q", node.Name)}
	}
	if len(node.Args) != fn.arity {
		return Type{}, &TypeError{
			Pos:      node.Position,
			Expected: fmt.Sprintf("%d arguments to %s", fn.arity, node.Name),
			Actual:   fmt.Sprintf("%d arguments", len(node.Args)),
		}
	}
	args := make([]Type, len(node.Args))
	for i, a := range node.Args {
		t, err := c.Check(a)
		if err != nil {
			return Type{}, err
		}
		args[i] = t
	}
	return fn.check(node, args)
}

// evalCall evaluates a builtin invocation. Arity violations that escaped
// static checking surface as EvalErrors.
func evalCall(node *Call, ctx *Context) (value.Value, error) {
	fn, ok := builtins[node.Name]
	if !ok {
		return value.Null(), &EvalError{Pos: node.Position, Reason: fmt.Sprintf("unknown function %q", node.Name)}
	}
	if len(node.Args) != fn.arity {
		return value.Null(), &EvalError{
			Pos:    node.Position,
			Reason: fmt.Sprintf("%s expects %d arguments, got %d", node.Name, fn.arity, len(node.Args)),
		}
	}
	args := make([]value.Value, len(node.Args))
	for i, a := range node.Args {
		v, err := Eval(a, ctx)
		if err != nil {
			return value.Null(), err
		}
		args[i] = v
	}
	return fn.eval(node.Position, args)
}
