package expr

import (
	"fmt"

	"github.com/manwithacat/dazzle-sub014/pkg/schema"
	"github.com/manwithacat/dazzle-sub014/pkg/value"
)

// TypeKind identifies the variant of a static type.
type TypeKind int

const (
	TypeUnknown TypeKind = iota // inference placeholder
	TypeAny                     // escape hatch for dynamic containers
	TypeNull                    // the type of the null literal
	TypeBool
	TypeInt
	TypeDecimal
	TypeString
	TypeDate
	TypeDateTime
	TypeDuration
	TypeEnum
	TypeSet
	TypeRecord // an entity reference, valid only mid-path or for null checks
)

// Type is the static type of an expression. It exists only in the type
// checker; it never appears at runtime.
type Type struct {
	Kind   TypeKind
	Elem   *Type  // element type when Kind is TypeSet
	Enum   string // enum type name when Kind is TypeEnum
	Entity string // entity name when Kind is TypeRecord
}

// String renders the type for error messages.
func (t Type) String() string {
	switch t.Kind {
	case TypeUnknown:
		return "unknown"
	case TypeAny:
		return "any"
	case TypeNull:
		return "null"
	case TypeBool:
		return "bool"
	case TypeInt:
		return "int"
	case TypeDecimal:
		return "decimal"
	case TypeString:
		return "string"
	case TypeDate:
		return "date"
	case TypeDateTime:
		return "datetime"
	case TypeDuration:
		return "duration"
	case TypeEnum:
		return "enum " + t.Enum
	case TypeSet:
		if t.Elem == nil {
			return "set"
		}
		return "set of " + t.Elem.String()
	case TypeRecord:
		return "record " + t.Entity
	default:
		return fmt.Sprintf("type(%d)", int(t.Kind))
	}
}

// IsNumeric reports whether the type is Int or Decimal.
func (t Type) IsNumeric() bool {
	return t.Kind == TypeInt || t.Kind == TypeDecimal
}

// Checker infers and validates the type of every subexpression against a
// declared schema. This is an offline pass, run when a rule is authored or
// a build is validated, never per evaluation.
type Checker struct {
	schema *schema.Schema
	entity *schema.Entity
}

// NewChecker returns a checker that resolves field references starting
// from the given entity.
func NewChecker(s *schema.Schema, entity *schema.Entity) *Checker {
	return &Checker{schema: s, entity: entity}
}

// Check infers the type of the expression, failing with a *TypeError on
// operand mismatches, unknown field references, or arity violations.
func (c *Checker) Check(n Node) (Type, error) {
	switch node := n.(type) {
	case *Literal:
		return typeOfValue(node.Val), nil

	case *FieldRef:
		return c.checkFieldRef(node)

	case *Unary:
		return c.checkUnary(node)

	case *Binary:
		return c.checkBinary(node)

	case *Conditional:
		return c.checkConditional(node)

	case *Call:
		return c.checkCall(node)

	case *SetLit:
		return c.checkSetLit(node)

	case *InSet:
		return c.checkInSet(node)
	}
	return Type{}, &TypeError{Expected: "expression", Actual: fmt.Sprintf("%T", n)}
}

func typeOfValue(v value.Value) Type {
	switch v.Kind() {
	case value.KindNull:
		return Type{Kind: TypeNull}
	case value.KindBool:
		return Type{Kind: TypeBool}
	case value.KindInt:
		return Type{Kind: TypeInt}
	case value.KindDecimal:
		return Type{Kind: TypeDecimal}
	case value.KindString:
		return Type{Kind: TypeString}
	case value.KindDate:
		return Type{Kind: TypeDate}
	case value.KindDateTime:
		return Type{Kind: TypeDateTime}
	case value.KindDuration:
		return Type{Kind: TypeDuration}
	case value.KindEnum:
		return Type{Kind: TypeEnum, Enum: v.EnumType()}
	case value.KindSet:
		return Type{Kind: TypeSet, Elem: &Type{Kind: TypeAny}}
	default:
		return Type{Kind: TypeUnknown}
	}
}

// checkFieldRef resolves each path segment against the declared schema.
// Crossing a to-many relation wraps the remaining path's type in a set.
func (c *Checker) checkFieldRef(node *FieldRef) (Type, error) {
	entity := c.entity
	many := false

	for i, seg := range node.Path {
		field, ok := entity.Field(seg)
		if !ok {
			return Type{}, &TypeError{
				Pos:      node.Position,
				Expected: fmt.Sprintf("field of %s", entity.Name),
				Actual:   fmt.Sprintf("unknown field %q", seg),
			}
		}

		last := i == len(node.Path)-1

		if field.Type == schema.TypeRelation {
			target, ok := c.schema.Entity(field.Relation)
			if !ok {
				return Type{}, &TypeError{
					Pos:      node.Position,
					Expected: "declared entity",
					Actual:   fmt.Sprintf("unknown entity %q", field.Relation),
				}
			}
			if field.Many {
				many = true
			}
			if last {
				t := Type{Kind: TypeRecord, Entity: target.Name}
				return wrapSet(t, many), nil
			}
			entity = target
			continue
		}

		if !last {
			return Type{}, &TypeError{
				Pos:      node.Position,
				Expected: "relation field",
				Actual:   fmt.Sprintf("%s field %q", field.Type, seg),
			}
		}

		return wrapSet(c.fieldType(entity, field), many), nil
	}

	return Type{}, &TypeError{Pos: node.Position, Expected: "field path", Actual: "empty path"}
}

func wrapSet(t Type, many bool) Type {
	if !many {
		return t
	}
	elem := t
	return Type{Kind: TypeSet, Elem: &elem}
}

func (c *Checker) fieldType(entity *schema.Entity, field schema.Field) Type {
	switch field.Type {
	case schema.TypeBool:
		return Type{Kind: TypeBool}
	case schema.TypeInt:
		return Type{Kind: TypeInt}
	case schema.TypeDecimal:
		return Type{Kind: TypeDecimal}
	case schema.TypeString:
		return Type{Kind: TypeString}
	case schema.TypeDate:
		return Type{Kind: TypeDate}
	case schema.TypeDateTime:
		return Type{Kind: TypeDateTime}
	case schema.TypeDuration:
		return Type{Kind: TypeDuration}
	case schema.TypeEnum:
		return Type{Kind: TypeEnum, Enum: entity.Name + "." + field.Name}
	default:
		return Type{Kind: TypeUnknown}
	}
}

func (c *Checker) checkUnary(node *Unary) (Type, error) {
	operand, err := c.Check(node.Operand)
	if err != nil {
		return Type{}, err
	}

	switch node.Op {
	case OpNot:
		if operand.Kind != TypeBool && operand.Kind != TypeNull {
			return Type{}, &TypeError{Pos: node.Position, Expected: "bool", Actual: operand.String()}
		}
		return Type{Kind: TypeBool}, nil

	case OpNeg:
		if !operand.IsNumeric() && operand.Kind != TypeDuration && operand.Kind != TypeNull {
			return Type{}, &TypeError{Pos: node.Position, Expected: "numeric or duration", Actual: operand.String()}
		}
		return operand, nil

	case OpIsNull, OpIsNotNull:
		return Type{Kind: TypeBool}, nil
	}

	return Type{}, &TypeError{Pos: node.Position, Expected: "unary operator", Actual: string(node.Op)}
}

func (c *Checker) checkBinary(node *Binary) (Type, error) {
	left, err := c.Check(node.Left)
	if err != nil {
		return Type{}, err
	}
	right, err := c.Check(node.Right)
	if err != nil {
		return Type{}, err
	}

	switch node.Op {
	case OpAdd, OpSub, OpMul, OpDiv:
		return c.checkArith(node, left, right)

	case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe:
		if !comparable(left, right) {
			return Type{}, &TypeError{
				Pos:      node.Position,
				Expected: left.String(),
				Actual:   right.String(),
			}
		}
		if node.Op != OpEq && node.Op != OpNe && !ordered(left) && left.Kind != TypeNull {
			return Type{}, &TypeError{Pos: node.Position, Expected: "ordered type", Actual: left.String()}
		}
		return Type{Kind: TypeBool}, nil

	case OpIn:
		if right.Kind != TypeSet {
			return Type{}, &TypeError{Pos: node.Position, Expected: "set", Actual: right.String()}
		}
		if right.Elem != nil && !comparable(left, *right.Elem) {
			return Type{}, &TypeError{Pos: node.Position, Expected: right.Elem.String(), Actual: left.String()}
		}
		return Type{Kind: TypeBool}, nil

	case OpAnd, OpOr:
		for _, t := range []Type{left, right} {
			if t.Kind != TypeBool && t.Kind != TypeNull {
				return Type{}, &TypeError{Pos: node.Position, Expected: "bool", Actual: t.String()}
			}
		}
		return Type{Kind: TypeBool}, nil
	}

	return Type{}, &TypeError{Pos: node.Position, Expected: "binary operator", Actual: string(node.Op)}
}

func (c *Checker) checkArith(node *Binary, left, right Type) (Type, error) {
	// Null literal operands adopt the other side's type.
	if left.Kind == TypeNull {
		return right, nil
	}
	if right.Kind == TypeNull {
		return left, nil
	}

	if left.IsNumeric() && right.IsNumeric() {
		// Int widens to Decimal when mixed; division is always exact
		// decimal.
		if node.Op == OpDiv || left.Kind == TypeDecimal || right.Kind == TypeDecimal {
			return Type{Kind: TypeDecimal}, nil
		}
		return Type{Kind: TypeInt}, nil
	}

	switch {
	case (left.Kind == TypeDate || left.Kind == TypeDateTime) && right.Kind == TypeDuration &&
		(node.Op == OpAdd || node.Op == OpSub):
		return left, nil
	case left.Kind == TypeDuration && right.Kind == TypeDuration &&
		(node.Op == OpAdd || node.Op == OpSub):
		return Type{Kind: TypeDuration}, nil
	case left.Kind == right.Kind && (left.Kind == TypeDate || left.Kind == TypeDateTime) &&
		node.Op == OpSub:
		return Type{Kind: TypeDuration}, nil
	case node.Op == OpMul && (left.Kind == TypeDuration && right.Kind == TypeInt ||
		left.Kind == TypeInt && right.Kind == TypeDuration):
		return Type{Kind: TypeDuration}, nil
	}

	return Type{}, &TypeError{
		Pos:      node.Position,
		Expected: "numeric operands",
		Actual:   fmt.Sprintf("%s %s %s", left, node.Op, right),
	}
}

func (c *Checker) checkConditional(node *Conditional) (Type, error) {
	cond, err := c.Check(node.If)
	if err != nil {
		return Type{}, err
	}
	if cond.Kind != TypeBool && cond.Kind != TypeNull {
		return Type{}, &TypeError{Pos: node.Position, Expected: "bool", Actual: cond.String()}
	}

	then, err := c.Check(node.Then)
	if err != nil {
		return Type{}, err
	}
	els, err := c.Check(node.Else)
	if err != nil {
		return Type{}, err
	}

	unified, ok := unify(then, els)
	if !ok {
		return Type{}, &TypeError{Pos: node.Position, Expected: then.String(), Actual: els.String()}
	}
	return unified, nil
}

func (c *Checker) checkSetLit(node *SetLit) (Type, error) {
	elem := Type{Kind: TypeNull}
	for _, e := range node.Elems {
		t, err := c.Check(e)
		if err != nil {
			return Type{}, err
		}
		unified, ok := unify(elem, t)
		if !ok {
			return Type{}, &TypeError{Pos: e.Pos(), Expected: elem.String(), Actual: t.String()}
		}
		elem = unified
	}
	return Type{Kind: TypeSet, Elem: &elem}, nil
}

func (c *Checker) checkInSet(node *InSet) (Type, error) {
	val, err := c.Check(node.Value)
	if err != nil {
		return Type{}, err
	}
	for _, e := range node.Elems {
		t, err := c.Check(e)
		if err != nil {
			return Type{}, err
		}
		if !comparable(val, t) {
			return Type{}, &TypeError{Pos: e.Pos(), Expected: val.String(), Actual: t.String()}
		}
	}
	return Type{Kind: TypeBool}, nil
}

// comparable reports whether two types may be compared for equality.
// Int and Decimal mix; enums compare against strings by member name;
// the null literal compares against anything; Any compares with anything.
func comparable(a, b Type) bool {
	if a.Kind == TypeNull || b.Kind == TypeNull || a.Kind == TypeAny || b.Kind == TypeAny {
		return true
	}
	if a.IsNumeric() && b.IsNumeric() {
		return true
	}
	if a.Kind == TypeEnum && b.Kind == TypeString || a.Kind == TypeString && b.Kind == TypeEnum {
		return true
	}
	if a.Kind != b.Kind {
		return false
	}
	if a.Kind == TypeEnum {
		return a.Enum == b.Enum
	}
	return true
}

// ordered reports whether a type supports <, <=, >, >=.
func ordered(t Type) bool {
	switch t.Kind {
	case TypeInt, TypeDecimal, TypeString, TypeDate, TypeDateTime, TypeDuration, TypeAny:
		return true
	default:
		return false
	}
}

// unify merges two branch types, applying Int-to-Decimal widening and
// letting the null literal adopt the other branch's type.
func unify(a, b Type) (Type, bool) {
	if a.Kind == TypeNull {
		return b, true
	}
	if b.Kind == TypeNull {
		return a, true
	}
	if a.IsNumeric() && b.IsNumeric() {
		if a.Kind == TypeDecimal || b.Kind == TypeDecimal {
			return Type{Kind: TypeDecimal}, true
		}
		return Type{Kind: TypeInt}, true
	}
	if comparable(a, b) && a.Kind == b.Kind {
		return a, true
	}
	if a.Kind == TypeAny || b.Kind == TypeAny {
		return Type{Kind: TypeAny}, true
	}
	return Type{}, false
}
