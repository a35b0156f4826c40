package value

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ErrDivisionByZero is returned by Div when the divisor is zero.
var ErrDivisionByZero = fmt.Errorf("division by zero")

// Add evaluates a + b. A Null operand yields Null.
// Supported: numeric + numeric, date/datetime + duration,
// duration + duration.
func Add(a, b Value) (Value, error) {
	if a.IsNull() || b.IsNull() {
		return Null(), nil
	}

	switch {
	case a.IsNumeric() && b.IsNumeric():
		return numericResult(a, b, a.AsDecimal().Add(b.AsDecimal())), nil

	case a.Kind() == KindDate && b.Kind() == KindDuration:
		return Date(a.AsTime().Add(b.AsDuration())), nil

	case a.Kind() == KindDateTime && b.Kind() == KindDuration:
		return DateTime(a.AsTime().Add(b.AsDuration())), nil

	case a.Kind() == KindDuration && b.Kind() == KindDuration:
		return Duration(a.AsDuration() + b.AsDuration()), nil

	default:
		return Null(), fmt.Errorf("cannot add %s and %s", a.Kind(), b.Kind())
	}
}

// Sub evaluates a - b. A Null operand yields Null.
// Supported: numeric - numeric, date/datetime - duration,
// datetime - datetime (yielding a duration), duration - duration.
func Sub(a, b Value) (Value, error) {
	if a.IsNull() || b.IsNull() {
		return Null(), nil
	}

	switch {
	case a.IsNumeric() && b.IsNumeric():
		return numericResult(a, b, a.AsDecimal().Sub(b.AsDecimal())), nil

	case a.Kind() == KindDate && b.Kind() == KindDuration:
		return Date(a.AsTime().Add(-b.AsDuration())), nil

	case a.Kind() == KindDateTime && b.Kind() == KindDuration:
		return DateTime(a.AsTime().Add(-b.AsDuration())), nil

	case a.Kind() == KindDateTime && b.Kind() == KindDateTime:
		return Duration(a.AsTime().Sub(b.AsTime())), nil

	case a.Kind() == KindDate && b.Kind() == KindDate:
		return Duration(a.AsTime().Sub(b.AsTime())), nil

	case a.Kind() == KindDuration && b.Kind() == KindDuration:
		return Duration(a.AsDuration() - b.AsDuration()), nil

	default:
		return Null(), fmt.Errorf("cannot subtract %s from %s", b.Kind(), a.Kind())
	}
}

// Mul evaluates a * b. A Null operand yields Null.
// Supported: numeric * numeric, duration * int.
func Mul(a, b Value) (Value, error) {
	if a.IsNull() || b.IsNull() {
		return Null(), nil
	}

	switch {
	case a.IsNumeric() && b.IsNumeric():
		return numericResult(a, b, a.AsDecimal().Mul(b.AsDecimal())), nil

	case a.Kind() == KindDuration && b.Kind() == KindInt:
		return Duration(a.AsDuration() * time.Duration(b.AsInt())), nil

	case a.Kind() == KindInt && b.Kind() == KindDuration:
		return Duration(b.AsDuration() * time.Duration(a.AsInt())), nil

	default:
		return Null(), fmt.Errorf("cannot multiply %s by %s", a.Kind(), b.Kind())
	}
}

// Div evaluates a / b. A Null operand yields Null. Division always
// produces an exact decimal; dividing by zero returns ErrDivisionByZero.
func Div(a, b Value) (Value, error) {
	if a.IsNull() || b.IsNull() {
		return Null(), nil
	}

	if !a.IsNumeric() || !b.IsNumeric() {
		return Null(), fmt.Errorf("cannot divide %s by %s", a.Kind(), b.Kind())
	}

	if b.AsDecimal().IsZero() {
		return Null(), ErrDivisionByZero
	}

	return Decimal(a.AsDecimal().Div(b.AsDecimal())), nil
}

// Neg evaluates -a. Null yields Null.
func Neg(a Value) (Value, error) {
	switch a.Kind() {
	case KindNull:
		return Null(), nil
	case KindInt:
		return Int(-a.AsInt()), nil
	case KindDecimal:
		return Decimal(a.AsDecimal().Neg()), nil
	case KindDuration:
		return Duration(-a.AsDuration()), nil
	default:
		return Null(), fmt.Errorf("cannot negate %s", a.Kind())
	}
}

// numericResult narrows a decimal result back to Int when both operands
// were Int, preserving the Int-unless-widened promotion rule.
func numericResult(a, b Value, d decimal.Decimal) Value {
	if a.Kind() == KindInt && b.Kind() == KindInt {
		return Int(d.IntPart())
	}
	return Decimal(d)
}
