package value

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Kind identifies the variant held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindDecimal
	KindString
	KindDate
	KindDateTime
	KindDuration
	KindEnum
	KindSet
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindDecimal:
		return "decimal"
	case KindString:
		return "string"
	case KindDate:
		return "date"
	case KindDateTime:
		return "datetime"
	case KindDuration:
		return "duration"
	case KindEnum:
		return "enum"
	case KindSet:
		return "set"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Value is a runtime value in the rule evaluation domain.
// The zero Value is Null.
type Value struct {
	kind Kind
	b    bool
	i    int64
	d    decimal.Decimal
	s    string // string value or enum member
	enum string // enum type name
	t    time.Time
	dur  time.Duration
	set  []Value
}

// Null returns the null value.
func Null() Value {
	return Value{kind: KindNull}
}

// Bool returns a boolean value.
func Bool(b bool) Value {
	return Value{kind: KindBool, b: b}
}

// Int returns an integer value.
func Int(i int64) Value {
	return Value{kind: KindInt, i: i}
}

// Decimal returns an exact decimal value.
func Decimal(d decimal.Decimal) Value {
	return Value{kind: KindDecimal, d: d}
}

// DecimalString parses s as an exact decimal value.
func DecimalString(s string) (Value, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Null(), fmt.Errorf("invalid decimal %q: %w", s, err)
	}
	return Decimal(d), nil
}

// String returns a string value.
func String(s string) Value {
	return Value{kind: KindString, s: s}
}

// Date returns a date value. The time-of-day portion of t is truncated.
func Date(t time.Time) Value {
	y, m, d := t.Date()
	return Value{kind: KindDate, t: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// DateTime returns a datetime value.
func DateTime(t time.Time) Value {
	return Value{kind: KindDateTime, t: t}
}

// Duration returns a duration value.
func Duration(d time.Duration) Value {
	return Value{kind: KindDuration, dur: d}
}

// Enum returns an enum member value. name is the enum type, member the
// selected member.
func Enum(name, member string) Value {
	return Value{kind: KindEnum, enum: name, s: member}
}

// Set returns a set value containing the given elements.
func Set(elems ...Value) Value {
	return Value{kind: KindSet, set: elems}
}

// Kind returns the variant held by the value.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the value is Null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsBool returns the boolean payload. Valid only when Kind is KindBool.
func (v Value) AsBool() bool { return v.b }

// AsInt returns the integer payload. Valid only when Kind is KindInt.
func (v Value) AsInt() int64 { return v.i }

// AsDecimal returns the decimal payload. For KindInt values the integer is
// widened to an exact decimal, so numeric values can be handled uniformly.
func (v Value) AsDecimal() decimal.Decimal {
	if v.kind == KindInt {
		return decimal.NewFromInt(v.i)
	}
	return v.d
}

// AsString returns the string payload. Valid only when Kind is KindString
// or KindEnum (the enum member).
func (v Value) AsString() string { return v.s }

// AsTime returns the time payload. Valid only when Kind is KindDate or
// KindDateTime.
func (v Value) AsTime() time.Time { return v.t }

// AsDuration returns the duration payload. Valid only when Kind is
// KindDuration.
func (v Value) AsDuration() time.Duration { return v.dur }

// EnumType returns the enum type name. Valid only when Kind is KindEnum.
func (v Value) EnumType() string { return v.enum }

// AsSet returns the set elements. Valid only when Kind is KindSet.
// The returned slice must not be modified.
func (v Value) AsSet() []Value { return v.set }

// IsNumeric reports whether the value is Int or Decimal.
func (v Value) IsNumeric() bool {
	return v.kind == KindInt || v.kind == KindDecimal
}

// String renders the value for messages and logs.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	case KindInt:
		return fmt.Sprintf("%d", v.i)
	case KindDecimal:
		return v.d.String()
	case KindString:
		return v.s
	case KindDate:
		return v.t.Format("2006-01-02")
	case KindDateTime:
		return v.t.Format(time.RFC3339)
	case KindDuration:
		return v.dur.String()
	case KindEnum:
		return v.enum + "." + v.s
	case KindSet:
		parts := make([]string, len(v.set))
		for i, e := range v.set {
			parts[i] = e.String()
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return "<invalid>"
	}
}
