package value

import "fmt"

// CmpOp is a comparison operator over values.
type CmpOp string

const (
	OpEq    CmpOp = "="
	OpNe    CmpOp = "!="
	OpLt    CmpOp = "<"
	OpLe    CmpOp = "<="
	OpGt    CmpOp = ">"
	OpGe    CmpOp = ">="
	OpIn    CmpOp = "in"
	OpNotIn CmpOp = "not in"
)

// Tristate is the result of a three-valued boolean evaluation.
type Tristate int

const (
	False Tristate = iota
	True
	Unknown
)

// String returns the lowercase name of the tristate.
func (t Tristate) String() string {
	switch t {
	case False:
		return "false"
	case True:
		return "true"
	default:
		return "unknown"
	}
}

// And combines two tristates under Kleene logic.
// Unknown AND False is False (absorption).
func (t Tristate) And(other Tristate) Tristate {
	if t == False || other == False {
		return False
	}
	if t == Unknown || other == Unknown {
		return Unknown
	}
	return True
}

// Or combines two tristates under Kleene logic.
// Unknown OR True is True (absorption).
func (t Tristate) Or(other Tristate) Tristate {
	if t == True || other == True {
		return True
	}
	if t == Unknown || other == Unknown {
		return Unknown
	}
	return False
}

// Not negates a tristate. NOT Unknown remains Unknown.
func (t Tristate) Not() Tristate {
	switch t {
	case True:
		return False
	case False:
		return True
	default:
		return Unknown
	}
}

// Truth maps a boolean value into a Tristate. Null maps to Unknown.
// Any other kind is an error: truthiness of non-booleans is never implied.
func Truth(v Value) (Tristate, error) {
	switch v.Kind() {
	case KindNull:
		return Unknown, nil
	case KindBool:
		if v.AsBool() {
			return True, nil
		}
		return False, nil
	default:
		return Unknown, fmt.Errorf("expected bool or null, got %s", v.Kind())
	}
}

// Compare evaluates a comparison operator between two values, returning
// Bool(true), Bool(false), or Null under three-valued logic. A Null
// operand always yields Null. Int widens to Decimal when mixed; no other
// implicit coercion is performed and mismatched kinds are an error.
func Compare(op CmpOp, a, b Value) (Value, error) {
	if a.IsNull() || b.IsNull() {
		return Null(), nil
	}

	switch op {
	case OpEq:
		eq, err := equal(a, b)
		if err != nil {
			return Null(), err
		}
		return Bool(eq), nil

	case OpNe:
		eq, err := equal(a, b)
		if err != nil {
			return Null(), err
		}
		return Bool(!eq), nil

	case OpLt, OpLe, OpGt, OpGe:
		c, err := order(a, b)
		if err != nil {
			return Null(), err
		}
		switch op {
		case OpLt:
			return Bool(c < 0), nil
		case OpLe:
			return Bool(c <= 0), nil
		case OpGt:
			return Bool(c > 0), nil
		default:
			return Bool(c >= 0), nil
		}

	case OpIn, OpNotIn:
		member, err := contains(b, a)
		if err != nil {
			return Null(), err
		}
		if op == OpNotIn {
			return Bool(!member), nil
		}
		return Bool(member), nil

	default:
		return Null(), fmt.Errorf("unknown comparison operator %q", op)
	}
}

// equal reports strict equality between two non-null values.
func equal(a, b Value) (bool, error) {
	if a.IsNumeric() && b.IsNumeric() {
		return a.AsDecimal().Equal(b.AsDecimal()), nil
	}

	// Enum members compare against string literals by member name; rule
	// authors have no enum literal syntax.
	if a.Kind() == KindEnum && b.Kind() == KindString {
		return a.AsString() == b.AsString(), nil
	}
	if a.Kind() == KindString && b.Kind() == KindEnum {
		return a.AsString() == b.AsString(), nil
	}

	if a.Kind() != b.Kind() {
		return false, fmt.Errorf("cannot compare %s with %s", a.Kind(), b.Kind())
	}

	switch a.Kind() {
	case KindBool:
		return a.AsBool() == b.AsBool(), nil
	case KindString:
		return a.AsString() == b.AsString(), nil
	case KindDate, KindDateTime:
		return a.AsTime().Equal(b.AsTime()), nil
	case KindDuration:
		return a.AsDuration() == b.AsDuration(), nil
	case KindEnum:
		if a.EnumType() != b.EnumType() {
			return false, fmt.Errorf("cannot compare enum %s with enum %s", a.EnumType(), b.EnumType())
		}
		return a.AsString() == b.AsString(), nil
	case KindSet:
		as, bs := a.AsSet(), b.AsSet()
		if len(as) != len(bs) {
			return false, nil
		}
		for i := range as {
			eq, err := equal(as[i], bs[i])
			if err != nil || !eq {
				return false, err
			}
		}
		return true, nil
	default:
		return false, fmt.Errorf("values of kind %s are not comparable", a.Kind())
	}
}

// order returns -1, 0, or 1 for ordered kinds.
func order(a, b Value) (int, error) {
	if a.IsNumeric() && b.IsNumeric() {
		return a.AsDecimal().Cmp(b.AsDecimal()), nil
	}

	if a.Kind() != b.Kind() {
		return 0, fmt.Errorf("cannot order %s against %s", a.Kind(), b.Kind())
	}

	switch a.Kind() {
	case KindString:
		switch {
		case a.AsString() < b.AsString():
			return -1, nil
		case a.AsString() > b.AsString():
			return 1, nil
		}
		return 0, nil
	case KindDate, KindDateTime:
		switch {
		case a.AsTime().Before(b.AsTime()):
			return -1, nil
		case a.AsTime().After(b.AsTime()):
			return 1, nil
		}
		return 0, nil
	case KindDuration:
		switch {
		case a.AsDuration() < b.AsDuration():
			return -1, nil
		case a.AsDuration() > b.AsDuration():
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("values of kind %s have no ordering", a.Kind())
	}
}

// contains reports whether set contains elem.
func contains(set, elem Value) (bool, error) {
	if set.Kind() != KindSet {
		return false, fmt.Errorf("right operand of in must be a set, got %s", set.Kind())
	}
	for _, e := range set.AsSet() {
		if e.IsNull() {
			continue
		}
		eq, err := equal(elem, e)
		if err != nil {
			return false, err
		}
		if eq {
			return true, nil
		}
	}
	return false, nil
}
