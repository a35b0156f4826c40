package value

import (
	"errors"
	"testing"
	"time"
)

func TestArithmeticExactDecimal(t *testing.T) {
	// 0.1 + 0.2 must be exactly 0.3, not a float approximation.
	got, err := Add(mustDecimal(t, "0.1"), mustDecimal(t, "0.2"))
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if got.String() != "0.3" {
		t.Errorf("0.1 + 0.2 = %s, want 0.3", got)
	}
}

func TestArithmeticIntNarrowing(t *testing.T) {
	got, err := Add(Int(2), Int(3))
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if got.Kind() != KindInt || got.AsInt() != 5 {
		t.Errorf("2 + 3 = %s (%s), want int 5", got, got.Kind())
	}

	got, err = Mul(Int(2), mustDecimal(t, "1.5"))
	if err != nil {
		t.Fatalf("Mul: %v", err)
	}
	if got.Kind() != KindDecimal || got.String() != "3" {
		t.Errorf("2 * 1.5 = %s (%s), want decimal 3", got, got.Kind())
	}
}

func TestArithmeticNullPropagation(t *testing.T) {
	ops := []struct {
		name string
		fn   func(a, b Value) (Value, error)
	}{
		{"add", Add},
		{"sub", Sub},
		{"mul", Mul},
		{"div", Div},
	}

	for _, op := range ops {
		t.Run(op.name, func(t *testing.T) {
			got, err := op.fn(Null(), Int(1))
			if err != nil || !got.IsNull() {
				t.Errorf("null %s 1 = %s, %v, want null", op.name, got, err)
			}
			got, err = op.fn(Int(1), Null())
			if err != nil || !got.IsNull() {
				t.Errorf("1 %s null = %s, %v, want null", op.name, got, err)
			}
		})
	}
}

func TestDivisionByZero(t *testing.T) {
	if _, err := Div(Int(1), Int(0)); !errors.Is(err, ErrDivisionByZero) {
		t.Errorf("1 / 0 error = %v, want ErrDivisionByZero", err)
	}
	if _, err := Div(Int(1), mustDecimal(t, "0.00")); !errors.Is(err, ErrDivisionByZero) {
		t.Errorf("1 / 0.00 error = %v, want ErrDivisionByZero", err)
	}
}

func TestDivisionAlwaysDecimal(t *testing.T) {
	got, err := Div(Int(3), Int(2))
	if err != nil {
		t.Fatalf("Div: %v", err)
	}
	if got.Kind() != KindDecimal || got.String() != "1.5" {
		t.Errorf("3 / 2 = %s (%s), want decimal 1.5", got, got.Kind())
	}
}

func TestTemporalArithmetic(t *testing.T) {
	jan31 := Date(time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC))

	got, err := Add(jan31, Duration(24*time.Hour))
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if got.Kind() != KindDate || got.String() != "2024-02-01" {
		t.Errorf("2024-01-31 + 1d = %s, want 2024-02-01", got)
	}

	a := DateTime(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	b := DateTime(time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC))
	got, err = Sub(a, b)
	if err != nil {
		t.Fatalf("Sub: %v", err)
	}
	if got.Kind() != KindDuration || got.AsDuration() != 2*time.Hour {
		t.Errorf("datetime - datetime = %s, want 2h", got)
	}

	got, err = Mul(Duration(time.Hour), Int(3))
	if err != nil {
		t.Fatalf("Mul: %v", err)
	}
	if got.AsDuration() != 3*time.Hour {
		t.Errorf("1h * 3 = %s, want 3h", got)
	}
}

func TestArithmeticUnsupportedKinds(t *testing.T) {
	if _, err := Add(String("a"), String("b")); err == nil {
		t.Errorf("string + string should be an error, concatenation uses concat()")
	}
	if _, err := Neg(String("a")); err == nil {
		t.Errorf("negating a string should be an error")
	}
}

func TestNeg(t *testing.T) {
	got, err := Neg(Int(5))
	if err != nil || got.AsInt() != -5 {
		t.Errorf("Neg(5) = %s, %v", got, err)
	}
	got, err = Neg(Null())
	if err != nil || !got.IsNull() {
		t.Errorf("Neg(null) = %s, %v, want null", got, err)
	}
}
