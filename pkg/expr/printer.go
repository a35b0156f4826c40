package expr

import (
	"fmt"
	"strings"
	"time"

	"github.com/manwithacat/dazzle-sub014/pkg/value"
)

// Format renders an AST back to parseable source text. Compound
// subexpressions are parenthesized, so formatting then reparsing yields a
// structurally identical tree.
func Format(n Node) string {
	switch node := n.(type) {
	case *Literal:
		return formatLiteral(node.Val)

	case *FieldRef:
		return node.String()

	case *Unary:
		switch node.Op {
		case OpIsNull:
			return fmt.Sprintf("%s is null", formatOperand(node.Operand))
		case OpIsNotNull:
			return fmt.Sprintf("%s is not null", formatOperand(node.Operand))
		case OpNeg:
			return fmt.Sprintf("-%s", formatOperand(node.Operand))
		default:
			return fmt.Sprintf("not %s", formatOperand(node.Operand))
		}

	case *Binary:
		return fmt.Sprintf("%s %s %s", formatOperand(node.Left), node.Op, formatOperand(node.Right))

	case *Conditional:
		return fmt.Sprintf("if %s then %s else %s",
			formatOperand(node.If), formatOperand(node.Then), formatOperand(node.Else))

	case *Call:
		args := make([]string, len(node.Args))
		for i, a := range node.Args {
			args[i] = Format(a)
		}
		return fmt.Sprintf("%s(%s)", node.Name, strings.Join(args, ", "))

	case *SetLit:
		elems := make([]string, len(node.Elems))
		for i, e := range node.Elems {
			elems[i] = Format(e)
		}
		return "[" + strings.Join(elems, ", ") + "]"

	case *InSet:
		elems := make([]string, len(node.Elems))
		for i, e := range node.Elems {
			elems[i] = Format(e)
		}
		op := "in"
		if node.Negate {
			op = "not in"
		}
		return fmt.Sprintf("%s %s [%s]", formatOperand(node.Value), op, strings.Join(elems, ", "))
	}
	return ""
}

// formatOperand parenthesizes compound children so precedence never has
// to be reconstructed.
func formatOperand(n Node) string {
	switch n.(type) {
	case *Literal, *FieldRef, *Call, *SetLit:
		return Format(n)
	default:
		return "(" + Format(n) + ")"
	}
}

func formatLiteral(v value.Value) string {
	switch v.Kind() {
	case value.KindString:
		return quoteString(v.AsString())
	case value.KindDuration:
		return formatDuration(v.AsDuration())
	case value.KindDecimal:
		// Integral decimals keep a decimal point so they reparse as
		// decimals, not ints.
		s := v.String()
		if !strings.ContainsRune(s, '.') {
			s += ".0"
		}
		return s
	default:
		return v.String()
	}
}

func quoteString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// formatDuration renders a duration as a single-unit literal using the
// largest unit that divides it evenly.
func formatDuration(d time.Duration) string {
	units := []struct {
		unit time.Duration
		name string
	}{
		{7 * 24 * time.Hour, "w"},
		{24 * time.Hour, "d"},
		{time.Hour, "h"},
		{time.Minute, "m"},
		{time.Second, "s"},
	}
	for _, u := range units {
		if d%u.unit == 0 {
			return fmt.Sprintf("%d%s", d/u.unit, u.name)
		}
	}
	return fmt.Sprintf("%ds", d/time.Second)
}
