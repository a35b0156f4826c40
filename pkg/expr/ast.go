package expr

import (
	"strings"

	"github.com/manwithacat/dazzle-sub014/pkg/value"
)

// UnaryOp is a unary operator in the expression AST.
type UnaryOp string

const (
	OpNot       UnaryOp = "not"
	OpNeg       UnaryOp = "-"
	OpIsNull    UnaryOp = "is null"
	OpIsNotNull UnaryOp = "is not null"
)

// BinaryOp is a binary operator in the expression AST.
type BinaryOp string

const (
	OpAdd BinaryOp = "+"
	OpSub BinaryOp = "-"
	OpMul BinaryOp = "*"
	OpDiv BinaryOp = "/"
	OpEq  BinaryOp = "="
	OpNe  BinaryOp = "!="
	OpLt  BinaryOp = "<"
	OpLe  BinaryOp = "<="
	OpGt  BinaryOp = ">"
	OpGe  BinaryOp = ">="
	OpIn  BinaryOp = "in"
	OpAnd BinaryOp = "and"
	OpOr  BinaryOp = "or"
)

// Node is an expression AST node. The node set is closed: every consumer
// switches exhaustively over the concrete types below. Nodes are immutable
// once built and safe to evaluate concurrently.
type Node interface {
	Pos() Position
	node()
}

// Literal is a literal value.
type Literal struct {
	Position Position
	Val      value.Value
}

// FieldRef is a dotted field reference such as owner.team_id. Paths are
// not resolved at parse time; resolution happens in the type checker and
// the evaluator.
type FieldRef struct {
	Position Position
	Path     []string
}

// String returns the dotted path.
func (f *FieldRef) String() string {
	return strings.Join(f.Path, ".")
}

// Unary is a unary operation: not, negation, or a null check.
type Unary struct {
	Position Position
	Op       UnaryOp
	Operand  Node
}

// Binary is a binary operation.
type Binary struct {
	Position Position
	Op       BinaryOp
	Left     Node
	Right    Node
}

// Conditional is an if/then/else expression.
type Conditional struct {
	Position Position
	If       Node
	Then     Node
	Else     Node
}

// Call is a builtin function call.
type Call struct {
	Position Position
	Name     string
	Args     []Node
}

// SetLit is a bracketed set literal: [a, b, c].
type SetLit struct {
	Position Position
	Elems    []Node
}

// InSet tests membership of a value in a set literal. Membership against
// a set-valued field is represented as Binary with OpIn instead.
type InSet struct {
	Position Position
	Negate   bool
	Value    Node
	Elems    []Node
}

func (n *Literal) Pos() Position     { return n.Position }
func (n *FieldRef) Pos() Position    { return n.Position }
func (n *Unary) Pos() Position       { return n.Position }
func (n *Binary) Pos() Position      { return n.Position }
func (n *Conditional) Pos() Position { return n.Position }
func (n *Call) Pos() Position        { return n.Position }
func (n *SetLit) Pos() Position      { return n.Position }
func (n *InSet) Pos() Position       { return n.Position }

func (*Literal) node()     {}
func (*FieldRef) node()    {}
func (*Unary) node()       {}
func (*Binary) node()      {}
func (*Conditional) node() {}
func (*Call) node()        {}
func (*SetLit) node()      {}
func (*InSet) node()       {}

// Equal reports structural equality of two AST nodes, ignoring positions.
// It backs the round-trip property: parse(format(ast)) must equal ast.
func Equal(a, b Node) bool {
	switch an := a.(type) {
	case *Literal:
		bn, ok := b.(*Literal)
		if !ok {
			return false
		}
		return an.Val.Kind() == bn.Val.Kind() && an.Val.String() == bn.Val.String()

	case *FieldRef:
		bn, ok := b.(*FieldRef)
		if !ok || len(an.Path) != len(bn.Path) {
			return false
		}
		for i := range an.Path {
			if an.Path[i] != bn.Path[i] {
				return false
			}
		}
		return true

	case *Unary:
		bn, ok := b.(*Unary)
		return ok && an.Op == bn.Op && Equal(an.Operand, bn.Operand)

	case *Binary:
		bn, ok := b.(*Binary)
		return ok && an.Op == bn.Op && Equal(an.Left, bn.Left) && Equal(an.Right, bn.Right)

	case *Conditional:
		bn, ok := b.(*Conditional)
		return ok && Equal(an.If, bn.If) && Equal(an.Then, bn.Then) && Equal(an.Else, bn.Else)

	case *Call:
		bn, ok := b.(*Call)
		if !ok || an.Name != bn.Name || len(an.Args) != len(bn.Args) {
			return false
		}
		for i := range an.Args {
			if !Equal(an.Args[i], bn.Args[i]) {
				return false
			}
		}
		return true

	case *SetLit:
		bn, ok := b.(*SetLit)
		if !ok || len(an.Elems) != len(bn.Elems) {
			return false
		}
		for i := range an.Elems {
			if !Equal(an.Elems[i], bn.Elems[i]) {
				return false
			}
		}
		return true

	case *InSet:
		bn, ok := b.(*InSet)
		if !ok || an.Negate != bn.Negate || len(an.Elems) != len(bn.Elems) {
			return false
		}
		if !Equal(an.Value, bn.Value) {
			return false
		}
		for i := range an.Elems {
			if !Equal(an.Elems[i], bn.Elems[i]) {
				return false
			}
		}
		return true
	}
	return false
}
