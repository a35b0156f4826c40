package expr

import (
	"fmt"
	"strconv"
	"time"

	"github.com/manwithacat/dazzle-sub014/pkg/value"
)

// ParserConfig bounds parsing of untrusted or pathological input.
type ParserConfig struct {
	// MaxDepth is the maximum expression nesting depth. Exceeding it
	// produces a ParseError rather than unbounded recursion.
	MaxDepth int
}

// DefaultParserConfig returns the default parser configuration.
func DefaultParserConfig() *ParserConfig {
	return &ParserConfig{MaxDepth: 64}
}

// Validate checks the configuration.
func (c *ParserConfig) Validate() error {
	if c.MaxDepth <= 0 {
		return fmt.Errorf("max depth must be positive, got %d", c.MaxDepth)
	}
	return nil
}

// Parse tokenizes and parses expression source text into an AST using the
// default configuration.
func Parse(src string) (Node, error) {
	return ParseWithConfig(src, nil)
}

// ParseWithConfig tokenizes and parses expression source text with an
// explicit configuration.
func ParseWithConfig(src string, cfg *ParserConfig) (Node, error) {
	tokens, err := Tokenize(src)
	if err != nil {
		return nil, err
	}
	return ParseTokens(tokens, cfg)
}

// ParseTokens parses a token sequence into an AST. Parsing is total:
// every malformed input yields a *ParseError, never a panic.
func ParseTokens(tokens []Token, cfg *ParserConfig) (Node, error) {
	if cfg == nil {
		cfg = DefaultParserConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &parser{tokens: tokens, maxDepth: cfg.MaxDepth}
	node, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.cur().Kind != TokenEOF {
		return nil, p.errorf("end of input")
	}
	return node, nil
}

type parser struct {
	tokens   []Token
	pos      int
	depth    int
	maxDepth int
}

func (p *parser) cur() Token {
	if p.pos >= len(p.tokens) {
		return Token{Kind: TokenEOF}
	}
	return p.tokens[p.pos]
}

func (p *parser) advance() Token {
	tok := p.cur()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

// at reports whether the current token has the given kind and lexeme.
func (p *parser) at(kind TokenKind, lexeme string) bool {
	tok := p.cur()
	return tok.Kind == kind && tok.Lexeme == lexeme
}

// eat consumes the current token if it matches, reporting success.
func (p *parser) eat(kind TokenKind, lexeme string) bool {
	if p.at(kind, lexeme) {
		p.advance()
		return true
	}
	return false
}

func (p *parser) expect(kind TokenKind, lexeme string) (Token, error) {
	if p.at(kind, lexeme) {
		return p.advance(), nil
	}
	return Token{}, p.errorf("%q", lexeme)
}

func (p *parser) errorf(format string, args ...any) error {
	return &ParseError{
		Pos:      p.cur().Pos,
		Expected: fmt.Sprintf(format, args...),
		Found:    p.cur().String(),
	}
}

// enter tracks nesting depth; parsing fails once MaxDepth is exceeded.
func (p *parser) enter() error {
	p.depth++
	if p.depth > p.maxDepth {
		return &ParseError{
			Pos:      p.cur().Pos,
			Expected: fmt.Sprintf("nesting of at most %d levels", p.maxDepth),
			Found:    "deeper nesting",
		}
	}
	return nil
}

func (p *parser) leave() {
	p.depth--
}

// parseExpr parses the lowest-precedence level: the conditional.
// Conditionals are right-associative.
func (p *parser) parseExpr() (Node, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	if p.at(TokenKeyword, "if") {
		pos := p.advance().Pos
		cond, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenKeyword, "then"); err != nil {
			return nil, err
		}
		then, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenKeyword, "else"); err != nil {
			return nil, err
		}
		els, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &Conditional{Position: pos, If: cond, Then: then, Else: els}, nil
	}

	return p.parseOr()
}

func (p *parser) parseOr() (Node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.at(TokenKeyword, "or") {
		pos := p.advance().Pos
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &Binary{Position: pos, Op: OpOr, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Node, error) {
	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	for p.at(TokenKeyword, "and") {
		pos := p.advance().Pos
		right, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		left = &Binary{Position: pos, Op: OpAnd, Left: left, Right: right}
	}
	return left, nil
}

var comparisonOps = map[string]BinaryOp{
	"=": OpEq, "!=": OpNe, "<": OpLt, "<=": OpLe, ">": OpGt, ">=": OpGe,
}

// parseComparison parses comparison operators, membership tests, and the
// postfix null checks.
func (p *parser) parseComparison() (Node, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}

	for {
		tok := p.cur()

		if tok.Kind == TokenOperator {
			if op, ok := comparisonOps[tok.Lexeme]; ok {
				pos := p.advance().Pos
				right, err := p.parseAdditive()
				if err != nil {
					return nil, err
				}
				left = &Binary{Position: pos, Op: op, Left: left, Right: right}
				continue
			}
		}

		// IS NULL / IS NOT NULL: the only direct observers of Null.
		if p.at(TokenKeyword, "is") {
			pos := p.advance().Pos
			op := OpIsNull
			if p.eat(TokenKeyword, "not") {
				op = OpIsNotNull
			}
			if !p.eat(TokenNull, "null") {
				return nil, p.errorf("null")
			}
			left = &Unary{Position: pos, Op: op, Operand: left}
			continue
		}

		// IN / NOT IN.
		negate := false
		if p.at(TokenKeyword, "not") && p.peekIs(1, TokenKeyword, "in") {
			p.advance()
			negate = true
		}
		if p.at(TokenKeyword, "in") {
			pos := p.advance().Pos
			if p.at(TokenPunct, "[") {
				elems, err := p.parseSetElems()
				if err != nil {
					return nil, err
				}
				left = &InSet{Position: pos, Negate: negate, Value: left, Elems: elems}
				continue
			}
			right, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			var n Node = &Binary{Position: pos, Op: OpIn, Left: left, Right: right}
			if negate {
				n = &Unary{Position: pos, Op: OpNot, Operand: n}
			}
			left = n
			continue
		}
		if negate {
			return nil, p.errorf("in")
		}

		return left, nil
	}
}

func (p *parser) peekIs(offset int, kind TokenKind, lexeme string) bool {
	if p.pos+offset >= len(p.tokens) {
		return false
	}
	tok := p.tokens[p.pos+offset]
	return tok.Kind == kind && tok.Lexeme == lexeme
}

func (p *parser) parseAdditive() (Node, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.at(TokenOperator, "+") || p.at(TokenOperator, "-") {
		tok := p.advance()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &Binary{Position: tok.Pos, Op: BinaryOp(tok.Lexeme), Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseMultiplicative() (Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.at(TokenOperator, "*") || p.at(TokenOperator, "/") {
		tok := p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &Binary{Position: tok.Pos, Op: BinaryOp(tok.Lexeme), Left: left, Right: right}
	}
	return left, nil
}

// parseUnary parses the highest-precedence level. Unary operators are
// right-associative.
func (p *parser) parseUnary() (Node, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	if p.at(TokenKeyword, "not") && !p.peekIs(1, TokenKeyword, "in") {
		pos := p.advance().Pos
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Unary{Position: pos, Op: OpNot, Operand: operand}, nil
	}

	if p.at(TokenOperator, "-") {
		pos := p.advance().Pos
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		// Fold negation into numeric literals so -5.00 is a single
		// Literal node and survives a print/parse round trip.
		if lit, ok := operand.(*Literal); ok && (lit.Val.IsNumeric() || lit.Val.Kind() == value.KindDuration) {
			neg, err := value.Neg(lit.Val)
			if err == nil {
				return &Literal{Position: pos, Val: neg}, nil
			}
		}
		return &Unary{Position: pos, Op: OpNeg, Operand: operand}, nil
	}

	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Node, error) {
	tok := p.cur()

	switch tok.Kind {
	case TokenInt, TokenDecimal, TokenString, TokenBool, TokenNull,
		TokenDate, TokenDateTime, TokenDuration:
		return p.parseLiteral()

	case TokenIdent:
		return p.parsePath()

	case TokenPunct:
		if tok.Lexeme == "(" {
			p.advance()
			inner, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(TokenPunct, ")"); err != nil {
				return nil, err
			}
			return inner, nil
		}
		if tok.Lexeme == "[" {
			elems, err := p.parseSetElems()
			if err != nil {
				return nil, err
			}
			return &SetLit{Position: tok.Pos, Elems: elems}, nil
		}
	}

	return nil, p.errorf("expression")
}

// parseLiteral converts a literal token into a Literal node.
func (p *parser) parseLiteral() (Node, error) {
	tok := p.advance()
	switch tok.Kind {
	case TokenInt:
		i, err := strconv.ParseInt(tok.Lexeme, 10, 64)
		if err != nil {
			return nil, &ParseError{Pos: tok.Pos, Expected: "integer in range", Found: tok.String()}
		}
		return &Literal{Position: tok.Pos, Val: value.Int(i)}, nil

	case TokenDecimal:
		v, err := value.DecimalString(tok.Lexeme)
		if err != nil {
			return nil, &ParseError{Pos: tok.Pos, Expected: "decimal literal", Found: tok.String()}
		}
		return &Literal{Position: tok.Pos, Val: v}, nil

	case TokenString:
		return &Literal{Position: tok.Pos, Val: value.String(tok.Lexeme)}, nil

	case TokenBool:
		return &Literal{Position: tok.Pos, Val: value.Bool(tok.Lexeme == "true")}, nil

	case TokenNull:
		return &Literal{Position: tok.Pos, Val: value.Null()}, nil

	case TokenDate, TokenDateTime:
		t, err := parseTimeLexeme(tok.Kind, tok.Lexeme)
		if err != nil {
			return nil, &ParseError{Pos: tok.Pos, Expected: "date literal", Found: tok.String()}
		}
		if tok.Kind == TokenDate {
			return &Literal{Position: tok.Pos, Val: value.Date(t)}, nil
		}
		return &Literal{Position: tok.Pos, Val: value.DateTime(t)}, nil

	case TokenDuration:
		unit := rune(tok.Lexeme[len(tok.Lexeme)-1])
		n, err := strconv.ParseInt(tok.Lexeme[:len(tok.Lexeme)-1], 10, 64)
		if err != nil {
			return nil, &ParseError{Pos: tok.Pos, Expected: "duration in range", Found: tok.String()}
		}
		return &Literal{Position: tok.Pos, Val: value.Duration(time.Duration(n) * durationUnits[unit])}, nil
	}

	return nil, p.errorf("literal")
}

// parsePath parses a dotted identifier chain. A trailing call segment is
// parsed as a builtin invocation: count(x) and x.count() build the same
// Call node.
func (p *parser) parsePath() (Node, error) {
	first := p.advance()
	path := []string{first.Lexeme}

	for p.at(TokenPunct, ".") {
		p.advance()
		seg := p.cur()
		if seg.Kind != TokenIdent {
			return nil, p.errorf("identifier")
		}
		p.advance()
		path = append(path, seg.Lexeme)
	}

	if p.at(TokenPunct, "(") {
		name := path[len(path)-1]
		var args []Node
		if len(path) > 1 {
			args = append(args, &FieldRef{Position: first.Pos, Path: path[:len(path)-1]})
		}
		rest, err := p.parseArgs()
		if err != nil {
			return nil, err
		}
		return &Call{Position: first.Pos, Name: name, Args: append(args, rest...)}, nil
	}

	return &FieldRef{Position: first.Pos, Path: path}, nil
}

func (p *parser) parseArgs() ([]Node, error) {
	if _, err := p.expect(TokenPunct, "("); err != nil {
		return nil, err
	}
	var args []Node
	if p.eat(TokenPunct, ")") {
		return args, nil
	}
	for {
		arg, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if p.eat(TokenPunct, ",") {
			continue
		}
		if _, err := p.expect(TokenPunct, ")"); err != nil {
			return nil, err
		}
		return args, nil
	}
}

func (p *parser) parseSetElems() ([]Node, error) {
	if _, err := p.expect(TokenPunct, "["); err != nil {
		return nil, err
	}
	var elems []Node
	if p.eat(TokenPunct, "]") {
		return elems, nil
	}
	for {
		elem, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		elems = append(elems, elem)
		if p.eat(TokenPunct, ",") {
			continue
		}
		if _, err := p.expect(TokenPunct, "]"); err != nil {
			return nil, err
		}
		return elems, nil
	}
}
