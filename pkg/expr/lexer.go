package expr

import (
	"time"
	"unicode"
)

// durationUnits are the recognized duration literal suffixes.
var durationUnits = map[rune]time.Duration{
	's': time.Second,
	'm': time.Minute,
	'h': time.Hour,
	'd': 24 * time.Hour,
	'w': 7 * 24 * time.Hour,
}

// Tokenize turns expression source text into a flat sequence of tokens.
// Whitespace and // comments are discarded. The returned sequence always
// ends with a TokenEOF token. Any lexical problem is reported as a
// *LexError carrying the offending position.
func Tokenize(src string) ([]Token, error) {
	lx := &lexer{src: []rune(src), line: 1, col: 1}
	var tokens []Token
	for {
		tok, err := lx.next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Kind == TokenEOF {
			return tokens, nil
		}
	}
}

type lexer struct {
	src  []rune
	pos  int
	line int
	col  int
}

func (lx *lexer) position() Position {
	return Position{Line: lx.line, Column: lx.col}
}

func (lx *lexer) peek() rune {
	return lx.peekAt(0)
}

func (lx *lexer) peekAt(offset int) rune {
	if lx.pos+offset >= len(lx.src) {
		return 0
	}
	return lx.src[lx.pos+offset]
}

func (lx *lexer) advance() rune {
	r := lx.src[lx.pos]
	lx.pos++
	if r == '\n' {
		lx.line++
		lx.col = 1
	} else {
		lx.col++
	}
	return r
}

// skip discards whitespace and line comments.
func (lx *lexer) skip() {
	for lx.pos < len(lx.src) {
		r := lx.peek()
		switch {
		case r == ' ' || r == '\t' || r == '\r' || r == '\n':
			lx.advance()
		case r == '/' && lx.peekAt(1) == '/':
			for lx.pos < len(lx.src) && lx.peek() != '\n' {
				lx.advance()
			}
		default:
			return
		}
	}
}

func (lx *lexer) next() (Token, error) {
	lx.skip()

	pos := lx.position()
	if lx.pos >= len(lx.src) {
		return Token{Kind: TokenEOF, Pos: pos}, nil
	}

	r := lx.peek()
	switch {
	case unicode.IsDigit(r):
		return lx.scanNumber(pos)

	case unicode.IsLetter(r) || r == '_':
		return lx.scanIdent(pos)

	case r == '"' || r == '\'':
		return lx.scanString(pos)
	}

	lx.advance()
	switch r {
	case '(', ')', '[', ']', ',', '.':
		return Token{Kind: TokenPunct, Lexeme: string(r), Pos: pos}, nil

	case '+', '-', '*', '/', '=':
		return Token{Kind: TokenOperator, Lexeme: string(r), Pos: pos}, nil

	case '!':
		if lx.peek() == '=' {
			lx.advance()
			return Token{Kind: TokenOperator, Lexeme: "!=", Pos: pos}, nil
		}
		return Token{}, &LexError{Pos: pos, Char: r}

	case '<':
		if lx.peek() == '=' {
			lx.advance()
			return Token{Kind: TokenOperator, Lexeme: "<=", Pos: pos}, nil
		}
		return Token{Kind: TokenOperator, Lexeme: "<", Pos: pos}, nil

	case '>':
		if lx.peek() == '=' {
			lx.advance()
			return Token{Kind: TokenOperator, Lexeme: ">=", Pos: pos}, nil
		}
		return Token{Kind: TokenOperator, Lexeme: ">", Pos: pos}, nil
	}

	return Token{}, &LexError{Pos: pos, Char: r}
}

// scanNumber scans integer, decimal, duration, and date/datetime literals.
// Dates are recognized from the bare ISO form: four digits followed by
// "-NN-NN", optionally with a T-separated time portion.
func (lx *lexer) scanNumber(pos Position) (Token, error) {
	start := lx.pos
	for lx.pos < len(lx.src) && unicode.IsDigit(lx.peek()) {
		lx.advance()
	}
	digits := lx.pos - start

	// Date literal: NNNN-NN-NN
	if digits == 4 && lx.peek() == '-' && unicode.IsDigit(lx.peekAt(1)) {
		return lx.scanDate(pos, start)
	}

	// Decimal literal: digits '.' digits
	if lx.peek() == '.' && unicode.IsDigit(lx.peekAt(1)) {
		lx.advance()
		for lx.pos < len(lx.src) && unicode.IsDigit(lx.peek()) {
			lx.advance()
		}
		if isIdentRune(lx.peek()) {
			return Token{}, &LexError{Pos: pos, Message: "malformed decimal literal"}
		}
		return Token{Kind: TokenDecimal, Lexeme: string(lx.src[start:lx.pos]), Pos: pos}, nil
	}

	// Duration literal: digits with a unit suffix.
	if _, ok := durationUnits[lx.peek()]; ok && !isIdentRune(lx.peekAt(1)) {
		lx.advance()
		return Token{Kind: TokenDuration, Lexeme: string(lx.src[start:lx.pos]), Pos: pos}, nil
	}

	if isIdentRune(lx.peek()) {
		return Token{}, &LexError{Pos: pos, Message: "malformed numeric literal"}
	}

	return Token{Kind: TokenInt, Lexeme: string(lx.src[start:lx.pos]), Pos: pos}, nil
}

// scanDate scans the remainder of a date or datetime literal.
func (lx *lexer) scanDate(pos Position, start int) (Token, error) {
	// Consume the calendar part: -NN-NN
	for lx.pos < len(lx.src) && (unicode.IsDigit(lx.peek()) || lx.peek() == '-') {
		lx.advance()
	}

	kind := TokenDate
	if lx.peek() == 'T' && unicode.IsDigit(lx.peekAt(1)) {
		kind = TokenDateTime
		lx.advance()
		for lx.pos < len(lx.src) && (unicode.IsDigit(lx.peek()) || lx.peek() == ':') {
			lx.advance()
		}
		if lx.peek() == 'Z' {
			lx.advance()
		}
	}

	lexeme := string(lx.src[start:lx.pos])
	if _, err := parseTimeLexeme(kind, lexeme); err != nil {
		return Token{}, &LexError{Pos: pos, Message: "malformed date literal " + lexeme}
	}

	return Token{Kind: kind, Lexeme: lexeme, Pos: pos}, nil
}

// parseTimeLexeme validates and parses a date or datetime lexeme.
func parseTimeLexeme(kind TokenKind, lexeme string) (time.Time, error) {
	if kind == TokenDate {
		return time.Parse("2006-01-02", lexeme)
	}
	if t, err := time.Parse(time.RFC3339, lexeme); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02T15:04:05", lexeme)
}

func (lx *lexer) scanIdent(pos Position) (Token, error) {
	start := lx.pos
	for lx.pos < len(lx.src) && isIdentRune(lx.peek()) {
		lx.advance()
	}
	word := string(lx.src[start:lx.pos])

	if kind, ok := keywords[word]; ok {
		return Token{Kind: kind, Lexeme: word, Pos: pos}, nil
	}
	return Token{Kind: TokenIdent, Lexeme: word, Pos: pos}, nil
}

// scanString scans a quoted string literal. The token lexeme holds the
// unescaped contents without the surrounding quotes.
func (lx *lexer) scanString(pos Position) (Token, error) {
	quote := lx.advance()
	var out []rune
	for {
		if lx.pos >= len(lx.src) || lx.peek() == '\n' {
			return Token{}, &LexError{Pos: pos, Message: "unterminated string literal"}
		}
		r := lx.advance()
		if r == quote {
			return Token{Kind: TokenString, Lexeme: string(out), Pos: pos}, nil
		}
		if r == '\\' {
			if lx.pos >= len(lx.src) {
				return Token{}, &LexError{Pos: pos, Message: "unterminated string literal"}
			}
			esc := lx.advance()
			switch esc {
			case 'n':
				out = append(out, '\n')
			case 't':
				out = append(out, '\t')
			case '\\', '\'', '"':
				out = append(out, esc)
			default:
				return Token{}, &LexError{Pos: pos, Message: "invalid escape sequence \\" + string(esc)}
			}
			continue
		}
		out = append(out, r)
	}
}

func isIdentRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
