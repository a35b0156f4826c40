package expr

import "fmt"

// Position is a line/column source position (both 1-based).
type Position struct {
	Line   int
	Column int
}

// String returns "line:column".
func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// TokenKind identifies the lexical class of a token.
type TokenKind int

const (
	TokenEOF TokenKind = iota
	TokenInt
	TokenDecimal
	TokenString
	TokenDate
	TokenDateTime
	TokenDuration
	TokenIdent
	TokenBool
	TokenNull
	TokenOperator // + - * / = != < <= > >=
	TokenKeyword  // and or not in is if then else
	TokenPunct    // ( ) [ ] , .
)

// String returns the name of the token kind.
func (k TokenKind) String() string {
	switch k {
	case TokenEOF:
		return "end of input"
	case TokenInt:
		return "integer literal"
	case TokenDecimal:
		return "decimal literal"
	case TokenString:
		return "string literal"
	case TokenDate:
		return "date literal"
	case TokenDateTime:
		return "datetime literal"
	case TokenDuration:
		return "duration literal"
	case TokenIdent:
		return "identifier"
	case TokenBool:
		return "boolean literal"
	case TokenNull:
		return "null"
	case TokenOperator:
		return "operator"
	case TokenKeyword:
		return "keyword"
	case TokenPunct:
		return "punctuation"
	default:
		return fmt.Sprintf("token(%d)", int(k))
	}
}

// Token is a single lexical token. Tokens are produced once by the
// tokenizer and consumed once by the parser.
type Token struct {
	Kind   TokenKind
	Lexeme string
	Pos    Position
}

// String renders the token for error messages.
func (t Token) String() string {
	if t.Kind == TokenEOF {
		return "end of input"
	}
	return fmt.Sprintf("%q", t.Lexeme)
}

// keywords maps reserved words to their token kinds.
var keywords = map[string]TokenKind{
	"and":   TokenKeyword,
	"or":    TokenKeyword,
	"not":   TokenKeyword,
	"in":    TokenKeyword,
	"is":    TokenKeyword,
	"if":    TokenKeyword,
	"then":  TokenKeyword,
	"else":  TokenKeyword,
	"true":  TokenBool,
	"false": TokenBool,
	"null":  TokenNull,
}
