package expr

import (
	"errors"
	"testing"
)

func kinds(tokens []Token) []TokenKind {
	out := make([]TokenKind, len(tokens))
	for i, tok := range tokens {
		out[i] = tok.Kind
	}
	return out
}

func TestTokenizeKinds(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []TokenKind
	}{
		{
			name: "comparison",
			src:  "amount > 0",
			want: []TokenKind{TokenIdent, TokenOperator, TokenInt, TokenEOF},
		},
		{
			name: "decimal literal",
			src:  "10.50",
			want: []TokenKind{TokenDecimal, TokenEOF},
		},
		{
			name: "date literal",
			src:  "2024-01-31",
			want: []TokenKind{TokenDate, TokenEOF},
		},
		{
			name: "datetime literal",
			src:  "2024-01-31T10:30:00Z",
			want: []TokenKind{TokenDateTime, TokenEOF},
		},
		{
			name: "duration literal",
			src:  "30d",
			want: []TokenKind{TokenDuration, TokenEOF},
		},
		{
			name: "keywords and null",
			src:  "status is not null and true",
			want: []TokenKind{TokenIdent, TokenKeyword, TokenKeyword, TokenNull, TokenKeyword, TokenBool, TokenEOF},
		},
		{
			name: "string literal",
			src:  `"hello"`,
			want: []TokenKind{TokenString, TokenEOF},
		},
		{
			name: "dotted path and call",
			src:  "line_items.count()",
			want: []TokenKind{TokenIdent, TokenPunct, TokenIdent, TokenPunct, TokenPunct, TokenEOF},
		},
		{
			name: "comment discarded",
			src:  "1 // trailing comment",
			want: []TokenKind{TokenInt, TokenEOF},
		},
		{
			name: "set literal",
			src:  `["a", "b"]`,
			want: []TokenKind{TokenPunct, TokenString, TokenPunct, TokenString, TokenPunct, TokenEOF},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, err := Tokenize(tt.src)
			if err != nil {
				t.Fatalf("Tokenize(%q): %v", tt.src, err)
			}
			got := kinds(tokens)
			if len(got) != len(tt.want) {
				t.Fatalf("Tokenize(%q) kinds = %v, want %v", tt.src, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("token %d kind = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestTokenizeErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"unrecognized character", "a @ b"},
		{"unterminated string", `"abc`},
		{"bare bang", "a ! b"},
		{"malformed numeric", "12x3"},
		{"malformed date", "2024-13-45"},
		{"invalid escape", `"a\q"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Tokenize(tt.src)
			var lexErr *LexError
			if !errors.As(err, &lexErr) {
				t.Fatalf("Tokenize(%q) error = %v, want *LexError", tt.src, err)
			}
			if lexErr.Pos.Line == 0 {
				t.Errorf("lex error carries no position: %v", lexErr)
			}
		})
	}
}

func TestTokenizePositions(t *testing.T) {
	tokens, err := Tokenize("a and\n  b")
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	// a(1,1) and(1,3) b(2,3) EOF
	wantPos := []Position{{1, 1}, {1, 3}, {2, 3}}
	for i, want := range wantPos {
		if tokens[i].Pos != want {
			t.Errorf("token %d pos = %+v, want %+v", i, tokens[i].Pos, want)
		}
	}
}

func TestTokenizeStringEscapes(t *testing.T) {
	tokens, err := Tokenize(`"a\n\t\"b\""`)
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	if tokens[0].Lexeme != "a\n\t\"b\"" {
		t.Errorf("unescaped lexeme = %q", tokens[0].Lexeme)
	}

	tokens, err = Tokenize(`'single'`)
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	if tokens[0].Lexeme != "single" {
		t.Errorf("single-quoted lexeme = %q", tokens[0].Lexeme)
	}
}
