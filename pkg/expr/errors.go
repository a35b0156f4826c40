package expr

import "fmt"

// LexError reports an unrecognized character, unterminated string, or
// malformed numeric/date/duration literal during tokenizing.
type LexError struct {
	Pos     Position
	Char    rune
	Message string
}

// Error returns the error message.
func (e *LexError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Pos, e.Message)
	}
	return fmt.Sprintf("%s: unexpected character %q", e.Pos, e.Char)
}

// ParseError reports a structural error while parsing tokens.
type ParseError struct {
	Pos      Position
	Expected string
	Found    string
}

// Error returns the error message.
func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: expected %s, found %s", e.Pos, e.Expected, e.Found)
}

// TypeError reports a static type mismatch found by the checker.
type TypeError struct {
	Pos      Position
	Expected string
	Actual   string
}

// Error returns the error message.
func (e *TypeError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %s", e.Pos, e.Expected, e.Actual)
}

// EvalError reports a runtime evaluation failure that the type checker
// cannot rule out, such as division by zero or a traversal limit.
type EvalError struct {
	Pos    Position
	Reason string
	Cause  error
}

// Error returns the error message.
func (e *EvalError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Pos, e.Reason, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Pos, e.Reason)
}

// Unwrap returns the underlying cause.
func (e *EvalError) Unwrap() error {
	return e.Cause
}
