// Package expr implements the typed expression language used by computed
// fields, invariants, and rule conditions: tokenizer, recursive-descent
// parser, static type checker, and runtime evaluator over a shared
// immutable AST.
//
// # Pipeline
//
//	source text
//	     ↓ Tokenize (positions, literal classification)
//	 []Token
//	     ↓ ParseTokens (precedence climbing, depth limit)
//	   Node (immutable AST)
//	     ↓ Checker.Check (offline, against a declared schema)
//	   Type
//	     ↓ Eval (per record, against a resolved Context)
//	 value.Value
//
// Type checking is a separate, optional static pass: evaluation depends
// only on the AST shape, never on the checker.
//
// # Grammar
//
// Operator precedence, highest to lowest: unary not/negate;
// multiplicative; additive; comparison (=, !=, <, <=, >, >=, in, not in,
// and the postfix is null / is not null); logical and; logical or;
// if/then/else. Ties break left-to-right except unary operators and the
// conditional, which are right-associative. Field references are dotted
// identifier chains, resolved only by the checker and the evaluator.
//
// Literals: integers, exact decimals (1.50), quoted strings, booleans,
// null, ISO dates (2024-01-31), datetimes (2024-01-31T10:00:00Z), and
// durations as an integer with a unit suffix (30d, 12h, 90m, 45s, 2w).
//
// # Null Semantics
//
// Evaluation follows SQL three-valued logic exactly, because evaluated
// expressions are also translated into storage filters: a Null operand to
// arithmetic or comparison yields Null; null and false = false, null or
// true = true; is null / is not null are the only direct observers of the
// Null discriminator.
//
// # Errors
//
// Tokenize returns *LexError, parsing returns *ParseError, checking
// returns *TypeError, evaluation returns *EvalError. All carry positions.
// Parsing is total: malformed input never panics. The parser rejects
// nesting beyond ParserConfig.MaxDepth and the evaluator rejects
// relationship chains beyond Context.MaxHops.
package expr
