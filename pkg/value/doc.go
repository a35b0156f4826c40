// Package value defines the canonical runtime value domain shared by the
// expression evaluator, the policy/invariant/guard evaluators, and record
// field values supplied by callers.
//
// Values form a closed tagged union: Null, Bool, Int, Decimal, String,
// Date, DateTime, Duration, Enum, and Set. Decimal values are exact
// (github.com/shopspring/decimal); binary floating point never appears in
// the domain.
//
// # Three-Valued Logic
//
// Comparison and arithmetic follow SQL null semantics: any Null operand
// yields Null. Logical connectives use Kleene three-valued logic via the
// Tristate type, with the short-circuit absorption cases
// (Unknown AND False = False, Unknown OR True = True) preserved so that
// evaluated conditions translate to storage-layer filters without changing
// meaning.
//
// Values are immutable once constructed and safe for concurrent use.
package value
