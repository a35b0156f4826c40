// Package policy evaluates declarative access rules against entity
// records.
//
// # Model
//
// An EntityPolicy holds ordered permit and forbid rules, each scoped to
// one operation (create, read, update, delete) and optionally to a set
// of personas. Rule conditions use a restricted grammar (Condition):
// field comparisons, membership tests, null checks, count/sum/avg
// aggregates over to-many paths, role and persona checks, combined with
// and/or/not. The restriction is what makes conditions translatable
// into storage-layer filters; arbitrary expressions are converted with
// FromExpr and rejected when they fall outside the grammar.
//
// # Decisions
//
// Engine.Authorize combines rules in a fixed order:
//
//  1. Superuser bypass: ALLOW, no rules evaluated.
//  2. Any matching forbid rule: DENY. Forbid is absolute.
//  3. Any matching permit rule: ALLOW.
//  4. Otherwise: DENY. Absence of permission is denial.
//
// Conditions evaluate under three-valued logic. An Unknown result, from
// a Null comparison or an unresolved relation, makes the rule
// non-matching for permit and forbid alike: ambiguity never grants
// access.
//
// # Visibility
//
// FilterVisible applies the read decision per record. BuildPredicate
// compiles the read rules into a record-only Predicate, with principal
// checks folded to constants, for pushdown into storage queries.
package policy
