// Package invariant checks named record conditions before writes.
//
// An invariant holds only when its condition evaluates strictly True.
// Unknown fails closed: a Null field or an unresolved relation is a
// violation, the opposite of how access rules treat Unknown. Check
// returns every violation, not just the first, so callers can report
// them all in one pass. Merge builds the candidate record from stored
// state plus pending changes.
package invariant
