// Package statemachine evaluates guarded state transitions.
//
// A Machine declares the valid states of an entity field and the edges
// between them. Each edge may carry a guard condition evaluated against
// the candidate record. Evaluate distinguishes two failure modes: an
// undeclared edge is an InvalidTransitionError (the request is wrong),
// a declared edge whose guard is False or Unknown is a
// GuardNotSatisfiedError (the record is not ready). Guards fail closed
// on Unknown.
package statemachine
