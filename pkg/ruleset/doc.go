// Package ruleset loads, compiles, and caches entity rule definitions.
//
// Definitions are YAML files declaring an entity's fields, access rules,
// invariants, state machine, and computed field expressions, with every
// condition written as an expression string. The Loader parses and type
// checks each condition at load time and lowers it into the restricted
// condition grammar, so the evaluation path never touches source text.
//
// Compiled entities live in a Registry with copy-on-write semantics:
// Replace swaps the whole entity map atomically, so in-flight
// evaluations finish against the set they started with. The Watcher
// reloads changed definition directories with debouncing; a failed load
// keeps the previous set serving.
package ruleset
