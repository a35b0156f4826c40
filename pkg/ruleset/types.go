package ruleset

import (
	"time"

	"github.com/manwithacat/dazzle-sub014/pkg/expr"
	"github.com/manwithacat/dazzle-sub014/pkg/invariant"
	"github.com/manwithacat/dazzle-sub014/pkg/policy"
	"github.com/manwithacat/dazzle-sub014/pkg/schema"
	"github.com/manwithacat/dazzle-sub014/pkg/statemachine"
)

// Entity is one fully compiled entity definition: its schema plus every
// rule attached to it, with all condition strings already parsed, type
// checked, and lowered into condition trees. Compiled entities are
// immutable; a reload builds new ones and swaps them into the registry
// wholesale.
type Entity struct {
	Name string

	// Schema declares the entity's fields and relations.
	Schema *schema.Entity

	// Policy holds the entity's access rules.
	Policy *policy.EntityPolicy

	// Invariants must hold for every persisted record.
	Invariants []invariant.Invariant

	// Machine is the entity's state machine, nil when none is declared.
	Machine *statemachine.Machine

	// Computed maps derived field names to their checked expressions.
	Computed map[string]expr.Node

	// SourceFile is the definition file the entity was loaded from.
	SourceFile string

	// LoadedAt is when this compilation happened.
	LoadedAt time.Time
}
