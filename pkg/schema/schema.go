// Package schema declares the typed field and relation layout of entities.
// The type checker and evaluators resolve every field reference against an
// explicit schema lookup; there is no reflective or duck-typed field
// access anywhere in the evaluation path.
package schema

import "fmt"

// FieldType is the declared scalar type of an entity field.
type FieldType string

const (
	TypeBool     FieldType = "bool"
	TypeInt      FieldType = "int"
	TypeDecimal  FieldType = "decimal"
	TypeString   FieldType = "string"
	TypeDate     FieldType = "date"
	TypeDateTime FieldType = "datetime"
	TypeDuration FieldType = "duration"
	TypeEnum     FieldType = "enum"
	TypeRelation FieldType = "relation"
)

// Field describes one declared field of an entity.
type Field struct {
	// Name is the field name.
	Name string

	// Type is the declared type.
	Type FieldType

	// Enum lists the allowed members when Type is TypeEnum.
	Enum []string

	// Relation names the target entity when Type is TypeRelation.
	Relation string

	// Many marks a to-many relation; traversing it yields a set of
	// related records rather than a single one.
	Many bool

	// Nullable marks fields that may legitimately be absent.
	Nullable bool
}

// Entity describes the declared fields of one entity.
type Entity struct {
	Name   string
	Fields map[string]Field
}

// Field returns the declared field with the given name.
func (e *Entity) Field(name string) (Field, bool) {
	f, ok := e.Fields[name]
	return f, ok
}

// Schema maps entity names to their definitions.
type Schema struct {
	Entities map[string]*Entity
}

// New returns an empty schema.
func New() *Schema {
	return &Schema{Entities: make(map[string]*Entity)}
}

// Add registers an entity definition, replacing any previous definition
// with the same name.
func (s *Schema) Add(e *Entity) {
	s.Entities[e.Name] = e
}

// Entity returns the entity definition with the given name.
func (s *Schema) Entity(name string) (*Entity, bool) {
	e, ok := s.Entities[name]
	return e, ok
}

// NotFoundError reports a failed schema lookup.
type NotFoundError struct {
	Entity string
	Field  string
}

// Error returns the error message.
func (e *NotFoundError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("entity not found: %q", e.Entity)
	}
	return fmt.Sprintf("field %q not found on entity %q", e.Field, e.Entity)
}
