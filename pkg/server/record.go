package server

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/manwithacat/dazzle-sub014/pkg/expr"
	"github.com/manwithacat/dazzle-sub014/pkg/ruleset"
	"github.com/manwithacat/dazzle-sub014/pkg/schema"
	"github.com/manwithacat/dazzle-sub014/pkg/value"
)

// recordPayload is the wire shape of a record and its resolved relations.
// Request bodies are decoded with json.Number so int and decimal fields
// keep their exact textual form.
type recordPayload struct {
	Record      map[string]any            `json:"record"`
	Related     map[string]map[string]any `json:"related"`
	RelatedMany map[string][]map[string]any `json:"related_many"`
}

// buildContext decodes a payload into an evaluation context, resolving
// relation payloads against their target entity's schema.
func (s *Server) buildContext(ent *ruleset.Entity, p *recordPayload) (*expr.Context, error) {
	record, err := decodeRecord(ent.Schema, p.Record)
	if err != nil {
		return nil, err
	}
	ctx := &expr.Context{Record: record}

	for name, fields := range p.Related {
		target, err := s.relationTarget(ent, name, false)
		if err != nil {
			return nil, err
		}
		rec, err := decodeRecord(target, fields)
		if err != nil {
			return nil, fmt.Errorf("relation %q: %w", name, err)
		}
		if ctx.Related == nil {
			ctx.Related = make(map[string]*expr.Context)
		}
		ctx.Related[name] = &expr.Context{Record: rec}
	}

	for name, items := range p.RelatedMany {
		target, err := s.relationTarget(ent, name, true)
		if err != nil {
			return nil, err
		}
		contexts := make([]*expr.Context, len(items))
		for i, fields := range items {
			rec, err := decodeRecord(target, fields)
			if err != nil {
				return nil, fmt.Errorf("relation %q[%d]: %w", name, i, err)
			}
			contexts[i] = &expr.Context{Record: rec}
		}
		if ctx.RelatedMany == nil {
			ctx.RelatedMany = make(map[string][]*expr.Context)
		}
		ctx.RelatedMany[name] = contexts
	}

	return ctx, nil
}

// relationTarget resolves the schema of a relation's target entity from
// the registry.
func (s *Server) relationTarget(ent *ruleset.Entity, name string, many bool) (*schema.Entity, error) {
	f, ok := ent.Schema.Field(name)
	if !ok {
		return nil, fmt.Errorf("entity %q has no field %q", ent.Name, name)
	}
	if f.Type != schema.TypeRelation {
		return nil, fmt.Errorf("field %q of %q is not a relation", name, ent.Name)
	}
	if f.Many != many {
		if many {
			return nil, fmt.Errorf("relation %q of %q is to-one, use related", name, ent.Name)
		}
		return nil, fmt.Errorf("relation %q of %q is to-many, use related_many", name, ent.Name)
	}
	target, ok := s.registry.Get(f.Relation)
	if !ok {
		return nil, fmt.Errorf("relation %q targets unregistered entity %q", name, f.Relation)
	}
	return target.Schema, nil
}

// decodeRecord converts JSON field values into typed runtime values per
// the entity schema. A JSON null decodes to Null regardless of type;
// unknown fields are rejected.
func decodeRecord(ent *schema.Entity, fields map[string]any) (expr.Record, error) {
	record := make(expr.Record, len(fields))
	for name, raw := range fields {
		f, ok := ent.Field(name)
		if !ok {
			return nil, fmt.Errorf("entity %q has no field %q", ent.Name, name)
		}
		if f.Type == schema.TypeRelation {
			return nil, fmt.Errorf("relation %q must be provided via related or related_many", name)
		}
		v, err := decodeValue(ent.Name, f, raw)
		if err != nil {
			return nil, err
		}
		record[name] = v
	}
	return record, nil
}

func decodeValue(entity string, f schema.Field, raw any) (value.Value, error) {
	if raw == nil {
		return value.Null(), nil
	}

	fail := func(want string) (value.Value, error) {
		return value.Null(), fmt.Errorf("field %q of %q: expected %s, got %T", f.Name, entity, want, raw)
	}

	switch f.Type {
	case schema.TypeBool:
		b, ok := raw.(bool)
		if !ok {
			return fail("bool")
		}
		return value.Bool(b), nil

	case schema.TypeInt:
		n, ok := raw.(json.Number)
		if !ok {
			return fail("integer")
		}
		i, err := n.Int64()
		if err != nil {
			return value.Null(), fmt.Errorf("field %q of %q: %q is not an integer", f.Name, entity, n)
		}
		return value.Int(i), nil

	case schema.TypeDecimal:
		var text string
		switch n := raw.(type) {
		case json.Number:
			text = n.String()
		case string:
			text = n
		default:
			return fail("number or numeric string")
		}
		v, err := value.DecimalString(text)
		if err != nil {
			return value.Null(), fmt.Errorf("field %q of %q: %w", f.Name, entity, err)
		}
		return v, nil

	case schema.TypeString:
		s, ok := raw.(string)
		if !ok {
			return fail("string")
		}
		return value.String(s), nil

	case schema.TypeDate:
		s, ok := raw.(string)
		if !ok {
			return fail("date string")
		}
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			return value.Null(), fmt.Errorf("field %q of %q: %q is not a date", f.Name, entity, s)
		}
		return value.Date(t), nil

	case schema.TypeDateTime:
		s, ok := raw.(string)
		if !ok {
			return fail("datetime string")
		}
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return value.Null(), fmt.Errorf("field %q of %q: %q is not a datetime", f.Name, entity, s)
		}
		return value.DateTime(t), nil

	case schema.TypeDuration:
		s, ok := raw.(string)
		if !ok {
			return fail("duration string")
		}
		d, err := time.ParseDuration(s)
		if err != nil {
			return value.Null(), fmt.Errorf("field %q of %q: %q is not a duration", f.Name, entity, s)
		}
		return value.Duration(d), nil

	case schema.TypeEnum:
		s, ok := raw.(string)
		if !ok {
			return fail("enum member string")
		}
		for _, member := range f.Enum {
			if member == s {
				return value.Enum(entity+"."+f.Name, s), nil
			}
		}
		return value.Null(), fmt.Errorf("field %q of %q: %q is not a declared member", f.Name, entity, s)
	}

	return value.Null(), fmt.Errorf("field %q of %q has undecodable type %q", f.Name, entity, f.Type)
}
