package ruleset

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/manwithacat/dazzle-sub014/pkg/expr"
	"github.com/manwithacat/dazzle-sub014/pkg/invariant"
	"github.com/manwithacat/dazzle-sub014/pkg/policy"
	"github.com/manwithacat/dazzle-sub014/pkg/schema"
	"github.com/manwithacat/dazzle-sub014/pkg/statemachine"
)

// LoaderConfig contains configuration for the definition loader.
type LoaderConfig struct {
	// Extensions is the list of file extensions to load.
	Extensions []string

	// MaxDepth is the expression nesting limit applied while parsing
	// condition strings.
	MaxDepth int
}

// DefaultLoaderConfig returns the default loader configuration.
func DefaultLoaderConfig() *LoaderConfig {
	return &LoaderConfig{
		Extensions: []string{".yaml", ".yml"},
		MaxDepth:   expr.DefaultParserConfig().MaxDepth,
	}
}

// Validate checks the configuration.
func (c *LoaderConfig) Validate() error {
	if len(c.Extensions) == 0 {
		return fmt.Errorf("at least one extension is required")
	}
	if c.MaxDepth <= 0 {
		return fmt.Errorf("max depth must be positive, got %d", c.MaxDepth)
	}
	return nil
}

// Loader reads entity definition files and compiles them. Definitions
// are YAML: field declarations, access rules, invariants, a state
// machine, and computed field expressions, with every condition written
// as an expression string. Loading is two-pass: the schema for every
// file is built first so conditions in one file can traverse relations
// into entities declared in another.
type Loader struct {
	config *LoaderConfig
	logger *slog.Logger
}

// NewLoader creates a definition loader.
func NewLoader(config *LoaderConfig, logger *slog.Logger) (*Loader, error) {
	if config == nil {
		config = DefaultLoaderConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid loader config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{config: config, logger: logger}, nil
}

// File structure of one entity definition.
type fileDef struct {
	Entity     string              `yaml:"entity"`
	Fields     map[string]fieldDef `yaml:"fields"`
	Computed   map[string]string   `yaml:"computed"`
	Access     []accessDef         `yaml:"access"`
	Invariants []invariantDef      `yaml:"invariants"`
	State      *stateDef           `yaml:"state"`
}

type fieldDef struct {
	Type     string   `yaml:"type"`
	Values   []string `yaml:"values"`
	Entity   string   `yaml:"entity"`
	Many     bool     `yaml:"many"`
	Nullable bool     `yaml:"nullable"`
}

type accessDef struct {
	Name           string   `yaml:"name"`
	Effect         string   `yaml:"effect"`
	Operation      string   `yaml:"operation"`
	Condition      string   `yaml:"condition"`
	Personas       []string `yaml:"personas"`
	DeniedPersonas []string `yaml:"denied_personas"`
}

type invariantDef struct {
	Name      string `yaml:"name"`
	Condition string `yaml:"condition"`
	Message   string `yaml:"message"`
}

type stateDef struct {
	Field       string          `yaml:"field"`
	States      []string        `yaml:"states"`
	Transitions []transitionDef `yaml:"transitions"`
}

type transitionDef struct {
	From    string `yaml:"from"`
	To      string `yaml:"to"`
	Trigger string `yaml:"trigger"`
	Guard   string `yaml:"guard"`
}

// LoadDir loads every definition file under dir and compiles the full
// entity set. Any error in any file fails the whole load; the caller
// keeps serving the previous set.
func (l *Loader) LoadDir(dir string) ([]*Entity, error) {
	files, err := l.findFiles(dir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, &LoadError{File: dir, Message: "no definition files found"}
	}

	defs := make([]*fileDef, 0, len(files))
	for _, file := range files {
		def, err := l.readFile(file)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}

	// First pass: declare every entity's schema so cross-entity relation
	// paths resolve during condition checking.
	s := schema.New()
	for i, def := range defs {
		ent, err := buildSchema(def)
		if err != nil {
			return nil, &LoadError{File: files[i], Message: err.Error()}
		}
		s.Add(ent)
	}
	for i, def := range defs {
		if err := checkRelations(s, def); err != nil {
			return nil, &LoadError{File: files[i], Message: err.Error()}
		}
	}

	// Second pass: compile conditions and expressions.
	entities := make([]*Entity, 0, len(defs))
	for i, def := range defs {
		e, err := l.compile(s, def, files[i])
		if err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}

	l.logger.Info("entity definitions loaded",
		"dir", dir,
		"files", len(files),
		"entities", len(entities),
	)
	return entities, nil
}

func (l *Loader) findFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if strings.HasPrefix(filepath.Base(path), ".") && path != dir {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(filepath.Base(path), ".") {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		for _, valid := range l.config.Extensions {
			if ext == strings.ToLower(valid) {
				files = append(files, path)
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %q: %w", dir, err)
	}
	sort.Strings(files)
	return files, nil
}

func (l *Loader) readFile(path string) (*fileDef, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{File: path, Message: "read failed", Cause: err}
	}
	var def fileDef
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, &LoadError{File: path, Message: "invalid YAML", Cause: err}
	}
	if def.Entity == "" {
		return nil, &LoadError{File: path, Message: "entity name is required"}
	}
	if len(def.Fields) == 0 {
		return nil, &LoadError{File: path, Message: "at least one field is required"}
	}
	return &def, nil
}

// buildSchema translates field declarations into a schema entity.
func buildSchema(def *fileDef) (*schema.Entity, error) {
	ent := &schema.Entity{
		Name:   def.Entity,
		Fields: make(map[string]schema.Field, len(def.Fields)),
	}
	for name, fd := range def.Fields {
		ft := schema.FieldType(fd.Type)
		switch ft {
		case schema.TypeBool, schema.TypeInt, schema.TypeDecimal, schema.TypeString,
			schema.TypeDate, schema.TypeDateTime, schema.TypeDuration:
		case schema.TypeEnum:
			if len(fd.Values) == 0 {
				return nil, fmt.Errorf("enum field %q declares no values", name)
			}
		case schema.TypeRelation:
			if fd.Entity == "" {
				return nil, fmt.Errorf("relation field %q declares no target entity", name)
			}
		default:
			return nil, fmt.Errorf("field %q has unknown type %q", name, fd.Type)
		}
		ent.Fields[name] = schema.Field{
			Name:     name,
			Type:     ft,
			Enum:     fd.Values,
			Relation: fd.Entity,
			Many:     fd.Many,
			Nullable: fd.Nullable,
		}
	}
	return ent, nil
}

// checkRelations verifies every relation target is a declared entity.
func checkRelations(s *schema.Schema, def *fileDef) error {
	for name, fd := range def.Fields {
		if schema.FieldType(fd.Type) != schema.TypeRelation {
			continue
		}
		if _, ok := s.Entity(fd.Entity); !ok {
			return fmt.Errorf("relation field %q targets undeclared entity %q", name, fd.Entity)
		}
	}
	return nil
}

// compile turns one validated definition into a compiled entity.
func (l *Loader) compile(s *schema.Schema, def *fileDef, file string) (*Entity, error) {
	ent, _ := s.Entity(def.Entity)
	checker := expr.NewChecker(s, ent)

	e := &Entity{
		Name:       def.Entity,
		Schema:     ent,
		Policy:     &policy.EntityPolicy{Entity: def.Entity},
		SourceFile: file,
		LoadedAt:   time.Now(),
	}

	for _, ad := range def.Access {
		rule, err := l.compileRule(checker, &ad)
		if err != nil {
			return nil, &LoadError{File: file, Message: fmt.Sprintf("access rule %q", ad.Name), Cause: err}
		}
		e.Policy.Rules = append(e.Policy.Rules, *rule)
	}

	for _, id := range def.Invariants {
		if id.Name == "" {
			return nil, &LoadError{File: file, Message: "invariant name is required"}
		}
		if id.Condition == "" {
			return nil, &LoadError{File: file, Message: fmt.Sprintf("invariant %q has no condition", id.Name)}
		}
		cond, err := l.compileCondition(checker, id.Condition)
		if err != nil {
			return nil, &LoadError{File: file, Message: fmt.Sprintf("invariant %q", id.Name), Cause: err}
		}
		e.Invariants = append(e.Invariants, invariant.Invariant{
			Name:      id.Name,
			Condition: cond,
			Message:   id.Message,
		})
	}

	if def.State != nil {
		m, err := l.compileMachine(checker, ent, def.State)
		if err != nil {
			return nil, &LoadError{File: file, Message: "state machine", Cause: err}
		}
		e.Machine = m
	}

	if len(def.Computed) > 0 {
		e.Computed = make(map[string]expr.Node, len(def.Computed))
		for name, src := range def.Computed {
			node, err := expr.ParseWithConfig(src, &expr.ParserConfig{MaxDepth: l.config.MaxDepth})
			if err != nil {
				return nil, &LoadError{File: file, Message: fmt.Sprintf("computed field %q", name), Cause: err}
			}
			if _, err := checker.Check(node); err != nil {
				return nil, &LoadError{File: file, Message: fmt.Sprintf("computed field %q", name), Cause: err}
			}
			e.Computed[name] = node
		}
	}

	return e, nil
}

var (
	validEffects = map[policy.Effect]bool{
		policy.EffectPermit: true,
		policy.EffectForbid: true,
	}
	validOperations = map[policy.Operation]bool{
		policy.OperationCreate: true,
		policy.OperationRead:   true,
		policy.OperationUpdate: true,
		policy.OperationDelete: true,
	}
)

func (l *Loader) compileRule(checker *expr.Checker, ad *accessDef) (*policy.AccessRule, error) {
	if ad.Name == "" {
		return nil, fmt.Errorf("rule name is required")
	}
	if !validEffects[policy.Effect(ad.Effect)] {
		return nil, fmt.Errorf("unknown effect %q", ad.Effect)
	}
	if !validOperations[policy.Operation(ad.Operation)] {
		return nil, fmt.Errorf("unknown operation %q", ad.Operation)
	}

	rule := &policy.AccessRule{
		Name:            ad.Name,
		Effect:          policy.Effect(ad.Effect),
		Operation:       policy.Operation(ad.Operation),
		AllowedPersonas: ad.Personas,
		DeniedPersonas:  ad.DeniedPersonas,
	}
	if ad.Condition != "" {
		cond, err := l.compileCondition(checker, ad.Condition)
		if err != nil {
			return nil, err
		}
		rule.Condition = cond
	}
	return rule, nil
}

// compileCondition parses, type checks, and lowers one condition string.
func (l *Loader) compileCondition(checker *expr.Checker, src string) (policy.Condition, error) {
	node, err := expr.ParseWithConfig(src, &expr.ParserConfig{MaxDepth: l.config.MaxDepth})
	if err != nil {
		return nil, err
	}
	t, err := checker.Check(node)
	if err != nil {
		return nil, err
	}
	if t.Kind != expr.TypeBool && t.Kind != expr.TypeNull && t.Kind != expr.TypeAny {
		return nil, fmt.Errorf("condition must be boolean, got %s", t)
	}
	return policy.FromExpr(node)
}

func (l *Loader) compileMachine(checker *expr.Checker, ent *schema.Entity, sd *stateDef) (*statemachine.Machine, error) {
	if sd.Field == "" {
		return nil, fmt.Errorf("state field is required")
	}
	if _, ok := ent.Field(sd.Field); !ok {
		return nil, fmt.Errorf("state field %q is not declared", sd.Field)
	}
	if len(sd.States) == 0 {
		return nil, fmt.Errorf("at least one state is required")
	}

	m := &statemachine.Machine{
		Field:  sd.Field,
		States: sd.States,
	}
	for _, td := range sd.Transitions {
		if !m.HasState(td.From) {
			return nil, fmt.Errorf("transition references undeclared state %q", td.From)
		}
		if !m.HasState(td.To) {
			return nil, fmt.Errorf("transition references undeclared state %q", td.To)
		}
		tr := statemachine.Transition{From: td.From, To: td.To, Trigger: td.Trigger}
		if td.Guard != "" {
			guard, err := l.compileCondition(checker, td.Guard)
			if err != nil {
				return nil, fmt.Errorf("guard for %s -> %s: %w", td.From, td.To, err)
			}
			tr.Guard = guard
		}
		m.Transitions = append(m.Transitions, tr)
	}
	return m, nil
}
