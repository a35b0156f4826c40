package ruleset

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Registry is thread-safe in-memory storage for compiled entities. It
// uses copy-on-write semantics: Replace swaps the whole entity map in
// one assignment under the write lock, so a reader holding an entity
// from before the swap keeps evaluating against a consistent tree.
type Registry struct {
	mu       sync.RWMutex
	entities map[string]*Entity
	version  string
	loadTime time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entities: make(map[string]*Entity),
		loadTime: time.Now(),
	}
}

// Register adds or replaces a single compiled entity.
func (r *Registry) Register(e *Entity) error {
	if e == nil {
		return &RegistryError{Operation: "register", Message: "entity cannot be nil"}
	}
	if e.Name == "" {
		return &RegistryError{Operation: "register", Message: "entity name cannot be empty"}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.entities[e.Name] = e
	r.updateVersion()
	return nil
}

// Replace atomically swaps the entire entity set. Used by hot reload so
// a partially loaded definition set is never observable.
func (r *Registry) Replace(entities []*Entity) error {
	for _, e := range entities {
		if e == nil {
			return &RegistryError{Operation: "replace", Message: "entity cannot be nil"}
		}
		if e.Name == "" {
			return &RegistryError{Operation: "replace", Message: "entity name cannot be empty"}
		}
	}

	next := make(map[string]*Entity, len(entities))
	for _, e := range entities {
		next[e.Name] = e
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.entities = next
	r.loadTime = time.Now()
	r.updateVersion()
	return nil
}

// Unregister removes an entity by name.
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entities[name]; !ok {
		return &RegistryError{Entity: name, Operation: "unregister", Message: "entity not found"}
	}
	delete(r.entities, name)
	r.updateVersion()
	return nil
}

// Get retrieves a compiled entity by name.
func (r *Registry) Get(name string) (*Entity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entities[name]
	return e, ok
}

// Names returns the sorted names of all registered entities.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entities))
	for name := range r.entities {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered entities.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entities)
}

// Version returns the registry version. It changes whenever the entity
// set changes.
func (r *Registry) Version() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version
}

// LoadTime returns when the entity set was last replaced.
func (r *Registry) LoadTime() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loadTime
}

// updateVersion recomputes the version hash from entity names and source
// files. Called with the write lock held.
func (r *Registry) updateVersion() {
	h := sha256.New()

	names := make([]string, 0, len(r.entities))
	for name := range r.entities {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		e := r.entities[name]
		h.Write([]byte(e.Name))
		h.Write([]byte(e.SourceFile))
		h.Write([]byte(e.LoadedAt.Format(time.RFC3339Nano)))
	}

	r.version = fmt.Sprintf("%x", h.Sum(nil))[:16]
}
