package ruleset

import "fmt"

// LoadError reports a definition file that could not be loaded or
// compiled.
type LoadError struct {
	File    string
	Message string
	Cause   error
}

func (e *LoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.File, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.File, e.Message)
}

func (e *LoadError) Unwrap() error { return e.Cause }

// RegistryError reports a failed registry operation.
type RegistryError struct {
	Entity    string
	Operation string
	Message   string
}

func (e *RegistryError) Error() string {
	if e.Entity != "" {
		return fmt.Sprintf("registry %s %q: %s", e.Operation, e.Entity, e.Message)
	}
	return fmt.Sprintf("registry %s: %s", e.Operation, e.Message)
}
