// Package casefile is the interface boundary to the external case-assembly
// collaborator. A case arrives as a flat name→value map (JSON interchange);
// this package wraps it as a read-only environment and derives the hash
// used in evaluation cache keys. The engine itself consumes the plain map
// and treats absent keys as insufficient data, never as an error.
package casefile

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/Iruma16/phoenix-insolvency-360-sub001/pkg/canonicalize"
)

// Environment is an immutable snapshot of case facts.
type Environment struct {
	vars map[string]any
}

// New copies the given variables into a fresh environment.
func New(vars map[string]any) *Environment {
	copied := make(map[string]any, len(vars))
	for k, v := range vars {
		copied[k] = v
	}
	return &Environment{vars: copied}
}

// Load reads a case variable file: a single flat JSON object.
func Load(path string) (*Environment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("casefile: read %s: %w", path, err)
	}
	var vars map[string]any
	if err := json.Unmarshal(data, &vars); err != nil {
		return nil, fmt.Errorf("casefile: parse %s: %w", path, err)
	}
	return New(vars), nil
}

// Vars returns a copy of the variable map. Callers get a snapshot; the
// environment itself stays immutable.
func (e *Environment) Vars() map[string]any {
	copied := make(map[string]any, len(e.vars))
	for k, v := range e.vars {
		copied[k] = v
	}
	return copied
}

// Get looks up one variable.
func (e *Environment) Get(name string) (any, bool) {
	v, ok := e.vars[name]
	return v, ok
}

// Len reports the number of case facts.
func (e *Environment) Len() int { return len(e.vars) }

// Hash returns the canonical content hash of the environment, the
// case-variables component of a result cache key.
func (e *Environment) Hash() (string, error) {
	return canonicalize.CanonicalHash(e.vars)
}
