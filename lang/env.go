package lang

import (
	"log/slog"
	"maps"
	"slices"
)

// Environment maps canonical identifiers to values. Each call frame owns
// one; the outermost frame's environment holds the global variables.
type Environment struct {
	vars map[string]Value
}

// NewEnvironment returns an empty environment.
func NewEnvironment() *Environment {
	return &Environment{vars: map[string]Value{}}
}

// Get returns the value bound to name, case-insensitively.
func (e *Environment) Get(name string) (Value, bool) {
	v, ok := e.vars[Canonical(name)]

	return v, ok
}

// Set binds name to v, replacing any previous binding. Binding Undefined
// removes the name.
func (e *Environment) Set(name string, v Value) {
	if IsUndefined(v) {
		e.Delete(name)

		return
	}

	e.vars[Canonical(name)] = v
}

// Delete removes the binding for name.
func (e *Environment) Delete(name string) { delete(e.vars, Canonical(name)) }

// Names returns the bound names in sorted order.
func (e *Environment) Names() []string {
	return slices.Sorted(maps.Keys(e.vars))
}

// Len returns the number of bindings.
func (e *Environment) Len() int { return len(e.vars) }

// Clone returns a deep copy of e.
func (e *Environment) Clone() *Environment {
	c := NewEnvironment()
	for k, v := range e.vars {
		c.vars[k] = Copy(v)
	}

	return c
}

// LogValue implements slog.LogValuer.
func (e *Environment) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("variables", len(e.vars)),
		slog.Any("names", e.Names()),
	)
}

// frame is one activation on the call stack.
type frame struct {
	env     *Environment
	routine *RoutineDef // nil for the global frame
	nparams int         // positional arguments supplied by the caller
	ret     Value       // value of RETURN, for functions
}
