package evaluator

import (
	"sort"

	"github.com/thomasrohde/celviz/pkg/value"
)

// Env is an immutable environment for variable bindings.
// Extend returns a child frame; the receiver is never modified, so an Env
// may be shared between concurrent evaluations. A nil *Env is empty.
type Env struct {
	vars   map[string]value.Value // root frame only
	name   string
	val    value.Value
	parent *Env
}

// NewEnv creates a root environment holding a copy of vars.
func NewEnv(vars map[string]value.Value) *Env {
	root := &Env{vars: make(map[string]value.Value, len(vars))}
	for k, v := range vars {
		root.vars[k] = v
	}
	return root
}

// Extend returns a child scope in which name is bound to val.
func (e *Env) Extend(name string, val value.Value) *Env {
	return &Env{name: name, val: val, parent: e}
}

// Get looks up a variable by name, traversing parent scopes.
func (e *Env) Get(name string) (value.Value, bool) {
	for cur := e; cur != nil; cur = cur.parent {
		if cur.vars != nil {
			v, ok := cur.vars[name]
			return v, ok
		}
		if cur.name == name {
			return cur.val, true
		}
	}
	return nil, false
}

// Has checks whether a variable is visible from this scope.
func (e *Env) Has(name string) bool {
	_, ok := e.Get(name)
	return ok
}

// Names returns the visible variable names, sorted.
func (e *Env) Names() []string {
	seen := map[string]bool{}
	for cur := e; cur != nil; cur = cur.parent {
		if cur.vars != nil {
			for k := range cur.vars {
				seen[k] = true
			}
			continue
		}
		seen[cur.name] = true
	}
	names := make([]string, 0, len(seen))
	for k := range seen {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Bindings flattens the visible variables into a new map. Inner bindings
// shadow outer ones.
func (e *Env) Bindings() map[string]value.Value {
	out := map[string]value.Value{}
	for _, name := range e.Names() {
		v, _ := e.Get(name)
		out[name] = v
	}
	return out
}
