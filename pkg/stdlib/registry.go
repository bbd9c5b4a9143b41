// Package stdlib provides the fixed table of built-in CEL methods.
package stdlib

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/thomasrohde/celviz/pkg/value"
)

// Method is a built-in method bound to one receiver kind.
type Method struct {
	Receiver value.Kind
	Name     string
	Arity    int
	Call     func(recv value.Value, args []value.Value) (value.Value, error)
}

type methodKey struct {
	receiver value.Kind
	name     string
}

// Registry holds registered methods keyed by receiver kind and name.
type Registry struct {
	methods map[methodKey]*Method
}

// NewRegistry creates a new empty method registry.
func NewRegistry() *Registry {
	return &Registry{
		methods: make(map[methodKey]*Method),
	}
}

// Register adds a method to the registry, replacing any method with the same
// receiver and name.
func (r *Registry) Register(m Method) {
	r.methods[methodKey{m.Receiver, m.Name}] = &m
}

// Lookup retrieves the method for a receiver kind.
func (r *Registry) Lookup(receiver value.Kind, name string) (*Method, bool) {
	m, ok := r.methods[methodKey{receiver, name}]
	return m, ok
}

// HasName reports whether any receiver kind has a method called name.
func (r *Registry) HasName(name string) bool {
	for k := range r.methods {
		if k.name == name {
			return true
		}
	}
	return false
}

// Arities returns the distinct argument counts accepted by methods called
// name, in ascending order.
func (r *Registry) Arities(name string) []int {
	seen := map[int]bool{}
	var out []int
	for k, m := range r.methods {
		if k.name == name && !seen[m.Arity] {
			seen[m.Arity] = true
			out = append(out, m.Arity)
		}
	}
	sort.Ints(out)
	return out
}

// All returns all registered methods sorted by name, then receiver kind.
func (r *Registry) All() []*Method {
	out := make([]*Method, 0, len(r.methods))
	for _, m := range r.methods {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Receiver < out[j].Receiver
	})
	return out
}

// Defaults returns a registry with RegisterDefaults applied.
func Defaults() *Registry {
	r := NewRegistry()
	RegisterDefaults(r)
	return r
}

// ErrOverflow reports an integer result outside the int64 range.
var ErrOverflow = errors.New("integer overflow")

// ArgTypeError reports arguments of kinds a method does not accept.
type ArgTypeError struct {
	Method string
	Kinds  []value.Kind
}

func (e *ArgTypeError) Error() string {
	names := make([]string, len(e.Kinds))
	for i, k := range e.Kinds {
		names[i] = k.String()
	}
	return fmt.Sprintf("%s: unsupported argument types (%s)", e.Method, strings.Join(names, ", "))
}

func argTypeError(method string, args []value.Value) error {
	kinds := make([]value.Kind, len(args))
	for i, a := range args {
		kinds[i] = a.Kind()
	}
	return &ArgTypeError{Method: method, Kinds: kinds}
}
