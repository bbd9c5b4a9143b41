package stdlib

import (
	"github.com/thomasrohde/celviz/pkg/value"
)

// {"a": 1}.contains("a") → bool, testing keys
func mapContains(recv value.Value, args []value.Value) (value.Value, error) {
	m := recv.(value.Map)
	_, ok := m.Get(args[0])
	return value.NewBool(ok), nil
}

// {"b": 1, "a": 2}.keys() → ["b", "a"] in insertion order
func mapKeys(recv value.Value, _ []value.Value) (value.Value, error) {
	m := recv.(value.Map)
	return value.List{Items: m.Keys()}, nil
}

// {"b": 1, "a": 2}.values() → [1, 2] in insertion order
func mapValues(recv value.Value, _ []value.Value) (value.Value, error) {
	m := recv.(value.Map)
	return value.List{Items: m.Values()}, nil
}
