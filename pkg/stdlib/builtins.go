package stdlib

import (
	"unicode/utf8"

	"github.com/thomasrohde/celviz/pkg/value"
)

// RegisterDefaults adds all built-in methods.
func RegisterDefaults(r *Registry) {
	// Sizes. len is kept as an alias of size.
	for _, kind := range []value.Kind{value.KindString, value.KindBytes, value.KindList, value.KindMap} {
		r.Register(Method{Receiver: kind, Name: "size", Arity: 0, Call: methodSize})
		r.Register(Method{Receiver: kind, Name: "len", Arity: 0, Call: methodSize})
	}

	// Membership
	r.Register(Method{Receiver: value.KindList, Name: "contains", Arity: 1, Call: listContains})
	r.Register(Method{Receiver: value.KindMap, Name: "contains", Arity: 1, Call: mapContains})
	r.Register(Method{Receiver: value.KindString, Name: "contains", Arity: 1, Call: stringContains})
	r.Register(Method{Receiver: value.KindBytes, Name: "contains", Arity: 1, Call: bytesContains})

	// String ops
	r.Register(Method{Receiver: value.KindString, Name: "startsWith", Arity: 1, Call: stringStartsWith})
	r.Register(Method{Receiver: value.KindString, Name: "endsWith", Arity: 1, Call: stringEndsWith})

	// Map ops
	r.Register(Method{Receiver: value.KindMap, Name: "keys", Arity: 0, Call: mapKeys})
	r.Register(Method{Receiver: value.KindMap, Name: "values", Arity: 0, Call: mapValues})

	// Math
	r.Register(Method{Receiver: value.KindInt, Name: "pow", Arity: 1, Call: intPow})
	r.Register(Method{Receiver: value.KindFloat, Name: "pow", Arity: 1, Call: floatPow})
}

// size() on string counts code points; on the other kinds it counts bytes,
// elements or entries.
func methodSize(recv value.Value, _ []value.Value) (value.Value, error) {
	switch v := recv.(type) {
	case value.String:
		return value.NewInt(int64(utf8.RuneCountInString(v.Value))), nil
	case value.Bytes:
		return value.NewInt(int64(len(v.Value))), nil
	case value.List:
		return value.NewInt(int64(len(v.Items))), nil
	case value.Map:
		return value.NewInt(int64(len(v.Entries))), nil
	}
	return nil, argTypeError("size", []value.Value{recv})
}
