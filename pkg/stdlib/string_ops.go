package stdlib

import (
	"bytes"
	"strings"

	"github.com/thomasrohde/celviz/pkg/value"
)

// "abc".contains("b") → bool
func stringContains(recv value.Value, args []value.Value) (value.Value, error) {
	s := recv.(value.String)
	sub, ok := args[0].(value.String)
	if !ok {
		return nil, argTypeError("contains", args)
	}
	return value.NewBool(strings.Contains(s.Value, sub.Value)), nil
}

// b"abc".contains(b"b") → bool
func bytesContains(recv value.Value, args []value.Value) (value.Value, error) {
	b := recv.(value.Bytes)
	sub, ok := args[0].(value.Bytes)
	if !ok {
		return nil, argTypeError("contains", args)
	}
	return value.NewBool(bytes.Contains(b.Value, sub.Value)), nil
}

// "abc".startsWith("a") → bool
func stringStartsWith(recv value.Value, args []value.Value) (value.Value, error) {
	s := recv.(value.String)
	prefix, ok := args[0].(value.String)
	if !ok {
		return nil, argTypeError("startsWith", args)
	}
	return value.NewBool(strings.HasPrefix(s.Value, prefix.Value)), nil
}

// "abc".endsWith("c") → bool
func stringEndsWith(recv value.Value, args []value.Value) (value.Value, error) {
	s := recv.(value.String)
	suffix, ok := args[0].(value.String)
	if !ok {
		return nil, argTypeError("endsWith", args)
	}
	return value.NewBool(strings.HasSuffix(s.Value, suffix.Value)), nil
}
