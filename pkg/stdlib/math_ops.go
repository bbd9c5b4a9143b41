package stdlib

import (
	"math"

	"github.com/thomasrohde/celviz/pkg/value"
)

// 2.pow(10) → int. Negative exponents are rejected since the result would
// not be an integer.
func intPow(recv value.Value, args []value.Value) (value.Value, error) {
	base := recv.(value.Int).Value
	exp, ok := args[0].(value.Int)
	if !ok || exp.Value < 0 {
		return nil, argTypeError("pow", args)
	}

	result := int64(1)
	b := base
	for e := exp.Value; e > 0; e >>= 1 {
		if e&1 == 1 {
			next, ok := mulInt64(result, b)
			if !ok {
				return nil, ErrOverflow
			}
			result = next
		}
		if e > 1 {
			sq, ok := mulInt64(b, b)
			if !ok {
				return nil, ErrOverflow
			}
			b = sq
		}
	}
	return value.NewInt(result), nil
}

// 2.0.pow(0.5) or 2.0.pow(3) → float
func floatPow(recv value.Value, args []value.Value) (value.Value, error) {
	base := recv.(value.Float).Value
	switch exp := args[0].(type) {
	case value.Int:
		return value.NewFloat(math.Pow(base, float64(exp.Value))), nil
	case value.Float:
		return value.NewFloat(math.Pow(base, exp.Value)), nil
	}
	return nil, argTypeError("pow", args)
}

// mulInt64 multiplies with overflow detection.
func mulInt64(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	c := a * b
	if (c < 0) != ((a < 0) != (b < 0)) || c/b != a {
		return 0, false
	}
	return c, true
}
