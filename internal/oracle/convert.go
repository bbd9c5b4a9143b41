package oracle

import (
	"fmt"
	"math"

	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/common/types/traits"

	"github.com/thomasrohde/celviz/pkg/value"
)

func toCEL(v value.Value) (ref.Val, error) {
	switch val := v.(type) {
	case value.Null:
		return types.NullValue, nil
	case value.Bool:
		return types.Bool(val.Value), nil
	case value.Int:
		return types.Int(val.Value), nil
	case value.Float:
		return types.Double(val.Value), nil
	case value.String:
		return types.String(val.Value), nil
	case value.Bytes:
		return types.Bytes(val.Value), nil
	case value.List:
		items := make([]ref.Val, len(val.Items))
		for i, item := range val.Items {
			conv, err := toCEL(item)
			if err != nil {
				return nil, err
			}
			items[i] = conv
		}
		return types.NewRefValList(types.DefaultTypeAdapter, items), nil
	case value.Map:
		entries := make(map[ref.Val]ref.Val, len(val.Entries))
		for _, e := range val.Entries {
			switch e.Key.Kind() {
			case value.KindBool, value.KindInt, value.KindString:
			default:
				return nil, fmt.Errorf("%s map keys", e.Key.Kind())
			}
			k, err := toCEL(e.Key)
			if err != nil {
				return nil, err
			}
			conv, err := toCEL(e.Value)
			if err != nil {
				return nil, err
			}
			entries[k] = conv
		}
		return types.NewRefValMap(types.DefaultTypeAdapter, entries), nil
	}
	return nil, fmt.Errorf("unknown value %T", v)
}

func fromCEL(v ref.Val) (value.Value, error) {
	switch val := v.(type) {
	case types.Null:
		return value.NewNull(), nil
	case types.Bool:
		return value.NewBool(bool(val)), nil
	case types.Int:
		return value.NewInt(int64(val)), nil
	case types.Uint:
		if uint64(val) > math.MaxInt64 {
			return nil, fmt.Errorf("uint %d out of int range", uint64(val))
		}
		return value.NewInt(int64(val)), nil
	case types.Double:
		return value.NewFloat(float64(val)), nil
	case types.String:
		return value.NewString(string(val)), nil
	case types.Bytes:
		return value.NewBytes([]byte(val)), nil
	case traits.Mapper:
		var entries []value.Entry
		it := val.Iterator()
		for it.HasNext() == types.True {
			k := it.Next()
			key, err := fromCEL(k)
			if err != nil {
				return nil, err
			}
			elem, err := fromCEL(val.Get(k))
			if err != nil {
				return nil, err
			}
			entries = append(entries, value.Entry{Key: key, Value: elem})
		}
		return value.NewMap(entries), nil
	case traits.Lister:
		var items []value.Value
		it := val.Iterator()
		for it.HasNext() == types.True {
			item, err := fromCEL(it.Next())
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
		return value.NewList(items), nil
	}
	return nil, fmt.Errorf("result type %s", v.Type().TypeName())
}
