package value

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
)

// ToJSON marshals a Value to plain JSON for host output.
// Maps with only string keys become objects in insertion order; other maps
// become arrays of {"key", "value"} pairs. Bytes are base64 encoded.
func ToJSON(v Value) ([]byte, error) {
	return json.Marshal(toRaw(v))
}

// ToJSONString is a convenience that returns a string.
func ToJSONString(v Value) string {
	b, err := ToJSON(v)
	if err != nil {
		return "null"
	}
	return string(b)
}

func toRaw(v Value) any {
	switch val := v.(type) {
	case nil, Null:
		return nil
	case Bool:
		return val.Value
	case Int:
		return val.Value
	case Float:
		return floatRaw(val.Value)
	case String:
		return val.Value
	case Bytes:
		return val.Value
	case List:
		items := make([]any, len(val.Items))
		for i, item := range val.Items {
			items[i] = toRaw(item)
		}
		return items
	case Map:
		if stringKeyed(val) {
			return &orderedObject{entries: val.Entries}
		}
		pairs := make([]map[string]any, len(val.Entries))
		for i, e := range val.Entries {
			pairs[i] = map[string]any{"key": toRaw(e.Key), "value": toRaw(e.Value)}
		}
		return pairs
	}
	return nil
}

// JSON has no NaN or infinities.
func floatRaw(f float64) any {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "+Inf"
	case math.IsInf(f, -1):
		return "-Inf"
	}
	return f
}

func stringKeyed(m Map) bool {
	for _, e := range m.Entries {
		if _, ok := e.Key.(String); !ok {
			return false
		}
	}
	return true
}

// orderedObject preserves key order in JSON output.
type orderedObject struct {
	entries []Entry
}

func (o *orderedObject) MarshalJSON() ([]byte, error) {
	if len(o.entries) == 0 {
		return []byte("{}"), nil
	}

	buf := []byte{'{'}
	for i, e := range o.entries {
		if i > 0 {
			buf = append(buf, ',')
		}
		keyBytes, err := json.Marshal(e.Key.(String).Value)
		if err != nil {
			return nil, err
		}
		buf = append(buf, keyBytes...)
		buf = append(buf, ':')

		valBytes, err := json.Marshal(toRaw(e.Value))
		if err != nil {
			return nil, err
		}
		buf = append(buf, valBytes...)
	}
	buf = append(buf, '}')
	return buf, nil
}

// Tagged is the kind-annotated encoding of a Value used in AST and trace
// output, where plain JSON would lose the int/float and string/bytes split.
type Tagged struct {
	Kind  Kind `json:"kind"`
	Value any  `json:"value"`
}

// TaggedEntry is one encoded map entry.
type TaggedEntry struct {
	Key   Tagged `json:"key"`
	Value Tagged `json:"value"`
}

// Encode converts v into its tagged form.
func Encode(v Value) Tagged {
	switch val := v.(type) {
	case List:
		items := make([]Tagged, len(val.Items))
		for i, item := range val.Items {
			items[i] = Encode(item)
		}
		return Tagged{Kind: KindList, Value: items}
	case Map:
		entries := make([]TaggedEntry, len(val.Entries))
		for i, e := range val.Entries {
			entries[i] = TaggedEntry{Key: Encode(e.Key), Value: Encode(e.Value)}
		}
		return Tagged{Kind: KindMap, Value: entries}
	case nil:
		return Tagged{Kind: KindNull}
	}
	return Tagged{Kind: v.Kind(), Value: toRaw(v)}
}

// FromNative converts decoded JSON or YAML data into a Value.
// Go maps have no order, so their entries are sorted by key.
func FromNative(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return NewNull(), nil
	case Value:
		return val, nil
	case bool:
		return NewBool(val), nil
	case int:
		return NewInt(int64(val)), nil
	case int64:
		return NewInt(val), nil
	case uint64:
		if val > math.MaxInt64 {
			return nil, fmt.Errorf("integer %d out of range", val)
		}
		return NewInt(int64(val)), nil
	case float64:
		return NewFloat(val), nil
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return NewInt(n), nil
		}
		f, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", val.String(), err)
		}
		return NewFloat(f), nil
	case string:
		return NewString(val), nil
	case []byte:
		return NewBytes(val), nil
	case []any:
		items := make([]Value, len(val))
		for i, item := range val {
			conv, err := FromNative(item)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			items[i] = conv
		}
		return List{Items: items}, nil
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		entries := make([]Entry, 0, len(keys))
		for _, k := range keys {
			conv, err := FromNative(val[k])
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			entries = append(entries, Entry{Key: NewString(k), Value: conv})
		}
		return Map{Entries: entries}, nil
	case map[any]any:
		entries := make([]Entry, 0, len(val))
		for k, item := range val {
			key, err := FromNative(k)
			if err != nil {
				return nil, err
			}
			conv, err := FromNative(item)
			if err != nil {
				return nil, fmt.Errorf("%v: %w", k, err)
			}
			entries = append(entries, Entry{Key: key, Value: conv})
		}
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].Key.String() < entries[j].Key.String()
		})
		return NewMap(entries), nil
	}
	return nil, fmt.Errorf("unsupported value type %T", v)
}
