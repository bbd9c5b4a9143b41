// Package value defines the CEL runtime value model.
package value

import (
	"bytes"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Kind identifies the variant of a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindBytes
	KindList
	KindMap
)

var kindNames = [...]string{
	KindNull:   "null",
	KindBool:   "bool",
	KindInt:    "int",
	KindFloat:  "float",
	KindString: "string",
	KindBytes:  "bytes",
	KindList:   "list",
	KindMap:    "map",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
	return kindNames[k]
}

// MarshalText renders the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Value is the interface for all runtime values.
// The sealed marker method restricts implementations to this package.
type Value interface {
	Kind() Kind
	String() string
	value() // sealed marker
}

// Null is the null value.
type Null struct{}

// Bool is a boolean value.
type Bool struct {
	Value bool
}

// Int is a signed 64-bit integer value.
type Int struct {
	Value int64
}

// Float is an IEEE-754 double value.
type Float struct {
	Value float64
}

// String is a UTF-8 text value.
type String struct {
	Value string
}

// Bytes is a byte sequence value.
type Bytes struct {
	Value []byte
}

// List is an ordered sequence of values.
type List struct {
	Items []Value
}

// Entry is one key/value pair of a Map.
type Entry struct {
	Key   Value
	Value Value
}

// Map is an insertion-ordered sequence of entries with unique keys.
type Map struct {
	Entries []Entry
}

func (Null) value()   {}
func (Bool) value()   {}
func (Int) value()    {}
func (Float) value()  {}
func (String) value() {}
func (Bytes) value()  {}
func (List) value()   {}
func (Map) value()    {}

func (Null) Kind() Kind   { return KindNull }
func (Bool) Kind() Kind   { return KindBool }
func (Int) Kind() Kind    { return KindInt }
func (Float) Kind() Kind  { return KindFloat }
func (String) Kind() Kind { return KindString }
func (Bytes) Kind() Kind  { return KindBytes }
func (List) Kind() Kind   { return KindList }
func (Map) Kind() Kind    { return KindMap }

// NewNull creates a null value.
func NewNull() Value {
	return Null{}
}

// NewBool creates a boolean value.
func NewBool(b bool) Value {
	return Bool{Value: b}
}

// NewInt creates an integer value.
func NewInt(n int64) Value {
	return Int{Value: n}
}

// NewFloat creates a float value.
func NewFloat(f float64) Value {
	return Float{Value: f}
}

// NewString creates a string value.
func NewString(s string) Value {
	return String{Value: s}
}

// NewBytes creates a bytes value owning a copy of b.
func NewBytes(b []byte) Value {
	return Bytes{Value: bytes.Clone(nonNil(b))}
}

// NewList creates a list value owning a copy of items.
func NewList(items []Value) Value {
	out := make([]Value, len(items))
	copy(out, items)
	return List{Items: out}
}

// NewMap creates a map value from entries. A repeated key keeps the position
// of its first occurrence and takes the value of its last one.
func NewMap(entries []Entry) Value {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		replaced := false
		for i := range out {
			if Equal(out[i].Key, e.Key) {
				out[i].Value = e.Value
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, e)
		}
	}
	return Map{Entries: out}
}

func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}

// Get looks up key in the map.
func (m Map) Get(key Value) (Value, bool) {
	for _, e := range m.Entries {
		if Equal(e.Key, key) {
			return e.Value, true
		}
	}
	return nil, false
}

// Field looks up a string key in the map.
func (m Map) Field(name string) (Value, bool) {
	return m.Get(String{Value: name})
}

// Keys returns the keys in insertion order.
func (m Map) Keys() []Value {
	keys := make([]Value, len(m.Entries))
	for i, e := range m.Entries {
		keys[i] = e.Key
	}
	return keys
}

// Values returns the values in insertion order.
func (m Map) Values() []Value {
	vals := make([]Value, len(m.Entries))
	for i, e := range m.Entries {
		vals[i] = e.Value
	}
	return vals
}

// Equal reports whether a and b are the same kind and structurally equal.
// Map equality ignores entry order. NaN is not equal to itself.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch x := a.(type) {
	case Null:
		return true
	case Bool:
		return x.Value == b.(Bool).Value
	case Int:
		return x.Value == b.(Int).Value
	case Float:
		return x.Value == b.(Float).Value
	case String:
		return x.Value == b.(String).Value
	case Bytes:
		return bytes.Equal(x.Value, b.(Bytes).Value)
	case List:
		y := b.(List)
		if len(x.Items) != len(y.Items) {
			return false
		}
		for i := range x.Items {
			if !Equal(x.Items[i], y.Items[i]) {
				return false
			}
		}
		return true
	case Map:
		y := b.(Map)
		if len(x.Entries) != len(y.Entries) {
			return false
		}
		for _, e := range x.Entries {
			other, ok := y.Get(e.Key)
			if !ok || !Equal(e.Value, other) {
				return false
			}
		}
		return true
	}
	return false
}

// Compare orders a against b. The boolean is false when the pair has no
// ordering: mismatched kinds, lists, maps, or a NaN operand.
func Compare(a, b Value) (int, bool) {
	if a == nil || b == nil || a.Kind() != b.Kind() {
		return 0, false
	}
	switch x := a.(type) {
	case Null:
		return 0, true
	case Bool:
		y := b.(Bool).Value
		switch {
		case x.Value == y:
			return 0, true
		case !x.Value:
			return -1, true
		default:
			return 1, true
		}
	case Int:
		y := b.(Int).Value
		switch {
		case x.Value < y:
			return -1, true
		case x.Value > y:
			return 1, true
		}
		return 0, true
	case Float:
		y := b.(Float).Value
		if math.IsNaN(x.Value) || math.IsNaN(y) {
			return 0, false
		}
		switch {
		case x.Value < y:
			return -1, true
		case x.Value > y:
			return 1, true
		}
		return 0, true
	case String:
		return strings.Compare(x.Value, b.(String).Value), true
	case Bytes:
		return bytes.Compare(x.Value, b.(Bytes).Value), true
	}
	return 0, false
}

// Orderable reports whether values of kind k support <, <=, > and >=.
func Orderable(k Kind) bool {
	switch k {
	case KindNull, KindBool, KindInt, KindFloat, KindString, KindBytes:
		return true
	}
	return false
}

func (Null) String() string { return "null" }

func (v Bool) String() string { return strconv.FormatBool(v.Value) }

func (v Int) String() string { return strconv.FormatInt(v.Value, 10) }

func (v Float) String() string { return FormatFloat(v.Value) }

func (v String) String() string { return QuoteString(v.Value) }

func (v Bytes) String() string { return QuoteBytes(v.Value) }

func (v List) String() string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, item := range v.Items {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(item.String())
	}
	sb.WriteByte(']')
	return sb.String()
}

func (v Map) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, e := range v.Entries {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(e.Key.String())
		sb.WriteString(": ")
		sb.WriteString(e.Value.String())
	}
	sb.WriteByte('}')
	return sb.String()
}

// FormatFloat renders f so that it always reads back as a float literal.
func FormatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "+Inf"
	case math.IsInf(f, -1):
		return "-Inf"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if strings.ContainsRune(s, '.') {
		return s
	}
	if i := strings.IndexByte(s, 'e'); i >= 0 {
		return s[:i] + ".0" + s[i:]
	}
	return s + ".0"
}

// QuoteString renders s as a double-quoted literal using only escapes the
// lexer accepts.
func QuoteString(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		i += size
		switch r {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		case '\r':
			sb.WriteString(`\r`)
		default:
			if r < 0x20 || r == 0x7f {
				sb.WriteString(`\x`)
				sb.WriteString(hex2(byte(r)))
			} else {
				sb.WriteRune(r)
			}
		}
	}
	sb.WriteByte('"')
	return sb.String()
}

// QuoteBytes renders b as a b"..." literal; non-printable bytes use \xHH.
func QuoteBytes(b []byte) string {
	var sb strings.Builder
	sb.WriteString(`b"`)
	for _, c := range b {
		switch c {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		case '\r':
			sb.WriteString(`\r`)
		default:
			if c < 0x20 || c >= 0x7f {
				sb.WriteString(`\x`)
				sb.WriteString(hex2(c))
			} else {
				sb.WriteByte(c)
			}
		}
	}
	sb.WriteByte('"')
	return sb.String()
}

func hex2(c byte) string {
	const digits = "0123456789ABCDEF"
	return string([]byte{digits[c>>4], digits[c&0x0f]})
}
