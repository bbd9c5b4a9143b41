package value_test

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/thomasrohde/celviz/pkg/value"
)

func TestKindNames(t *testing.T) {
	tests := []struct {
		v    value.Value
		want string
	}{
		{value.NewNull(), "null"},
		{value.NewBool(true), "bool"},
		{value.NewInt(1), "int"},
		{value.NewFloat(1), "float"},
		{value.NewString(""), "string"},
		{value.NewBytes(nil), "bytes"},
		{value.NewList(nil), "list"},
		{value.NewMap(nil), "map"},
	}
	for _, tt := range tests {
		if got := tt.v.Kind().String(); got != tt.want {
			t.Errorf("Kind() = %q, want %q", got, tt.want)
		}
	}
}

func TestEqual(t *testing.T) {
	m1 := value.NewMap([]value.Entry{
		{Key: value.NewString("a"), Value: value.NewInt(1)},
		{Key: value.NewString("b"), Value: value.NewInt(2)},
	})
	m2 := value.NewMap([]value.Entry{
		{Key: value.NewString("b"), Value: value.NewInt(2)},
		{Key: value.NewString("a"), Value: value.NewInt(1)},
	})

	tests := []struct {
		name string
		a, b value.Value
		want bool
	}{
		{"null", value.NewNull(), value.NewNull(), true},
		{"int", value.NewInt(3), value.NewInt(3), true},
		{"int vs float", value.NewInt(1), value.NewFloat(1), false},
		{"int vs string", value.NewInt(1), value.NewString("1"), false},
		{"nan", value.NewFloat(math.NaN()), value.NewFloat(math.NaN()), false},
		{"bytes", value.NewBytes([]byte{0xC2, 0xA2}), value.NewBytes([]byte("¢")), true},
		{"list", value.NewList([]value.Value{value.NewInt(1)}), value.NewList([]value.Value{value.NewInt(1)}), true},
		{"list length", value.NewList([]value.Value{value.NewInt(1)}), value.NewList(nil), false},
		{"map order", m1, m2, true},
		{"map vs list", m1, value.NewList(nil), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := value.Equal(tt.a, tt.b); got != tt.want {
				t.Errorf("Equal(%s, %s) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name   string
		a, b   value.Value
		want   int
		wantOK bool
	}{
		{"int less", value.NewInt(1), value.NewInt(2), -1, true},
		{"float greater", value.NewFloat(2.5), value.NewFloat(1), 1, true},
		{"string", value.NewString("abc"), value.NewString("abd"), -1, true},
		{"bytes prefix", value.NewBytes(nil), value.NewBytes([]byte("a")), -1, true},
		{"bytes high", value.NewBytes([]byte{0xFE, 0xFF}), value.NewBytes([]byte{0xFF}), -1, true},
		{"bool", value.NewBool(false), value.NewBool(true), -1, true},
		{"null", value.NewNull(), value.NewNull(), 0, true},
		{"mixed", value.NewInt(1), value.NewFloat(1), 0, false},
		{"list", value.NewList(nil), value.NewList(nil), 0, false},
		{"nan", value.NewFloat(math.NaN()), value.NewFloat(1), 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := value.Compare(tt.a, tt.b)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("Compare = (%d, %v), want (%d, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestNewMapDuplicateKeys(t *testing.T) {
	m := value.NewMap([]value.Entry{
		{Key: value.NewString("a"), Value: value.NewInt(1)},
		{Key: value.NewString("b"), Value: value.NewInt(2)},
		{Key: value.NewString("a"), Value: value.NewInt(3)},
	}).(value.Map)

	if len(m.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(m.Entries))
	}
	if got := m.Entries[0].Key.(value.String).Value; got != "a" {
		t.Errorf("first key = %q, want a", got)
	}
	v, ok := m.Field("a")
	if !ok || !value.Equal(v, value.NewInt(3)) {
		t.Errorf("a = %v, want 3", v)
	}
}

func TestConstructorsCopy(t *testing.T) {
	raw := []byte("abc")
	b := value.NewBytes(raw).(value.Bytes)
	raw[0] = 'z'
	if string(b.Value) != "abc" {
		t.Errorf("bytes aliased input: %q", b.Value)
	}

	items := []value.Value{value.NewInt(1)}
	l := value.NewList(items).(value.List)
	items[0] = value.NewInt(2)
	if !value.Equal(l.Items[0], value.NewInt(1)) {
		t.Errorf("list aliased input: %v", l)
	}
}

func TestString(t *testing.T) {
	tests := []struct {
		v    value.Value
		want string
	}{
		{value.NewNull(), "null"},
		{value.NewBool(false), "false"},
		{value.NewInt(-7), "-7"},
		{value.NewFloat(3), "3.0"},
		{value.NewFloat(0.5), "0.5"},
		{value.NewFloat(1e21), "1.0e+21"},
		{value.NewString("a\"b\n"), `"a\"b\n"`},
		{value.NewString("\x01"), `"\x01"`},
		{value.NewString("¢"), `"¢"`},
		{value.NewBytes([]byte{0x41, 0xFF}), `b"A\xFF"`},
		{value.NewList([]value.Value{value.NewInt(1), value.NewString("x")}), `[1, "x"]`},
		{value.NewMap([]value.Entry{{Key: value.NewString("k"), Value: value.NewBool(true)}}), `{"k": true}`},
	}
	for _, tt := range tests {
		if got := tt.v.String(); got != tt.want {
			t.Errorf("String() = %s, want %s", got, tt.want)
		}
	}
}

func TestToJSON(t *testing.T) {
	m := value.NewMap([]value.Entry{
		{Key: value.NewString("z"), Value: value.NewInt(1)},
		{Key: value.NewString("a"), Value: value.NewList([]value.Value{value.NewFloat(1.5), value.NewNull()})},
	})
	if got := value.ToJSONString(m); got != `{"z":1,"a":[1.5,null]}` {
		t.Errorf("got %s", got)
	}

	intKeyed := value.NewMap([]value.Entry{{Key: value.NewInt(1), Value: value.NewString("x")}})
	if got := value.ToJSONString(intKeyed); got != `[{"key":1,"value":"x"}]` {
		t.Errorf("got %s", got)
	}

	if got := value.ToJSONString(value.NewFloat(math.Inf(1))); got != `"+Inf"` {
		t.Errorf("got %s", got)
	}
}

func TestEncodeTagged(t *testing.T) {
	b, err := json.Marshal(value.Encode(value.NewList([]value.Value{value.NewInt(1), value.NewBytes([]byte("A"))})))
	if err != nil {
		t.Fatal(err)
	}
	want := `{"kind":"list","value":[{"kind":"int","value":1},{"kind":"bytes","value":"QQ=="}]}`
	if string(b) != want {
		t.Errorf("got %s\nwant %s", b, want)
	}
}

func TestFromNative(t *testing.T) {
	var decoded any
	if err := json.Unmarshal([]byte(`{"b": [1, 2.5, "s", null, true], "a": {"x": 1}}`), &decoded); err != nil {
		t.Fatal(err)
	}
	v, err := value.FromNative(decoded)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// float64 from encoding/json stays float
	want := `{"a": {"x": 1.0}, "b": [1.0, 2.5, "s", null, true]}`
	if got := v.String(); got != want {
		t.Errorf("got %s\nwant %s", got, want)
	}

	n, err := value.FromNative(json.Number("42"))
	if err != nil || !value.Equal(n, value.NewInt(42)) {
		t.Errorf("json.Number(42) = %v, %v", n, err)
	}

	if _, err := value.FromNative(struct{}{}); err == nil {
		t.Error("expected error for unsupported type")
	}
}
