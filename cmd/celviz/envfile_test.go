package main

import (
	"strings"
	"testing"

	"github.com/thomasrohde/celviz/pkg/runtime"
	"github.com/thomasrohde/celviz/pkg/value"
)

func TestLoadEnvFileYAML(t *testing.T) {
	path := writeFile(t, "env.yaml", `
z: 1
a: [1.5, "two", null, true]
nested: {k: v, 2: two}
blob: !!binary QUJD
`)
	m, err := loadEnvFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range m.Entries {
		names = append(names, e.Key.(value.String).Value)
	}
	if strings.Join(names, ",") != "z,a,nested,blob" {
		t.Errorf("order = %v", names)
	}
	want := value.NewMap([]value.Entry{
		{Key: value.NewString("z"), Value: value.NewInt(1)},
		{Key: value.NewString("a"), Value: value.NewList([]value.Value{
			value.NewFloat(1.5), value.NewString("two"), value.NewNull(), value.NewBool(true),
		})},
		{Key: value.NewString("nested"), Value: value.NewMap([]value.Entry{
			{Key: value.NewString("k"), Value: value.NewString("v")},
			{Key: value.NewInt(2), Value: value.NewString("two")},
		})},
		{Key: value.NewString("blob"), Value: value.NewBytes([]byte("ABC"))},
	})
	if !value.Equal(m, want) {
		t.Errorf("got %s\nwant %s", m, want)
	}
}

func TestLoadEnvFileJSON(t *testing.T) {
	path := writeFile(t, "env.json", `{"b": {"y": 1, "x": 2}, "a": "é"}`)
	m, err := loadEnvFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if m.String() != `{"b": {"y": 1, "x": 2}, "a": "é"}` {
		t.Errorf("got %s", m)
	}
}

func TestLoadEnvFileErrors(t *testing.T) {
	tests := map[string]string{
		"list.yaml":    "- 1\n- 2\n",
		"keyword.yaml": "let: 1\n",
		"badkey.yaml":  "\"a b\": 1\n",
		"syntax.yaml":  "a: [1, 2\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := loadEnvFile(writeFile(t, name, content)); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestBuildEnvLayering(t *testing.T) {
	first := writeFile(t, "a.yaml", "x: 1\ny: 1\n")
	second := writeFile(t, "b.yaml", "y: 2\n")
	opts := &options{envFiles: []string{first, second}, vars: []string{"z = x + y"}}
	env, err := buildEnv(runtime.New(), opts)
	if err != nil {
		t.Fatal(err)
	}
	for name, want := range map[string]int64{"x": 1, "y": 2, "z": 3} {
		if v, _ := env.Get(name); !value.Equal(v, value.NewInt(want)) {
			t.Errorf("%s = %v, want %d", name, v, want)
		}
	}
}

func TestSplitAssignment(t *testing.T) {
	name, expr, err := splitAssignment(`limit = [1, 2].size() * 3`)
	if err != nil || name != "limit" || expr != "[1, 2].size() * 3" {
		t.Errorf("got %q %q %v", name, expr, err)
	}
	for _, bad := range []string{"", "x", "x == 1", "let = 1", "1 = 2"} {
		if _, _, err := splitAssignment(bad); err == nil {
			t.Errorf("splitAssignment(%q) should fail", bad)
		}
	}
}
