package oracle_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/thomasrohde/celviz/internal/oracle"
	"github.com/thomasrohde/celviz/pkg/evaluator"
	"github.com/thomasrohde/celviz/pkg/runtime"
	"github.com/thomasrohde/celviz/pkg/value"
)

func newOracle(t *testing.T) *oracle.Oracle {
	t.Helper()
	o, err := oracle.New(nil)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return o
}

func testEnv() *evaluator.Env {
	return evaluator.NewEnv(map[string]value.Value{
		"x":    value.NewInt(20),
		"s":    value.NewString("celviz"),
		"none": value.NewNull(),
		"tags": value.NewList([]value.Value{value.NewString("a"), value.NewString("b")}),
		"m": value.NewMap([]value.Entry{
			{Key: value.NewString("a"), Value: value.NewInt(5)},
			{Key: value.NewString("nested"), Value: value.NewMap([]value.Entry{
				{Key: value.NewString("ok"), Value: value.NewBool(true)},
			})},
		}),
	})
}

// Expressions whose semantics celviz and cel-go share.
var agreementCorpus = []string{
	`1 + 2 * 3`,
	`x * 2 + 1`,
	`-x`,
	`!(x < 3)`,
	`7 % 3`,
	`-7 / 2`,
	`-7 % 3`,
	`2.5 * 2.0`,
	`"ab" + "cd"`,
	`[1, 2] + [3]`,
	`"a" < "b" && 1 <= 1`,
	`null == null`,
	`none == null`,
	`x > 10 ? "big" : "small"`,
	`s.size() == 6`,
	`s.startsWith("cel") && s.endsWith("viz")`,
	`s.contains("lv") || false`,
	`tags.size()`,
	`tags + ["c"]`,
	`m.a > 3`,
	`m.nested.ok`,
	`m.size()`,
	`[1, [2, 3], {"k": "v"}]`,
	`{"a": 1, "b": [true, false]}`,
	`true || 1 / 0 == 0`,
	`1 / 0 == 0 || true`,
	`false && 1 / 0 == 0`,
	`1 / 0 == 0 && false`,
	// both sides fail
	`1 / 0`,
	`5 % 0`,
	`x + "a"`,
	`9223372036854775807 + 1`,
	`m.missing`,
	`undefinedName`,
}

func TestDifferentialAgreement(t *testing.T) {
	o := newOracle(t)
	rt := runtime.New()
	env := testEnv()
	for _, src := range agreementCorpus {
		t.Run(src, func(t *testing.T) {
			v := o.Compare(rt, src, env)
			if v.Unsupported() {
				t.Fatalf("unexpectedly unsupported: %v", v.ReferenceErr)
			}
			if !v.Agree() {
				t.Errorf("%s", v)
			}
		})
	}
}

func TestUnsupportedSyntax(t *testing.T) {
	o := newOracle(t)
	v := o.Compare(runtime.New(), `let y = 2; y * y`, nil)
	if !v.Unsupported() || v.Agree() {
		t.Errorf("verdict = %s", v)
	}
	if v.OursErr != nil || !value.Equal(v.Ours, value.NewInt(4)) {
		t.Errorf("ours = %v, %v", v.Ours, v.OursErr)
	}
}

func TestDisagreementReported(t *testing.T) {
	o := newOracle(t)
	// cel-go compares numbers across types; celviz does not.
	v := o.Compare(runtime.New(), `1 == 1.0`, nil)
	if v.Unsupported() || v.Agree() {
		t.Errorf("verdict = %s", v)
	}
}

func TestEvaluateConvertsResults(t *testing.T) {
	o := newOracle(t)
	got, err := o.Evaluate(`{"k": [1, 2.5, "s", b"z", null]}`, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := value.NewMap([]value.Entry{{
		Key: value.NewString("k"),
		Value: value.NewList([]value.Value{
			value.NewInt(1), value.NewFloat(2.5), value.NewString("s"), value.NewBytes([]byte("z")), value.NewNull(),
		}),
	}})
	if !value.Equal(got, want) {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestEvaluateRejectsUnsupportedVariables(t *testing.T) {
	o := newOracle(t)
	vars := map[string]value.Value{
		"m": value.NewMap([]value.Entry{{Key: value.NewFloat(1.5), Value: value.NewInt(1)}}),
	}
	_, err := o.Evaluate(`m`, vars)
	if !errors.Is(err, oracle.ErrUnsupported) {
		t.Errorf("err = %v, want ErrUnsupported", err)
	}
}

func TestConcurrentEvaluate(t *testing.T) {
	o := newOracle(t)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int64) {
			defer wg.Done()
			got, err := o.Evaluate(`x * 2`, map[string]value.Value{"x": value.NewInt(n)})
			if err != nil {
				t.Error(err)
				return
			}
			if !value.Equal(got, value.NewInt(n*2)) {
				t.Errorf("x=%d: got %s", n, got)
			}
		}(int64(i))
	}
	wg.Wait()
	o.ClearCache()
	if _, err := o.Evaluate(`1`, nil); err != nil {
		t.Error(err)
	}
}
