package parser_test

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/thomasrohde/celviz/pkg/ast"
	"github.com/thomasrohde/celviz/pkg/diagnostics"
	"github.com/thomasrohde/celviz/pkg/lexer"
	"github.com/thomasrohde/celviz/pkg/parser"
	"github.com/thomasrohde/celviz/pkg/value"
)

// helper: parse source and assert success
func mustParse(t *testing.T, source string) ast.Expr {
	t.Helper()
	expr, err := parser.Parse(source, "test.cel")
	if err != nil {
		t.Fatalf("unexpected parse error for %q: %v", source, err)
	}
	if expr == nil {
		t.Fatal("expected non-nil expression")
	}
	return expr
}

// helper: parse source and assert a *ParseError is returned
func mustFail(t *testing.T, source string) *parser.ParseError {
	t.Helper()
	expr, err := parser.Parse(source, "test.cel")
	if err == nil {
		t.Fatalf("expected parse of %q to fail, got %s", source, sexpr(expr))
	}
	if expr != nil {
		t.Errorf("expected no partial tree for %q", source)
	}
	var pe *parser.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *parser.ParseError, got %T", err)
	}
	if !diagnostics.IsSyntax(pe.Diag.Code) {
		t.Errorf("unexpected code %s", pe.Diag.Code)
	}
	if pe.Diag.Span == nil {
		t.Errorf("parse error for %q has no position", source)
	}
	return pe
}

// sexpr renders a tree compactly so tests can assert its shape.
func sexpr(e ast.Expr) string {
	switch n := e.(type) {
	case nil:
		return "<nil>"
	case *ast.Literal:
		return n.Value.String()
	case *ast.Ident:
		return n.Name
	case *ast.Let:
		return "(let " + n.Name + " " + sexpr(n.Bound) + " " + sexpr(n.Body) + ")"
	case *ast.Ternary:
		return "(?: " + sexpr(n.Cond) + " " + sexpr(n.Then) + " " + sexpr(n.Else) + ")"
	case *ast.Or:
		return "(|| " + joinExprs(n.Operands) + ")"
	case *ast.And:
		return "(&& " + joinExprs(n.Operands) + ")"
	case *ast.Relation:
		return "(" + string(n.Op) + " " + sexpr(n.Left) + " " + sexpr(n.Right) + ")"
	case *ast.Arithmetic:
		var sb strings.Builder
		sb.WriteString("(" + sexpr(n.Operands[0]))
		for i, op := range n.Ops {
			sb.WriteString(" " + string(op) + " " + sexpr(n.Operands[i+1]))
		}
		return sb.String() + ")"
	case *ast.Unary:
		return "(" + string(n.Op) + sexpr(n.Operand) + ")"
	case *ast.MemberChain:
		var sb strings.Builder
		sb.WriteString("(. " + sexpr(n.Base))
		for _, acc := range n.Accessors {
			switch a := acc.(type) {
			case *ast.FieldAccess:
				sb.WriteString(" " + a.Name)
			case *ast.MethodCall:
				sb.WriteString(" " + a.Name + "(" + joinExprs(a.Args) + ")")
			}
		}
		return sb.String() + ")"
	case *ast.ListLiteral:
		return "[" + joinExprs(n.Elements) + "]"
	case *ast.MapLiteral:
		parts := make([]string, len(n.Entries))
		for i, entry := range n.Entries {
			parts[i] = sexpr(entry.Key) + ":" + sexpr(entry.Value)
		}
		return "{" + strings.Join(parts, " ") + "}"
	}
	return "?"
}

func joinExprs(exprs []ast.Expr) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = sexpr(e)
	}
	return strings.Join(parts, " ")
}

func TestPrecedence(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"1 + 2 * 3", "(1 + (2 * 3))"},
		{"1 * 2 + 3", "((1 * 2) + 3)"},
		{"1 - 2 + 3 - 4", "(1 - 2 + 3 - 4)"},
		{"8 / 4 * 2 % 3", "(8 / 4 * 2 % 3)"},
		{"-x.size()", "(-(. x size()))"},
		{"!!a", "(!(!a))"},
		{"- -1", "(-(-1))"},
		{"-2 * 3", "((-2) * 3)"},
		{"a + 1 < b * 2", "(< (a + 1) (b * 2))"},
		{"a < b && c", "(&& (< a b) c)"},
		{"a || b && c", "(|| a (&& b c))"},
		{"a || b || c", "(|| a b c)"},
		{"a && b && c && d", "(&& a b c d)"},
		{"a == b || c != d", "(|| (== a b) (!= c d))"},
		{"a ? b : c", "(?: a b c)"},
		{"a ? b : c ? d : e", "(?: a b (?: c d e))"},
		{"a || b ? c && d : e", "(?: (|| a b) (&& c d) e)"},
		{"(a ? b : c) ? d : e", "(?: (?: a b c) d e)"},
		{"(1 + 2) * 3", "((1 + 2) * 3)"},
		{"((x))", "x"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			if got := sexpr(mustParse(t, tt.src)); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestRelationsDoNotChain(t *testing.T) {
	for _, src := range []string{"a < b < c", "1 == 1 == true", "a <= b > c"} {
		pe := mustFail(t, src)
		if !strings.Contains(pe.Error(), "do not chain") {
			t.Errorf("%q: unexpected message %q", src, pe.Error())
		}
	}
	// parentheses make it explicit
	if got := sexpr(mustParse(t, "(a < b) == c")); got != "(== (< a b) c)" {
		t.Errorf("got %s", got)
	}
}

func TestLetBindings(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"let x = 1; x", "(let x 1 x)"},
		{"let x = 1; let y = x + 1; x + y", "(let x 1 (let y (x + 1) (x + y)))"},
		{"let c = a ? 1 : 2; c", "(let c (?: a 1 2) c)"},
		{"(let x = 1; x) + 1", "((let x 1 x) + 1)"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			if got := sexpr(mustParse(t, tt.src)); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestLetErrors(t *testing.T) {
	for _, src := range []string{
		"let x = 42;",
		"let x = 42",
		"let = 1; x",
		"let true = 1; x",
		"let x 1; x",
		"1 + let x = 1; x",
	} {
		mustFail(t, src)
	}
}

func TestLiterals(t *testing.T) {
	tests := []struct {
		src  string
		want value.Value
	}{
		{"42", value.NewInt(42)},
		{"1_000", value.NewInt(1000)},
		{"9223372036854775807", value.NewInt(math.MaxInt64)},
		{"-9223372036854775808", value.NewInt(math.MinInt64)},
		{"3.25", value.NewFloat(3.25)},
		{"1.5e3", value.NewFloat(1500)},
		{"true", value.NewBool(true)},
		{"false", value.NewBool(false)},
		{"null", value.NewNull()},
		{`"\x41"`, value.NewString("A")},
		{`b"\x41"`, value.NewBytes([]byte{0x41})},
		{`'it\'s'`, value.NewString("it's")},
		{`"\101\n\t\r\\\""`, value.NewString("A\n\t\r\\\"")},
		{`"é"`, value.NewString("é")},
		{`"\xFF"`, value.NewString("ÿ")},
		{`b"\xFF"`, value.NewBytes([]byte{0xFF})},
		{`b"\377"`, value.NewBytes([]byte{0xFF})},
		{`b"é"`, value.NewBytes([]byte{0xC3, 0xA9})},
		{`b"¢"`, value.NewBytes([]byte{0xC2, 0xA2})},
		{`"\u00e9"`, value.NewString("é")},
		{`"\u0041"`, value.NewString("A")},
		{`b"\u00e9"`, value.NewBytes([]byte{0xC3, 0xA9})},
		{`""`, value.NewString("")},
		{`b''`, value.NewBytes(nil)},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			lit, ok := mustParse(t, tt.src).(*ast.Literal)
			if !ok {
				t.Fatalf("expected *ast.Literal")
			}
			if !value.Equal(lit.Value, tt.want) {
				t.Errorf("got %s, want %s", lit.Value, tt.want)
			}
		})
	}
}

func TestIntegerOutOfRange(t *testing.T) {
	pe := mustFail(t, "9223372036854775808")
	if !strings.Contains(pe.Error(), "out of range") {
		t.Errorf("unexpected message %q", pe.Error())
	}
	mustFail(t, "-9223372036854775809")
	// only the negated literal itself folds
	mustFail(t, "-9223372036854775808.size()")
}

func TestListsAndMaps(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"[]", "[]"},
		{"[1, 2, 3]", "[1 2 3]"},
		{"[1, 2,]", "[1 2]"},
		{"[[1], []]", "[[1] []]"},
		{"{}", "{}"},
		{`{"a": 1, "b": 2}`, `{"a":1 "b":2}`},
		{`{"a": 1,}`, `{"a":1}`},
		{"{1: x ? 2 : 3}", "{1:(?: x 2 3)}"},
		{"[a ? 1 : 2, b]", "[(?: a 1 2) b]"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			if got := sexpr(mustParse(t, tt.src)); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestMemberChains(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"a.b", "(. a b)"},
		{"a.b.c", "(. a b c)"},
		{"a.size()", "(. a size())"},
		{"a.b.contains(1, 2)", "(. a b contains(1 2))"},
		{"[1].contains(1)", "(. [1] contains(1))"},
		{`"abc".size()`, `(. "abc" size())`},
		{"42.pow(2)", "(. 42 pow(2))"},
		{"3.5.pow(2)", "(. 3.5 pow(2))"},
		{"(1 + 2).pow(x.y)", "(. (1 + 2) pow((. x y)))"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			if got := sexpr(mustParse(t, tt.src)); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestSyntaxErrors(t *testing.T) {
	tests := []struct {
		src      string
		expected string
	}{
		{"", "expression"},
		{"1 +", "expression"},
		{"(1", "')'"},
		{"[1, 2", "']'"},
		{"{1 2}", "':'"},
		{"a ? b", "':'"},
		{"a.", "identifier"},
		{"a.1", "identifier"},
		{"f(1)", "end of input"},
		{"1 2", "end of input"},
		{"a.f(1,)", "expression"},
		{"[,]", "expression"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			pe := mustFail(t, tt.src)
			found := false
			for _, e := range pe.Expected {
				if e == tt.expected {
					found = true
				}
			}
			if !found {
				t.Errorf("expected %q in %v (message %q)", tt.expected, pe.Expected, pe.Error())
			}
		})
	}
}

func TestLexErrorsBecomeParseErrors(t *testing.T) {
	pe := mustFail(t, `"\z"`)
	if pe.Diag.Code != diagnostics.ELex {
		t.Errorf("got code %s, want %s", pe.Diag.Code, diagnostics.ELex)
	}
	var le *lexer.LexError
	if !errors.As(pe, &le) {
		t.Error("expected wrapped *lexer.LexError")
	}
}

func TestErrorPosition(t *testing.T) {
	pe := mustFail(t, "1 +\n  )")
	if pe.Diag.Span.StartLine != 2 || pe.Diag.Span.StartCol != 3 {
		t.Errorf("got position %d:%d, want 2:3", pe.Diag.Span.StartLine, pe.Diag.Span.StartCol)
	}
}

func TestNodeSpans(t *testing.T) {
	expr := mustParse(t, "  a + bb ")
	span := expr.NodeSpan()
	if span.StartCol != 3 || span.EndCol != 9 || span.Offset != 2 {
		t.Errorf("unexpected span %+v", span)
	}
}

func TestNestingLimit(t *testing.T) {
	deep := strings.Repeat("(", parser.MaxNesting) + "1" + strings.Repeat(")", parser.MaxNesting)
	pe := mustFail(t, deep)
	if !strings.Contains(pe.Error(), "nested too deeply") {
		t.Errorf("unexpected message %q", pe.Error())
	}
	mustParse(t, strings.Repeat("(", 50)+"1"+strings.Repeat(")", 50))
}

func TestParseTokensRequiresEOF(t *testing.T) {
	if _, err := parser.ParseTokens(nil); err == nil {
		t.Error("expected error for empty token stream")
	}
}
