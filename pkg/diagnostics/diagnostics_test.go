package diagnostics_test

import (
	"strings"
	"testing"

	"github.com/thomasrohde/celviz/pkg/ast"
	"github.com/thomasrohde/celviz/pkg/diagnostics"
)

func TestMakeDiag(t *testing.T) {
	span := &ast.Span{File: "test.cel", StartLine: 1, StartCol: 1, EndLine: 1, EndCol: 5}
	d := diagnostics.MakeDiag(diagnostics.EParse, "unexpected token", span, "check syntax")

	if d.Code != diagnostics.EParse {
		t.Errorf("got Code = %q, want %q", d.Code, diagnostics.EParse)
	}
	if d.Message != "unexpected token" {
		t.Errorf("got Message = %q, want %q", d.Message, "unexpected token")
	}
}

func TestFormatDiagnosticPretty(t *testing.T) {
	span := &ast.Span{File: "test.cel", StartLine: 3, StartCol: 5, EndLine: 3, EndCol: 10}
	d := diagnostics.MakeDiag(diagnostics.EUndefined, "undefined identifier 'x'", span, "declare it in the environment")

	out := diagnostics.FormatDiagnostic(d, true)
	if !strings.Contains(out, "error[E_UNDEFINED]") {
		t.Errorf("expected error code in output, got: %s", out)
	}
	if !strings.Contains(out, "test.cel:3:5") {
		t.Errorf("expected location in output, got: %s", out)
	}
	if !strings.Contains(out, "hint:") {
		t.Errorf("expected hint in output, got: %s", out)
	}
}

func TestFormatDiagnosticJSON(t *testing.T) {
	d := diagnostics.MakeDiag(diagnostics.ELex, "bad token", nil, "")
	out := diagnostics.FormatDiagnostic(d, false)
	if !strings.Contains(out, `"code":"E_LEX"`) {
		t.Errorf("expected JSON code in output, got: %s", out)
	}
}

func TestCaret(t *testing.T) {
	src := "1 +\n  2 ? 3"
	span := &ast.Span{StartLine: 2, StartCol: 5, EndLine: 2, EndCol: 6}
	d := diagnostics.MakeDiag(diagnostics.EParse, "expected ':'", span, "")

	want := "  2 ? 3\n    ^"
	if got := diagnostics.Caret(src, d); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if got := diagnostics.Caret(src, diagnostics.MakeDiag(diagnostics.EParse, "x", nil, "")); got != "" {
		t.Errorf("expected empty caret without span, got %q", got)
	}
}

func TestIsSyntax(t *testing.T) {
	if !diagnostics.IsSyntax(diagnostics.ELex) || !diagnostics.IsSyntax(diagnostics.EParse) {
		t.Error("lex and parse codes are syntax codes")
	}
	if diagnostics.IsSyntax(diagnostics.EType) {
		t.Error("E_TYPE is not a syntax code")
	}
}
