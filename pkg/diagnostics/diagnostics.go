// Package diagnostics defines diagnostic types for lex, parse, check and
// evaluation errors.
package diagnostics

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/thomasrohde/celviz/pkg/ast"
)

// Diagnostic code constants.
const (
	ELex           = "E_LEX"
	EParse         = "E_PARSE"
	EUndefined     = "E_UNDEFINED"
	EType          = "E_TYPE"
	EDivZero       = "E_DIV_ZERO"
	EUnknownMethod = "E_UNKNOWN_METHOD"
	EArity         = "E_ARITY"
	ENoField       = "E_NO_FIELD"
	EOverflow      = "E_OVERFLOW"
	EBudget        = "E_BUDGET"
	EIO            = "E_IO"
	EEnv           = "E_ENV"
)

// Diagnostic represents a parse, check, or evaluation diagnostic.
type Diagnostic struct {
	Code    string    `json:"code"`
	Message string    `json:"message"`
	Span    *ast.Span `json:"span,omitempty"`
	Hint    string    `json:"hint,omitempty"`
}

// MakeDiag creates a new Diagnostic.
func MakeDiag(code, message string, span *ast.Span, hint string) Diagnostic {
	return Diagnostic{
		Code:    code,
		Message: message,
		Span:    span,
		Hint:    hint,
	}
}

// IsSyntax reports whether the code belongs to the parse failure family.
func IsSyntax(code string) bool {
	return code == ELex || code == EParse
}

// FormatDiagnostic formats a single diagnostic for display.
func FormatDiagnostic(d Diagnostic, pretty bool) string {
	if !pretty {
		b, _ := json.Marshal(d)
		return string(b)
	}
	loc := "<unknown>"
	if d.Span != nil {
		file := d.Span.File
		if file == "" {
			file = "<input>"
		}
		loc = fmt.Sprintf("%s:%d:%d", file, d.Span.StartLine, d.Span.StartCol)
	}
	out := fmt.Sprintf("error[%s]: %s\n  --> %s", d.Code, d.Message, loc)
	if d.Hint != "" {
		out += fmt.Sprintf("\n  hint: %s", d.Hint)
	}
	return out
}

// FormatDiagnostics formats a slice of diagnostics for display.
func FormatDiagnostics(diags []Diagnostic, pretty bool) string {
	if !pretty {
		b, _ := json.Marshal(diags)
		return string(b)
	}
	parts := make([]string, len(diags))
	for i, d := range diags {
		parts[i] = FormatDiagnostic(d, true)
	}
	return strings.Join(parts, "\n\n")
}

// Caret renders the source line a diagnostic points at with a marker under
// the offending column. It returns "" when the span is missing or out of range.
func Caret(source string, d Diagnostic) string {
	if d.Span == nil || d.Span.StartLine < 1 {
		return ""
	}
	lines := strings.Split(source, "\n")
	if d.Span.StartLine > len(lines) {
		return ""
	}
	line := lines[d.Span.StartLine-1]
	col := d.Span.StartCol
	if col < 1 {
		col = 1
	}
	width := 1
	if d.Span.EndLine == d.Span.StartLine && d.Span.EndCol > col {
		width = d.Span.EndCol - col
	}
	return line + "\n" + strings.Repeat(" ", col-1) + strings.Repeat("^", width)
}
