// Package formatter implements the canonical CEL source printer.
package formatter

import (
	"math"
	"strings"

	"github.com/thomasrohde/celviz/pkg/ast"
	"github.com/thomasrohde/celviz/pkg/value"
)

const (
	indent    = "  "
	lineLimit = 72
)

// Precedence levels (higher = tighter binding)
const (
	precLet = iota
	precTernary
	precOr
	precAnd
	precRelation
	precAdditive
	precMultiplicative
	precUnary
	precPrimary
)

func precedence(e ast.Expr) int {
	switch n := e.(type) {
	case *ast.Let:
		return precLet
	case *ast.Ternary:
		return precTernary
	case *ast.Or:
		return precOr
	case *ast.And:
		return precAnd
	case *ast.Relation:
		return precRelation
	case *ast.Arithmetic:
		if len(n.Ops) > 0 && n.Ops[0].Multiplicative() {
			return precMultiplicative
		}
		return precAdditive
	case *ast.Unary:
		return precUnary
	case *ast.Literal:
		// -9223372036854775808 is a single literal but reads as a negation.
		if negativeNumber(n.Value) {
			return precUnary
		}
	}
	return precPrimary
}

func negativeNumber(v value.Value) bool {
	switch x := v.(type) {
	case value.Int:
		return x.Value < 0
	case value.Float:
		return math.Signbit(x.Value)
	}
	return false
}

// Format pretty-prints an expression tree back to source code. Parsing the
// output yields a tree equal to expr apart from spans.
func Format(expr ast.Expr) string {
	return formatTop(expr) + "\n"
}

// formatTop puts each binding of a leading let chain on its own line.
func formatTop(expr ast.Expr) string {
	var lines []string
	for {
		let, ok := expr.(*ast.Let)
		if !ok {
			break
		}
		lines = append(lines, "let "+let.Name+" = "+formatAt(let.Bound, precTernary, 0)+";")
		expr = let.Body
	}
	lines = append(lines, formatAt(expr, precLet, 0))
	return strings.Join(lines, "\n")
}

// formatAt renders e, parenthesized if it binds looser than minPrec.
func formatAt(e ast.Expr, minPrec, depth int) string {
	s := formatExpr(e, depth)
	if precedence(e) < minPrec {
		return "(" + s + ")"
	}
	return s
}

func formatExpr(e ast.Expr, depth int) string {
	switch expr := e.(type) {
	case *ast.Literal:
		return expr.Value.String()
	case *ast.Ident:
		return expr.Name
	case *ast.Let:
		return "let " + expr.Name + " = " + formatAt(expr.Bound, precTernary, depth) + "; " + formatAt(expr.Body, precLet, depth)
	case *ast.Ternary:
		return formatAt(expr.Cond, precOr, depth) + " ? " +
			formatAt(expr.Then, precOr, depth) + " : " +
			formatAt(expr.Else, precTernary, depth)
	case *ast.Or:
		return formatOperands(expr.Operands, " || ", precAnd, depth)
	case *ast.And:
		return formatOperands(expr.Operands, " && ", precRelation, depth)
	case *ast.Relation:
		return formatAt(expr.Left, precAdditive, depth) + " " + string(expr.Op) + " " + formatAt(expr.Right, precAdditive, depth)
	case *ast.Arithmetic:
		// Operands of the same tier need parens or they would join this chain.
		minPrec := precMultiplicative
		if precedence(expr) == precMultiplicative {
			minPrec = precUnary
		}
		var sb strings.Builder
		sb.WriteString(formatAt(expr.Operands[0], minPrec, depth))
		for i, op := range expr.Ops {
			sb.WriteString(" " + string(op) + " ")
			sb.WriteString(formatAt(expr.Operands[i+1], minPrec, depth))
		}
		return sb.String()
	case *ast.Unary:
		return string(expr.Op) + formatAt(expr.Operand, precUnary, depth)
	case *ast.MemberChain:
		return formatMemberChain(expr, depth)
	case *ast.ListLiteral:
		return formatList(expr, depth)
	case *ast.MapLiteral:
		return formatMap(expr, depth)
	}
	return ""
}

func formatOperands(operands []ast.Expr, sep string, minPrec, depth int) string {
	parts := make([]string, len(operands))
	for i, op := range operands {
		parts[i] = formatAt(op, minPrec, depth)
	}
	return strings.Join(parts, sep)
}

func formatMemberChain(chain *ast.MemberChain, depth int) string {
	base := formatAt(chain.Base, precPrimary, depth)
	if _, nested := chain.Base.(*ast.MemberChain); nested {
		base = "(" + base + ")"
	}
	var sb strings.Builder
	sb.WriteString(base)
	for _, acc := range chain.Accessors {
		switch a := acc.(type) {
		case *ast.FieldAccess:
			sb.WriteString("." + a.Name)
		case *ast.MethodCall:
			args := make([]string, len(a.Args))
			for i, arg := range a.Args {
				args[i] = formatAt(arg, precTernary, depth)
			}
			sb.WriteString("." + a.Name + "(" + strings.Join(args, ", ") + ")")
		}
	}
	return sb.String()
}

func formatList(list *ast.ListLiteral, depth int) string {
	if len(list.Elements) == 0 {
		return "[]"
	}
	parts := make([]string, len(list.Elements))
	for i, e := range list.Elements {
		parts[i] = formatAt(e, precTernary, depth+1)
	}
	return wrap("[", parts, "]", depth)
}

func formatMap(m *ast.MapLiteral, depth int) string {
	if len(m.Entries) == 0 {
		return "{}"
	}
	parts := make([]string, len(m.Entries))
	for i, e := range m.Entries {
		parts[i] = formatAt(e.Key, precTernary, depth+1) + ": " + formatAt(e.Value, precTernary, depth+1)
	}
	return wrap("{", parts, "}", depth)
}

// wrap tries an inline rendering first and falls back to one item per line.
func wrap(open string, parts []string, close string, depth int) string {
	inline := open + strings.Join(parts, ", ") + close
	if len(inline) <= lineLimit && !strings.Contains(inline, "\n") {
		return inline
	}

	// Multi-line
	inner := strings.Repeat(indent, depth+1)
	outer := strings.Repeat(indent, depth)
	lines := make([]string, len(parts))
	for i, p := range parts {
		lines[i] = inner + p
	}
	return open + "\n" + strings.Join(lines, ",\n") + "\n" + outer + close
}
