// Package validator implements static checks of CEL expression trees.
package validator

import (
	"fmt"
	"strings"

	"github.com/thomasrohde/celviz/pkg/ast"
	"github.com/thomasrohde/celviz/pkg/diagnostics"
	"github.com/thomasrohde/celviz/pkg/stdlib"
	"github.com/thomasrohde/celviz/pkg/value"
)

type scope struct {
	name   string
	parent *scope
}

func (s *scope) has(name string) bool {
	for cur := s; cur != nil; cur = cur.parent {
		if cur.name == name {
			return true
		}
	}
	return false
}

func (s *scope) add(name string) *scope {
	return &scope{name: name, parent: s}
}

// Options configures Validate.
type Options struct {
	// Declared lists the variables the environment will provide. When nil,
	// free identifiers are not reported.
	Declared []string
	// Methods is the method table calls are checked against. Defaults to
	// stdlib.Defaults().
	Methods *stdlib.Registry
}

type validator struct {
	diags    []diagnostics.Diagnostic
	declared map[string]bool
	methods  *stdlib.Registry
}

// Validate performs static analysis on an expression and returns diagnostics
// in source order. It never evaluates anything.
func Validate(expr ast.Expr, opts Options) []diagnostics.Diagnostic {
	v := &validator{methods: opts.Methods}
	if v.methods == nil {
		v.methods = stdlib.Defaults()
	}
	if opts.Declared != nil {
		v.declared = make(map[string]bool, len(opts.Declared))
		for _, name := range opts.Declared {
			v.declared[name] = true
		}
	}
	v.validateExpr(expr, nil)
	return v.diags
}

func (v *validator) addDiag(code, msg string, span ast.Span, hint string) {
	v.diags = append(v.diags, diagnostics.MakeDiag(code, msg, &span, hint))
}

func (v *validator) validateExpr(e ast.Expr, sc *scope) {
	switch expr := e.(type) {
	case *ast.Literal:
		// nothing to check
	case *ast.Ident:
		if v.declared != nil && !sc.has(expr.Name) && !v.declared[expr.Name] {
			v.addDiag(diagnostics.EUndefined, fmt.Sprintf("undefined identifier '%s'", expr.Name), expr.Span,
				"declare it or bind it with 'let'")
		}
	case *ast.Let:
		v.validateExpr(expr.Bound, sc)
		v.validateExpr(expr.Body, sc.add(expr.Name))
	case *ast.Ternary:
		if lit, ok := expr.Cond.(*ast.Literal); ok && lit.Value.Kind() != value.KindBool {
			v.addDiag(diagnostics.EType, fmt.Sprintf("condition is a constant %s, not a bool", lit.Value.Kind()),
				lit.Span, "")
		}
		v.validateExpr(expr.Cond, sc)
		v.validateExpr(expr.Then, sc)
		v.validateExpr(expr.Else, sc)
	case *ast.Or:
		v.validateLogical(expr.Operands, "||", sc)
	case *ast.And:
		v.validateLogical(expr.Operands, "&&", sc)
	case *ast.Relation:
		v.validateExpr(expr.Left, sc)
		v.validateExpr(expr.Right, sc)
		if expr.Op != ast.OpEq && expr.Op != ast.OpNeq {
			v.checkConstantPair(expr, string(expr.Op), expr.Left, expr.Right, orderable)
		}
	case *ast.Arithmetic:
		for _, op := range expr.Operands {
			v.validateExpr(op, sc)
		}
		for i, op := range expr.Ops {
			v.checkConstantPair(expr, string(op), expr.Operands[i], expr.Operands[i+1], arithmeticDefined(op))
		}
	case *ast.Unary:
		v.validateExpr(expr.Operand, sc)
	case *ast.MemberChain:
		v.validateMemberChain(expr, sc)
	case *ast.ListLiteral:
		for _, el := range expr.Elements {
			v.validateExpr(el, sc)
		}
	case *ast.MapLiteral:
		for _, entry := range expr.Entries {
			v.validateExpr(entry.Key, sc)
			v.validateExpr(entry.Value, sc)
		}
	}
}

func (v *validator) validateLogical(operands []ast.Expr, op string, sc *scope) {
	for _, operand := range operands {
		if lit, ok := operand.(*ast.Literal); ok && lit.Value.Kind() != value.KindBool {
			v.addDiag(diagnostics.EType, fmt.Sprintf("operand of '%s' is a constant %s, not a bool", op, lit.Value.Kind()),
				lit.Span, "")
		}
		v.validateExpr(operand, sc)
	}
}

func orderable(a, b value.Kind) bool {
	return a == b && value.Orderable(a)
}

func arithmeticDefined(op ast.ArithOp) func(a, b value.Kind) bool {
	return func(a, b value.Kind) bool {
		if a != b {
			return false
		}
		switch a {
		case value.KindInt:
			return true
		case value.KindFloat:
			return op != ast.OpMod
		case value.KindString, value.KindList:
			return op == ast.OpAdd
		}
		return false
	}
}

// checkConstantPair reports operator applications between two literals
// whose kinds can never satisfy the operator.
func (v *validator) checkConstantPair(node ast.Expr, op string, left, right ast.Expr, defined func(a, b value.Kind) bool) {
	l, ok := left.(*ast.Literal)
	if !ok {
		return
	}
	r, ok := right.(*ast.Literal)
	if !ok {
		return
	}
	lk, rk := l.Value.Kind(), r.Value.Kind()
	if defined(lk, rk) {
		return
	}
	hint := ""
	if (lk == value.KindInt && rk == value.KindFloat) || (lk == value.KindFloat && rk == value.KindInt) {
		hint = "int and float do not mix; write 2.0 rather than 2 for a float operand"
	}
	v.addDiag(diagnostics.EType, fmt.Sprintf("'%s' is not defined for (%s, %s)", op, lk, rk), node.NodeSpan(), hint)
}

func (v *validator) validateMemberChain(chain *ast.MemberChain, sc *scope) {
	v.validateExpr(chain.Base, sc)

	// The receiver kind is known only while the chain starts at a literal.
	var known *value.Kind
	if lit, ok := chain.Base.(*ast.Literal); ok {
		k := lit.Value.Kind()
		known = &k
	}

	for _, acc := range chain.Accessors {
		switch a := acc.(type) {
		case *ast.FieldAccess:
			if known != nil && *known != value.KindMap {
				v.addDiag(diagnostics.EType, fmt.Sprintf("field '%s' selected on a %s", a.Name, *known), a.Span, "")
			}
			known = nil
		case *ast.MethodCall:
			for _, arg := range a.Args {
				v.validateExpr(arg, sc)
			}
			v.checkCall(a, known)
			known = nil
		}
	}
}

func (v *validator) checkCall(call *ast.MethodCall, receiver *value.Kind) {
	if !v.methods.HasName(call.Name) {
		v.addDiag(diagnostics.EUnknownMethod, fmt.Sprintf("unknown method '%s'", call.Name), call.Span, v.suggest(call.Name))
		return
	}
	if receiver != nil {
		m, ok := v.methods.Lookup(*receiver, call.Name)
		if !ok {
			v.addDiag(diagnostics.EUnknownMethod, fmt.Sprintf("unknown method '%s' on %s", call.Name, *receiver), call.Span, "")
			return
		}
		if m.Arity != len(call.Args) {
			v.addDiag(diagnostics.EArity,
				fmt.Sprintf("method '%s' on %s expects %d argument(s), got %d", call.Name, *receiver, m.Arity, len(call.Args)),
				call.Span, "")
		}
		return
	}
	arities := v.methods.Arities(call.Name)
	for _, n := range arities {
		if n == len(call.Args) {
			return
		}
	}
	want := make([]string, len(arities))
	for i, n := range arities {
		want[i] = fmt.Sprint(n)
	}
	v.addDiag(diagnostics.EArity,
		fmt.Sprintf("method '%s' expects %s argument(s), got %d", call.Name, strings.Join(want, " or "), len(call.Args)),
		call.Span, "")
}

// suggest names a known method that differs only in case.
func (v *validator) suggest(name string) string {
	for _, m := range v.methods.All() {
		if strings.EqualFold(m.Name, name) {
			return fmt.Sprintf("did you mean '%s'?", m.Name)
		}
	}
	return ""
}
