// Package evaluator walks CEL expression trees against an environment.
package evaluator

import (
	"errors"
	"math"

	"github.com/thomasrohde/celviz/pkg/ast"
	"github.com/thomasrohde/celviz/pkg/stdlib"
	"github.com/thomasrohde/celviz/pkg/value"
)

var defaultMethods = stdlib.Defaults()

// Evaluator evaluates expressions under a fixed budget and method table.
// It holds no per-call state and is safe for concurrent use.
type Evaluator struct {
	budget  Budget
	methods *stdlib.Registry
}

// New creates an Evaluator with the default built-in methods.
func New(budget Budget) *Evaluator {
	return &Evaluator{budget: budget, methods: defaultMethods}
}

// WithMethods returns a copy of the evaluator dispatching to r.
func (e *Evaluator) WithMethods(r *stdlib.Registry) *Evaluator {
	cp := *e
	cp.methods = r
	return &cp
}

// Budget returns the limits the evaluator enforces.
func (e *Evaluator) Budget() Budget {
	return e.budget
}

// Evaluate evaluates expr and returns its value. A non-nil error is always
// an *EvalError.
func (e *Evaluator) Evaluate(expr ast.Expr, env *Env) (value.Value, error) {
	ev := e.newRun(false)
	v, err := ev.eval(expr, env)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// EvaluateWithTrace evaluates expr and records the outcome of every visited
// subexpression. The root outcome equals what Evaluate returns.
func (e *Evaluator) EvaluateWithTrace(expr ast.Expr, env *Env) *TraceNode {
	ev := e.newRun(true)
	ev.eval(expr, env)
	return ev.root
}

// Evaluate evaluates expr without limits.
func Evaluate(expr ast.Expr, env *Env) (value.Value, error) {
	return New(Budget{}).Evaluate(expr, env)
}

// EvaluateWithTrace traces expr without limits.
func EvaluateWithTrace(expr ast.Expr, env *Env) *TraceNode {
	return New(Budget{}).EvaluateWithTrace(expr, env)
}

// evaluation is the state of a single Evaluate or EvaluateWithTrace call.
type evaluation struct {
	methods *stdlib.Registry
	tracker budgetTracker
	trace   bool
	stack   []*TraceNode
	root    *TraceNode
}

func (e *Evaluator) newRun(trace bool) *evaluation {
	methods := e.methods
	if methods == nil {
		methods = defaultMethods
	}
	return &evaluation{
		methods: methods,
		tracker: budgetTracker{limits: e.budget},
		trace:   trace,
	}
}

// eval is the single dispatch shared by plain and traced evaluation. When
// tracing, each call opens a node under the current parent and records the
// node's own outcome on return.
func (ev *evaluation) eval(expr ast.Expr, env *Env) (result value.Value, err error) {
	if ev.trace {
		node := ev.open(expr)
		defer func() { ev.close(node, result, err) }()
	}

	if err := ev.tracker.enter(expr); err != nil {
		ev.tracker.leave()
		return nil, err
	}
	defer ev.tracker.leave()

	switch n := expr.(type) {
	case *ast.Literal:
		return n.Value, nil

	case *ast.Ident:
		v, ok := env.Get(n.Name)
		if !ok {
			return nil, newUndefined(n, n.Name)
		}
		return v, nil

	case *ast.Let:
		bound, err := ev.eval(n.Bound, env)
		if err != nil {
			return nil, err
		}
		return ev.eval(n.Body, env.Extend(n.Name, bound))

	case *ast.Ternary:
		return ev.evalTernary(n, env)

	case *ast.Or:
		return ev.evalLogical(n, n.Operands, "||", true, env)

	case *ast.And:
		return ev.evalLogical(n, n.Operands, "&&", false, env)

	case *ast.Relation:
		return ev.evalRelation(n, env)

	case *ast.Arithmetic:
		return ev.evalArithmetic(n, env)

	case *ast.Unary:
		return ev.evalUnary(n, env)

	case *ast.MemberChain:
		return ev.evalMemberChain(n, env)

	case *ast.ListLiteral:
		items := make([]value.Value, 0, len(n.Elements))
		for _, el := range n.Elements {
			v, err := ev.eval(el, env)
			if err != nil {
				return nil, err
			}
			items = append(items, v)
		}
		return value.List{Items: items}, nil

	case *ast.MapLiteral:
		entries := make([]value.Entry, 0, len(n.Entries))
		for _, entry := range n.Entries {
			k, err := ev.eval(entry.Key, env)
			if err != nil {
				return nil, err
			}
			v, err := ev.eval(entry.Value, env)
			if err != nil {
				return nil, err
			}
			entries = append(entries, value.Entry{Key: k, Value: v})
		}
		return value.NewMap(entries), nil
	}

	return nil, newError(TypeMismatch, expr, "unsupported expression node "+expr.Kind())
}

func (ev *evaluation) evalTernary(n *ast.Ternary, env *Env) (value.Value, error) {
	cond, err := ev.eval(n.Cond, env)
	if err != nil {
		return nil, err
	}
	b, ok := cond.(value.Bool)
	if !ok {
		return nil, newTypeMismatch(n, "?:", cond)
	}
	if b.Value {
		return ev.eval(n.Then, env)
	}
	return ev.eval(n.Else, env)
}

// evalLogical implements || (absorb=true) and && (absorb=false). An operand
// equal to absorb decides the result even if an earlier operand failed.
func (ev *evaluation) evalLogical(n ast.Expr, operands []ast.Expr, op string, absorb bool, env *Env) (value.Value, error) {
	var firstErr error
	var bad value.Value
	for _, operand := range operands {
		v, err := ev.eval(operand, env)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		b, ok := v.(value.Bool)
		if !ok {
			if bad == nil {
				bad = v
			}
			continue
		}
		if b.Value == absorb {
			return value.NewBool(absorb), nil
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}
	if bad != nil {
		return nil, newTypeMismatch(n, op, bad)
	}
	return value.NewBool(!absorb), nil
}

func (ev *evaluation) evalRelation(n *ast.Relation, env *Env) (value.Value, error) {
	left, err := ev.eval(n.Left, env)
	if err != nil {
		return nil, err
	}
	right, err := ev.eval(n.Right, env)
	if err != nil {
		return nil, err
	}

	switch n.Op {
	case ast.OpEq:
		return value.NewBool(value.Equal(left, right)), nil
	case ast.OpNeq:
		return value.NewBool(!value.Equal(left, right)), nil
	}

	if left.Kind() != right.Kind() || !value.Orderable(left.Kind()) {
		return nil, newTypeMismatch(n, string(n.Op), left, right)
	}
	c, ok := value.Compare(left, right)
	if !ok {
		// NaN
		return value.NewBool(false), nil
	}
	switch n.Op {
	case ast.OpLt:
		return value.NewBool(c < 0), nil
	case ast.OpLtEq:
		return value.NewBool(c <= 0), nil
	case ast.OpGt:
		return value.NewBool(c > 0), nil
	default:
		return value.NewBool(c >= 0), nil
	}
}

func (ev *evaluation) evalArithmetic(n *ast.Arithmetic, env *Env) (value.Value, error) {
	acc, err := ev.eval(n.Operands[0], env)
	if err != nil {
		return nil, err
	}
	for i, op := range n.Ops {
		rhs, err := ev.eval(n.Operands[i+1], env)
		if err != nil {
			return nil, err
		}
		acc, err = binaryOp(n, op, acc, rhs)
		if err != nil {
			return nil, err
		}
	}
	return acc, nil
}

func binaryOp(n ast.Node, op ast.ArithOp, left, right value.Value) (value.Value, error) {
	switch l := left.(type) {
	case value.Int:
		if r, ok := right.(value.Int); ok {
			return intOp(n, op, l.Value, r.Value)
		}
	case value.Float:
		if r, ok := right.(value.Float); ok {
			return floatOp(n, op, l.Value, r.Value, left, right)
		}
	case value.String:
		if r, ok := right.(value.String); ok && op == ast.OpAdd {
			return value.NewString(l.Value + r.Value), nil
		}
	case value.List:
		if r, ok := right.(value.List); ok && op == ast.OpAdd {
			items := make([]value.Value, 0, len(l.Items)+len(r.Items))
			items = append(items, l.Items...)
			items = append(items, r.Items...)
			return value.List{Items: items}, nil
		}
	}
	return nil, newTypeMismatch(n, string(op), left, right)
}

func intOp(n ast.Node, op ast.ArithOp, a, b int64) (value.Value, error) {
	switch op {
	case ast.OpAdd:
		c := a + b
		if (c > a) != (b > 0) {
			return nil, newOverflow(n, string(op))
		}
		return value.NewInt(c), nil
	case ast.OpSub:
		c := a - b
		if (c < a) != (b > 0) {
			return nil, newOverflow(n, string(op))
		}
		return value.NewInt(c), nil
	case ast.OpMul:
		if a == 0 || b == 0 {
			return value.NewInt(0), nil
		}
		c := a * b
		if (c < 0) != ((a < 0) != (b < 0)) || c/b != a {
			return nil, newOverflow(n, string(op))
		}
		return value.NewInt(c), nil
	case ast.OpDiv, ast.OpMod:
		if b == 0 {
			return nil, newDivisionByZero(n, op)
		}
		if a == math.MinInt64 && b == -1 {
			return nil, newOverflow(n, string(op))
		}
		if op == ast.OpDiv {
			return value.NewInt(a / b), nil
		}
		return value.NewInt(a % b), nil
	}
	return nil, newTypeMismatch(n, string(op), value.NewInt(a), value.NewInt(b))
}

func floatOp(n ast.Node, op ast.ArithOp, a, b float64, left, right value.Value) (value.Value, error) {
	switch op {
	case ast.OpAdd:
		return value.NewFloat(a + b), nil
	case ast.OpSub:
		return value.NewFloat(a - b), nil
	case ast.OpMul:
		return value.NewFloat(a * b), nil
	case ast.OpDiv:
		if b == 0 {
			return nil, newDivisionByZero(n, op)
		}
		return value.NewFloat(a / b), nil
	}
	return nil, newTypeMismatch(n, string(op), left, right)
}

func (ev *evaluation) evalUnary(n *ast.Unary, env *Env) (value.Value, error) {
	operand, err := ev.eval(n.Operand, env)
	if err != nil {
		return nil, err
	}
	switch v := operand.(type) {
	case value.Int:
		if n.Op == ast.OpNeg {
			if v.Value == math.MinInt64 {
				return nil, newOverflow(n, string(n.Op))
			}
			return value.NewInt(-v.Value), nil
		}
	case value.Float:
		if n.Op == ast.OpNeg {
			return value.NewFloat(-v.Value), nil
		}
	case value.Bool:
		if n.Op == ast.OpNot {
			return value.NewBool(!v.Value), nil
		}
	}
	return nil, newTypeMismatch(n, string(n.Op), operand)
}

func (ev *evaluation) evalMemberChain(n *ast.MemberChain, env *Env) (value.Value, error) {
	cur, err := ev.eval(n.Base, env)
	if err != nil {
		return nil, err
	}
	for _, acc := range n.Accessors {
		switch a := acc.(type) {
		case *ast.FieldAccess:
			m, ok := cur.(value.Map)
			if !ok {
				return nil, newTypeMismatch(a, "."+a.Name, cur)
			}
			field, found := m.Field(a.Name)
			if !found {
				return nil, newNoSuchField(a, a.Name)
			}
			cur = field

		case *ast.MethodCall:
			args := make([]value.Value, 0, len(a.Args))
			for _, argExpr := range a.Args {
				v, err := ev.eval(argExpr, env)
				if err != nil {
					return nil, err
				}
				args = append(args, v)
			}
			cur, err = ev.call(a, cur, args)
			if err != nil {
				return nil, err
			}
		}
	}
	return cur, nil
}

func (ev *evaluation) call(a *ast.MethodCall, recv value.Value, args []value.Value) (value.Value, error) {
	m, ok := ev.methods.Lookup(recv.Kind(), a.Name)
	if !ok {
		return nil, newUnknownMethod(a, a.Name, recv.Kind())
	}
	if m.Arity != len(args) {
		return nil, newArityMismatch(a, a.Name, recv.Kind(), []int{m.Arity}, len(args))
	}
	result, err := m.Call(recv, args)
	if err != nil {
		var argErr *stdlib.ArgTypeError
		switch {
		case errors.Is(err, stdlib.ErrOverflow):
			return nil, newOverflow(a, a.Name)
		case errors.As(err, &argErr):
			return nil, newTypeMismatch(a, a.Name, append([]value.Value{recv}, args...)...)
		}
		return nil, newError(TypeMismatch, a, err.Error())
	}
	return result, nil
}
