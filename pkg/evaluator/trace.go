package evaluator

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/thomasrohde/celviz/pkg/ast"
	"github.com/thomasrohde/celviz/pkg/value"
)

// TraceNode mirrors one visited AST node together with its own outcome.
// Subexpressions skipped by short-circuiting have no node.
type TraceNode struct {
	Label    string
	Node     string
	Span     ast.Span
	Children []*TraceNode
	Value    value.Value
	Err      *EvalError
}

// OK reports whether the node evaluated successfully.
func (n *TraceNode) OK() bool {
	return n.Err == nil
}

// Leaf reports whether the node has no traced children.
func (n *TraceNode) Leaf() bool {
	return len(n.Children) == 0
}

// Outcome returns the node's result in the same form as Evaluate.
func (n *TraceNode) Outcome() (value.Value, error) {
	if n.Err != nil {
		return nil, n.Err
	}
	return n.Value, nil
}

// Walk visits the node and its descendants in pre-order.
func (n *TraceNode) Walk(fn func(node *TraceNode, depth int)) {
	n.walk(fn, 0)
}

func (n *TraceNode) walk(fn func(*TraceNode, int), depth int) {
	fn(n, depth)
	for _, c := range n.Children {
		c.walk(fn, depth+1)
	}
}

// Count returns the number of nodes in the trace.
func (n *TraceNode) Count() int {
	count := 0
	n.Walk(func(*TraceNode, int) { count++ })
	return count
}

type traceJSON struct {
	Label    string        `json:"label"`
	Node     string        `json:"node"`
	OK       bool          `json:"ok"`
	Value    *value.Tagged `json:"value,omitempty"`
	Display  string        `json:"display,omitempty"`
	Error    *EvalError    `json:"error,omitempty"`
	Leaf     bool          `json:"leaf"`
	Span     ast.Span      `json:"span"`
	Children []*TraceNode  `json:"children"`
}

func (n *TraceNode) MarshalJSON() ([]byte, error) {
	out := traceJSON{
		Label:    n.Label,
		Node:     n.Node,
		OK:       n.OK(),
		Error:    n.Err,
		Leaf:     n.Leaf(),
		Span:     n.Span,
		Children: n.Children,
	}
	if out.Children == nil {
		out.Children = []*TraceNode{}
	}
	if n.Value != nil {
		tagged := value.Encode(n.Value)
		out.Value = &tagged
		out.Display = n.Value.String()
	}
	return json.Marshal(out)
}

// open creates the trace node for expr and attaches it to the current parent.
func (ev *evaluation) open(expr ast.Expr) *TraceNode {
	node := &TraceNode{Label: Label(expr), Node: expr.Kind(), Span: expr.NodeSpan()}
	if len(ev.stack) == 0 {
		ev.root = node
	} else {
		parent := ev.stack[len(ev.stack)-1]
		parent.Children = append(parent.Children, node)
	}
	ev.stack = append(ev.stack, node)
	return node
}

// close records the node's own outcome and pops it.
func (ev *evaluation) close(node *TraceNode, result value.Value, err error) {
	ev.stack = ev.stack[:len(ev.stack)-1]
	if err != nil {
		var evalErr *EvalError
		if !errors.As(err, &evalErr) {
			evalErr = &EvalError{Kind: TypeMismatch, Code: kindCodes[TypeMismatch], Message: err.Error(), Span: node.Span}
		}
		node.Err = evalErr
		return
	}
	node.Value = result
}

// Label renders the operator label shown for expr in a trace.
func Label(expr ast.Expr) string {
	switch n := expr.(type) {
	case *ast.Literal:
		return n.Value.String()
	case *ast.Ident:
		return n.Name
	case *ast.Let:
		return "let " + n.Name
	case *ast.Ternary:
		return "?:"
	case *ast.Or:
		return "||"
	case *ast.And:
		return "&&"
	case *ast.Relation:
		return string(n.Op)
	case *ast.Arithmetic:
		ops := make([]string, len(n.Ops))
		for i, op := range n.Ops {
			ops[i] = string(op)
		}
		return strings.Join(ops, " ")
	case *ast.Unary:
		return string(n.Op)
	case *ast.MemberChain:
		var sb strings.Builder
		for _, acc := range n.Accessors {
			sb.WriteByte('.')
			switch a := acc.(type) {
			case *ast.FieldAccess:
				sb.WriteString(a.Name)
			case *ast.MethodCall:
				sb.WriteString(a.Name)
				sb.WriteByte('(')
				for i := range a.Args {
					if i > 0 {
						sb.WriteString(", ")
					}
					sb.WriteByte('_')
				}
				sb.WriteByte(')')
			}
		}
		return sb.String()
	case *ast.ListLiteral:
		return "[]"
	case *ast.MapLiteral:
		return "{}"
	}
	return expr.Kind()
}
