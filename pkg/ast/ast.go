// Package ast defines the CEL expression tree.
package ast

import "github.com/thomasrohde/celviz/pkg/value"

// Span represents a source location range.
type Span struct {
	File      string `json:"file,omitempty"`
	Offset    int    `json:"offset"`
	StartLine int    `json:"startLine"`
	StartCol  int    `json:"startCol"`
	EndLine   int    `json:"endLine"`
	EndCol    int    `json:"endCol"`
}

// Node is the interface implemented by all AST nodes.
type Node interface {
	Kind() string
	NodeSpan() Span
}

// RelOp represents a relational operator.
type RelOp string

const (
	OpEq   RelOp = "=="
	OpNeq  RelOp = "!="
	OpLt   RelOp = "<"
	OpLtEq RelOp = "<="
	OpGt   RelOp = ">"
	OpGtEq RelOp = ">="
)

// ArithOp represents an additive or multiplicative operator.
type ArithOp string

const (
	OpAdd ArithOp = "+"
	OpSub ArithOp = "-"
	OpMul ArithOp = "*"
	OpDiv ArithOp = "/"
	OpMod ArithOp = "%"
)

// Multiplicative reports whether op belongs to the * / % tier.
func (op ArithOp) Multiplicative() bool {
	return op == OpMul || op == OpDiv || op == OpMod
}

// UnaryOp represents a prefix operator.
type UnaryOp string

const (
	OpNeg UnaryOp = "-"
	OpNot UnaryOp = "!"
)

// --- Expr is the interface for all expression nodes ---

type Expr interface {
	Node
	exprNode() // sealed marker
}

// --- Accessor is the interface for member chain steps ---

type Accessor interface {
	Node
	accessorNode() // sealed marker
}

// Literal holds a value decoded from source text.
type Literal struct {
	Span  Span
	Value value.Value
}

func (n *Literal) Kind() string   { return "Literal" }
func (n *Literal) NodeSpan() Span { return n.Span }
func (n *Literal) exprNode()      {}

type Ident struct {
	Span Span
	Name string
}

func (n *Ident) Kind() string   { return "Ident" }
func (n *Ident) NodeSpan() Span { return n.Span }
func (n *Ident) exprNode()      {}

// Let binds Name to Bound for the evaluation of Body. Sequential bindings
// nest: the body of one Let is the next Let.
type Let struct {
	Span  Span
	Name  string
	Bound Expr
	Body  Expr
}

func (n *Let) Kind() string   { return "Let" }
func (n *Let) NodeSpan() Span { return n.Span }
func (n *Let) exprNode()      {}

type Ternary struct {
	Span Span
	Cond Expr
	Then Expr
	Else Expr
}

func (n *Ternary) Kind() string   { return "Ternary" }
func (n *Ternary) NodeSpan() Span { return n.Span }
func (n *Ternary) exprNode()      {}

// Or is a flat disjunction of at least two operands.
type Or struct {
	Span     Span
	Operands []Expr
}

func (n *Or) Kind() string   { return "Or" }
func (n *Or) NodeSpan() Span { return n.Span }
func (n *Or) exprNode()      {}

// And is a flat conjunction of at least two operands.
type And struct {
	Span     Span
	Operands []Expr
}

func (n *And) Kind() string   { return "And" }
func (n *And) NodeSpan() Span { return n.Span }
func (n *And) exprNode()      {}

type Relation struct {
	Span  Span
	Op    RelOp
	Left  Expr
	Right Expr
}

func (n *Relation) Kind() string   { return "Relation" }
func (n *Relation) NodeSpan() Span { return n.Span }
func (n *Relation) exprNode()      {}

// Arithmetic is a left-associative chain within one precedence tier.
// Ops[i] combines the running result with Operands[i+1].
type Arithmetic struct {
	Span     Span
	Operands []Expr
	Ops      []ArithOp
}

func (n *Arithmetic) Kind() string   { return "Arithmetic" }
func (n *Arithmetic) NodeSpan() Span { return n.Span }
func (n *Arithmetic) exprNode()      {}

type Unary struct {
	Span    Span
	Op      UnaryOp
	Operand Expr
}

func (n *Unary) Kind() string   { return "Unary" }
func (n *Unary) NodeSpan() Span { return n.Span }
func (n *Unary) exprNode()      {}

type MemberChain struct {
	Span      Span
	Base      Expr
	Accessors []Accessor
}

func (n *MemberChain) Kind() string   { return "MemberChain" }
func (n *MemberChain) NodeSpan() Span { return n.Span }
func (n *MemberChain) exprNode()      {}

type FieldAccess struct {
	Span Span
	Name string
}

func (n *FieldAccess) Kind() string   { return "FieldAccess" }
func (n *FieldAccess) NodeSpan() Span { return n.Span }
func (n *FieldAccess) accessorNode()  {}

type MethodCall struct {
	Span Span
	Name string
	Args []Expr
}

func (n *MethodCall) Kind() string   { return "MethodCall" }
func (n *MethodCall) NodeSpan() Span { return n.Span }
func (n *MethodCall) accessorNode()  {}

type ListLiteral struct {
	Span     Span
	Elements []Expr
}

func (n *ListLiteral) Kind() string   { return "ListLiteral" }
func (n *ListLiteral) NodeSpan() Span { return n.Span }
func (n *ListLiteral) exprNode()      {}

type MapEntry struct {
	Key   Expr
	Value Expr
}

type MapLiteral struct {
	Span    Span
	Entries []MapEntry
}

func (n *MapLiteral) Kind() string   { return "MapLiteral" }
func (n *MapLiteral) NodeSpan() Span { return n.Span }
func (n *MapLiteral) exprNode()      {}

// Walk visits expr and its subexpressions in pre-order. If fn returns false
// the children of that node are skipped.
func Walk(expr Expr, fn func(Expr) bool) {
	if expr == nil || !fn(expr) {
		return
	}
	switch n := expr.(type) {
	case *Let:
		Walk(n.Bound, fn)
		Walk(n.Body, fn)
	case *Ternary:
		Walk(n.Cond, fn)
		Walk(n.Then, fn)
		Walk(n.Else, fn)
	case *Or:
		for _, op := range n.Operands {
			Walk(op, fn)
		}
	case *And:
		for _, op := range n.Operands {
			Walk(op, fn)
		}
	case *Relation:
		Walk(n.Left, fn)
		Walk(n.Right, fn)
	case *Arithmetic:
		for _, op := range n.Operands {
			Walk(op, fn)
		}
	case *Unary:
		Walk(n.Operand, fn)
	case *MemberChain:
		Walk(n.Base, fn)
		for _, acc := range n.Accessors {
			if call, ok := acc.(*MethodCall); ok {
				for _, arg := range call.Args {
					Walk(arg, fn)
				}
			}
		}
	case *ListLiteral:
		for _, el := range n.Elements {
			Walk(el, fn)
		}
	case *MapLiteral:
		for _, e := range n.Entries {
			Walk(e.Key, fn)
			Walk(e.Value, fn)
		}
	}
}
