package evaluator

import (
	"fmt"
	"strings"

	"github.com/thomasrohde/celviz/pkg/ast"
	"github.com/thomasrohde/celviz/pkg/diagnostics"
	"github.com/thomasrohde/celviz/pkg/value"
)

// ErrorKind classifies an evaluation error.
type ErrorKind string

const (
	UndefinedIdentifier ErrorKind = "UndefinedIdentifier"
	TypeMismatch        ErrorKind = "TypeMismatch"
	DivisionByZero      ErrorKind = "DivisionByZero"
	UnknownMethod       ErrorKind = "UnknownMethod"
	ArityMismatch       ErrorKind = "ArityMismatch"
	NoSuchField         ErrorKind = "NoSuchField"
	Overflow            ErrorKind = "Overflow"
	BudgetExceeded      ErrorKind = "BudgetExceeded"
)

var kindCodes = map[ErrorKind]string{
	UndefinedIdentifier: diagnostics.EUndefined,
	TypeMismatch:        diagnostics.EType,
	DivisionByZero:      diagnostics.EDivZero,
	UnknownMethod:       diagnostics.EUnknownMethod,
	ArityMismatch:       diagnostics.EArity,
	NoSuchField:         diagnostics.ENoField,
	Overflow:            diagnostics.EOverflow,
	BudgetExceeded:      diagnostics.EBudget,
}

// Arity describes an ArityMismatch.
type Arity struct {
	Expected []int `json:"expected"`
	Got      int   `json:"got"`
}

// EvalError represents a semantic error during evaluation. It carries no
// partial result.
type EvalError struct {
	Kind      ErrorKind    `json:"kind"`
	Code      string       `json:"code"`
	Message   string       `json:"message"`
	Span      ast.Span     `json:"span"`
	Name      string       `json:"name,omitempty"`
	Operation string       `json:"operation,omitempty"`
	Operands  []value.Kind `json:"operands,omitempty"`
	Receiver  string       `json:"receiver,omitempty"`
	Arity     *Arity       `json:"arity,omitempty"`
	Hint      string       `json:"hint,omitempty"`
}

func (e *EvalError) Error() string {
	return e.Message
}

// Diagnostic converts the error for display.
func (e *EvalError) Diagnostic() diagnostics.Diagnostic {
	span := e.Span
	return diagnostics.MakeDiag(e.Code, e.Message, &span, e.Hint)
}

func newError(kind ErrorKind, node ast.Node, msg string) *EvalError {
	return &EvalError{
		Kind:    kind,
		Code:    kindCodes[kind],
		Message: msg,
		Span:    node.NodeSpan(),
	}
}

func newUndefined(node ast.Node, name string) *EvalError {
	e := newError(UndefinedIdentifier, node, fmt.Sprintf("undefined identifier '%s'", name))
	e.Name = name
	return e
}

func newTypeMismatch(node ast.Node, operation string, operands ...value.Value) *EvalError {
	kinds := make([]value.Kind, len(operands))
	names := make([]string, len(operands))
	for i, v := range operands {
		kinds[i] = v.Kind()
		names[i] = kinds[i].String()
	}
	e := newError(TypeMismatch, node,
		fmt.Sprintf("no matching overload for '%s' applied to (%s)", operation, strings.Join(names, ", ")))
	e.Operation = operation
	e.Operands = kinds
	if mixesNumbers(kinds) {
		e.Hint = "int and float do not mix; write 2.0 rather than 2 for a float operand"
	}
	return e
}

func mixesNumbers(kinds []value.Kind) bool {
	var ints, floats bool
	for _, k := range kinds {
		ints = ints || k == value.KindInt
		floats = floats || k == value.KindFloat
	}
	return ints && floats
}

func newDivisionByZero(node ast.Node, op ast.ArithOp) *EvalError {
	msg := "division by zero"
	if op == ast.OpMod {
		msg = "modulus by zero"
	}
	e := newError(DivisionByZero, node, msg)
	e.Operation = string(op)
	return e
}

func newOverflow(node ast.Node, operation string) *EvalError {
	e := newError(Overflow, node, fmt.Sprintf("integer overflow in '%s'", operation))
	e.Operation = operation
	return e
}

func newUnknownMethod(node ast.Node, name string, receiver value.Kind) *EvalError {
	e := newError(UnknownMethod, node, fmt.Sprintf("unknown method '%s' on %s", name, receiver))
	e.Name = name
	e.Receiver = receiver.String()
	return e
}

func newArityMismatch(node ast.Node, name string, receiver value.Kind, expected []int, got int) *EvalError {
	want := make([]string, len(expected))
	for i, n := range expected {
		want[i] = fmt.Sprint(n)
	}
	e := newError(ArityMismatch, node,
		fmt.Sprintf("method '%s' on %s expects %s argument(s), got %d", name, receiver, strings.Join(want, " or "), got))
	e.Name = name
	e.Receiver = receiver.String()
	e.Arity = &Arity{Expected: expected, Got: got}
	return e
}

func newNoSuchField(node ast.Node, name string) *EvalError {
	e := newError(NoSuchField, node, fmt.Sprintf("no such field '%s'", name))
	e.Name = name
	return e
}

func newBudgetError(node ast.Node, msg string) *EvalError {
	return newError(BudgetExceeded, node, msg)
}
