// Package runtime exposes the CEL core operations to hosts: tokenize, parse,
// evaluate and process (evaluate with trace), plus check and format.
package runtime

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/thomasrohde/celviz/pkg/ast"
	"github.com/thomasrohde/celviz/pkg/diagnostics"
	"github.com/thomasrohde/celviz/pkg/evaluator"
	"github.com/thomasrohde/celviz/pkg/formatter"
	"github.com/thomasrohde/celviz/pkg/lexer"
	"github.com/thomasrohde/celviz/pkg/parser"
	"github.com/thomasrohde/celviz/pkg/stdlib"
	"github.com/thomasrohde/celviz/pkg/validator"
	"github.com/thomasrohde/celviz/pkg/value"
)

// Runtime wires the core components together. It holds only immutable
// configuration and is safe for concurrent use.
type Runtime struct {
	logger   *zap.Logger
	budget   evaluator.Budget
	filename string
	methods  *stdlib.Registry
}

// Option is a functional option for configuring the Runtime.
type Option func(*Runtime)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(rt *Runtime) {
		rt.logger = l
	}
}

// WithBudget sets the evaluation limits.
func WithBudget(b evaluator.Budget) Option {
	return func(rt *Runtime) {
		rt.budget = b
	}
}

// WithFilename sets the file name reported in spans.
func WithFilename(name string) Option {
	return func(rt *Runtime) {
		rt.filename = name
	}
}

// WithMethods sets the built-in method table.
func WithMethods(r *stdlib.Registry) Option {
	return func(rt *Runtime) {
		rt.methods = r
	}
}

// New creates a new Runtime with the given options.
func New(opts ...Option) *Runtime {
	rt := &Runtime{
		logger:  zap.NewNop(),
		methods: stdlib.Defaults(),
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

func (rt *Runtime) newEvaluator() *evaluator.Evaluator {
	return evaluator.New(rt.budget).WithMethods(rt.methods)
}

// Tokenize returns the raw lexical breakdown of source.
func (rt *Runtime) Tokenize(source string) ([]lexer.Token, error) {
	tokens, err := lexer.Tokenize(source, rt.filename)
	if err != nil {
		rt.logger.Debug("tokenize failed", zap.String("file", rt.filename), zap.Error(err))
		return nil, err
	}
	rt.logger.Debug("tokenized", zap.String("file", rt.filename), zap.Int("tokens", len(tokens)))
	return tokens, nil
}

// ParseToAST parses source into an expression tree. Use ast.Encode for the
// serialized form.
func (rt *Runtime) ParseToAST(source string) (ast.Expr, error) {
	start := time.Now()
	expr, err := parser.Parse(source, rt.filename)
	if err != nil {
		rt.logger.Debug("parse failed", zap.String("file", rt.filename), zap.Error(err))
		return nil, err
	}
	rt.logger.Debug("parsed",
		zap.String("file", rt.filename),
		zap.Int("nodes", countNodes(expr)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return expr, nil
}

// Evaluate parses then evaluates source against env.
func (rt *Runtime) Evaluate(source string, env *evaluator.Env) (value.Value, error) {
	expr, err := rt.ParseToAST(source)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	v, err := rt.newEvaluator().Evaluate(expr, env)
	if err != nil {
		rt.logger.Debug("evaluation failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return nil, err
	}
	rt.logger.Debug("evaluated", zap.Stringer("kind", v.Kind()), zap.Duration("elapsed", time.Since(start)))
	return v, nil
}

// Process parses then evaluates source with a full trace. The error is
// non-nil only for parse failures; evaluation errors live in the trace.
func (rt *Runtime) Process(source string, env *evaluator.Env) (*evaluator.TraceNode, error) {
	expr, err := rt.ParseToAST(source)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	root := rt.newEvaluator().EvaluateWithTrace(expr, env)
	rt.logger.Debug("traced",
		zap.Bool("ok", root.OK()),
		zap.Int("nodes", root.Count()),
		zap.Duration("elapsed", time.Since(start)),
	)
	return root, nil
}

// Check parses and statically validates source without evaluating it.
// A nil declared list disables the undefined identifier check.
func (rt *Runtime) Check(source string, declared []string) []diagnostics.Diagnostic {
	expr, err := rt.ParseToAST(source)
	if err != nil {
		return []diagnostics.Diagnostic{ToDiagnostic(err)}
	}
	diags := validator.Validate(expr, validator.Options{Declared: declared, Methods: rt.methods})
	rt.logger.Debug("checked", zap.String("file", rt.filename), zap.Int("diagnostics", len(diags)))
	return diags
}

// Format parses and canonically formats source.
func (rt *Runtime) Format(source string) (string, error) {
	expr, err := rt.ParseToAST(source)
	if err != nil {
		return "", &DiagnosticError{Diagnostics: []diagnostics.Diagnostic{ToDiagnostic(err)}}
	}
	return formatter.Format(expr), nil
}

// DiagnosticError wraps diagnostics as an error.
type DiagnosticError struct {
	Diagnostics []diagnostics.Diagnostic
}

func (e *DiagnosticError) Error() string {
	msgs := make([]string, len(e.Diagnostics))
	for i, d := range e.Diagnostics {
		msgs[i] = fmt.Sprintf("%s: %s", d.Code, d.Message)
	}
	return strings.Join(msgs, "; ")
}

// ToDiagnostic converts any core error into a diagnostic.
func ToDiagnostic(err error) diagnostics.Diagnostic {
	var parseErr *parser.ParseError
	var lexErr *lexer.LexError
	var evalErr *evaluator.EvalError
	var diagErr *DiagnosticError
	switch {
	case errors.As(err, &parseErr):
		d := parseErr.Diag
		if d.Hint == "" && len(parseErr.Expected) > 0 {
			d.Hint = "expected " + strings.Join(parseErr.Expected, " or ")
		}
		return d
	case errors.As(err, &lexErr):
		return lexErr.Diag
	case errors.As(err, &evalErr):
		return evalErr.Diagnostic()
	case errors.As(err, &diagErr) && len(diagErr.Diagnostics) > 0:
		return diagErr.Diagnostics[0]
	}
	return diagnostics.MakeDiag(diagnostics.EIO, err.Error(), nil, "")
}

func countNodes(expr ast.Expr) int {
	n := 0
	ast.Walk(expr, func(ast.Expr) bool {
		n++
		return true
	})
	return n
}
