package oracle

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
	"go.uber.org/zap"

	"github.com/thomasrohde/celviz/pkg/evaluator"
	"github.com/thomasrohde/celviz/pkg/value"
)

// ErrUnsupported marks sources the reference implementation cannot run.
var ErrUnsupported = errors.New("not supported by the reference implementation")

// Oracle evaluates CEL expressions with cel-go
type Oracle struct {
	logger *zap.Logger
	env    *cel.Env
	cache  map[string]cel.Program
	mu     sync.RWMutex
}

// New creates a new Oracle. A nil logger discards output.
func New(logger *zap.Logger) (*Oracle, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	env, err := cel.NewEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return &Oracle{
		logger: logger,
		env:    env,
		cache:  make(map[string]cel.Program),
	}, nil
}

// Evaluate evaluates source with cel-go against vars
func (o *Oracle) Evaluate(source string, vars map[string]value.Value) (value.Value, error) {
	program, err := o.getProgram(source)
	if err != nil {
		return nil, err
	}

	activation := make(map[string]any, len(vars))
	for name, v := range vars {
		conv, err := toCEL(v)
		if err != nil {
			return nil, fmt.Errorf("%w: variable %s: %v", ErrUnsupported, name, err)
		}
		activation[name] = conv
	}

	out, _, err := program.Eval(activation)
	if err != nil {
		return nil, fmt.Errorf("evaluation failed: %w", err)
	}

	result, err := fromCEL(out)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	return result, nil
}

// getProgram gets a compiled program from cache or compiles it
func (o *Oracle) getProgram(source string) (cel.Program, error) {
	o.mu.RLock()
	if program, ok := o.cache[source]; ok {
		o.mu.RUnlock()
		return program, nil
	}
	o.mu.RUnlock()

	o.mu.Lock()
	defer o.mu.Unlock()

	// Check again in case another goroutine compiled it
	if program, ok := o.cache[source]; ok {
		return program, nil
	}

	ast, issues := o.env.Parse(source)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupported, issues.Err())
	}

	program, err := o.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("%w: program generation error: %v", ErrUnsupported, err)
	}

	o.cache[source] = program
	o.logger.Debug("compiled reference program", zap.Int("cached", len(o.cache)))

	return program, nil
}

// ClearCache clears the compiled program cache
func (o *Oracle) ClearCache() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.cache = make(map[string]cel.Program)
}

// Evaluator is the implementation under comparison.
type Evaluator interface {
	Evaluate(source string, env *evaluator.Env) (value.Value, error)
}

// Compare evaluates source with both ours and cel-go.
func (o *Oracle) Compare(ours Evaluator, source string, env *evaluator.Env) Verdict {
	v := Verdict{Source: source}
	v.Ours, v.OursErr = ours.Evaluate(source, env)
	v.Reference, v.ReferenceErr = o.Evaluate(source, env.Bindings())
	o.logger.Debug("compared",
		zap.Bool("agree", v.Agree()),
		zap.Bool("unsupported", v.Unsupported()),
	)
	return v
}
