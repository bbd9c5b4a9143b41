package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/thomasrohde/celviz/pkg/diagnostics"
	"github.com/thomasrohde/celviz/pkg/evaluator"
	"github.com/thomasrohde/celviz/pkg/lexer"
	"github.com/thomasrohde/celviz/pkg/runtime"
	"github.com/thomasrohde/celviz/pkg/value"
)

func envError(format string, args ...any) error {
	return &runtime.DiagnosticError{Diagnostics: []diagnostics.Diagnostic{
		diagnostics.MakeDiag(diagnostics.EEnv, fmt.Sprintf(format, args...), nil, ""),
	}}
}

// buildEnv loads the --env files in order, later files overriding earlier
// ones, then binds each --var on top.
func buildEnv(rt *runtime.Runtime, opts *options) (*evaluator.Env, error) {
	vars := map[string]value.Value{}
	for _, path := range opts.envFiles {
		loaded, err := loadEnvFile(path)
		if err != nil {
			return nil, envError("%s: %s", path, err)
		}
		for _, e := range loaded.Entries {
			vars[e.Key.(value.String).Value] = e.Value
		}
	}
	env := evaluator.NewEnv(vars)

	for _, assignment := range opts.vars {
		name, expr, err := splitAssignment(assignment)
		if err != nil {
			return nil, envError("--var %s: %s", assignment, err)
		}
		v, err := rt.Evaluate(expr, env)
		if err != nil {
			return nil, envError("--var %s: %s", name, err)
		}
		env = env.Extend(name, v)
	}
	return env, nil
}

// splitAssignment splits "name = expr" and checks that name is an identifier.
func splitAssignment(s string) (string, string, error) {
	tokens, err := lexer.Tokenize(s, "")
	if err != nil {
		return "", "", err
	}
	if len(tokens) < 3 || tokens[0].Type != lexer.TokIdent || tokens[1].Type != lexer.TokEquals {
		return "", "", fmt.Errorf("expected name=expr")
	}
	expr := s[tokens[2].Span.Offset:]
	return tokens[0].Value, expr, nil
}

// loadEnvFile reads a YAML or JSON document whose top level is a mapping of
// variable names to values. Mapping order is preserved.
func loadEnvFile(path string) (value.Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return value.Map{}, err
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return value.Map{}, err
	}
	if len(doc.Content) == 0 {
		return value.Map{}, nil
	}
	v, err := fromYAML(doc.Content[0])
	if err != nil {
		return value.Map{}, err
	}
	m, ok := v.(value.Map)
	if !ok {
		return value.Map{}, fmt.Errorf("top level must be a mapping of names to values, got %s", v.Kind())
	}
	for _, e := range m.Entries {
		name, ok := e.Key.(value.String)
		if !ok || !isIdentifier(name.Value) {
			return value.Map{}, fmt.Errorf("variable name %s is not an identifier", e.Key)
		}
	}
	return m, nil
}

func isIdentifier(s string) bool {
	tokens, err := lexer.Tokenize(s, "")
	return err == nil && len(tokens) == 2 && tokens[0].Type == lexer.TokIdent
}

func fromYAML(n *yaml.Node) (value.Value, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return value.NewNull(), nil
		}
		return fromYAML(n.Content[0])
	case yaml.AliasNode:
		return fromYAML(n.Alias)
	case yaml.SequenceNode:
		items := make([]value.Value, len(n.Content))
		for i, child := range n.Content {
			item, err := fromYAML(child)
			if err != nil {
				return nil, err
			}
			items[i] = item
		}
		return value.NewList(items), nil
	case yaml.MappingNode:
		entries := make([]value.Entry, 0, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			key, err := fromYAML(n.Content[i])
			if err != nil {
				return nil, err
			}
			val, err := fromYAML(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			entries = append(entries, value.Entry{Key: key, Value: val})
		}
		return value.NewMap(entries), nil
	case yaml.ScalarNode:
		if n.Tag == "!!binary" {
			var decoded string
			if err := n.Decode(&decoded); err != nil {
				return nil, fmt.Errorf("line %d: %w", n.Line, err)
			}
			return value.NewBytes([]byte(decoded)), nil
		}
		var native any
		if err := n.Decode(&native); err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		v, err := value.FromNative(native)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return v, nil
	}
	return nil, fmt.Errorf("line %d: unsupported YAML node", n.Line)
}
