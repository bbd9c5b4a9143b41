// Package testutil provides shared test helpers for celviz tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/thomasrohde/celviz/pkg/evaluator"
	"github.com/thomasrohde/celviz/pkg/value"
)

// ScenariosDir is the relative path from the module root to the scenarios.
const ScenariosDir = "testdata/scenarios"

// Scenario represents a test scenario loaded from a scenario.json file.
type Scenario struct {
	Cmd    []string        `json:"cmd"`
	Env    json.RawMessage `json:"env,omitempty"`
	Budget *Budget         `json:"budget,omitempty"`
	Meta   *ScenarioMeta   `json:"meta,omitempty"`
	Expect ExpectedResult  `json:"expect"`
}

// Budget overrides the evaluation limits for a scenario.
type Budget struct {
	MaxDepth int   `json:"maxDepth,omitempty"`
	MaxSteps int64 `json:"maxSteps,omitempty"`
}

// ScenarioMeta holds optional scenario metadata.
type ScenarioMeta struct {
	Tags []string `json:"tags,omitempty"`
}

// ExpectedResult describes the expected outcome of running a scenario.
type ExpectedResult struct {
	ExitCode         int             `json:"exitCode"`
	StdoutJSON       json.RawMessage `json:"stdoutJson,omitempty"`
	StdoutJSONSubset json.RawMessage `json:"stdoutJsonSubset,omitempty"`
	StdoutText       string          `json:"stdoutText,omitempty"`
	StderrJSONSubset json.RawMessage `json:"stderrJsonSubset,omitempty"`
	StderrContains   string          `json:"stderrContains,omitempty"`
}

// LoadScenario loads a scenario from a directory containing scenario.json.
func LoadScenario(dir string) (*Scenario, error) {
	data, err := os.ReadFile(filepath.Join(dir, "scenario.json"))
	if err != nil {
		return nil, err
	}
	var s Scenario
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%s: %w", dir, err)
	}
	if len(s.Cmd) < 2 {
		return nil, fmt.Errorf("%s: cmd needs a command and a source file", dir)
	}
	return &s, nil
}

// ListScenarios returns all scenario directories under the given root,
// sorted by name.
func ListScenarios(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var dirs []string
	for _, e := range entries {
		if e.IsDir() {
			scenarioPath := filepath.Join(root, e.Name(), "scenario.json")
			if _, err := os.Stat(scenarioPath); err == nil {
				dirs = append(dirs, filepath.Join(root, e.Name()))
			}
		}
	}
	sort.Strings(dirs)
	return dirs, nil
}

// ReadSourceFile reads the expression file referenced by the scenario cmd.
func ReadSourceFile(scenarioDir string, cmd []string) (string, string, error) {
	filename := cmd[1]
	source, err := os.ReadFile(filepath.Join(scenarioDir, filename))
	if err != nil {
		return "", "", err
	}
	return string(source), filename, nil
}

// Environment decodes the scenario's env object into an evaluation
// environment. Numbers without a fraction or exponent become ints.
func (s *Scenario) Environment() (*evaluator.Env, error) {
	if len(s.Env) == 0 {
		return evaluator.NewEnv(nil), nil
	}
	dec := json.NewDecoder(bytes.NewReader(s.Env))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("env: %w", err)
	}
	vars := make(map[string]value.Value, len(raw))
	for name, v := range raw {
		conv, err := value.FromNative(v)
		if err != nil {
			return nil, fmt.Errorf("env %s: %w", name, err)
		}
		vars[name] = conv
	}
	return evaluator.NewEnv(vars), nil
}

// EvalBudget returns the scenario's limits, or none.
func (s *Scenario) EvalBudget() evaluator.Budget {
	if s.Budget == nil {
		return evaluator.Budget{}
	}
	return evaluator.Budget{MaxDepth: s.Budget.MaxDepth, MaxSteps: s.Budget.MaxSteps}
}
