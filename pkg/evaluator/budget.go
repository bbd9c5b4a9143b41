package evaluator

import (
	"fmt"

	"github.com/thomasrohde/celviz/pkg/ast"
)

// Budget holds the resource limits for one evaluation. Zero means unlimited.
type Budget struct {
	MaxDepth int   `json:"maxDepth,omitempty"`
	MaxSteps int64 `json:"maxSteps,omitempty"`
}

// budgetTracker tracks resource consumption during evaluation.
type budgetTracker struct {
	limits Budget
	depth  int
	steps  int64
}

// enter records a visit to one node and checks both limits.
func (t *budgetTracker) enter(expr ast.Expr) error {
	t.depth++
	t.steps++
	if t.limits.MaxDepth > 0 && t.depth > t.limits.MaxDepth {
		return newBudgetError(expr, fmt.Sprintf("evaluation depth limit exceeded (max %d)", t.limits.MaxDepth))
	}
	if t.limits.MaxSteps > 0 && t.steps > t.limits.MaxSteps {
		return newBudgetError(expr, fmt.Sprintf("evaluation step limit exceeded (max %d)", t.limits.MaxSteps))
	}
	return nil
}

func (t *budgetTracker) leave() {
	t.depth--
}
