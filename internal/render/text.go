// Package render draws evaluation traces for people: an indented text tree
// for terminals and a standalone HTML page.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/thomasrohde/celviz/pkg/evaluator"
)

// Outcome renders the result of a single trace node.
func Outcome(n *evaluator.TraceNode) string {
	if n.Err != nil {
		return fmt.Sprintf("error[%s]: %s", n.Err.Code, n.Err.Message)
	}
	return n.Value.String()
}

// Text writes the trace as an indented tree, one node per line:
//
//	&&  => false
//	  >  => false
//	    x  => 1
func Text(w io.Writer, root *evaluator.TraceNode) error {
	var b strings.Builder
	root.Walk(func(n *evaluator.TraceNode, depth int) {
		b.WriteString(strings.Repeat("  ", depth))
		b.WriteString(n.Label)
		b.WriteString("  => ")
		b.WriteString(Outcome(n))
		b.WriteByte('\n')
	})
	_, err := io.WriteString(w, b.String())
	return err
}
