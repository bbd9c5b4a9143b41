package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/aymerick/raymond"

	"github.com/thomasrohde/celviz/pkg/evaluator"
)

// Page is the input of HTML.
type Page struct {
	Title  string
	RunID  string
	Source string
	Root   *evaluator.TraceNode
}

const pageSource = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{title}}</title>
<style>
body { font-family: ui-monospace, monospace; margin: 2em; }
pre.source { background: #f6f8fa; padding: 1em; }
.node { padding: 2px 0; white-space: pre; }
.node .label { font-weight: bold; }
.node .where { color: #888; }
.ok .outcome { color: #1a7f37; }
.err .outcome { color: #cf222e; }
.leaf .label { font-weight: normal; font-style: italic; }
</style>
</head>
<body>
<h1>{{title}}</h1>
{{#if runId}}<p>run <code>{{runId}}</code></p>{{/if}}
<pre class="source">{{source}}</pre>
<p class="{{#if ok}}ok{{else}}err{{/if}}">result: <span class="outcome">{{result}}</span> ({{nodeCount}} {{plural nodeCount "node" "nodes"}})</p>
<div class="trace">
{{#each rows}}<div class="node {{#if ok}}ok{{else}}err{{/if}}{{#if leaf}} leaf{{/if}}" style="margin-left: {{indent}}em"><span class="label">{{label}}</span> <span class="where">{{kind}} {{where}}</span> =&gt; <span class="outcome">{{outcome}}</span></div>
{{/each}}</div>
</body>
</html>
`

var pageTemplate = raymond.MustParse(pageSource)

func init() {
	pageTemplate.RegisterHelper("plural", func(n int, one, many string) string {
		if n == 1 {
			return one
		}
		return many
	})
}

// HTML writes a standalone page showing the source and its trace.
func HTML(w io.Writer, page Page) error {
	if page.Root == nil {
		return fmt.Errorf("render: no trace to render")
	}
	title := page.Title
	if title == "" {
		title = "celviz trace"
	}

	var rows []map[string]interface{}
	page.Root.Walk(func(n *evaluator.TraceNode, depth int) {
		rows = append(rows, map[string]interface{}{
			"label":   n.Label,
			"kind":    n.Node,
			"where":   fmt.Sprintf("%d:%d", n.Span.StartLine, n.Span.StartCol),
			"outcome": Outcome(n),
			"ok":      n.OK(),
			"leaf":    n.Leaf(),
			"indent":  depth * 2,
		})
	})

	out, err := pageTemplate.Exec(map[string]interface{}{
		"title":     title,
		"runId":     page.RunID,
		"source":    strings.TrimRight(page.Source, "\n"),
		"ok":        page.Root.OK(),
		"result":    Outcome(page.Root),
		"nodeCount": len(rows),
		"rows":      rows,
	})
	if err != nil {
		return fmt.Errorf("template execution failed: %w", err)
	}
	_, err = io.WriteString(w, out)
	return err
}
