// Package help holds the reference text shown by `celviz help`.
package help

import (
	"fmt"
	"sort"
	"strings"

	"github.com/thomasrohde/celviz/pkg/stdlib"
)

// QUICKREF is printed by `celviz help` without a topic.
const QUICKREF = `celviz v0.3 - CEL expressions, evaluated and explained

COMMANDS
  tokens <file>    token stream as JSON
  ast <file>       syntax tree as JSON
  eval <file>      evaluate, print the result as JSON
  trace <file>     evaluate, print every step (--text, --html)
  check <file>     static checks (--declare a,b)
  fmt <file>       canonical formatting (--write)
  compare <file>   evaluate with celviz and cel-go side by side
  watch <file>     re-trace on every save
  repl             interactive session

  Use -e 'expr' instead of <file> for inline expressions, and
  --env vars.yaml or --var name=expr to bind variables.

TOPICS
  celviz help syntax       literals, operators, let
  celviz help types        values and equality
  celviz help operators    precedence and overloads
  celviz help methods      built-in methods (--index for the list)
  celviz help budget       evaluation limits
  celviz help diagnostics  error codes and exit codes
  celviz help examples     worked examples
`

// Topics maps topic names to their text.
var Topics = map[string]string{
	"syntax": `SYNTAX

  null  true  false
  42  -7  1_000            int (64-bit)
  3.14  1.0e-3             float
  "text"  'text'          strings, with \n \t \x41 \101 \u00e9 escapes
  b"\xff\x00"              bytes
  [1, 2, 3]                list
  {"k": 1, 2: "v"}         map, keys in insertion order

  a.b                      field of a map
  s.size()                 method call
  c ? x : y                conditional
  let x = 1; x + 1         local binding, scoped to the body
`,
	"types": `TYPES

  null, bool, int, float, string, bytes, list, map

  Values of different types are never equal: 1 == 1.0 is false and
  1 == "1" is false. int and float never mix in arithmetic; write 2.0
  instead of 2 when a float is meant.

  Maps compare equal when they hold the same keys and values,
  regardless of order.
`,
	"operators": `OPERATORS (loosest first)

  let ... ;              binding
  ? :                    conditional
  ||                     or
  &&                     and
  == != < <= > >=        relations
  + -                    additive
  * / %                  multiplicative
  ! -                    unary
  . () [] literals       member access and primary

  || and && skip the right side once the left decides the result, and
  an error on one side is absorbed when the other side decides it.

  +   int, float, string concatenation, list concatenation
  -   int, float
  * / int, float
  %   int only
  Integer overflow and division by zero are errors.
`,
	"budget": `BUDGET

  Evaluation is bounded by a nesting depth and a step count.

  CELVIZ_MAX_DEPTH   (default 256)     deepest nesting of sub-expressions
  CELVIZ_MAX_STEPS   (default 100000)  total sub-expressions evaluated

  Exceeding either stops evaluation with E_BUDGET. Set a limit to 0 to
  disable it.
`,
	"diagnostics": `DIAGNOSTICS

  E_LEX             unrecognized character or malformed literal
  E_PARSE           syntax error
  E_UNDEFINED       unknown variable
  E_TYPE            operator or condition applied to the wrong types
  E_DIV_ZERO        division or modulus by zero
  E_UNKNOWN_METHOD  no such method for the receiver
  E_ARITY           wrong number of method arguments
  E_NO_FIELD        map has no such key
  E_OVERFLOW        integer overflow
  E_BUDGET          depth or step limit reached
  E_ENV             bad --env file or --var binding
  E_IO              file could not be read

  Exit codes: 0 ok, 1 usage or I/O, 2 syntax or check failure,
  4 evaluation error, 5 compare disagreement.
  Add --pretty for human-readable diagnostics with a source excerpt.
`,
	"examples": `EXAMPLES

  celviz eval -e '1 + 2 * 3'
  7

  celviz eval -e 'user.roles.contains("admin")' --env user.yaml
  true

  celviz trace --text -e 'x > 2 && y' --var x=1 --var y=true
  &&  => false
    >  => false
      x  => 1
      2  => 2

  celviz eval --pretty -e 'let r = 2.0; r * r * 3.14'
  12.56
`,
}

// TopicList is the ordered list of topic names.
var TopicList = []string{"syntax", "types", "operators", "methods", "budget", "diagnostics", "examples"}

func init() {
	Topics["methods"] = methodsTopic()
}

func methodsTopic() string {
	return `METHODS

  Methods are called on a receiver: "abc".size(), [1, 2].contains(2).
  The set is fixed; run 'celviz help methods --index' for the list.

  size() and len() count code points of a string, bytes of a bytes
  value, list elements and map entries. contains() tests substrings,
  list membership and map keys. keys() and values() keep map insertion
  order.
`
}

// MatchTopic resolves an exact topic name or a unique prefix of one.
func MatchTopic(query string) (string, string, error) {
	if content, ok := Topics[query]; ok {
		return query, content, nil
	}
	var matches []string
	for _, name := range TopicList {
		if strings.HasPrefix(name, query) {
			matches = append(matches, name)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], Topics[matches[0]], nil
	case 0:
		return "", "", fmt.Errorf("unknown help topic: %s", query)
	}
	return "", "", fmt.Errorf("ambiguous help topic %s: %s", query, strings.Join(matches, ", "))
}

// MethodIndex lists every built-in method with its receivers.
func MethodIndex() string {
	type entry struct {
		arity     int
		receivers []string
	}
	byName := map[string]*entry{}
	var names []string
	total := 0
	for _, m := range stdlib.Defaults().All() {
		total++
		e, ok := byName[m.Name]
		if !ok {
			e = &entry{arity: m.Arity}
			byName[m.Name] = e
			names = append(names, m.Name)
		}
		e.receivers = append(e.receivers, m.Receiver.String())
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		e := byName[name]
		args := strings.TrimSuffix(strings.Repeat("_, ", e.arity), ", ")
		fmt.Fprintf(&b, "  %-12s %s\n", name+"("+args+")", strings.Join(e.receivers, ", "))
	}
	fmt.Fprintf(&b, "\nTotal: %d methods over %d receivers\n", len(names), total)
	return b.String()
}
