package ast

import "github.com/thomasrohde/celviz/pkg/value"

// Encode converts an expression into a JSON-ready structure. Every object
// carries a "node" discriminator and its span.
func Encode(expr Expr) map[string]any {
	if expr == nil {
		return nil
	}
	out := map[string]any{
		"node": expr.Kind(),
		"span": expr.NodeSpan(),
	}
	switch n := expr.(type) {
	case *Literal:
		out["value"] = value.Encode(n.Value)
	case *Ident:
		out["name"] = n.Name
	case *Let:
		out["name"] = n.Name
		out["bound"] = Encode(n.Bound)
		out["body"] = Encode(n.Body)
	case *Ternary:
		out["cond"] = Encode(n.Cond)
		out["then"] = Encode(n.Then)
		out["else"] = Encode(n.Else)
	case *Or:
		out["operands"] = encodeList(n.Operands)
	case *And:
		out["operands"] = encodeList(n.Operands)
	case *Relation:
		out["op"] = string(n.Op)
		out["left"] = Encode(n.Left)
		out["right"] = Encode(n.Right)
	case *Arithmetic:
		ops := make([]string, len(n.Ops))
		for i, op := range n.Ops {
			ops[i] = string(op)
		}
		out["operands"] = encodeList(n.Operands)
		out["ops"] = ops
	case *Unary:
		out["op"] = string(n.Op)
		out["operand"] = Encode(n.Operand)
	case *MemberChain:
		accs := make([]map[string]any, len(n.Accessors))
		for i, acc := range n.Accessors {
			accs[i] = encodeAccessor(acc)
		}
		out["base"] = Encode(n.Base)
		out["accessors"] = accs
	case *ListLiteral:
		out["elements"] = encodeList(n.Elements)
	case *MapLiteral:
		entries := make([]map[string]any, len(n.Entries))
		for i, e := range n.Entries {
			entries[i] = map[string]any{"key": Encode(e.Key), "value": Encode(e.Value)}
		}
		out["entries"] = entries
	}
	return out
}

func encodeList(exprs []Expr) []map[string]any {
	out := make([]map[string]any, len(exprs))
	for i, e := range exprs {
		out[i] = Encode(e)
	}
	return out
}

func encodeAccessor(acc Accessor) map[string]any {
	out := map[string]any{
		"node": acc.Kind(),
		"span": acc.NodeSpan(),
	}
	switch a := acc.(type) {
	case *FieldAccess:
		out["name"] = a.Name
	case *MethodCall:
		out["name"] = a.Name
		out["args"] = encodeList(a.Args)
	}
	return out
}

// StripSpans returns a copy of an encoded tree without span fields, for
// comparing shapes of trees parsed from different source text.
func StripSpans(encoded any) any {
	switch v := encoded.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			if k == "span" {
				continue
			}
			out[k] = StripSpans(item)
		}
		return out
	case []map[string]any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = StripSpans(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = StripSpans(item)
		}
		return out
	}
	return encoded
}
