// Package parser implements the CEL expression parser.
package parser

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/thomasrohde/celviz/pkg/ast"
	"github.com/thomasrohde/celviz/pkg/diagnostics"
	"github.com/thomasrohde/celviz/pkg/lexer"
	"github.com/thomasrohde/celviz/pkg/value"
)

// MaxNesting bounds how deeply expressions may nest.
const MaxNesting = 500

// ParseError reports the first syntactic violation in the input. Lex errors
// are wrapped so that every parse failure has this one type.
type ParseError struct {
	Diag     diagnostics.Diagnostic
	Expected []string
	Err      error
}

func (e *ParseError) Error() string {
	return e.Diag.Message
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

type parser struct {
	tokens []lexer.Token
	pos    int
	last   lexer.Token
	depth  int
	err    *ParseError
}

// Parse tokenizes source and parses it into an expression tree. It never
// returns a partial tree.
func Parse(source, filename string) (ast.Expr, error) {
	tokens, err := lexer.Tokenize(source, filename)
	if err != nil {
		var le *lexer.LexError
		if errors.As(err, &le) {
			return nil, &ParseError{Diag: le.Diag, Err: err}
		}
		return nil, &ParseError{Diag: diagnostics.MakeDiag(diagnostics.ELex, err.Error(), nil, ""), Err: err}
	}
	return ParseTokens(tokens)
}

// ParseTokens parses an already tokenized source. The slice must end with
// TokEOF, as returned by lexer.Tokenize.
func ParseTokens(tokens []lexer.Token) (ast.Expr, error) {
	if len(tokens) == 0 || tokens[len(tokens)-1].Type != lexer.TokEOF {
		return nil, &ParseError{Diag: diagnostics.MakeDiag(diagnostics.EParse, "token stream must end with EOF", nil, "")}
	}
	p := &parser{tokens: tokens}
	expr := p.parseExpr()
	if p.err == nil && p.peek() != lexer.TokEOF {
		p.fail("end of input")
	}
	if p.err != nil {
		return nil, p.err
	}
	return expr, nil
}

func (p *parser) current() lexer.Token {
	if p.pos >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1] // EOF
	}
	return p.tokens[p.pos]
}

func (p *parser) peek() lexer.TokenType {
	return p.current().Type
}

func (p *parser) peekAt(offset int) lexer.TokenType {
	idx := p.pos + offset
	if idx >= len(p.tokens) {
		return lexer.TokEOF
	}
	return p.tokens[idx].Type
}

func (p *parser) advance() lexer.Token {
	tok := p.current()
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	p.last = tok
	return tok
}

func (p *parser) expect(typ lexer.TokenType) (lexer.Token, bool) {
	tok := p.current()
	if tok.Type != typ {
		p.fail(tokenName(typ))
		return tok, false
	}
	return p.advance(), true
}

// fail records a parse error at the current token. Only the first error is
// kept.
func (p *parser) fail(expected ...string) {
	tok := p.current()
	msg := fmt.Sprintf("expected %s, got %s", strings.Join(expected, " or "), describe(tok))
	p.failAt(tok.Span, msg, expected...)
}

func (p *parser) failAt(span ast.Span, msg string, expected ...string) {
	if p.err != nil {
		return
	}
	p.err = &ParseError{
		Diag:     diagnostics.MakeDiag(diagnostics.EParse, msg, &span, ""),
		Expected: expected,
	}
}

// spanFrom covers start through the last consumed token.
func (p *parser) spanFrom(start ast.Span) ast.Span {
	return ast.Span{
		File:      start.File,
		Offset:    start.Offset,
		StartLine: start.StartLine,
		StartCol:  start.StartCol,
		EndLine:   p.last.Span.EndLine,
		EndCol:    p.last.Span.EndCol,
	}
}

func describe(tok lexer.Token) string {
	if tok.Type == lexer.TokEOF {
		return "end of input"
	}
	return fmt.Sprintf("'%s'", tok.Value)
}

func tokenName(t lexer.TokenType) string {
	switch t {
	case lexer.TokIdent:
		return "identifier"
	case lexer.TokEOF:
		return "end of input"
	default:
		return fmt.Sprintf("'%s'", t)
	}
}

func (p *parser) enter() bool {
	p.depth++
	if p.depth > MaxNesting {
		p.failAt(p.current().Span, "expression nested too deeply")
		return false
	}
	return true
}

func (p *parser) leave() {
	p.depth--
}

// --- Let bindings ---

func (p *parser) parseExpr() ast.Expr {
	if !p.enter() {
		return nil
	}
	defer p.leave()

	if p.peek() != lexer.TokLet {
		return p.parseTernary()
	}
	start := p.advance() // consume 'let'
	name, ok := p.expect(lexer.TokIdent)
	if !ok {
		return nil
	}
	if _, ok := p.expect(lexer.TokEquals); !ok {
		return nil
	}
	bound := p.parseTernary()
	if bound == nil {
		return nil
	}
	if _, ok := p.expect(lexer.TokSemicolon); !ok {
		return nil
	}
	body := p.parseExpr()
	if body == nil {
		return nil
	}
	return &ast.Let{
		Span:  p.spanFrom(start.Span),
		Name:  name.Value,
		Bound: bound,
		Body:  body,
	}
}

// --- Ternary ---

func (p *parser) parseTernary() ast.Expr {
	if !p.enter() {
		return nil
	}
	defer p.leave()

	start := p.current().Span
	cond := p.parseOr()
	if cond == nil || p.peek() != lexer.TokQuestion {
		return cond
	}
	p.advance() // consume '?'
	then := p.parseOr()
	if then == nil {
		return nil
	}
	if _, ok := p.expect(lexer.TokColon); !ok {
		return nil
	}
	els := p.parseTernary()
	if els == nil {
		return nil
	}
	return &ast.Ternary{Span: p.spanFrom(start), Cond: cond, Then: then, Else: els}
}

// --- Logical operators ---

func (p *parser) parseOr() ast.Expr {
	start := p.current().Span
	first := p.parseAnd()
	if first == nil || p.peek() != lexer.TokOrOr {
		return first
	}
	operands := []ast.Expr{first}
	for p.peek() == lexer.TokOrOr {
		p.advance()
		next := p.parseAnd()
		if next == nil {
			return nil
		}
		operands = append(operands, next)
	}
	return &ast.Or{Span: p.spanFrom(start), Operands: operands}
}

func (p *parser) parseAnd() ast.Expr {
	start := p.current().Span
	first := p.parseRelation()
	if first == nil || p.peek() != lexer.TokAndAnd {
		return first
	}
	operands := []ast.Expr{first}
	for p.peek() == lexer.TokAndAnd {
		p.advance()
		next := p.parseRelation()
		if next == nil {
			return nil
		}
		operands = append(operands, next)
	}
	return &ast.And{Span: p.spanFrom(start), Operands: operands}
}

// --- Relations ---

var relOps = map[lexer.TokenType]ast.RelOp{
	lexer.TokEqEq:   ast.OpEq,
	lexer.TokBangEq: ast.OpNeq,
	lexer.TokLt:     ast.OpLt,
	lexer.TokLtEq:   ast.OpLtEq,
	lexer.TokGt:     ast.OpGt,
	lexer.TokGtEq:   ast.OpGtEq,
}

func (p *parser) parseRelation() ast.Expr {
	start := p.current().Span
	left := p.parseAdditive()
	if left == nil {
		return nil
	}
	op, ok := relOps[p.peek()]
	if !ok {
		return left
	}
	p.advance()
	right := p.parseAdditive()
	if right == nil {
		return nil
	}
	if _, chained := relOps[p.peek()]; chained {
		p.failAt(p.current().Span,
			fmt.Sprintf("relational operators do not chain; got %s after a comparison", describe(p.current())),
			"'&&'", "'||'", "'?'", "end of input")
		return nil
	}
	return &ast.Relation{Span: p.spanFrom(start), Op: op, Left: left, Right: right}
}

// --- Arithmetic ---

var additiveOps = map[lexer.TokenType]ast.ArithOp{
	lexer.TokPlus:  ast.OpAdd,
	lexer.TokMinus: ast.OpSub,
}

var multiplicativeOps = map[lexer.TokenType]ast.ArithOp{
	lexer.TokStar:    ast.OpMul,
	lexer.TokSlash:   ast.OpDiv,
	lexer.TokPercent: ast.OpMod,
}

func (p *parser) parseAdditive() ast.Expr {
	return p.parseChain(additiveOps, p.parseMultiplicative)
}

func (p *parser) parseMultiplicative() ast.Expr {
	return p.parseChain(multiplicativeOps, p.parseUnary)
}

// parseChain collects a left-associative run of operators from one tier into
// a single Arithmetic node.
func (p *parser) parseChain(ops map[lexer.TokenType]ast.ArithOp, operand func() ast.Expr) ast.Expr {
	start := p.current().Span
	first := operand()
	if first == nil {
		return nil
	}
	if _, ok := ops[p.peek()]; !ok {
		return first
	}
	node := &ast.Arithmetic{Operands: []ast.Expr{first}}
	for {
		op, ok := ops[p.peek()]
		if !ok {
			break
		}
		p.advance()
		next := operand()
		if next == nil {
			return nil
		}
		node.Ops = append(node.Ops, op)
		node.Operands = append(node.Operands, next)
	}
	node.Span = p.spanFrom(start)
	return node
}

// --- Unary ---

func (p *parser) parseUnary() ast.Expr {
	if !p.enter() {
		return nil
	}
	defer p.leave()

	var op ast.UnaryOp
	switch p.peek() {
	case lexer.TokMinus:
		op = ast.OpNeg
	case lexer.TokBang:
		op = ast.OpNot
	default:
		return p.parseMember()
	}
	start := p.advance()

	// The magnitude of math.MinInt64 is not itself an int64.
	if op == ast.OpNeg && p.peek() == lexer.TokIntLit && p.peekAt(1) != lexer.TokDot &&
		strings.ReplaceAll(p.current().Value, "_", "") == "9223372036854775808" {
		p.advance()
		return &ast.Literal{Span: p.spanFrom(start.Span), Value: value.NewInt(math.MinInt64)}
	}

	operand := p.parseUnary()
	if operand == nil {
		return nil
	}
	return &ast.Unary{Span: p.spanFrom(start.Span), Op: op, Operand: operand}
}

// --- Member chains ---

func (p *parser) parseMember() ast.Expr {
	start := p.current().Span
	base := p.parsePrimary()
	if base == nil || p.peek() != lexer.TokDot {
		return base
	}
	var accessors []ast.Accessor
	for p.peek() == lexer.TokDot {
		p.advance() // consume '.'
		name, ok := p.expect(lexer.TokIdent)
		if !ok {
			return nil
		}
		if p.peek() != lexer.TokLParen {
			accessors = append(accessors, &ast.FieldAccess{Span: name.Span, Name: name.Value})
			continue
		}
		p.advance() // consume '('
		args, ok := p.parseList(lexer.TokRParen, false)
		if !ok {
			return nil
		}
		accessors = append(accessors, &ast.MethodCall{
			Span: p.spanFrom(name.Span),
			Name: name.Value,
			Args: args,
		})
	}
	return &ast.MemberChain{Span: p.spanFrom(start), Base: base, Accessors: accessors}
}

// parseList parses comma-separated expressions up to and including the
// closing token. The opening token has been consumed.
func (p *parser) parseList(closing lexer.TokenType, trailingComma bool) ([]ast.Expr, bool) {
	var items []ast.Expr
	for p.peek() != closing {
		item := p.parseTernary()
		if item == nil {
			return nil, false
		}
		items = append(items, item)
		if p.peek() != lexer.TokComma {
			break
		}
		p.advance() // consume ','
		if !trailingComma && p.peek() == closing {
			p.fail("expression")
			return nil, false
		}
	}
	if _, ok := p.expect(closing); !ok {
		return nil, false
	}
	return items, true
}

// --- Primaries ---

func (p *parser) parsePrimary() ast.Expr {
	tok := p.current()
	switch tok.Type {
	case lexer.TokIntLit:
		p.advance()
		n, err := decodeInt(tok.Value)
		if err != nil {
			p.failAt(tok.Span, fmt.Sprintf("integer literal out of range: %s", tok.Value))
			return nil
		}
		return &ast.Literal{Span: tok.Span, Value: value.NewInt(n)}

	case lexer.TokFloatLit:
		p.advance()
		f, err := decodeFloat(tok.Value)
		if err != nil {
			p.failAt(tok.Span, fmt.Sprintf("float literal out of range: %s", tok.Value))
			return nil
		}
		return &ast.Literal{Span: tok.Span, Value: value.NewFloat(f)}

	case lexer.TokStringLit, lexer.TokBytesLit:
		p.advance()
		return &ast.Literal{Span: tok.Span, Value: decodeQuoted(tok.Value)}

	case lexer.TokTrue, lexer.TokFalse:
		p.advance()
		return &ast.Literal{Span: tok.Span, Value: value.NewBool(tok.Type == lexer.TokTrue)}

	case lexer.TokNull:
		p.advance()
		return &ast.Literal{Span: tok.Span, Value: value.NewNull()}

	case lexer.TokIdent:
		p.advance()
		return &ast.Ident{Span: tok.Span, Name: tok.Value}

	case lexer.TokLParen:
		p.advance()
		inner := p.parseExpr()
		if inner == nil {
			return nil
		}
		if _, ok := p.expect(lexer.TokRParen); !ok {
			return nil
		}
		return inner

	case lexer.TokLBracket:
		p.advance()
		elems, ok := p.parseList(lexer.TokRBracket, true)
		if !ok {
			return nil
		}
		return &ast.ListLiteral{Span: p.spanFrom(tok.Span), Elements: elems}

	case lexer.TokLBrace:
		return p.parseMap()
	}

	if tok.Type == lexer.TokLet {
		p.failAt(tok.Span, "'let' must be parenthesized here", "expression")
		return nil
	}
	p.fail("expression")
	return nil
}

func (p *parser) parseMap() ast.Expr {
	start := p.advance() // consume '{'
	var entries []ast.MapEntry
	for p.peek() != lexer.TokRBrace {
		key := p.parseTernary()
		if key == nil {
			return nil
		}
		if _, ok := p.expect(lexer.TokColon); !ok {
			return nil
		}
		val := p.parseTernary()
		if val == nil {
			return nil
		}
		entries = append(entries, ast.MapEntry{Key: key, Value: val})
		if p.peek() != lexer.TokComma {
			break
		}
		p.advance() // consume ','
	}
	if _, ok := p.expect(lexer.TokRBrace); !ok {
		return nil
	}
	return &ast.MapLiteral{Span: p.spanFrom(start.Span), Entries: entries}
}
