// Package lexer implements the CEL tokenizer.
package lexer

import (
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/thomasrohde/celviz/pkg/ast"
	"github.com/thomasrohde/celviz/pkg/diagnostics"
)

// TokenType identifies the type of a lexer token.
type TokenType int

const (
	// Keywords
	TokLet TokenType = iota
	TokTrue
	TokFalse
	TokNull

	// Literals
	TokIntLit
	TokFloatLit
	TokStringLit
	TokBytesLit

	// Identifiers
	TokIdent

	// Punctuation
	TokLParen    // (
	TokRParen    // )
	TokLBracket  // [
	TokRBracket  // ]
	TokLBrace    // {
	TokRBrace    // }
	TokComma     // ,
	TokColon     // :
	TokSemicolon // ;
	TokDot       // .
	TokQuestion  // ?
	TokEquals    // =

	// Comparison operators
	TokEqEq   // ==
	TokBangEq // !=
	TokLt     // <
	TokLtEq   // <=
	TokGt     // >
	TokGtEq   // >=

	// Arithmetic operators
	TokPlus    // +
	TokMinus   // -
	TokStar    // *
	TokSlash   // /
	TokPercent // %

	// Logical operators
	TokBang   // !
	TokAndAnd // &&
	TokOrOr   // ||

	// Special
	TokEOF
)

var tokenNames = map[TokenType]string{
	TokLet:       "let",
	TokTrue:      "true",
	TokFalse:     "false",
	TokNull:      "null",
	TokIntLit:    "int",
	TokFloatLit:  "float",
	TokStringLit: "string",
	TokBytesLit:  "bytes",
	TokIdent:     "ident",
	TokLParen:    "(",
	TokRParen:    ")",
	TokLBracket:  "[",
	TokRBracket:  "]",
	TokLBrace:    "{",
	TokRBrace:    "}",
	TokComma:     ",",
	TokColon:     ":",
	TokSemicolon: ";",
	TokDot:       ".",
	TokQuestion:  "?",
	TokEquals:    "=",
	TokEqEq:      "==",
	TokBangEq:    "!=",
	TokLt:        "<",
	TokLtEq:      "<=",
	TokGt:        ">",
	TokGtEq:      ">=",
	TokPlus:      "+",
	TokMinus:     "-",
	TokStar:      "*",
	TokSlash:     "/",
	TokPercent:   "%",
	TokBang:      "!",
	TokAndAnd:    "&&",
	TokOrOr:      "||",
	TokEOF:       "eof",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("token(%d)", int(t))
}

// Token represents a single lexer token. Value is the exact source text of
// the token; quoted literals keep their prefix, quotes and escapes.
type Token struct {
	Type  TokenType
	Value string
	Span  ast.Span
}

// MarshalJSON renders the token for diagnostic display.
func (t Token) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type string   `json:"type"`
		Text string   `json:"text"`
		Span ast.Span `json:"span"`
	}{t.Type.String(), t.Value, t.Span})
}

var keywords = map[string]TokenType{
	"let":   TokLet,
	"true":  TokTrue,
	"false": TokFalse,
	"null":  TokNull,
}

// IsKeyword reports whether name is reserved and cannot be an identifier.
func IsKeyword(name string) bool {
	_, ok := keywords[name]
	return ok
}

type scanner struct {
	source   string
	filename string
	pos      int
	line     int
	col      int
}

func newScanner(source, filename string) *scanner {
	return &scanner{
		source:   source,
		filename: filename,
		pos:      0,
		line:     1,
		col:      1,
	}
}

func (s *scanner) atEnd() bool {
	return s.pos >= len(s.source)
}

func (s *scanner) peek() byte {
	if s.atEnd() {
		return 0
	}
	return s.source[s.pos]
}

func (s *scanner) peekAt(offset int) byte {
	p := s.pos + offset
	if p >= len(s.source) {
		return 0
	}
	return s.source[p]
}

func (s *scanner) advance() byte {
	ch := s.source[s.pos]
	s.pos++
	if ch == '\n' {
		s.line++
		s.col = 1
	} else if utf8.RuneStart(ch) {
		// continuation bytes do not advance the column
		s.col++
	}
	return ch
}

type mark struct {
	pos, line, col int
}

func (s *scanner) mark() mark {
	return mark{s.pos, s.line, s.col}
}

func (s *scanner) span(m mark) ast.Span {
	return ast.Span{
		File:      s.filename,
		Offset:    m.pos,
		StartLine: m.line,
		StartCol:  m.col,
		EndLine:   s.line,
		EndCol:    s.col,
	}
}

func (s *scanner) token(typ TokenType, m mark) Token {
	return Token{Type: typ, Value: s.source[m.pos:s.pos], Span: s.span(m)}
}

func (s *scanner) skipWhitespace() {
	for !s.atEnd() {
		switch s.peek() {
		case ' ', '\t', '\r', '\n':
			s.advance()
		default:
			return
		}
	}
}

func isLetter(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isAlphaNumeric(ch byte) bool {
	return isLetter(ch) || isDigit(ch)
}

func isOctal(ch byte) bool {
	return ch >= '0' && ch <= '7'
}

func isHex(ch byte) bool {
	return isDigit(ch) || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}

// scanQuoted scans a string or bytes literal, validating every escape. The
// opening prefix and quote have not been consumed yet.
func (s *scanner) scanQuoted(typ TokenType) (Token, error) {
	m := s.mark()
	if typ == TokBytesLit {
		s.advance() // consume b
	}
	quote := s.advance()

	for !s.atEnd() {
		ch := s.peek()
		switch {
		case ch == quote:
			s.advance()
			return s.token(typ, m), nil
		case ch == '\n':
			return Token{}, s.lexError(m, "unterminated string literal")
		case ch == '\\':
			esc := s.mark()
			s.advance()
			if err := s.scanEscape(esc); err != nil {
				return Token{}, err
			}
		case ch >= utf8.RuneSelf:
			r, size := utf8.DecodeRuneInString(s.source[s.pos:])
			if r == utf8.RuneError && size == 1 {
				return Token{}, s.lexError(s.mark(), "invalid UTF-8 in string literal")
			}
			for i := 0; i < size; i++ {
				s.advance()
			}
		default:
			s.advance()
		}
	}
	return Token{}, s.lexError(m, "unterminated string literal")
}

// scanEscape validates one escape sequence after its backslash.
func (s *scanner) scanEscape(start mark) error {
	if s.atEnd() {
		return s.lexError(start, "unterminated escape sequence")
	}
	ch := s.advance()
	switch ch {
	case '"', '\'', '\\', 'n', 't', 'r':
		return nil
	case '0', '1', '2', '3':
		if !isOctal(s.peek()) || !isOctal(s.peekAt(1)) {
			return s.lexError(start, "octal escape needs three digits \\[0-3][0-7][0-7]")
		}
		s.advance()
		s.advance()
		return nil
	case 'x':
		return s.scanHexDigits(start, 2, "\\x")
	case 'u':
		hexStart := s.pos
		if err := s.scanHexDigits(start, 4, "\\u"); err != nil {
			return err
		}
		var cp rune
		for _, c := range s.source[hexStart:s.pos] {
			cp = cp<<4 | hexValue(byte(c))
		}
		if cp >= 0xD800 && cp <= 0xDFFF {
			return s.lexError(start, fmt.Sprintf("invalid unicode escape: surrogate \\u%04X", cp))
		}
		return nil
	}
	if ch >= utf8.RuneSelf {
		return s.lexError(start, "invalid escape sequence")
	}
	return s.lexError(start, fmt.Sprintf("invalid escape sequence: \\%c", ch))
}

func (s *scanner) scanHexDigits(start mark, n int, prefix string) error {
	for i := 0; i < n; i++ {
		if !isHex(s.peek()) {
			return s.lexError(start, fmt.Sprintf("%s escape needs %d hex digits", prefix, n))
		}
		s.advance()
	}
	return nil
}

func hexValue(c byte) rune {
	switch {
	case c >= '0' && c <= '9':
		return rune(c - '0')
	case c >= 'a' && c <= 'f':
		return rune(c-'a') + 10
	default:
		return rune(c-'A') + 10
	}
}

// scanDigits consumes a digit run where single underscores may separate
// digits.
func (s *scanner) scanDigits() error {
	for !s.atEnd() {
		ch := s.peek()
		if isDigit(ch) {
			s.advance()
			continue
		}
		if ch == '_' {
			if !isDigit(s.peekAt(1)) {
				return s.lexError(s.mark(), "'_' must separate digits")
			}
			s.advance()
			continue
		}
		break
	}
	return nil
}

func (s *scanner) scanNumber() (Token, error) {
	m := s.mark()
	if err := s.scanDigits(); err != nil {
		return Token{}, err
	}

	// A fraction needs digits on both sides of the point, so `3.size()` is
	// a method call on an int.
	if s.peek() != '.' || !isDigit(s.peekAt(1)) {
		return s.token(TokIntLit, m), nil
	}
	s.advance() // consume '.'
	for !s.atEnd() && isDigit(s.peek()) {
		s.advance()
	}

	if s.peek() == 'e' || s.peek() == 'E' {
		sign := 0
		if s.peekAt(1) == '+' || s.peekAt(1) == '-' {
			sign = 1
		}
		if isDigit(s.peekAt(1 + sign)) {
			s.advance() // consume e/E
			if sign == 1 {
				s.advance()
			}
			for !s.atEnd() && isDigit(s.peek()) {
				s.advance()
			}
		}
	}

	return s.token(TokFloatLit, m), nil
}

func (s *scanner) scanIdentOrKeyword() Token {
	m := s.mark()
	for !s.atEnd() && isAlphaNumeric(s.peek()) {
		s.advance()
	}
	text := s.source[m.pos:s.pos]
	if tokType, ok := keywords[text]; ok {
		return s.token(tokType, m)
	}
	return s.token(TokIdent, m)
}

func (s *scanner) lexError(m mark, msg string) error {
	diag := diagnostics.MakeDiag(
		diagnostics.ELex,
		msg,
		&ast.Span{File: s.filename, Offset: m.pos, StartLine: m.line, StartCol: m.col, EndLine: m.line, EndCol: m.col + 1},
		"",
	)
	return &LexError{Diag: diag}
}

// LexError wraps a diagnostic for lex errors.
type LexError struct {
	Diag diagnostics.Diagnostic
}

func (e *LexError) Error() string {
	return e.Diag.Message
}

// twoCharTokens maps a first byte to its doubled or '='-suffixed forms.
var twoCharTokens = map[byte]struct {
	second byte
	long   TokenType
	short  TokenType
	hasOne bool
}{
	'=': {'=', TokEqEq, TokEquals, true},
	'!': {'=', TokBangEq, TokBang, true},
	'<': {'=', TokLtEq, TokLt, true},
	'>': {'=', TokGtEq, TokGt, true},
	'&': {'&', TokAndAnd, 0, false},
	'|': {'|', TokOrOr, 0, false},
}

var singleCharTokens = map[byte]TokenType{
	'(': TokLParen,
	')': TokRParen,
	'[': TokLBracket,
	']': TokRBracket,
	'{': TokLBrace,
	'}': TokRBrace,
	',': TokComma,
	':': TokColon,
	';': TokSemicolon,
	'.': TokDot,
	'?': TokQuestion,
	'+': TokPlus,
	'-': TokMinus,
	'*': TokStar,
	'/': TokSlash,
	'%': TokPercent,
}

func (s *scanner) nextToken() (Token, error) {
	s.skipWhitespace()

	m := s.mark()
	if s.atEnd() {
		return Token{Type: TokEOF, Value: "", Span: s.span(m)}, nil
	}

	ch := s.peek()

	if typ, ok := singleCharTokens[ch]; ok {
		s.advance()
		return s.token(typ, m), nil
	}

	if tc, ok := twoCharTokens[ch]; ok {
		s.advance()
		if s.peek() == tc.second {
			s.advance()
			return s.token(tc.long, m), nil
		}
		if !tc.hasOne {
			return Token{}, s.lexError(m, fmt.Sprintf("unexpected character '%c'; did you mean '%c%c'?", ch, ch, ch))
		}
		return s.token(tc.short, m), nil
	}

	switch {
	case isDigit(ch):
		return s.scanNumber()
	case ch == '"' || ch == '\'':
		return s.scanQuoted(TokStringLit)
	case ch == 'b' && (s.peekAt(1) == '"' || s.peekAt(1) == '\''):
		return s.scanQuoted(TokBytesLit)
	case isLetter(ch):
		return s.scanIdentOrKeyword(), nil
	}

	if ch >= utf8.RuneSelf {
		r, _ := utf8.DecodeRuneInString(s.source[s.pos:])
		return Token{}, s.lexError(m, fmt.Sprintf("unexpected character %q", r))
	}
	return Token{}, s.lexError(m, fmt.Sprintf("unexpected character %q", ch))
}

// Tokenize breaks source text into a slice of tokens ending with TokEOF.
func Tokenize(source, filename string) ([]Token, error) {
	s := newScanner(source, filename)
	var tokens []Token

	for {
		tok, err := s.nextToken()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Type == TokEOF {
			break
		}
	}

	return tokens, nil
}
