package lexer

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/thomasrohde/celviz/pkg/diagnostics"
)

// helper to tokenize and fail on error
func mustTokenize(t *testing.T, source string) []Token {
	t.Helper()
	tokens, err := Tokenize(source, "test.cel")
	if err != nil {
		t.Fatalf("unexpected lex error: %v", err)
	}
	return tokens
}

// helper that strips the trailing EOF for easier assertions
func mustTokenizeNoEOF(t *testing.T, source string) []Token {
	t.Helper()
	tokens := mustTokenize(t, source)
	if len(tokens) == 0 {
		t.Fatal("expected at least one token (EOF)")
	}
	if tokens[len(tokens)-1].Type != TokEOF {
		t.Fatal("last token is not EOF")
	}
	return tokens[:len(tokens)-1]
}

func expectLexError(t *testing.T, source, fragment string) *LexError {
	t.Helper()
	_, err := Tokenize(source, "test.cel")
	if err == nil {
		t.Fatalf("expected lex error for %q", source)
	}
	le, ok := err.(*LexError)
	if !ok {
		t.Fatalf("expected *LexError, got %T", err)
	}
	if le.Diag.Code != diagnostics.ELex {
		t.Errorf("got code %s, want %s", le.Diag.Code, diagnostics.ELex)
	}
	if fragment != "" && !strings.Contains(le.Error(), fragment) {
		t.Errorf("error %q does not mention %q", le.Error(), fragment)
	}
	return le
}

func types(tokens []Token) []TokenType {
	out := make([]TokenType, len(tokens))
	for i, tok := range tokens {
		out[i] = tok.Type
	}
	return out
}

func TestEmptyInput(t *testing.T) {
	tokens := mustTokenize(t, "")
	if len(tokens) != 1 {
		t.Fatalf("expected 1 token (EOF), got %d", len(tokens))
	}
	if tokens[0].Type != TokEOF {
		t.Errorf("expected TokEOF, got %v", tokens[0].Type)
	}
}

func TestKeywords(t *testing.T) {
	tests := []struct {
		keyword  string
		expected TokenType
	}{
		{"let", TokLet},
		{"true", TokTrue},
		{"false", TokFalse},
		{"null", TokNull},
	}

	for _, tt := range tests {
		t.Run(tt.keyword, func(t *testing.T) {
			tokens := mustTokenizeNoEOF(t, tt.keyword)
			if len(tokens) != 1 {
				t.Fatalf("expected 1 token, got %d", len(tokens))
			}
			if tokens[0].Type != tt.expected {
				t.Errorf("got %v, want %v", tokens[0].Type, tt.expected)
			}
		})
	}
}

func TestIdentifiers(t *testing.T) {
	for _, src := range []string{"x", "abc", "a1", "letx", "nullable", "B2b", "b"} {
		tokens := mustTokenizeNoEOF(t, src)
		if len(tokens) != 1 || tokens[0].Type != TokIdent || tokens[0].Value != src {
			t.Errorf("%q: got %v", src, tokens)
		}
	}
}

func TestUnderscoreIsNotIdentifier(t *testing.T) {
	expectLexError(t, "_x", "unexpected character")
	// a_b lexes a, then fails at the underscore
	expectLexError(t, "a_b", "unexpected character")
}

func TestOperators(t *testing.T) {
	src := "== != < <= > >= + - * / % ! && || = ? : ; , . ( ) [ ] { }"
	want := []TokenType{
		TokEqEq, TokBangEq, TokLt, TokLtEq, TokGt, TokGtEq,
		TokPlus, TokMinus, TokStar, TokSlash, TokPercent,
		TokBang, TokAndAnd, TokOrOr, TokEquals, TokQuestion, TokColon,
		TokSemicolon, TokComma, TokDot,
		TokLParen, TokRParen, TokLBracket, TokRBracket, TokLBrace, TokRBrace,
	}
	got := types(mustTokenizeNoEOF(t, src))
	if len(got) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestLoneAmpersandAndPipe(t *testing.T) {
	expectLexError(t, "a & b", "did you mean '&&'")
	expectLexError(t, "a | b", "did you mean '||'")
}

func TestNumbers(t *testing.T) {
	tests := []struct {
		src  string
		want []TokenType
	}{
		{"42", []TokenType{TokIntLit}},
		{"1_000_000", []TokenType{TokIntLit}},
		{"3.14", []TokenType{TokFloatLit}},
		{"1.5e10", []TokenType{TokFloatLit}},
		{"1.5E-3", []TokenType{TokFloatLit}},
		{"2.0e+2", []TokenType{TokFloatLit}},
		// no leading-dot or trailing-dot floats
		{".5", []TokenType{TokDot, TokIntLit}},
		{"3.", []TokenType{TokIntLit, TokDot}},
		{"42.pow", []TokenType{TokIntLit, TokDot, TokIdent}},
		{"3.14.pow", []TokenType{TokFloatLit, TokDot, TokIdent}},
		// exponent without fraction is not part of the number
		{"1e5", []TokenType{TokIntLit, TokIdent}},
		{"1.5e", []TokenType{TokFloatLit, TokIdent}},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			got := types(mustTokenizeNoEOF(t, tt.src))
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("token %d: got %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestBadDigitSeparators(t *testing.T) {
	for _, src := range []string{"1_", "1__0", "1_.5"} {
		expectLexError(t, src, "'_' must separate digits")
	}
}

func TestStringLiterals(t *testing.T) {
	tests := []struct {
		src  string
		typ  TokenType
		text string
	}{
		{`"hello"`, TokStringLit, `"hello"`},
		{`'hello'`, TokStringLit, `'hello'`},
		{`"it's"`, TokStringLit, `"it's"`},
		{`'say "hi"'`, TokStringLit, `'say "hi"'`},
		{`"a\"b"`, TokStringLit, `"a\"b"`},
		{`b"abc"`, TokBytesLit, `b"abc"`},
		{`b'\xFF'`, TokBytesLit, `b'\xFF'`},
		{`"¢"`, TokStringLit, `"¢"`},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			tokens := mustTokenizeNoEOF(t, tt.src)
			if len(tokens) != 1 {
				t.Fatalf("expected 1 token, got %d", len(tokens))
			}
			if tokens[0].Type != tt.typ || tokens[0].Value != tt.text {
				t.Errorf("got %v %q, want %v %q", tokens[0].Type, tokens[0].Value, tt.typ, tt.text)
			}
		})
	}
}

func TestValidEscapes(t *testing.T) {
	for _, src := range []string{
		`"\n\t\r\\\"\'"`,
		`"\000\377\101"`,
		`"\x41\xff"`,
		`"¢￿"`,
		`b"\000\x00A"`,
	} {
		mustTokenize(t, src)
	}
}

func TestInvalidEscapes(t *testing.T) {
	tests := []struct {
		src      string
		fragment string
	}{
		{`"\0"`, "octal"},
		{`"\7"`, "invalid escape"},
		{`"\07"`, "octal"},
		{`"\77"`, "invalid escape"},
		{`"\8"`, "invalid escape"},
		{`"\378"`, "octal"},
		{`"\400"`, "invalid escape"},
		{`"\x4"`, "hex digits"},
		{`"\xZZ"`, "hex digits"},
		{`"\u12"`, "hex digits"},
		{`"\uD800"`, "surrogate"},
		{`"\a"`, "invalid escape"},
		{`"\`, "unterminated"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			expectLexError(t, tt.src, tt.fragment)
		})
	}
}

func TestUnterminatedStrings(t *testing.T) {
	for _, src := range []string{`"abc`, `'abc`, `b"abc`, "\"line\nbreak\"", `"mixed'`} {
		expectLexError(t, src, "unterminated")
	}
}

func TestUnexpectedCharacter(t *testing.T) {
	le := expectLexError(t, "1 + @", "unexpected character")
	if le.Diag.Span == nil || le.Diag.Span.StartCol != 5 {
		t.Errorf("expected error at column 5, got %+v", le.Diag.Span)
	}
	expectLexError(t, "x # comment", "unexpected character")
	expectLexError(t, "λ", "unexpected character")
}

func TestSpans(t *testing.T) {
	tokens := mustTokenizeNoEOF(t, "a +\n  bb")
	if len(tokens) != 3 {
		t.Fatalf("expected 3 tokens, got %d", len(tokens))
	}
	bb := tokens[2]
	if bb.Span.StartLine != 2 || bb.Span.StartCol != 3 || bb.Span.EndCol != 5 {
		t.Errorf("unexpected span for bb: %+v", bb.Span)
	}
	if bb.Span.Offset != 6 {
		t.Errorf("got offset %d, want 6", bb.Span.Offset)
	}
}

func TestMultibyteColumns(t *testing.T) {
	tokens := mustTokenizeNoEOF(t, `"¢¢" x`)
	if tokens[1].Span.StartCol != 6 {
		t.Errorf("got column %d, want 6", tokens[1].Span.StartCol)
	}
}

func TestWhitespaceInsignificant(t *testing.T) {
	a := types(mustTokenize(t, "a+b*c"))
	b := types(mustTokenize(t, " a \n+\tb\r\n * c "))
	if len(a) != len(b) {
		t.Fatalf("token counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("token %d: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestTokenJSON(t *testing.T) {
	tokens := mustTokenizeNoEOF(t, "42")
	b, err := json.Marshal(tokens[0])
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(b), `{"type":"int","text":"42","span":`) {
		t.Errorf("got %s", b)
	}
}
