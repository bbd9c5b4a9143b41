package parser

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/thomasrohde/celviz/pkg/value"
)

// decodeInt converts int literal text, ignoring digit separators.
func decodeInt(text string) (int64, error) {
	return strconv.ParseInt(strings.ReplaceAll(text, "_", ""), 10, 64)
}

func decodeFloat(text string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(text, "_", ""), 64)
}

// decodeQuoted turns the source text of a string or bytes literal into its
// value. The lexer has already validated every escape, so an unknown one here
// is a bug, not a user error.
func decodeQuoted(text string) value.Value {
	isBytes := strings.HasPrefix(text, "b")
	if isBytes {
		text = text[1:]
	}
	if len(text) < 2 {
		panic(fmt.Sprintf("parser: malformed quoted literal %q", text))
	}
	body := text[1 : len(text)-1]

	var sb strings.Builder
	for i := 0; i < len(body); {
		c := body[i]
		if c != '\\' {
			sb.WriteByte(c)
			i++
			continue
		}
		esc := body[i+1]
		i += 2
		switch esc {
		case '"', '\'', '\\':
			sb.WriteByte(esc)
		case 'n':
			sb.WriteByte('\n')
		case 't':
			sb.WriteByte('\t')
		case 'r':
			sb.WriteByte('\r')
		case '0', '1', '2', '3':
			n := uint64(esc-'0')<<6 | uint64(body[i]-'0')<<3 | uint64(body[i+1]-'0')
			i += 2
			writeByteEscape(&sb, byte(n), isBytes)
		case 'x':
			n, err := strconv.ParseUint(body[i:i+2], 16, 8)
			if err != nil {
				panic(fmt.Sprintf("parser: unvalidated hex escape in %q", text))
			}
			i += 2
			writeByteEscape(&sb, byte(n), isBytes)
		case 'u':
			n, err := strconv.ParseUint(body[i:i+4], 16, 32)
			if err != nil || !utf8.ValidRune(rune(n)) {
				panic(fmt.Sprintf("parser: unvalidated unicode escape in %q", text))
			}
			i += 4
			sb.WriteRune(rune(n))
		default:
			panic(fmt.Sprintf("parser: unvalidated escape \\%c in %q", esc, text))
		}
	}

	if isBytes {
		return value.NewBytes([]byte(sb.String()))
	}
	return value.NewString(sb.String())
}

// Byte escapes are raw bytes in bytes literals and code points U+0000 to
// U+00FF in string literals.
func writeByteEscape(sb *strings.Builder, b byte, isBytes bool) {
	if isBytes {
		sb.WriteByte(b)
		return
	}
	sb.WriteRune(rune(b))
}
