// Package dtoon implements the D-TOON compact document encoding: a
// schema-amortized textual format whose decoder is the exact inverse of
// its encoder.
package dtoon

import (
	"strconv"
	"strings"

	"github.com/deepcompress/deepcompress/internal/domain"
)

// Version is the format header emitted as the first line of every artifact.
const Version = "dtoon/1"

// indentUnit is the fixed indentation per depth level.
const indentUnit = "  "

// Reserved structural characters. Everything else passes through verbatim.
const (
	sepValue    = '|'
	sepName     = ':'
	bracketOpen = '['
	bracketEnd  = ']'
)

// escapeText escapes the reserved characters and newlines in s.
func escapeText(s string) string {
	if !strings.ContainsAny(s, "\\|:[]\n") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 4)
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case sepValue:
			b.WriteString(`\|`)
		case sepName:
			b.WriteString(`\:`)
		case bracketOpen:
			b.WriteString(`\[`)
		case bracketEnd:
			b.WriteString(`\]`)
		case '\n':
			b.WriteString(`\n`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// unescapeText reverses escapeText. An unterminated or unrecognized escape
// sequence is a grammar violation.
func unescapeText(s string) (string, error) {
	if !strings.ContainsRune(s, '\\') {
		return s, nil
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		i++
		if i >= len(s) {
			return "", domain.MalformedEncodingError("unterminated escape sequence", nil)
		}
		switch s[i] {
		case '\\':
			b.WriteByte('\\')
		case byte(sepValue):
			b.WriteByte(byte(sepValue))
		case byte(sepName):
			b.WriteByte(byte(sepName))
		case byte(bracketOpen):
			b.WriteByte(byte(bracketOpen))
		case byte(bracketEnd):
			b.WriteByte(byte(bracketEnd))
		case 'n':
			b.WriteByte('\n')
		case '.':
			// verbatim-string marker, contributes nothing
		default:
			return "", domain.MalformedEncodingError("unrecognized escape sequence \\"+string(s[i]), nil)
		}
	}
	return b.String(), nil
}

// ambiguousString reports whether a raw string would be mistaken for a
// number, boolean, or structural whitespace when read back.
func ambiguousString(s string) bool {
	if s == "" || s == "true" || s == "false" {
		return true
	}
	if s[0] == ' ' || s[0] == '\t' {
		return true
	}
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return true
	}
	return false
}

// encodeName renders a field name for a header or pair position. Names with
// leading whitespace or no characters at all carry the verbatim marker so
// they never merge into the line's indentation or vanish from a header.
func encodeName(name string) string {
	if ambiguousString(name) {
		return `\.` + escapeText(name)
	}
	return escapeText(name)
}

// encodeValue renders a scalar for a row or pair position.
func encodeValue(v domain.Value) string {
	switch v.Kind {
	case domain.KindNumber, domain.KindBool:
		return v.Literal()
	default:
		if ambiguousString(v.Str) {
			return `\.` + escapeText(v.Str)
		}
		return escapeText(v.Str)
	}
}

// decodeValue parses a raw (still escaped) scalar token.
func decodeValue(tok string) (domain.Value, error) {
	if strings.HasPrefix(tok, `\.`) {
		s, err := unescapeText(tok[2:])
		if err != nil {
			return domain.Value{}, err
		}
		return domain.String(s), nil
	}
	s, err := unescapeText(tok)
	if err != nil {
		return domain.Value{}, err
	}
	if s == "true" {
		return domain.Boolean(true), nil
	}
	if s == "false" {
		return domain.Boolean(false), nil
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return domain.Number(n), nil
	}
	return domain.String(s), nil
}

// splitEscaped splits s on every unescaped occurrence of sep.
func splitEscaped(s string, sep byte) []string {
	var parts []string
	start := 0
	escaped := false
	for i := 0; i < len(s); i++ {
		if escaped {
			escaped = false
			continue
		}
		switch s[i] {
		case '\\':
			escaped = true
		case sep:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	parts = append(parts, s[start:])
	return parts
}

// cutEscaped splits s at the first unescaped occurrence of sep.
func cutEscaped(s string, sep byte) (before, after string, found bool) {
	escaped := false
	for i := 0; i < len(s); i++ {
		if escaped {
			escaped = false
			continue
		}
		switch s[i] {
		case '\\':
			escaped = true
		case sep:
			return s[:i], s[i+1:], true
		}
	}
	return s, "", false
}
