// Package sqldump extracts rows from loosely structured SQL dump text.
//
// Legacy exports arrive with unknown table names, inconsistent quoting, and
// the occasional broken escape sequence. This package is a text scanner, not
// a SQL parser: it understands exactly enough of INSERT syntax to recover
// column lists and VALUES tuples, and it never fails on malformed input.
//
// Design goals:
//
//   - Quote-aware splitting: commas and parentheses inside quoted spans must
//     never corrupt a tuple boundary.
//   - Both MySQL escape conventions: backslash escapes (\') and doubled
//     quotes ('') fold to a literal quote.
//   - Graceful degradation: an unclosed quote swallows the remainder of the
//     current value instead of returning an error. Dumps are frequently
//     slightly irregular and a single bad row must not abort ingestion.
//   - No typing at this layer: numeric literals stay strings. Typing is the
//     coercion layer's job.
package sqldump

import (
	"fmt"
	"strings"

	"github.com/zeebo/xxh3"
)

// Value is one decoded literal from a VALUES tuple. Null reports a bare SQL
// NULL keyword; S holds the decoded text otherwise.
type Value struct {
	S    string
	Null bool
}

// Empty reports whether the value is NULL or blank after trimming.
func (v Value) Empty() bool {
	return v.Null || strings.TrimSpace(v.S) == ""
}

// SplitTuples splits the body of a VALUES clause into its raw tuple strings.
// "(1,'a'),(2,'b')" yields ["1,'a'", "2,'b'"]. Parenthesis depth is only
// tracked outside quoted spans, so literal parentheses inside strings do not
// move a boundary. Content outside any tuple (separators, whitespace) is
// dropped; a trailing unterminated tuple is emitted as-is.
func SplitTuples(body string) []string {
	var out []string
	var cur strings.Builder
	depth := 0
	inSingle, inDouble, escaped := false, false, false

	for _, r := range body {
		if escaped {
			cur.WriteRune(r)
			escaped = false
			continue
		}
		inQuote := inSingle || inDouble
		switch {
		case r == '\\' && inQuote:
			cur.WriteRune(r)
			escaped = true
		case r == '\'' && !inDouble:
			inSingle = !inSingle
			cur.WriteRune(r)
		case r == '"' && !inSingle:
			inDouble = !inDouble
			cur.WriteRune(r)
		case inQuote:
			cur.WriteRune(r)
		case r == '(':
			depth++
			if depth > 1 {
				cur.WriteRune(r)
			}
		case r == ')':
			depth--
			switch {
			case depth > 0:
				cur.WriteRune(r)
			case depth == 0:
				out = append(out, cur.String())
				cur.Reset()
			default:
				// Stray closer before any opener; ignore and recover.
				depth = 0
			}
		case depth > 0:
			cur.WriteRune(r)
		}
	}
	if s := strings.TrimSpace(cur.String()); s != "" {
		out = append(out, s)
	}
	return out
}

// DecodeTuple splits one raw tuple on top-level commas and decodes each token
// into a Value. Nested parentheses (sub-expressions some exporters emit) keep
// their commas intact.
func DecodeTuple(raw string) []Value {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	var vals []Value
	var cur strings.Builder
	depth := 0
	inSingle, inDouble, escaped := false, false, false

	flush := func() {
		vals = append(vals, decodeScalar(cur.String()))
		cur.Reset()
	}

	for _, r := range raw {
		if escaped {
			cur.WriteRune(r)
			escaped = false
			continue
		}
		inQuote := inSingle || inDouble
		switch {
		case r == '\\' && inQuote:
			cur.WriteRune(r)
			escaped = true
		case r == '\'' && !inDouble:
			inSingle = !inSingle
			cur.WriteRune(r)
		case r == '"' && !inSingle:
			inDouble = !inDouble
			cur.WriteRune(r)
		case inQuote:
			cur.WriteRune(r)
		case r == '(':
			depth++
			cur.WriteRune(r)
		case r == ')':
			depth--
			cur.WriteRune(r)
		case r == ',' && depth <= 0:
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return vals
}

// decodeScalar turns one raw token into a Value. Bare NULL (any case) becomes
// a null value; quoted strings are stripped and unescaped; everything else
// passes through trimmed.
func decodeScalar(tok string) Value {
	s := strings.TrimSpace(tok)
	if strings.EqualFold(s, "NULL") {
		return Value{Null: true}
	}
	if len(s) >= 2 {
		if s[0] == '\'' && s[len(s)-1] == '\'' {
			return Value{S: unescape(s[1:len(s)-1], '\'')}
		}
		if s[0] == '"' && s[len(s)-1] == '"' {
			return Value{S: unescape(s[1:len(s)-1], '"')}
		}
	}
	// Unclosed quote: treat the remainder as part of the value.
	if len(s) >= 1 && (s[0] == '\'' || s[0] == '"') {
		return Value{S: unescape(s[1:], s[0])}
	}
	return Value{S: s}
}

// unescape folds backslash escapes and doubled quote characters inside a
// quoted string body. The short MySQL escape set is translated (\n, \r, \t,
// \0, \Z); any other escaped character stands for itself.
func unescape(body string, q byte) string {
	if !strings.ContainsAny(body, `\`+string(q)) {
		return body
	}
	var b strings.Builder
	b.Grow(len(body))
	for i := 0; i < len(body); i++ {
		c := body[i]
		switch {
		case c == '\\' && i+1 < len(body):
			i++
			switch body[i] {
			case 'n':
				b.WriteByte('\n')
			case 'r':
				b.WriteByte('\r')
			case 't':
				b.WriteByte('\t')
			case '0':
				b.WriteByte(0)
			case 'Z':
				b.WriteByte(0x1a)
			default:
				b.WriteByte(body[i])
			}
		case c == q && i+1 < len(body) && body[i+1] == q:
			i++
			b.WriteByte(q)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// Fingerprint returns a short stable hex tag for a raw tuple, used to label
// warnings and diagnostics samples so a source row can be found again across
// runs. 48 bits of xxh3 keeps the tag grep-friendly.
func Fingerprint(raw string) string {
	return fmt.Sprintf("%012x", xxh3.HashString(raw)&0xFFFFFFFFFFFF)
}
