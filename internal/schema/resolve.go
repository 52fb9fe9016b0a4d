// Package schema resolves semantic fields against the unknown column layouts
// found in legacy dumps.
//
// Legacy systems name the same column a dozen ways (email, user_email,
// customer_email, mail). Each semantic field carries a priority-ordered
// candidate list; resolution normalizes both sides to lowercase alphanumerics
// and matches exactly first, then by substring containment in either
// direction. When a dump statement declares no column list at all, a fixed
// positional fallback is used instead. That fallback reflects common legacy
// layouts and is best-effort: it can misalign, which is an accepted
// limitation of migrating undocumented schemas.
package schema

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"dumpmigrate/internal/sqldump"
)

// NormalizeName folds a column name to its comparable form: accents stripped
// (NFD, drop combining marks, NFC), lowercased, non-alphanumerics removed.
func NormalizeName(s string) string {
	t := transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		norm.NFC,
	)
	ascii, _, _ := transform.String(t, strings.ToLower(strings.TrimSpace(s)))

	var b strings.Builder
	b.Grow(len(ascii))
	for _, r := range ascii {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Resolve returns the index of the declared column holding the semantic field
// described by candidates, or -1. Candidates must already be in normalized
// form and ordered by priority.
//
// Exact matches win over fuzzy ones regardless of candidate order; fuzzy
// matching accepts containment in either direction (a declared user_email
// contains the candidate email, and a declared mail is contained by the
// candidate emailaddress) and takes the first hit in candidate order.
func Resolve(columns []string, candidates []string) int {
	normd := make([]string, len(columns))
	for i, c := range columns {
		normd[i] = NormalizeName(c)
	}

	for _, cand := range candidates {
		for i, col := range normd {
			if col == cand {
				return i
			}
		}
	}
	for _, cand := range candidates {
		for i, col := range normd {
			if col == "" {
				continue
			}
			if strings.Contains(col, cand) || strings.Contains(cand, col) {
				return i
			}
		}
	}
	return -1
}

// Field describes one semantic field: its diagnostic name, the normalized
// candidate column names in priority order, and the positional index assumed
// when a statement carries no column list (-1 disables the fallback).
type Field struct {
	Name       string
	Candidates []string
	Fallback   int
}

// Pick resolves the field against a block's columns and returns the value
// from the given tuple. The boolean is false when the field cannot be located
// or the tuple is too short.
func (f Field) Pick(columns []string, tuple sqldump.Tuple) (sqldump.Value, bool) {
	idx := -1
	if len(columns) > 0 {
		idx = Resolve(columns, f.Candidates)
	} else {
		idx = f.Fallback
	}
	if idx < 0 || idx >= len(tuple.Values) {
		return sqldump.Value{}, false
	}
	return tuple.Values[idx], true
}

// PickString is Pick with NULL and not-found folded to the empty string, and
// the result trimmed. Most call sites only care about non-empty text.
func (f Field) PickString(columns []string, tuple sqldump.Tuple) string {
	v, ok := f.Pick(columns, tuple)
	if !ok || v.Null {
		return ""
	}
	return strings.TrimSpace(v.S)
}
