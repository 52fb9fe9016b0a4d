// Package coerce turns raw dump literals into typed values. Every function is
// total: malformed input degrades to a zero value or passes through, never an
// error. A single bad legacy row must not abort the remaining thousands.
package coerce

import (
	"strconv"
	"strings"
	"time"
	"unicode"
)

// ISODate is the normalized calendar-date form used across the engine.
// String comparison of two ISODate values orders them chronologically.
const ISODate = "2006-01-02"

// dateLayouts are tried in order. ISO and datetime forms first, then the
// regional layouts legacy exports use. Day-first is tried before month-first;
// ambiguous numeric dates resolve day-first, an accepted bias.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006/01/02",
	"02.01.2006",
	"02-01-2006",
	"02/01/2006",
	"01/02/2006",
	"Jan 2, 2006",
	"2 Jan 2006",
}

// Date parses a legacy date string and re-emits it as YYYY-MM-DD. All-zero
// legacy dates (0000-00-00 and variants) are rejected, as is anything
// unparsable. Ten-digit values are accepted as Unix timestamps, which some
// exports use for expiry columns.
func Date(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" || strings.HasPrefix(s, "0000-00-00") {
		return "", false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(ISODate), true
		}
	}
	if len(s) == 10 && allDigits(s) {
		if sec, err := strconv.ParseInt(s, 10, 64); err == nil {
			return time.Unix(sec, 0).UTC().Format(ISODate), true
		}
	}
	return "", false
}

func allDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}

// booleanNames is the closed set of column names treated as boolean even
// without a boolean-ish prefix or suffix.
var booleanNames = map[string]struct{}{
	"enabled":  {},
	"archived": {},
	"active":   {},
}

// BooleanName reports whether a column name looks boolean: is_/has_/should_
// prefix, _flag suffix, or membership in the closed set.
func BooleanName(column string) bool {
	c := strings.ToLower(strings.TrimSpace(column))
	if strings.HasPrefix(c, "is_") || strings.HasPrefix(c, "has_") || strings.HasPrefix(c, "should_") {
		return true
	}
	if strings.HasSuffix(c, "_flag") {
		return true
	}
	_, ok := booleanNames[c]
	return ok
}

// Bool applies the legacy 0/1 convention to values of boolean-named columns.
// Anything other than 0 or 1, and any value of a non-boolean-named column,
// passes through unchanged.
func Bool(column, raw string) any {
	if !BooleanName(column) {
		return raw
	}
	switch strings.TrimSpace(raw) {
	case "0":
		return false
	case "1":
		return true
	}
	return raw
}

// SplitName splits a free-text full name into first and last. Tokens
// containing @ are dropped first; legacy name fields frequently have an email
// pasted into them. An empty result defaults the first name to "Member" so a
// record always has a usable display name.
func SplitName(full string) (first, last string) {
	var tokens []string
	for _, tok := range strings.Fields(full) {
		if strings.Contains(tok, "@") {
			continue
		}
		tokens = append(tokens, tok)
	}
	if len(tokens) == 0 {
		return "Member", ""
	}
	return tokens[0], strings.Join(tokens[1:], " ")
}

// Gender folds legacy gender variants onto male/female. Unrecognized values
// pass through lowercased.
func Gender(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch s {
	case "m", "men", "male":
		return "male"
	case "f", "women", "female":
		return "female"
	}
	return s
}

// Number parses a lenient decimal: surrounding whitespace and thousands
// separators are tolerated.
func Number(raw string) (float64, bool) {
	s := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Int parses an integer out of free-form text: the first contiguous digit run
// wins, so "30 days" yields 30. Legacy duration and validity columns mix
// numbers with unit words.
func Int(raw string) (int, bool) {
	var run []rune
	for _, r := range strings.TrimSpace(raw) {
		if unicode.IsDigit(r) {
			run = append(run, r)
			continue
		}
		if len(run) > 0 {
			break
		}
	}
	if len(run) == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(string(run))
	if err != nil {
		return 0, false
	}
	return n, true
}
