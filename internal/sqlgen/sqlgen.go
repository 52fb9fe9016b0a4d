// Package sqlgen renders migration plans as conflict-safe SQL text: one
// multi-row upsert per target table, suitable for piping straight into the
// target database.
//
// Design goals:
//   - deterministic output: sorted column union, stable row order
//   - values are either escaped literals or explicitly raw sub-expressions,
//     nothing in between
//   - empty record sets render as nothing; the document layer substitutes an
//     explanatory comment
package sqlgen

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Value is one cell of a generated statement: either a literal, escaped on
// render, or a raw SQL expression passed through untouched.
type Value struct {
	raw     bool
	expr    string
	literal any
}

// Lit wraps a literal. nil renders as NULL, numbers and booleans render
// unquoted, everything else renders as an escaped string.
func Lit(v any) Value { return Value{literal: v} }

// Raw wraps a SQL expression that must not be escaped, such as a by-name
// foreign-key lookup.
func Raw(expr string) Value { return Value{raw: true, expr: expr} }

func (v Value) render() string {
	if v.raw {
		return v.expr
	}
	switch x := v.literal.(type) {
	case nil:
		return "NULL"
	case bool:
		if x {
			return "true"
		}
		return "false"
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case string:
		return quote(x)
	default:
		return quote(fmt.Sprint(x))
	}
}

// quote single-quotes a string literal, doubling embedded quotes.
func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// Record maps column names to values for one row. Absent columns render as
// NULL when another record in the same statement carries them.
type Record map[string]Value

// meaningful filters pure noise: a record with no non-empty field at all
// contributes nothing and would only widen the column union.
func meaningful(r Record) bool {
	for _, v := range r {
		if v.raw {
			if strings.TrimSpace(v.expr) != "" {
				return true
			}
			continue
		}
		switch x := v.literal.(type) {
		case nil:
		case string:
			if x != "" {
				return true
			}
		default:
			return true
		}
	}
	return false
}

// Upsert renders one multi-row INSERT ... ON CONFLICT DO UPDATE statement.
// Columns are the sorted union of keys across all kept records; every
// non-conflict column is updated from EXCLUDED on conflict. An empty record
// set yields an empty string.
func Upsert(table string, records []Record, conflictCols []string) string {
	kept := records[:0:0]
	for _, r := range records {
		if meaningful(r) {
			kept = append(kept, r)
		}
	}
	if len(kept) == 0 {
		return ""
	}

	colSet := make(map[string]struct{})
	for _, r := range kept {
		for k := range r {
			colSet[k] = struct{}{}
		}
	}
	cols := make([]string, 0, len(colSet))
	for k := range colSet {
		cols = append(cols, k)
	}
	sort.Strings(cols)

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(table)
	b.WriteString(" (")
	b.WriteString(strings.Join(cols, ", "))
	b.WriteString(") VALUES\n")

	for i, r := range kept {
		if i > 0 {
			b.WriteString(",\n")
		}
		b.WriteString("(")
		for j, c := range cols {
			if j > 0 {
				b.WriteString(", ")
			}
			v, ok := r[c]
			if !ok {
				b.WriteString("NULL")
				continue
			}
			b.WriteString(v.render())
		}
		b.WriteString(")")
	}

	conflict := make(map[string]struct{}, len(conflictCols))
	for _, c := range conflictCols {
		conflict[c] = struct{}{}
	}
	var sets []string
	for _, c := range cols {
		if _, skip := conflict[c]; skip {
			continue
		}
		sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", c, c))
	}

	b.WriteString("\nON CONFLICT (")
	b.WriteString(strings.Join(conflictCols, ", "))
	if len(sets) == 0 {
		b.WriteString(") DO NOTHING;")
		return b.String()
	}
	b.WriteString(") DO UPDATE SET ")
	b.WriteString(strings.Join(sets, ", "))
	b.WriteString(";")
	return b.String()
}
