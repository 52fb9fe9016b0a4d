// Package inspect inventories legacy dump text for operators deciding
// whether a dump is migratable. It reports every table with INSERT
// statements, how many statements and rows each carries, the declared column
// list, and which semantic fields the migration engine would resolve from
// the first row. It never builds a plan and never writes anywhere.
package inspect

import (
	"fmt"
	"strings"

	"dumpmigrate/internal/plan"
	"dumpmigrate/internal/schema"
	"dumpmigrate/internal/sqldump"
)

// Report is the full inventory of one dump.
type Report struct {
	Tables []TableReport `json:"tables"`
}

// TableReport describes all INSERT statements found for one table. Columns
// is the normalized declared column list, empty when the dump relies on
// positional layout.
type TableReport struct {
	Name       string        `json:"name"`
	Role       string        `json:"role,omitempty"`
	Statements int           `json:"statements"`
	Tuples     int           `json:"tuples"`
	Columns    []string      `json:"columns,omitempty"`
	Sample     []FieldSample `json:"sample,omitempty"`
}

// FieldSample is one semantic field resolved from the first tuple of a
// recognized table.
type FieldSample struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// Probe field lists per recognized role, in display order. Staff tables
// reuse the member identity fields.
var (
	memberProbe = []schema.Field{
		schema.MemberID, schema.MemberName, schema.MemberFirstName,
		schema.MemberLastName, schema.MemberEmail, schema.MemberPhone,
		schema.MemberGender, schema.MemberDOB, schema.MemberPackage,
		schema.MemberExpiry, schema.MemberQR, schema.MemberCreated,
	}
	staffProbe = []schema.Field{
		schema.MemberID, schema.MemberName, schema.MemberFirstName,
		schema.MemberLastName, schema.MemberEmail, schema.MemberPhone,
		schema.StaffRole, schema.StaffHireDate,
	}
	paymentProbe = []schema.Field{
		schema.PaymentUserID, schema.PaymentEmail, schema.PaymentPhone,
		schema.PaymentPackage, schema.PaymentExpiry, schema.PaymentStatus,
		schema.PaymentGender,
	}
	packageProbe = []schema.Field{
		schema.PackageName, schema.PackagePrice, schema.PackageDuration,
		schema.PackageAccess,
	}
)

// Scan inventories the dump. Tables appear in first-seen order under the
// name written in the dump.
func Scan(dump string) Report {
	var rep Report
	for _, name := range sqldump.Tables(dump) {
		blk, ok := sqldump.Extract(dump, tableKey(name))
		if !ok {
			continue
		}
		tr := TableReport{
			Name:       name,
			Role:       plan.TableRole(name),
			Statements: blk.Statements,
			Tuples:     len(blk.Tuples),
			Columns:    blk.Columns,
		}
		if len(blk.Tuples) > 0 {
			tr.Sample = sampleFields(tr.Role, blk.Columns, blk.Tuples[0])
		}
		rep.Tables = append(rep.Tables, tr)
	}
	return rep
}

// sampleFields resolves the role's semantic fields against the first tuple,
// keeping only the ones that actually produced a value.
func sampleFields(role string, cols []string, tup sqldump.Tuple) []FieldSample {
	var probe []schema.Field
	switch role {
	case "members":
		probe = memberProbe
	case "staff":
		probe = staffProbe
	case "payments":
		probe = paymentProbe
	case "packages":
		probe = packageProbe
	default:
		return nil
	}

	var out []FieldSample
	for _, f := range probe {
		if v := f.PickString(cols, tup); v != "" {
			out = append(out, FieldSample{Field: f.Name, Value: clip(v, 60)})
		}
	}
	return out
}

// Render formats the report as operator-facing text.
func (r Report) Render() string {
	if len(r.Tables) == 0 {
		return "no INSERT statements found\n"
	}

	var b strings.Builder
	for _, t := range r.Tables {
		fmt.Fprintf(&b, "table %s", t.Name)
		if t.Role != "" {
			fmt.Fprintf(&b, " (%s)", t.Role)
		}
		fmt.Fprintf(&b, ": statements=%d tuples=%d\n", t.Statements, t.Tuples)
		if len(t.Columns) > 0 {
			fmt.Fprintf(&b, "  columns: %s\n", strings.Join(t.Columns, ", "))
		} else if t.Tuples > 0 {
			b.WriteString("  columns: none declared; positional layout assumed\n")
		}
		for _, s := range t.Sample {
			fmt.Fprintf(&b, "  %s = %s\n", s.Field, s.Value)
		}
	}
	return b.String()
}

// tableKey normalizes a raw table name to the form Extract matches on: the
// last dotted segment, lowercased.
func tableKey(raw string) string {
	t := strings.ToLower(raw)
	if i := strings.LastIndexByte(t, '.'); i >= 0 {
		t = t[i+1:]
	}
	return t
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
