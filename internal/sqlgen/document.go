package sqlgen

import (
	"fmt"
	"strings"
	"time"

	"dumpmigrate/internal/plan"
)

// nowFn is a seam for tests that need a fixed generation date.
var nowFn = time.Now

// PackageRef renders a member's package reference. A reference already in
// canonical id form stays a literal; anything else becomes a by-name lookup
// against the packages emitted earlier in the same document.
func PackageRef(ref string) Value {
	if plan.CanonicalID(ref) {
		return Lit(ref)
	}
	return Raw(fmt.Sprintf("(SELECT id FROM packages WHERE name = %s LIMIT 1)", quote(ref)))
}

// MemberRecords shapes member records for the members table. Empty fields
// are left out so they render as NULL rather than empty strings.
func MemberRecords(members []plan.MemberRecord) []Record {
	out := make([]Record, 0, len(members))
	for _, m := range members {
		r := Record{}
		set(r, "id", m.ID)
		set(r, "first_name", m.FirstName)
		set(r, "last_name", m.LastName)
		set(r, "email", m.Email)
		set(r, "phone", m.Phone)
		set(r, "gender", m.Gender)
		set(r, "dob", m.DOB)
		set(r, "status", m.Status)
		if m.PackageRef != "" {
			r["package_id"] = PackageRef(m.PackageRef)
		}
		set(r, "membership_expiry", m.Expiry)
		set(r, "qr_payload", m.QRPayload)
		set(r, "gym_id", m.GymID)
		set(r, "created_at", m.CreatedAt)
		out = append(out, r)
	}
	return out
}

// StaffRecords shapes staff records for the staff table. The role stays a
// name here; id mapping is a run-mode concern.
func StaffRecords(staff []plan.StaffRecord) []Record {
	out := make([]Record, 0, len(staff))
	for _, s := range staff {
		r := Record{}
		set(r, "id", s.ID)
		set(r, "first_name", s.FirstName)
		set(r, "last_name", s.LastName)
		set(r, "email", s.Email)
		set(r, "phone", s.Phone)
		set(r, "role", s.Role)
		set(r, "hire_date", s.HireDate)
		set(r, "qr_payload", s.QRPayload)
		set(r, "gym_id", s.GymID)
		out = append(out, r)
	}
	return out
}

// PackageRecords shapes package rows for the packages table. Price and
// duration always render, zero included, since placeholder rows are real.
func PackageRecords(packages []plan.PackageRow) []Record {
	out := make([]Record, 0, len(packages))
	for _, p := range packages {
		r := Record{
			"name":          Lit(p.Name),
			"price":         Lit(p.Price),
			"duration_days": Lit(p.DurationDays),
		}
		set(r, "access_level", p.AccessLevel)
		set(r, "gym_id", p.GymID)
		out = append(out, r)
	}
	return out
}

func set(r Record, col, v string) {
	if v != "" {
		r[col] = Lit(v)
	}
}

// Document renders the whole plan as one transactional SQL script. Packages
// come first so member sub-selects can resolve against them.
func Document(p *plan.Plan, tenantID string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "-- Migration generated by dumpmigrate on %s\n", nowFn().UTC().Format("2006-01-02"))
	fmt.Fprintf(&b, "-- Target tenant: %s\n", tenantID)
	b.WriteString("BEGIN;\n\n")

	section(&b, "packages", len(p.Packages),
		Upsert("packages", PackageRecords(p.Packages), []string{"name"}))
	section(&b, "members", len(p.Members),
		Upsert("members", MemberRecords(p.Members), []string{"email"}))
	section(&b, "staff", len(p.Staff),
		Upsert("staff", StaffRecords(p.Staff), []string{"email"}))

	b.WriteString("COMMIT;\n")
	return b.String()
}

func section(b *strings.Builder, name string, count int, stmt string) {
	if stmt == "" {
		fmt.Fprintf(b, "-- no %s to migrate\n\n", name)
		return
	}
	fmt.Fprintf(b, "-- %s (%d)\n%s\n\n", name, count, stmt)
}
