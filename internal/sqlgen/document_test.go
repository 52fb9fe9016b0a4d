package sqlgen

import (
	"strings"
	"testing"

	"dumpmigrate/internal/plan"
)

func TestPackageRef(t *testing.T) {
	t.Parallel()

	canonical := PackageRef("8f14e45f-ceea-467f-9575-6c0d0a05ab31")
	if got := canonical.render(); got != "'8f14e45f-ceea-467f-9575-6c0d0a05ab31'" {
		t.Fatalf("canonical ref: got %q", got)
	}

	byName := PackageRef("summer '24")
	want := "(SELECT id FROM packages WHERE name = 'summer ''24' LIMIT 1)"
	if got := byName.render(); got != want {
		t.Fatalf("by-name ref: got %q want %q", got, want)
	}
}

func TestMemberRecordsOmitEmptyFields(t *testing.T) {
	t.Parallel()

	recs := MemberRecords([]plan.MemberRecord{{
		Email:  "a@x.com",
		Status: "expired",
		GymID:  "gym-1",
	}})
	if len(recs) != 1 {
		t.Fatalf("records: %d", len(recs))
	}
	r := recs[0]
	if _, ok := r["id"]; ok {
		t.Fatalf("empty id must be omitted")
	}
	if _, ok := r["package_id"]; ok {
		t.Fatalf("empty package ref must be omitted")
	}
	if r["email"].render() != "'a@x.com'" {
		t.Fatalf("email: %q", r["email"].render())
	}
}

func TestDocument(t *testing.T) {
	t.Parallel()

	p := &plan.Plan{
		Members: []plan.MemberRecord{
			{ID: "1", Email: "a@x.com", Status: "active", PackageRef: "gold", GymID: "gym-1"},
			{ID: "2", Email: "b@x.com", Status: "expired", PackageRef: "8f14e45f-ceea-467f-9575-6c0d0a05ab31", GymID: "gym-1"},
		},
		Packages: []plan.PackageRow{
			{Name: "gold", Price: 1200.5, DurationDays: 365, AccessLevel: "premium", GymID: "gym-1"},
		},
	}
	doc := Document(p, "gym-1")

	if !strings.HasPrefix(doc, "-- Migration generated by dumpmigrate on ") {
		t.Fatalf("header: %q", doc[:60])
	}
	if !strings.Contains(doc, "-- Target tenant: gym-1\n") {
		t.Fatalf("tenant line missing")
	}
	if !strings.Contains(doc, "BEGIN;\n") || !strings.HasSuffix(doc, "COMMIT;\n") {
		t.Fatalf("transaction wrapper missing:\n%s", doc)
	}

	// Packages must be emitted before members so sub-selects resolve.
	pkgAt := strings.Index(doc, "INSERT INTO packages")
	memAt := strings.Index(doc, "INSERT INTO members")
	if pkgAt < 0 || memAt < 0 || pkgAt > memAt {
		t.Fatalf("section order: packages at %d, members at %d", pkgAt, memAt)
	}

	if !strings.Contains(doc, "(SELECT id FROM packages WHERE name = 'gold' LIMIT 1)") {
		t.Fatalf("by-name package ref missing:\n%s", doc)
	}
	if !strings.Contains(doc, "'8f14e45f-ceea-467f-9575-6c0d0a05ab31'") {
		t.Fatalf("canonical package ref missing:\n%s", doc)
	}
	if !strings.Contains(doc, "-- no staff to migrate") {
		t.Fatalf("empty staff comment missing:\n%s", doc)
	}
	if !strings.Contains(doc, "ON CONFLICT (email) DO UPDATE SET") {
		t.Fatalf("member conflict clause missing:\n%s", doc)
	}
	if !strings.Contains(doc, "ON CONFLICT (name) DO UPDATE SET") {
		t.Fatalf("package conflict clause missing:\n%s", doc)
	}
}
