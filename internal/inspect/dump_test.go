package inspect

import (
	"reflect"
	"strings"
	"testing"
)

const inventoryDump = `
INSERT INTO public.users (id, full_name, email_address, membership_type) VALUES
(1, 'Ann Lee', 'ann@example.com', 'gold'),
(2, 'Bob Ray', 'bob@example.com', 'silver');
INSERT INTO public.users (id, full_name, email_address, membership_type) VALUES
(3, 'Cid Fox', 'cid@example.com', 'gold');
INSERT INTO payments (id, user_id, package, amount, payment_date, expiry_date, status) VALUES
(10, 1, 'gold', 1200, '2023-01-01', '01/12/2024', 'paid');
INSERT INTO audit_log (id, message) VALUES (1, 'imported');
`

func TestScan(t *testing.T) {
	t.Parallel()

	rep := Scan(inventoryDump)
	if len(rep.Tables) != 3 {
		t.Fatalf("expected 3 tables, got %#v", rep.Tables)
	}

	users := rep.Tables[0]
	if users.Name != "public.users" {
		t.Fatalf("first table = %q, want public.users", users.Name)
	}
	if users.Role != "members" {
		t.Fatalf("users role = %q, want members", users.Role)
	}
	if users.Statements != 2 || users.Tuples != 3 {
		t.Fatalf("users counts = %d statements / %d tuples, want 2/3", users.Statements, users.Tuples)
	}
	wantCols := []string{"id", "full_name", "email_address", "membership_type"}
	if !reflect.DeepEqual(users.Columns, wantCols) {
		t.Fatalf("users columns = %#v, want %#v", users.Columns, wantCols)
	}
	wantSample := []FieldSample{
		{Field: "id", Value: "1"},
		{Field: "name", Value: "Ann Lee"},
		{Field: "email", Value: "ann@example.com"},
		{Field: "package", Value: "gold"},
	}
	if !reflect.DeepEqual(users.Sample, wantSample) {
		t.Fatalf("users sample = %#v, want %#v", users.Sample, wantSample)
	}

	pay := rep.Tables[1]
	if pay.Role != "payments" {
		t.Fatalf("payments role = %q", pay.Role)
	}
	if pay.Statements != 1 || pay.Tuples != 1 {
		t.Fatalf("payments counts = %d/%d, want 1/1", pay.Statements, pay.Tuples)
	}
	var gotStatus string
	for _, s := range pay.Sample {
		if s.Field == "status" {
			gotStatus = s.Value
		}
	}
	if gotStatus != "paid" {
		t.Fatalf("payments status sample = %q, want paid", gotStatus)
	}

	unknown := rep.Tables[2]
	if unknown.Role != "" {
		t.Fatalf("audit_log role = %q, want empty", unknown.Role)
	}
	if unknown.Sample != nil {
		t.Fatalf("audit_log sample = %#v, want nil", unknown.Sample)
	}
}

func TestScanPositionalLayout(t *testing.T) {
	t.Parallel()

	rep := Scan("INSERT INTO users VALUES (7, 'Dee Cole', 'dee@example.com', '555-0101');")
	if len(rep.Tables) != 1 {
		t.Fatalf("expected 1 table, got %#v", rep.Tables)
	}

	users := rep.Tables[0]
	if users.Columns != nil {
		t.Fatalf("columns = %#v, want nil for positional dump", users.Columns)
	}
	wantSample := []FieldSample{
		{Field: "id", Value: "7"},
		{Field: "name", Value: "Dee Cole"},
		{Field: "email", Value: "dee@example.com"},
		{Field: "phone", Value: "555-0101"},
	}
	if !reflect.DeepEqual(users.Sample, wantSample) {
		t.Fatalf("sample = %#v, want %#v", users.Sample, wantSample)
	}
}

func TestScanClipsLongValues(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("x", 200)
	rep := Scan("INSERT INTO users (id, name) VALUES (1, '" + long + "');")
	if len(rep.Tables) != 1 || len(rep.Tables[0].Sample) < 2 {
		t.Fatalf("unexpected report %#v", rep)
	}
	name := rep.Tables[0].Sample[1]
	if name.Field != "name" {
		t.Fatalf("second sample field = %q, want name", name.Field)
	}
	if len(name.Value) != 63 || !strings.HasSuffix(name.Value, "...") {
		t.Fatalf("clipped value = %q (len %d), want 60 chars plus ellipsis", name.Value, len(name.Value))
	}
}

func TestRender(t *testing.T) {
	t.Parallel()

	got := Scan(inventoryDump).Render()
	for _, want := range []string{
		"table public.users (members): statements=2 tuples=3",
		"columns: id, full_name, email_address, membership_type",
		"email = ann@example.com",
		"table payments (payments): statements=1 tuples=1",
		"table audit_log: statements=1 tuples=1",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("render output missing %q:\n%s", want, got)
		}
	}
}

func TestRenderEmpty(t *testing.T) {
	t.Parallel()

	if got := (Report{}).Render(); got != "no INSERT statements found\n" {
		t.Fatalf("Render() = %q", got)
	}
}
