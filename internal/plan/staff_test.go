package plan

import "testing"

func TestSingularize(t *testing.T) {
	t.Parallel()

	tests := []struct{ in, want string }{
		{"trainers", "trainer"},
		{"receptionists", "receptionist"},
		{"admins", "admin"},
		{"managers", "manager"},
		{"coaches", "coach"},
		{"instructors", "instructor"},
		{"staff", "staff"},
	}
	for _, tc := range tests {
		if got := singularize(tc.in); got != tc.want {
			t.Fatalf("singularize(%q): got %q want %q", tc.in, got, tc.want)
		}
	}
}

func TestBuildStaffFromRoleTables(t *testing.T) {
	withToday(t, "2025-06-01")

	dump := `
INSERT INTO trainers (id, name, email, hire_date) VALUES ('t1', 'Pat Quill', 'pat@x.com', '2020-05-01');
INSERT INTO coaches (id, name, email) VALUES ('c1', 'Sam Day', 'sam@x.com');
`
	p := Build(dump, "gym-1")

	if len(p.Staff) != 2 {
		t.Fatalf("staff: got %d want 2", len(p.Staff))
	}

	trainer := p.Staff[0]
	if trainer.Role != "trainer" {
		t.Fatalf("role: got %q want trainer", trainer.Role)
	}
	if trainer.FirstName != "Pat" || trainer.LastName != "Quill" {
		t.Fatalf("name: %#v", trainer)
	}
	if trainer.HireDate != "2020-05-01" {
		t.Fatalf("hire date: got %q", trainer.HireDate)
	}
	if trainer.GymID != "gym-1" {
		t.Fatalf("gym: got %q", trainer.GymID)
	}
	if want := `{"staffId":"t1","role":"trainer"}`; trainer.QRPayload != want {
		t.Fatalf("qr payload: got %q want %q", trainer.QRPayload, want)
	}

	coach := p.Staff[1]
	if coach.Role != "coach" {
		t.Fatalf("role: got %q want coach", coach.Role)
	}
	if coach.HireDate != "2025-06-01" {
		t.Fatalf("hire date must default to today: got %q", coach.HireDate)
	}
}

func TestBuildStaffGenericTable(t *testing.T) {
	withToday(t, "2025-06-01")

	dump := `
INSERT INTO staff (id, name, email, role) VALUES
('s1', 'Lou Finn', 'lou@x.com', 'Janitor'),
('s2', 'Mel Orr', 'mel@x.com', NULL),
(NULL, 'Ghost Staff', NULL, 'phantom');
`
	p := Build(dump, "gym-1")

	if len(p.Staff) != 2 {
		t.Fatalf("staff: got %d want 2", len(p.Staff))
	}
	if p.Staff[0].Role != "janitor" {
		t.Fatalf("explicit role: got %q", p.Staff[0].Role)
	}
	if p.Staff[1].Role != "staff" {
		t.Fatalf("missing role must default to staff: got %q", p.Staff[1].Role)
	}
	// Identity-less staff rows disappear without a skip record.
	if len(p.SkippedRows) != 0 {
		t.Fatalf("skipped rows: %#v", p.SkippedRows)
	}
}
