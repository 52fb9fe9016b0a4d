package plan

import (
	"encoding/json"
	"strings"

	"dumpmigrate/internal/coerce"
	"dumpmigrate/internal/schema"
	"dumpmigrate/internal/sqldump"
)

// roleTables are source tables whose name alone names the role of every row
// in them.
var roleTables = []string{"trainers", "receptionists", "admins", "managers", "coaches", "instructors"}

func buildStaff(dump, tenantID, today string, p *Plan) {
	for _, table := range roleTables {
		block, ok := sqldump.Extract(dump, table)
		if !ok {
			continue
		}
		role := singularize(table)
		for _, tup := range block.Tuples {
			if rec, ok := staffFromRow(block.Columns, tup, role, tenantID, today); ok {
				p.Staff = append(p.Staff, rec)
			}
		}
	}

	// A generic staff table carries the role as an explicit column instead.
	block, ok := sqldump.Extract(dump, "staff")
	if !ok {
		return
	}
	for _, tup := range block.Tuples {
		role := strings.ToLower(schema.StaffRole.PickString(block.Columns, tup))
		if role == "" {
			role = "staff"
		}
		if rec, ok := staffFromRow(block.Columns, tup, role, tenantID, today); ok {
			p.Staff = append(p.Staff, rec)
		}
	}
}

// staffFromRow maps one staff tuple. Rows with neither id nor email are
// dropped without a skip record; only member rows get skip accounting.
func staffFromRow(cols []string, tup sqldump.Tuple, role, tenantID, today string) (StaffRecord, bool) {
	id := schema.MemberID.PickString(cols, tup)
	email := schema.MemberEmail.PickString(cols, tup)
	if id == "" && email == "" {
		return StaffRecord{}, false
	}

	first := schema.MemberFirstName.PickString(cols, tup)
	last := schema.MemberLastName.PickString(cols, tup)
	if first == "" {
		first, last = coerce.SplitName(schema.MemberName.PickString(cols, tup))
	}

	rec := StaffRecord{
		ID:        id,
		FirstName: first,
		LastName:  last,
		Email:     email,
		Phone:     schema.MemberPhone.PickString(cols, tup),
		Role:      role,
		HireDate:  today,
		GymID:     tenantID,
	}
	if iso, ok := coerce.Date(schema.StaffHireDate.PickString(cols, tup)); ok {
		rec.HireDate = iso
	}
	rec.QRPayload = staffQR(rec)
	return rec, true
}

func staffQR(rec StaffRecord) string {
	identity := rec.ID
	if identity == "" {
		identity = rec.Email
	}
	buf, err := json.Marshal(struct {
		StaffID string `json:"staffId"`
		Role    string `json:"role,omitempty"`
	}{identity, rec.Role})
	if err != nil {
		return ""
	}
	return string(buf)
}

// singularize strips the plural suffix off a role table name: trainers
// becomes trainer, coaches becomes coach.
func singularize(table string) string {
	t := strings.ToLower(table)
	switch {
	case strings.HasSuffix(t, "ches"), strings.HasSuffix(t, "shes"),
		strings.HasSuffix(t, "sses"), strings.HasSuffix(t, "xes"):
		return t[:len(t)-2]
	case strings.HasSuffix(t, "s") && !strings.HasSuffix(t, "ss"):
		return t[:len(t)-1]
	}
	return t
}
