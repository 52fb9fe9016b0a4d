package plan

import (
	"encoding/json"

	"dumpmigrate/internal/coerce"
	"dumpmigrate/internal/reconcile"
	"dumpmigrate/internal/schema"
	"dumpmigrate/internal/sqldump"
)

const skipNoIdentity = "no id & no email"

func buildMembers(dump, tenantID, today string, maps reconcile.Maps, p *Plan) {
	block, ok := sqldump.Extract(dump, "users")
	if !ok {
		return
	}
	p.Diagnostics.TotalMemberRows = len(block.Tuples)

	seen := make(map[string]struct{})
	for _, tup := range block.Tuples {
		rec, ok := memberFromRow(block.Columns, tup, tenantID, today)
		if !ok {
			p.SkippedRows = append(p.SkippedRows, SkippedRow{
				Table:       block.Table,
				Reason:      skipNoIdentity,
				Snippet:     reconcile.Snippet(tup.Raw),
				Fingerprint: sqldump.Fingerprint(tup.Raw),
			})
			continue
		}

		before := fieldsOf(rec)
		countGaps(&p.Diagnostics.GapsBefore, rec)
		source, changed := enrich(&rec, maps)
		countGaps(&p.Diagnostics.GapsAfter, rec)
		if changed && len(p.Diagnostics.Samples) < maxSamples {
			p.Diagnostics.Samples = append(p.Diagnostics.Samples, EnrichmentSample{
				ID:     rec.ID,
				Email:  rec.Email,
				Before: before,
				After:  fieldsOf(rec),
				Source: source,
			})
		}

		if key := reconcile.NormalizeEmail(rec.Email); key != "" {
			if _, dup := seen[key]; dup {
				p.Diagnostics.DuplicateEmails++
				if len(p.Diagnostics.DuplicateSamples) < maxSamples {
					p.Diagnostics.DuplicateSamples = append(p.Diagnostics.DuplicateSamples, DuplicateSample{
						Email:       key,
						Fingerprint: sqldump.Fingerprint(tup.Raw),
					})
				}
				continue
			}
			seen[key] = struct{}{}
		}

		finalizeMember(&rec, today)
		p.Members = append(p.Members, rec)
	}
}

// memberFromRow maps one users tuple onto a MemberRecord. Rows with neither
// an id nor an email cannot be addressed in the target store and are
// rejected.
func memberFromRow(cols []string, tup sqldump.Tuple, tenantID, today string) (MemberRecord, bool) {
	id := schema.MemberID.PickString(cols, tup)
	email := schema.MemberEmail.PickString(cols, tup)
	if id == "" && email == "" {
		return MemberRecord{}, false
	}

	first := schema.MemberFirstName.PickString(cols, tup)
	last := schema.MemberLastName.PickString(cols, tup)
	if first == "" {
		first, last = coerce.SplitName(schema.MemberName.PickString(cols, tup))
	}

	rec := MemberRecord{
		ID:         id,
		FirstName:  first,
		LastName:   last,
		Email:      email,
		Phone:      schema.MemberPhone.PickString(cols, tup),
		Gender:     coerce.Gender(schema.MemberGender.PickString(cols, tup)),
		PackageRef: schema.MemberPackage.PickString(cols, tup),
		GymID:      tenantID,
		CreatedAt:  today,
	}
	if iso, ok := coerce.Date(schema.MemberDOB.PickString(cols, tup)); ok {
		rec.DOB = iso
	}
	if iso, ok := coerce.Date(schema.MemberExpiry.PickString(cols, tup)); ok {
		rec.Expiry = iso
	}
	if iso, ok := coerce.Date(schema.MemberCreated.PickString(cols, tup)); ok {
		rec.CreatedAt = iso
	}

	// A source QR payload fills gaps the plain columns left open.
	if qr, ok := coerce.QRPayload(schema.MemberQR.PickString(cols, tup)); ok {
		if rec.PackageRef == "" {
			rec.PackageRef = qr.Package
		}
		if rec.Expiry == "" {
			if iso, ok := coerce.Date(qr.Expiry); ok {
				rec.Expiry = iso
			}
		}
		if rec.Gender == "" && qr.Gender != "" {
			rec.Gender = coerce.Gender(qr.Gender)
		}
	}
	return rec, true
}

// enrich fills still-missing package, expiry, and gender from the
// reconciliation maps. Present values are never overwritten.
func enrich(rec *MemberRecord, maps reconcile.Maps) (string, bool) {
	e, source, ok := maps.Lookup(rec.ID, rec.Email, rec.Phone)
	if !ok {
		return "", false
	}
	changed := false
	if rec.PackageRef == "" && e.PackageRef != "" {
		rec.PackageRef = e.PackageRef
		changed = true
	}
	if rec.Expiry == "" && e.Expiry != "" {
		rec.Expiry = e.Expiry
		changed = true
	}
	if rec.Gender == "" && e.Gender != "" {
		rec.Gender = e.Gender
		changed = true
	}
	if !changed {
		return "", false
	}
	return source, true
}

// finalizeMember derives the fields that depend on the fully enriched
// record: membership status and the generated QR payload.
func finalizeMember(rec *MemberRecord, today string) {
	if rec.Expiry != "" && rec.Expiry >= today {
		rec.Status = "active"
	} else {
		rec.Status = "expired"
	}
	rec.QRPayload = memberQR(rec)
}

func memberQR(rec *MemberRecord) string {
	identity := rec.ID
	if identity == "" {
		identity = rec.Email
	}
	buf, err := json.Marshal(struct {
		MemberID string `json:"memberId"`
		Package  string `json:"package,omitempty"`
		Expiry   string `json:"expiryDate,omitempty"`
	}{identity, rec.PackageRef, rec.Expiry})
	if err != nil {
		return ""
	}
	return string(buf)
}

func fieldsOf(rec MemberRecord) FieldSet {
	return FieldSet{Package: rec.PackageRef, Expiry: rec.Expiry, Gender: rec.Gender}
}

func countGaps(g *FieldGaps, rec MemberRecord) {
	if rec.PackageRef == "" {
		g.Package++
	}
	if rec.Expiry == "" {
		g.Expiry++
	}
	if rec.Gender == "" {
		g.Gender++
	}
}
