// Package reconcile folds payment and subscription rows into per-identity
// lookup maps used to backfill member records.
//
// Design goals:
//   - one pass over the payment rows, no retained parse state
//   - "latest expiry wins" per key, so re-runs converge on the same map
//   - identity keys normalized once here so every consumer agrees
package reconcile

import (
	"strings"
	"unicode/utf8"

	"dumpmigrate/internal/coerce"
	"dumpmigrate/internal/schema"
	"dumpmigrate/internal/sqldump"
)

// SettledStatuses lists the substrings that mark a payment row as
// successfully settled. Matching is case-insensitive containment, so vendor
// spellings like "Payment_Completed" or "PAID IN FULL" qualify.
var SettledStatuses = []string{"completed", "complete", "paid", "success", "active"}

// Settled reports whether a raw status value indicates a successful
// transaction.
func Settled(status string) bool {
	s := strings.ToLower(status)
	for _, marker := range SettledStatuses {
		if strings.Contains(s, marker) {
			return true
		}
	}
	return false
}

// Entry is the best known transaction outcome for one identity key.
type Entry struct {
	PackageRef string
	Expiry     string // ISO YYYY-MM-DD, empty when the row had no usable date
	Gender     string
}

// Maps holds the three parallel lookup tables built from payment rows.
type Maps struct {
	ByID    map[string]Entry
	ByEmail map[string]Entry
	ByPhone map[string]Entry
}

// NewMaps returns empty, ready-to-use lookup maps.
func NewMaps() Maps {
	return Maps{
		ByID:    make(map[string]Entry),
		ByEmail: make(map[string]Entry),
		ByPhone: make(map[string]Entry),
	}
}

// Skip records a payment row dropped for having no identity key at all.
type Skip struct {
	Table       string
	Snippet     string
	Fingerprint string
}

// Result is the outcome of one Build pass.
type Result struct {
	Maps    Maps
	Rows    int    // payment rows scanned
	Settled int    // rows folded into the maps
	Skips   []Skip // rows with no id, email, or phone
}

// Build scans payment rows and folds every settled row into the lookup maps.
// Rows with no user id, email, or phone are skipped and reported; rows whose
// status does not read as settled are scanned but contribute nothing.
func Build(block sqldump.Block) Result {
	res := Result{Maps: NewMaps()}
	for _, tup := range block.Tuples {
		res.Rows++

		id := schema.PaymentUserID.PickString(block.Columns, tup)
		email := NormalizeEmail(schema.PaymentEmail.PickString(block.Columns, tup))
		phone := NormalizePhone(schema.PaymentPhone.PickString(block.Columns, tup))
		if id == "" && email == "" && phone == "" {
			res.Skips = append(res.Skips, Skip{
				Table:       block.Table,
				Snippet:     Snippet(tup.Raw),
				Fingerprint: sqldump.Fingerprint(tup.Raw),
			})
			continue
		}
		if !Settled(schema.PaymentStatus.PickString(block.Columns, tup)) {
			continue
		}

		entry := Entry{
			PackageRef: schema.PaymentPackage.PickString(block.Columns, tup),
			Gender:     coerce.Gender(schema.PaymentGender.PickString(block.Columns, tup)),
		}
		if iso, ok := coerce.Date(schema.PaymentExpiry.PickString(block.Columns, tup)); ok {
			entry.Expiry = iso
		}

		res.Settled++
		put(res.Maps.ByID, id, entry)
		put(res.Maps.ByEmail, email, entry)
		put(res.Maps.ByPhone, phone, entry)
	}
	return res
}

// put applies the latest-expiry-wins rule: the incoming entry replaces the
// stored one when the stored entry has no expiry or an earlier-or-equal one.
// ISO dates compare correctly as plain strings. Empty keys are ignored.
func put(table map[string]Entry, key string, e Entry) {
	if key == "" {
		return
	}
	stored, ok := table[key]
	if !ok || stored.Expiry == "" || stored.Expiry <= e.Expiry {
		table[key] = e
	}
}

// Lookup finds the best entry for a member, trying id first, then email,
// then phone. The source names which key matched, for diagnostics.
func (m Maps) Lookup(id, email, phone string) (Entry, string, bool) {
	if key := strings.TrimSpace(id); key != "" {
		if e, ok := m.ByID[key]; ok {
			return e, "id", true
		}
	}
	if key := NormalizeEmail(email); key != "" {
		if e, ok := m.ByEmail[key]; ok {
			return e, "email", true
		}
	}
	if key := NormalizePhone(phone); key != "" {
		if e, ok := m.ByPhone[key]; ok {
			return e, "phone", true
		}
	}
	return Entry{}, "", false
}

// NormalizeEmail lowercases and trims an email for use as a map key.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizePhone strips everything but digits, so "+1 (555) 010-0199" and
// "15550100199" collide as intended.
func NormalizePhone(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// snippetLen caps the raw-row excerpt attached to skip warnings.
const snippetLen = 120

// Snippet truncates a raw tuple for inclusion in a warning message, backing
// off to a rune boundary so the excerpt stays valid UTF-8.
func Snippet(raw string) string {
	s := strings.TrimSpace(raw)
	if len(s) <= snippetLen {
		return s
	}
	cut := snippetLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
