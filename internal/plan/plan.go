// Package plan turns raw dump text into a migration plan: typed member,
// staff, and package records plus the diagnostics an operator needs to judge
// the plan before anything is written.
//
// Design goals:
//   - one plan per invocation, built fresh from the full dump text
//   - every parsed member row is either kept, skipped with a reason, or
//     reported as a duplicate; none vanish silently
//   - enrichment only fills gaps, it never overwrites source values
package plan

import (
	"fmt"
	"strings"
	"time"

	"dumpmigrate/internal/coerce"
	"dumpmigrate/internal/reconcile"
	"dumpmigrate/internal/sqldump"
)

// MemberRecord is one migrated member, shaped for the members target table.
type MemberRecord struct {
	ID         string // legacy id, empty when the store should assign one
	FirstName  string
	LastName   string
	Email      string // dedup and upsert key
	Phone      string
	Gender     string
	DOB        string // ISO date or empty
	Status     string // active or expired, derived from Expiry
	PackageRef string // legacy package name or canonical id
	Expiry     string // ISO date or empty
	QRPayload  string // generated, embeds identity, package, and expiry
	GymID      string // target tenant
	CreatedAt  string
}

// StaffRecord is one migrated staff row. Role is free text here; the run
// driver maps it to a role id against the target store.
type StaffRecord struct {
	ID        string
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Role      string
	RoleID    string // filled during run-mode reference resolution
	HireDate  string
	QRPayload string
	GymID     string
}

// PackageRow is one migrated membership package. Rows the dump never defined
// are synthesized with placeholder pricing so member references resolve.
type PackageRow struct {
	Name         string
	Price        float64
	DurationDays int
	AccessLevel  string
	GymID        string
}

// SkippedRow records a member row dropped from the plan and why.
type SkippedRow struct {
	Table       string `json:"table"`
	Reason      string `json:"reason"`
	Snippet     string `json:"snippet"`
	Fingerprint string `json:"fingerprint"`
}

// FieldSet holds the three enrichable member fields at one point in time.
type FieldSet struct {
	Package string `json:"package"`
	Expiry  string `json:"expiry"`
	Gender  string `json:"gender"`
}

// FieldGaps counts members missing each enrichable field.
type FieldGaps struct {
	Package int `json:"package"`
	Expiry  int `json:"expiry"`
	Gender  int `json:"gender"`
}

// EnrichmentSample is one member whose reconciliation lookup changed a field,
// kept for operator review.
type EnrichmentSample struct {
	ID     string   `json:"id,omitempty"`
	Email  string   `json:"email,omitempty"`
	Before FieldSet `json:"before"`
	After  FieldSet `json:"after"`
	Source string   `json:"source"` // which lookup key matched: id, email, or phone
}

// DuplicateSample identifies a member row dropped by email deduplication.
type DuplicateSample struct {
	Email       string `json:"email"`
	Fingerprint string `json:"fingerprint"`
}

// Diagnostics summarizes what building the plan did to the member rows.
type Diagnostics struct {
	TotalMemberRows  int                `json:"totalMemberRows"`
	GapsBefore       FieldGaps          `json:"gapsBefore"`
	GapsAfter        FieldGaps          `json:"gapsAfter"`
	Samples          []EnrichmentSample `json:"samples,omitempty"`
	DuplicateEmails  int                `json:"duplicateEmails"`
	DuplicateSamples []DuplicateSample  `json:"duplicateSamples,omitempty"`
}

// Plan is the full output of one build: the three record sets plus
// everything an operator needs to audit them.
type Plan struct {
	Members         []MemberRecord
	Staff           []StaffRecord
	Packages        []PackageRow
	SkippedPayments int
	SkippedRows     []SkippedRow
	Warnings        []string
	DetectedTables  []string
	Diagnostics     Diagnostics
}

// maxSamples caps the per-category diagnostic examples kept in a plan.
const maxSamples = 20

// nowFn is a seam for tests that need a fixed "today".
var nowFn = time.Now

// Build parses the dump text and assembles the complete migration plan for
// one tenant. It never writes anywhere.
func Build(dump, tenantID string) *Plan {
	p := &Plan{DetectedTables: sqldump.Tables(dump)}
	today := nowFn().UTC().Format(coerce.ISODate)

	maps := buildReconciliation(dump, p)
	buildMembers(dump, tenantID, today, maps, p)
	buildStaff(dump, tenantID, today, p)
	buildPackages(dump, tenantID, p)
	return p
}

// paymentTables is the source-table fallback chain for transaction rows.
var paymentTables = []string{"payments", "subscriptions", "memberships"}

// TableRole reports which part of the plan reads the given source table:
// "members", "staff", "packages", or "payments". Unrecognized tables return
// the empty string; the engine ignores them. The name may be schema-qualified
// as written in the dump.
func TableRole(table string) string {
	t := strings.ToLower(table)
	if i := strings.LastIndexByte(t, '.'); i >= 0 {
		t = t[i+1:]
	}

	if t == "users" {
		return "members"
	}
	if t == "staff" {
		return "staff"
	}
	for _, rt := range roleTables {
		if t == rt {
			return "staff"
		}
	}
	for _, pt := range packageTables {
		if t == pt {
			return "packages"
		}
	}
	for _, pt := range paymentTables {
		if t == pt {
			return "payments"
		}
	}
	return ""
}

func buildReconciliation(dump string, p *Plan) reconcile.Maps {
	block, ok := sqldump.ExtractFirst(dump, paymentTables...)
	if !ok {
		return reconcile.NewMaps()
	}
	res := reconcile.Build(block)
	p.SkippedPayments = len(res.Skips)
	for _, s := range res.Skips {
		p.Warnings = append(p.Warnings, fmt.Sprintf(
			"skipped payment row in %s (no id, email, or phone) [%s]: %s",
			s.Table, s.Fingerprint, s.Snippet))
	}
	return res.Maps
}
