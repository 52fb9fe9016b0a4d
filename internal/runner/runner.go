// Package runner executes migration plans against a target store.
//
// Preview builds a plan and returns it untouched; Run pushes the same plan
// through reference resolution, batched upserts, and verification.
//
// Design goals:
//   - preview never opens a store connection, let alone writes
//   - reference resolution failures abort before any member or staff row
//     lands; batch failures after that point are recorded and skipped over
//   - progress is observable from outside through a pluggable event sink
package runner

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"dumpmigrate/internal/metrics"
	"dumpmigrate/internal/plan"
	"dumpmigrate/internal/store"

	"github.com/google/uuid"
)

// Phase names one stage of a migration run, in execution order.
type Phase string

const (
	PhasePreviewing Phase = "Previewing"
	PhaseResolving  Phase = "ResolvingReferences"
	PhaseMembers    Phase = "WritingMembers"
	PhaseStaff      Phase = "WritingStaff"
	PhaseVerifying  Phase = "Verifying"
	PhaseDone       Phase = "Done"
	PhaseFailed     Phase = "Failed"
)

// DefaultBatchSize is the upsert batch size when Options does not set one.
const DefaultBatchSize = 200

// errCap bounds how many batch failures are kept verbatim per entity;
// failures past the cap still count toward the totals.
const errCap = 25

// newID is a seam for tests that need deterministic identifiers.
var newID = uuid.NewString

// Event is one progress update published while a run executes.
type Event struct {
	RunID   string  `json:"runId"`
	Phase   Phase   `json:"phase"`
	Percent float64 `json:"percent"`
	Message string  `json:"message,omitempty"`
}

// Sink receives progress events. The run executes on the caller's goroutine,
// so Publish should return quickly.
type Sink interface {
	Publish(Event)
}

// SinkFunc adapts a plain function to the Sink interface.
type SinkFunc func(Event)

// Publish implements Sink.
func (f SinkFunc) Publish(e Event) { f(e) }

type nopSink struct{}

func (nopSink) Publish(Event) {}

// Options configures a run.
type Options struct {
	// Store is the target store. Required unless DryRun is set.
	Store store.Store

	// BatchSize bounds rows per upsert statement. Zero means DefaultBatchSize.
	BatchSize int

	// DryRun plans and reports but writes nothing.
	DryRun bool

	// Progress receives phase and percent events. Nil means no reporting.
	Progress Sink
}

// PreviewResult is everything an operator needs to judge a plan before
// committing to a run.
type PreviewResult struct {
	MemberCount     int               `json:"memberCount"`
	StaffCount      int               `json:"staffCount"`
	PackageCount    int               `json:"packageCount"`
	SkippedPayments int               `json:"skippedPayments"`
	SkippedRows     []plan.SkippedRow `json:"skippedRows"`
	Warnings        []string          `json:"warnings,omitempty"`
	DetectedTables  []string          `json:"detectedTables"`
	Diagnostics     plan.Diagnostics  `json:"diagnostics"`

	// Plan is the full underlying plan, for SQL document generation.
	Plan *plan.Plan `json:"-"`
}

// BatchError records one failed upsert batch.
type BatchError struct {
	Batch int    `json:"batch"` // 1-based within its entity
	Rows  int    `json:"rows"`
	Err   string `json:"error"`
}

// RunDiagnostics reports what the write phases actually did.
type RunDiagnostics struct {
	PackagesCreated    int          `json:"packagesCreated"`
	PackageMapSize     int          `json:"packageMapSize"`
	RolesCreated       int          `json:"rolesCreated"`
	MemberBatches      int          `json:"memberBatches"`
	StaffBatches       int          `json:"staffBatches"`
	MemberUpsertErrors []BatchError `json:"memberUpsertErrors,omitempty"`
	StaffUpsertErrors  []BatchError `json:"staffUpsertErrors,omitempty"`
	UpsertErrorsTotal  int          `json:"upsertErrorsTotal"`

	// Verified counts are nil when the verification query failed; a failed
	// count never fails the run.
	VerifiedMembers *int64 `json:"verifiedMembers"`
	VerifiedStaff   *int64 `json:"verifiedStaff"`
}

// RunResult is the final outcome of one run.
type RunResult struct {
	RunID           string         `json:"runId"`
	TenantID        string         `json:"tenantId"`
	DryRun          bool           `json:"dryRun,omitempty"`
	MemberCount     int            `json:"memberCount"`
	StaffCount      int            `json:"staffCount"`
	PackageCount    int            `json:"packageCount"`
	SkippedPayments int            `json:"skippedPayments"`
	MembersWritten  int64          `json:"membersWritten"`
	StaffWritten    int64          `json:"staffWritten"`
	Diagnostics     RunDiagnostics `json:"diagnostics"`
	Preview         *PreviewResult `json:"preview,omitempty"`
}

// Preview parses the dump and builds the full migration plan without touching
// any store. Empty input is rejected before parsing starts.
func Preview(ctx context.Context, dump, tenantID string) (*PreviewResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(dump) == "" {
		return nil, errors.New("runner: dump text is empty")
	}
	if strings.TrimSpace(tenantID) == "" {
		return nil, errors.New("runner: tenant id is required")
	}

	p := plan.Build(dump, tenantID)

	// Every parsed member row must be accounted for: kept, skipped, or
	// reported as a duplicate.
	d := p.Diagnostics
	if got := len(p.SkippedRows) + d.DuplicateEmails + len(p.Members); got != d.TotalMemberRows {
		log.Printf("WARNING: member accounting mismatch: kept+skipped+duplicates=%d parsed=%d",
			got, d.TotalMemberRows)
	}

	return &PreviewResult{
		MemberCount:     len(p.Members),
		StaffCount:      len(p.Staff),
		PackageCount:    len(p.Packages),
		SkippedPayments: p.SkippedPayments,
		SkippedRows:     p.SkippedRows,
		Warnings:        p.Warnings,
		DetectedTables:  p.DetectedTables,
		Diagnostics:     p.Diagnostics,
		Plan:            p,
	}, nil
}

// Run plans the migration and executes it against opts.Store.
//
// Reference resolution failures are fatal and abort before any member or
// staff write. Batch upsert failures are recorded in the diagnostics and the
// remaining batches still run. Verification failures only null the verified
// counts.
func Run(ctx context.Context, dump, tenantID string, opts Options) (*RunResult, error) {
	if opts.Store == nil && !opts.DryRun {
		return nil, errors.New("runner: store is required unless DryRun is set")
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	sink := opts.Progress
	if sink == nil {
		sink = nopSink{}
	}

	runID := newID()
	started := time.Now()
	emit := func(phase Phase, pct float64, msg string) {
		sink.Publish(Event{RunID: runID, Phase: phase, Percent: pct, Message: msg})
	}

	emit(PhasePreviewing, 0, "")
	t := time.Now()
	pv, err := Preview(ctx, dump, tenantID)
	metrics.RecordPhase(tenantID, string(PhasePreviewing), err, time.Since(t))
	if err != nil {
		emit(PhaseFailed, 0, err.Error())
		return nil, err
	}
	p := pv.Plan

	res := &RunResult{
		RunID:           runID,
		TenantID:        tenantID,
		DryRun:          opts.DryRun,
		MemberCount:     pv.MemberCount,
		StaffCount:      pv.StaffCount,
		PackageCount:    pv.PackageCount,
		SkippedPayments: pv.SkippedPayments,
		Preview:         pv,
	}

	metrics.RecordRows("members", "parsed", int64(p.Diagnostics.TotalMemberRows))
	metrics.RecordRows("members", "planned", int64(len(p.Members)))
	metrics.RecordRows("members", "skipped", int64(len(p.SkippedRows)))
	metrics.RecordRows("members", "duplicate", int64(p.Diagnostics.DuplicateEmails))
	metrics.RecordRows("staff", "planned", int64(len(p.Staff)))
	metrics.RecordRows("packages", "planned", int64(len(p.Packages)))
	metrics.RecordRows("payments", "skipped", int64(p.SkippedPayments))

	log.Printf("migrate: run=%s tenant=%s plan ready: members=%d staff=%d packages=%d skipped_rows=%d duplicate_emails=%d skipped_payments=%d",
		runID, tenantID, len(p.Members), len(p.Staff), len(p.Packages),
		len(p.SkippedRows), p.Diagnostics.DuplicateEmails, p.SkippedPayments)

	if opts.DryRun {
		emit(PhaseDone, 100, "dry run, nothing written")
		log.Printf("migrate: run=%s dry run complete elapsed=%s",
			runID, time.Since(started).Truncate(time.Millisecond))
		return res, nil
	}

	st := opts.Store

	// No member or staff row may land pointing at a package or role that
	// failed to materialize, so resolution failures abort the whole run.
	emit(PhaseResolving, 0, "")
	t = time.Now()
	pkgIDs, pkgCreated, err := resolvePackages(ctx, st, p.Packages)
	var roleIDs map[string]string
	var rolesCreated int
	if err == nil {
		roleIDs, rolesCreated, err = resolveRoles(ctx, st, p.Staff, tenantID)
	}
	metrics.RecordPhase(tenantID, string(PhaseResolving), err, time.Since(t))
	if err != nil {
		emit(PhaseFailed, 0, err.Error())
		log.Printf("migrate: run=%s reference resolution failed: %v", runID, err)
		return nil, fmt.Errorf("resolve references: %w", err)
	}
	res.Diagnostics.PackagesCreated = pkgCreated
	res.Diagnostics.PackageMapSize = len(pkgIDs)
	res.Diagnostics.RolesCreated = rolesCreated
	log.Printf("migrate: run=%s references resolved: packages_created=%d package_map=%d roles_created=%d",
		runID, pkgCreated, len(pkgIDs), rolesCreated)

	members, unmapped := mapMemberPackages(p.Members, pkgIDs)
	for _, name := range unmapped {
		log.Printf("migrate: run=%s package reference %q missing after resolution", runID, name)
	}
	staff := mapStaffRoles(p.Staff, roleIDs)

	totalRows := len(members) + len(staff)
	attempted := 0
	onBatch := func(phase Phase) func(int) {
		return func(rows int) {
			attempted += rows
			emit(phase, percent(attempted, totalRows), "")
		}
	}

	w := writer{st: st, batchSize: opts.BatchSize, runID: runID}

	emit(PhaseMembers, percent(attempted, totalRows), "")
	memberAgg := &batchErrs{limit: errCap}
	t = time.Now()
	ms, err := w.write(ctx, "members", memberRows(members), []string{"email"}, memberAgg, onBatch(PhaseMembers))
	metrics.RecordPhase(tenantID, string(PhaseMembers), err, time.Since(t))
	res.MembersWritten = ms.written
	res.Diagnostics.MemberBatches = ms.batches
	res.Diagnostics.MemberUpsertErrors = memberAgg.errors
	if err != nil {
		emit(PhaseFailed, percent(attempted, totalRows), err.Error())
		return nil, err
	}

	emit(PhaseStaff, percent(attempted, totalRows), "")
	staffAgg := &batchErrs{limit: errCap}
	t = time.Now()
	ss, err := w.write(ctx, "staff", staffRows(staff), []string{"email"}, staffAgg, onBatch(PhaseStaff))
	metrics.RecordPhase(tenantID, string(PhaseStaff), err, time.Since(t))
	res.StaffWritten = ss.written
	res.Diagnostics.StaffBatches = ss.batches
	res.Diagnostics.StaffUpsertErrors = staffAgg.errors
	if err != nil {
		emit(PhaseFailed, percent(attempted, totalRows), err.Error())
		return nil, err
	}
	res.Diagnostics.UpsertErrorsTotal = memberAgg.total + staffAgg.total

	emit(PhaseVerifying, 100, "")
	t = time.Now()
	res.Diagnostics.VerifiedMembers = countRows(ctx, st, "members", tenantID, runID)
	res.Diagnostics.VerifiedStaff = countRows(ctx, st, "staff", tenantID, runID)
	metrics.RecordPhase(tenantID, string(PhaseVerifying), nil, time.Since(t))

	emit(PhaseDone, 100, "")
	log.Printf("migrate: run=%s done: members_written=%d staff_written=%d batch_errors=%d verified_members=%s verified_staff=%s elapsed=%s",
		runID, res.MembersWritten, res.StaffWritten, res.Diagnostics.UpsertErrorsTotal,
		countStr(res.Diagnostics.VerifiedMembers), countStr(res.Diagnostics.VerifiedStaff),
		time.Since(started).Truncate(time.Millisecond))
	return res, nil
}

// countRows runs a tenant-scoped count, returning nil instead of failing the
// run when the store cannot answer.
func countRows(ctx context.Context, st store.Store, table, tenantID, runID string) *int64 {
	n, err := st.Count(ctx, table, store.Filter{"gym_id": tenantID})
	if err != nil {
		log.Printf("migrate: run=%s verification count failed table=%s err=%v", runID, table, err)
		return nil
	}
	return &n
}

func countStr(n *int64) string {
	if n == nil {
		return "unknown"
	}
	return fmt.Sprintf("%d", *n)
}

func percent(done, total int) float64 {
	if total == 0 {
		return 100
	}
	return float64(done) / float64(total) * 100
}
