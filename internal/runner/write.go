package runner

import (
	"context"
	"log"
	"time"

	"dumpmigrate/internal/metrics"
	"dumpmigrate/internal/plan"
	"dumpmigrate/internal/store"
)

// batchErrs accumulates batch failures without letting a pathological run
// balloon the result payload. The first limit failures are kept verbatim,
// the rest only bump the total.
type batchErrs struct {
	limit  int
	total  int
	errors []BatchError
}

func (a *batchErrs) add(e BatchError) {
	a.total++
	if len(a.errors) < a.limit {
		a.errors = append(a.errors, e)
	}
}

type writeStats struct {
	written int64
	batches int
}

// writer pushes rows to the store in bounded batches.
type writer struct {
	st        store.Store
	batchSize int
	runID     string
}

// write upserts rows in batches of w.batchSize. A failed batch is recorded in
// agg and the remaining batches still run; only context cancellation stops
// the loop early. onBatch is called with the row count of every attempted
// batch, success or not.
func (w writer) write(ctx context.Context, table string, rows []store.Row, conflictCols []string, agg *batchErrs, onBatch func(int)) (writeStats, error) {
	var stats writeStats
	start := time.Now()

	for lo := 0; lo < len(rows); lo += w.batchSize {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		default:
		}

		hi := min(lo+w.batchSize, len(rows))
		chunk := rows[lo:hi]
		stats.batches++

		n, err := w.st.Upsert(ctx, table, chunk, conflictCols)
		metrics.RecordBatches(table, 1)
		if err != nil {
			agg.add(BatchError{Batch: stats.batches, Rows: len(chunk), Err: err.Error()})
			log.Printf("migrate: run=%s %s batch #%d failed: rows=%d err=%v",
				w.runID, table, stats.batches, len(chunk), err)
		} else {
			stats.written += n
			metrics.RecordRows(table, "written", n)
			elapsed := time.Since(start)
			rps := float64(stats.written)
			if s := elapsed.Seconds(); s > 0 {
				rps = float64(stats.written) / s
			}
			log.Printf("migrate: run=%s %s batch #%d: rps=%.0f written=%d total_written=%d elapsed=%s",
				w.runID, table, stats.batches, rps, n, stats.written,
				elapsed.Truncate(time.Millisecond))
		}
		onBatch(len(chunk))
	}
	return stats, nil
}

// memberRows shapes member records for the members table. Every row carries
// the full column set, with nil standing in for absent values, so a batch
// always renders one statement shape. Records without an id get one assigned
// here rather than leaning on column defaults.
func memberRows(members []plan.MemberRecord) []store.Row {
	rows := make([]store.Row, len(members))
	for i, m := range members {
		if m.ID == "" {
			m.ID = newID()
		}
		rows[i] = store.Row{
			"id":                m.ID,
			"first_name":        nz(m.FirstName),
			"last_name":         nz(m.LastName),
			"email":             nz(m.Email),
			"phone":             nz(m.Phone),
			"gender":            nz(m.Gender),
			"dob":               nz(m.DOB),
			"status":            nz(m.Status),
			"package_id":        nz(m.PackageRef),
			"membership_expiry": nz(m.Expiry),
			"qr_payload":        nz(m.QRPayload),
			"gym_id":            nz(m.GymID),
			"created_at":        nz(m.CreatedAt),
		}
	}
	return rows
}

// staffRows shapes staff records for the staff table, same column discipline
// as memberRows.
func staffRows(staff []plan.StaffRecord) []store.Row {
	rows := make([]store.Row, len(staff))
	for i, s := range staff {
		if s.ID == "" {
			s.ID = newID()
		}
		rows[i] = store.Row{
			"id":         s.ID,
			"first_name": nz(s.FirstName),
			"last_name":  nz(s.LastName),
			"email":      nz(s.Email),
			"phone":      nz(s.Phone),
			"role":       nz(s.Role),
			"role_id":    nz(s.RoleID),
			"hire_date":  nz(s.HireDate),
			"qr_payload": nz(s.QRPayload),
			"gym_id":     nz(s.GymID),
		}
	}
	return rows
}

// nz maps empty strings to nil so date and foreign-key columns receive SQL
// NULL instead of an empty string the store would reject.
func nz(s string) any {
	if s == "" {
		return nil
	}
	return s
}
