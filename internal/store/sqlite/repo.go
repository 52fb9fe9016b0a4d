// Package sqlite implements the migration Store on SQLite using
// database/sql. It is the zero-infrastructure backend: point the DSN at a
// file and the full run path works, which is what the tests and local
// rehearsal migrations use.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	// SQLite driver; replace with your preferred driver if desired.
	_ "modernc.org/sqlite" // alternative: github.com/mattn/go-sqlite3

	"dumpmigrate/internal/store"
)

// Config holds SQLite connection configuration.
type Config struct {
	DSN string
}

// Repository is a SQLite-backed implementation of store.Store.
type Repository struct {
	db *sql.DB
}

// NewRepository opens a SQLite connection using the provided DSN and returns
// a Repository plus a Close function for cleanup.
//
// DSN is passed directly to database/sql; for example:
//
//	"file:migrate.db?cache=shared&_fk=1"
//	"migrate.db"
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, nil, fmt.Errorf("sqlite: DSN must not be empty")
	}

	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("sqlite: open: %w", err)
	}

	// Fail fast on invalid DSNs.
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("sqlite: ping: %w", err)
	}

	// Enable foreign keys by default; ignore error if driver doesn't support it.
	_, _ = db.ExecContext(ctx, "PRAGMA foreign_keys = ON;")

	closeFn := func() { db.Close() }
	return &Repository{db: db}, closeFn, nil
}

// Find returns every row of table matching the filter.
func (r *Repository) Find(ctx context.Context, table string, filter store.Filter) ([]store.Row, error) {
	where, args := whereClause(filter)
	rows, err := r.db.QueryContext(ctx, "SELECT * FROM "+quoteIdent(table)+where, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query %s: %w", table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("sqlite: columns: %w", err)
	}

	var out []store.Row
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("sqlite: scan: %w", err)
		}
		row := make(store.Row, len(cols))
		for i, c := range cols {
			v := vals[i]
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			row[c] = v
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: rows: %w", err)
	}
	return out, nil
}

// Upsert writes rows in one multi-row statement upserting on conflictCols.
func (r *Repository) Upsert(ctx context.Context, table string, rows []store.Row, conflictCols []string) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	stmt, args := upsertSQL(table, rows, conflictCols)
	res, err := r.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("sqlite: upsert %s: %w", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: rows affected: %w", err)
	}
	return n, nil
}

// Count returns the number of rows of table matching the filter.
func (r *Repository) Count(ctx context.Context, table string, filter store.Filter) (int64, error) {
	where, args := whereClause(filter)
	var n int64
	if err := r.db.QueryRowContext(ctx, "SELECT count(*) FROM "+quoteIdent(table)+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: count %s: %w", table, err)
	}
	return n, nil
}

// Exec executes an arbitrary SQL statement (typically DDL).
func (r *Repository) Exec(ctx context.Context, sqlText string) error {
	if strings.TrimSpace(sqlText) == "" {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, sqlText); err != nil {
		return fmt.Errorf("sqlite: exec: %w", err)
	}
	return nil
}

// upsertSQL renders the multi-row upsert with ? placeholders. The column
// order is the sorted union of keys across rows; a row missing a column
// contributes NULL.
func upsertSQL(table string, rows []store.Row, conflictCols []string) (string, []any) {
	cols := columnUnion(rows)

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES ", quoteIdent(table), strings.Join(quoteAll(cols), ", "))

	args := make([]any, 0, len(cols)*len(rows))
	ph := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ") + ")"
	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(ph)
		for _, c := range cols {
			args = append(args, row[c])
		}
	}

	if len(conflictCols) > 0 {
		var sets []string
		skip := make(map[string]struct{}, len(conflictCols))
		for _, c := range conflictCols {
			skip[c] = struct{}{}
		}
		for _, c := range cols {
			if _, ok := skip[c]; ok {
				continue
			}
			sets = append(sets, fmt.Sprintf("%s = excluded.%s", quoteIdent(c), quoteIdent(c)))
		}
		fmt.Fprintf(&b, " ON CONFLICT (%s)", strings.Join(quoteAll(conflictCols), ", "))
		if len(sets) == 0 {
			b.WriteString(" DO NOTHING")
		} else {
			b.WriteString(" DO UPDATE SET " + strings.Join(sets, ", "))
		}
	}
	return b.String(), args
}

func columnUnion(rows []store.Row) []string {
	set := make(map[string]struct{})
	for _, r := range rows {
		for k := range r {
			set[k] = struct{}{}
		}
	}
	cols := make([]string, 0, len(set))
	for k := range set {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

// whereClause renders a deterministic WHERE clause from a filter map.
func whereClause(filter store.Filter) (string, []any) {
	if len(filter) == 0 {
		return "", nil
	}
	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	conds := make([]string, len(keys))
	args := make([]any, len(keys))
	for i, k := range keys {
		conds[i] = quoteIdent(k) + " = ?"
		args[i] = filter[k]
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// quoteIdent quotes an identifier with double quotes, SQLite style.
func quoteIdent(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }

func quoteAll(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = quoteIdent(c)
	}
	return out
}
