// Package mysql implements the migration Store on MySQL/MariaDB using
// database/sql. Legacy gym deployments commonly run on MySQL, so the engine
// can write straight into one. Upserts use INSERT ... ON DUPLICATE KEY
// UPDATE; MySQL resolves the conflict against whichever unique key collides
// rather than a declared column list, and the bootstrap schema declares
// exactly the unique keys the engine upserts on, so the two coincide.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	// MySQL driver.
	_ "github.com/go-sql-driver/mysql"

	"dumpmigrate/internal/store"
)

// Config holds MySQL connection configuration.
type Config struct {
	DSN string
}

// Repository is a MySQL-backed implementation of store.Store.
type Repository struct {
	db *sql.DB
}

// NewRepository opens a MySQL connection using the provided DSN and returns
// a Repository plus a Close function for cleanup.
//
// DSN is in go-sql-driver form, for example:
//
//	"gym:secret@tcp(localhost:3306)/gymdb"
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, nil, fmt.Errorf("mysql: DSN must not be empty")
	}

	db, err := sql.Open("mysql", cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("mysql: open: %w", err)
	}

	// Fail fast on unreachable servers and bad credentials.
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("mysql: ping: %w", err)
	}

	closeFn := func() { db.Close() }
	return &Repository{db: db}, closeFn, nil
}

// Find returns every row of table matching the filter.
func (r *Repository) Find(ctx context.Context, table string, filter store.Filter) ([]store.Row, error) {
	where, args := whereClause(filter)
	rows, err := r.db.QueryContext(ctx, "SELECT * FROM "+quoteIdent(table)+where, args...)
	if err != nil {
		return nil, fmt.Errorf("mysql: query %s: %w", table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("mysql: columns: %w", err)
	}

	var out []store.Row
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("mysql: scan: %w", err)
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
		return nil, fmt.Errorf("mysql: rows: %w", err)
	}
	return out, nil
}

// Upsert writes rows in one multi-row statement upserting on the colliding
// unique key. The returned count is the number of rows in the statement:
// MySQL's affected-rows convention (1 per insert, 2 per update, 0 per
// no-change) makes RowsAffected useless as a written-rows figure.
func (r *Repository) Upsert(ctx context.Context, table string, rows []store.Row, conflictCols []string) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	stmt, args := upsertSQL(table, rows, conflictCols)
	if _, err := r.db.ExecContext(ctx, stmt, args...); err != nil {
		return 0, fmt.Errorf("mysql: upsert %s: %w", table, err)
	}
	return int64(len(rows)), nil
}

// Count returns the number of rows of table matching the filter.
func (r *Repository) Count(ctx context.Context, table string, filter store.Filter) (int64, error) {
	where, args := whereClause(filter)
	var n int64
	if err := r.db.QueryRowContext(ctx, "SELECT count(*) FROM "+quoteIdent(table)+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("mysql: count %s: %w", table, err)
	}
	return n, nil
}

// Exec executes an arbitrary SQL statement (typically DDL).
func (r *Repository) Exec(ctx context.Context, sqlText string) error {
	if strings.TrimSpace(sqlText) == "" {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, sqlText); err != nil {
		return fmt.Errorf("mysql: exec: %w", err)
	}
	return nil
}

// upsertSQL renders the multi-row upsert with ? placeholders. The column
// order is the sorted union of keys across rows; a row missing a column
// contributes NULL. conflictCols only decides which columns the update
// clause rewrites; the conflict target itself is whichever unique key
// collides, MySQL not supporting a declared target.
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
			// VALUES() is deprecated since MySQL 8.0.20 but still the only
			// spelling older servers and MariaDB both accept.
			sets = append(sets, fmt.Sprintf("%s = VALUES(%s)", quoteIdent(c), quoteIdent(c)))
		}
		if len(sets) == 0 {
			// MySQL has no DO NOTHING; self-assignment is the no-op idiom.
			k := quoteIdent(conflictCols[0])
			sets = append(sets, fmt.Sprintf("%s = %s", k, k))
		}
		b.WriteString(" ON DUPLICATE KEY UPDATE " + strings.Join(sets, ", "))
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

// quoteIdent quotes an identifier with backticks, MySQL style.
func quoteIdent(id string) string { return "`" + strings.ReplaceAll(id, "`", "``") + "`" }

func quoteAll(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = quoteIdent(c)
	}
	return out
}
