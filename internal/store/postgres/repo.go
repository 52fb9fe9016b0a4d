// Package postgres implements the migration Store on Postgres using pgx v5.
// Upserts are single multi-row INSERT ... ON CONFLICT statements; the batch
// sizes the runner uses stay far below the wire-protocol parameter limit.
package postgres

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"dumpmigrate/internal/store"
)

// Config holds Postgres connection configuration.
type Config struct {
	DSN string // connection string for pgxpool
}

// Repository is a Postgres-backed implementation of store.Store.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository and returns a Close function for
// cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, nil, fmt.Errorf("postgres: DSN must not be empty")
	}
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("pgxpool: %w", err)
	}
	closeFn := func() { pool.Close() }
	return &Repository{pool: pool}, closeFn, nil
}

// Find returns every row of table matching the filter.
func (r *Repository) Find(ctx context.Context, table string, filter store.Filter) ([]store.Row, error) {
	where, args := whereClause(filter)
	rows, err := r.pool.Query(ctx, "SELECT * FROM "+pgFQN(table)+where, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: query %s: %w", table, err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	var out []store.Row
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("postgres: read row: %w", err)
		}
		row := make(store.Row, len(fields))
		for i, fd := range fields {
			row[fd.Name] = vals[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: rows: %w", err)
	}
	return out, nil
}

// Upsert writes rows in one multi-row statement upserting on conflictCols.
func (r *Repository) Upsert(ctx context.Context, table string, rows []store.Row, conflictCols []string) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	sql, args := upsertSQL(table, rows, conflictCols)
	tag, err := r.pool.Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("postgres: upsert %s: %w", table, err)
	}
	return tag.RowsAffected(), nil
}

// Count returns the number of rows of table matching the filter.
func (r *Repository) Count(ctx context.Context, table string, filter store.Filter) (int64, error) {
	where, args := whereClause(filter)
	var n int64
	if err := r.pool.QueryRow(ctx, "SELECT count(*) FROM "+pgFQN(table)+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres: count %s: %w", table, err)
	}
	return n, nil
}

// Exec implements store.Store.Exec for Postgres.
func (r *Repository) Exec(ctx context.Context, sql string) error {
	_, err := r.pool.Exec(ctx, sql)
	return err
}

// upsertSQL renders the multi-row upsert and its positional arguments. The
// column order is the sorted union of keys across rows; a row missing a
// column contributes NULL.
func upsertSQL(table string, rows []store.Row, conflictCols []string) (string, []any) {
	cols := columnUnion(rows)

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES ", pgFQN(table), strings.Join(mapIdent(cols), ", "))

	args := make([]any, 0, len(cols)*len(rows))
	n := 1
	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		ph := make([]string, len(cols))
		for j, c := range cols {
			ph[j] = fmt.Sprintf("$%d", n)
			n++
			args = append(args, row[c])
		}
		b.WriteString("(" + strings.Join(ph, ", ") + ")")
	}

	if len(conflictCols) > 0 {
		updates := updateColumns(nonConflict(cols, conflictCols))
		fmt.Fprintf(&b, " ON CONFLICT (%s)", strings.Join(mapIdent(conflictCols), ", "))
		if len(updates) == 0 {
			b.WriteString(" DO NOTHING")
		} else {
			b.WriteString(" DO UPDATE SET " + strings.Join(updates, ", "))
		}
	}
	return b.String(), args
}

// columnUnion collects the sorted union of keys across rows.
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

// nonConflict filters the conflict-target columns out of cols.
func nonConflict(cols, conflictCols []string) []string {
	skip := make(map[string]struct{}, len(conflictCols))
	for _, c := range conflictCols {
		skip[c] = struct{}{}
	}
	var out []string
	for _, c := range cols {
		if _, ok := skip[c]; !ok {
			out = append(out, c)
		}
	}
	return out
}

// updateColumns generates a list of column updates in the format:
// "col" = EXCLUDED."col"
func updateColumns(cols []string) []string {
	var updates []string
	for _, col := range cols {
		updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", pgIdent(col), pgIdent(col)))
	}
	return updates
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
		conds[i] = fmt.Sprintf("%s = $%d", pgIdent(k), i+1)
		args[i] = filter[k]
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// pgIdent safely quotes a single identifier segment for Postgres.
func pgIdent(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }

// pgFQN quotes a possibly schema-qualified name like "public.members" to
// "public"."members". If no dot is present, returns a single quoted ident.
func pgFQN(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = pgIdent(p)
	}
	return strings.Join(parts, ".")
}

// mapIdent maps a list of column names to their quoted forms.
func mapIdent(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = pgIdent(c)
	}
	return out
}
