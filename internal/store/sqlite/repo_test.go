package sqlite

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"

	"dumpmigrate/internal/store"
)

func newTestRepo(tb testing.TB) *Repository {
	tb.Helper()
	dsn := filepath.Join(tb.TempDir(), "migrate.db")
	r, closeFn, err := NewRepository(context.Background(), Config{DSN: dsn})
	if err != nil {
		tb.Fatalf("open sqlite %s: %v", dsn, err)
	}
	tb.Cleanup(closeFn)
	return r
}

func TestNewRepositoryEmptyDSN(t *testing.T) {
	t.Parallel()

	if _, _, err := NewRepository(context.Background(), Config{}); err == nil {
		t.Fatalf("expected error for empty DSN")
	}
}

func TestUpsertSQL(t *testing.T) {
	t.Parallel()

	rows := []store.Row{
		{"email": "a@x.com", "first_name": "Ann"},
		{"email": "b@x.com", "phone": "555"},
	}
	sql, args := upsertSQL("members", rows, []string{"email"})

	wantSQL := `INSERT INTO "members" ("email", "first_name", "phone") VALUES ` +
		`(?, ?, ?), (?, ?, ?)` +
		` ON CONFLICT ("email") DO UPDATE SET "first_name" = excluded."first_name", "phone" = excluded."phone"`
	if sql != wantSQL {
		t.Fatalf("sql:\ngot  %q\nwant %q", sql, wantSQL)
	}
	wantArgs := []any{"a@x.com", "Ann", nil, "b@x.com", nil, "555"}
	if !reflect.DeepEqual(args, wantArgs) {
		t.Fatalf("args: got %#v want %#v", args, wantArgs)
	}
}

func TestEnsureSchemaAndRoundTrip(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	ctx := context.Background()
	s := &wrappedRepo{Repository: r}

	if err := EnsureSchema(ctx, s); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	// Idempotent: a second pass must not fail.
	if err := EnsureSchema(ctx, s); err != nil {
		t.Fatalf("EnsureSchema second pass: %v", err)
	}

	rows := []store.Row{
		{"id": "m1", "email": "a@x.com", "first_name": "Ann", "gym_id": "g1"},
		{"id": "m2", "email": "b@x.com", "first_name": "Bo", "gym_id": "g1"},
	}
	n, err := r.Upsert(ctx, "members", rows, []string{"email"})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if n != 2 {
		t.Fatalf("affected: got %d want 2", n)
	}

	// Upserting the same email again must update, not duplicate.
	if _, err := r.Upsert(ctx, "members", []store.Row{
		{"id": "m1", "email": "a@x.com", "first_name": "Anna", "gym_id": "g1"},
	}, []string{"email"}); err != nil {
		t.Fatalf("second Upsert: %v", err)
	}

	count, err := r.Count(ctx, "members", store.Filter{"gym_id": "g1"})
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 2 {
		t.Fatalf("count: got %d want 2", count)
	}

	found, err := r.Find(ctx, "members", store.Filter{"email": "a@x.com"})
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(found) != 1 {
		t.Fatalf("found: %#v", found)
	}
	if got := found[0]["first_name"]; got != "Anna" {
		t.Fatalf("first_name after upsert: got %#v want Anna", got)
	}
}

func TestUpsertEmptyRows(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	n, err := r.Upsert(context.Background(), "members", nil, []string{"email"})
	if err != nil || n != 0 {
		t.Fatalf("empty upsert: n=%d err=%v", n, err)
	}
}

func TestSchemaDefaultsAssignIDs(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	ctx := context.Background()
	if err := EnsureSchema(ctx, &wrappedRepo{Repository: r}); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}

	if _, err := r.Upsert(ctx, "packages", []store.Row{
		{"name": "gold", "price": 1200.5, "duration_days": 365, "gym_id": "g1"},
	}, []string{"name"}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	found, err := r.Find(ctx, "packages", store.Filter{"name": "gold"})
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(found) != 1 {
		t.Fatalf("found: %#v", found)
	}
	id, _ := found[0]["id"].(string)
	if len(id) != 32 {
		t.Fatalf("defaulted id: got %#v", found[0]["id"])
	}
}
