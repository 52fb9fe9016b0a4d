package postgres

import (
	"reflect"
	"testing"

	"dumpmigrate/internal/store"
)

func TestUpsertSQL(t *testing.T) {
	t.Parallel()

	rows := []store.Row{
		{"email": "a@x.com", "first_name": "Ann"},
		{"email": "b@x.com", "phone": "555"},
	}
	sql, args := upsertSQL("members", rows, []string{"email"})

	wantSQL := `INSERT INTO "members" ("email", "first_name", "phone") VALUES ` +
		`($1, $2, $3), ($4, $5, $6)` +
		` ON CONFLICT ("email") DO UPDATE SET "first_name" = EXCLUDED."first_name", "phone" = EXCLUDED."phone"`
	if sql != wantSQL {
		t.Fatalf("sql:\ngot  %q\nwant %q", sql, wantSQL)
	}

	wantArgs := []any{"a@x.com", "Ann", nil, "b@x.com", nil, "555"}
	if !reflect.DeepEqual(args, wantArgs) {
		t.Fatalf("args: got %#v want %#v", args, wantArgs)
	}
}

func TestUpsertSQLConflictOnly(t *testing.T) {
	t.Parallel()

	rows := []store.Row{{"name": "gold"}}
	sql, _ := upsertSQL("packages", rows, []string{"name"})
	want := `INSERT INTO "packages" ("name") VALUES ($1) ON CONFLICT ("name") DO NOTHING`
	if sql != want {
		t.Fatalf("sql: got %q want %q", sql, want)
	}
}

func TestUpsertSQLNoConflictCols(t *testing.T) {
	t.Parallel()

	rows := []store.Row{{"name": "gold"}}
	sql, _ := upsertSQL("packages", rows, nil)
	want := `INSERT INTO "packages" ("name") VALUES ($1)`
	if sql != want {
		t.Fatalf("sql: got %q want %q", sql, want)
	}
}

func TestWhereClause(t *testing.T) {
	t.Parallel()

	where, args := whereClause(store.Filter{"gym_id": "g1", "name": "gold"})
	if want := ` WHERE "gym_id" = $1 AND "name" = $2`; where != want {
		t.Fatalf("where: got %q want %q", where, want)
	}
	if !reflect.DeepEqual(args, []any{"g1", "gold"}) {
		t.Fatalf("args: %#v", args)
	}

	where, args = whereClause(nil)
	if where != "" || args != nil {
		t.Fatalf("empty filter: got %q %#v", where, args)
	}
}

func TestIdentQuoting(t *testing.T) {
	t.Parallel()

	if got := pgIdent(`we"ird`); got != `"we""ird"` {
		t.Fatalf("pgIdent: got %q", got)
	}
	if got := pgFQN("public.members"); got != `"public"."members"` {
		t.Fatalf("pgFQN: got %q", got)
	}
	if got := pgFQN("members"); got != `"members"` {
		t.Fatalf("pgFQN single: got %q", got)
	}
}
