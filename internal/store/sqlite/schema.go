package sqlite

import (
	"context"
	"fmt"

	"dumpmigrate/internal/store"
)

// ddl creates the four migration target tables in SQLite dialect. The id
// default mirrors the Postgres uuid default closely enough for rehearsal
// runs: 32 hex characters from the built-in randomblob.
var ddl = []string{
	`CREATE TABLE IF NOT EXISTS packages (
	id TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(16)))),
	name TEXT NOT NULL,
	price REAL NOT NULL DEFAULT 0,
	duration_days INTEGER NOT NULL DEFAULT 30,
	access_level TEXT NOT NULL DEFAULT 'standard',
	gym_id TEXT
)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS packages_name_key ON packages (name)`,

	`CREATE TABLE IF NOT EXISTS roles (
	id TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(16)))),
	name TEXT NOT NULL,
	gym_id TEXT
)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS roles_name_key ON roles (name)`,

	`CREATE TABLE IF NOT EXISTS members (
	id TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(16)))),
	first_name TEXT,
	last_name TEXT,
	email TEXT,
	phone TEXT,
	gender TEXT,
	dob TEXT,
	status TEXT,
	package_id TEXT,
	membership_expiry TEXT,
	qr_payload TEXT,
	gym_id TEXT,
	created_at TEXT
)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS members_email_key ON members (email)`,

	`CREATE TABLE IF NOT EXISTS staff (
	id TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(16)))),
	first_name TEXT,
	last_name TEXT,
	email TEXT,
	phone TEXT,
	role TEXT,
	role_id TEXT,
	hire_date TEXT,
	qr_payload TEXT,
	gym_id TEXT
)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS staff_email_key ON staff (email)`,
}

// EnsureSchema creates the target tables if they do not exist.
func EnsureSchema(ctx context.Context, s store.Store) error {
	for _, stmt := range ddl {
		if err := s.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("sqlite: ensure schema: %w", err)
		}
	}
	return nil
}
