package postgres

import (
	"context"
	"fmt"

	"dumpmigrate/internal/store"
)

// ddl creates the four migration target tables. Statements are idempotent;
// ids default server-side so generated SQL documents may omit them, and the
// unique indexes are the upsert conflict targets.
var ddl = []string{
	`CREATE TABLE IF NOT EXISTS packages (
	id text PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name text NOT NULL,
	price numeric NOT NULL DEFAULT 0,
	duration_days integer NOT NULL DEFAULT 30,
	access_level text NOT NULL DEFAULT 'standard',
	gym_id text
)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS packages_name_key ON packages (name)`,

	`CREATE TABLE IF NOT EXISTS roles (
	id text PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name text NOT NULL,
	gym_id text
)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS roles_name_key ON roles (name)`,

	`CREATE TABLE IF NOT EXISTS members (
	id text PRIMARY KEY DEFAULT gen_random_uuid()::text,
	first_name text,
	last_name text,
	email text,
	phone text,
	gender text,
	dob date,
	status text,
	package_id text,
	membership_expiry date,
	qr_payload text,
	gym_id text,
	created_at date
)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS members_email_key ON members (email)`,

	`CREATE TABLE IF NOT EXISTS staff (
	id text PRIMARY KEY DEFAULT gen_random_uuid()::text,
	first_name text,
	last_name text,
	email text,
	phone text,
	role text,
	role_id text,
	hire_date date,
	qr_payload text,
	gym_id text
)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS staff_email_key ON staff (email)`,
}

// EnsureSchema creates the target tables if they do not exist.
func EnsureSchema(ctx context.Context, s store.Store) error {
	for _, stmt := range ddl {
		if err := s.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: ensure schema: %w", err)
		}
	}
	return nil
}
