package mysql

import (
	"context"
	"fmt"

	"dumpmigrate/internal/store"
)

// ddl creates the four migration target tables in MySQL dialect. Unique keys
// are declared inline because MySQL has no CREATE UNIQUE INDEX IF NOT
// EXISTS, and keyed columns are varchar because text columns cannot carry a
// unique key without a prefix length. The id default needs MySQL 8.0.13+ or
// MariaDB 10.2+.
var ddl = []string{
	`CREATE TABLE IF NOT EXISTS packages (
	id varchar(36) NOT NULL DEFAULT (uuid()),
	name varchar(255) NOT NULL,
	price decimal(10,2) NOT NULL DEFAULT 0,
	duration_days int NOT NULL DEFAULT 30,
	access_level varchar(64) NOT NULL DEFAULT 'standard',
	gym_id varchar(64),
	PRIMARY KEY (id),
	UNIQUE KEY packages_name_key (name)
)`,

	`CREATE TABLE IF NOT EXISTS roles (
	id varchar(36) NOT NULL DEFAULT (uuid()),
	name varchar(255) NOT NULL,
	gym_id varchar(64),
	PRIMARY KEY (id),
	UNIQUE KEY roles_name_key (name)
)`,

	`CREATE TABLE IF NOT EXISTS members (
	id varchar(36) NOT NULL DEFAULT (uuid()),
	first_name text,
	last_name text,
	email varchar(255),
	phone text,
	gender text,
	dob date,
	status text,
	package_id varchar(36),
	membership_expiry date,
	qr_payload text,
	gym_id varchar(64),
	created_at date,
	PRIMARY KEY (id),
	UNIQUE KEY members_email_key (email)
)`,

	`CREATE TABLE IF NOT EXISTS staff (
	id varchar(36) NOT NULL DEFAULT (uuid()),
	first_name text,
	last_name text,
	email varchar(255),
	phone text,
	role text,
	role_id varchar(36),
	hire_date date,
	qr_payload text,
	gym_id varchar(64),
	PRIMARY KEY (id),
	UNIQUE KEY staff_email_key (email)
)`,
}

// EnsureSchema creates the target tables if they do not exist.
func EnsureSchema(ctx context.Context, s store.Store) error {
	for _, stmt := range ddl {
		if err := s.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("mysql: ensure schema: %w", err)
		}
	}
	return nil
}
