// Package all wires all built-in store backends into the store factory.
//
// This package exists purely for side effects: importing it (even as a blank
// import) causes the init functions of each concrete backend to run, which in
// turn register their factories and DDL bootstrappers with the store package.
//
// In other words, importing this package makes the following store kinds
// available at runtime:
//
//   - "mysql"    (dumpmigrate/internal/store/mysql)
//   - "postgres" (dumpmigrate/internal/store/postgres)
//   - "sqlite"   (dumpmigrate/internal/store/sqlite)
//
// Typical usage (in cmd/migrate/main.go or a similar wiring layer):
//
//	import _ "dumpmigrate/internal/store/all" // enable all built-in backends
//
// then open whichever kind the configuration names:
//
//	st, err := store.New(ctx, store.Config{Kind: cfg.Store.Kind, DSN: cfg.Store.DSN})
//
// This pattern keeps backend-specific wiring in a single, small package and
// allows the rest of the engine (runner, web surface, CLI) to depend only on
// the store abstraction rather than individual backends. A binary that wants
// a subset of backends can blank-import the specific backend packages
// instead of this one.
package all

import (
	_ "dumpmigrate/internal/store/mysql"
	_ "dumpmigrate/internal/store/postgres"
	_ "dumpmigrate/internal/store/sqlite"
)
