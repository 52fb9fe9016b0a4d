// Package store defines the target-database boundary for migration runs and
// a small factory so backends register themselves by kind.
//
// The engine only ever talks to the Store interface; which backend serves it
// is wiring, decided by configuration. Backends live in subpackages and
// register in init, so importing dumpmigrate/internal/store/all (even blank)
// makes every built-in kind available.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Row is one record keyed by column name. Missing columns write as NULL.
type Row map[string]any

// Filter is a conjunction of column equality conditions.
type Filter map[string]any

// Store is the minimal surface a migration run needs from the target
// database.
type Store interface {
	// Find returns every row of table matching the filter.
	Find(ctx context.Context, table string, filter Filter) ([]Row, error)
	// Upsert writes rows in one statement, updating non-conflict columns
	// from the incoming row on a conflict-column collision.
	Upsert(ctx context.Context, table string, rows []Row, conflictCols []string) (int64, error)
	// Count returns the number of rows of table matching the filter.
	Count(ctx context.Context, table string, filter Filter) (int64, error)
	// Exec runs one arbitrary statement, typically DDL.
	Exec(ctx context.Context, sql string) error
	Close()
}

// Config selects and configures a backend.
type Config struct {
	Kind string // registered backend name, e.g. "postgres" or "sqlite"
	DSN  string
}

// Factory constructs a Store for one backend kind.
type Factory func(ctx context.Context, cfg Config) (Store, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register installs (or replaces) the factory for a kind. Backend packages
// call this from init; tests re-register to inject fakes.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = f
}

// New opens a Store of the configured kind.
func New(ctx context.Context, cfg Config) (Store, error) {
	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported store.kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}

// ListKinds returns a sorted snapshot of the registered backend kinds.
func ListKinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	kinds := make([]string, 0, len(factories))
	for k := range factories {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// DDLBootstrapper creates the migration target tables for one backend
// dialect. Statements must be idempotent; EnsureSchema may run on every
// start.
type DDLBootstrapper func(ctx context.Context, s Store) error

var (
	ddlMu  sync.RWMutex
	ddlFns = map[string]DDLBootstrapper{}
)

// RegisterDDL installs (or replaces) the schema bootstrapper for a kind.
func RegisterDDL(kind string, fn DDLBootstrapper) {
	ddlMu.Lock()
	defer ddlMu.Unlock()
	ddlFns[kind] = fn
}

// EnsureSchema runs the registered bootstrapper for the kind against an
// already-open store.
func EnsureSchema(ctx context.Context, kind string, s Store) error {
	ddlMu.RLock()
	fn, ok := ddlFns[kind]
	ddlMu.RUnlock()
	if !ok {
		return fmt.Errorf("no DDL bootstrapper registered for store.kind=%q", kind)
	}
	return fn(ctx, s)
}
