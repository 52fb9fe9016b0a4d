// Package config defines the canonical, JSON-serializable configuration model
// for the migration engine. It is intentionally small, explicit, and
// dependency-free so that job files can be loaded from disk and passed through
// the program without additional glue code.
//
// Design goals:
//
//  1. Stability: Changes to this package should be additive and backwards-
//     compatible whenever possible.
//  2. Clarity: Field names in Go mirror the JSON structure used in job files
//     under configs/*.json.
//  3. Minimalism: No third-party config libraries; decoding is performed by
//     the standard library, with environment-variable overlays for the few
//     settings operators change per deployment.
//
// Example (trimmed):
//
//	{
//	  "job":    "legacy-gym-import",
//	  "tenant": "gym-42",
//	  "source": { "kind": "file", "file": { "path": "dumps/legacy.sql" } },
//	  "store":  { "kind": "postgres", "dsn": "postgresql://...", "ensure_schema": true },
//	  "runtime": { "batch_size": 200 },
//	  "metrics": { "backend": "pushgateway", "pushgateway_url": "http://pushgateway:9091" }
//	}
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

// Config describes one migration job in JSON. It is the top-level object
// decoded from a job file (e.g. configs/*.json).
type Config struct {
	// Job labels the run for metrics and logs, e.g. "legacy-gym-import".
	Job string `json:"job"`

	// Tenant is the target tenant (gym) id every migrated row is scoped to.
	Tenant string `json:"tenant"`

	// Source describes where the dump text comes from.
	Source Source `json:"source"`

	// Store describes the target store rows are written to.
	Store Store `json:"store"`

	Runtime RuntimeConfig `json:"runtime"`
	Metrics Metrics       `json:"metrics"`
	Web     Web           `json:"web"`
}

// Source identifies the dump source. Additional kinds can be added over time.
type Source struct {
	// Kind selects the source implementation: "file" or "http".
	Kind string `json:"kind"`

	// File carries options for the "file" source kind.
	File SourceFile `json:"file"`

	// HTTP carries options for the "http" source kind.
	HTTP SourceHTTP `json:"http"`
}

// SourceFile holds configuration for the "file" source kind.
type SourceFile struct {
	// Path is the local filesystem path to the dump file.
	Path string `json:"path"`
}

// SourceHTTP holds configuration for the "http" source kind.
type SourceHTTP struct {
	// URL is where the dump text is fetched from.
	URL string `json:"url"`

	// TimeoutSeconds bounds each fetch attempt. Zero means the source default.
	TimeoutSeconds int `json:"timeout_seconds"`

	// MaxAttempts bounds retries on transient failures. Zero means the
	// source default.
	MaxAttempts int `json:"max_attempts"`
}

// Store selects the target store rows are written to during run mode.
type Store struct {
	// Kind selects the store backend registered under internal/store
	// ("postgres", "mysql" or "sqlite").
	Kind string `json:"kind"`

	// DSN is the backend connection string.
	DSN string `json:"dsn"`

	// EnsureSchema bootstraps the target tables and unique keys before the
	// first write. Safe to leave on; the DDL is idempotent.
	EnsureSchema bool `json:"ensure_schema"`
}

// RuntimeConfig controls batching and write behavior.
type RuntimeConfig struct {
	// BatchSize bounds rows per upsert statement. Non-positive values fall
	// back to the engine default.
	BatchSize int `json:"batch_size"`

	// DryRun plans and reports without writing.
	DryRun bool `json:"dry_run"`
}

// Metrics selects the metrics backend.
type Metrics struct {
	// Backend is "pushgateway", "datadog", or "none"/empty.
	Backend string `json:"backend"`

	// PushgatewayURL is the Prometheus Pushgateway base URL.
	PushgatewayURL string `json:"pushgateway_url"`

	// StatsdAddr is the DogStatsD address for the datadog backend.
	StatsdAddr string `json:"statsd_addr"`
}

// Web configures the HTTP surface.
type Web struct {
	// Listen is the address the web server binds, e.g. ":8080".
	Listen string `json:"listen"`
}

// Load reads and decodes a job file.
func Load(path string) (Config, error) {
	var cfg Config

	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	if err := json.NewDecoder(f).Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overlays MIGRATE_* environment variables onto cfg. Set variables
// win over file values; unset ones leave cfg untouched.
func ApplyEnv(cfg Config) Config {
	if v := os.Getenv("MIGRATE_TENANT"); v != "" {
		cfg.Tenant = v
	}
	if v := os.Getenv("MIGRATE_STORE_KIND"); v != "" {
		cfg.Store.Kind = v
	}
	if v := os.Getenv("MIGRATE_DSN"); v != "" {
		cfg.Store.DSN = v
	}
	if n := getenvInt("MIGRATE_BATCH_SIZE", 0); n > 0 {
		cfg.Runtime.BatchSize = n
	}
	if v := os.Getenv("MIGRATE_METRICS_BACKEND"); v != "" {
		cfg.Metrics.Backend = v
	}
	if v := os.Getenv("MIGRATE_PUSHGATEWAY_URL"); v != "" {
		cfg.Metrics.PushgatewayURL = v
	}
	if v := os.Getenv("MIGRATE_STATSD_ADDR"); v != "" {
		cfg.Metrics.StatsdAddr = v
	}
	if v := os.Getenv("MIGRATE_LISTEN"); v != "" {
		cfg.Web.Listen = v
	}
	return cfg
}

// getenvInt reads an int from environment, returning def when unset/invalid.
func getenvInt(k string, def int) int {
	if s := os.Getenv(k); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return def
}
