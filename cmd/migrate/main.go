// Command migrate drives the legacy-dump migration engine from the shell.
//
// Modes:
//
//	preview  parse the dump and print counts and diagnostics, write nothing
//	sql      render the migration as one reviewable SQL document
//	run      execute the migration against the configured store
//
// Usage:
//
//	migrate -mode preview -dump legacy.sql -tenant gym-42
//	migrate -mode sql -dump legacy.sql -tenant gym-42 -out migration.sql
//	migrate -mode run -config configs/gym42.json
//	migrate -mode run -dump legacy.sql -tenant gym-42 -store sqlite -dsn file:rehearsal.db -dry-run
//
// Settings merge in the usual order: flags win over MIGRATE_* environment
// variables, which win over the -config job file, which wins over defaults.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"dumpmigrate/internal/config"
	"dumpmigrate/internal/metrics"
	"dumpmigrate/internal/metrics/datadog"
	"dumpmigrate/internal/metrics/prompush"
	"dumpmigrate/internal/runner"
	"dumpmigrate/internal/source"
	"dumpmigrate/internal/source/file"
	"dumpmigrate/internal/source/httpsrc"
	"dumpmigrate/internal/sqlgen"
	"dumpmigrate/internal/store"

	// register all store backends with the factory; config picks one.
	_ "dumpmigrate/internal/store/all"
)

func main() {
	var (
		cfgPath   string
		dumpPath  string
		dumpURL   string
		tenant    string
		mode      string
		dryRun    bool
		storeKind string
		storeDSN  string
		batchSize int
		backend   string
		gwURL     string
		statsd    string
		outPath   string
		ensure    bool
		validate  bool
		asJSON    bool
	)

	flag.StringVar(&cfgPath, "config", "", "migration job config JSON path")
	flag.StringVar(&dumpPath, "dump", "", "path to the legacy dump file (overrides the config source)")
	flag.StringVar(&dumpURL, "dump-url", "", "fetch the dump from this URL (overrides the config source)")
	flag.StringVar(&tenant, "tenant", "", "target tenant (gym) id every migrated row is scoped to")
	flag.StringVar(&mode, "mode", "preview", "preview, sql, or run")
	flag.BoolVar(&dryRun, "dry-run", false, "run mode: plan and report without writing")
	flag.StringVar(&storeKind, "store", "", "target store backend (postgres, mysql, sqlite)")
	flag.StringVar(&storeDSN, "dsn", "", "target store connection string")
	flag.IntVar(&batchSize, "batch-size", 0, "rows per upsert batch (0 = engine default)")
	flag.StringVar(&backend, "metrics-backend", "", "metrics backend (pushgateway, datadog, none)")
	flag.StringVar(&gwURL, "pushgateway-url", "", "Pushgateway base URL (overrides env MIGRATE_PUSHGATEWAY_URL)")
	flag.StringVar(&statsd, "statsd-addr", "", "DogStatsD address for the datadog backend")
	flag.StringVar(&outPath, "out", "", "sql mode: write the document here instead of stdout")
	flag.BoolVar(&ensure, "ensure-schema", false, "run mode: create the target tables before writing")
	flag.BoolVar(&validate, "validate", false, "validate the configuration and exit")
	flag.BoolVar(&asJSON, "json", false, "preview mode: emit the full report as JSON")
	verbose := flag.Bool("v", false, "enable verbose logs (disables the progress bar)")

	flag.Parse()

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		fatalf("%v", err)
	}

	// Flags set on the command line override everything beneath them.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "tenant":
			cfg.Tenant = tenant
		case "dump":
			cfg.Source = config.Source{Kind: "file", File: config.SourceFile{Path: dumpPath}}
		case "dump-url":
			cfg.Source = config.Source{Kind: "http", HTTP: config.SourceHTTP{URL: dumpURL}}
		case "store":
			cfg.Store.Kind = storeKind
		case "dsn":
			cfg.Store.DSN = storeDSN
		case "batch-size":
			cfg.Runtime.BatchSize = batchSize
		case "dry-run":
			cfg.Runtime.DryRun = dryRun
		case "metrics-backend":
			cfg.Metrics.Backend = backend
		case "pushgateway-url":
			cfg.Metrics.PushgatewayURL = gwURL
		case "statsd-addr":
			cfg.Metrics.StatsdAddr = statsd
		case "ensure-schema":
			cfg.Store.EnsureSchema = ensure
		}
	})

	issues := config.Validate(cfg)
	// An empty source section means the dump is read from stdin, which this
	// command supports; drop the validator's complaint about it.
	if cfg.Source.Kind == "" {
		kept := issues[:0]
		for _, iss := range issues {
			if iss.Path != "source.kind" {
				kept = append(kept, iss)
			}
		}
		issues = kept
	}
	hasError := false
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
		if iss.Severity == config.SeverityError {
			hasError = true
		}
	}
	if validate {
		if hasError {
			fatalf("configuration is invalid")
		}
		log.Printf("configuration is valid")
		return
	}
	// Preview and sql never touch a store or a metrics backend, so only
	// issues with the inputs they actually consume can block them.
	if hasError && (mode == "run" || inputIssue(issues)) {
		fatalf("configuration is invalid")
	}

	ctx := context.Background()
	start := time.Now()

	dump, err := loadDump(ctx, cfg.Source, os.Stdin)
	if err != nil {
		fatalf("%v", err)
	}

	switch mode {
	case "preview":
		if err := runPreview(ctx, dump, cfg.Tenant, asJSON, os.Stdout); err != nil {
			fatalf("%v", err)
		}
	case "sql":
		if err := runSQL(ctx, dump, cfg.Tenant, outPath); err != nil {
			fatalf("%v", err)
		}
	case "run":
		setupMetrics(cfg, *verbose)
		defer func() {
			if err := metrics.Flush(); err != nil {
				log.Printf("metrics: flush error: %v", err)
			}
		}()
		if err := runMigration(ctx, dump, cfg, *verbose); err != nil {
			fatalf("%v", err)
		}
	default:
		fatalf("unknown mode %q; use preview, sql, or run", mode)
	}

	if *verbose {
		log.Printf("completed in %s", time.Since(start).Truncate(time.Millisecond))
	}
}

// loadConfig reads the job file when given and overlays MIGRATE_* variables
// either way, so env-only invocations work without a file.
func loadConfig(path string) (config.Config, error) {
	var cfg config.Config
	if path != "" {
		c, err := config.Load(path)
		if err != nil {
			return cfg, err
		}
		cfg = c
	}
	return config.ApplyEnv(cfg), nil
}

// inputIssue reports whether any error-severity issue touches the source or
// the tenant, the only settings preview and sql consume.
func inputIssue(issues []config.Issue) bool {
	for _, iss := range issues {
		if iss.Severity != config.SeverityError {
			continue
		}
		if strings.HasPrefix(iss.Path, "source") || iss.Path == "tenant" {
			return true
		}
	}
	return false
}

// loadDump materializes the dump text from the configured source, falling
// back to stdin when no source is configured at all.
func loadDump(ctx context.Context, src config.Source, stdin io.Reader) (string, error) {
	switch src.Kind {
	case "file":
		return source.ReadAll(ctx, file.NewLocal(src.File.Path), 0)
	case "http":
		client := httpsrc.NewClient(httpsrc.Config{
			Timeout:     time.Duration(src.HTTP.TimeoutSeconds) * time.Second,
			MaxAttempts: src.HTTP.MaxAttempts,
		})
		return source.ReadAll(ctx, httpsrc.NewRemote(client, src.HTTP.URL), 0)
	case "":
		data, err := io.ReadAll(io.LimitReader(stdin, source.DefaultMaxBytes+1))
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		if int64(len(data)) > source.DefaultMaxBytes {
			return "", fmt.Errorf("stdin dump exceeds %d bytes", int64(source.DefaultMaxBytes))
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("unknown source kind %q", src.Kind)
	}
}

// runPreview builds the plan and prints the report: JSON when asked, else an
// operator-facing text summary.
func runPreview(ctx context.Context, dump, tenant string, asJSON bool, out io.Writer) error {
	pv, err := runner.Preview(ctx, dump, tenant)
	if err != nil {
		return err
	}
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(pv)
	}

	fmt.Fprintf(out, "members=%d staff=%d packages=%d skipped_rows=%d duplicate_emails=%d skipped_payments=%d\n",
		pv.MemberCount, pv.StaffCount, pv.PackageCount,
		len(pv.SkippedRows), pv.Diagnostics.DuplicateEmails, pv.SkippedPayments)
	fmt.Fprintf(out, "detected tables: %s\n", strings.Join(pv.DetectedTables, ", "))
	d := pv.Diagnostics
	fmt.Fprintf(out, "gaps before/after enrichment: package %d/%d expiry %d/%d gender %d/%d\n",
		d.GapsBefore.Package, d.GapsAfter.Package,
		d.GapsBefore.Expiry, d.GapsAfter.Expiry,
		d.GapsBefore.Gender, d.GapsAfter.Gender)
	for _, sk := range pv.SkippedRows {
		fmt.Fprintf(out, "skipped %s [%s]: %s: %s\n", sk.Table, sk.Fingerprint, sk.Reason, sk.Snippet)
	}
	for _, w := range pv.Warnings {
		fmt.Fprintf(out, "warning: %s\n", w)
	}
	return nil
}

// runSQL renders the plan as one transactional SQL document.
func runSQL(ctx context.Context, dump, tenant, outPath string) error {
	pv, err := runner.Preview(ctx, dump, tenant)
	if err != nil {
		return err
	}
	doc := sqlgen.Document(pv.Plan, tenant)
	if outPath == "" {
		_, err := io.WriteString(os.Stdout, doc)
		return err
	}
	if err := os.WriteFile(outPath, []byte(doc), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", outPath, err)
	}
	log.Printf("sql document written: path=%s bytes=%d members=%d staff=%d packages=%d",
		outPath, len(doc), pv.MemberCount, pv.StaffCount, pv.PackageCount)
	return nil
}

// runMigration opens the store and executes the full run. Batch errors are
// reported, not fatal; only reference-resolution and invocation errors
// propagate as a non-zero exit.
func runMigration(ctx context.Context, dump string, cfg config.Config, verbose bool) error {
	opts := runner.Options{
		BatchSize: cfg.Runtime.BatchSize,
		DryRun:    cfg.Runtime.DryRun,
	}

	if !opts.DryRun {
		st, err := store.New(ctx, store.Config{Kind: cfg.Store.Kind, DSN: cfg.Store.DSN})
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer st.Close()
		if cfg.Store.EnsureSchema {
			if err := store.EnsureSchema(ctx, cfg.Store.Kind, st); err != nil {
				return err
			}
		}
		opts.Store = st
	}

	// The progress bar owns the terminal, so engine logs are muted while it
	// runs unless verbose logging was asked for explicitly.
	var bar *barSink
	if !verbose {
		bar = newBarSink(os.Stderr)
		opts.Progress = bar
		log.SetOutput(io.Discard)
	}

	res, err := runner.Run(ctx, dump, cfg.Tenant, opts)
	if bar != nil {
		bar.Close()
		log.SetOutput(os.Stderr)
	}
	if err != nil {
		return err
	}

	log.Printf("migrate: run=%s tenant=%s members_written=%d/%d staff_written=%d/%d packages_created=%d roles_created=%d batch_errors=%d",
		res.RunID, res.TenantID, res.MembersWritten, res.MemberCount,
		res.StaffWritten, res.StaffCount,
		res.Diagnostics.PackagesCreated, res.Diagnostics.RolesCreated,
		res.Diagnostics.UpsertErrorsTotal)
	for _, e := range res.Diagnostics.MemberUpsertErrors {
		fmt.Fprintf(os.Stderr, "members batch %d (%d rows) failed: %s\n", e.Batch, e.Rows, e.Err)
	}
	for _, e := range res.Diagnostics.StaffUpsertErrors {
		fmt.Fprintf(os.Stderr, "staff batch %d (%d rows) failed: %s\n", e.Batch, e.Rows, e.Err)
	}
	return nil
}

// setupMetrics installs the configured metrics backend. Failures fall back to
// the nop backend with a log line; a broken Pushgateway must not block a
// migration.
func setupMetrics(cfg config.Config, verbose bool) {
	job := cfg.Job
	if job == "" {
		job = "migrate"
	}

	switch cfg.Metrics.Backend {
	case "pushgateway":
		url := cfg.Metrics.PushgatewayURL
		if url == "" {
			url = "http://localhost:9091"
		}
		b, err := prompush.NewBackend(job, url)
		if err != nil {
			log.Printf("metrics: failed to init prom push backend: %v; using nop", err)
			return
		}
		log.Printf("metrics: backend=pushgateway url=%s job=%s", url, job)
		metrics.SetBackend(b)

	case "datadog":
		b, err := datadog.NewBackend(datadog.Config{Addr: cfg.Metrics.StatsdAddr, Namespace: job + "."})
		if err != nil {
			log.Printf("metrics: failed to init datadog backend: %v; using nop", err)
			return
		}
		log.Printf("metrics: backend=datadog addr=%s job=%s", cfg.Metrics.StatsdAddr, job)
		metrics.SetBackend(b)

	case "", "none":
		if verbose {
			log.Printf("metrics: disabled (backend=%q)", cfg.Metrics.Backend)
		}

	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", cfg.Metrics.Backend)
	}
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
