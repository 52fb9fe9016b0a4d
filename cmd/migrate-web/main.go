// Command migrate-web starts the web UI for the migration engine: paste a
// dump, preview the plan, and watch a run stream its progress.
//
// Without a store configured only previews and dry runs work; wet runs need
// -store and -dsn (or a config file that sets them).
//
// Usage:
//
//	migrate-web -addr :8080
//	migrate-web -addr :8080 -store sqlite -dsn file:migrate.db -ensure-schema
//	migrate-web -config configs/gym42.json
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"dumpmigrate/internal/config"
	"dumpmigrate/internal/store"
	"dumpmigrate/internal/webui"

	// register all store backends with the factory; flags pick one.
	_ "dumpmigrate/internal/store/all"
)

// server is the part of webui.Server this command drives.
type server interface {
	Serve(ctx context.Context) error
}

// newServer is a test hook that points at webui.NewServer by default.
// Tests may replace it to avoid binding a real listener.
var newServer = func(cfg webui.Config) server { return webui.NewServer(cfg) }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], log.Default()); err != nil {
		stop()
		fatalf("%v", err)
	}
}

func run(ctx context.Context, args []string, logger *log.Logger) error {
	fs := flag.NewFlagSet("migrate-web", flag.ContinueOnError)

	var (
		addr      string
		cfgPath   string
		storeKind string
		storeDSN  string
		batchSize int
		ensure    bool
	)
	fs.StringVar(&addr, "addr", ":8080", "listen address")
	fs.StringVar(&cfgPath, "config", "", "migration job config JSON path")
	fs.StringVar(&storeKind, "store", "", "target store backend (postgres, mysql, sqlite)")
	fs.StringVar(&storeDSN, "dsn", "", "target store connection string")
	fs.IntVar(&batchSize, "batch-size", 0, "rows per upsert batch (0 = engine default)")
	fs.BoolVar(&ensure, "ensure-schema", false, "create the target tables before serving")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	var cfg config.Config
	if cfgPath != "" {
		c, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		cfg = c
	}
	cfg = config.ApplyEnv(cfg)

	// Flags win over the config file and environment.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			cfg.Web.Listen = addr
		case "store":
			cfg.Store.Kind = storeKind
		case "dsn":
			cfg.Store.DSN = storeDSN
		case "batch-size":
			cfg.Runtime.BatchSize = batchSize
		case "ensure-schema":
			cfg.Store.EnsureSchema = ensure
		}
	})
	if cfg.Web.Listen == "" {
		cfg.Web.Listen = addr
	}

	var st store.Store
	if cfg.Store.Kind != "" {
		s, err := store.New(ctx, store.Config{Kind: cfg.Store.Kind, DSN: cfg.Store.DSN})
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer s.Close()
		if cfg.Store.EnsureSchema {
			if err := store.EnsureSchema(ctx, cfg.Store.Kind, s); err != nil {
				return err
			}
		}
		st = s
		logger.Printf("store ready: kind=%s", cfg.Store.Kind)
	} else {
		logger.Printf("no store configured; previews and dry runs only")
	}

	srv := newServer(webui.Config{
		Addr:      cfg.Web.Listen,
		Store:     st,
		BatchSize: cfg.Runtime.BatchSize,
	})
	logger.Printf("listening on %s", cfg.Web.Listen)
	return srv.Serve(ctx)
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
