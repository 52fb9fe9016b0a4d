// Package webui exposes the browser surface of the migration engine: paste or
// upload a legacy dump, preview what would be migrated, and run the migration
// while watching batch progress stream in.
//
// Routes:
//
//	GET  /         → dump form
//	POST /preview  → parse only, returns the preview report as JSON
//	POST /run      → executes the migration, streams progress as SSE
//	GET  /healthz  → liveness probe
package webui

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"dumpmigrate/internal/runner"
	"dumpmigrate/internal/source"
	"dumpmigrate/internal/store"
)

// maxUploadBytes caps request bodies; dumps are text and anything larger is
// a mistake, not a migration.
const maxUploadBytes = source.DefaultMaxBytes

// Seams for tests; production code never swaps these.
var (
	previewDump  = runner.Preview
	runMigration = runner.Run
)

// Config controls server startup.
type Config struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string

	// Store receives migrated rows. When nil, only previews and dry runs
	// are possible; a wet /run request is rejected.
	Store store.Store

	// BatchSize overrides the engine's write batch size when positive.
	BatchSize int
}

// Server wires the mux, the embedded template, and the engine options.
type Server struct {
	cfg  Config
	mux  *http.ServeMux
	tmpl *template.Template
}

// NewServer constructs a Server with routes and the embedded form template.
func NewServer(cfg Config) *Server {
	s := &Server{
		cfg:  cfg,
		mux:  http.NewServeMux(),
		tmpl: template.Must(template.New("index").Parse(indexHTML)),
	}
	s.routes()
	return s
}

// Handler returns the root handler, mainly for tests.
func (s *Server) Handler() http.Handler { return s.mux }

// Serve runs the HTTP server until ctx is canceled, then drains in-flight
// requests with a shutdown grace period.
func (s *Server) Serve(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := httpServer.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (s *Server) routes() {
	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/preview", s.handlePreview)
	s.mux.HandleFunc("/run", s.handleRun)
	s.mux.HandleFunc("/healthz", s.handleHealthz)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	if err := s.tmpl.Execute(w, nil); err != nil {
		log.Println("webui: template error:", err)
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handlePreview parses the dump and returns the preview report. Nothing is
// written anywhere, so it works without a configured store.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody("POST required"))
		return
	}

	req, err := readDumpRequest(w, r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	res, err := previewDump(r.Context(), req.dump, req.tenant)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleRun executes the migration and streams progress as Server-Sent
// Events: one "progress" event per phase/batch update, then a single
// "result" event carrying the full run report. Errors after the stream has
// started arrive as an "error" event since the status line is long gone.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody("POST required"))
		return
	}

	req, err := readDumpRequest(w, r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	if !req.dryRun && s.cfg.Store == nil {
		writeJSON(w, http.StatusBadRequest, errorBody("no store configured; only dry runs are available"))
		return
	}

	fl, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, errorBody("streaming unsupported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")

	// Events are published synchronously from the run loop, so writes to w
	// never interleave.
	sink := runner.SinkFunc(func(ev runner.Event) {
		writeSSE(w, "progress", ev)
		fl.Flush()
	})

	opts := runner.Options{
		Store:     s.cfg.Store,
		BatchSize: s.cfg.BatchSize,
		DryRun:    req.dryRun,
		Progress:  sink,
	}
	res, err := runMigration(r.Context(), req.dump, req.tenant, opts)
	if err != nil {
		writeSSE(w, "error", errorBody(err.Error()))
		fl.Flush()
		return
	}
	writeSSE(w, "result", res)
	fl.Flush()
}

// dumpRequest carries the parsed form inputs shared by preview and run.
type dumpRequest struct {
	dump   string
	tenant string
	dryRun bool
}

// readDumpRequest extracts the dump text (uploaded file wins over the
// textarea), the tenant, and the dry-run toggle. The request body is capped
// before any parsing happens.
func readDumpRequest(w http.ResponseWriter, r *http.Request) (dumpRequest, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	var req dumpRequest
	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "multipart/form-data") {
		if err := r.ParseMultipartForm(8 << 20); err != nil {
			return req, fmt.Errorf("bad form: %w", err)
		}
		if f, _, err := r.FormFile("file"); err == nil {
			defer f.Close()
			data, rerr := io.ReadAll(f)
			if rerr != nil {
				return req, fmt.Errorf("read upload: %w", rerr)
			}
			req.dump = string(data)
		}
	} else {
		if err := r.ParseForm(); err != nil {
			return req, fmt.Errorf("bad form: %w", err)
		}
	}

	if strings.TrimSpace(req.dump) == "" {
		req.dump = r.FormValue("dump")
	}
	req.tenant = strings.TrimSpace(r.FormValue("tenant"))
	req.dryRun = r.FormValue("dry_run") != ""

	if strings.TrimSpace(req.dump) == "" {
		return req, errors.New("no dump text supplied; paste it or upload a file")
	}
	if req.tenant == "" {
		return req, errors.New("tenant is required")
	}
	return req, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Println("webui: encode response:", err)
	}
}

// writeSSE emits one SSE frame with a JSON payload. Payloads never contain
// newlines because encoding/json escapes them, so a single data line is
// always enough.
func writeSSE(w io.Writer, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Println("webui: encode event:", err)
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}

//go:embed index.tmpl.html
var indexHTML string
