package webui

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"dumpmigrate/internal/runner"
)

const sampleDump = `INSERT INTO users (id, name, email) VALUES
(1, 'Ann Lee', 'ann@example.com'),
(2, 'Bob Ray', 'bob@example.com');
INSERT INTO trainers (id, name, email) VALUES (7, 'Tina Coach', 'tina@example.com');
`

func newTestServer(cfg Config) *httptest.Server {
	return httptest.NewServer(NewServer(cfg).Handler())
}

func postForm(t *testing.T, target string, form map[string]string) *http.Response {
	t.Helper()
	values := url.Values{}
	for k, v := range form {
		values.Set(k, v)
	}
	resp, err := http.PostForm(target, values)
	if err != nil {
		t.Fatalf("POST %s: %v", target, err)
	}
	return resp
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	srv := newTestServer(Config{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("body = %v, want status ok", body)
	}
}

func TestIndexRendersForm(t *testing.T) {
	t.Parallel()

	srv := newTestServer(Config{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	for _, want := range []string{"<form", `name="dump"`, `name="tenant"`, `name="dry_run"`} {
		if !strings.Contains(string(body), want) {
			t.Fatalf("index page missing %q", want)
		}
	}
}

func TestIndexUnknownPathIs404(t *testing.T) {
	t.Parallel()

	srv := newTestServer(Config{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/nope")
	if err != nil {
		t.Fatalf("GET /nope: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

// TestPreviewEndToEnd posts a real dump through the HTTP surface and checks
// the JSON report coming back.
func TestPreviewEndToEnd(t *testing.T) {
	t.Parallel()

	srv := newTestServer(Config{})
	defer srv.Close()

	resp := postForm(t, srv.URL+"/preview", map[string]string{
		"dump":   sampleDump,
		"tenant": "gym-1",
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("status = %d, body = %s", resp.StatusCode, body)
	}

	var pv runner.PreviewResult
	if err := json.NewDecoder(resp.Body).Decode(&pv); err != nil {
		t.Fatalf("decode preview: %v", err)
	}
	if pv.MemberCount != 2 {
		t.Fatalf("MemberCount = %d, want 2", pv.MemberCount)
	}
	if pv.StaffCount != 1 {
		t.Fatalf("StaffCount = %d, want 1", pv.StaffCount)
	}
}

func TestPreviewValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		form    map[string]string
		wantMsg string
	}{
		{
			name:    "missing tenant",
			form:    map[string]string{"dump": sampleDump},
			wantMsg: "tenant is required",
		},
		{
			name:    "missing dump",
			form:    map[string]string{"tenant": "gym-1"},
			wantMsg: "no dump text supplied",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := newTestServer(Config{})
			defer srv.Close()

			resp := postForm(t, srv.URL+"/preview", tt.form)
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", resp.StatusCode)
			}
			var body map[string]string
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if !strings.Contains(body["error"], tt.wantMsg) {
				t.Fatalf("error = %q, want substring %q", body["error"], tt.wantMsg)
			}
		})
	}
}

// TestPreviewMultipartUpload exercises the file-upload path: the uploaded
// file should win over the (empty) textarea.
func TestPreviewMultipartUpload(t *testing.T) {
	t.Parallel()

	srv := newTestServer(Config{})
	defer srv.Close()

	var buf strings.Builder
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "legacy.sql")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	io.WriteString(fw, sampleDump)
	mw.WriteField("tenant", "gym-1")
	mw.Close()

	resp, err := http.Post(srv.URL+"/preview", mw.FormDataContentType(), strings.NewReader(buf.String()))
	if err != nil {
		t.Fatalf("POST /preview: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("status = %d, body = %s", resp.StatusCode, body)
	}
	var pv runner.PreviewResult
	if err := json.NewDecoder(resp.Body).Decode(&pv); err != nil {
		t.Fatalf("decode preview: %v", err)
	}
	if pv.MemberCount != 2 {
		t.Fatalf("MemberCount = %d, want 2", pv.MemberCount)
	}
}

func TestPreviewRejectsGet(t *testing.T) {
	t.Parallel()

	srv := newTestServer(Config{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/preview")
	if err != nil {
		t.Fatalf("GET /preview: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", resp.StatusCode)
	}
}

// TestRunDryRunStreamsSSE drives a real dry run through the SSE endpoint and
// parses the resulting event stream.
func TestRunDryRunStreamsSSE(t *testing.T) {
	t.Parallel()

	srv := newTestServer(Config{})
	defer srv.Close()

	form := url.Values{
		"dump":    {sampleDump},
		"tenant":  {"gym-1"},
		"dry_run": {"1"},
	}
	resp, err := http.PostForm(srv.URL+"/run", form)
	if err != nil {
		t.Fatalf("POST /run: %v", err)
	}
	defer resp.Body.Close()

	if got := resp.Header.Get("Content-Type"); got != "text/event-stream" {
		t.Fatalf("Content-Type = %q, want text/event-stream", got)
	}

	events := parseSSE(t, resp.Body)
	if len(events) < 2 {
		t.Fatalf("expected at least a progress and a result event, got %d", len(events))
	}

	var sawProgress bool
	for _, ev := range events[:len(events)-1] {
		if ev.name != "progress" {
			t.Fatalf("unexpected event %q before the result", ev.name)
		}
		sawProgress = true
		var progress runner.Event
		if err := json.Unmarshal([]byte(ev.data), &progress); err != nil {
			t.Fatalf("decode progress event %q: %v", ev.data, err)
		}
	}
	if !sawProgress {
		t.Fatalf("no progress events observed")
	}

	last := events[len(events)-1]
	if last.name != "result" {
		t.Fatalf("last event = %q, want result", last.name)
	}
	var res runner.RunResult
	if err := json.Unmarshal([]byte(last.data), &res); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if !res.DryRun {
		t.Fatalf("result.DryRun = false, want true")
	}
	if res.MemberCount != 2 || res.StaffCount != 1 {
		t.Fatalf("result counts = %d/%d, want 2/1", res.MemberCount, res.StaffCount)
	}
}

func TestRunWithoutStoreIsRejected(t *testing.T) {
	t.Parallel()

	srv := newTestServer(Config{})
	defer srv.Close()

	resp := postForm(t, srv.URL+"/run", map[string]string{
		"dump":   sampleDump,
		"tenant": "gym-1",
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if !strings.Contains(body["error"], "no store configured") {
		t.Fatalf("error = %q, want store rejection", body["error"])
	}
}

// TestRunStreamsErrorEvent swaps the run seam so the engine fails after the
// stream has begun; the failure must surface as an "error" event.
func TestRunStreamsErrorEvent(t *testing.T) {
	orig := runMigration
	defer func() { runMigration = orig }()

	runMigration = func(_ context.Context, _, tenantID string, opts runner.Options) (*runner.RunResult, error) {
		opts.Progress.Publish(runner.Event{RunID: "r1", Phase: runner.PhaseResolving, Percent: 0})
		return nil, errors.New("resolve references: permission denied")
	}

	srv := newTestServer(Config{})
	defer srv.Close()

	resp := postForm(t, srv.URL+"/run", map[string]string{
		"dump":    sampleDump,
		"tenant":  "gym-1",
		"dry_run": "1",
	})
	defer resp.Body.Close()

	events := parseSSE(t, resp.Body)
	if len(events) != 2 {
		t.Fatalf("expected progress + error events, got %#v", events)
	}
	if events[0].name != "progress" || events[1].name != "error" {
		t.Fatalf("event names = %q, %q; want progress, error", events[0].name, events[1].name)
	}
	if !strings.Contains(events[1].data, "permission denied") {
		t.Fatalf("error event %q does not carry the failure", events[1].data)
	}
}

type sseEvent struct {
	name string
	data string
}

// parseSSE splits a text/event-stream body into (event, data) pairs.
func parseSSE(t *testing.T, r io.Reader) []sseEvent {
	t.Helper()

	body, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read stream: %v", err)
	}

	var events []sseEvent
	for _, chunk := range strings.Split(string(body), "\n\n") {
		if strings.TrimSpace(chunk) == "" {
			continue
		}
		var ev sseEvent
		for _, line := range strings.Split(chunk, "\n") {
			switch {
			case strings.HasPrefix(line, "event: "):
				ev.name = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				ev.data += strings.TrimPrefix(line, "data: ")
			}
		}
		if ev.name != "" || ev.data != "" {
			events = append(events, ev)
		}
	}
	return events
}
