package source

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

// failingSource returns a fixed error from Open, to exercise error paths.
type failingSource struct{ err error }

func (f failingSource) Open(context.Context) (io.ReadCloser, error) { return nil, f.err }

func TestLiteralOpen(t *testing.T) {
	t.Parallel()

	rc, err := Literal("INSERT INTO users VALUES (1);").Open(context.Background())
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer rc.Close()

	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("reading: %v", err)
	}
	if string(got) != "INSERT INTO users VALUES (1);" {
		t.Fatalf("content mismatch: got %q", string(got))
	}
}

func TestLiteralOpenCanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := Literal("x").Open(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestReadAll(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name            string
		src             Source
		maxBytes        int64
		want            string
		wantErrContains string
	}{
		{
			name:     "within cap",
			src:      Literal("SELECT 1;"),
			maxBytes: 100,
			want:     "SELECT 1;",
		},
		{
			name:     "exactly at cap",
			src:      Literal("abcde"),
			maxBytes: 5,
			want:     "abcde",
		},
		{
			name:            "over cap",
			src:             Literal(strings.Repeat("x", 11)),
			maxBytes:        10,
			wantErrContains: "exceeds 10 bytes",
		},
		{
			name:     "zero cap selects default",
			src:      Literal("small"),
			maxBytes: 0,
			want:     "small",
		},
		{
			name:            "open failure propagates",
			src:             failingSource{err: errors.New("boom")},
			maxBytes:        100,
			wantErrContains: "boom",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ReadAll(context.Background(), tt.src, tt.maxBytes)
			if tt.wantErrContains != "" {
				if err == nil {
					t.Fatalf("expected error containing %q, got nil", tt.wantErrContains)
				}
				if !strings.Contains(err.Error(), tt.wantErrContains) {
					t.Fatalf("error %q does not contain %q", err, tt.wantErrContains)
				}
				return
			}
			if err != nil {
				t.Fatalf("ReadAll() error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("ReadAll() = %q, want %q", got, tt.want)
			}
		})
	}
}
