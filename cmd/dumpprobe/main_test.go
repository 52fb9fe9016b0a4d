package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDump(t *testing.T) {
	t.Parallel()

	const payload = "INSERT INTO users (id, name) VALUES (1, 'Ann');"

	t.Run("from file", func(t *testing.T) {
		t.Parallel()

		p := filepath.Join(t.TempDir(), "legacy.sql")
		if err := os.WriteFile(p, []byte(payload), 0o644); err != nil {
			t.Fatalf("write fixture: %v", err)
		}

		got, err := loadDump(context.Background(), p, "", nil)
		if err != nil {
			t.Fatalf("loadDump() error: %v", err)
		}
		if got != payload {
			t.Fatalf("loadDump() = %q, want %q", got, payload)
		}
	})

	t.Run("from stdin", func(t *testing.T) {
		t.Parallel()

		got, err := loadDump(context.Background(), "", "", strings.NewReader(payload))
		if err != nil {
			t.Fatalf("loadDump() error: %v", err)
		}
		if got != payload {
			t.Fatalf("loadDump() = %q, want %q", got, payload)
		}
	})

	t.Run("both sources rejected", func(t *testing.T) {
		t.Parallel()

		_, err := loadDump(context.Background(), "a.sql", "http://example.com/b.sql", nil)
		if err == nil || !strings.Contains(err.Error(), "not both") {
			t.Fatalf("expected conflict error, got %v", err)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		_, err := loadDump(context.Background(), filepath.Join(t.TempDir(), "nope.sql"), "", nil)
		if err == nil {
			t.Fatalf("expected error for missing file")
		}
	})
}
