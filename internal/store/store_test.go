package store

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

// fakeStore is a minimal Store implementation for registry tests.
type fakeStore struct {
	closed bool
}

func (f *fakeStore) Find(ctx context.Context, table string, filter Filter) ([]Row, error) {
	return nil, nil
}
func (f *fakeStore) Upsert(ctx context.Context, table string, rows []Row, conflictCols []string) (int64, error) {
	return int64(len(rows)), nil
}
func (f *fakeStore) Count(ctx context.Context, table string, filter Filter) (int64, error) {
	return 0, nil
}
func (f *fakeStore) Exec(ctx context.Context, sql string) error { return nil }
func (f *fakeStore) Close()                                     { f.closed = true }

func TestRegisterAndNew(t *testing.T) {
	t.Parallel()

	kind := "fake"
	Register(kind, func(ctx context.Context, cfg Config) (Store, error) {
		return &fakeStore{}, nil
	})

	s, err := New(context.Background(), Config{Kind: kind})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if s == nil {
		t.Fatalf("New returned nil store")
	}

	found := false
	for _, k := range ListKinds() {
		if k == kind {
			found = true
			break
		}
	}
	if !found {
		t.Fatalf("registered kind %q not present in ListKinds: %v", kind, ListKinds())
	}
}

func TestNewUnsupported(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), Config{Kind: "does-not-exist"})
	if err == nil {
		t.Fatalf("expected error for unsupported kind")
	}
	if got, want := err.Error(), "unsupported store.kind=does-not-exist"; got != want {
		t.Fatalf("error = %q, want %q", got, want)
	}
}

// Re-registering a kind overrides the previous factory, which is how tests
// inject fakes.
func TestRegisterOverride(t *testing.T) {
	t.Parallel()

	kind := "override"
	calls := 0

	Register(kind, func(ctx context.Context, cfg Config) (Store, error) {
		calls++
		return &fakeStore{}, nil
	})
	Register(kind, func(ctx context.Context, cfg Config) (Store, error) {
		calls += 10
		return &fakeStore{}, nil
	})

	if _, err := New(context.Background(), Config{Kind: kind}); err != nil {
		t.Fatalf("New error: %v", err)
	}
	if calls != 10 {
		t.Fatalf("factory call count = %d, want 10", calls)
	}
}

func TestListKindsSnapshot(t *testing.T) {
	t.Parallel()

	Register("snap", func(ctx context.Context, cfg Config) (Store, error) { return &fakeStore{}, nil })

	a := ListKinds()
	if len(a) == 0 {
		t.Fatalf("ListKinds empty after registration")
	}
	a[0] = "mutated"

	b := ListKinds()
	if reflect.DeepEqual(a, b) {
		t.Fatalf("ListKinds returned same slice; want snapshot copy")
	}
}

func TestFactoryErrorsBubbleUp(t *testing.T) {
	t.Parallel()

	want := errors.New("boom")
	Register("errkind", func(ctx context.Context, cfg Config) (Store, error) {
		return nil, want
	})

	_, err := New(context.Background(), Config{Kind: "errkind"})
	if !errors.Is(err, want) {
		t.Fatalf("want %v, got %v", want, err)
	}
}

func TestEnsureSchema(t *testing.T) {
	t.Parallel()

	ran := false
	RegisterDDL("ddlkind", func(ctx context.Context, s Store) error {
		ran = true
		return nil
	})

	if err := EnsureSchema(context.Background(), "ddlkind", &fakeStore{}); err != nil {
		t.Fatalf("EnsureSchema error: %v", err)
	}
	if !ran {
		t.Fatalf("bootstrapper did not run")
	}

	if err := EnsureSchema(context.Background(), "no-ddl", &fakeStore{}); err == nil {
		t.Fatalf("expected error for unregistered kind")
	}
}
