// Package source abstracts where a legacy dump comes from. A dump is a blob
// of SQL text; it can live on local disk, behind an HTTP endpoint, or arrive
// inline (pasted into the web form). Every variant yields an io.ReadCloser
// so downstream code never cares about the origin.
package source

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// DefaultMaxBytes caps how much dump text ReadAll will accept. Legacy dumps
// are text; anything beyond this is almost certainly a mistake (a binary
// backup, a tarball) and would only bloat the in-memory scan.
const DefaultMaxBytes = 64 << 20

// Source yields the raw dump bytes. Implementations must return a fresh
// reader on every call so a dump can be read more than once.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// Literal is an in-memory Source wrapping already-loaded dump text. The web
// form and tests use it.
type Literal string

// Open returns a reader over the literal text. The context is only checked
// for early cancellation.
func (l Literal) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return io.NopCloser(strings.NewReader(string(l))), nil
}

// ReadAll drains src into a string, enforcing a byte cap. maxBytes <= 0
// selects DefaultMaxBytes. Dumps larger than the cap return an error rather
// than a truncated string; a silently clipped dump would parse "successfully"
// and migrate a fraction of the rows.
func ReadAll(ctx context.Context, src Source, maxBytes int64) (string, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}

	rc, err := src.Open(ctx)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	// Read one byte past the cap so overflow is detectable.
	data, err := io.ReadAll(io.LimitReader(rc, maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("source: read dump: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return "", fmt.Errorf("source: dump exceeds %d bytes; refusing to load it into memory", maxBytes)
	}
	return string(data), nil
}
