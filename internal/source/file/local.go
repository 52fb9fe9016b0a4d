// Package file reads legacy dumps from the local filesystem.
package file

import (
	"context"
	"fmt"
	"io"
	"os"
)

// Local opens a dump file from local disk.
type Local struct{ path string }

// NewLocal returns a Local source bound to path. The path is not touched
// until Open is called.
func NewLocal(path string) *Local { return &Local{path: path} }

// Open opens the dump file for reading. A canceled context short-circuits
// before the filesystem is touched. Directories are rejected up front so the
// caller gets a clear message instead of a read error mid-stream. Filesystem
// errors are wrapped with the path and stay errors.Is-compatible
// (os.ErrNotExist and friends).
func (l *Local) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := os.Stat(l.path)
	if err != nil {
		return nil, fmt.Errorf("open dump %s: %w", l.path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("open dump %s: is a directory, expected a SQL text file", l.path)
	}

	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open dump %s: %w", l.path, err)
	}
	return f, nil
}
