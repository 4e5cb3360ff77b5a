// Package staging materialises uploaded payloads on local disk before they
// are forwarded to the remote store. The staging directory is a transient
// buffer only: every staged file belongs to exactly one request and is
// removed when that request finishes.
package staging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const filePrefix = "upload-"

// ErrTooLarge is returned by Stage when the payload exceeds the buffer limit.
var ErrTooLarge = errors.New("staging: payload exceeds size limit")

// Buffer stages payloads under a single directory.
type Buffer struct {
	dir      string
	maxBytes int64
}

// New ensures dir exists and returns a Buffer that accepts payloads of at
// most maxBytes bytes. maxBytes <= 0 disables the limit.
func New(dir string, maxBytes int64) (*Buffer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create staging dir %q: %w", dir, err)
	}
	return &Buffer{dir: dir, maxBytes: maxBytes}, nil
}

// Dir returns the staging directory.
func (b *Buffer) Dir() string {
	return b.dir
}

// Stage copies src into a new uniquely named file. On any error the partial
// file is removed and no File is returned.
func (b *Buffer) Stage(ctx context.Context, src io.Reader) (*File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := filepath.Join(b.dir, filePrefix+uuid.NewString())
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, fmt.Errorf("create staged file: %w", err)
	}

	staged := &File{path: path}
	n, err := copyLimited(ctx, f, src, b.maxBytes)
	if closeErr := f.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("close staged file: %w", closeErr)
	}
	if err != nil {
		_ = staged.Remove()
		return nil, err
	}

	staged.size = n
	return staged, nil
}

// Sweep removes staged files left behind by a previous process and returns
// how many were deleted.
func (b *Buffer) Sweep() (int, error) {
	entries, err := os.ReadDir(b.dir)
	if err != nil {
		return 0, fmt.Errorf("read staging dir: %w", err)
	}

	removed := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), filePrefix) {
			continue
		}
		if err := os.Remove(filepath.Join(b.dir, e.Name())); err != nil && !os.IsNotExist(err) {
			return removed, fmt.Errorf("remove %q: %w", e.Name(), err)
		}
		removed++
	}
	return removed, nil
}

func copyLimited(ctx context.Context, dst io.Writer, src io.Reader, maxBytes int64) (int64, error) {
	r := io.Reader(&contextReader{ctx: ctx, r: src})
	if maxBytes > 0 {
		// One extra byte tells "exactly at the limit" apart from "over it".
		r = io.LimitReader(r, maxBytes+1)
	}

	n, err := io.Copy(dst, r)
	if err != nil {
		return n, fmt.Errorf("write staged file: %w", err)
	}
	if maxBytes > 0 && n > maxBytes {
		return n, ErrTooLarge
	}
	return n, nil
}

// contextReader stops reading once ctx is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
