// Package file relays uploaded files to the remote store and streams them
// back on request.
package file

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/droprelay/service/internal/errs"
	"github.com/droprelay/service/internal/logger"
	"github.com/droprelay/service/internal/staging"
	"github.com/droprelay/service/internal/storage"
)

// ErrInvalidName is returned for file names that cannot map to a flat key.
var ErrInvalidName = errs.New(errs.ErrKindInvalidInput, "invalid file name")

const uploadContentType = "application/octet-stream"

// ObjectKey maps a file name to its remote key, "/" + name. Names are used
// verbatim apart from rejecting the ones that would leave the flat namespace:
// empty, "." and "..", and anything containing a path separator or NUL.
func ObjectKey(fileName string) (string, error) {
	if fileName == "" || fileName == "." || fileName == ".." ||
		strings.ContainsAny(fileName, "/\\\x00") {
		return "", ErrInvalidName
	}
	return "/" + fileName, nil
}

// Service contains the upload/download relay logic.
type Service struct {
	store   storage.Storage
	staging *staging.Buffer
	timeout time.Duration
}

// NewService creates a new file Service. timeout bounds each remote call;
// zero leaves remote calls unbounded.
func NewService(store storage.Storage, buf *staging.Buffer, timeout time.Duration) *Service {
	return &Service{store: store, staging: buf, timeout: timeout}
}

// Upload stages content locally and forwards it to the remote store under
// ObjectKey(fileName). The staged copy is removed on every return path.
func (s *Service) Upload(ctx context.Context, fileName string, content io.Reader) error {
	key, err := ObjectKey(fileName)
	if err != nil {
		return err
	}

	staged, err := s.staging.Stage(ctx, content)
	if err != nil {
		return fmt.Errorf("stage %q: %w", fileName, err)
	}
	defer func() {
		if err := staged.Remove(); err != nil {
			logger.FromContext(ctx).ErrorWith("failed to remove staged file", err, map[string]interface{}{
				"path": staged.Path(),
			})
		}
	}()

	f, err := staged.Open()
	if err != nil {
		return err
	}
	defer f.Close()

	ctx, cancel := s.remoteContext(ctx)
	defer cancel()

	if err := s.store.Upload(ctx, key, f, staged.Size(), uploadContentType); err != nil {
		return fmt.Errorf("upload %q: %w", key, err)
	}
	return nil
}

// Download opens the remote object for fileName. The caller closes the
// returned Body; closing it also releases the remote deadline.
func (s *Service) Download(ctx context.Context, fileName string) (*storage.Object, error) {
	key, err := ObjectKey(fileName)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.remoteContext(ctx)
	obj, err := s.store.Download(ctx, key)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("download %q: %w", key, err)
	}
	if obj == nil || obj.Body == nil {
		cancel()
		return nil, fmt.Errorf("download %q: %w", key, storage.ErrNoContent)
	}

	obj.Body = &cancelOnClose{ReadCloser: obj.Body, cancel: cancel}
	return obj, nil
}

// IsInvalidName reports whether err was caused by an unusable file name.
func (s *Service) IsInvalidName(err error) bool {
	return errors.Is(err, ErrInvalidName)
}

func (s *Service) remoteContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout > 0 {
		return context.WithTimeout(ctx, s.timeout)
	}
	return context.WithCancel(ctx)
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
