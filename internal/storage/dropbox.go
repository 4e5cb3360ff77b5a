package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf16"

	"golang.org/x/oauth2"

	"github.com/droprelay/service/internal/errs"
)

// DefaultDropboxContentURL is the base of Dropbox's content-upload and
// content-download endpoints.
const DefaultDropboxContentURL = "https://content.dropboxapi.com/2"

const (
	dropboxArgHeader    = "Dropbox-API-Arg"
	dropboxResultHeader = "Dropbox-API-Result"

	// Error bodies are small JSON documents; anything longer is truncated.
	maxErrorBody = 64 << 10
)

// DropboxStorage implements Storage on top of the Dropbox HTTP API. Every
// request carries the process-wide bearer token and the caller's context.
type DropboxStorage struct {
	client     *http.Client
	contentURL string
}

// NewDropboxStorage returns a client that authenticates with accessToken.
// contentURL overrides DefaultDropboxContentURL when non-empty.
func NewDropboxStorage(accessToken, contentURL string) *DropboxStorage {
	if contentURL == "" {
		contentURL = DefaultDropboxContentURL
	}
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
	return &DropboxStorage{
		client:     oauth2.NewClient(context.Background(), src),
		contentURL: strings.TrimRight(contentURL, "/"),
	}
}

type dropboxUploadArg struct {
	Path       string `json:"path"`
	Mode       string `json:"mode"`
	Autorename bool   `json:"autorename"`
	Mute       bool   `json:"mute"`
}

type dropboxDownloadArg struct {
	Path string `json:"path"`
}

// dropboxFileMetadata is the subset of FileMetadata the gateway reads.
type dropboxFileMetadata struct {
	Name        string `json:"name"`
	PathDisplay string `json:"path_display"`
	Size        int64  `json:"size"`
}

// DropboxAPIError describes a non-200 answer from the Dropbox API.
type DropboxAPIError struct {
	StatusCode int
	Summary    string
}

func (e *DropboxAPIError) Error() string {
	if e.Summary == "" {
		return fmt.Sprintf("dropbox api: status %d", e.StatusCode)
	}
	return fmt.Sprintf("dropbox api: status %d: %s", e.StatusCode, e.Summary)
}

// Upload sends reader to /files/upload. Existing objects at key are not
// replaced; Dropbox reports a conflict instead.
func (s *DropboxStorage) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	arg, err := dropboxArg(dropboxUploadArg{Path: key, Mode: "add"})
	if err != nil {
		return errs.Wrap(errs.ErrKindInvalidInput, "encode upload argument", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.contentURL+"/files/upload", reader)
	if err != nil {
		return fmt.Errorf("build upload request: %w", err)
	}
	if size >= 0 {
		req.ContentLength = size
	}
	// The upload endpoint only accepts octet-stream bodies.
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set(dropboxArgHeader, arg)

	resp, err := s.client.Do(req)
	if err != nil {
		return errs.Wrap(errs.ErrKindTransport, fmt.Sprintf("upload %q", key), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return mapDropboxResponse(resp, fmt.Sprintf("upload %q", key))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// Download fetches key from /files/download. The object's metadata arrives
// in the Dropbox-API-Result header; without it the answer is unusable.
func (s *DropboxStorage) Download(ctx context.Context, key string) (*Object, error) {
	arg, err := dropboxArg(dropboxDownloadArg{Path: key})
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "encode download argument", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.contentURL+"/files/download", nil)
	if err != nil {
		return nil, fmt.Errorf("build download request: %w", err)
	}
	req.Header.Set(dropboxArgHeader, arg)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindTransport, fmt.Sprintf("download %q", key), err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, mapDropboxResponse(resp, fmt.Sprintf("download %q", key))
	}

	var meta dropboxFileMetadata
	raw := resp.Header.Get(dropboxResultHeader)
	if raw == "" || json.Unmarshal([]byte(raw), &meta) != nil {
		resp.Body.Close()
		return nil, fmt.Errorf("download %q: %w", key, ErrNoContent)
	}

	size := meta.Size
	if resp.ContentLength >= 0 {
		size = resp.ContentLength
	}
	return &Object{Name: meta.Name, Size: size, Body: resp.Body}, nil
}

// dropboxArg encodes v for the Dropbox-API-Arg header. HTTP headers must be
// ASCII, so every rune from 0x7F up is written as a \uXXXX escape.
func dropboxArg(v interface{}) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, r := range string(b) {
		if r < 0x7f {
			sb.WriteRune(r)
			continue
		}
		if r > 0xffff {
			hi, lo := utf16.EncodeRune(r)
			fmt.Fprintf(&sb, "\\u%04x\\u%04x", hi, lo)
			continue
		}
		fmt.Fprintf(&sb, "\\u%04x", r)
	}
	return sb.String(), nil
}

// mapDropboxResponse reads the error body of resp and classifies it.
func mapDropboxResponse(resp *http.Response, msg string) *errs.Error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	apiErr := &DropboxAPIError{StatusCode: resp.StatusCode}
	var parsed struct {
		ErrorSummary string `json:"error_summary"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.ErrorSummary != "" {
		apiErr.Summary = parsed.ErrorSummary
	} else {
		apiErr.Summary = strings.TrimSpace(string(body))
	}

	return errs.Wrap(dropboxKind(apiErr), msg, apiErr)
}

func dropboxKind(e *DropboxAPIError) errs.ErrKind {
	switch {
	case e.StatusCode == http.StatusUnauthorized, e.StatusCode == http.StatusForbidden:
		return errs.ErrKindUnauthorized
	case e.StatusCode == http.StatusTooManyRequests:
		return errs.ErrKindRateLimited
	case e.StatusCode == http.StatusConflict && strings.HasPrefix(e.Summary, "path/not_found"):
		return errs.ErrKindNotFound
	case e.StatusCode >= http.StatusInternalServerError:
		return errs.ErrKindTransport
	default:
		return errs.ErrKindUnknown
	}
}
