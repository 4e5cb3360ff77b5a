package storage

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/droprelay/service/internal/errs"
)

const testToken = "sl.test-token"

func newDropboxTestServer(t *testing.T, handler http.HandlerFunc) *DropboxStorage {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewDropboxStorage(testToken, srv.URL+"/2/")
}

func TestDropboxUpload(t *testing.T) {
	var (
		gotPath string
		gotArg  map[string]interface{}
		gotBody string
		gotAuth string
		gotType string
	)
	store := newDropboxTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		assert.NoError(t, json.Unmarshal([]byte(r.Header.Get(dropboxArgHeader)), &gotArg))
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"report.pdf","path_display":"/report.pdf","size":7}`))
	})

	err := store.Upload(context.Background(), "/report.pdf", strings.NewReader("content"), 7, "application/pdf")
	require.NoError(t, err)

	assert.Equal(t, "/2/files/upload", gotPath)
	assert.Equal(t, "Bearer "+testToken, gotAuth)
	assert.Equal(t, "application/octet-stream", gotType)
	assert.Equal(t, "content", gotBody)
	assert.Equal(t, "/report.pdf", gotArg["path"])
	assert.Equal(t, "add", gotArg["mode"])
	assert.Equal(t, false, gotArg["autorename"])
}

func TestDropboxDownload(t *testing.T) {
	store := newDropboxTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2/files/download", r.URL.Path)
		assert.Equal(t, "Bearer "+testToken, r.Header.Get("Authorization"))
		assert.JSONEq(t, `{"path":"/notes.txt"}`, r.Header.Get(dropboxArgHeader))
		w.Header().Set(dropboxResultHeader, `{"name":"Notes.txt","path_display":"/Notes.txt","size":5}`)
		_, _ = w.Write([]byte("hello"))
	})

	obj, err := store.Download(context.Background(), "/notes.txt")
	require.NoError(t, err)
	defer obj.Body.Close()

	data, err := io.ReadAll(obj.Body)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
	assert.Equal(t, "Notes.txt", obj.Name)
	assert.Equal(t, int64(5), obj.Size)
}

func TestDropboxDownload_MissingMetadata(t *testing.T) {
	for _, header := range []string{"", "not json"} {
		store := newDropboxTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			if header != "" {
				w.Header().Set(dropboxResultHeader, header)
			}
			_, _ = w.Write([]byte("bytes without metadata"))
		})

		_, err := store.Download(context.Background(), "/a.txt")
		assert.ErrorIs(t, err, ErrNoContent)
	}
}

func TestDropboxErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   errs.ErrKind
	}{
		{"missing path", http.StatusConflict, `{"error_summary":"path/not_found/..","error":{".tag":"path"}}`, errs.ErrKindNotFound},
		{"conflict", http.StatusConflict, `{"error_summary":"path/conflict/file/..","error":{".tag":"path"}}`, errs.ErrKindUnknown},
		{"quota", http.StatusConflict, `{"error_summary":"path/insufficient_space/.."}`, errs.ErrKindUnknown},
		{"expired token", http.StatusUnauthorized, `{"error_summary":"expired_access_token/.."}`, errs.ErrKindUnauthorized},
		{"missing scope", http.StatusForbidden, `{"error_summary":"missing_scope/.."}`, errs.ErrKindUnauthorized},
		{"rate limited", http.StatusTooManyRequests, `{"error_summary":"too_many_requests/.."}`, errs.ErrKindRateLimited},
		{"bad request", http.StatusBadRequest, "Error in call to API function", errs.ErrKindUnknown},
		{"server error", http.StatusBadGateway, "", errs.ErrKindTransport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newDropboxTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := store.Download(context.Background(), "/x")
			require.Error(t, err)
			assert.Equal(t, tt.want, errs.KindOf(err))

			var apiErr *DropboxAPIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.StatusCode)

			err = store.Upload(context.Background(), "/x", strings.NewReader("x"), 1, "")
			assert.Equal(t, tt.want, errs.KindOf(err))
		})
	}
}

func TestDropboxErrorSummaryIsKept(t *testing.T) {
	store := newDropboxTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error_summary":"path/not_found/.."}`))
	})

	_, err := store.Download(context.Background(), "/gone.txt")
	assert.ErrorContains(t, err, "path/not_found")
	assert.ErrorContains(t, err, `download "/gone.txt"`)
}

func TestDropboxTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	store := NewDropboxStorage(testToken, srv.URL)
	srv.Close()

	_, err := store.Download(context.Background(), "/a")
	assert.True(t, errs.IsTransport(err))
}

func TestDropboxCancelledContext(t *testing.T) {
	store := newDropboxTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("request must not reach the server")
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := store.Upload(ctx, "/a", strings.NewReader("a"), 1, "")
	assert.True(t, errs.IsTransport(err))
}

func TestDropboxArg_EscapesNonASCII(t *testing.T) {
	got, err := dropboxArg(dropboxDownloadArg{Path: "/résumé 😀.txt"})
	require.NoError(t, err)

	assert.Equal(t, `{"path":"/r\u00e9sum\u00e9 \ud83d\ude00.txt"}`, got)

	var back dropboxDownloadArg
	require.NoError(t, json.Unmarshal([]byte(got), &back))
	assert.Equal(t, "/résumé 😀.txt", back.Path)
}
