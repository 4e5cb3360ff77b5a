package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/droprelay/service/internal/logger"
)

func TestRequireOrigin(t *testing.T) {
	const allowed = "http://localhost:5500"

	tests := []struct {
		name   string
		origin string
		host   string
		want   int
	}{
		{"no origin", "", "localhost:3000", http.StatusNoContent},
		{"allowed origin", allowed, "localhost:3000", http.StatusNoContent},
		{"same host", "http://localhost:3000", "localhost:3000", http.StatusNoContent},
		{"foreign origin", "https://evil.example", "localhost:3000", http.StatusForbidden},
		{"null origin", "null", "localhost:3000", http.StatusForbidden},
		{"allowed host other port", "http://localhost:5501", "localhost:3000", http.StatusForbidden},
	}

	h := RequireOrigin(allowed)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/download?fileName=a", nil)
			req.Host = tt.host
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			rec := httptest.NewRecorder()

			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusForbidden {
				assert.Equal(t, "Origin not allowed.", rec.Body.String())
			}
		})
	}
}

func TestLogger_AttachesRequestLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	base := logger.New(&logger.Config{Level: "info", Format: "json", Output: buf})

	h := chiMiddleware.RequestID(Logger(base)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.FromContext(r.Context()).Info("inside handler")
		w.WriteHeader(http.StatusTeapot)
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/upload", nil))

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var inner, done map[string]interface{}
	require.NoError(t, json.Unmarshal(lines[0], &inner))
	require.NoError(t, json.Unmarshal(lines[1], &done))

	assert.Equal(t, "inside handler", inner["message"])
	assert.NotEmpty(t, inner["request_id"])
	assert.Equal(t, inner["request_id"], done["request_id"])
	assert.Equal(t, "request completed", done["message"])
	assert.Equal(t, float64(http.StatusTeapot), done["status"])
	assert.Equal(t, "/upload", done["path"])
}
