package middleware

import (
	"net/http"
	"net/url"

	"github.com/droprelay/service/internal/response"
)

// RequireOrigin returns middleware that rejects cross-origin requests from
// any origin other than allowed. Requests without an Origin header, and
// requests from the gateway's own host (its bundled UI), pass through.
// Preflight requests are subject to the same check, so disallowed origins
// never reach the CORS handler.
func RequireOrigin(allowed string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" || origin == allowed || sameHost(origin, r.Host) {
				next.ServeHTTP(w, r)
				return
			}
			response.Forbidden(w, "Origin not allowed.")
		})
	}
}

// sameHost reports whether origin names host, e.g. "http://localhost:3000"
// and "localhost:3000".
func sameHost(origin, host string) bool {
	u, err := url.Parse(origin)
	return err == nil && u.Host != "" && u.Host == host
}
