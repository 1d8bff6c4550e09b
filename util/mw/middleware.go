package mw

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/wkalt/tsjoin/util/httputil"
	"github.com/wkalt/tsjoin/util/log"
)

/*
mw contains http middlewares.
*/

////////////////////////////////////////////////////////////////////////////////

// RequestIDHeader is the response header carrying the request ID.
const RequestIDHeader = "X-Request-ID"

// WithRequestID is a middleware that adds a request ID to the context of each
// request and echoes it in the response headers.
func WithRequestID(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.New().String()
		ctx := log.AddTags(r.Context(), "request_id", id)
		w.Header().Set(RequestIDHeader, id)
		h.ServeHTTP(w, r.WithContext(ctx))
	})
}

// WithCORSAllowedOrigins is a middleware that allows requests from specified
// origins.
func WithCORSAllowedOrigins(origins []string) func(http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			for _, o := range origins {
				if o == origin {
					w.Header().Set("Access-Control-Allow-Origin", o)
					w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
					break
				}
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
			h.ServeHTTP(w, r)
		})
	}
}

func parseBearerToken(authHeader string) string {
	scheme, token, ok := strings.Cut(authHeader, " ")
	if !ok || scheme != "Bearer" {
		return ""
	}
	return token
}

// WithSharedKeyAuth is a middleware that requires a shared key to be present in
// the Authorization header. An empty key disables the check.
func WithSharedKeyAuth(key string) func(http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key != "" {
				token := parseBearerToken(r.Header.Get("Authorization"))
				if token != key {
					httputil.Unauthorized(r.Context(), w, "invalid token")
					return
				}
			}
			h.ServeHTTP(w, r)
		})
	}
}
