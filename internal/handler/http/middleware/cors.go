// Package middleware provides HTTP middleware for the relay's public surface:
// CORS for the browser extension and per-IP rate limiting.
package middleware

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
)

// OriginValidator decides whether a browser origin may call the relay.
type OriginValidator interface {
	IsAllowed(origin string) bool
}

// AllowList accepts exact origins, "*" for any origin, and
// "scheme://*" entries matching every origin with that scheme
// (for example "chrome-extension://*").
type AllowList []string

// IsAllowed implements OriginValidator.
func (a AllowList) IsAllowed(origin string) bool {
	for _, allowed := range a {
		if allowed == "*" || allowed == origin {
			return true
		}
		if prefix, ok := strings.CutSuffix(allowed, "*"); ok && strings.HasSuffix(prefix, "://") &&
			strings.HasPrefix(origin, prefix) {
			return true
		}
	}
	return false
}

// AllowsAny reports whether the list contains "*".
func (a AllowList) AllowsAny() bool {
	return slices.Contains(a, "*")
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins AllowList
	AllowedMethods []string
	AllowedHeaders []string
	MaxAge         int
}

// CORS returns middleware that sets CORS headers and answers every preflight.
//
// Every response carries Access-Control-Allow-Private-Network so that HTTPS
// pages may reach a relay on localhost. OPTIONS requests end here with 204,
// whatever the path. With "*" configured the wildcard origin is sent and no
// credentials are allowed; otherwise a permitted origin is echoed back.
func CORS(config CORSConfig) func(http.Handler) http.Handler {
	methods := strings.Join(config.AllowedMethods, ", ")
	headers := strings.Join(config.AllowedHeaders, ", ")
	maxAge := strconv.Itoa(config.MaxAge)
	allowAny := config.AllowedOrigins.AllowsAny()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("Access-Control-Allow-Private-Network", "true")

			origin := r.Header.Get("Origin")
			switch {
			case allowAny:
				h.Set("Access-Control-Allow-Origin", "*")
			case origin != "" && config.AllowedOrigins.IsAllowed(origin):
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")
			}

			if r.Method == http.MethodOptions {
				h.Set("Access-Control-Allow-Methods", methods)
				h.Set("Access-Control-Allow-Headers", headers)
				h.Set("Access-Control-Max-Age", maxAge)
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
