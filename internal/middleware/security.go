package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// apiPrefix marks the routes that return per-user task data.
const apiPrefix = "/api/v1/"

// SecurityConfig controls the response headers of the task-list API.
type SecurityConfig struct {
	IsDevelopment bool
	// HSTSMaxAge is advertised outside development. Zero omits the header.
	HSTSMaxAge time.Duration
}

// Security sets the headers for a JSON-only API. Responses under /api/v1
// depend on the bearer token, so they are never stored and vary on
// Authorization.
func Security(cfg SecurityConfig) func(http.Handler) http.Handler {
	var hsts string
	if !cfg.IsDevelopment && cfg.HSTSMaxAge > 0 {
		hsts = fmt.Sprintf("max-age=%d; includeSubDomains", int64(cfg.HSTSMaxAge/time.Second))
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			// Task list and task IDs appear in paths.
			h.Set("Referrer-Policy", "no-referrer")
			h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'; sandbox")
			h.Set("Cross-Origin-Resource-Policy", "same-origin")
			if hsts != "" {
				h.Set("Strict-Transport-Security", hsts)
			}

			if strings.HasPrefix(r.URL.Path, apiPrefix) {
				h.Set("Cache-Control", "no-store")
				h.Add("Vary", "Authorization")
			}

			next.ServeHTTP(w, r)
		})
	}
}

// MaxBodySize caps request bodies at maxBytes. Declared oversize bodies get
// a 413 envelope up front; streamed ones fail on read and surface as a bad
// request body in the handler.
func MaxBodySize(maxBytes int64) func(http.Handler) http.Handler {
	message := fmt.Sprintf("Request body must not exceed %s.", formatBytes(maxBytes))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body == nil || r.Body == http.NoBody {
				next.ServeHTTP(w, r)
				return
			}
			if r.ContentLength > maxBytes {
				writeError(w, http.StatusRequestEntityTooLarge, message)
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

func formatBytes(n int64) string {
	switch {
	case n >= 1<<20 && n%(1<<20) == 0:
		return fmt.Sprintf("%d MiB", n>>20)
	case n >= 1<<10 && n%(1<<10) == 0:
		return fmt.Sprintf("%d KiB", n>>10)
	default:
		return fmt.Sprintf("%d bytes", n)
	}
}
