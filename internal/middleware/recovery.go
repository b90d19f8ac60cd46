package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/go-chi/chi/v5"
)

// Recoverer turns a handler panic into a logged 500 envelope. The log line
// names the matched route and, once Auth has run, the calling user. If the
// handler already started its response nothing more is written.
func Recoverer(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rvr := recover()
				if rvr == nil {
					return
				}
				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}

				attrs := []slog.Attr{
					slog.String("request_id", GetRequestID(r.Context())),
					slog.String("method", r.Method),
					slog.String("route", routePattern(r)),
					slog.Any("panic", rvr),
					slog.String("stack", string(debug.Stack())),
				}
				if f, ok := r.Context().Value(requestFieldsKey{}).(*requestFields); ok && f.userID != "" {
					attrs = append(attrs, slog.String("user_id", f.userID))
				}
				logger.LogAttrs(r.Context(), slog.LevelError, "panic recovered", attrs...)

				if sr, ok := w.(*statusRecorder); ok && sr.status != 0 {
					return
				}
				writeError(w, http.StatusInternalServerError, "Something went wrong!")
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// routePattern returns the chi pattern, such as /api/v1/tasks/{id}, so IDs
// stay out of the log. Outside a chi router it falls back to the path.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}
