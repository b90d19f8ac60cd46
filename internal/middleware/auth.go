package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/taskshare/taskshare/internal/auth"
	"github.com/taskshare/taskshare/internal/service"
)

// DefaultMinAuthDuration pads every authentication to blunt timing attacks.
const DefaultMinAuthDuration = 200 * time.Millisecond

// Authenticator resolves a bearer token. Implemented by *service.AuthService.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*auth.Principal, error)
}

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	Logger        *slog.Logger
	Authenticator Authenticator
	// MinDuration is the floor for time spent authenticating. Zero disables it.
	MinDuration time.Duration
}

// Auth authenticates the bearer token and stores the caller in the request
// context. Every rejection gets the same 401 body.
func Auth(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			pad := func() {
				if elapsed := time.Since(start); elapsed < cfg.MinDuration {
					time.Sleep(cfg.MinDuration - elapsed)
				}
			}

			token := extractBearerToken(r)
			if token == "" {
				pad()
				logAuthFailure(cfg.Logger, r, "missing_token")
				writeError(w, http.StatusUnauthorized, "Unauthenticated.")
				return
			}

			principal, err := cfg.Authenticator.Authenticate(r.Context(), token)
			pad()
			if err != nil {
				if errors.Is(err, service.ErrUnauthenticated) {
					logAuthFailure(cfg.Logger, r, "invalid_token")
					writeError(w, http.StatusUnauthorized, "Unauthenticated.")
					return
				}
				cfg.Logger.Error("authentication error",
					slog.String("error", err.Error()),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeError(w, http.StatusInternalServerError, "Something went wrong!")
				return
			}

			cfg.Logger.Debug("authentication successful",
				slog.String("user_id", principal.User.ID),
				slog.String("token_prefix", principal.Token.TokenPrefix),
				slog.String("request_id", GetRequestID(r.Context())),
			)

			annotateUser(r.Context(), principal.User.ID)
			ctx := auth.ContextWithPrincipal(r.Context(), principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func logAuthFailure(logger *slog.Logger, r *http.Request, reason string) {
	logger.Warn("authentication failed",
		slog.String("reason", reason),
		slog.String("ip", r.RemoteAddr),
		slog.String("endpoint", r.Method+" "+r.URL.Path),
		slog.String("request_id", GetRequestID(r.Context())),
	)
}

// extractBearerToken returns the token of an "Authorization: Bearer" header.
func extractBearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
