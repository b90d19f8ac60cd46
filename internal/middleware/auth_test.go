package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/taskshare/taskshare/internal/auth"
	"github.com/taskshare/taskshare/internal/handler/dto"
	"github.com/taskshare/taskshare/internal/model"
	"github.com/taskshare/taskshare/internal/service"
)

type fakeAuthenticator struct {
	tokens map[string]*model.User
	err    error
	seen   []string
}

func (f *fakeAuthenticator) Authenticate(ctx context.Context, token string) (*auth.Principal, error) {
	f.seen = append(f.seen, token)
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.tokens[token]
	if !ok {
		return nil, service.ErrInvalidToken
	}
	return &auth.Principal{User: u, Token: &model.AuthContext{UserID: u.ID, TokenID: "t-" + u.ID}}, nil
}

func newAuthTestHandler(a Authenticator, minDuration time.Duration) (http.Handler, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	mw := Auth(AuthConfig{Logger: logger, Authenticator: a, MinDuration: minDuration})
	return mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(auth.UserIDFromContext(r.Context())))
	})), &buf
}

func TestAuth(t *testing.T) {
	t.Parallel()

	authn := &fakeAuthenticator{tokens: map[string]*model.User{"good": {ID: "u1"}}}
	handler, _ := newAuthTestHandler(authn, 0)

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{"valid", "Bearer good", http.StatusOK, "u1"},
		{"lowercase scheme", "bearer good", http.StatusOK, "u1"},
		{"missing header", "", http.StatusUnauthorized, ""},
		{"wrong scheme", "Basic good", http.StatusUnauthorized, ""},
		{"unknown token", "Bearer bad", http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/user", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusOK {
				if rec.Body.String() != tt.wantBody {
					t.Errorf("body = %q, want %q", rec.Body.String(), tt.wantBody)
				}
				return
			}

			var env dto.Envelope
			if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if env.Success || env.Status != http.StatusUnauthorized || env.Message != "Unauthenticated." {
				t.Errorf("unexpected envelope: %+v", env)
			}
		})
	}
}

func TestAuth_BackendErrorIsNot401(t *testing.T) {
	t.Parallel()

	handler, logs := newAuthTestHandler(&fakeAuthenticator{err: errors.New("db down")}, 0)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/user", nil)
	req.Header.Set("Authorization", "Bearer whatever")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "db down") {
		t.Error("backend error leaked to client")
	}
	if !strings.Contains(logs.String(), "db down") {
		t.Error("backend error should be logged")
	}
}

func TestAuth_MinDuration(t *testing.T) {
	t.Parallel()

	handler, _ := newAuthTestHandler(&fakeAuthenticator{}, 30*time.Millisecond)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/user", nil)
	rec := httptest.NewRecorder()

	start := time.Now()
	handler.ServeHTTP(rec, req)
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Errorf("rejection returned after %v, want >= 30ms", elapsed)
	}
}

func TestAuth_TokenNotLogged(t *testing.T) {
	t.Parallel()

	token := "tl_0a1b2c3d_4f8d2e1b9c7a5f3d2e1b9c7a5f3d2e1b"
	authn := &fakeAuthenticator{tokens: map[string]*model.User{token: {ID: "u1"}}}
	handler, logs := newAuthTestHandler(authn, 0)

	for _, h := range []string{"Bearer " + token, "Bearer " + token + "x"} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/user", nil)
		req.Header.Set("Authorization", h)
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}

	if strings.Contains(logs.String(), "4f8d2e1b9c7a5f3d2e1b9c7a5f3d2e1b") {
		t.Error("token secret appeared in logs")
	}
}
