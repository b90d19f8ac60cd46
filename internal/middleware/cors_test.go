package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCORS(t *testing.T) {
	t.Parallel()

	allowed := []string{"https://tasks.example.com", "*.staging.example.com"}

	tests := []struct {
		name       string
		origins    []string
		origin     string
		preflight  bool
		wantStatus int
		wantAllow  string
	}{
		{"no origin header", allowed, "", false, http.StatusOK, ""},
		{"nothing configured", nil, "https://tasks.example.com", false, http.StatusOK, ""},
		{"exact match", allowed, "https://tasks.example.com", false, http.StatusOK, "https://tasks.example.com"},
		{"match ignores case", allowed, "HTTPS://Tasks.Example.com", false, http.StatusOK, "HTTPS://Tasks.Example.com"},
		{"wildcard subdomain", allowed, "https://pr-12.staging.example.com", false, http.StatusOK, "https://pr-12.staging.example.com"},
		{"wildcard subdomain with port", allowed, "http://web.staging.example.com:5173", false, http.StatusOK, "http://web.staging.example.com:5173"},
		{"wildcard excludes apex", allowed, "https://staging.example.com", false, http.StatusOK, ""},
		{"wildcard excludes lookalike", allowed, "https://evilstaging.example.com", false, http.StatusOK, ""},
		{"unknown origin passes undecorated", allowed, "https://evil.test", false, http.StatusOK, ""},
		{"allowed preflight", allowed, "https://tasks.example.com", true, http.StatusNoContent, "https://tasks.example.com"},
		{"refused preflight", allowed, "https://evil.test", true, http.StatusForbidden, ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := DefaultCORSConfig()
			cfg.AllowedOrigins = tt.origins
			h := CORS(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			method := http.MethodGet
			if tt.preflight {
				method = http.MethodOptions
			}
			req := httptest.NewRequest(method, "/api/v1/task-lists", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if tt.preflight {
				req.Header.Set("Access-Control-Request-Method", http.MethodPut)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantAllow {
				t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, tt.wantAllow)
			}
		})
	}
}

func TestCORS_PreflightHeaders(t *testing.T) {
	cfg := DefaultCORSConfig()
	cfg.AllowedOrigins = []string{"https://tasks.example.com"}
	called := false
	h := CORS(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/tasks/1", nil)
	req.Header.Set("Origin", "https://tasks.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodDelete)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if called {
		t.Error("preflight reached the route handler")
	}
	want := map[string]string{
		"Access-Control-Allow-Methods": "GET, POST, PUT, DELETE, OPTIONS",
		"Access-Control-Allow-Headers": "Accept, Authorization, Content-Type, X-Request-ID",
		"Access-Control-Max-Age":       "600",
		"Vary":                         "Origin",
	}
	for k, v := range want {
		if got := rec.Header().Get(k); got != v {
			t.Errorf("%s = %q, want %q", k, got, v)
		}
	}
}

func TestCORS_RefusedPreflightUsesEnvelope(t *testing.T) {
	h := CORS(DefaultCORSConfig())(http.NotFoundHandler())

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/login", nil)
	req.Header.Set("Origin", "https://evil.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var body struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
		Status  int    `json:"status"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Success || body.Status != http.StatusForbidden || body.Message != "Origin not allowed." {
		t.Errorf("body = %+v", body)
	}
}

func TestCORS_PlainOptionsIsNotPreflight(t *testing.T) {
	cfg := DefaultCORSConfig()
	cfg.AllowedOrigins = []string{"https://tasks.example.com"}
	h := CORS(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusMethodNotAllowed)
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/tasks", nil)
	req.Header.Set("Origin", "https://tasks.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
}
