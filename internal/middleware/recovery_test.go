package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

func TestRecoverer(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger(slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil))))
	r.Use(Recoverer(logger))
	r.Get("/api/v1/tasks/{id}", func(w http.ResponseWriter, r *http.Request) {
		annotateUser(r.Context(), "user-42")
		panic("boom")
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/tasks/01HSECRET", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"message":"Something went wrong!"`) {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "boom") {
		t.Error("panic value leaked to client")
	}

	logged := buf.String()
	for _, want := range []string{"boom", `"route":"/api/v1/tasks/{id}"`, `"user_id":"user-42"`, `"method":"GET"`} {
		if !strings.Contains(logged, want) {
			t.Errorf("log missing %s: %s", want, logged)
		}
	}
	if strings.Contains(logged, "01HSECRET") {
		t.Error("raw path with task id was logged")
	}
}

func TestRecoverer_AfterResponseStarted(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil))
	handler := Logger(logger)(Recoverer(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"success":true`))
		panic("mid-stream")
	})))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/task-lists", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want the original 200", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "Something went wrong!") {
		t.Errorf("error envelope appended to a started response: %s", rec.Body.String())
	}
}

func TestRecoverer_AbortHandler(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil))
	handler := Recoverer(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	defer func() {
		if rvr := recover(); rvr != http.ErrAbortHandler {
			t.Errorf("recovered %v, want http.ErrAbortHandler re-panicked", rvr)
		}
	}()
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
}

func TestRequestID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		header   string
		wantKeep bool
	}{
		{"absent", "", false},
		{"client token", "client-id-1", true},
		{"trace style", "web:01HZX3.abc_9", true},
		{"at the length cap", strings.Repeat("a", maxRequestIDLength), true},
		{"over the length cap", strings.Repeat("a", maxRequestIDLength+1), false},
		{"newline injection", "abc\ninjected=1", false},
		{"spaces", "abc def", false},
		{"json quote", `abc"`, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var seen string
			handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = GetRequestID(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/v1/user", nil)
			if tt.header != "" {
				req.Header.Set(RequestIDHeader, tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if seen == "" || rec.Header().Get(RequestIDHeader) != seen {
				t.Fatalf("id %q not echoed (%q)", seen, rec.Header().Get(RequestIDHeader))
			}
			if kept := seen == tt.header; kept != tt.wantKeep {
				t.Errorf("kept client id = %v, want %v (got %q)", kept, tt.wantKeep, seen)
			}
			if !tt.wantKeep && !validRequestID(seen) {
				t.Errorf("generated id %q is not a valid request id", seen)
			}
		})
	}
}
