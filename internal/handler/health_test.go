package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type mockHealthChecker struct {
	err error
}

func (m *mockHealthChecker) Ping(ctx context.Context) error {
	return m.err
}

type healthEnvelope struct {
	Success bool              `json:"success"`
	Data    map[string]string `json:"data"`
	Message string            `json:"message"`
	Status  int               `json:"status"`
}

func runReadyz(t *testing.T, h *HealthHandler) (*httptest.ResponseRecorder, healthEnvelope) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()
	h.Readyz(rec, req)

	var env healthEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return rec, env
}

func TestHealthHandler_Healthz(t *testing.T) {
	h := NewHealthHandler(nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	h.Healthz(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
	var env healthEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !env.Success || env.Data["status"] != "ok" {
		t.Errorf("unexpected body: %+v", env)
	}
}

func TestHealthHandler_Readyz_AllHealthy(t *testing.T) {
	rec, env := runReadyz(t, NewHealthHandler(&mockHealthChecker{}, &mockHealthChecker{}))

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
	if env.Data["postgres"] != "ok" || env.Data["redis"] != "ok" {
		t.Errorf("unexpected checks: %v", env.Data)
	}
}

func TestHealthHandler_Readyz_DatabaseUnhealthy(t *testing.T) {
	db := &mockHealthChecker{err: errors.New("connection refused")}
	rec, env := runReadyz(t, NewHealthHandler(db, &mockHealthChecker{}))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", rec.Code)
	}
	if env.Success || env.Status != http.StatusServiceUnavailable {
		t.Errorf("unexpected envelope: %+v", env)
	}
	if env.Data["postgres"] != "error: connection refused" {
		t.Errorf("unexpected postgres check: %s", env.Data["postgres"])
	}
	if env.Data["redis"] != "ok" {
		t.Errorf("unexpected redis check: %s", env.Data["redis"])
	}
}

func TestHealthHandler_Readyz_NoDependencies(t *testing.T) {
	rec, env := runReadyz(t, NewHealthHandler(nil, nil))

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
	if env.Data["postgres"] != "not configured" {
		t.Errorf("expected 'not configured', got %s", env.Data["postgres"])
	}
}
