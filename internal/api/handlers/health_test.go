package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// stubChecker — ReadinessChecker с фиксированным результатом.
type stubChecker struct {
	status  string
	message string
}

func (c stubChecker) CheckReady() (string, string) {
	return c.status, c.message
}

func doHealthReady(t *testing.T, h *HealthHandler) (*httptest.ResponseRecorder, healthReadyResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	rec := httptest.NewRecorder()
	h.HealthReady(rec, req)

	var resp healthReadyResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("невалидный JSON ответа readiness: %v", err)
	}
	return rec, resp
}

// TestHealthReady_AllOK — все три зависимости доступны.
func TestHealthReady_AllOK(t *testing.T) {
	h := NewHealthHandler(
		stubChecker{status: "ok", message: "PostgreSQL доступен"},
		stubChecker{status: "ok", message: "Directory Service доступен"},
		stubChecker{status: "ok", message: "JWKS доступен, ключей: 2"},
	)

	rec, resp := doHealthReady(t, h)
	if rec.Code != http.StatusOK {
		t.Fatalf("ожидался статус 200, получен %d", rec.Code)
	}
	if resp.Status != "ok" {
		t.Errorf("Status = %q, хотели ok", resp.Status)
	}
	if resp.Checks.PostgreSQL.Status != "ok" || resp.Checks.Directory.Status != "ok" || resp.Checks.IdP.Status != "ok" {
		t.Errorf("неожиданные проверки: %+v", resp.Checks)
	}
}

// TestHealthReady_IdPFail — недоступный JWKS endpoint валит readiness.
func TestHealthReady_IdPFail(t *testing.T) {
	h := NewHealthHandler(
		stubChecker{status: "ok"},
		stubChecker{status: "ok"},
		stubChecker{status: "fail", message: "JWKS IdP недоступен: connection refused"},
	)

	rec, resp := doHealthReady(t, h)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("ожидался статус 503, получен %d", rec.Code)
	}
	if resp.Status != "fail" {
		t.Errorf("Status = %q, хотели fail", resp.Status)
	}
	if resp.Checks.IdP.Status != "fail" {
		t.Errorf("IdP.Status = %q, хотели fail", resp.Checks.IdP.Status)
	}
}

// TestHealthReady_Degraded — degraded зависимость не валит readiness.
func TestHealthReady_Degraded(t *testing.T) {
	h := NewHealthHandler(
		stubChecker{status: "ok"},
		stubChecker{status: "ok"},
		stubChecker{status: "degraded", message: "JWKS IdP: нет ключей"},
	)

	rec, resp := doHealthReady(t, h)
	if rec.Code != http.StatusOK {
		t.Fatalf("ожидался статус 200, получен %d", rec.Code)
	}
	if resp.Status != "degraded" {
		t.Errorf("Status = %q, хотели degraded", resp.Status)
	}
}

// TestHealthReady_NilCheckers — неинициализированные зависимости дают fail.
func TestHealthReady_NilCheckers(t *testing.T) {
	h := NewHealthHandler(nil, nil, nil)

	rec, resp := doHealthReady(t, h)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("ожидался статус 503, получен %d", rec.Code)
	}
	for name, check := range map[string]healthCheckResult{
		"postgresql": resp.Checks.PostgreSQL,
		"directory":  resp.Checks.Directory,
		"idp":        resp.Checks.IdP,
	} {
		if check.Status != "fail" {
			t.Errorf("%s: Status = %q, хотели fail", name, check.Status)
		}
	}
}

// TestHealthLive — liveness не зависит от внешних систем.
func TestHealthLive(t *testing.T) {
	h := NewHealthHandler(nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	rec := httptest.NewRecorder()
	h.HealthLive(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("ожидался статус 200, получен %d", rec.Code)
	}
	var resp healthLiveResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "ok" || resp.Service != "profile-module" {
		t.Errorf("неожиданный ответ liveness: %+v", resp)
	}
}
