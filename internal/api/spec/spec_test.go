package spec

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// TestLoad — встроенный контракт разбирается и проходит валидацию.
func TestLoad(t *testing.T) {
	doc, err := Load()
	if err != nil {
		t.Fatalf("Load() ошибка: %v", err)
	}
	if doc.Info == nil || doc.Info.Title != "Staffdesk Profile Module API" {
		t.Errorf("неожиданный заголовок контракта: %+v", doc.Info)
	}

	for _, path := range []string{
		"/profiles/{id}",
		"/profiles/{id}/audit",
		"/profiles/{id}/edit-session",
		"/edit-sessions/{sid}",
		"/edit-sessions/{sid}/fields",
		"/edit-sessions/{sid}/submit",
	} {
		if doc.Paths.Find(path) == nil {
			t.Errorf("контракт не содержит путь %s", path)
		}
	}
}

// TestHandler — контракт отдаётся в JSON.
func TestHandler(t *testing.T) {
	doc, err := Load()
	if err != nil {
		t.Fatalf("Load() ошибка: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/openapi.json", nil)
	rec := httptest.NewRecorder()
	Handler(doc).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("ожидался статус 200, получен %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, хотели application/json", ct)
	}

	var body struct {
		OpenAPI string `json:"openapi"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.OpenAPI != "3.0.3" {
		t.Errorf("openapi = %q, хотели 3.0.3", body.OpenAPI)
	}
}
