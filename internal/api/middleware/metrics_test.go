package middleware

import "testing"

// TestNormalizePath — нормализация путей для лейблов метрик.
func TestNormalizePath(t *testing.T) {
	tests := []struct {
		path     string
		expected string
	}{
		{"/health/live", "/health/live"},
		{"/metrics", "/metrics"},
		{"/api/v1/openapi.json", "/api/v1/openapi.json"},
		{"/api/v1/profiles/staff-001", "/api/v1/profiles/{id}"},
		{"/api/v1/profiles/staff-001/audit", "/api/v1/profiles/{id}/audit"},
		{"/api/v1/profiles/staff-001/edit-session", "/api/v1/profiles/{id}/edit-session"},
		{"/api/v1/edit-sessions/a1b2c3d4-e5f6-7890-abcd-ef1234567890", "/api/v1/edit-sessions/{id}"},
		{"/api/v1/edit-sessions/a1b2c3d4-e5f6-7890-abcd-ef1234567890/fields", "/api/v1/edit-sessions/{id}/fields"},
		{"/api/v1/edit-sessions/a1b2c3d4-e5f6-7890-abcd-ef1234567890/submit", "/api/v1/edit-sessions/{id}/submit"},
		{"/api/v1/profiles/", "/api/v1/profiles/"},
		{"/unknown/path", "/unknown/path"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := normalizePath(tt.path); got != tt.expected {
				t.Errorf("normalizePath(%q) = %q, хотели %q", tt.path, got, tt.expected)
			}
		})
	}
}
