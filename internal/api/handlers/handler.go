// handler.go — основной обработчик API Profile Module.
// Объединяет доменные обработчики и делегирует запросы в сервисный слой.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/arturkryukov/staffdesk/profile-module/internal/service"
)

// APIHandler — основной обработчик API Profile Module.
// Делегирует запросы в сервисный слой.
type APIHandler struct {
	health *HealthHandler
	editor *service.ProfileEditor
	logger *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
func NewAPIHandler(
	health *HealthHandler,
	editor *service.ProfileEditor,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		health: health,
		editor: editor,
		logger: logger.With(slog.String("component", "api_handler")),
	}
}

// HealthLive — liveness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

// HealthReady — readiness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

// GetMetrics — Prometheus метрики (делегируется в HealthHandler).
func (h *APIHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.health.GetMetrics(w, r)
}

// --- Вспомогательные функции ---

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// paginationDefaults нормализует query-параметры пагинации.
// Возвращает корректные limit и offset.
func paginationDefaults(r *http.Request) (int, int) {
	l := 100
	o := 0

	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			l = v
		}
	}
	if l < 1 {
		l = 1
	}
	if l > 1000 {
		l = 1000
	}

	if raw := r.URL.Query().Get("offset"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			o = v
		}
	}
	if o < 0 {
		o = 0
	}

	return l, o
}
