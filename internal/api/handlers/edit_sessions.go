// edit_sessions.go — обработчики сессий редактирования профилей.
// POST /api/v1/profiles/{id}/edit-session — открыть сессию
// GET /api/v1/edit-sessions/{sid} — текущее состояние формы
// PATCH /api/v1/edit-sessions/{sid}/fields — изменить поле
// POST /api/v1/edit-sessions/{sid}/submit — отправить
// DELETE /api/v1/edit-sessions/{sid} — отменить
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/arturkryukov/staffdesk/profile-module/internal/api/errors"
	"github.com/arturkryukov/staffdesk/profile-module/internal/api/middleware"
	"github.com/arturkryukov/staffdesk/profile-module/internal/dirclient"
	"github.com/arturkryukov/staffdesk/profile-module/internal/editor"
	"github.com/arturkryukov/staffdesk/profile-module/internal/service"
)

// --- API DTO сессии редактирования ---

// fieldView — состояние одного поля формы.
type fieldView struct {
	Name    string             `json:"name"`
	Value   any                `json:"value"`
	Enabled bool               `json:"enabled"`
	Dirty   bool               `json:"dirty"`
	Error   *editor.FieldError `json:"error,omitempty"`
}

// groupView — состояние группы полей.
type groupView struct {
	Name   string      `json:"name"`
	Valid  bool        `json:"valid"`
	Dirty  bool        `json:"dirty"`
	Fields []fieldView `json:"fields"`
}

// sessionView — полное состояние сессии редактирования для клиента.
type sessionView struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	StaffID     string      `json:"staffId"`
	State       string      `json:"state"`
	Loading     bool        `json:"loading"`
	Valid       bool        `json:"valid"`
	Privileged  bool        `json:"privileged"`
	DirtyFields []string    `json:"dirtyFields"`
	Groups      []groupView `json:"groups"`
	CreatedAt   string      `json:"createdAt"`
}

// setFieldRequest — тело запроса изменения поля.
type setFieldRequest struct {
	Group string `json:"group"`
	Field string `json:"field"`
	Value any    `json:"value"`
}

// mapSession собирает sessionView из согласованного снимка модели:
// состояния полей, валидность и dirty-поля сняты под одной блокировкой.
func mapSession(s *editor.Session) sessionView {
	m := s.Model()
	snapshot := m.Snapshot()

	groups := make([]groupView, 0, len(snapshot))
	dirty := []string{}
	valid := true
	for _, g := range snapshot {
		fields := make([]fieldView, 0, len(g.Fields))
		for _, f := range g.Fields {
			fields = append(fields, fieldView{
				Name:    f.Name,
				Value:   f.Value,
				Enabled: f.Enabled,
				Dirty:   f.Dirty,
				Error:   f.Error,
			})
			if f.Dirty {
				dirty = append(dirty, f.Name)
			}
		}
		groups = append(groups, groupView{
			Name:   g.Name,
			Valid:  g.Valid,
			Dirty:  g.Dirty,
			Fields: fields,
		})
		valid = valid && g.Valid
	}

	return sessionView{
		ID:          s.ID(),
		Title:       s.Title(),
		StaffID:     s.Profile().ID,
		State:       string(s.State()),
		Loading:     s.Loading(),
		Valid:       valid,
		Privileged:  m.Privileged(),
		DirtyFields: dirty,
		Groups:      groups,
		CreatedAt:   s.CreatedAt().UTC().Format(time.RFC3339),
	}
}

// --- Обработчики ---

// OpenEditSession — POST /api/v1/profiles/{id}/edit-session.
// Открывает сессию редактирования профиля. Снапшот запрашивается
// у Directory Service заново. Привилегированный режим — по роли admin.
// Доступ: admin — любой профиль, staff — только собственный.
func (h *APIHandler) OpenEditSession(w http.ResponseWriter, r *http.Request) {
	staffID := chi.URLParam(r, "id")
	claims := middleware.ClaimsFromContext(r.Context())
	if !canAccessProfile(claims, staffID) {
		apierrors.Forbidden(w, "Недостаточно прав: чужой профиль доступен только роли admin")
		return
	}

	session, err := h.editor.Open(r.Context(), staffID, claims.PreferredUsername, claims.Privileged())
	if err != nil {
		switch {
		case errors.Is(err, dirclient.ErrNotFound):
			apierrors.NotFound(w, "Профиль не найден")
		case errors.Is(err, service.ErrSessionLimit):
			apierrors.TooManySessions(w, "Достигнут лимит одновременных сессий редактирования")
		case errors.Is(err, service.ErrDirectoryUnavailable):
			apierrors.DirectoryUnavailable(w, "Ошибка получения профиля из Directory Service")
		default:
			h.logger.Error("Ошибка открытия сессии редактирования",
				slog.String("staff_id", staffID),
				slog.String("error", err.Error()),
			)
			apierrors.InternalError(w, "Ошибка открытия сессии редактирования")
		}
		return
	}

	writeJSON(w, http.StatusCreated, mapSession(session))
}

// GetEditSession — GET /api/v1/edit-sessions/{sid}.
// Возвращает текущее состояние формы редактирования.
func (h *APIHandler) GetEditSession(w http.ResponseWriter, r *http.Request) {
	session, ok := h.sessionForRequest(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, mapSession(session))
}

// SetEditSessionField — PATCH /api/v1/edit-sessions/{sid}/fields.
// Изменяет значение одного поля и возвращает обновлённое состояние формы.
func (h *APIHandler) SetEditSessionField(w http.ResponseWriter, r *http.Request) {
	session, ok := h.sessionForRequest(w, r)
	if !ok {
		return
	}

	var req setFieldRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return
	}

	if err := session.SetField(req.Group, req.Field, req.Value); err != nil {
		switch {
		case errors.Is(err, editor.ErrSessionClosed):
			apierrors.Conflict(w, "Сессия редактирования уже закрыта")
		case errors.Is(err, editor.ErrFieldDisabled):
			apierrors.Forbidden(w, "Поле отключено и недоступно для изменения")
		case errors.Is(err, editor.ErrUnknownField):
			apierrors.ValidationError(w, err.Error())
		default:
			apierrors.ValidationError(w, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, mapSession(session))
}

// submitResponse — ответ успешной отправки.
type submitResponse struct {
	Committed bool            `json:"committed"`
	Outcome   *editor.Outcome `json:"outcome,omitempty"`
}

// SubmitEditSession — POST /api/v1/edit-sessions/{sid}/submit.
// Выполняет отправку формы. При фиксации возвращает 200 с результатом;
// при отказе серверной валидации — 422 с состоянием формы (сессия
// остаётся открытой, ошибки разложены по полям).
func (h *APIHandler) SubmitEditSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sid")
	session, ok := h.sessionForRequest(w, r)
	if !ok {
		return
	}

	if !session.Model().Valid() {
		apierrors.ValidationError(w, "Форма содержит невалидные поля")
		return
	}

	result, err := h.editor.Submit(r.Context(), sessionID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSessionNotFound):
			apierrors.SessionGone(w, "Сессия редактирования не найдена или истекла")
		case errors.Is(err, editor.ErrSessionClosed):
			apierrors.Conflict(w, "Сессия редактирования уже закрыта")
		case errors.Is(err, dirclient.ErrNotFound):
			apierrors.NotFound(w, "Профиль не найден в Directory Service")
		case errors.Is(err, service.ErrDirectoryUnavailable):
			apierrors.DirectoryUnavailable(w, "Directory Service недоступен")
		default:
			h.logger.Error("Ошибка отправки сессии редактирования",
				slog.String("session_id", sessionID),
				slog.String("error", err.Error()),
			)
			apierrors.InternalError(w, "Ошибка отправки сессии редактирования")
		}
		return
	}

	if result == nil {
		// Отказ серверной валидации: ошибки уже разложены по полям
		writeJSON(w, http.StatusUnprocessableEntity, mapSession(session))
		return
	}

	writeJSON(w, http.StatusOK, submitResponse{
		Committed: result.Committed,
		Outcome:   result.Outcome,
	})
}

// CancelEditSession — DELETE /api/v1/edit-sessions/{sid}.
// Закрывает сессию без отправки.
func (h *APIHandler) CancelEditSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sid")
	session, err := h.editor.Get(sessionID)
	if err != nil {
		apierrors.SessionGone(w, "Сессия редактирования не найдена или истекла")
		return
	}
	if !h.authorizeSession(w, r, session) {
		return
	}

	if _, err := h.editor.Cancel(sessionID); err != nil {
		apierrors.SessionGone(w, "Сессия редактирования не найдена или истекла")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// sessionForRequest извлекает сессию по {sid} и проверяет доступ.
// При ошибке пишет ответ и возвращает ok=false.
func (h *APIHandler) sessionForRequest(w http.ResponseWriter, r *http.Request) (*editor.Session, bool) {
	sessionID := chi.URLParam(r, "sid")
	session, err := h.editor.Get(sessionID)
	if err != nil {
		apierrors.SessionGone(w, "Сессия редактирования не найдена или истекла")
		return nil, false
	}
	if !h.authorizeSession(w, r, session) {
		return nil, false
	}
	return session, true
}

// authorizeSession проверяет, что сессия принадлежит вызывающему.
// admin имеет доступ к любой сессии.
func (h *APIHandler) authorizeSession(w http.ResponseWriter, r *http.Request, session *editor.Session) bool {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		apierrors.Unauthorized(w, "Отсутствуют claims в контексте")
		return false
	}
	if !claims.Privileged() && claims.PreferredUsername != session.EditedBy() {
		apierrors.Forbidden(w, "Сессия редактирования принадлежит другому пользователю")
		return false
	}
	return true
}
