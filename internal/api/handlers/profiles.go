// profiles.go — обработчики /api/v1/profiles endpoints.
// Чтение снапшота профиля и истории редактирований.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/arturkryukov/staffdesk/profile-module/internal/api/errors"
	"github.com/arturkryukov/staffdesk/profile-module/internal/api/middleware"
	"github.com/arturkryukov/staffdesk/profile-module/internal/dirclient"
	"github.com/arturkryukov/staffdesk/profile-module/internal/domain/model"
	"github.com/arturkryukov/staffdesk/profile-module/internal/service"
)

// editAuditItem — запись аудита в API-ответе.
type editAuditItem struct {
	ID            string   `json:"id"`
	StaffID       string   `json:"staffId"`
	EditedBy      string   `json:"editedBy"`
	Privileged    bool     `json:"privileged"`
	ChangedFields []string `json:"changedFields"`
	CreatedAt     string   `json:"createdAt"`
}

// editAuditListResponse — ответ списка аудита с пагинацией.
type editAuditListResponse struct {
	Items   []editAuditItem `json:"items"`
	Total   int             `json:"total"`
	Limit   int             `json:"limit"`
	Offset  int             `json:"offset"`
	HasMore bool            `json:"hasMore"`
}

// canAccessProfile проверяет доступ субъекта к профилю.
// admin видит любой профиль, staff — только собственный.
func canAccessProfile(claims *middleware.AuthClaims, staffID string) bool {
	if claims == nil {
		return false
	}
	if claims.Privileged() {
		return true
	}
	return claims.Subject == staffID
}

// GetProfile — GET /api/v1/profiles/{id}.
// Возвращает снапшот профиля (из кэша или Directory Service).
// Доступ: admin — любой профиль, staff — только собственный.
func (h *APIHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	staffID := chi.URLParam(r, "id")
	claims := middleware.ClaimsFromContext(r.Context())
	if !canAccessProfile(claims, staffID) {
		apierrors.Forbidden(w, "Недостаточно прав: чужой профиль доступен только роли admin")
		return
	}

	profile, err := h.editor.GetProfile(r.Context(), staffID)
	if err != nil {
		switch {
		case errors.Is(err, dirclient.ErrNotFound):
			apierrors.NotFound(w, "Профиль не найден")
		case errors.Is(err, service.ErrDirectoryUnavailable):
			apierrors.DirectoryUnavailable(w, "Ошибка получения профиля из Directory Service")
		default:
			h.logger.Error("Ошибка получения профиля",
				slog.String("staff_id", staffID),
				slog.String("error", err.Error()),
			)
			apierrors.InternalError(w, "Ошибка получения профиля")
		}
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

// ListProfileAudit — GET /api/v1/profiles/{id}/audit.
// Возвращает историю редактирований профиля с пагинацией.
// Доступ: admin.
func (h *APIHandler) ListProfileAudit(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil || !claims.Privileged() {
		apierrors.Forbidden(w, "Недостаточно прав: требуется роль admin")
		return
	}

	staffID := chi.URLParam(r, "id")
	limit, offset := paginationDefaults(r)

	records, total, err := h.editor.ListAudit(r.Context(), staffID, limit, offset)
	if err != nil {
		h.logger.Error("Ошибка получения аудита редактирований",
			slog.String("staff_id", staffID),
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, "Ошибка получения аудита редактирований")
		return
	}

	items := make([]editAuditItem, len(records))
	for i, rec := range records {
		items[i] = mapEditAuditRecord(rec)
	}

	writeJSON(w, http.StatusOK, editAuditListResponse{
		Items:   items,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: offset+limit < total,
	})
}

// mapEditAuditRecord конвертирует domain model в API-ответ.
func mapEditAuditRecord(rec model.EditAuditRecord) editAuditItem {
	return editAuditItem{
		ID:            rec.ID,
		StaffID:       rec.StaffID,
		EditedBy:      rec.EditedBy,
		Privileged:    rec.Privileged,
		ChangedFields: rec.ChangedFields,
		CreatedAt:     rec.CreatedAt.UTC().Format(time.RFC3339),
	}
}
