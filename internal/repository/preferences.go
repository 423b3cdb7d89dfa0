package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/arturkryukov/staffdesk/profile-module/internal/domain/model"
)

// PreferencesRepository — интерфейс для таблицы staff_preferences.
type PreferencesRepository interface {
	// Get возвращает сохранённые настройки сотрудника.
	// Если записи нет — ErrNotFound (вызывающий применяет значения по умолчанию).
	Get(ctx context.Context, staffID string) (*model.Preferences, error)
	// Upsert создаёт или обновляет настройки сотрудника.
	Upsert(ctx context.Context, staffID string, prefs *model.Preferences, updatedBy string) error
	// Delete удаляет настройки сотрудника.
	Delete(ctx context.Context, staffID string) error
}

// preferencesRepo — реализация PreferencesRepository.
type preferencesRepo struct {
	db DBTX
}

// NewPreferencesRepository создаёт репозиторий настроек сотрудников.
func NewPreferencesRepository(db DBTX) PreferencesRepository {
	return &preferencesRepo{db: db}
}

// Get возвращает сохранённые настройки сотрудника.
func (r *preferencesRepo) Get(ctx context.Context, staffID string) (*model.Preferences, error) {
	query := `
		SELECT email_notifications, request_updates, weekly_digest, maintenance_alerts,
			profile_visibility, allow_analytics, share_location
		FROM staff_preferences
		WHERE staff_id = $1`

	p := &model.Preferences{}
	err := r.db.QueryRow(ctx, query, staffID).Scan(
		&p.Notifications.EmailNotifications,
		&p.Notifications.RequestUpdates,
		&p.Notifications.WeeklyDigest,
		&p.Notifications.MaintenanceAlerts,
		&p.Privacy.ProfileVisibility,
		&p.Privacy.AllowAnalytics,
		&p.Privacy.ShareLocation,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения staff_preferences[%s]: %w", staffID, err)
	}
	return p, nil
}

// Upsert создаёт или обновляет настройки (INSERT ... ON CONFLICT DO UPDATE).
func (r *preferencesRepo) Upsert(ctx context.Context, staffID string, prefs *model.Preferences, updatedBy string) error {
	query := `
		INSERT INTO staff_preferences (
			staff_id, email_notifications, request_updates, weekly_digest,
			maintenance_alerts, profile_visibility, allow_analytics, share_location,
			updated_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (staff_id) DO UPDATE
		SET email_notifications = EXCLUDED.email_notifications,
			request_updates = EXCLUDED.request_updates,
			weekly_digest = EXCLUDED.weekly_digest,
			maintenance_alerts = EXCLUDED.maintenance_alerts,
			profile_visibility = EXCLUDED.profile_visibility,
			allow_analytics = EXCLUDED.allow_analytics,
			share_location = EXCLUDED.share_location,
			updated_by = EXCLUDED.updated_by,
			updated_at = NOW()`

	_, err := r.db.Exec(ctx, query,
		staffID,
		prefs.Notifications.EmailNotifications,
		prefs.Notifications.RequestUpdates,
		prefs.Notifications.WeeklyDigest,
		prefs.Notifications.MaintenanceAlerts,
		prefs.Privacy.ProfileVisibility,
		prefs.Privacy.AllowAnalytics,
		prefs.Privacy.ShareLocation,
		updatedBy,
	)
	if err != nil {
		return fmt.Errorf("ошибка сохранения staff_preferences[%s]: %w", staffID, err)
	}
	return nil
}

// Delete удаляет настройки сотрудника.
func (r *preferencesRepo) Delete(ctx context.Context, staffID string) error {
	query := `DELETE FROM staff_preferences WHERE staff_id = $1`
	tag, err := r.db.Exec(ctx, query, staffID)
	if err != nil {
		return fmt.Errorf("ошибка удаления staff_preferences[%s]: %w", staffID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
