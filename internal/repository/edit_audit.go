package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/arturkryukov/staffdesk/profile-module/internal/domain/model"
)

// EditAuditRepository — интерфейс для таблицы profile_edit_audit.
type EditAuditRepository interface {
	// Insert сохраняет запись аудита. Возвращает присвоенный UUID.
	Insert(ctx context.Context, record *model.EditAuditRecord) (string, error)
	// ListByStaffID возвращает записи аудита сотрудника
	// (новые первыми) с пагинацией.
	ListByStaffID(ctx context.Context, staffID string, limit, offset int) ([]model.EditAuditRecord, error)
	// CountByStaffID возвращает количество записей аудита сотрудника.
	CountByStaffID(ctx context.Context, staffID string) (int, error)
}

// editAuditRepo — реализация EditAuditRepository.
type editAuditRepo struct {
	db DBTX
}

// NewEditAuditRepository создаёт репозиторий аудита редактирований.
func NewEditAuditRepository(db DBTX) EditAuditRepository {
	return &editAuditRepo{db: db}
}

// Insert сохраняет запись аудита.
func (r *editAuditRepo) Insert(ctx context.Context, record *model.EditAuditRecord) (string, error) {
	id := record.ID
	if id == "" {
		id = uuid.NewString()
	}

	query := `
		INSERT INTO profile_edit_audit (id, staff_id, edited_by, privileged, changed_fields)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.db.Exec(ctx, query,
		id, record.StaffID, record.EditedBy, record.Privileged, record.ChangedFields,
	)
	if err != nil {
		return "", fmt.Errorf("ошибка сохранения записи аудита для %s: %w", record.StaffID, err)
	}
	return id, nil
}

// ListByStaffID возвращает записи аудита сотрудника (новые первыми).
func (r *editAuditRepo) ListByStaffID(ctx context.Context, staffID string, limit, offset int) ([]model.EditAuditRecord, error) {
	query := `
		SELECT id, staff_id, edited_by, privileged, changed_fields, created_at
		FROM profile_edit_audit
		WHERE staff_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, staffID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения аудита для %s: %w", staffID, err)
	}
	defer rows.Close()

	var records []model.EditAuditRecord
	for rows.Next() {
		var rec model.EditAuditRecord
		if err := rows.Scan(
			&rec.ID, &rec.StaffID, &rec.EditedBy, &rec.Privileged,
			&rec.ChangedFields, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования записи аудита: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// CountByStaffID возвращает количество записей аудита сотрудника.
func (r *editAuditRepo) CountByStaffID(ctx context.Context, staffID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM profile_edit_audit WHERE staff_id = $1`, staffID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчёта аудита для %s: %w", staffID, err)
	}
	return count, nil
}
