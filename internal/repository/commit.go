package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arturkryukov/staffdesk/profile-module/internal/domain/model"
)

// CommitWriter — атомарная запись фиксации редактирования:
// запись аудита и upsert настроек сотрудника в одной транзакции.
// Частично сохранённая фиксация (аудит без настроек или наоборот)
// невозможна.
type CommitWriter interface {
	SaveCommit(ctx context.Context, record *model.EditAuditRecord, prefs *model.Preferences, updatedBy string) error
}

// commitWriter — реализация CommitWriter поверх TxRunner.
type commitWriter struct {
	tx *TxRunner
}

// NewCommitWriter создаёт транзакционный writer фиксаций редактирования.
func NewCommitWriter(pool *pgxpool.Pool) CommitWriter {
	return &commitWriter{tx: NewTxRunner(pool)}
}

// SaveCommit сохраняет запись аудита и настройки в одной транзакции.
func (w *commitWriter) SaveCommit(ctx context.Context, record *model.EditAuditRecord, prefs *model.Preferences, updatedBy string) error {
	return w.tx.RunInTx(ctx, func(tx pgx.Tx) error {
		if _, err := NewEditAuditRepository(tx).Insert(ctx, record); err != nil {
			return err
		}
		return NewPreferencesRepository(tx).Upsert(ctx, record.StaffID, prefs, updatedBy)
	})
}
