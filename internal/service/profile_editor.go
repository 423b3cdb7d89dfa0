// profile_editor.go — бизнес-логика сессий редактирования профилей.
//
// Реестр открытых сессий — expirable.LRU с TTL: брошенные сессии
// (вкладка закрыта без Cancel) закрываются при вытеснении. Фиксация
// редактирования выполняет side effects: запись аудита, сохранение
// настроек, обновление кэша профилей и best-effort уведомление.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/arturkryukov/staffdesk/profile-module/internal/dirclient"
	"github.com/arturkryukov/staffdesk/profile-module/internal/domain/model"
	"github.com/arturkryukov/staffdesk/profile-module/internal/editor"
	"github.com/arturkryukov/staffdesk/profile-module/internal/notify"
	"github.com/arturkryukov/staffdesk/profile-module/internal/repository"
)

// Prometheus-метрики сессий редактирования.
var (
	sessionsOpenedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pm_edit_sessions_opened_total",
		Help: "Общее количество открытых сессий редактирования.",
	})
	sessionsCommittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pm_edit_sessions_committed_total",
		Help: "Общее количество сессий, закрытых фиксацией обновления.",
	})
	sessionsCancelledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pm_edit_sessions_cancelled_total",
		Help: "Общее количество отменённых сессий редактирования.",
	})
)

// DirectoryClient — коллабораторы Directory Service:
// чтение снапшота и операция обновления.
// Реализуется dirclient.Client.
type DirectoryClient interface {
	GetProfile(ctx context.Context, id string) (*model.Profile, error)
	UpdateProfile(ctx context.Context, id string, req *editor.UpdateRequest) (*editor.Outcome, error)
}

// ProfileEditor — сервис сессий редактирования профилей.
type ProfileEditor struct {
	directory DirectoryClient
	prefsRepo repository.PreferencesRepository
	auditRepo repository.EditAuditRepository
	commits   repository.CommitWriter
	cache     *ProfileCache
	notifier  notify.Notifier
	logger    *slog.Logger

	defaultCountry string
	adminGroups    []string
	sessionLimit   int

	sessions *expirable.LRU[string, *editor.Session]
}

// ProfileEditorConfig — зависимости и параметры сервиса.
type ProfileEditorConfig struct {
	Directory   DirectoryClient
	Preferences repository.PreferencesRepository
	Audit       repository.EditAuditRepository
	// Commits — транзакционная запись фиксаций (аудит + настройки).
	Commits        repository.CommitWriter
	Cache          *ProfileCache
	Notifier       notify.Notifier
	DefaultCountry string
	// SessionTTL — время жизни брошенной сессии в реестре.
	SessionTTL time.Duration
	// SessionLimit — максимум одновременно открытых сессий.
	SessionLimit int
}

// NewProfileEditor создаёт сервис сессий редактирования.
func NewProfileEditor(cfg ProfileEditorConfig, logger *slog.Logger) *ProfileEditor {
	s := &ProfileEditor{
		directory:      cfg.Directory,
		prefsRepo:      cfg.Preferences,
		auditRepo:      cfg.Audit,
		commits:        cfg.Commits,
		cache:          cfg.Cache,
		notifier:       cfg.Notifier,
		logger:         logger.With(slog.String("component", "profile_editor")),
		defaultCountry: cfg.DefaultCountry,
		sessionLimit:   cfg.SessionLimit,
	}

	// Вытеснение по TTL закрывает брошенную сессию:
	// ответы в полёте отбрасываются guard'ом контроллера
	onEvict := func(id string, session *editor.Session) {
		if !session.Closed() {
			session.Cancel()
			s.logger.Info("Брошенная сессия редактирования закрыта по TTL",
				slog.String("session_id", id),
				slog.String("staff_id", session.Profile().ID),
			)
		}
	}
	s.sessions = expirable.NewLRU[string, *editor.Session](cfg.SessionLimit, onEvict, cfg.SessionTTL)

	return s
}

// GetProfile возвращает снапшот профиля: сначала из кэша, при промахе —
// из Directory Service с обновлением кэша.
func (s *ProfileEditor) GetProfile(ctx context.Context, staffID string) (*model.Profile, error) {
	if profile, ok := s.cache.Get(staffID); ok {
		return profile, nil
	}

	profile, err := s.directory.GetProfile(ctx, staffID)
	if err != nil {
		return nil, directoryError(err)
	}
	s.cache.Set(staffID, profile)
	return profile, nil
}

// Open открывает сессию редактирования профиля.
// Снапшот всегда запрашивается у Directory Service заново: форма
// редактирования не должна открываться на устаревших данных из кэша.
// privileged определяется ролью доступа редактора.
func (s *ProfileEditor) Open(ctx context.Context, staffID, editedBy string, privileged bool) (*editor.Session, error) {
	if s.sessions.Len() >= s.sessionLimit {
		return nil, ErrSessionLimit
	}

	profile, err := s.directory.GetProfile(ctx, staffID)
	if err != nil {
		return nil, directoryError(err)
	}
	s.cache.Set(staffID, profile)

	prefs, err := s.prefsRepo.Get(ctx, staffID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		// Настроек нет — editor применит значения по умолчанию
		prefs = nil
	}

	session := editor.NewSession(editor.OpenConfig{
		Title:          "Редактирование профиля: " + profile.FirstName + " " + profile.LastName,
		Profile:        profile,
		Preferences:    prefs,
		Privileged:     privileged,
		DefaultCountry: s.defaultCountry,
		EditedBy:       editedBy,
	}, s.directory, s.logger)

	s.sessions.Add(session.ID(), session)
	sessionsOpenedTotal.Inc()

	s.logger.Info("Сессия редактирования открыта",
		slog.String("session_id", session.ID()),
		slog.String("staff_id", staffID),
		slog.String("edited_by", editedBy),
		slog.Bool("privileged", privileged),
	)

	return session, nil
}

// Get возвращает открытую сессию по идентификатору.
func (s *ProfileEditor) Get(sessionID string) (*editor.Session, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// SetField изменяет значение поля сессии.
func (s *ProfileEditor) SetField(sessionID, group, field string, value any) (*editor.Session, error) {
	session, err := s.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if err := session.SetField(group, field, value); err != nil {
		return nil, err
	}
	return session, nil
}

// Submit выполняет отправку сессии. При фиксации возвращает Result
// с Committed=true и выполняет side effects; при отказе серверной
// валидации возвращает (nil, nil) — сессия остаётся открытой.
func (s *ProfileEditor) Submit(ctx context.Context, sessionID string) (*editor.Result, error) {
	session, err := s.Get(sessionID)
	if err != nil {
		return nil, err
	}

	// Снимаем изменённые поля до отправки: после закрытия сессии
	// модель уже не опрашивается
	changedFields := session.Model().DirtyFields()

	result, err := session.Submit(ctx)
	if err != nil {
		if errors.Is(err, editor.ErrSessionClosed) {
			return nil, err
		}
		return nil, directoryError(err)
	}
	if result == nil {
		return nil, nil
	}

	s.sessions.Remove(sessionID)
	sessionsCommittedTotal.Inc()
	s.commitSideEffects(ctx, session, changedFields)

	return result, nil
}

// Cancel закрывает сессию без отправки.
func (s *ProfileEditor) Cancel(sessionID string) (*editor.Result, error) {
	session, err := s.Get(sessionID)
	if err != nil {
		return nil, err
	}

	result := session.Cancel()
	s.sessions.Remove(sessionID)
	sessionsCancelledTotal.Inc()

	s.logger.Info("Сессия редактирования отменена",
		slog.String("session_id", sessionID),
		slog.String("staff_id", session.Profile().ID),
	)

	return result, nil
}

// OpenSessions возвращает количество открытых сессий.
func (s *ProfileEditor) OpenSessions() int {
	return s.sessions.Len()
}

// ListAudit возвращает записи аудита редактирований сотрудника с пагинацией.
func (s *ProfileEditor) ListAudit(ctx context.Context, staffID string, limit, offset int) ([]model.EditAuditRecord, int, error) {
	records, err := s.auditRepo.ListByStaffID(ctx, staffID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.auditRepo.CountByStaffID(ctx, staffID)
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// commitSideEffects выполняет side effects фиксации: транзакционная
// запись аудита и настроек, обновление кэша повторным чтением,
// уведомление. Сбои side effects логируются и не отменяют
// уже зафиксированное обновление.
func (s *ProfileEditor) commitSideEffects(ctx context.Context, session *editor.Session, changedFields []string) {
	staffID := session.Profile().ID

	record := &model.EditAuditRecord{
		StaffID:       staffID,
		EditedBy:      session.EditedBy(),
		Privileged:    session.Model().Privileged(),
		ChangedFields: changedFields,
	}
	if err := s.commits.SaveCommit(ctx, record, editor.BuildPreferences(session.Model()), session.EditedBy()); err != nil {
		s.logger.Error("Фиксация редактирования не сохранена в БД",
			slog.String("staff_id", staffID),
			slog.String("error", err.Error()),
		)
	}

	// Refresh родителя: best-effort повторное чтение свежего снапшота.
	// При ошибке в кэше остаётся прежний снапшот, ошибка логируется.
	if fresh, err := s.directory.GetProfile(ctx, staffID); err != nil {
		s.logger.Warn("Снапшот профиля после фиксации не обновлён",
			slog.String("staff_id", staffID),
			slog.String("error", err.Error()),
		)
	} else {
		s.cache.Set(staffID, fresh)
	}

	s.notifier.ProfileUpdated(ctx, notify.Event{
		StaffID:       staffID,
		EditedBy:      session.EditedBy(),
		ChangedFields: changedFields,
		OccurredAt:    time.Now().UTC(),
	})

	s.logger.Info("Редактирование профиля зафиксировано",
		slog.String("session_id", session.ID()),
		slog.String("staff_id", staffID),
		slog.String("edited_by", session.EditedBy()),
		slog.Int("changed_fields", len(changedFields)),
	)
}

// directoryError помечает транспортные ошибки Directory Service
// сентинелем ErrDirectoryUnavailable; ErrNotFound проходит без обёртки.
func directoryError(err error) error {
	if errors.Is(err, dirclient.ErrNotFound) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrDirectoryUnavailable, err)
}
