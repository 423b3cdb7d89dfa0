// dialog.go — протокол "диалога" редактирования: открытие с конфигурацией,
// закрытие с опциональным результатом (Cancelled | Committed).
// Независим от конкретного хоста — HTTP-слой лишь транслирует вызовы.
package editor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/arturkryukov/staffdesk/profile-module/internal/domain/model"
)

// ErrSessionClosed — операция над уже закрытой сессией.
var ErrSessionClosed = errors.New("сессия редактирования закрыта")

// OpenConfig — конфигурация открытия сессии редактирования.
type OpenConfig struct {
	// Title — заголовок диалога (отображается хостом).
	Title string
	// Profile — снапшот профиля; не мутируется.
	Profile *model.Profile
	// Preferences — сохранённые настройки сотрудника
	// (nil — применяются значения по умолчанию).
	Preferences *model.Preferences
	// Privileged — привилегированный режим редактирования.
	Privileged bool
	// DefaultCountry — страна по умолчанию для адреса.
	DefaultCountry string
	// EditedBy — username редактора (для аудита).
	EditedBy string
}

// Result — результат закрытия сессии.
// Committed=false — отмена без результата; Committed=true — значение
// закрытия равно Outcome успешной отправки, дословно.
type Result struct {
	Committed bool     `json:"committed"`
	Outcome   *Outcome `json:"outcome,omitempty"`
}

// Session — одна открытая сессия редактирования профиля.
// Создаётся при открытии диалога, уничтожается при закрытии;
// состояние между открытиями не переживает.
type Session struct {
	id        string
	title     string
	editedBy  string
	profile   *model.Profile
	model     *Model
	ctrl      *Controller
	createdAt time.Time

	mu     sync.Mutex
	closed bool
	result *Result
}

// NewSession открывает сессию редактирования: копирует значения снапшота
// в составную модель, применяет role gating и создаёт контроллер отправки.
func NewSession(cfg OpenConfig, updater Updater, logger *slog.Logger) *Session {
	m := NewModel(cfg.Profile, cfg.Preferences, cfg.Privileged, cfg.DefaultCountry)
	return &Session{
		id:        uuid.NewString(),
		title:     cfg.Title,
		editedBy:  cfg.EditedBy,
		profile:   cfg.Profile,
		model:     m,
		ctrl:      NewController(cfg.Profile.ID, m, updater, logger),
		createdAt: time.Now(),
	}
}

// ID возвращает идентификатор сессии.
func (s *Session) ID() string { return s.id }

// Title возвращает заголовок диалога.
func (s *Session) Title() string { return s.title }

// EditedBy возвращает username редактора.
func (s *Session) EditedBy() string { return s.editedBy }

// Profile возвращает исходный снапшот профиля.
func (s *Session) Profile() *model.Profile { return s.profile }

// Model возвращает составную редактируемую модель.
func (s *Session) Model() *Model { return s.model }

// State возвращает состояние контроллера отправки.
func (s *Session) State() State { return s.ctrl.State() }

// Loading возвращает true, пока отправка в полёте.
func (s *Session) Loading() bool { return s.ctrl.Loading() }

// CreatedAt возвращает время открытия сессии.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// Closed возвращает true, если сессия закрыта.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Result возвращает результат закрытия (nil, пока сессия открыта).
func (s *Session) Result() *Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// SetField изменяет значение поля. Редактирование сбрасывает серверную
// ошибку поля и возвращает контроллер из Failed в Idle.
func (s *Session) SetField(group, field string, value any) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.mu.Unlock()

	if err := s.model.Set(group, field, value); err != nil {
		return err
	}
	s.ctrl.noteEdit()
	return nil
}

// Submit выполняет отправку. При успехе сессия закрывается с
// Result{Committed:true}, который и возвращается. Отказ (серверная
// валидация или транспортная ошибка) оставляет сессию открытой,
// чтобы пользователь исправил поля; no-op при невалидной модели.
func (s *Session) Submit(ctx context.Context) (*Result, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSessionClosed
	}
	s.mu.Unlock()

	outcome, err := s.ctrl.Submit(ctx)
	if err != nil {
		return nil, err
	}
	if outcome == nil || !outcome.Success {
		return nil, nil
	}

	result := &Result{Committed: true, Outcome: outcome}
	s.finish(result)
	return result, nil
}

// Cancel закрывает сессию без результата. Update-коллаборатор
// не вызывается. Повторный Cancel — no-op.
func (s *Session) Cancel() *Result {
	result := &Result{Committed: false}
	s.finish(result)
	return result
}

// finish закрывает сессию с результатом (первый результат выигрывает)
// и помечает контроллер закрытым для guard'а от stale response.
func (s *Session) finish(result *Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.result = result
	s.ctrl.close()
}
