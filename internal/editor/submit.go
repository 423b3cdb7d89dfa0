// submit.go — state machine отправки: Idle → Submitting → (Succeeded | Failed),
// Failed → Idle при следующем редактировании, Succeeded — терминальное
// состояние для данной сессии.
package editor

import (
	"context"
	"log/slog"
	"sync"

	"github.com/arturkryukov/staffdesk/profile-module/internal/domain/model"
)

// State — состояние контроллера отправки.
type State string

const (
	// StateIdle — ожидание: отправка возможна.
	StateIdle State = "idle"
	// StateSubmitting — отправка выполняется, повторная игнорируется.
	StateSubmitting State = "submitting"
	// StateSucceeded — отправка зафиксирована, сессия закрывается.
	StateSucceeded State = "succeeded"
	// StateFailed — последняя отправка завершилась ошибкой.
	StateFailed State = "failed"
)

// Outcome — результат операции обновления профиля.
type Outcome struct {
	// Success — обновление зафиксировано Directory Service.
	Success bool `json:"success"`
	// Profile — обновлённый снапшот (при успехе).
	Profile *model.Profile `json:"profile,omitempty"`
	// Message — описание ошибки (при неуспехе).
	Message string `json:"message,omitempty"`
	// ValidationErrors — серверные ошибки валидации по именам полей.
	ValidationErrors map[string]string `json:"validationErrors,omitempty"`
}

// Updater — write-коллаборатор: операция обновления профиля.
// Реализуется dirclient.Client.
type Updater interface {
	// UpdateProfile отправляет UpdateRequest. Структурный отказ
	// (серверная валидация) возвращается как Outcome с Success=false;
	// транспортные и неопознанные ошибки — как error.
	UpdateProfile(ctx context.Context, id string, req *UpdateRequest) (*Outcome, error)
}

// Controller — контроллер отправки одной сессии редактирования.
// Гарантирует не более одной отправки в полёте.
type Controller struct {
	mu      sync.Mutex
	state   State
	loading bool
	closed  bool

	profileID string
	model     *Model
	updater   Updater
	logger    *slog.Logger
}

// NewController создаёт контроллер отправки для модели.
func NewController(profileID string, m *Model, updater Updater, logger *slog.Logger) *Controller {
	return &Controller{
		state:     StateIdle,
		profileID: profileID,
		model:     m,
		updater:   updater,
		logger:    logger.With(slog.String("component", "submit_controller")),
	}
}

// State возвращает текущее состояние контроллера.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Loading возвращает true, пока отправка в полёте
// (хост использует флаг для блокировки UI).
func (c *Controller) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// noteEdit фиксирует факт редактирования: Failed возвращается в Idle.
func (c *Controller) noteEdit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateFailed {
		c.state = StateIdle
	}
}

// close помечает контроллер закрытым: ответ, пришедший после закрытия,
// отбрасывается и не пишется в модель (guard от stale response).
func (c *Controller) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

// Submit выполняет отправку текущего состояния модели.
//
// No-op (nil, nil) если модель невалидна, отправка уже в полёте
// или контроллер в терминальном состоянии. При успехе возвращает
// Outcome с Success=true. Структурный отказ раскладывает серверные
// ошибки по полям и возвращает Outcome с Success=false — значения
// остальных полей не затрагиваются. Транспортная ошибка возвращается
// как error: состояние полей не меняется, сбрасывается только loading.
func (c *Controller) Submit(ctx context.Context) (*Outcome, error) {
	c.mu.Lock()
	if c.closed || c.state == StateSubmitting || c.state == StateSucceeded {
		c.mu.Unlock()
		return nil, nil
	}
	// Проверка валидности и сборка payload атомарны: конкурентное
	// редактирование не может инвалидировать модель между ними
	req := c.model.UpdateRequestIfValid()
	if req == nil {
		c.mu.Unlock()
		return nil, nil
	}
	c.state = StateSubmitting
	c.loading = true
	c.mu.Unlock()

	outcome, err := c.updater.UpdateProfile(ctx, c.profileID, req)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading = false

	if c.closed {
		// Сессия закрыта, пока ответ был в полёте — не трогаем модель
		c.logger.Debug("Ответ обновления после закрытия сессии отброшен",
			slog.String("profile_id", c.profileID),
		)
		return nil, nil
	}

	if err != nil {
		c.state = StateFailed
		c.logger.Error("Транспортная ошибка обновления профиля",
			slog.String("profile_id", c.profileID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	if outcome.Success {
		c.state = StateSucceeded
		return outcome, nil
	}

	c.state = StateFailed
	if len(outcome.ValidationErrors) > 0 {
		applied := c.model.ApplyServerErrors(outcome.ValidationErrors)
		c.logger.Info("Серверные ошибки валидации разложены по полям",
			slog.String("profile_id", c.profileID),
			slog.Int("received", len(outcome.ValidationErrors)),
			slog.Int("applied", applied),
		)
	}
	return outcome, nil
}
