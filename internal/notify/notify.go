// Пакет notify — уведомление заинтересованных сервисов о зафиксированном
// редактировании профиля. Уведомление best-effort: сбой логируется и
// не влияет на результат операции.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// Event — событие зафиксированного редактирования профиля.
type Event struct {
	// StaffID — идентификатор отредактированного сотрудника
	StaffID string `json:"staffId"`
	// EditedBy — username редактора
	EditedBy string `json:"editedBy"`
	// ChangedFields — имена изменённых полей
	ChangedFields []string `json:"changedFields"`
	// OccurredAt — время фиксации
	OccurredAt time.Time `json:"occurredAt"`
}

// Notifier — получатель событий редактирования профиля.
type Notifier interface {
	// ProfileUpdated отправляет событие. Ошибка не возвращается:
	// уведомление best-effort.
	ProfileUpdated(ctx context.Context, event Event)
}

// HTTPNotifier отправляет события POST-запросом на настроенный URL.
type HTTPNotifier struct {
	url        string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewHTTP создаёт HTTP-notifier.
func NewHTTP(url string, logger *slog.Logger) *HTTPNotifier {
	return &HTTPNotifier{
		url:        url,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger.With(slog.String("component", "notifier")),
	}
}

// ProfileUpdated отправляет событие на настроенный URL.
func (n *HTTPNotifier) ProfileUpdated(ctx context.Context, event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		n.logger.Error("Сериализация события уведомления",
			slog.String("staff_id", event.StaffID),
			slog.String("error", err.Error()),
		)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(data))
	if err != nil {
		n.logger.Error("Создание запроса уведомления",
			slog.String("error", err.Error()),
		)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		n.logger.Warn("Уведомление о редактировании профиля не доставлено",
			slog.String("staff_id", event.StaffID),
			slog.String("error", err.Error()),
		)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		n.logger.Warn("Получатель уведомлений вернул ошибку",
			slog.String("staff_id", event.StaffID),
			slog.Int("status", resp.StatusCode),
		)
		return
	}

	n.logger.Debug("Уведомление о редактировании профиля доставлено",
		slog.String("staff_id", event.StaffID),
	)
}

// Nop — notifier-заглушка (PM_NOTIFY_URL не задан).
type Nop struct{}

// ProfileUpdated ничего не делает.
func (Nop) ProfileUpdated(context.Context, Event) {}
