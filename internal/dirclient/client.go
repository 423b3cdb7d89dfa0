// Пакет dirclient — HTTP-клиент Directory Service.
// Поддерживает TLS с кастомным CA (PM_DIRECTORY_CA_CERT_PATH).
// Операции: GetProfile (GET /api/v1/staff/{id}),
// UpdateProfile (PUT /api/v1/staff/{id}).
//
// Протокол обновления: Directory Service отвечает конвертом
// {"success":true,"profile":{...}} при фиксации и
// {"success":false,"message":...,"validationErrors":{...}} при отказе
// серверной валидации (статусы 400 и 422). Отказ — структурный результат,
// не ошибка транспорта: он возвращается как editor.Outcome.
package dirclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/arturkryukov/staffdesk/profile-module/internal/domain/model"
	"github.com/arturkryukov/staffdesk/profile-module/internal/editor"
)

// ErrNotFound — профиль с таким идентификатором в Directory Service отсутствует.
var ErrNotFound = errors.New("профиль не найден в Directory Service")

// TokenProvider — функция, возвращающая JWT для авторизации запросов
// к Directory Service. Получает токен от IdP через Client Credentials flow.
type TokenProvider func(ctx context.Context) (string, error)

// updateEnvelope — конверт ответа Directory Service на обновление профиля.
type updateEnvelope struct {
	Success          bool              `json:"success"`
	Profile          *model.Profile    `json:"profile,omitempty"`
	Message          string            `json:"message,omitempty"`
	ValidationErrors map[string]string `json:"validationErrors,omitempty"`
}

// Client — HTTP-клиент Directory Service.
// Реализует editor.Updater.
type Client struct {
	baseURL       string // Базовый URL Directory Service (без trailing slash)
	httpClient    *http.Client
	tokenProvider TokenProvider
	logger        *slog.Logger
}

// New создаёт клиент Directory Service.
// caCertPath — путь к CA-сертификату для TLS (пустая строка — стандартный пул).
// tokenProvider — функция получения JWT (nil — запросы без авторизации).
func New(baseURL, caCertPath string, tokenProvider TokenProvider, logger *slog.Logger) (*Client, error) {
	httpClient := &http.Client{Timeout: 30 * time.Second}

	if caCertPath != "" {
		tlsConfig, err := buildTLSConfig(caCertPath)
		if err != nil {
			return nil, fmt.Errorf("загрузка CA-сертификата Directory Service: %w", err)
		}
		httpClient.Transport = &http.Transport{
			TLSClientConfig: tlsConfig,
		}
		logger.Info("CA-сертификат Directory Service добавлен в пул доверия",
			slog.String("ca_cert", caCertPath),
		)
	}

	return &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		httpClient:    httpClient,
		tokenProvider: tokenProvider,
		logger:        logger.With(slog.String("component", "directory_client")),
	}, nil
}

// buildTLSConfig создаёт TLS-конфигурацию с кастомным CA.
func buildTLSConfig(caCertPath string) (*tls.Config, error) {
	caCert, err := os.ReadFile(caCertPath)
	if err != nil {
		return nil, fmt.Errorf("чтение CA-сертификата: %w", err)
	}

	caCertPool, err := x509.SystemCertPool()
	if err != nil {
		caCertPool = x509.NewCertPool()
	}
	caCertPool.AppendCertsFromPEM(caCert)

	return &tls.Config{
		RootCAs: caCertPool,
	}, nil
}

// newRequest создаёт авторизованный запрос к Directory Service.
func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("создание запроса: %w", err)
	}

	if c.tokenProvider != nil {
		token, err := c.tokenProvider(ctx)
		if err != nil {
			return nil, fmt.Errorf("получение токена для Directory Service: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return req, nil
}

// GetProfile возвращает профиль сотрудника по идентификатору.
// GET /api/v1/staff/{id}. При статусе 404 возвращается ErrNotFound.
func (c *Client) GetProfile(ctx context.Context, id string) (*model.Profile, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/v1/staff/"+id, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("запрос профиля %s: %w", id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("Directory Service вернул статус %d: %s", resp.StatusCode, string(body))
	}

	var profile model.Profile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("декодирование профиля %s: %w", id, err)
	}

	return &profile, nil
}

// UpdateProfile отправляет обновление профиля.
// PUT /api/v1/staff/{id}. Статус 200 — фиксация; статусы 400 и 422 с
// конвертом — структурный отказ серверной валидации (Outcome с
// Success=false); остальные статусы и сетевые сбои — error.
func (c *Client) UpdateProfile(ctx context.Context, id string, updateReq *editor.UpdateRequest) (*editor.Outcome, error) {
	data, err := json.Marshal(updateReq)
	if err != nil {
		return nil, fmt.Errorf("сериализация update-запроса: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPut, "/api/v1/staff/"+id, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("обновление профиля %s: %w", id, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var envelope updateEnvelope
		if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
			return nil, fmt.Errorf("декодирование ответа обновления %s: %w", id, err)
		}
		if !envelope.Success {
			// Конверт отказа со статусом 200 трактуем как отказ
			return failureOutcome(&envelope), nil
		}
		return &editor.Outcome{
			Success: true,
			Profile: envelope.Profile,
		}, nil

	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		var envelope updateEnvelope
		if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
			return nil, fmt.Errorf("декодирование конверта отказа %s: %w", id, err)
		}
		c.logger.Info("Directory Service отклонил обновление профиля",
			slog.String("staff_id", id),
			slog.Int("status", resp.StatusCode),
			slog.Int("validation_errors", len(envelope.ValidationErrors)),
		)
		return failureOutcome(&envelope), nil

	case http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)

	default:
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("Directory Service вернул статус %d при обновлении: %s",
			resp.StatusCode, string(body))
	}
}

// failureOutcome собирает Outcome структурного отказа.
func failureOutcome(envelope *updateEnvelope) *editor.Outcome {
	message := envelope.Message
	if message == "" {
		message = "Directory Service отклонил обновление"
	}
	return &editor.Outcome{
		Success:          false,
		Message:          message,
		ValidationErrors: envelope.ValidationErrors,
	}
}

// CheckReady проверяет доступность Directory Service.
// Реализует handlers.ReadinessChecker.
func (c *Client) CheckReady() (string, string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return "fail", fmt.Sprintf("создание запроса: %v", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "fail", fmt.Sprintf("Directory Service недоступен: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "degraded", fmt.Sprintf("Directory Service вернул статус %d", resp.StatusCode)
	}

	return "ok", "Directory Service доступен"
}

// BaseURL возвращает базовый URL Directory Service (для dephealth).
func (c *Client) BaseURL() string {
	return c.baseURL
}
