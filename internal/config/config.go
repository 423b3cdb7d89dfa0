// Пакет config — загрузка и валидация конфигурации Profile Module
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Config содержит все параметры конфигурации Profile Module.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера (диапазон 8000-8009)
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// --- PostgreSQL ---

	// Хост PostgreSQL
	DBHost string
	// Порт PostgreSQL
	DBPort int
	// Имя базы данных
	DBName string
	// Имя пользователя PostgreSQL
	DBUser string
	// Пароль пользователя PostgreSQL
	DBPassword string
	// Режим SSL: disable, require, verify-ca, verify-full
	DBSSLMode string

	// --- Directory Service ---

	// URL Directory Service (система записи профилей)
	DirectoryURL string
	// Путь к CA-сертификату для TLS-соединений с Directory Service (опционально)
	DirectoryCACertPath string

	// --- IdP (client credentials для Directory Service) ---

	// URL token endpoint IdP (опционально — без него запросы идут без авторизации)
	IDPTokenURL string
	// Client ID для Client Credentials flow
	IDPClientID string
	// Client Secret для Client Credentials flow
	IDPClientSecret string

	// --- JWT (валидация входящих запросов) ---

	// Issuer JWT (опционально — без него issuer не проверяется)
	JWTIssuer string
	// URL JWKS endpoint
	JWTJWKSURL string
	// Допустимое отклонение времени при проверке JWT
	JWTLeeway time.Duration
	// Интервал обновления JWKS-ключей
	JWKSRefreshInterval time.Duration

	// --- Маппинг групп → ролей ---

	// Группы IdP, дающие роль admin (через запятую)
	RoleAdminGroups []string

	// --- Сессии редактирования ---

	// Время жизни открытой сессии редактирования
	SessionTTL time.Duration
	// Максимальное количество одновременно открытых сессий
	SessionLimit int

	// --- Кэш профилей ---

	// Максимальное количество записей в LRU-кэше профилей
	CacheSize int
	// Время жизни записи кэша
	CacheTTL time.Duration

	// --- Разное ---

	// Страна по умолчанию для адреса, если снапшот её не содержит
	DefaultCountry string
	// URL notification service для transient-уведомлений (опционально)
	NotifyURL string

	// --- topologymetrics ---

	// Имя группы в метриках dephealth
	DephealthGroup string
	// Интервал проверки зависимостей topologymetrics
	DephealthCheckInterval time.Duration

	// --- Graceful shutdown ---

	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	// PM_PORT — порт HTTP-сервера (по умолчанию 8000)
	cfg.Port, err = getEnvInt("PM_PORT", 8000)
	if err != nil {
		return nil, fmt.Errorf("PM_PORT: %w", err)
	}
	if cfg.Port < 8000 || cfg.Port > 8009 {
		return nil, fmt.Errorf("PM_PORT: значение %d вне допустимого диапазона 8000-8009", cfg.Port)
	}

	// PM_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("PM_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("PM_LOG_LEVEL: %w", err)
	}

	// PM_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("PM_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("PM_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// --- PostgreSQL ---

	// PM_DB_HOST — обязательный
	cfg.DBHost, err = getEnvRequired("PM_DB_HOST")
	if err != nil {
		return nil, err
	}

	// PM_DB_PORT — порт PostgreSQL (по умолчанию 5432)
	cfg.DBPort, err = getEnvInt("PM_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("PM_DB_PORT: %w", err)
	}

	// PM_DB_NAME — обязательный
	cfg.DBName, err = getEnvRequired("PM_DB_NAME")
	if err != nil {
		return nil, err
	}

	// PM_DB_USER — обязательный
	cfg.DBUser, err = getEnvRequired("PM_DB_USER")
	if err != nil {
		return nil, err
	}

	// PM_DB_PASSWORD — обязательный
	cfg.DBPassword, err = getEnvRequired("PM_DB_PASSWORD")
	if err != nil {
		return nil, err
	}

	// PM_DB_SSL_MODE — режим SSL (по умолчанию disable)
	cfg.DBSSLMode = getEnvDefault("PM_DB_SSL_MODE", "disable")
	validSSLModes := map[string]bool{
		"disable": true, "require": true, "verify-ca": true, "verify-full": true,
	}
	if !validSSLModes[cfg.DBSSLMode] {
		return nil, fmt.Errorf("PM_DB_SSL_MODE: недопустимое значение %q, допустимые: disable, require, verify-ca, verify-full", cfg.DBSSLMode)
	}

	// --- Directory Service ---

	// PM_DIRECTORY_URL — обязательный
	cfg.DirectoryURL, err = getEnvRequired("PM_DIRECTORY_URL")
	if err != nil {
		return nil, err
	}
	// Убираем trailing slash
	cfg.DirectoryURL = strings.TrimRight(cfg.DirectoryURL, "/")

	// PM_DIRECTORY_CA_CERT_PATH — путь к CA-сертификату (опционально)
	cfg.DirectoryCACertPath = getEnvDefault("PM_DIRECTORY_CA_CERT_PATH", "")

	// --- IdP ---

	// PM_IDP_TOKEN_URL — token endpoint (опционально)
	cfg.IDPTokenURL = getEnvDefault("PM_IDP_TOKEN_URL", "")
	cfg.IDPClientID = getEnvDefault("PM_IDP_CLIENT_ID", "")
	cfg.IDPClientSecret = getEnvDefault("PM_IDP_CLIENT_SECRET", "")
	if cfg.IDPTokenURL != "" && (cfg.IDPClientID == "" || cfg.IDPClientSecret == "") {
		return nil, fmt.Errorf("PM_IDP_TOKEN_URL задан, но PM_IDP_CLIENT_ID или PM_IDP_CLIENT_SECRET отсутствуют")
	}

	// --- JWT ---

	// PM_JWT_JWKS_URL — обязательный
	cfg.JWTJWKSURL, err = getEnvRequired("PM_JWT_JWKS_URL")
	if err != nil {
		return nil, err
	}

	// PM_JWT_ISSUER — ожидаемый issuer (опционально)
	cfg.JWTIssuer = getEnvDefault("PM_JWT_ISSUER", "")

	// PM_JWT_LEEWAY — допустимое отклонение времени (по умолчанию 30s)
	cfg.JWTLeeway, err = getEnvDuration("PM_JWT_LEEWAY", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("PM_JWT_LEEWAY: %w", err)
	}

	// PM_JWKS_REFRESH_INTERVAL — интервал обновления JWKS (по умолчанию 1h)
	cfg.JWKSRefreshInterval, err = getEnvDuration("PM_JWKS_REFRESH_INTERVAL", time.Hour)
	if err != nil {
		return nil, fmt.Errorf("PM_JWKS_REFRESH_INTERVAL: %w", err)
	}

	// --- Маппинг групп → ролей ---

	// PM_ROLE_ADMIN_GROUPS — группы для роли admin (по умолчанию "staffdesk-admins")
	cfg.RoleAdminGroups = parseCSV(getEnvDefault("PM_ROLE_ADMIN_GROUPS", "staffdesk-admins"))

	// --- Сессии редактирования ---

	// PM_SESSION_TTL — время жизни сессии (по умолчанию 30m)
	cfg.SessionTTL, err = getEnvDuration("PM_SESSION_TTL", 30*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("PM_SESSION_TTL: %w", err)
	}

	// PM_SESSION_LIMIT — максимум открытых сессий (по умолчанию 1000)
	cfg.SessionLimit, err = getEnvInt("PM_SESSION_LIMIT", 1000)
	if err != nil {
		return nil, fmt.Errorf("PM_SESSION_LIMIT: %w", err)
	}
	if cfg.SessionLimit < 1 || cfg.SessionLimit > 100000 {
		return nil, fmt.Errorf("PM_SESSION_LIMIT: значение %d вне допустимого диапазона 1-100000", cfg.SessionLimit)
	}

	// --- Кэш профилей ---

	// PM_CACHE_SIZE — размер LRU-кэша профилей (по умолчанию 1000)
	cfg.CacheSize, err = getEnvInt("PM_CACHE_SIZE", 1000)
	if err != nil {
		return nil, fmt.Errorf("PM_CACHE_SIZE: %w", err)
	}

	// PM_CACHE_TTL — TTL записи кэша (по умолчанию 5m)
	cfg.CacheTTL, err = getEnvDuration("PM_CACHE_TTL", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("PM_CACHE_TTL: %w", err)
	}

	// --- Разное ---

	// PM_DEFAULT_COUNTRY — страна по умолчанию для адреса (по умолчанию "CH")
	cfg.DefaultCountry = getEnvDefault("PM_DEFAULT_COUNTRY", "CH")

	// PM_NOTIFY_URL — URL notification service (опционально)
	cfg.NotifyURL = strings.TrimRight(getEnvDefault("PM_NOTIFY_URL", ""), "/")

	// --- topologymetrics ---

	// PM_DEPHEALTH_GROUP — имя группы в метриках (по умолчанию "staffdesk")
	cfg.DephealthGroup = getEnvDefault("PM_DEPHEALTH_GROUP", "staffdesk")

	// PM_DEPHEALTH_CHECK_INTERVAL — интервал проверки зависимостей (по умолчанию 15s)
	cfg.DephealthCheckInterval, err = getEnvDuration("PM_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("PM_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	// --- Graceful shutdown ---

	// PM_SHUTDOWN_TIMEOUT — таймаут graceful shutdown (по умолчанию 5s)
	cfg.ShutdownTimeout, err = getEnvDuration("PM_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("PM_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// DatabaseDSN возвращает строку подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// DatabaseURL возвращает URL подключения к PostgreSQL (для лейблов dephealth).
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	return d, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}

// parseCSV разбирает строку, разделённую запятыми, на срез строк.
// Пробелы вокруг элементов убираются, пустые элементы игнорируются.
func parseCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
