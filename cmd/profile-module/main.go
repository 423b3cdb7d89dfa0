// Точка входа Profile Module — сервис редактирования профилей Staffdesk.
// Загружает конфигурацию, подключается к PostgreSQL, применяет миграции,
// инициализирует клиенты IdP и Directory Service, сервисный слой и API
// handlers, запускает topologymetrics и HTTP-сервер с graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/stdlib"

	"github.com/arturkryukov/staffdesk/profile-module/internal/api/handlers"
	"github.com/arturkryukov/staffdesk/profile-module/internal/api/middleware"
	"github.com/arturkryukov/staffdesk/profile-module/internal/api/spec"
	"github.com/arturkryukov/staffdesk/profile-module/internal/config"
	"github.com/arturkryukov/staffdesk/profile-module/internal/database"
	"github.com/arturkryukov/staffdesk/profile-module/internal/dirclient"
	"github.com/arturkryukov/staffdesk/profile-module/internal/idp"
	"github.com/arturkryukov/staffdesk/profile-module/internal/notify"
	"github.com/arturkryukov/staffdesk/profile-module/internal/repository"
	"github.com/arturkryukov/staffdesk/profile-module/internal/server"
	"github.com/arturkryukov/staffdesk/profile-module/internal/service"
)

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("Profile Module запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
	)

	// Предупреждение о дефолтных значениях topologymetrics
	if os.Getenv("PM_DEPHEALTH_GROUP") == "" {
		logger.Warn("PM_DEPHEALTH_GROUP не задана, используется значение по умолчанию",
			slog.String("default", cfg.DephealthGroup),
		)
	}

	// 3. Валидация встроенного OpenAPI контракта
	apiSpec, err := spec.Load()
	if err != nil {
		logger.Error("Ошибка OpenAPI контракта", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Применение миграций БД
	logger.Info("Применение миграций БД...")
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 5. Подключение к PostgreSQL (pgxpool)
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	// 5.1 Адаптер pgxpool → *sql.DB для topologymetrics (connection pool mode).
	// Проверка здоровья PostgreSQL идёт через существующий пул соединений,
	// что позволяет обнаружить его исчерпание.
	pgDB := stdlib.OpenDBFromPool(pool)
	defer pgDB.Close()

	// 6. Token provider IdP (Client Credentials для Directory Service).
	// Без PM_IDP_TOKEN_URL запросы к Directory идут без авторизации (dev-среда).
	var tokenProvider dirclient.TokenProvider
	if cfg.IDPTokenURL != "" {
		idpClient := idp.New(cfg.IDPTokenURL, cfg.IDPClientID, cfg.IDPClientSecret, http.DefaultClient, logger)
		tokenProvider = idpClient.TokenProvider()
		logger.Info("IdP клиент создан", slog.String("token_url", cfg.IDPTokenURL))
	} else {
		logger.Warn("PM_IDP_TOKEN_URL не задан, запросы к Directory Service без авторизации")
	}

	// 7. Directory Service клиент
	dirClient, err := dirclient.New(cfg.DirectoryURL, cfg.DirectoryCACertPath, tokenProvider, logger)
	if err != nil {
		logger.Error("Ошибка создания Directory-клиента", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Directory клиент создан", slog.String("url", cfg.DirectoryURL))

	// 8. Repositories
	prefsRepo := repository.NewPreferencesRepository(pool)
	auditRepo := repository.NewEditAuditRepository(pool)
	commitWriter := repository.NewCommitWriter(pool)

	// 9. Notifier (best-effort уведомления об изменениях профилей)
	var notifier notify.Notifier = notify.Nop{}
	if cfg.NotifyURL != "" {
		notifier = notify.NewHTTP(cfg.NotifyURL, logger)
		logger.Info("Notification-клиент создан", slog.String("url", cfg.NotifyURL))
	}

	// 10. Сервис сессий редактирования
	profileCache := service.NewProfileCache(cfg.CacheSize, cfg.CacheTTL)
	editorSvc := service.NewProfileEditor(service.ProfileEditorConfig{
		Directory:      dirClient,
		Preferences:    prefsRepo,
		Audit:          auditRepo,
		Commits:        commitWriter,
		Cache:          profileCache,
		Notifier:       notifier,
		DefaultCountry: cfg.DefaultCountry,
		SessionTTL:     cfg.SessionTTL,
		SessionLimit:   cfg.SessionLimit,
	}, logger)

	// 11. Readiness checkers (PostgreSQL + Directory Service + IdP JWKS)
	pgChecker := database.NewReadinessChecker(pool)
	idpChecker, err := middleware.NewJWKSReadinessChecker(cfg.JWTJWKSURL, cfg.DirectoryCACertPath, 3*time.Second)
	if err != nil {
		logger.Error("Ошибка создания IdP readiness checker", slog.String("error", err.Error()))
		os.Exit(1)
	}
	healthHandler := handlers.NewHealthHandler(pgChecker, dirClient, idpChecker)

	// 12. API handler
	apiHandler := handlers.NewAPIHandler(healthHandler, editorSvc, logger)

	// 13. JWT middleware
	jwtAuth, err := middleware.NewJWTAuth(
		cfg.JWTJWKSURL,
		cfg.DirectoryCACertPath,
		cfg.JWTIssuer,
		cfg.RoleAdminGroups,
		cfg.JWKSRefreshInterval,
		cfg.JWTLeeway,
		logger,
	)
	if err != nil {
		logger.Error("Ошибка создания JWT middleware", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer jwtAuth.Close()
	logger.Info("JWT middleware инициализирован",
		slog.String("jwks_url", cfg.JWTJWKSURL),
		slog.String("issuer", cfg.JWTIssuer),
	)

	// 14. topologymetrics — мониторинг зависимостей (PostgreSQL + Directory Service)
	dephealthSvc, dephealthErr := service.NewDephealthService(
		"profile-module",
		cfg.DephealthGroup,
		pgDB,
		cfg.DatabaseURL(),
		cfg.DirectoryURL,
		cfg.DephealthCheckInterval,
		logger,
	)
	if dephealthErr != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", dephealthErr.Error()),
		)
	} else {
		if startErr := dephealthSvc.Start(ctx); startErr != nil {
			logger.Warn("Ошибка запуска topologymetrics",
				slog.String("error", startErr.Error()),
			)
		} else {
			logger.Info("topologymetrics запущен",
				slog.String("group", cfg.DephealthGroup),
				slog.String("check_interval", cfg.DephealthCheckInterval.String()),
			)
		}
	}

	// 15. Создание и запуск HTTP-сервера
	srv := server.New(cfg, logger, apiHandler, jwtAuth, apiSpec)
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 16. Graceful shutdown фоновых задач
	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}

	logger.Info("Profile Module остановлен")
}
