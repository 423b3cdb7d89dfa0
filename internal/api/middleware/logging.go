// logging.go — slog-логирование HTTP-запросов Profile Module.
package middleware

import (
	"log/slog"
	"net/http"
	"time"
)

// RequestLogger возвращает middleware, логирующее каждый HTTP-запрос:
// метод, путь, статус, длительность и адрес клиента.
// Health-пробы и /metrics логируются на уровне Debug, чтобы не засорять логи.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	log := logger.With(slog.String("component", "http"))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := newMetricsResponseWriter(w)

			next.ServeHTTP(wrapped, r)

			level := slog.LevelInfo
			switch r.URL.Path {
			case "/health/live", "/health/ready", "/metrics":
				level = slog.LevelDebug
			}

			log.Log(r.Context(), level, "HTTP-запрос",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", wrapped.statusCode),
				slog.Duration("duration", time.Since(start)),
				slog.String("remote_addr", r.RemoteAddr),
			)
		})
	}
}
