package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/iudanet/milkledger/internal/auth"
)

type logFieldsKey struct{}

// logFields поля записи о запросе, которые заполняют middleware ниже по цепочке
type logFields struct {
	deviceID string
}

// annotateDevice сообщает LoggingMiddleware устройство, прошедшее проверку токена
func annotateDevice(ctx context.Context, deviceID string) {
	if f, ok := ctx.Value(logFieldsKey{}).(*logFields); ok {
		f.deviceID = deviceID
	}
}

// statusOf возвращает код ответа; обработчик, не вызвавший WriteHeader, отвечает 200
func statusOf(ww chimw.WrapResponseWriter) int {
	if status := ww.Status(); status != 0 {
		return status
	}
	return http.StatusOK
}

// requestLevel уровень записи о запросе: 5xx ошибка, 4xx предупреждение
func requestLevel(status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// LoggingMiddleware пишет одну запись на запрос: метод, путь, статус,
// длительность, размер ответа, request id и устройство из токена.
// Заголовок Authorization не логируется.
func LoggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			fields := &logFields{}

			next.ServeHTTP(ww, r.WithContext(context.WithValue(r.Context(), logFieldsKey{}, fields)))

			status := statusOf(ww)
			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("remote_addr", r.RemoteAddr),
				slog.Int("status", status),
				slog.Int64("duration_ms", time.Since(start).Milliseconds()),
				slog.Int("bytes", ww.BytesWritten()),
			}
			if reqID := chimw.GetReqID(r.Context()); reqID != "" {
				attrs = append(attrs, slog.String("request_id", reqID))
			}
			deviceID := fields.deviceID
			if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
				deviceID = claims.DeviceID
			}
			if deviceID != "" {
				attrs = append(attrs, slog.String("device_id", deviceID))
			}

			logger.LogAttrs(r.Context(), requestLevel(status), "HTTP request", attrs...)
		})
	}
}

// LoggingWithSkip как LoggingMiddleware, но не пишет запросы к skipPaths
// (health, metrics)
func LoggingWithSkip(logger *slog.Logger, skipPaths []string) func(http.Handler) http.Handler {
	skip := make(map[string]struct{}, len(skipPaths))
	for _, path := range skipPaths {
		skip[path] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		logged := LoggingMiddleware(logger)(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := skip[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}
			logged.ServeHTTP(w, r)
		})
	}
}
