package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/iudanet/milkledger/internal/auth"
	"github.com/iudanet/milkledger/internal/telemetry"
)

const (
	limiterCleanupInterval = 10 * time.Minute
	limiterIdleTTL         = 30 * time.Minute
)

type keyedLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter ограничивает частоту запросов по ключу (устройство или IP)
type RateLimiter struct {
	limiters map[string]*keyedLimiter
	logger   *slog.Logger
	now      func() time.Time
	limit    rate.Limit
	burst    int
	mu       sync.Mutex
}

// NewRateLimiter создает rate limiter на токен-бакетах x/time/rate.
// Неактивные ключи удаляются в фоне до отмены ctx.
func NewRateLimiter(ctx context.Context, requestsPerSecond float64, burst int, logger *slog.Logger) *RateLimiter {
	rl := &RateLimiter{
		limiters: make(map[string]*keyedLimiter),
		logger:   logger,
		now:      time.Now,
		limit:    rate.Limit(requestsPerSecond),
		burst:    burst,
	}

	go func() {
		ticker := time.NewTicker(limiterCleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				rl.cleanup(limiterIdleTTL)
			case <-ctx.Done():
				return
			}
		}
	}()

	return rl
}

// Allow проверяет, разрешен ли запрос для данного ключа
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	kl, ok := rl.limiters[key]
	if !ok {
		kl = &keyedLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.limiters[key] = kl
	}
	kl.lastAccess = rl.now()
	rl.mu.Unlock()

	return kl.limiter.Allow()
}

// cleanup удаляет ключи, не использовавшиеся дольше idle
func (rl *RateLimiter) cleanup(idle time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-idle)
	for key, kl := range rl.limiters {
		if kl.lastAccess.Before(cutoff) {
			delete(rl.limiters, key)
		}
	}
}

// Middleware ограничивает частоту запросов. Ключом служит устройство из
// токена, а для неаутентифицированных запросов IP адрес клиента.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := "ip:" + getClientIP(r)
		if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
			key = "device:" + claims.DeviceID
		}

		if !rl.Allow(key) {
			telemetry.RateLimitedTotal.Inc()
			rl.logger.Warn("Rate limit exceeded",
				slog.String("key", key),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
			)

			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate limit exceeded, please try again later"}`))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// getClientIP извлекает IP адрес клиента из запроса
// Проверяет заголовки X-Forwarded-For и X-Real-IP для прокси
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// Берем первый IP из списка (реальный клиент)
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
