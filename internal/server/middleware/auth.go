// Package middleware содержит HTTP middleware сервера журнала.
package middleware

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/iudanet/milkledger/internal/auth"
	"github.com/iudanet/milkledger/pkg/api"
)

var (
	// ErrMissingToken is returned when the request has no Authorization header.
	ErrMissingToken = errors.New("missing token")
	// ErrTokenFormat is returned when the Authorization header is not "Bearer <token>".
	ErrTokenFormat = errors.New("invalid token format")
)

// bearerToken достает токен из заголовка Authorization
func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", ErrMissingToken
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", ErrTokenFormat
	}
	return strings.TrimSpace(token), nil
}

func unauthorized(w http.ResponseWriter, reason string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="milkledger"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(api.ErrorResponse{Error: "unauthorized", Message: reason})
}

// AuthMiddleware пропускает только запросы с действующим токеном устройства,
// подписанным общим секретом отправки. Claims кладутся в контекст запроса.
func AuthMiddleware(logger *slog.Logger, cfg auth.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := bearerToken(r)
			if err != nil {
				logger.Warn("Rejected request", slog.String("path", r.URL.Path), slog.Any("error", err))
				unauthorized(w, err.Error())
				return
			}

			claims, err := auth.ValidateDeviceToken(cfg, token)
			if err != nil {
				logger.Warn("Invalid device token", slog.String("path", r.URL.Path), slog.Any("error", err))
				unauthorized(w, "invalid token")
				return
			}

			annotateDevice(r.Context(), claims.DeviceID)
			logger.Debug("Device authenticated",
				slog.String("device_id", claims.DeviceID),
				slog.String("subject", claims.Subject))

			next.ServeHTTP(w, r.WithContext(auth.WithClaims(r.Context(), claims)))
		})
	}
}
