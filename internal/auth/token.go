// Package auth выпускает и проверяет JWT токены устройств для отправки журнала.
//
// Устройство подписывает токен общим секретом (HS256) сам, сервер проверяет
// подпись тем же секретом и сверяет device_id токена с machineId записей.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Issuer издатель токенов устройств
const Issuer = "milkledger"

// DefaultTokenTTL время жизни токена устройства
const DefaultTokenTTL = 15 * time.Minute

var (
	// ErrEmptySecret indicates that push secret is not configured
	ErrEmptySecret = errors.New("push secret cannot be empty")

	// ErrInvalidToken indicates that token cannot be parsed or verified
	ErrInvalidToken = errors.New("invalid device token")
)

// DeviceClaims представляет JWT claims токена устройства
type DeviceClaims struct {
	DeviceID string `json:"device_id"`
	jwt.RegisteredClaims
}

// Config содержит конфигурацию токенов устройств
type Config struct {
	Secret []byte
	TTL    time.Duration
}

func (c Config) ttl() time.Duration {
	if c.TTL <= 0 {
		return DefaultTokenTTL
	}
	return c.TTL
}

// GenerateDeviceToken создает токен устройства. subject обычно текущий оператор.
func GenerateDeviceToken(cfg Config, deviceID, subject string, now time.Time) (string, time.Time, error) {
	if len(cfg.Secret) == 0 {
		return "", time.Time{}, ErrEmptySecret
	}
	if deviceID == "" {
		return "", time.Time{}, fmt.Errorf("device id cannot be empty")
	}

	expiresAt := now.Add(cfg.ttl())
	claims := DeviceClaims{
		DeviceID: deviceID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    Issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(cfg.Secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, expiresAt, nil
}

// ValidateDeviceToken валидирует и парсит токен устройства
func ValidateDeviceToken(cfg Config, tokenString string) (*DeviceClaims, error) {
	if len(cfg.Secret) == 0 {
		return nil, ErrEmptySecret
	}

	token, err := jwt.ParseWithClaims(tokenString, &DeviceClaims{}, func(token *jwt.Token) (interface{}, error) {
		// Проверяем что используется правильный алгоритм подписи
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return cfg.Secret, nil
	}, jwt.WithIssuer(Issuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*DeviceClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.DeviceID == "" {
		return nil, fmt.Errorf("%w: missing device_id", ErrInvalidToken)
	}

	return claims, nil
}

// TokenSource выдает токен устройства, перевыпуская его незадолго до истечения
type TokenSource struct {
	expiresAt time.Time
	now       func() time.Time
	subject   func() string
	cfg       Config
	deviceID  string
	token     string
	issuedFor string // оператор, для которого выпущен кешированный токен
	mu        sync.Mutex
}

// NewTokenSource создает источник токенов. subject вызывается при каждом
// запросе токена; смена оператора приводит к перевыпуску.
func NewTokenSource(cfg Config, deviceID string, subject func() string) *TokenSource {
	if subject == nil {
		subject = func() string { return "" }
	}
	return &TokenSource{
		cfg:      cfg,
		deviceID: deviceID,
		subject:  subject,
		now:      time.Now,
	}
}

// Token возвращает действующий токен
func (s *TokenSource) Token(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	sub := s.subject()
	// Запас в минуту, чтобы токен не истек в пути
	if s.token != "" && sub == s.issuedFor && now.Add(time.Minute).Before(s.expiresAt) {
		return s.token, nil
	}

	token, expiresAt, err := GenerateDeviceToken(s.cfg, s.deviceID, sub, now)
	if err != nil {
		return "", err
	}
	s.token, s.expiresAt, s.issuedFor = token, expiresAt, sub

	return token, nil
}

type contextKey string

const claimsKey contextKey = "device_claims"

// WithClaims кладет claims проверенного токена в контекст
func WithClaims(ctx context.Context, claims *DeviceClaims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// ClaimsFromContext извлекает claims из контекста
func ClaimsFromContext(ctx context.Context) (*DeviceClaims, bool) {
	claims, ok := ctx.Value(claimsKey).(*DeviceClaims)
	return claims, ok && claims != nil
}
