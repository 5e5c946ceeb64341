package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testConfig = Config{Secret: []byte("test-push-secret"), TTL: 15 * time.Minute}

func TestGenerateAndValidateDeviceToken(t *testing.T) {
	token, expiresAt, err := GenerateDeviceToken(testConfig, "MID-linux-4core-abcd", "cashier-7", time.Now())
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), expiresAt, 5*time.Second)

	claims, err := ValidateDeviceToken(testConfig, token)
	require.NoError(t, err)
	assert.Equal(t, "MID-linux-4core-abcd", claims.DeviceID)
	assert.Equal(t, "cashier-7", claims.Subject)
	assert.Equal(t, Issuer, claims.Issuer)
}

func TestGenerateDeviceToken_Errors(t *testing.T) {
	_, _, err := GenerateDeviceToken(Config{}, "MID-1", "", time.Now())
	require.ErrorIs(t, err, ErrEmptySecret)

	_, _, err = GenerateDeviceToken(testConfig, "", "", time.Now())
	require.Error(t, err)
}

func TestValidateDeviceToken_Invalid(t *testing.T) {
	valid, _, err := GenerateDeviceToken(testConfig, "MID-1", "u", time.Now())
	require.NoError(t, err)

	expired, _, err := GenerateDeviceToken(testConfig, "MID-1", "u", time.Now().Add(-time.Hour))
	require.NoError(t, err)

	noDevice := jwt.NewWithClaims(jwt.SigningMethodHS256, DeviceClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	})
	noDeviceToken, err := noDevice.SignedString(testConfig.Secret)
	require.NoError(t, err)

	noneAlg := jwt.NewWithClaims(jwt.SigningMethodNone, DeviceClaims{DeviceID: "MID-1"})
	noneToken, err := noneAlg.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		cfg   Config
		token string
	}{
		{name: "wrong secret", cfg: Config{Secret: []byte("other")}, token: valid},
		{name: "expired", cfg: testConfig, token: expired},
		{name: "garbage", cfg: testConfig, token: "not.a.token"},
		{name: "missing device id", cfg: testConfig, token: noDeviceToken},
		{name: "alg none", cfg: testConfig, token: noneToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateDeviceToken(tt.cfg, tt.token)
			require.ErrorIs(t, err, ErrInvalidToken)
		})
	}

	_, err = ValidateDeviceToken(Config{}, valid)
	require.ErrorIs(t, err, ErrEmptySecret)
}

func TestTokenSource(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	actor := "alice"

	src := NewTokenSource(testConfig, "MID-1", func() string { return actor })
	src.now = func() time.Time { return now }

	first, err := src.Token(ctx)
	require.NoError(t, err)

	cached, err := src.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, cached)

	// Близко к истечению токен перевыпускается
	now = now.Add(14*time.Minute + 30*time.Second)
	renewed, err := src.Token(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, first, renewed)

	actor = "bob"
	forBob, err := src.Token(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, renewed, forBob)

	claims, err := jwt.ParseWithClaims(forBob, &DeviceClaims{}, func(*jwt.Token) (interface{}, error) {
		return testConfig.Secret, nil
	}, jwt.WithoutClaimsValidation())
	require.NoError(t, err)
	assert.Equal(t, "bob", claims.Claims.(*DeviceClaims).Subject)
}

func TestClaimsContext(t *testing.T) {
	_, ok := ClaimsFromContext(context.Background())
	assert.False(t, ok)

	ctx := WithClaims(context.Background(), &DeviceClaims{DeviceID: "MID-1"})
	claims, ok := ClaimsFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "MID-1", claims.DeviceID)
}
