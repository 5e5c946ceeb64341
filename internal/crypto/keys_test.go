package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveSigningKey(t *testing.T) {
	tests := []struct {
		name      string
		secret    string
		machineID string
		errMsg    string
		wantErr   bool
	}{
		{name: "successful derivation", secret: "collection-point-secret", machineID: "MID-linux-4core-abc123"},
		{name: "empty secret", secret: "", machineID: "MID-1", wantErr: true, errMsg: "signing secret cannot be empty"},
		{name: "empty machine id", secret: "secret", machineID: "", wantErr: true, errMsg: "machine id cannot be empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := DeriveSigningKey(tt.secret, tt.machineID)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				assert.Nil(t, key)
				return
			}
			require.NoError(t, err)
			assert.Len(t, key, Argon2KeyLen)
		})
	}
}

func TestDeriveSigningKey_Determinism(t *testing.T) {
	k1, err := DeriveSigningKey("secret", "MID-1")
	require.NoError(t, err)
	k2, err := DeriveSigningKey("secret", "MID-1")
	require.NoError(t, err)
	assert.Equal(t, k1, k2, "Одинаковые входные данные должны давать одинаковый ключ")

	k3, err := DeriveSigningKey("secret", "MID-2")
	require.NoError(t, err)
	assert.NotEqual(t, k1, k3, "Разные устройства должны получать разные ключи")

	k4, err := DeriveSigningKey("other", "MID-1")
	require.NoError(t, err)
	assert.NotEqual(t, k1, k4, "Разные секреты должны давать разные ключи")
}

func TestGenerateSecret(t *testing.T) {
	s1, err := GenerateSecret(32)
	require.NoError(t, err)
	s2, err := GenerateSecret(32)
	require.NoError(t, err)

	assert.Len(t, s1, 32)
	assert.NotEqual(t, s1, s2)
}
