package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/argon2"
)

// Параметры Argon2id для деривации ключа подписи
const (
	// Argon2Time - количество итераций (time cost)
	Argon2Time = 1
	// Argon2Memory - объем памяти в KB (64MB = 64*1024 KB)
	Argon2Memory = 64 * 1024
	// Argon2Threads - количество параллельных потоков
	Argon2Threads = 4
	// Argon2KeyLen - длина выходного ключа в байтах
	Argon2KeyLen = 32
	// SaltSize - размер соли в байтах
	SaltSize = 32
)

// signingContext отделяет ключ подписи журнала от других ключей того же секрета
const signingContext = "milkledger/audit-signing"

// DeriveSigningKey генерирует ключ подписи журнала из секрета и идентификатора устройства.
// Соль выводится из machineID, поэтому ключ стабилен между перезапусками
// и различается между устройствами с одинаковым секретом.
func DeriveSigningKey(secret, machineID string) ([]byte, error) {
	if secret == "" {
		return nil, fmt.Errorf("signing secret cannot be empty")
	}
	if machineID == "" {
		return nil, fmt.Errorf("machine id cannot be empty")
	}

	salt := sha256.Sum256([]byte(signingContext + ":" + machineID))
	key := argon2.IDKey([]byte(secret), salt[:SaltSize], Argon2Time, Argon2Memory, Argon2Threads, Argon2KeyLen)

	return key, nil
}

// GenerateSecret генерирует криптографически случайный секрет указанного размера
func GenerateSecret(size int) ([]byte, error) {
	secret := make([]byte, size)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("failed to generate secret: %w", err)
	}
	return secret, nil
}
