package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strings"
)

// SignaturePrefix префикс строкового представления подписи
const SignaturePrefix = "hmac-sha256:"

// ErrEmptyKey возвращается при попытке создать Signer без ключа
var ErrEmptyKey = errors.New("signing key cannot be empty")

// Signer подписывает поля записей ключом HMAC-SHA256
type Signer struct {
	key []byte
}

// NewSigner создает Signer с копией ключа
func NewSigner(key []byte) (*Signer, error) {
	if len(key) == 0 {
		return nil, ErrEmptyKey
	}
	k := make([]byte, len(key))
	copy(k, key)
	return &Signer{key: k}, nil
}

// Sign возвращает подпись частей, объединенных через "|"
func (s *Signer) Sign(parts ...string) string {
	return SignaturePrefix + base64.RawURLEncoding.EncodeToString(s.mac(parts))
}

// Verify проверяет подпись за постоянное время
func (s *Signer) Verify(signature string, parts ...string) bool {
	encoded, ok := strings.CutPrefix(signature, SignaturePrefix)
	if !ok {
		return false
	}
	got, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return false
	}
	return hmac.Equal(got, s.mac(parts))
}

func (s *Signer) mac(parts []string) []byte {
	m := hmac.New(sha256.New, s.key)
	m.Write([]byte(strings.Join(parts, "|")))
	return m.Sum(nil)
}
