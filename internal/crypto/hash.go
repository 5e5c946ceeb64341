package crypto

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/iudanet/milkledger/internal/models"
)

// HashPrefix префикс строкового представления хеша записи
const HashPrefix = "sha256:"

// HashBytes возвращает SHA256 от данных в виде "sha256:<hex>"
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return HashPrefix + hex.EncodeToString(sum[:])
}

// IsHash проверяет формат строки хеша
func IsHash(s string) bool {
	hexPart, ok := strings.CutPrefix(s, HashPrefix)
	if !ok || len(hexPart) != sha256.Size*2 {
		return false
	}
	_, err := hex.DecodeString(hexPart)
	return err == nil
}

// entryContent поля записи, покрываемые хешем, включая ID: подмена
// идентификатора меняет хеш. Hash, Signature и поля синхронизации в хеш не входят.
type entryContent struct {
	Data         map[string]any `json:"data"`
	ID           string         `json:"id"`
	Timestamp    string         `json:"timestamp"`
	SessionID    string         `json:"sessionId"`
	MachineID    string         `json:"machineId"`
	UserID       string         `json:"userId"`
	UserAgent    string         `json:"userAgent"`
	Action       string         `json:"action"`
	EntityType   string         `json:"entityType"`
	EntityID     string         `json:"entityId"`
	Notes        string         `json:"notes"`
	PreviousHash string         `json:"previousHash"`
}

// EntryHash вычисляет хеш содержимого записи журнала.
// Результат зависит только от ID, полей содержимого и PreviousHash.
func EntryHash(e *models.AuditEntry) (string, error) {
	canonical, err := MarshalCanonical(entryContent{
		Data:         e.Data,
		ID:           e.ID,
		Timestamp:    e.Timestamp,
		SessionID:    e.SessionID,
		MachineID:    e.MachineID,
		UserID:       e.UserID,
		UserAgent:    e.UserAgent,
		Action:       string(e.Action),
		EntityType:   e.EntityType,
		EntityID:     e.EntityID,
		Notes:        e.Notes,
		PreviousHash: e.PreviousHash,
	})
	if err != nil {
		return "", fmt.Errorf("failed to canonicalize entry %s: %w", e.ID, err)
	}
	return HashBytes(canonical), nil
}
