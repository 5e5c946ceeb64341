package ledger

import (
	"context"
	"strconv"

	"github.com/iudanet/milkledger/internal/crypto"
	"github.com/iudanet/milkledger/internal/models"
	"github.com/iudanet/milkledger/internal/telemetry"
)

// IssueKind вид нарушения целостности
type IssueKind string

// Виды нарушений целостности
const (
	IssueChainBroken       IssueKind = "chain_broken"
	IssueHashMismatch      IssueKind = "hash_mismatch"
	IssueSignatureInvalid  IssueKind = "signature_invalid"
	IssueCheckpointInvalid IssueKind = "checkpoint_invalid"
	IssueUnreadableEntry   IssueKind = "unreadable_entry"
)

// CheckpointIndex индекс нарушений, относящихся к чекпоинту, а не к записи
const CheckpointIndex = -1

// Issue нарушение целостности, найденное проверкой
type Issue struct {
	ID       string    `json:"id"`       // ID идентификатор записи
	Kind     IssueKind `json:"issue"`    // Kind вид нарушения
	Message  string    `json:"message"`  // Message описание для оператора
	Expected string    `json:"expected"` // Expected ожидаемое значение (хеш)
	Actual   string    `json:"actual"`   // Actual фактическое значение
	Index    int       `json:"index"`    // Index позиция записи в цепочке
}

// VerifyResult результат проверки цепочки
type VerifyResult struct {
	Checkpoint   *models.Checkpoint `json:"checkpoint,omitempty"`
	Issues       []Issue            `json:"issues"`
	TotalEntries int                `json:"totalEntries"`
	Valid        bool               `json:"valid"`
}

// VerifyOption настраивает проверку
type VerifyOption func(*verifyOptions)

type verifyOptions struct {
	signatures bool
}

// WithSignatures включает проверку подписей записей
func WithSignatures() VerifyOption {
	return func(o *verifyOptions) {
		o.signatures = true
	}
}

// VerifyChain проверяет целостность хранимой цепочки.
// Нарушения возвращаются в результате, а не ошибкой; ошибка означает,
// что цепочку не удалось прочитать.
func (l *Ledger) VerifyChain(ctx context.Context, opts ...VerifyOption) (*VerifyResult, error) {
	var o verifyOptions
	for _, opt := range opts {
		opt(&o)
	}

	chain, err := l.loadChain(ctx)
	if err != nil {
		return nil, err
	}
	cp, err := l.Checkpoint(ctx)
	if err != nil {
		return nil, err
	}

	var signer *crypto.Signer
	if o.signatures {
		signer = l.signer
	}

	result := verifyChain(chain, cp, l.signer, signer)

	if result.Valid {
		telemetry.ChainVerificationsTotal.WithLabelValues("valid").Inc()
	} else {
		telemetry.ChainVerificationsTotal.WithLabelValues("invalid").Inc()
	}
	for _, issue := range result.Issues {
		telemetry.ChainIssuesTotal.WithLabelValues(string(issue.Kind)).Inc()
	}

	return result, nil
}

// Verify проверяет цепочку записей.
//
// Для каждой записи previousHash сравнивается с ожидаемым значением
// (chain_broken), хеш пересчитывается и сравнивается с сохраненным
// (hash_mismatch). Ожидаемым значением для следующей записи становится
// пересчитанный хеш: подмена содержимого одной записи дает hash_mismatch
// для нее и chain_broken для следующей, дальше ошибка не распространяется.
//
// Цепочка начинается с "" либо с lastPrunedHash чекпоинта, если его подпись
// верна (cpSigner). entrySigner != nil включает проверку подписей записей.
func Verify(entries []*models.AuditEntry, cp *models.Checkpoint, cpSigner, entrySigner *crypto.Signer) *VerifyResult {
	chain := make([]storedEntry, len(entries))
	for i, e := range entries {
		chain[i] = storedEntry{Entry: e, ID: e.ID, Hash: e.Hash}
	}
	return verifyChain(chain, cp, cpSigner, entrySigner)
}

// verifyChain проверяет цепочку с позициями нечитаемых записей.
// Нечитаемая запись дает unreadable_entry; ожидаемым значением для
// следующей становится ее сохраненный хеш, если его удалось извлечь.
func verifyChain(chain []storedEntry, cp *models.Checkpoint, cpSigner, entrySigner *crypto.Signer) *VerifyResult {
	result := &VerifyResult{
		Checkpoint:   cp,
		Issues:       make([]Issue, 0),
		TotalEntries: len(chain),
	}

	expected := ""
	if cp != nil {
		if cpSigner != nil && cpSigner.Verify(cp.Signature, checkpointParts(cp)...) {
			expected = cp.LastPrunedHash
		} else {
			result.Issues = append(result.Issues, Issue{
				Index:   CheckpointIndex,
				ID:      cp.ID,
				Kind:    IssueCheckpointInvalid,
				Message: "checkpoint signature invalid",
				Actual:  cp.Signature,
			})
		}
	}

	for i, se := range chain {
		e := se.Entry
		if e == nil {
			result.Issues = append(result.Issues, Issue{
				Index:   i,
				ID:      se.ID,
				Kind:    IssueUnreadableEntry,
				Message: "entry cannot be decoded: " + se.Err.Error(),
				Actual:  se.Hash,
			})
			expected = se.Hash
			continue
		}

		if e.PreviousHash != expected {
			result.Issues = append(result.Issues, Issue{
				Index:    i,
				ID:       e.ID,
				Kind:     IssueChainBroken,
				Message:  "hash chain broken",
				Expected: expected,
				Actual:   e.PreviousHash,
			})
		}

		calculated, err := crypto.EntryHash(e)
		switch {
		case err != nil:
			result.Issues = append(result.Issues, Issue{
				Index:   i,
				ID:      e.ID,
				Kind:    IssueHashMismatch,
				Message: "hash cannot be recomputed: " + err.Error(),
				Actual:  e.Hash,
			})
			calculated = e.Hash
		case calculated != e.Hash:
			result.Issues = append(result.Issues, Issue{
				Index:    i,
				ID:       e.ID,
				Kind:     IssueHashMismatch,
				Message:  "hash mismatch - possible tampering",
				Expected: calculated,
				Actual:   e.Hash,
			})
		}

		if entrySigner != nil && !entrySigner.Verify(e.Signature, signatureParts(e)...) {
			result.Issues = append(result.Issues, Issue{
				Index:   i,
				ID:      e.ID,
				Kind:    IssueSignatureInvalid,
				Message: "signature invalid",
				Actual:  e.Signature,
			})
		}

		expected = calculated
	}

	result.Valid = len(result.Issues) == 0
	return result
}

func checkpointParts(cp *models.Checkpoint) []string {
	return []string{
		strconv.Itoa(cp.PrunedCount),
		cp.LastPrunedHash,
		cp.LastPrunedTimestamp,
		cp.FirstRetainedID,
		cp.CreatedAt,
	}
}
