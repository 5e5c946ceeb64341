// Package ledger реализует журнал аудита в виде хеш-цепочки.
//
// Каждая запись хранит хеш предыдущей; изменение, удаление или вставка
// записи задним числом обнаруживается проверкой цепочки. Запись
// добавляется в хранилище и в очередь синхронизации одной транзакцией.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/iudanet/milkledger/internal/client/queue"
	"github.com/iudanet/milkledger/internal/client/storage"
	"github.com/iudanet/milkledger/internal/clock"
	"github.com/iudanet/milkledger/internal/crypto"
	"github.com/iudanet/milkledger/internal/models"
	"github.com/iudanet/milkledger/internal/telemetry"
	"github.com/iudanet/milkledger/internal/validation"
)

// Коллекции хранилища, которыми владеет журнал
const (
	CollectionEntries = storage.CollectionAuditLogs
	CollectionMeta    = storage.CollectionLedgerMeta
)

// DefaultMaxEntries число хранимых записей, сверх которого старые вытесняются через чекпоинт
const DefaultMaxEntries = 10000

// DefaultActor оператор до вызова SetActor
const DefaultActor = "anonymous"

var (
	// ErrSerialization indicates that entry payload cannot be canonicalized for hashing
	ErrSerialization = errors.New("audit entry cannot be serialized")

	// ErrInvalidEntry indicates that action, entity type or entity id is malformed
	ErrInvalidEntry = errors.New("invalid audit entry")

	// ErrChainUnreadable indicates that the last stored entry cannot be decoded,
	// so the chain cannot be extended or pruned until the store is repaired.
	ErrChainUnreadable = errors.New("audit chain tail is unreadable")
)

// KeySource выдает ключ подписи для идентификатора устройства
type KeySource func(machineID string) ([]byte, error)

// Config настройки журнала
type Config struct {
	Keys       KeySource        // Keys источник ключа подписи (обязателен)
	Clock      *clock.Monotonic // Clock часы для меток времени (по умолчанию clock.New())
	UserAgent  string           // UserAgent идентификатор сборки клиента
	Priority   models.Priority  // Priority приоритет записей журнала в очереди (по умолчанию low)
	MaxEntries int              // MaxEntries лимит хранимых записей (по умолчанию DefaultMaxEntries)
}

// Ledger журнал аудита.
// mu сериализует добавление и удаление записей и защищает previousHash:
// указатель сдвигается только после успешной записи в хранилище и очередь.
// unreadable != nil, если последняя запись не читается: журнал открыт
// для чтения и проверки, но Log и Prune отказывают.
type Ledger struct {
	unreadable   error
	store        storage.Store
	queue        *queue.Queue
	signer       *crypto.Signer
	clock        *clock.Monotonic
	logger       *slog.Logger
	sessionID    string
	machineID    string
	userAgent    string
	actor        string
	previousHash string
	priority     models.Priority
	maxEntries   int
	count        int // число хранимых записей
	mu           sync.Mutex
}

// New открывает журнал поверх хранилища: загружает или создает
// идентификатор устройства, восстанавливает указатель цепочки
// по последней записи (или по чекпоинту, если записей не осталось)
// и поднимает часы до метки последней записи.
func New(ctx context.Context, store storage.Store, q *queue.Queue, cfg Config, logger *slog.Logger) (*Ledger, error) {
	if cfg.Keys == nil {
		return nil, fmt.Errorf("signing key source is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultMaxEntries
	}
	if cfg.Priority == "" {
		cfg.Priority = models.PriorityLow
	}

	machineID, err := loadMachineID(ctx, store, cfg.Clock)
	if err != nil {
		return nil, err
	}

	key, err := cfg.Keys(machineID)
	if err != nil {
		return nil, fmt.Errorf("failed to derive signing key: %w", err)
	}
	signer, err := crypto.NewSigner(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create signer: %w", err)
	}

	l := &Ledger{
		store:      store,
		queue:      q,
		signer:     signer,
		clock:      cfg.Clock,
		logger:     logger,
		sessionID:  newSessionID(),
		machineID:  machineID,
		userAgent:  cfg.UserAgent,
		actor:      DefaultActor,
		priority:   models.ParsePriority(string(cfg.Priority)),
		maxEntries: cfg.MaxEntries,
	}

	if err := l.restore(ctx); err != nil {
		return nil, err
	}

	logger.Debug("audit ledger opened",
		slog.String("session_id", l.sessionID),
		slog.String("machine_id", l.machineID),
		slog.Int("entries", l.count))

	return l, nil
}

// restore восстанавливает состояние цепочки из хранилища.
// Указатель берется только из читаемой последней записи: откат к
// предпоследней скрыл бы потерю хвоста.
func (l *Ledger) restore(ctx context.Context) error {
	chain, err := l.loadChain(ctx)
	if err != nil {
		return err
	}
	l.count = len(chain)

	if len(chain) > 0 {
		last := chain[len(chain)-1]
		if last.Entry == nil {
			l.unreadable = fmt.Errorf("%w: entry %d (%s): %v", ErrChainUnreadable, len(chain)-1, last.ID, last.Err)
			l.logger.Error("audit chain tail is unreadable, appends disabled",
				slog.Int("index", len(chain)-1),
				slog.String("id", last.ID),
				slog.String("error", last.Err.Error()))
			return nil
		}
		l.previousHash = last.Entry.Hash
		if ts, err := last.Entry.Time(); err == nil {
			l.clock.Observe(ts)
		}
		return nil
	}

	cp, err := l.Checkpoint(ctx)
	if err != nil {
		return err
	}
	if cp != nil {
		l.previousHash = cp.LastPrunedHash
		if ts, err := parseTimestamp(cp.LastPrunedTimestamp); err == nil {
			l.clock.Observe(ts)
		}
	}

	return nil
}

// SessionID возвращает идентификатор текущей сессии
func (l *Ledger) SessionID() string {
	return l.sessionID
}

// MachineID возвращает постоянный идентификатор устройства
func (l *Ledger) MachineID() string {
	return l.machineID
}

// SetActor устанавливает оператора для последующих записей
func (l *Ledger) SetActor(userID string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if userID == "" {
		userID = DefaultActor
	}
	l.actor = userID
}

// Actor возвращает текущего оператора
func (l *Ledger) Actor() string {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.actor
}

// Head возвращает хеш последней записи цепочки ("" для пустой цепочки)
func (l *Ledger) Head() string {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.previousHash
}

// Log добавляет запись в цепочку.
//
// Запись получает метку времени, хеш предыдущей записи, собственный хеш
// и подпись, затем сохраняется вместе с элементом очереди синхронизации
// в одной транзакции. При ошибке сохранения состояние журнала не меняется.
// Возвращает копию сохраненной записи.
func (l *Ledger) Log(ctx context.Context, action models.Action, entityType, entityID string, data map[string]any, notes string) (*models.AuditEntry, error) {
	if err := validation.ValidateAction(string(action)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}
	if err := validation.ValidateEntityType(entityType); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}
	if err := validation.ValidateEntityID(entityID); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	entry, item, err := l.appendLocked(ctx, action, entityType, entityID, data, notes)
	if err != nil {
		return nil, err
	}

	l.afterAppendLocked(ctx)
	l.queue.Notify(item.Priority)

	return entry.Clone(), nil
}

// appendLocked строит, подписывает и сохраняет запись. Вызывается под l.mu.
func (l *Ledger) appendLocked(ctx context.Context, action models.Action, entityType, entityID string, data map[string]any, notes string) (*models.AuditEntry, *models.SyncQueueItem, error) {
	if l.unreadable != nil {
		return nil, nil, l.unreadable
	}

	entry := &models.AuditEntry{
		ID:           newEntryID(),
		Timestamp:    formatTimestamp(l.clock.Tick()),
		SessionID:    l.sessionID,
		MachineID:    l.machineID,
		UserID:       l.actor,
		UserAgent:    l.userAgent,
		Action:       action,
		EntityType:   entityType,
		EntityID:     entityID,
		Data:         data,
		Notes:        notes,
		PreviousHash: l.previousHash,
	}

	hash, err := crypto.EntryHash(entry)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	entry.Hash = hash
	entry.Signature = l.signEntry(entry)

	item, err := l.queue.NewItem(models.OperationAuditAppend, models.EntityTypeAuditLog, entry.ID, entry, l.priority)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}

	err = l.store.Update(ctx, func(tx storage.Tx) error {
		if err := tx.Set(CollectionEntries, entry); err != nil {
			return err
		}
		return tx.Set(queue.Collection, item)
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to persist audit entry: %w", err)
	}

	l.previousHash = entry.Hash
	l.count++
	telemetry.AuditEntriesTotal.WithLabelValues(string(action)).Inc()

	l.logger.Debug("audit entry appended",
		slog.String("action", string(action)),
		slog.String("entity", entityType+":"+entityID),
		slog.String("hash", entry.Hash))

	return entry, item, nil
}

// afterAppendLocked вытесняет старые записи сверх лимита.
// Ошибка вытеснения не отменяет уже сохраненную запись.
func (l *Ledger) afterAppendLocked(ctx context.Context) {
	if l.count <= l.maxEntries {
		return
	}

	chain, err := l.loadChain(ctx)
	if err != nil {
		l.logger.Warn("failed to load entries for retention cap", slog.String("error", err.Error()))
		return
	}
	if excess := len(chain) - l.maxEntries; excess > 0 {
		if err := l.evictLocked(ctx, chain, excess); err != nil {
			l.logger.Warn("failed to evict entries over retention cap", slog.String("error", err.Error()))
		}
	}
}

// VerifySignature проверяет подпись записи ключом устройства
func (l *Ledger) VerifySignature(e *models.AuditEntry) bool {
	return l.signer.Verify(e.Signature, signatureParts(e)...)
}

func (l *Ledger) signEntry(e *models.AuditEntry) string {
	return l.signer.Sign(signatureParts(e)...)
}

func signatureParts(e *models.AuditEntry) []string {
	return []string{e.SessionID, e.Timestamp, string(e.Action), e.EntityID}
}

func newEntryID() string {
	// UUIDv7 упорядочен по времени; при ошибке генератора берем v4
	id, err := uuid.NewV7()
	if err != nil {
		return "AUD-" + uuid.NewString()
	}
	return "AUD-" + id.String()
}
