package models

import (
	"strings"
	"time"
)

// TimestampLayout формат временных меток записей журнала.
// Фиксированная ширина дробной части позволяет сравнивать метки как строки.
const TimestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Action тип действия, фиксируемого в журнале аудита
type Action string

// Известные действия журнала аудита
const (
	ActionLoginSuccess   Action = "LOGIN_SUCCESS"
	ActionLoginFailed    Action = "LOGIN_FAILED"
	ActionLogout         Action = "LOGOUT"
	ActionSaleCreate     Action = "SALE_CREATE"
	ActionSaleModify     Action = "SALE_MODIFY"
	ActionSaleVoid       Action = "SALE_VOID"
	ActionLedgerEntry    Action = "LEDGER_ENTRY"
	ActionProductCreate  Action = "PRODUCT_CREATE"
	ActionProductModify  Action = "PRODUCT_MODIFY"
	ActionProductDelete  Action = "PRODUCT_DELETE"
	ActionShiftStart     Action = "SHIFT_START"
	ActionShiftEnd       Action = "SHIFT_END"
	ActionCashDrawerOpen Action = "CASH_DRAWER_OPEN"
	ActionDataExport     Action = "DATA_EXPORT"
	ActionSettingsChange Action = "SETTINGS_CHANGE"
	ActionAuditCleanup   Action = "AUDIT_CLEANUP"
	ActionMilkIntake     Action = "MILK_INTAKE"
	ActionFarmerRegister Action = "FARMER_REGISTER"
)

// DeviceAction формирует действие для аппаратного события: DEVICE_<VERB>.
func DeviceAction(verb string) Action {
	return Action("DEVICE_" + strings.ToUpper(strings.TrimSpace(verb)))
}

// AuditEntry представляет одну запись хеш-цепочки журнала аудита.
// Все поля, кроме Synced и SyncedAt, неизменяемы после создания записи.
type AuditEntry struct {
	Data         map[string]any `json:"data"`         // Data произвольные данные события
	SyncedAt     *time.Time     `json:"syncedAt"`     // SyncedAt время подтверждения сервером
	ID           string         `json:"id"`           // ID уникальный идентификатор записи
	Timestamp    string         `json:"timestamp"`    // Timestamp время создания в формате TimestampLayout (UTC)
	SessionID    string         `json:"sessionId"`    // SessionID идентификатор сессии процесса
	MachineID    string         `json:"machineId"`    // MachineID идентификатор устройства
	UserID       string         `json:"userId"`       // UserID оператор, совершивший действие
	UserAgent    string         `json:"userAgent"`    // UserAgent идентификатор сборки клиента
	Action       Action         `json:"action"`       // Action тип действия
	EntityType   string         `json:"entityType"`   // EntityType тип затронутой сущности
	EntityID     string         `json:"entityId"`     // EntityID идентификатор затронутой сущности
	Notes        string         `json:"notes"`        // Notes комментарий оператора
	PreviousHash string         `json:"previousHash"` // PreviousHash хеш предыдущей записи ("" для первой)
	Hash         string         `json:"hash"`         // Hash хеш содержимого записи
	Signature    string         `json:"signature"`    // Signature HMAC подпись sessionId|timestamp|action|entityId
	Synced       bool           `json:"synced"`       // Synced подтверждена ли запись сервером
}

// RecordID возвращает ключ записи в хранилище
func (e *AuditEntry) RecordID() string {
	return e.ID
}

// Time разбирает временную метку записи
func (e *AuditEntry) Time() (time.Time, error) {
	return time.Parse(TimestampLayout, e.Timestamp)
}

// Clone возвращает копию записи. Data копируется поверхностно.
func (e *AuditEntry) Clone() *AuditEntry {
	c := *e
	if e.Data != nil {
		c.Data = make(map[string]any, len(e.Data))
		for k, v := range e.Data {
			c.Data[k] = v
		}
	}
	if e.SyncedAt != nil {
		t := *e.SyncedAt
		c.SyncedAt = &t
	}
	return &c
}

// Checkpoint фиксирует результат удаления старых записей из цепочки.
// Верификатор начинает проверку с LastPrunedHash, если подпись чекпоинта верна.
type Checkpoint struct {
	ID                  string `json:"id"`                  // ID всегда CheckpointID
	LastPrunedHash      string `json:"lastPrunedHash"`      // LastPrunedHash хеш последней удаленной записи
	LastPrunedTimestamp string `json:"lastPrunedTimestamp"` // LastPrunedTimestamp время последней удаленной записи
	FirstRetainedID     string `json:"firstRetainedId"`     // FirstRetainedID первая сохраненная запись ("" если не осталось)
	CreatedAt           string `json:"createdAt"`           // CreatedAt время создания чекпоинта
	Signature           string `json:"signature"`           // Signature HMAC подпись полей чекпоинта
	PrunedCount         int    `json:"prunedCount"`         // PrunedCount общее число удаленных записей
}

// CheckpointID ключ чекпоинта в коллекции метаданных журнала
const CheckpointID = "checkpoint"

// RecordID возвращает ключ записи в хранилище
func (c *Checkpoint) RecordID() string {
	return c.ID
}

// MachineIdentity хранит постоянный идентификатор устройства
type MachineIdentity struct {
	ID        string    `json:"id"`
	MachineID string    `json:"machineId"`
	CreatedAt time.Time `json:"createdAt"`
}

// MachineIdentityID ключ идентификатора устройства в коллекции метаданных журнала
const MachineIdentityID = "machine"

// RecordID возвращает ключ записи в хранилище
func (m *MachineIdentity) RecordID() string {
	return m.ID
}
