package models

import (
	"encoding/json"
	"strings"
	"time"
)

// Priority приоритет элемента очереди синхронизации
type Priority string

// Приоритеты очереди синхронизации
const (
	PriorityCritical Priority = "critical" // продажи, платежи
	PriorityHigh     Priority = "high"     // записи реестра, приемка молока
	PriorityNormal   Priority = "normal"   // справочники
	PriorityLow      Priority = "low"      // журнал аудита, настройки
)

// Rank возвращает порядковый номер приоритета: меньше значит срочнее.
// Неизвестный приоритет считается normal.
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 0
	case PriorityHigh:
		return 1
	case PriorityNormal:
		return 2
	case PriorityLow:
		return 3
	default:
		return 2
	}
}

// Urgent сообщает, требует ли приоритет немедленной синхронизации
func (p Priority) Urgent() bool {
	return p.Rank() <= PriorityHigh.Rank()
}

// ParsePriority приводит строку к известному приоритету, иначе normal
func ParsePriority(s string) Priority {
	p := Priority(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case PriorityCritical, PriorityHigh, PriorityNormal, PriorityLow:
		return p
	default:
		return PriorityNormal
	}
}

// QueueStatus состояние элемента очереди синхронизации
type QueueStatus string

// Состояния элемента очереди
const (
	QueueStatusPending QueueStatus = "pending"
	QueueStatusSyncing QueueStatus = "syncing"
	QueueStatusSynced  QueueStatus = "synced"
	QueueStatusFailed  QueueStatus = "failed"
	QueueStatusDead    QueueStatus = "dead" // исчерпан лимит попыток, требуется ручной requeue
)

// Операции очереди синхронизации
const (
	OperationCreate = "create"
	OperationUpdate = "update"
	OperationDelete = "delete"
	// OperationAuditAppend добавление записи журнала аудита
	OperationAuditAppend = "audit_append"
)

// EntityTypeAuditLog тип сущности для записей журнала в очереди
const EntityTypeAuditLog = "audit_log"

// SyncQueueItem элемент очереди синхронизации.
// Payload содержит снимок данных на момент постановки в очередь.
type SyncQueueItem struct {
	CreatedAt  time.Time       `json:"createdAt"`  // CreatedAt время постановки в очередь
	UpdatedAt  time.Time       `json:"updatedAt"`  // UpdatedAt время последнего изменения статуса
	ID         string          `json:"id"`         // ID уникальный идентификатор элемента (UUID)
	Operation  string          `json:"operation"`  // Operation create/update/delete/audit_append
	EntityType string          `json:"entityType"` // EntityType коллекция сущности
	EntityID   string          `json:"entityId"`   // EntityID идентификатор сущности
	Priority   Priority        `json:"priority"`   // Priority приоритет отправки
	Status     QueueStatus     `json:"status"`     // Status текущее состояние
	LastError  string          `json:"lastError"`  // LastError текст последней ошибки
	Payload    json.RawMessage `json:"payload"`    // Payload снимок данных
	RetryCount int             `json:"retryCount"` // RetryCount число неудачных попыток
}

// RecordID возвращает ключ записи в хранилище
func (i *SyncQueueItem) RecordID() string {
	return i.ID
}

// Less задает порядок отправки: приоритет, затем время постановки, затем ID
func (i *SyncQueueItem) Less(other *SyncQueueItem) bool {
	if ri, ro := i.Priority.Rank(), other.Priority.Rank(); ri != ro {
		return ri < ro
	}
	if !i.CreatedAt.Equal(other.CreatedAt) {
		return i.CreatedAt.Before(other.CreatedAt)
	}
	return i.ID < other.ID
}

// QueueStats сводка по состояниям очереди
type QueueStats struct {
	ByStatus   map[QueueStatus]int `json:"byStatus"`
	ByPriority map[Priority]int    `json:"byPriority"`
	Total      int                 `json:"total"`
}
