// Package api содержит типы запросов и ответов HTTP API сервера журнала.
package api

import (
	"encoding/json"
	"time"

	"github.com/iudanet/milkledger/internal/models"
)

// Статусы обработки отдельного элемента пакета
const (
	StatusAccepted  = "accepted"  // элемент сохранен
	StatusDuplicate = "duplicate" // элемент с таким id уже был сохранен
	StatusRejected  = "rejected"  // элемент отклонен, повтор не поможет
)

// PushAuditRequest пакет записей журнала от устройства
type PushAuditRequest struct {
	Logs []*models.AuditEntry `json:"logs"`
}

// Record запись сущности, доставляемая через очередь синхронизации
type Record struct {
	Data       json.RawMessage `json:"data"`
	ID         string          `json:"id"`         // ID идентификатор элемента очереди
	Operation  string          `json:"operation"`  // Operation create/update/delete
	EntityType string          `json:"entityType"` // EntityType тип сущности
	EntityID   string          `json:"entityId"`   // EntityID идентификатор сущности
}

// PushRecordsRequest пакет записей сущностей от устройства
type PushRecordsRequest struct {
	Records []Record `json:"records"`
}

// ItemResult результат обработки одного элемента пакета
type ItemResult struct {
	ID     string `json:"id"`
	Status string `json:"status"`          // Status accepted, duplicate или rejected
	Error  string `json:"error,omitempty"` // Error причина отказа
}

// PushResponse ответ сервера на пакет
type PushResponse struct {
	Results []ItemResult `json:"results"`
	Success bool         `json:"success"`
}

// AuditLogsResponse ответ на запрос записей журнала
type AuditLogsResponse struct {
	Logs  []*models.AuditEntry `json:"logs"`
	Count int                  `json:"count"`
}

// HealthResponse ответ проверки работоспособности
type HealthResponse struct {
	Time   time.Time `json:"time"`
	Status string    `json:"status"`
}

// ErrorResponse представляет ответ с ошибкой
type ErrorResponse struct {
	Error   string `json:"error"`             // описание ошибки
	Message string `json:"message,omitempty"` // дополнительное сообщение
}
