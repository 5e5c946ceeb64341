package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/iudanet/milkledger/internal/auth"
	"github.com/iudanet/milkledger/internal/crypto"
	"github.com/iudanet/milkledger/internal/models"
	"github.com/iudanet/milkledger/internal/server/storage"
	"github.com/iudanet/milkledger/internal/telemetry"
	"github.com/iudanet/milkledger/pkg/api"
)

// maxListLimit верхняя граница выдачи GET /api/v1/audit-logs
const maxListLimit = 1000

// AuditStorage определяет интерфейс для работы с принятыми записями журнала
type AuditStorage interface {
	SaveAuditEntry(ctx context.Context, entry *models.AuditEntry, receivedAt time.Time) (bool, error)
	ListAuditEntries(ctx context.Context, filter storage.AuditFilter) ([]*models.AuditEntry, error)
}

// AuditHandler принимает и выдает записи журнала аудита
type AuditHandler struct {
	logger       *slog.Logger
	storage      AuditStorage
	now          func() time.Time
	maxBatch     int
	verifyHashes bool
}

// NewAuditHandler создает handler журнала.
// verifyHashes включает пересчет хеша каждой принятой записи.
func NewAuditHandler(logger *slog.Logger, storage AuditStorage, maxBatch int, verifyHashes bool) *AuditHandler {
	return &AuditHandler{
		logger:       logger,
		storage:      storage,
		now:          time.Now,
		maxBatch:     maxBatch,
		verifyHashes: verifyHashes,
	}
}

// PushAuditLogs обрабатывает POST /api/v1/audit-logs.
//
// Каждая запись обрабатывается отдельно: accepted, duplicate (уже была
// принята) или rejected. Ошибка хранилища прерывает пакет с 500, клиент
// повторит отправку, и уже сохраненные записи вернутся как duplicate.
func (h *AuditHandler) PushAuditLogs(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, h.logger, http.StatusUnauthorized, "unauthorized", "")
		return
	}

	var req api.PushAuditRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.logger.Warn("Failed to decode audit push", slog.String("device_id", claims.DeviceID), slog.Any("error", err))
		writeError(w, h.logger, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if len(req.Logs) == 0 {
		writeError(w, h.logger, http.StatusBadRequest, "empty batch", "")
		return
	}
	if h.maxBatch > 0 && len(req.Logs) > h.maxBatch {
		writeError(w, h.logger, http.StatusRequestEntityTooLarge, "batch too large",
			fmt.Sprintf("%d entries, limit %d", len(req.Logs), h.maxBatch))
		return
	}

	receivedAt := h.now()
	resp := api.PushResponse{
		Results: make([]api.ItemResult, 0, len(req.Logs)),
		Success: true,
	}

	for _, entry := range req.Logs {
		result := api.ItemResult{Status: api.StatusAccepted}
		if entry != nil {
			result.ID = entry.ID
		}

		if err := h.validateEntry(entry, claims.DeviceID); err != nil {
			result.Status = api.StatusRejected
			result.Error = err.Error()
			resp.Success = false
			h.logger.Warn("Audit entry rejected",
				slog.String("device_id", claims.DeviceID),
				slog.String("entry_id", result.ID),
				slog.String("reason", result.Error))
		} else {
			saved, err := h.storage.SaveAuditEntry(r.Context(), entry, receivedAt)
			if err != nil {
				h.logger.Error("Failed to save audit entry",
					slog.String("entry_id", entry.ID),
					slog.Any("error", err))
				writeError(w, h.logger, http.StatusInternalServerError, "failed to save audit entry", "")
				return
			}
			if !saved {
				result.Status = api.StatusDuplicate
			}
		}

		telemetry.AuditLogsReceivedTotal.WithLabelValues(result.Status).Inc()
		resp.Results = append(resp.Results, result)
	}

	h.logger.Info("Audit logs received",
		slog.String("device_id", claims.DeviceID),
		slog.Int("count", len(req.Logs)),
		slog.Bool("success", resp.Success))

	writeJSON(w, h.logger, http.StatusOK, resp)
}

// validateEntry проверяет запись перед сохранением
func (h *AuditHandler) validateEntry(entry *models.AuditEntry, deviceID string) error {
	switch {
	case entry == nil:
		return fmt.Errorf("empty entry")
	case entry.ID == "":
		return fmt.Errorf("missing id")
	case entry.Action == "" || entry.EntityType == "" || entry.EntityID == "":
		return fmt.Errorf("missing action or entity")
	case !crypto.IsHash(entry.Hash):
		return fmt.Errorf("malformed hash")
	case entry.PreviousHash != "" && !crypto.IsHash(entry.PreviousHash):
		return fmt.Errorf("malformed previous hash")
	case entry.MachineID != deviceID:
		return fmt.Errorf("machine id does not match device token")
	}

	if h.verifyHashes {
		hash, err := crypto.EntryHash(entry)
		if err != nil {
			return fmt.Errorf("cannot hash entry: %w", err)
		}
		if hash != entry.Hash {
			return fmt.Errorf("hash mismatch")
		}
	}

	return nil
}

// ListAuditLogs обрабатывает GET /api/v1/audit-logs?entity_type=&entity_id=&machine_id=&limit=
// Возвращает записи от новых к старым.
func (h *AuditHandler) ListAuditLogs(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.ClaimsFromContext(r.Context()); !ok {
		writeError(w, h.logger, http.StatusUnauthorized, "unauthorized", "")
		return
	}

	q := r.URL.Query()
	filter := storage.AuditFilter{
		MachineID:  q.Get("machine_id"),
		EntityType: q.Get("entity_type"),
		EntityID:   q.Get("entity_id"),
	}

	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			writeError(w, h.logger, http.StatusBadRequest, "invalid limit", raw)
			return
		}
		filter.Limit = min(limit, maxListLimit)
	}

	entries, err := h.storage.ListAuditEntries(r.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list audit entries", slog.Any("error", err))
		writeError(w, h.logger, http.StatusInternalServerError, "failed to list audit entries", "")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, api.AuditLogsResponse{Logs: entries, Count: len(entries)})
}
