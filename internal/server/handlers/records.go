package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/iudanet/milkledger/internal/auth"
	"github.com/iudanet/milkledger/internal/models"
	"github.com/iudanet/milkledger/internal/server/storage"
	"github.com/iudanet/milkledger/internal/telemetry"
	"github.com/iudanet/milkledger/pkg/api"
)

// RecordStorage определяет интерфейс сохранения записей сущностей
type RecordStorage interface {
	SaveRecord(ctx context.Context, record *storage.Record) (bool, error)
}

// RecordHandler принимает записи сущностей из очереди синхронизации
type RecordHandler struct {
	logger   *slog.Logger
	storage  RecordStorage
	now      func() time.Time
	maxBatch int
}

// NewRecordHandler создает handler записей
func NewRecordHandler(logger *slog.Logger, storage RecordStorage, maxBatch int) *RecordHandler {
	return &RecordHandler{
		logger:   logger,
		storage:  storage,
		now:      time.Now,
		maxBatch: maxBatch,
	}
}

// PushRecords обрабатывает POST /api/v1/records
func (h *RecordHandler) PushRecords(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, h.logger, http.StatusUnauthorized, "unauthorized", "")
		return
	}

	var req api.PushRecordsRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if len(req.Records) == 0 {
		writeError(w, h.logger, http.StatusBadRequest, "empty batch", "")
		return
	}
	if h.maxBatch > 0 && len(req.Records) > h.maxBatch {
		writeError(w, h.logger, http.StatusRequestEntityTooLarge, "batch too large",
			fmt.Sprintf("%d records, limit %d", len(req.Records), h.maxBatch))
		return
	}

	receivedAt := h.now()
	resp := api.PushResponse{
		Results: make([]api.ItemResult, 0, len(req.Records)),
		Success: true,
	}

	for _, rec := range req.Records {
		result := api.ItemResult{ID: rec.ID, Status: api.StatusAccepted}

		if err := validateRecord(rec); err != nil {
			result.Status = api.StatusRejected
			result.Error = err.Error()
			resp.Success = false
		} else {
			saved, err := h.storage.SaveRecord(r.Context(), &storage.Record{
				ID:         rec.ID,
				DeviceID:   claims.DeviceID,
				Operation:  rec.Operation,
				EntityType: rec.EntityType,
				EntityID:   rec.EntityID,
				Data:       rec.Data,
				ReceivedAt: receivedAt,
			})
			if err != nil {
				h.logger.Error("Failed to save record",
					slog.String("record_id", rec.ID),
					slog.Any("error", err))
				writeError(w, h.logger, http.StatusInternalServerError, "failed to save record", "")
				return
			}
			if !saved {
				result.Status = api.StatusDuplicate
			}
		}

		telemetry.RecordsReceivedTotal.WithLabelValues(result.Status).Inc()
		resp.Results = append(resp.Results, result)
	}

	h.logger.Info("Records received",
		slog.String("device_id", claims.DeviceID),
		slog.Int("count", len(req.Records)),
		slog.Bool("success", resp.Success))

	writeJSON(w, h.logger, http.StatusOK, resp)
}

func validateRecord(rec api.Record) error {
	switch {
	case rec.ID == "":
		return fmt.Errorf("missing id")
	case rec.EntityType == "":
		return fmt.Errorf("missing entity type")
	}

	switch rec.Operation {
	case models.OperationCreate, models.OperationUpdate, models.OperationDelete:
		return nil
	default:
		return fmt.Errorf("unknown operation %q", rec.Operation)
	}
}
