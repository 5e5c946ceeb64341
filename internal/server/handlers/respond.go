// Package handlers реализует HTTP обработчики сервера журнала.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/iudanet/milkledger/pkg/api"
)

// maxBodyBytes ограничение размера тела запроса
const maxBodyBytes = 8 << 20

// writeJSON пишет ответ в формате JSON с заданным статусом
func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", slog.Any("error", err))
	}
}

// writeError пишет ответ api.ErrorResponse
func writeError(w http.ResponseWriter, logger *slog.Logger, status int, msg, details string) {
	writeJSON(w, logger, status, api.ErrorResponse{Error: msg, Message: details})
}

// decodeBody разбирает JSON тело запроса; числа сохраняются как json.Number
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()
	return dec.Decode(dst)
}
