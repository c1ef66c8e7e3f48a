package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// errorResponse представляет JSON-ответ с ошибкой
type errorResponse struct {
	Error string `json:"error"`
}

// sendJSON отправляет JSON-ответ с указанным статусом
func sendJSON(logger *slog.Logger, w http.ResponseWriter, payload any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("failed to encode response", slog.Any("error", err))
	}
}

// sendError отправляет JSON-ответ с сообщением об ошибке
func sendError(logger *slog.Logger, w http.ResponseWriter, message string, status int) {
	sendJSON(logger, w, errorResponse{Error: message}, status)
}
