package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/mkarpoff/entsync/internal/models"
	syncengine "github.com/mkarpoff/entsync/internal/sync"
	"github.com/mkarpoff/entsync/pkg/api"
)

// BatchPusher определяет интерфейс движка push-синхронизации
type BatchPusher interface {
	PushBatch(ctx context.Context, subs []*models.ClientSubmission, actor string) (*models.PushResult, error)
}

// PushHandler handles push synchronization requests
type PushHandler struct {
	logger      *slog.Logger
	coordinator BatchPusher
}

// NewPushHandler creates a new push handler
func NewPushHandler(logger *slog.Logger, coordinator BatchPusher) *PushHandler {
	return &PushHandler{
		logger:      logger,
		coordinator: coordinator,
	}
}

// HandlePush обрабатывает POST /sync/push.
// Возвращает 200 если конфликтов нет и 409, если хотя бы одна сущность
// требует ручного разрешения — независимо от числа успешных применений.
func (h *PushHandler) HandlePush(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method != http.MethodPost {
		sendError(h.logger, w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Актор установлен auth middleware
	actor, ok := GetActor(ctx)
	if !ok {
		h.logger.ErrorContext(ctx, "actor not found in context")
		sendError(h.logger, w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req api.PushRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode push request", slog.Any("error", err))
		sendError(h.logger, w, "invalid request body", http.StatusBadRequest)
		return
	}

	if len(req.Entities) == 0 {
		sendError(h.logger, w, "entities must not be empty", http.StatusBadRequest)
		return
	}

	subs, err := toSubmissions(req)
	if err != nil {
		h.logger.WarnContext(ctx, "malformed push payload", slog.Any("error", err))
		sendError(h.logger, w, "invalid request body", http.StatusBadRequest)
		return
	}

	h.logger.InfoContext(ctx, "push request",
		slog.String("actor", actor),
		slog.String("device_id", req.DeviceID),
		slog.Int("entities_count", len(subs)))

	result, err := h.coordinator.PushBatch(ctx, subs, actor)
	if err != nil {
		if errors.Is(err, syncengine.ErrEmptyBatch) {
			sendError(h.logger, w, "entities must not be empty", http.StatusBadRequest)
			return
		}
		h.logger.ErrorContext(ctx, "push batch failed", slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	status := http.StatusOK
	if result.HasConflicts() {
		status = http.StatusConflict
	}

	sendJSON(h.logger, w, toPushResponse(result), status)
}

// toSubmissions converts the wire payload into engine submissions
func toSubmissions(req api.PushRequest) ([]*models.ClientSubmission, error) {
	subs := make([]*models.ClientSubmission, 0, len(req.Entities))

	for _, payload := range req.Entities {
		fields, err := models.Fields(payload.Fields).Normalize()
		if err != nil {
			return nil, err
		}

		deviceID := payload.DeviceID
		if deviceID == "" {
			deviceID = req.DeviceID
		}

		subs = append(subs, &models.ClientSubmission{
			ID:                   payload.ID,
			EntityType:           payload.EntityType,
			ClientVersion:        payload.Version,
			ClientLocalUpdatedAt: payload.LocalUpdatedAt,
			DeviceID:             deviceID,
			Fields:               fields,
		})
	}

	return subs, nil
}

// toPushResponse converts the engine result into the wire response
func toPushResponse(result *models.PushResult) api.PushResponse {
	resp := api.PushResponse{
		Success:   make([]api.Entity, 0, len(result.Success)),
		Conflicts: make([]api.Conflict, 0, len(result.Conflicts)),
		Errors:    make([]api.EntityError, 0, len(result.Errors)),
	}

	for _, entity := range result.Success {
		resp.Success = append(resp.Success, toAPIEntity(entity))
	}

	for _, conflict := range result.Conflicts {
		server := toAPIEntity(conflict.ServerSnapshot)
		local := toAPIEntity(conflict.ClientSnapshot)
		resp.Conflicts = append(resp.Conflicts, api.Conflict{
			EntityID:          conflict.EntityID,
			EntityType:        conflict.EntityType,
			LocalVersion:      conflict.LocalVersion,
			ServerVersion:     conflict.ServerVersion,
			ConflictingFields: conflict.ConflictingFields,
			ServerEntity:      &server,
			LocalEntity:       &local,
		})
	}

	for _, entityErr := range result.Errors {
		resp.Errors = append(resp.Errors, api.EntityError{
			EntityID: entityErr.EntityID,
			Error:    entityErr.Err,
		})
	}

	return resp
}

// toAPIEntity converts a server entity to its wire representation
func toAPIEntity(entity *models.VersionedEntity) api.Entity {
	if entity == nil {
		return api.Entity{}
	}
	return api.Entity{
		ID:         entity.ID,
		EntityType: entity.EntityType,
		Version:    entity.Version,
		Fields:     entity.Fields,
		CreatedAt:  entity.CreatedAt,
		CreatedBy:  entity.CreatedBy,
		UpdatedAt:  entity.UpdatedAt,
		UpdatedBy:  entity.UpdatedBy,
	}
}
