package sync

import (
	"context"
	"log/slog"

	"github.com/mkarpoff/entsync/internal/models"
	"github.com/mkarpoff/entsync/internal/server/storage"
)

// Resolver применяет политику разрешения к обнаруженному конфликту.
//
// Soft conflicts resolve deterministically on timestamps; hard conflicts are
// never auto-merged — silently merging divergent free-text or diplomatic
// content risks discarding meaningful human edits, so only pure metadata
// races are reconciled automatically.
type Resolver struct {
	logger *slog.Logger
	store  storage.EntityStore
}

// NewResolver создает новый resolver конфликтов
func NewResolver(logger *slog.Logger, store storage.EntityStore) *Resolver {
	return &Resolver{
		logger: logger,
		store:  store,
	}
}

// Resolve decides the outcome of a detected conflict.
//
// Exactly one of the returns is set:
//   - applied: the conflict was soft and resolved automatically
//   - manual:  the conflict is hard and must be surfaced to the caller
//   - err:     store I/O failed, or errVersionRace if a concurrent writer
//     advanced the version mid-resolution (the coordinator retries once)
func (r *Resolver) Resolve(
	ctx context.Context,
	conflict *models.Conflict,
	sub *models.ClientSubmission,
	server *models.VersionedEntity,
	actor string,
) (applied *models.VersionedEntity, manual *models.Conflict, err error) {
	if !conflict.IsSoft() {
		// Hard conflict: серверная запись остается нетронутой
		return nil, conflict, nil
	}

	// Soft conflict: контент совпадает, разошлись только системные поля.
	// Побеждает более поздняя правка.
	if !server.UpdatedAt.Before(sub.ClientLocalUpdatedAt) {
		r.logger.DebugContext(ctx, "soft conflict resolved, server wins",
			slog.String("entity_type", sub.EntityType),
			slog.String("entity_id", sub.ID),
			slog.Int64("server_version", server.Version))
		// Без записи и без инкремента версии
		return server, nil, nil
	}

	merged := server.Fields.Merge(sub.Fields)

	entity, ok, err := r.store.CompareAndSwapUpdate(ctx, sub.EntityType, sub.ID, server.Version, merged, actor)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, errVersionRace
	}

	r.logger.DebugContext(ctx, "soft conflict resolved, client wins",
		slog.String("entity_type", sub.EntityType),
		slog.String("entity_id", sub.ID),
		slog.Int64("new_version", entity.Version))

	return entity, nil, nil
}
