package storage

import (
	"context"

	"github.com/mkarpoff/entsync/internal/models"
)

// EntityStore определяет контракт версионированного хранилища сущностей.
// Это единственный разделяемый мутируемый ресурс движка синхронизации; вся
// запись проходит через атомарный compare-and-swap по версии.
type EntityStore interface {
	// Get возвращает текущую запись или ErrEntityNotFound
	Get(ctx context.Context, entityType, id string) (*models.VersionedEntity, error)

	// Insert создает запись с version=1 или возвращает ErrEntityExists,
	// если запись уже была создана конкурентным писателем
	Insert(ctx context.Context, entityType, id string, fields models.Fields, actor string) (*models.VersionedEntity, error)

	// CompareAndSwapUpdate atomically applies fields and bumps the version
	// by exactly 1, but only when the stored version still equals
	// expectedVersion. ok=false means the version has already advanced.
	CompareAndSwapUpdate(
		ctx context.Context,
		entityType, id string,
		expectedVersion int64,
		fields models.Fields,
		actor string,
	) (*models.VersionedEntity, bool, error)
}
