// Package audit records applied mutations and surfaced conflicts for
// offline inspection. The sink is an optional collaborator of the sync
// engine: failures are logged by the caller and never affect dispositions.
package audit

import (
	"context"

	"github.com/mkarpoff/entsync/internal/models"
)

// Sink определяет интерфейс аудита результатов синхронизации
type Sink interface {
	// RecordApplied записывает успешно примененную мутацию
	RecordApplied(ctx context.Context, actor string, entity *models.VersionedEntity) error

	// RecordConflict записывает конфликт, отданный клиенту на ручное разрешение
	RecordConflict(ctx context.Context, actor string, conflict *models.Conflict) error

	// Close releases sink resources
	Close() error
}

// NopSink discards all records; the default when auditing is disabled
type NopSink struct{}

func (NopSink) RecordApplied(context.Context, string, *models.VersionedEntity) error { return nil }
func (NopSink) RecordConflict(context.Context, string, *models.Conflict) error      { return nil }
func (NopSink) Close() error                                                        { return nil }
