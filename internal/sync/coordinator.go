package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/errgroup"

	"github.com/mkarpoff/entsync/internal/audit"
	"github.com/mkarpoff/entsync/internal/models"
	"github.com/mkarpoff/entsync/internal/server/storage"
)

// DefaultMaxParallel ограничивает число одновременно обрабатываемых сущностей
const DefaultMaxParallel = 8

// raceRetryDelay is the pause before the single re-detection pass after a
// lost CAS race
const raceRetryDelay = 5 * time.Millisecond

// Coordinator — точка входа движка синхронизации. Разбивает батч на группы
// по ключу сущности, прогоняет каждую отправку через
// detect → resolve → CAS-apply и агрегирует результат.
//
// Distinct entities run in parallel on a bounded pool; all work for one
// entity key stays sequential. Per-entity failures never abort siblings.
type Coordinator struct {
	logger   *slog.Logger
	store    storage.EntityStore
	detector *Detector
	resolver *Resolver
	audit    audit.Sink
	parallel int
}

// NewCoordinator создает новый координатор синхронизации.
// maxParallel <= 0 falls back to DefaultMaxParallel; sink may be nil.
func NewCoordinator(logger *slog.Logger, store storage.EntityStore, sink audit.Sink, maxParallel int) *Coordinator {
	if maxParallel <= 0 {
		maxParallel = DefaultMaxParallel
	}
	if sink == nil {
		sink = audit.NopSink{}
	}

	return &Coordinator{
		logger:   logger,
		store:    store,
		detector: NewDetector(),
		resolver: NewResolver(logger, store),
		audit:    sink,
		parallel: maxParallel,
	}
}

// outcome is the per-submission tagged result; exactly one field is set
type outcome struct {
	entity   *models.VersionedEntity
	conflict *models.Conflict
	err      error
}

// entityKey — составной первичный ключ сущности
type entityKey struct {
	entityType string
	id         string
}

// indexedSubmission keeps the original batch position through the fan-out
type indexedSubmission struct {
	sub   *models.ClientSubmission
	index int
}

// PushBatch обрабатывает батч клиентских отправок от имени actor.
//
// The whole request fails only for a structurally invalid batch
// (ErrEmptyBatch). Otherwise every submission yields exactly one disposition
// in the returned PushResult, in batch order within each bucket.
func (c *Coordinator) PushBatch(
	ctx context.Context,
	subs []*models.ClientSubmission,
	actor string,
) (*models.PushResult, error) {
	if len(subs) == 0 {
		return nil, ErrEmptyBatch
	}

	groups := groupByEntity(subs)

	limit := c.parallel
	if len(groups) < limit {
		limit = len(groups)
	}

	outcomes := make([]outcome, len(subs))

	var g errgroup.Group
	g.SetLimit(limit)

	for _, group := range groups {
		g.Go(func() error {
			// Отправки одной сущности обрабатываются строго последовательно
			for _, item := range group {
				outcomes[item.index] = c.processOne(ctx, item.sub, actor)
			}
			return nil
		})
	}

	// Воркеры не возвращают ошибок: изоляция по сущностям
	_ = g.Wait()

	result := &models.PushResult{
		Success:   []*models.VersionedEntity{},
		Conflicts: []*models.Conflict{},
		Errors:    []models.EntityError{},
	}

	for i, out := range outcomes {
		switch {
		case out.err != nil:
			c.logger.WarnContext(ctx, "submission failed",
				slog.String("entity_id", subs[i].ID),
				slog.String("entity_type", subs[i].EntityType),
				slog.Any("error", out.err))
			result.Errors = append(result.Errors, models.EntityError{
				EntityID: subs[i].ID,
				Err:      out.err.Error(),
			})

		case out.conflict != nil:
			result.Conflicts = append(result.Conflicts, out.conflict)
			c.recordConflict(ctx, actor, out.conflict)

		default:
			result.Success = append(result.Success, out.entity)
			c.recordApplied(ctx, actor, out.entity)
		}
	}

	c.logger.InfoContext(ctx, "push batch processed",
		slog.String("actor", actor),
		slog.Int("submitted", len(subs)),
		slog.Int("success", len(result.Success)),
		slog.Int("conflicts", len(result.Conflicts)),
		slog.Int("errors", len(result.Errors)))

	return result, nil
}

// groupByEntity partitions submissions by (entityType, id), preserving both
// group discovery order and submission order inside each group
func groupByEntity(subs []*models.ClientSubmission) [][]indexedSubmission {
	byKey := make(map[entityKey]int, len(subs))
	var groups [][]indexedSubmission

	for i, sub := range subs {
		key := entityKey{entityType: sub.EntityType, id: sub.ID}
		pos, ok := byKey[key]
		if !ok {
			pos = len(groups)
			byKey[key] = pos
			groups = append(groups, nil)
		}
		groups[pos] = append(groups[pos], indexedSubmission{sub: sub, index: i})
	}

	return groups
}

// processOne drives a single submission to its terminal state
func (c *Coordinator) processOne(ctx context.Context, sub *models.ClientSubmission, actor string) outcome {
	if err := validateSubmission(sub); err != nil {
		return outcome{err: fmt.Errorf("validation: %w", err)}
	}

	// Отмененный запрос: еще не начатую работу не планируем,
	// уже готовые результаты соседей сохраняются в ответе
	if err := ctx.Err(); err != nil {
		return outcome{err: fmt.Errorf("request cancelled: %w", err)}
	}

	var applied *models.VersionedEntity
	var manual *models.Conflict

	// Единственный автоматический повтор: проигранная CAS-гонка приводит к
	// повторной детекции против уже обновленной версии, ровно один раз
	backoff := retry.WithMaxRetries(1, retry.NewConstant(raceRetryDelay))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		applied, manual = nil, nil

		server, err := c.store.Get(ctx, sub.EntityType, sub.ID)
		if err != nil && !errors.Is(err, storage.ErrEntityNotFound) {
			return fmt.Errorf("store get: %w", err)
		}

		if server == nil {
			applied, err = c.applyCreate(ctx, sub, actor)
			return err
		}

		conflict := c.detector.Detect(sub, server)
		if conflict == nil {
			applied, err = c.applyUpdate(ctx, sub, server, actor)
			return err
		}

		applied, manual, err = c.resolver.Resolve(ctx, conflict, sub, server, actor)
		if errors.Is(err, errVersionRace) {
			return retry.RetryableError(err)
		}
		return err
	})

	if err != nil {
		if errors.Is(err, errVersionRace) {
			// Повтор исчерпан: это не ошибка, а конфликт — клиент должен
			// перечитать состояние и повторить с актуальной базой
			return c.raceOutcome(ctx, sub)
		}
		return outcome{err: err}
	}

	return outcome{entity: applied, conflict: manual}
}

// applyCreate inserts a first version for a record the store has never seen
func (c *Coordinator) applyCreate(ctx context.Context, sub *models.ClientSubmission, actor string) (*models.VersionedEntity, error) {
	entity, err := c.store.Insert(ctx, sub.EntityType, sub.ID, sub.Fields, actor)
	if err != nil {
		if errors.Is(err, storage.ErrEntityExists) {
			// Конкурентный create выиграл; повторная детекция решит исход
			return nil, retry.RetryableError(errVersionRace)
		}
		return nil, fmt.Errorf("store insert: %w", err)
	}
	return entity, nil
}

// applyUpdate applies a no-conflict submission at the observed version
func (c *Coordinator) applyUpdate(
	ctx context.Context,
	sub *models.ClientSubmission,
	server *models.VersionedEntity,
	actor string,
) (*models.VersionedEntity, error) {
	entity, ok, err := c.store.CompareAndSwapUpdate(ctx, sub.EntityType, sub.ID, server.Version, sub.Fields, actor)
	if err != nil {
		return nil, fmt.Errorf("store cas: %w", err)
	}
	if !ok {
		return nil, retry.RetryableError(errVersionRace)
	}
	return entity, nil
}

// raceOutcome reclassifies an exhausted CAS retry as a conflict against the
// freshest stored state the coordinator can observe
func (c *Coordinator) raceOutcome(ctx context.Context, sub *models.ClientSubmission) outcome {
	server, err := c.store.Get(ctx, sub.EntityType, sub.ID)
	if err != nil {
		return outcome{err: fmt.Errorf("store get after version race: %w", err)}
	}

	if conflict := c.detector.Detect(sub, server); conflict != nil {
		return outcome{conflict: conflict}
	}

	// Версии успели сравняться под нами; все равно поднимаем конфликт,
	// чтобы клиент перечитал состояние
	return outcome{conflict: &models.Conflict{
		EntityID:          sub.ID,
		EntityType:        sub.EntityType,
		LocalVersion:      sub.ClientVersion,
		ServerVersion:     server.Version,
		ConflictingFields: server.Fields.Diff(sub.Fields),
		ServerSnapshot:    server.Clone(),
		ClientSnapshot:    sub.Snapshot(),
	}}
}

// validateSubmission rejects malformed submissions before detection runs
func validateSubmission(sub *models.ClientSubmission) error {
	if sub.ID == "" {
		return ErrMissingEntityID
	}
	if sub.EntityType == "" {
		return ErrMissingEntityType
	}
	if sub.ClientVersion < 0 {
		return ErrNegativeVersion
	}
	return nil
}

// recordApplied records an applied mutation in the audit sink, best-effort
func (c *Coordinator) recordApplied(ctx context.Context, actor string, entity *models.VersionedEntity) {
	if err := c.audit.RecordApplied(ctx, actor, entity); err != nil {
		c.logger.WarnContext(ctx, "audit sink failed for applied entity",
			slog.String("entity_id", entity.ID),
			slog.Any("error", err))
	}
}

// recordConflict records a surfaced conflict in the audit sink, best-effort
func (c *Coordinator) recordConflict(ctx context.Context, actor string, conflict *models.Conflict) {
	if err := c.audit.RecordConflict(ctx, actor, conflict); err != nil {
		c.logger.WarnContext(ctx, "audit sink failed for conflict",
			slog.String("entity_id", conflict.EntityID),
			slog.Any("error", err))
	}
}
