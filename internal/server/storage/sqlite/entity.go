package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mkarpoff/entsync/internal/models"
	"github.com/mkarpoff/entsync/internal/server/storage"
)

// Get retrieves the current record for (entityType, id)
// Returns storage.ErrEntityNotFound if no record exists
func (s *Storage) Get(ctx context.Context, entityType, id string) (*models.VersionedEntity, error) {
	query := `
		SELECT entity_type, id, version, fields,
		       created_at, created_by, updated_at, updated_by
		FROM entities
		WHERE entity_type = ? AND id = ?
	`

	return s.scanEntity(s.db.QueryRowContext(ctx, query, entityType, id))
}

// Insert creates a new record with version=1.
// Returns storage.ErrEntityExists if the record was already created,
// including by a concurrent writer: INSERT OR IGNORE keeps the check and the
// write atomic, so the caller can re-run detection instead of overwriting.
func (s *Storage) Insert(
	ctx context.Context,
	entityType, id string,
	fields models.Fields,
	actor string,
) (*models.VersionedEntity, error) {
	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal fields: %w", err)
	}

	now := time.Now().Unix()

	query := `
		INSERT OR IGNORE INTO entities (
			entity_type, id, version, fields,
			created_at, created_by, updated_at, updated_by
		) VALUES (?, ?, 1, ?, ?, ?, ?, ?)
	`

	result, err := s.db.ExecContext(ctx, query,
		entityType,
		id,
		string(raw),
		now,
		actor,
		now,
		actor,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert entity: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return nil, storage.ErrEntityExists
	}

	return s.Get(ctx, entityType, id)
}

// CompareAndSwapUpdate applies fields and bumps the version by exactly 1,
// but only when the stored version still equals expectedVersion. The version
// predicate in the WHERE clause is what makes the swap atomic; no lock is
// held across the read that follows.
func (s *Storage) CompareAndSwapUpdate(
	ctx context.Context,
	entityType, id string,
	expectedVersion int64,
	fields models.Fields,
	actor string,
) (*models.VersionedEntity, bool, error) {
	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, false, fmt.Errorf("failed to marshal fields: %w", err)
	}

	query := `
		UPDATE entities
		SET fields = ?, version = version + 1, updated_at = ?, updated_by = ?
		WHERE entity_type = ? AND id = ? AND version = ?
	`

	result, err := s.db.ExecContext(ctx, query,
		string(raw),
		time.Now().Unix(),
		actor,
		entityType,
		id,
		expectedVersion,
	)
	if err != nil {
		return nil, false, fmt.Errorf("failed to update entity: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		// Либо записи нет, либо версия уже ушла вперед
		if _, err := s.Get(ctx, entityType, id); err != nil {
			if errors.Is(err, storage.ErrEntityNotFound) {
				return nil, false, storage.ErrEntityNotFound
			}
			return nil, false, err
		}
		return nil, false, nil
	}

	entity, err := s.Get(ctx, entityType, id)
	if err != nil {
		return nil, false, err
	}

	return entity, true, nil
}

// scanEntity scans a single row into a VersionedEntity
func (s *Storage) scanEntity(row *sql.Row) (*models.VersionedEntity, error) {
	entity := &models.VersionedEntity{}
	var rawFields string
	var createdAt, updatedAt int64

	err := row.Scan(
		&entity.EntityType,
		&entity.ID,
		&entity.Version,
		&rawFields,
		&createdAt,
		&entity.CreatedBy,
		&updatedAt,
		&entity.UpdatedBy,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrEntityNotFound
		}
		return nil, fmt.Errorf("failed to get entity: %w", err)
	}

	if err := json.Unmarshal([]byte(rawFields), &entity.Fields); err != nil {
		return nil, fmt.Errorf("failed to unmarshal fields: %w", err)
	}

	entity.CreatedAt = time.Unix(createdAt, 0)
	entity.UpdatedAt = time.Unix(updatedAt, 0)

	return entity, nil
}
