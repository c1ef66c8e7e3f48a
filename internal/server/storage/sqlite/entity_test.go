package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkarpoff/entsync/internal/models"
	"github.com/mkarpoff/entsync/internal/server/storage"
)

func setupTestStorage(t *testing.T) *Storage {
	t.Helper()

	s, err := New(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return s
}

func TestStorage_Get_NotFound(t *testing.T) {
	s := setupTestStorage(t)

	_, err := s.Get(context.Background(), "dossier", "missing")
	assert.ErrorIs(t, err, storage.ErrEntityNotFound)
}

func TestStorage_InsertAndGet(t *testing.T) {
	s := setupTestStorage(t)
	ctx := context.Background()

	fields := models.Fields{
		"title":   "Trade talks",
		"status":  "draft",
		"contact": map[string]any{"name": "A", "phone": "1"},
	}

	inserted, err := s.Insert(ctx, "dossier", "e1", fields, "alice")
	require.NoError(t, err)

	assert.Equal(t, int64(1), inserted.Version)
	assert.Equal(t, "alice", inserted.CreatedBy)
	assert.Equal(t, "alice", inserted.UpdatedBy)

	got, err := s.Get(ctx, "dossier", "e1")
	require.NoError(t, err)

	assert.Equal(t, "e1", got.ID)
	assert.Equal(t, "dossier", got.EntityType)
	assert.Equal(t, int64(1), got.Version)

	// Поля проходят через JSON round-trip без потерь
	assert.Empty(t, got.Fields.Diff(fields))
	assert.False(t, got.CreatedAt.IsZero())
	assert.False(t, got.UpdatedAt.IsZero())
}

func TestStorage_Insert_Duplicate(t *testing.T) {
	s := setupTestStorage(t)
	ctx := context.Background()

	_, err := s.Insert(ctx, "dossier", "e1", models.Fields{"title": "A"}, "alice")
	require.NoError(t, err)

	_, err = s.Insert(ctx, "dossier", "e1", models.Fields{"title": "B"}, "bob")
	assert.ErrorIs(t, err, storage.ErrEntityExists)

	// Первая запись не перезаписана
	got, err := s.Get(ctx, "dossier", "e1")
	require.NoError(t, err)
	assert.Equal(t, "A", got.Fields["title"])
	assert.Equal(t, "alice", got.CreatedBy)
}

func TestStorage_Insert_SameIDDifferentType(t *testing.T) {
	s := setupTestStorage(t)
	ctx := context.Background()

	// Составной ключ: (entity_type, id)
	_, err := s.Insert(ctx, "dossier", "e1", models.Fields{"title": "A"}, "alice")
	require.NoError(t, err)

	_, err = s.Insert(ctx, "position", "e1", models.Fields{"topic": "trade"}, "alice")
	require.NoError(t, err)
}

func TestStorage_CompareAndSwapUpdate_Success(t *testing.T) {
	s := setupTestStorage(t)
	ctx := context.Background()

	_, err := s.Insert(ctx, "dossier", "e1", models.Fields{"title": "A", "status": "draft"}, "alice")
	require.NoError(t, err)

	updated, ok, err := s.CompareAndSwapUpdate(ctx, "dossier", "e1", 1,
		models.Fields{"title": "B", "status": "draft"}, "bob")
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, int64(2), updated.Version)
	assert.Equal(t, "B", updated.Fields["title"])
	assert.Equal(t, "bob", updated.UpdatedBy)
	assert.Equal(t, "alice", updated.CreatedBy)
}

func TestStorage_CompareAndSwapUpdate_VersionMismatch(t *testing.T) {
	s := setupTestStorage(t)
	ctx := context.Background()

	_, err := s.Insert(ctx, "dossier", "e1", models.Fields{"title": "A"}, "alice")
	require.NoError(t, err)

	entity, ok, err := s.CompareAndSwapUpdate(ctx, "dossier", "e1", 7,
		models.Fields{"title": "B"}, "bob")
	require.NoError(t, err)

	assert.False(t, ok)
	assert.Nil(t, entity)

	// Проигранный swap ничего не меняет
	got, err := s.Get(ctx, "dossier", "e1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Version)
	assert.Equal(t, "A", got.Fields["title"])
}

func TestStorage_CompareAndSwapUpdate_NotFound(t *testing.T) {
	s := setupTestStorage(t)

	_, ok, err := s.CompareAndSwapUpdate(context.Background(), "dossier", "missing", 1,
		models.Fields{"title": "B"}, "bob")

	assert.False(t, ok)
	assert.ErrorIs(t, err, storage.ErrEntityNotFound)
}

func TestStorage_CompareAndSwapUpdate_Sequence(t *testing.T) {
	s := setupTestStorage(t)
	ctx := context.Background()

	_, err := s.Insert(ctx, "commitment", "e1", models.Fields{"count": float64(0)}, "alice")
	require.NoError(t, err)

	// Каждый успешный swap поднимает версию ровно на 1
	for i := int64(1); i <= 5; i++ {
		updated, ok, err := s.CompareAndSwapUpdate(ctx, "commitment", "e1", i,
			models.Fields{"count": float64(i)}, "alice")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, i+1, updated.Version)
	}

	// Повтор со старой версией больше не проходит
	_, ok, err := s.CompareAndSwapUpdate(ctx, "commitment", "e1", 3,
		models.Fields{"count": float64(99)}, "alice")
	require.NoError(t, err)
	assert.False(t, ok)
}
