package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	"github.com/mkarpoff/entsync/internal/models"
)

var (
	// BoltDB bucket names
	bucketApplied   = []byte("applied")
	bucketConflicts = []byte("conflicts")
)

// BoltSink represents a BoltDB-backed audit sink
type BoltSink struct {
	db *bbolt.DB
}

// appliedRecord — запись аудита об успешной мутации
type appliedRecord struct {
	RecordedAt time.Time `json:"recorded_at"`
	Actor      string    `json:"actor"`
	EntityID   string    `json:"entity_id"`
	EntityType string    `json:"entity_type"`
	Version    int64     `json:"version"`
}

// conflictRecord — запись аудита о конфликте, отданном на ручное разрешение
type conflictRecord struct {
	RecordedAt        time.Time `json:"recorded_at"`
	Actor             string    `json:"actor"`
	EntityID          string    `json:"entity_id"`
	EntityType        string    `json:"entity_type"`
	ConflictingFields []string  `json:"conflicting_fields"`
	LocalVersion      int64     `json:"local_version"`
	ServerVersion     int64     `json:"server_version"`
}

// NewBoltSink creates a new BoltDB audit sink
// dbPath is the path to the BoltDB database file
func NewBoltSink(ctx context.Context, dbPath string) (*BoltSink, error) {
	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open boltdb: %w", err)
	}

	sink := &BoltSink{db: db}

	if err := sink.initBuckets(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize buckets: %w", err)
	}

	return sink, nil
}

// Close closes the database connection
func (s *BoltSink) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// initBuckets создает необходимые buckets если они не существуют
func (s *BoltSink) initBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketApplied); err != nil {
			return fmt.Errorf("failed to create applied bucket: %w", err)
		}
		if _, err := tx.CreateBucketIfNotExists(bucketConflicts); err != nil {
			return fmt.Errorf("failed to create conflicts bucket: %w", err)
		}
		return nil
	})
}

// RecordApplied записывает успешно примененную мутацию
func (s *BoltSink) RecordApplied(ctx context.Context, actor string, entity *models.VersionedEntity) error {
	record := appliedRecord{
		RecordedAt: time.Now(),
		Actor:      actor,
		EntityID:   entity.ID,
		EntityType: entity.EntityType,
		Version:    entity.Version,
	}
	return s.put(bucketApplied, record)
}

// RecordConflict записывает конфликт, отданный клиенту на ручное разрешение
func (s *BoltSink) RecordConflict(ctx context.Context, actor string, conflict *models.Conflict) error {
	record := conflictRecord{
		RecordedAt:        time.Now(),
		Actor:             actor,
		EntityID:          conflict.EntityID,
		EntityType:        conflict.EntityType,
		ConflictingFields: conflict.ConflictingFields,
		LocalVersion:      conflict.LocalVersion,
		ServerVersion:     conflict.ServerVersion,
	}
	return s.put(bucketConflicts, record)
}

// put stores a JSON-encoded record under a fresh uuid key
func (s *BoltSink) put(bucket []byte, record any) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal audit record: %w", err)
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return fmt.Errorf("bucket %s not found", bucket)
		}
		return b.Put([]byte(uuid.New().String()), data)
	})
	if err != nil {
		return fmt.Errorf("transaction failed: %w", err)
	}

	return nil
}
