package models

import "time"

// VersionedEntity представляет серверную запись одного логического объекта.
// Version монотонно растет ровно на 1 при каждой успешной мутации и служит
// единственным токеном оптимистичной конкуренции.
type VersionedEntity struct {
	CreatedAt  time.Time `json:"created_at"`  // CreatedAt время создания записи
	UpdatedAt  time.Time `json:"updated_at"`  // UpdatedAt время последней мутации
	ID         string    `json:"id"`          // ID уникален в пределах EntityType
	EntityType string    `json:"entity_type"` // EntityType выбирает целевую коллекцию: "dossier", "position", "commitment", ...
	CreatedBy  string    `json:"created_by"`  // CreatedBy актор, создавший запись
	UpdatedBy  string    `json:"updated_by"`  // UpdatedBy актор последней мутации
	Fields     Fields    `json:"fields"`      // Fields доменные поля (динамический набор)
	Version    int64     `json:"version"`     // Version строго возрастающая версия записи
}

// Known entity type discriminators used by clients today. The engine itself
// treats EntityType as opaque; these exist for fixtures and callers.
const (
	EntityTypeDossier    = "dossier"
	EntityTypePosition   = "position"
	EntityTypeCommitment = "commitment"
)

// Clone создает глубокую копию записи
func (e *VersionedEntity) Clone() *VersionedEntity {
	if e == nil {
		return nil
	}

	out := *e
	out.Fields = e.Fields.Clone()
	return &out
}

// ClientSubmission представляет то, что клиент отправляет для одного объекта.
// Fields is the client's complete current view of the object's domain
// fields; clients always push full documents, never partial patches.
type ClientSubmission struct {
	ClientLocalUpdatedAt time.Time `json:"local_updated_at"` // ClientLocalUpdatedAt время последней локальной правки на клиенте
	ID                   string    `json:"id"`
	EntityType           string    `json:"entity_type"`
	DeviceID             string    `json:"device_id,omitempty"` // DeviceID опциональный идентификатор устройства
	Fields               Fields    `json:"fields"`
	ClientVersion        int64     `json:"version"` // ClientVersion версия, которую клиент наблюдал последней; 0 означает create
}

// Snapshot builds the client's view of the entity as a VersionedEntity, used
// for caller-side reconciliation UI inside a Conflict.
func (s *ClientSubmission) Snapshot() *VersionedEntity {
	return &VersionedEntity{
		ID:         s.ID,
		EntityType: s.EntityType,
		Version:    s.ClientVersion,
		Fields:     s.Fields.Clone(),
		UpdatedAt:  s.ClientLocalUpdatedAt,
	}
}

// Conflict представляет расхождение между клиентской и серверной версиями.
// Transient: constructed from a version mismatch, returned to the caller,
// never persisted by the engine.
type Conflict struct {
	ServerSnapshot    *VersionedEntity `json:"server_entity"`
	ClientSnapshot    *VersionedEntity `json:"local_entity"`
	EntityID          string           `json:"entity_id"`
	EntityType        string           `json:"entity_type"`
	ConflictingFields []string         `json:"conflicting_fields"` // sorted domain field names; empty means soft conflict
	LocalVersion      int64            `json:"local_version"`
	ServerVersion     int64            `json:"server_version"`
}

// IsSoft reports whether only system fields diverged. Soft conflicts are
// eligible for deterministic automatic resolution.
func (c *Conflict) IsSoft() bool {
	return len(c.ConflictingFields) == 0
}
