package sync

import "github.com/mkarpoff/entsync/internal/models"

// Detector классифицирует расхождение между клиентской и серверной версиями.
// Pure comparison, no side effects: calling Detect twice with the same inputs
// yields the same classification and the same conflicting field set.
type Detector struct{}

// NewDetector создает новый детектор конфликтов
func NewDetector() *Detector {
	return &Detector{}
}

// Detect compares a client submission against the stored record.
//
// Returns nil when there is nothing to reconcile: the record does not exist
// yet (create), or the client based its edit on the current version. Otherwise
// returns a Conflict whose ConflictingFields enumerate every domain field that
// structurally differs; an empty set means only system fields drifted (soft
// conflict, eligible for automatic resolution).
func (d *Detector) Detect(sub *models.ClientSubmission, server *models.VersionedEntity) *models.Conflict {
	if server == nil {
		// Нет записи - нет возможного конфликта, это create
		return nil
	}

	if sub.ClientVersion == server.Version {
		return nil
	}

	return &models.Conflict{
		EntityID:          sub.ID,
		EntityType:        sub.EntityType,
		LocalVersion:      sub.ClientVersion,
		ServerVersion:     server.Version,
		ConflictingFields: server.Fields.Diff(sub.Fields),
		ServerSnapshot:    server.Clone(),
		ClientSnapshot:    sub.Snapshot(),
	}
}
