package models

// EntityError описывает ошибку обработки одной сущности внутри батча
type EntityError struct {
	EntityID string `json:"entity_id"`
	Err      string `json:"error"`
}

// PushResult представляет агрегированный результат обработки батча.
// Every submitted entity lands in exactly one of the three buckets, so the
// caller can accept successes, prompt the user for conflicts and retry
// errors independently.
type PushResult struct {
	Success   []*VersionedEntity `json:"success"`
	Conflicts []*Conflict        `json:"conflicts"`
	Errors    []EntityError      `json:"errors"`
}

// HasConflicts reports whether any submission surfaced a manual conflict
func (r *PushResult) HasConflicts() bool {
	return len(r.Conflicts) > 0
}
