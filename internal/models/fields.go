package models

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Fields представляет динамический набор доменных полей сущности.
// Values hold JSON-decoded shapes only: string, float64, bool, nil,
// []any and map[string]any. Anything read off the wire already has this
// shape; values built from Go literals must go through Normalize first.
type Fields map[string]any

// Reserved system field names, managed by the server and excluded from
// client-vs-server diffing.
const (
	FieldID             = "id"
	FieldEntityType     = "entity_type"
	FieldVersion        = "version"
	FieldCreatedAt      = "created_at"
	FieldCreatedBy      = "created_by"
	FieldUpdatedAt      = "updated_at"
	FieldUpdatedBy      = "updated_by"
	FieldLocalUpdatedAt = "local_updated_at"
	FieldDeviceID       = "device_id"
)

var systemFields = map[string]struct{}{
	FieldID:             {},
	FieldEntityType:     {},
	FieldVersion:        {},
	FieldCreatedAt:      {},
	FieldCreatedBy:      {},
	FieldUpdatedAt:      {},
	FieldUpdatedBy:      {},
	FieldLocalUpdatedAt: {},
	FieldDeviceID:       {},
}

// IsSystemField reports whether name is a server-managed field.
func IsSystemField(name string) bool {
	_, ok := systemFields[name]
	return ok
}

// Normalize round-trips the bag through JSON encoding so that values built
// from Go literals compare structurally with values decoded off the wire
// (numbers become float64, nested structs become map[string]any).
func (f Fields) Normalize() (Fields, error) {
	if f == nil {
		return Fields{}, nil
	}

	raw, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal fields: %w", err)
	}

	var out Fields
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal fields: %w", err)
	}

	return out, nil
}

// Clone создает глубокую копию набора полей
func (f Fields) Clone() Fields {
	if f == nil {
		return nil
	}

	out := make(Fields, len(f))
	for name, value := range f {
		out[name] = cloneValue(value)
	}
	return out
}

// Merge returns a copy of f with overlay's domain fields applied on top.
// System fields in the overlay are ignored; they never travel through the
// generic field bag.
func (f Fields) Merge(overlay Fields) Fields {
	out := f.Clone()
	if out == nil {
		out = make(Fields, len(overlay))
	}

	for name, value := range overlay {
		if IsSystemField(name) {
			continue
		}
		out[name] = cloneValue(value)
	}

	return out
}

// Diff returns the sorted names of domain fields whose values differ
// structurally between f and other. A field present on only one side counts
// as differing: submissions are full documents, so absence is divergence.
func (f Fields) Diff(other Fields) []string {
	names := make(map[string]struct{}, len(f)+len(other))
	for name := range f {
		names[name] = struct{}{}
	}
	for name := range other {
		names[name] = struct{}{}
	}

	differing := []string{}
	for name := range names {
		if IsSystemField(name) {
			continue
		}

		a, aOK := f[name]
		b, bOK := other[name]
		if aOK != bOK || !valueEqual(a, b) {
			differing = append(differing, name)
		}
	}

	sort.Strings(differing)
	return differing
}

// valueEqual compares two JSON-decoded values structurally.
// Objects compare by key regardless of order; arrays compare element-wise.
func valueEqual(a, b any) bool {
	switch av := a.(type) {
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for key, value := range av {
			bValue, exists := bv[key]
			if !exists || !valueEqual(value, bValue) {
				return false
			}
		}
		return true

	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !valueEqual(av[i], bv[i]) {
				return false
			}
		}
		return true

	default:
		// Scalars after normalization: string, float64, bool, nil.
		return a == b
	}
}

// cloneValue deep-copies a JSON-decoded value
func cloneValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = cloneValue(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}
