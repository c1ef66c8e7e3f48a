// Package api содержит типы запросов и ответов push-синхронизации.
// Shared between server and clients, so it depends on nothing internal.
package api

import (
	"encoding/json"
	"fmt"
	"time"
)

// PushRequest представляет батч клиентских отправок
type PushRequest struct {
	DeviceID string          `json:"device_id,omitempty"`
	Entities []EntityPayload `json:"entities"`
}

// EntityPayload is one submitted entity. On the wire the domain fields sit
// flattened beside the reserved keys:
//
//	{ "id": "e1", "entity_type": "dossier", "version": 5,
//	  "local_updated_at": "2026-01-02T15:04:05Z", "title": "...", ... }
//
// The codec below splits reserved keys from the domain field bag.
type EntityPayload struct {
	LocalUpdatedAt time.Time      `json:"-"`
	ID             string         `json:"-"`
	EntityType     string         `json:"-"`
	DeviceID       string         `json:"-"`
	Fields         map[string]any `json:"-"`
	Version        int64          `json:"-"`
}

// Reserved keys stripped from the flattened payload. Matches the server's
// system-managed field set plus the client-only submission keys.
var reservedKeys = []string{
	"id", "entity_type", "version", "local_updated_at", "device_id",
	"created_at", "created_by", "updated_at", "updated_by",
}

// UnmarshalJSON splits the flattened object into reserved keys and fields
func (p *EntityPayload) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if v, ok := raw["id"].(string); ok {
		p.ID = v
	}
	if v, ok := raw["entity_type"].(string); ok {
		p.EntityType = v
	}
	if v, ok := raw["version"].(float64); ok {
		p.Version = int64(v)
	}
	if v, ok := raw["device_id"].(string); ok {
		p.DeviceID = v
	}
	if v, ok := raw["local_updated_at"].(string); ok {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return fmt.Errorf("invalid local_updated_at: %w", err)
		}
		p.LocalUpdatedAt = t
	}

	for _, key := range reservedKeys {
		delete(raw, key)
	}
	p.Fields = raw

	return nil
}

// MarshalJSON flattens reserved keys back beside the domain fields
func (p EntityPayload) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(p.Fields)+4)
	for name, value := range p.Fields {
		out[name] = value
	}

	out["id"] = p.ID
	out["entity_type"] = p.EntityType
	out["version"] = p.Version
	if !p.LocalUpdatedAt.IsZero() {
		out["local_updated_at"] = p.LocalUpdatedAt.Format(time.RFC3339)
	}
	if p.DeviceID != "" {
		out["device_id"] = p.DeviceID
	}

	return json.Marshal(out)
}

// Entity представляет серверную запись в ответе
type Entity struct {
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	ID         string         `json:"id"`
	EntityType string         `json:"entity_type"`
	CreatedBy  string         `json:"created_by,omitempty"`
	UpdatedBy  string         `json:"updated_by,omitempty"`
	Fields     map[string]any `json:"fields"`
	Version    int64          `json:"version"`
}

// Conflict представляет расхождение, требующее ручного разрешения
type Conflict struct {
	ServerEntity      *Entity  `json:"server_entity"`
	LocalEntity       *Entity  `json:"local_entity"`
	EntityID          string   `json:"entity_id"`
	EntityType        string   `json:"entity_type"`
	ConflictingFields []string `json:"conflicting_fields"`
	LocalVersion      int64    `json:"local_version"`
	ServerVersion     int64    `json:"server_version"`
}

// EntityError описывает ошибку обработки одной сущности
type EntityError struct {
	EntityID string `json:"entity_id"`
	Error    string `json:"error"`
}

// PushResponse представляет агрегированный результат батча.
// Каждая отправленная сущность попадает ровно в один из трех списков.
type PushResponse struct {
	Success   []Entity      `json:"success"`
	Conflicts []Conflict    `json:"conflicts"`
	Errors    []EntityError `json:"errors"`
}
