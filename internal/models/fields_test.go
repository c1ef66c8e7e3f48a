package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFields_Diff(t *testing.T) {
	tests := []struct {
		name  string
		a     Fields
		b     Fields
		wantD []string
	}{
		{
			name:  "identical flat fields",
			a:     Fields{"title": "A", "status": "draft"},
			b:     Fields{"title": "A", "status": "draft"},
			wantD: []string{},
		},
		{
			name:  "one differing field",
			a:     Fields{"title": "A", "status": "approved"},
			b:     Fields{"title": "A", "status": "rejected"},
			wantD: []string{"status"},
		},
		{
			name:  "multiple differing fields sorted",
			a:     Fields{"title": "A", "status": "approved", "priority": float64(1)},
			b:     Fields{"title": "B", "status": "rejected", "priority": float64(1)},
			wantD: []string{"status", "title"},
		},
		{
			name:  "field present on one side only",
			a:     Fields{"title": "A"},
			b:     Fields{"title": "A", "summary": "new"},
			wantD: []string{"summary"},
		},
		{
			name:  "system fields excluded",
			a:     Fields{"title": "A", "updated_at": "2026-01-01T00:00:00Z", "updated_by": "alice"},
			b:     Fields{"title": "A", "updated_at": "2026-02-02T00:00:00Z", "updated_by": "bob"},
			wantD: []string{},
		},
		{
			name:  "nested map compared structurally regardless of key order",
			a:     Fields{"contact": map[string]any{"name": "A", "phone": "1"}},
			b:     Fields{"contact": map[string]any{"phone": "1", "name": "A"}},
			wantD: []string{},
		},
		{
			name:  "nested map with differing leaf",
			a:     Fields{"contact": map[string]any{"name": "A", "phone": "1"}},
			b:     Fields{"contact": map[string]any{"name": "A", "phone": "2"}},
			wantD: []string{"contact"},
		},
		{
			name:  "array order matters",
			a:     Fields{"tags": []any{"x", "y"}},
			b:     Fields{"tags": []any{"y", "x"}},
			wantD: []string{"tags"},
		},
		{
			name:  "explicit null differs from absent",
			a:     Fields{"note": nil},
			b:     Fields{},
			wantD: []string{"note"},
		},
		{
			name:  "explicit null equals explicit null",
			a:     Fields{"note": nil},
			b:     Fields{"note": nil},
			wantD: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.a.Diff(tt.b)
			assert.Equal(t, tt.wantD, got)

			// Diff is symmetric on field names
			assert.Equal(t, tt.wantD, tt.b.Diff(tt.a))
		})
	}
}

func TestFields_Normalize(t *testing.T) {
	type position struct {
		Topic string `json:"topic"`
		Rank  int    `json:"rank"`
	}

	raw := Fields{
		"count":    5,
		"ratio":    2.5,
		"position": position{Topic: "trade", Rank: 1},
	}

	normalized, err := raw.Normalize()
	require.NoError(t, err)

	// Числа становятся float64, структуры - map[string]any
	assert.Equal(t, float64(5), normalized["count"])
	assert.Equal(t, 2.5, normalized["ratio"])
	assert.Equal(t, map[string]any{"topic": "trade", "rank": float64(1)}, normalized["position"])

	// Нормализованные значения сравниваются со значениями с wire
	wire := Fields{
		"count":    float64(5),
		"ratio":    float64(2.5),
		"position": map[string]any{"topic": "trade", "rank": float64(1)},
	}
	assert.Empty(t, normalized.Diff(wire))
}

func TestFields_Normalize_Nil(t *testing.T) {
	var f Fields
	normalized, err := f.Normalize()
	require.NoError(t, err)
	assert.NotNil(t, normalized)
	assert.Empty(t, normalized)
}

func TestFields_Merge(t *testing.T) {
	base := Fields{"title": "A", "status": "draft", "summary": "old"}
	overlay := Fields{"status": "approved", "version": float64(99), "updated_by": "intruder"}

	merged := base.Merge(overlay)

	assert.Equal(t, "A", merged["title"])
	assert.Equal(t, "approved", merged["status"])
	assert.Equal(t, "old", merged["summary"])

	// Системные поля из overlay игнорируются
	assert.NotContains(t, merged, "version")
	assert.NotContains(t, merged, "updated_by")

	// База не изменилась
	assert.Equal(t, "draft", base["status"])
}

func TestFields_Clone_DeepCopy(t *testing.T) {
	original := Fields{
		"contact": map[string]any{"name": "A"},
		"tags":    []any{"x"},
	}

	cloned := original.Clone()
	cloned["contact"].(map[string]any)["name"] = "B"
	cloned["tags"].([]any)[0] = "y"

	assert.Equal(t, "A", original["contact"].(map[string]any)["name"])
	assert.Equal(t, "x", original["tags"].([]any)[0])
}

func TestIsSystemField(t *testing.T) {
	assert.True(t, IsSystemField("updated_at"))
	assert.True(t, IsSystemField("version"))
	assert.True(t, IsSystemField("device_id"))
	assert.False(t, IsSystemField("title"))
	assert.False(t, IsSystemField("status"))
}
