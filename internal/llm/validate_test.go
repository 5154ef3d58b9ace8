package llm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func scoreSchema() *Schema {
	return &Schema{
		Name:        "test-score",
		Description: "A single rubric score",
		Definition: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"criterion": map[string]any{"type": "string"},
				"score":     map[string]any{"type": "integer", "minimum": 0, "maximum": 100},
				"format":    map[string]any{"type": "string", "enum": []any{"text", "video", "flashcards"}},
			},
			"required": []any{"criterion", "score"},
		},
	}
}

func TestSchema_Validate(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"valid", `{"criterion":"clarity","score":80,"format":"video"}`, false},
		{"valid without optional", `{"criterion":"clarity","score":0}`, false},
		{"missing required", `{"criterion":"clarity"}`, true},
		{"wrong type", `{"criterion":"clarity","score":"high"}`, true},
		{"out of range", `{"criterion":"clarity","score":101}`, true},
		{"invalid enum", `{"criterion":"clarity","score":5,"format":"gif"}`, true},
		{"malformed", `{not json}`, true},
		{"empty", ``, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := scoreSchema().Validate(json.RawMessage(tt.raw))
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			assert.True(t, IsKind(err, KindInvalidResponse), "got %v", err)
		})
	}
}

func TestSchema_ValidateNil(t *testing.T) {
	var s *Schema
	assert.NoError(t, s.Validate(json.RawMessage(`{"anything":"goes"}`)))
}

func TestSchema_ValidateUnnamed(t *testing.T) {
	err := (&Schema{Definition: map[string]any{"type": "object"}}).Validate(json.RawMessage(`{}`))
	assert.ErrorContains(t, err, "schema has no name")
}

func TestSchema_ValidateNested(t *testing.T) {
	schema := &Schema{
		Name:        "test-deck",
		Description: "Nested test",
		Definition: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"deck": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"title": map[string]any{"type": "string"},
					},
					"required": []any{"title"},
				},
				"durations": map[string]any{
					"type":  "array",
					"items": map[string]any{"type": "integer"},
				},
			},
			"required": []any{"deck", "durations"},
		},
	}

	valid := json.RawMessage(`{"deck":{"title":"Loops"},"durations":[10,15,20]}`)
	assert.NoError(t, schema.Validate(valid))

	invalid := json.RawMessage(`{"deck":{"title":"Loops"},"durations":["ten"]}`)
	assert.Error(t, schema.Validate(invalid))
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
		ok   bool
	}{
		{"bare object", `{"a":1}`, `{"a":1}`, true},
		{"padded", "  \n{\"a\":1}\n", `{"a":1}`, true},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`, true},
		{"prose around", "Here you go:\n{\"a\":{\"b\":2}}\nHope it helps!", `{"a":{"b":2}}`, true},
		{"trailing brace in prose", "{\"a\":1} and then }", `{"a":1}`, true},
		{"array", "```\n[1,2]\n```", `[1,2]`, true},
		{"no json", "nothing here", "", false},
		{"broken", "{\"a\":", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractJSON([]byte(tt.raw))
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestLookupCost(t *testing.T) {
	tests := []struct {
		model string
		want  *ModelCost
	}{
		{"claude-haiku-4-5-20251001", &ModelCost{1, 5}},
		{"gpt-4.1-mini", &ModelCost{0.4, 1.6}},
		{"gpt-4.1-mini-2025-04-14", &ModelCost{0.4, 1.6}},
		{"gpt-4.1-2025-04-14", &ModelCost{2, 8}},
		{"google/gemini-2.5-flash", &ModelCost{0.3, 2.5}},
		{"gemini-2.5-flash-lite", &ModelCost{0.1, 0.4}},
		{"mock", nil},
		{"gpt-4.10", nil},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LookupCost(tt.model), tt.model)
	}
	assert.InDelta(t, 0.0009, ModelCost{1, 5}.Cost(400, 100), 1e-12)
}
