package agent

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type searchArgs struct {
	Query    string   `json:"query" jsonschema:"required" jsonschema_description:"Search query"`
	Category string   `json:"category,omitempty" jsonschema:"enum=billing,enum=technical"`
	Limit    int      `json:"limit,omitempty"`
	Tags     []string `json:"tags,omitempty"`
	Exact    bool     `json:"exact,omitempty"`
	Score    float64  `json:"score,omitempty"`
}

func TestReflectSchema(t *testing.T) {
	t.Parallel()

	schema, err := reflectSchema[searchArgs]()
	require.NoError(t, err)

	assert.Equal(t, "object", schema["type"])
	assert.NotContains(t, schema, "$schema")
	assert.NotContains(t, schema, "$id")
	assert.Equal(t, []any{"query"}, schema["required"])

	props := schema["properties"].(map[string]any)
	assert.Equal(t, map[string]any{"type": "string", "description": "Search query"}, props["query"])
	assert.Equal(t, []any{"billing", "technical"}, props["category"].(map[string]any)["enum"])
	assert.Equal(t, "integer", props["limit"].(map[string]any)["type"])
	assert.Equal(t, "number", props["score"].(map[string]any)["type"])
	assert.Equal(t, "boolean", props["exact"].(map[string]any)["type"])
	assert.Equal(t, map[string]any{"type": "string"}, props["tags"].(map[string]any)["items"])
}

func TestReflectSchema_EmptyStruct(t *testing.T) {
	t.Parallel()

	schema, err := reflectSchema[struct{}]()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{}, schema["properties"])
}

func TestValidate(t *testing.T) {
	t.Parallel()

	schema, err := reflectSchema[searchArgs]()
	require.NoError(t, err)

	tests := []struct {
		name      string
		raw       string
		wantField string
	}{
		{name: "minimal", raw: `{"query":"refund"}`},
		{name: "all fields", raw: `{"query":"q","category":"billing","limit":3,"tags":["a"],"exact":true,"score":0.5}`},
		{name: "unknown fields ignored", raw: `{"query":"q","whatever":{"deep":[1,2]}}`},
		{name: "whole float is integer", raw: `{"query":"q","limit":3.0}`},
		{name: "null optional", raw: `{"query":"q","category":null}`},
		{name: "missing required", raw: `{"category":"billing"}`, wantField: "query"},
		{name: "empty payload", raw: ``, wantField: "query"},
		{name: "null required", raw: `{"query":null}`, wantField: "query"},
		{name: "wrong string type", raw: `{"query":42}`, wantField: "query"},
		{name: "enum violation", raw: `{"query":"q","category":"shipping"}`, wantField: "category"},
		{name: "fractional integer", raw: `{"query":"q","limit":2.5}`, wantField: "limit"},
		{name: "string as number", raw: `{"query":"q","score":"high"}`, wantField: "score"},
		{name: "bad array item", raw: `{"query":"q","tags":["a",7]}`, wantField: "tags[1]"},
		{name: "not an array", raw: `{"query":"q","tags":"a"}`, wantField: "tags"},
		{name: "not a bool", raw: `{"query":"q","exact":"yes"}`, wantField: "exact"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := Validate("search", schema, json.RawMessage(tt.raw))
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			var verr *SchemaValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Equal(t, "search", verr.Tool)
			assert.Equal(t, tt.wantField, verr.Field)
			assert.Contains(t, err.Error(), tt.wantField)
		})
	}
}

func TestValidate_NotAnObject(t *testing.T) {
	t.Parallel()

	schema, err := reflectSchema[searchArgs]()
	require.NoError(t, err)

	for _, raw := range []string{`[1,2]`, `"query"`, `{`} {
		var verr *SchemaValidationError
		require.ErrorAs(t, Validate("search", schema, json.RawMessage(raw)), &verr, raw)
		assert.Empty(t, verr.Field)
	}
}

func TestValidate_NestedObject(t *testing.T) {
	t.Parallel()

	type inner struct {
		City string `json:"city" jsonschema:"required"`
	}
	type outer struct {
		Address inner `json:"address" jsonschema:"required"`
	}
	schema, err := reflectSchema[outer]()
	require.NoError(t, err)

	assert.NoError(t, Validate("t", schema, json.RawMessage(`{"address":{"city":"Oslo"}}`)))

	var verr *SchemaValidationError
	require.ErrorAs(t, Validate("t", schema, json.RawMessage(`{"address":{}}`)), &verr)
	assert.Equal(t, "address.city", verr.Field)
}
