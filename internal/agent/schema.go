package agent

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"slices"

	"github.com/invopop/jsonschema"
)

// reflectSchema derives an argument schema from Args. Supported tags:
//
//	json:"name"                  property name
//	jsonschema:"required"        required property
//	jsonschema:"enum=a,enum=b"   allowed values
//	jsonschema_description:"..." description shown to the model
func reflectSchema[Args any]() (map[string]any, error) {
	reflector := &jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		DoNotReference:             true,
	}
	schema := reflector.Reflect(new(Args))

	data, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}
	delete(out, "$schema")
	delete(out, "$id")

	if out["type"] != "object" {
		return nil, fmt.Errorf("arguments must be a struct, got schema type %v", out["type"])
	}
	if _, ok := out["properties"]; !ok {
		out["properties"] = map[string]any{}
	}
	return out, nil
}

// Validate checks raw tool arguments against a schema. Empty or null input is
// treated as an empty object. Properties not named in the schema are ignored.
func Validate(tool string, schema map[string]any, raw json.RawMessage) error {
	dec := json.NewDecoder(bytes.NewReader(normalizeArgs(raw)))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return &SchemaValidationError{Tool: tool, Reason: "arguments are not valid JSON"}
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return &SchemaValidationError{Tool: tool, Reason: "arguments must be a JSON object"}
	}
	if field, reason := checkObject("", schema, obj); reason != "" {
		return &SchemaValidationError{Tool: tool, Field: field, Reason: reason}
	}
	return nil
}

func checkObject(prefix string, schema map[string]any, obj map[string]any) (string, string) {
	props, _ := schema["properties"].(map[string]any)

	for _, name := range stringList(schema["required"]) {
		if val, ok := obj[name]; !ok || val == nil {
			return join(prefix, name), "is required"
		}
	}

	for _, name := range slices.Sorted(maps.Keys(obj)) {
		val := obj[name]
		prop, ok := props[name].(map[string]any)
		if !ok || val == nil {
			continue
		}
		if field, reason := checkValue(join(prefix, name), prop, val); reason != "" {
			return field, reason
		}
	}
	return "", ""
}

func checkValue(path string, prop map[string]any, val any) (string, string) {
	switch prop["type"] {
	case "string":
		if _, ok := val.(string); !ok {
			return path, "must be a string"
		}
	case "number":
		if _, ok := val.(json.Number); !ok {
			return path, "must be a number"
		}
	case "integer":
		n, ok := val.(json.Number)
		if !ok {
			return path, "must be an integer"
		}
		f, err := n.Float64()
		if err != nil || math.Trunc(f) != f {
			return path, "must be an integer"
		}
	case "boolean":
		if _, ok := val.(bool); !ok {
			return path, "must be a boolean"
		}
	case "array":
		items, ok := val.([]any)
		if !ok {
			return path, "must be an array"
		}
		if itemSchema, ok := prop["items"].(map[string]any); ok {
			for i, item := range items {
				if field, reason := checkValue(fmt.Sprintf("%s[%d]", path, i), itemSchema, item); reason != "" {
					return field, reason
				}
			}
		}
	case "object":
		obj, ok := val.(map[string]any)
		if !ok {
			return path, "must be an object"
		}
		if field, reason := checkObject(path, prop, obj); reason != "" {
			return field, reason
		}
	}

	if enum, ok := prop["enum"].([]any); ok && len(enum) > 0 {
		got := fmt.Sprint(val)
		for _, e := range enum {
			if fmt.Sprint(e) == got {
				return "", ""
			}
		}
		return path, fmt.Sprintf("must be one of %v", enum)
	}
	return "", ""
}

func stringList(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func join(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}
