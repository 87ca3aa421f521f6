package tools

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"
)

// Validator validates tool parameters before execution.
type Validator interface {
	Validate(params map[string]any, schema *JSONSchema) error
}

// DefaultValidator checks required fields, primitive types and minLength.
// minLength is measured after trimming surrounding whitespace.
type DefaultValidator struct{}

// Validate ensures that params satisfy the provided schema.
func (DefaultValidator) Validate(params map[string]any, schema *JSONSchema) error {
	if schema == nil {
		return nil
	}

	if params == nil {
		params = map[string]any{}
	}

	for _, field := range schema.Required {
		if _, exists := params[field]; !exists {
			return fmt.Errorf("missing required field: %s", field)
		}
	}

	for key, value := range params {
		propDef, ok := schema.Properties[key]
		if !ok {
			continue
		}

		if expectedType := extractExpectedType(propDef); expectedType != "" {
			if err := validateType(value, expectedType); err != nil {
				return fmt.Errorf("field %s: %w", key, err)
			}
		}

		if min, ok := extractMinLength(propDef); ok {
			if s, isString := value.(string); isString && utf8.RuneCountInString(strings.TrimSpace(s)) < min {
				return fmt.Errorf("field %s: must be at least %d characters", key, min)
			}
		}
	}

	return nil
}

func extractExpectedType(definition any) string {
	switch def := definition.(type) {
	case map[string]any:
		if value, ok := def["type"].(string); ok {
			return value
		}
	case *JSONSchema:
		return def.Type
	}
	return ""
}

func extractMinLength(definition any) (int, bool) {
	def, ok := definition.(map[string]any)
	if !ok {
		return 0, false
	}
	switch v := def["minLength"].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case json.Number:
		n, err := v.Int64()
		return int(n), err == nil
	}
	return 0, false
}

func validateType(value any, expected string) error {
	switch expected {
	case "string":
		if _, ok := value.(string); ok {
			return nil
		}
	case "number":
		if isNumber(value) {
			return nil
		}
	case "integer":
		if isInteger(value) {
			return nil
		}
	case "boolean":
		if _, ok := value.(bool); ok {
			return nil
		}
	case "object":
		if value == nil {
			break
		}
		if _, ok := value.(map[string]any); ok {
			return nil
		}
	case "array":
		if _, ok := value.([]any); ok {
			return nil
		}
	case "null":
		if value == nil {
			return nil
		}
	default:
		return fmt.Errorf("unsupported schema type %q", expected)
	}
	return fmt.Errorf("expected %s but got %T", expected, value)
}

func isNumber(value any) bool {
	switch v := value.(type) {
	case float32, float64:
		return true
	case int, int8, int16, int32, int64:
		return true
	case uint, uint8, uint16, uint32, uint64:
		return true
	case json.Number:
		_, err := v.Float64()
		return err == nil
	}
	return false
}

func isInteger(value any) bool {
	switch v := value.(type) {
	case int, int8, int16, int32, int64:
		return true
	case uint, uint8, uint16, uint32, uint64:
		return true
	case float32:
		return math.Trunc(float64(v)) == float64(v)
	case float64:
		return math.Trunc(v) == v
	case json.Number:
		_, err := v.Int64()
		return err == nil
	}
	return false
}
