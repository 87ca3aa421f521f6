package tools

// JSONSchema captures the subset of JSON Schema used to describe tool
// arguments.
type JSONSchema struct {
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties"`
	Required   []string       `json:"required"`
}

// Map renders the schema in the form model APIs expect for function
// parameters.
func (s *JSONSchema) Map() map[string]any {
	if s == nil {
		return map[string]any{"type": "object", "properties": map[string]any{}}
	}
	out := map[string]any{
		"type":       s.Type,
		"properties": s.Properties,
	}
	if out["type"] == "" {
		out["type"] = "object"
	}
	if s.Properties == nil {
		out["properties"] = map[string]any{}
	}
	if len(s.Required) > 0 {
		required := make([]any, len(s.Required))
		for i, r := range s.Required {
			required[i] = r
		}
		out["required"] = required
	}
	return out
}
