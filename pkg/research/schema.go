package research

import (
	"encoding/json"
	"strings"

	"github.com/invopop/jsonschema"
)

// SchemaJSON renders the JSON schema of v for inclusion in a prompt.
func SchemaJSON(v any) string {
	b, err := json.MarshalIndent(reflectSchema(v), "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}

// SchemaMap renders the JSON schema of v as a plain map, the shape langchaingo
// providers expect for tool parameters.
func SchemaMap(v any) map[string]any {
	b, err := json.Marshal(reflectSchema(v))
	if err != nil {
		return map[string]any{"type": "object"}
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return map[string]any{"type": "object"}
	}
	delete(m, "$schema")
	delete(m, "$id")
	normalizeRequired(m)
	return m
}

func reflectSchema(v any) *jsonschema.Schema {
	reflector := &jsonschema.Reflector{ExpandedStruct: true, DoNotReference: true}
	return reflector.Reflect(v)
}

// normalizeRequired turns decoded []any "required" lists back into []string.
func normalizeRequired(m map[string]any) {
	if req, ok := m["required"].([]any); ok {
		out := make([]string, 0, len(req))
		for _, r := range req {
			if s, ok := r.(string); ok {
				out = append(out, s)
			}
		}
		m["required"] = out
	}
	for _, v := range m {
		switch child := v.(type) {
		case map[string]any:
			normalizeRequired(child)
		case []any:
			for _, item := range child {
				if cm, ok := item.(map[string]any); ok {
					normalizeRequired(cm)
				}
			}
		}
	}
}

// ExtractJSON strips markdown fences some models wrap around JSON output.
func ExtractJSON(content string) string {
	s := strings.TrimSpace(content)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}
