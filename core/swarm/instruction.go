package swarm

import (
	"encoding/json"
	"errors"
	"strings"
	"unicode"
)

const instructionPrefix = "tool:"

// parseToolInstruction recognizes a tool request written as plain text, in
// the form "tool: <name> <json object>". ok is false when content is not an
// instruction at all; err is set when it looks like one but is malformed.
func parseToolInstruction(content string) (name, args string, ok bool, err error) {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, instructionPrefix) {
		return "", "", false, nil
	}
	payload := strings.TrimSpace(strings.TrimPrefix(trimmed, instructionPrefix))
	if payload == "" {
		return "", "", false, errors.New("missing tool name")
	}

	// The name ends at the first whitespace of any kind.
	name, raw := payload, ""
	if i := strings.IndexFunc(payload, unicode.IsSpace); i >= 0 {
		name, raw = payload[:i], strings.TrimSpace(payload[i:])
	}

	args = "{}"
	if raw != "" {
		var obj map[string]any
		if err := json.Unmarshal([]byte(raw), &obj); err != nil {
			return "", "", false, errors.New("tool arguments are not a JSON object")
		}
		args = raw
	}
	return name, args, true, nil
}
