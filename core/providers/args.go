package providers

import "encoding/json"

// rawArguments returns tool arguments as JSON, substituting an empty object
// when the recorded text is not valid JSON.
func rawArguments(args string) json.RawMessage {
	if args == "" || !json.Valid([]byte(args)) {
		return json.RawMessage("{}")
	}
	return json.RawMessage(args)
}

func decodeArguments(args string) map[string]any {
	out := map[string]any{}
	_ = json.Unmarshal([]byte(args), &out)
	return out
}
