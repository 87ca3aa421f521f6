package providers

import "fmt"

// ProtocolError reports model output that could not be read as a
// well-formed tool call. Raw holds the output as the model produced it.
type ProtocolError struct {
	Raw string
	Err error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed tool call: %v", e.Err)
	}
	return "malformed tool call"
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}
