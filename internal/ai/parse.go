package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrUnparsable signals that model output could not be decoded as JSON.
// Callers treat it as "use the fallback", never as a hard failure.
var ErrUnparsable = errors.New("model output is not valid JSON")

// StripFences removes a surrounding markdown code fence, if present.
// Models frequently wrap JSON answers in ```json ... ``` despite
// instructions not to.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = strings.TrimPrefix(s, "```json")
	} else if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// Decode strips fences and unmarshals the output into v.
func Decode(raw string, v interface{}) error {
	cleaned := StripFences(raw)
	if err := json.Unmarshal([]byte(cleaned), v); err != nil {
		return fmt.Errorf("%w: %v", ErrUnparsable, err)
	}
	return nil
}
