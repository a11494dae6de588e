package research

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseError reports LLM output that did not match the required schema.
// Raw carries the full model output for diagnosis.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse llm output: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// stripCodeFences removes a surrounding markdown code fence, with or without
// a language tag. Models add these despite instructions not to.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		// Drop the language tag line ("json", "JSON", or empty).
		if tag := strings.TrimSpace(s[:i]); len(tag) <= 8 {
			s = s[i+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// decodeStrict parses LLM output into v after stripping code fences.
// Any mismatch is returned as a *ParseError carrying the raw text.
func decodeStrict(raw string, v any) error {
	cleaned := stripCodeFences(raw)
	if err := json.Unmarshal([]byte(cleaned), v); err != nil {
		return &ParseError{Raw: raw, Err: err}
	}
	return nil
}
