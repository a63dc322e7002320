package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedResponse is returned when a model response does not contain
// a parseable JSON object.
var ErrMalformedResponse = errors.New("llm: malformed response")

// ExtractJSON pulls the single JSON object a model response is expected to
// carry and parses it strictly.
//
// Empty input is a defined empty result, not an error: the caller gets
// (nil, nil). Otherwise the text is unwrapped in order of preference — a
// ```json fenced block, any generic ``` fenced block, or the raw text —
// and then sliced from the first '{' to the last '}' inclusive, which
// trims the "Here is the JSON:" prose models like to add on either side.
//
// The slice is deliberately positional, not brace-balanced: a literal '}'
// inside a string value before the true closing brace will mis-slice.
// Downstream behavior depends on this exact heuristic; do not replace it
// with a smarter parser. Multiple JSON objects in one payload are
// unsupported for the same reason.
//
// No repair beyond the above is attempted. A parse failure returns
// (nil, err) with the decoder error wrapped in ErrMalformedResponse.
// Pure function; safe for concurrent use.
func ExtractJSON(text string) (map[string]any, error) {
	raw, err := ExtractJSONString(text)
	if err != nil || raw == "" {
		return nil, err
	}

	var out map[string]any
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		// Valid JSON but not an object (e.g. a bare array or scalar):
		// still malformed from the dashboard's point of view.
		return nil, fmt.Errorf("%w: top-level value is not an object", ErrMalformedResponse)
	}
	return out, nil
}

// ExtractJSONString performs the same unwrapping and slicing as
// ExtractJSON but returns the validated JSON text instead of a parsed
// tree, for callers that decode into their own typed structures.
func ExtractJSONString(text string) (string, error) {
	clean := strings.TrimSpace(text)
	if clean == "" {
		return "", nil
	}

	clean = stripFences(clean)
	clean = strings.TrimSpace(clean)

	start := strings.Index(clean, "{")
	end := strings.LastIndex(clean, "}")
	if start != -1 && end != -1 && end >= start {
		clean = clean[start : end+1]
	}

	if !json.Valid([]byte(clean)) {
		return "", fmt.Errorf("%w: no parseable JSON object in %d bytes of text", ErrMalformedResponse, len(text))
	}
	return clean, nil
}

// stripFences unwraps the first markdown code fence. A "json"-tagged fence
// wins over a generic one; only the first fence pair is honored.
func stripFences(s string) string {
	if idx := strings.Index(s, "```json"); idx != -1 {
		inner := s[idx+len("```json"):]
		if stop := strings.Index(inner, "```"); stop != -1 {
			return inner[:stop]
		}
		return inner
	}
	if idx := strings.Index(s, "```"); idx != -1 {
		inner := s[idx+len("```"):]
		if stop := strings.Index(inner, "```"); stop != -1 {
			return inner[:stop]
		}
		return inner
	}
	return s
}

// DecodeInto extracts the JSON object from a model response and decodes
// it into v, for consumers with a known schema.
func DecodeInto(text string, v any) error {
	raw, err := ExtractJSONString(text)
	if err != nil {
		return err
	}
	if raw == "" {
		return fmt.Errorf("%w: empty response", ErrMalformedResponse)
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}
