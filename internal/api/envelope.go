// internal/api/envelope.go
package api

import (
	"bytes"
	"encoding/json"
)

// Backend endpoints answer either with an envelope ({"data": [...]},
// {"book": {...}}) or with the bare payload. Unwrapping tries the envelope
// first and falls back to the body as-is.

// unwrapObject returns the named member of a JSON object envelope, or the
// body unchanged when the member is absent.
func unwrapObject(body []byte, key string) []byte {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err == nil {
		if inner, ok := envelope[key]; ok && !isNull(inner) {
			return inner
		}
	}
	return body
}

// unwrapList returns the "data" member when the body is an envelope, or the
// body itself when it is already a bare array. Anything else yields an empty
// array so list callers never see an envelope shape.
func unwrapList(body []byte) []byte {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return trimmed
	}
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && len(envelope.Data) > 0 && !isNull(envelope.Data) {
		return envelope.Data
	}
	return []byte("[]")
}

func isNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}
