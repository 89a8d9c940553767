// Package json extracts JSON payloads from LLM responses.
//
// Models asked for structured output often wrap the JSON in prose or
// markdown code fences. This package pulls the object out and parses it.
package json

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractJSONFromResponse extracts and parses a JSON object from an LLM
// response. Handles pure JSON, fenced code blocks, and objects embedded in
// surrounding prose.
//
// Limitations:
// - Only handles JSON objects, not top-level arrays
// - Uses first-'{' / last-'}' matching, not full JSON scanning
func ExtractJSONFromResponse[T any](response string) (T, error) {
	var result T
	payload, err := extractObject(response)
	if err != nil {
		return result, err
	}
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return result, fmt.Errorf("failed to unmarshal JSON: %w", err)
	}
	return result, nil
}

// extractObject finds the JSON object portion of a response string.
func extractObject(response string) (string, error) {
	response = stripCodeFence(response)

	var probe interface{}
	if err := json.Unmarshal([]byte(response), &probe); err == nil {
		return response, nil
	}

	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start != -1 && end > start {
		candidate := response[start : end+1]
		if err := json.Unmarshal([]byte(candidate), &probe); err == nil {
			return candidate, nil
		}
	}

	preview := response
	if len(preview) > 100 {
		preview = preview[:100] + "..."
	}
	return "", fmt.Errorf("no valid JSON object in response: %q", preview)
}

// stripCodeFence removes a surrounding ```json / ``` fence if present.
func stripCodeFence(response string) string {
	trimmed := strings.TrimSpace(response)
	if strings.HasPrefix(trimmed, "```json") {
		trimmed = strings.TrimSpace(strings.TrimPrefix(trimmed, "```json"))
	} else if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimSpace(strings.TrimPrefix(trimmed, "```"))
	}
	if strings.HasSuffix(trimmed, "```") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, "```"))
	}
	return trimmed
}
