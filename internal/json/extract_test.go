package json

import (
	"strings"
	"testing"
)

type decisionPayload struct {
	KeepIndices  []int  `json:"keep_indices"`
	Instructions string `json:"summary_instructions"`
}

func TestPureJSON(t *testing.T) {
	response := `{"keep_indices": [0, 4], "summary_instructions": "keep paths"}`
	result, err := ExtractJSONFromResponse[decisionPayload](response)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.KeepIndices) != 2 || result.KeepIndices[1] != 4 {
		t.Errorf("unexpected indices: %v", result.KeepIndices)
	}
	if result.Instructions != "keep paths" {
		t.Errorf("unexpected instructions: %q", result.Instructions)
	}
}

func TestJSONWrappedInProse(t *testing.T) {
	response := `Here is my decision: {"keep_indices": [0], "summary_instructions": "x"} Hope that helps!`
	result, err := ExtractJSONFromResponse[decisionPayload](response)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.KeepIndices) != 1 || result.KeepIndices[0] != 0 {
		t.Errorf("unexpected indices: %v", result.KeepIndices)
	}
}

func TestJSONInCodeFence(t *testing.T) {
	response := "```json\n{\"keep_indices\": [0, 1], \"summary_instructions\": \"y\"}\n```"
	result, err := ExtractJSONFromResponse[decisionPayload](response)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.KeepIndices) != 2 {
		t.Errorf("unexpected indices: %v", result.KeepIndices)
	}
}

func TestNoJSON(t *testing.T) {
	_, err := ExtractJSONFromResponse[decisionPayload]("I would keep the first and last messages.")
	if err == nil {
		t.Fatal("expected error for plain prose")
	}
	if !strings.Contains(err.Error(), "no valid JSON object") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestInvalidJSON(t *testing.T) {
	_, err := ExtractJSONFromResponse[decisionPayload](`{"keep_indices": [0,}`)
	if err == nil {
		t.Fatal("expected error for broken JSON")
	}
}
