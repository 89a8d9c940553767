package model

// Step records a single turn of the agent loop for tracing.
type Step struct {
	Turn        int
	Text        string
	Tool        *string
	Observation *string
}

// ToolCall contains metrics about a tool invocation.
type ToolCall struct {
	Name       string `json:"name"`
	InputSize  int    `json:"input_size"`
	OutputSize int    `json:"output_size"`
	DurationMs uint64 `json:"duration_ms"`
	Success    bool   `json:"success"`
}
