// Package agent runs the tool-use loop: prompt the model, parse tagged tool
// invocations out of its reply, execute them, and feed results back until
// the model signals completion.
//
// Contains all types used by agents for responses and execution metadata.
package agent

import (
	"github.com/PrimeOccasion/cline/llm"
	"github.com/PrimeOccasion/cline/model"
)

// Step is an alias for model.Step for agent turn records.
type Step = model.Step

// ToolCall is an alias for model.ToolCall for tool call metadata.
type ToolCall = model.ToolCall

// Metadata contains metadata about agent execution.
type Metadata struct {
	ExecutionTimeMs uint64
	AgentName       *string
	ToolCalls       []ToolCall
	TokenUsage      *llm.TokenUsage
	LLMCalls        int // Number of LLM calls made by this agent
	Compactions     int // Number of context compactions performed
}

// ResponseType indicates the type of agent response.
type ResponseType int

const (
	ResponseSuccess ResponseType = iota
	ResponseFailure
	ResponseMaxTurns
	ResponseAwaitingInput
)

// Response represents the outcome of an agent execution.
type Response struct {
	Type          ResponseType
	Result        string // For Success
	Error         string // For Failure
	PartialResult string // For MaxTurns
	Question      string // For AwaitingInput
	Steps         []Step
	Metadata      Metadata
}

// NewSuccessResponse creates a successful response.
func NewSuccessResponse(result string, steps []Step, metadata Metadata) Response {
	return Response{
		Type:     ResponseSuccess,
		Result:   result,
		Steps:    steps,
		Metadata: metadata,
	}
}

// NewFailureResponse creates a failure response.
func NewFailureResponse(err string, steps []Step, metadata Metadata) Response {
	return Response{
		Type:     ResponseFailure,
		Error:    err,
		Steps:    steps,
		Metadata: metadata,
	}
}

// NewMaxTurnsResponse creates a response for a task that ran out of turns.
func NewMaxTurnsResponse(steps []Step, metadata Metadata) Response {
	return Response{
		Type:          ResponseMaxTurns,
		PartialResult: "Max turns reached",
		Steps:         steps,
		Metadata:      metadata,
	}
}

// NewAwaitingInputResponse creates a response for a paused task that needs
// an answer from the user. Resume by calling Execute with the answer.
func NewAwaitingInputResponse(question string, steps []Step, metadata Metadata) Response {
	return Response{
		Type:     ResponseAwaitingInput,
		Question: question,
		Steps:    steps,
		Metadata: metadata,
	}
}

// ResultText returns the user-facing text for any response type.
func (r Response) ResultText() string {
	switch r.Type {
	case ResponseSuccess:
		return r.Result
	case ResponseFailure:
		return r.Error
	case ResponseMaxTurns:
		return r.PartialResult
	case ResponseAwaitingInput:
		return r.Question
	default:
		return ""
	}
}

// IsSuccess checks if the response was successful.
func (r Response) IsSuccess() bool {
	return r.Type == ResponseSuccess
}

// NeedsInput checks if the agent paused waiting for a user answer.
func (r Response) NeedsInput() bool {
	return r.Type == ResponseAwaitingInput
}
