// Package model provides domain types shared across packages.
package model

import (
	"encoding/json"
	"strings"
)

// Role identifies the author of a conversation message.
type Role int

const (
	RoleUser Role = iota
	RoleAssistant
)

// String returns the wire-friendly role name.
func (r Role) String() string {
	switch r {
	case RoleUser:
		return "user"
	case RoleAssistant:
		return "assistant"
	default:
		return "unknown"
	}
}

// ParseRole converts a stored role name back to a Role.
func ParseRole(s string) Role {
	if strings.EqualFold(s, "assistant") {
		return RoleAssistant
	}
	return RoleUser
}

// PartKind discriminates the ContentPart variant.
type PartKind int

const (
	PartText PartKind = iota
	PartToolInvocation
	PartToolResult
)

// ContentPart is one unit of message content. Exactly the fields for the
// active Kind are populated; consumers switch on Kind exhaustively.
type ContentPart struct {
	Kind PartKind `json:"kind"`

	// PartText
	Text string `json:"text,omitempty"`

	// PartToolInvocation
	ToolName  string            `json:"tool_name,omitempty"`
	Arguments map[string]string `json:"arguments,omitempty"`

	// PartToolResult
	Reference string `json:"reference,omitempty"`
	Payload   string `json:"payload,omitempty"`
}

// ConversationMessage is one entry of conversation history. Messages are
// immutable once appended; history is an append/replace-only sequence owned
// by the orchestrator.
type ConversationMessage struct {
	Role    Role          `json:"role"`
	Content []ContentPart `json:"content"`
}

// TextMessage builds a message holding a single text part.
func TextMessage(role Role, text string) ConversationMessage {
	return ConversationMessage{
		Role:    role,
		Content: []ContentPart{{Kind: PartText, Text: text}},
	}
}

// ToolResultMessage builds a user message carrying one tool result.
func ToolResultMessage(reference, payload string) ConversationMessage {
	return ConversationMessage{
		Role: RoleUser,
		Content: []ContentPart{{
			Kind:      PartToolResult,
			Reference: reference,
			Payload:   payload,
		}},
	}
}

// PlainText flattens the message to a single string for prompts and
// summaries. Tool invocations render as "name(args)", tool results as
// "[reference] payload".
func (m ConversationMessage) PlainText() string {
	var b strings.Builder
	for i, part := range m.Content {
		if i > 0 {
			b.WriteString("\n")
		}
		switch part.Kind {
		case PartText:
			b.WriteString(part.Text)
		case PartToolInvocation:
			b.WriteString(part.ToolName)
			b.WriteString("(")
			b.WriteString(serializeArguments(part.Arguments))
			b.WriteString(")")
		case PartToolResult:
			b.WriteString("[")
			b.WriteString(part.Reference)
			b.WriteString("] ")
			b.WriteString(part.Payload)
		}
	}
	return b.String()
}

// serializeArguments renders a parameter map deterministically (JSON sorts
// map keys), so prompt text and cost estimates are stable across runs.
func serializeArguments(args map[string]string) string {
	if len(args) == 0 {
		return ""
	}
	data, err := json.Marshal(args)
	if err != nil {
		return ""
	}
	return string(data)
}

// SerializedArguments exposes the deterministic argument rendering for
// estimation and storage.
func SerializedArguments(args map[string]string) string {
	return serializeArguments(args)
}
