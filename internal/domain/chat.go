package domain

import "encoding/json"

// Chat message roles as sent to and received from the LLM integration.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ChatMessage is the provider-agnostic chat message shape shared by the
// dialog engine, the LLM integration and the checkpoint store.
type ChatMessage struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"toolCalls,omitempty"`
	ToolCallID string     `json:"toolCallId,omitempty"`
}

// ToolCall is a structured function invocation requested by the model.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ToolDefinition describes a function the model may invoke. Stage handlers
// bind their structured signals (delegation targets, cancellation) as tools
// rather than parsing them out of prose.
type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// ChatResult is the outcome of a single chat completion round-trip.
type ChatResult struct {
	Content   string
	ToolCalls []ToolCall
}

// Empty reports whether the model produced neither text nor a tool call.
// Stage handlers re-prompt on empty results.
func (r ChatResult) Empty() bool {
	return r.Content == "" && len(r.ToolCalls) == 0
}
