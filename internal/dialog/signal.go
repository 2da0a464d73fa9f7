package dialog

import (
	"encoding/json"

	"agenda-agent/internal/domain"
)

// Tool names offered to the model. Delegation targets and cancellation are
// invocable tools, not prose the router has to parse.
const (
	toolToNotesExtraction    = "transfer_to_notes_extraction"
	toolToAgendaDrafting     = "transfer_to_agenda_drafting"
	toolToDocumentGeneration = "transfer_to_document_generation"
	toolCompleteOrEscalate   = "complete_or_escalate"
	toolGenerateDocument     = "generate_agenda_document"
)

// SignalKind is the tagged variant of a stage invocation outcome.
type SignalKind int

const (
	// SignalNone: plain content, stay in the current stage and reply.
	SignalNone SignalKind = iota
	// SignalDelegate: enter the named target stage.
	SignalDelegate
	// SignalCancel: the stage completed or escalated; return to the coordinator.
	SignalCancel
	// SignalEnd: terminal content, leave the stack as-is.
	SignalEnd
)

// Signal is the machine-checkable outcome of a stage invocation, distinct
// from the free-form reply text.
type Signal struct {
	Kind       SignalKind
	Target     domain.StageID // set for SignalDelegate
	Reason     string         // set for SignalCancel
	ToolCallID string         // the tool call that produced the signal
}

// escalateArgs is the argument shape of the complete_or_escalate tool.
type escalateArgs struct {
	Cancel bool   `json:"cancel"`
	Reason string `json:"reason"`
}

// parseSignal maps the model's tool calls onto the signal variants. Only the
// first call is considered; parallel tool calls are not supported by the
// dialog graph. generate_agenda_document is handled inside the generation
// stage and never reaches the router.
func parseSignal(calls []domain.ToolCall) Signal {
	if len(calls) == 0 {
		return Signal{Kind: SignalNone}
	}
	tc := calls[0]
	switch tc.Name {
	case toolToNotesExtraction:
		return Signal{Kind: SignalDelegate, Target: domain.StageExtraction, ToolCallID: tc.ID}
	case toolToAgendaDrafting:
		return Signal{Kind: SignalDelegate, Target: domain.StageDrafting, ToolCallID: tc.ID}
	case toolToDocumentGeneration:
		return Signal{Kind: SignalDelegate, Target: domain.StageGeneration, ToolCallID: tc.ID}
	case toolCompleteOrEscalate:
		var args escalateArgs
		_ = json.Unmarshal(tc.Arguments, &args)
		return Signal{Kind: SignalCancel, Reason: args.Reason, ToolCallID: tc.ID}
	default:
		return Signal{Kind: SignalNone, ToolCallID: tc.ID}
	}
}

func escalateTool() domain.ToolDefinition {
	return domain.ToolDefinition{
		Name: toolCompleteOrEscalate,
		Description: "Mark the current task as completed and/or escalate control of the dialog " +
			"to the host assistant, who can re-route based on the user's needs.",
		Parameters: json.RawMessage(`{
			"type":"object",
			"additionalProperties":false,
			"properties":{
				"cancel":{"type":"boolean"},
				"reason":{"type":"string"}
			},
			"required":["cancel","reason"]
		}`),
	}
}

func delegationTools() []domain.ToolDefinition {
	request := json.RawMessage(`{
		"type":"object",
		"additionalProperties":false,
		"properties":{"request":{"type":"string"}},
		"required":["request"]
	}`)
	return []domain.ToolDefinition{
		{
			Name:        toolToNotesExtraction,
			Description: "Delegate to the notes extraction agent to extract and confirm metadata and agenda goals from the briefing notes.",
			Parameters:  request,
		},
		{
			Name:        toolToAgendaDrafting,
			Description: "Delegate to the agenda drafting agent to produce a detailed session agenda from the confirmed metadata and goals.",
			Parameters:  request,
		},
		{
			Name:        toolToDocumentGeneration,
			Description: "Delegate to the document generation agent to produce the final Word document for the confirmed agenda.",
			Parameters:  request,
		},
	}
}

func generateDocumentTool() domain.ToolDefinition {
	return domain.ToolDefinition{
		Name:        toolGenerateDocument,
		Description: "Generate a Microsoft Office Word document (.docx) for the confirmed agenda table provided as query.",
		Parameters: json.RawMessage(`{
			"type":"object",
			"additionalProperties":false,
			"properties":{"query":{"type":"string"}},
			"required":["query"]
		}`),
	}
}
