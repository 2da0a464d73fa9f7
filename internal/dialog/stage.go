package dialog

import (
	"context"
	"fmt"
	"time"

	"agenda-agent/internal/agenda"
	"agenda-agent/internal/domain"
)

const (
	// maxEmptyAttempts bounds the "respond with a real output" re-prompt
	// loop. Without a bound an uncooperative model stalls the turn forever.
	maxEmptyAttempts = 3

	// rePromptText nudges the model after an empty completion.
	rePromptText = "Respond with a real output."

	// fallbackReply is surfaced when the model stays empty past the bound.
	fallbackReply = "I was unable to come up with a useful response just now. Could you rephrase or try again?"

	// templateChoiceReply is surfaced when a valid engagement type has no
	// agenda template and the unmapped policy defers to the user.
	templateChoiceReply = "There is no dedicated agenda template for this engagement type. " +
		"Shall I draft the agenda using the standard solution envisioning format, or would you like to describe the structure you need?"
)

// LLMClient is the text-generation collaborator consumed by stage handlers.
type LLMClient interface {
	Chat(ctx context.Context, model string, msgs []domain.ChatMessage, tools []domain.ToolDefinition) (domain.ChatResult, error)
}

// DocGenerator is the document-generation collaborator consumed by the
// generation stage.
type DocGenerator interface {
	CreateThread(ctx context.Context) (string, error)
	Generate(ctx context.Context, threadID, query string) (string, error)
}

// Outcome is the immutable update record a stage handler returns. The router
// merges it into the session: messages append, working data last-write-wins.
type Outcome struct {
	Messages []domain.ChatMessage
	Working  map[string]string
	Signal   Signal
	Reply    string
}

// Handler is one conversation stage.
type Handler interface {
	Stage() domain.StageID
	Invoke(ctx context.Context, sess *domain.Session) (Outcome, error)
}

// runChat performs the bounded completion loop shared by all stages: empty
// results trigger a local re-prompt that is never persisted into the session.
// The second return is false when the model stayed empty past the bound.
func runChat(ctx context.Context, llm LLMClient, model, system string, history []domain.ChatMessage, tools []domain.ToolDefinition) (domain.ChatResult, bool, error) {
	msgs := make([]domain.ChatMessage, 0, len(history)+1+maxEmptyAttempts)
	msgs = append(msgs, domain.ChatMessage{Role: domain.RoleSystem, Content: system})
	msgs = append(msgs, history...)

	for attempt := 0; attempt < maxEmptyAttempts; attempt++ {
		res, err := llm.Chat(ctx, model, msgs, tools)
		if err != nil {
			return domain.ChatResult{}, false, err
		}
		if !res.Empty() {
			return res, true, nil
		}
		msgs = append(msgs, domain.ChatMessage{Role: domain.RoleUser, Content: rePromptText})
	}
	return domain.ChatResult{}, false, nil
}

// fallbackOutcome records the fallback reply in the history so the model
// sees it on the next turn.
func fallbackOutcome() Outcome {
	return Outcome{
		Messages: []domain.ChatMessage{{Role: domain.RoleAssistant, Content: fallbackReply}},
		Reply:    fallbackReply,
	}
}

// resultOutcome turns a non-empty chat result into the standard outcome:
// the assistant message is appended and tool calls become the signal.
func resultOutcome(res domain.ChatResult) Outcome {
	return Outcome{
		Messages: []domain.ChatMessage{{
			Role:      domain.RoleAssistant,
			Content:   res.Content,
			ToolCalls: res.ToolCalls,
		}},
		Signal: parseSignal(res.ToolCalls),
		Reply:  res.Content,
	}
}

// coordinatorStage interprets user intent and delegates to the specialist
// stages; on resumed turns it simply continues the conversation.
type coordinatorStage struct {
	llm   LLMClient
	model string
	now   func() time.Time
}

func (c *coordinatorStage) Stage() domain.StageID { return domain.StageCoordinator }

func (c *coordinatorStage) Invoke(ctx context.Context, sess *domain.Session) (Outcome, error) {
	res, ok, err := runChat(ctx, c.llm, c.model, withTime(coordinatorPrompt, c.now()), sess.Messages, delegationTools())
	if err != nil {
		return Outcome{}, fmt.Errorf("dialog: coordinator chat: %w", err)
	}
	if !ok {
		return fallbackOutcome(), nil
	}
	return resultOutcome(res), nil
}

// extractionStage walks the user through metadata and goal confirmation and
// emits the labeled classification line when done.
type extractionStage struct {
	llm   LLMClient
	model string
	now   func() time.Time
}

func (e *extractionStage) Stage() domain.StageID { return domain.StageExtraction }

func (e *extractionStage) Invoke(ctx context.Context, sess *domain.Session) (Outcome, error) {
	tools := []domain.ToolDefinition{escalateTool()}
	res, ok, err := runChat(ctx, e.llm, e.model, withTime(extractionPrompt, e.now()), sess.Messages, tools)
	if err != nil {
		return Outcome{}, fmt.Errorf("dialog: extraction chat: %w", err)
	}
	if !ok {
		return fallbackOutcome(), nil
	}
	return resultOutcome(res), nil
}

// draftingStage turns confirmed metadata and goals into an agenda table using
// the template selected for the classified engagement type.
type draftingStage struct {
	llm       LLMClient
	model     string
	now       func() time.Time
	policy    agenda.UnmappedPolicy
	hubMaster func(ctx context.Context) string
}

func (d *draftingStage) Stage() domain.StageID { return domain.StageDrafting }

func (d *draftingStage) Invoke(ctx context.Context, sess *domain.Session) (Outcome, error) {
	template, working := d.resolveTemplate(sess)
	if template == "" {
		// Unmapped engagement type with the ask-user policy: stay in the
		// stage and let the user decide.
		return Outcome{
			Messages: []domain.ChatMessage{{Role: domain.RoleAssistant, Content: templateChoiceReply}},
			Working:  working,
			Reply:    templateChoiceReply,
		}, nil
	}

	system := withTemplate(draftingPrompt, template)
	if d.hubMaster != nil {
		if data := d.hubMaster(ctx); data != "" {
			system += "\n\nHub master data for speaker and facility lookups:\n" + data
		}
	}

	tools := []domain.ToolDefinition{escalateTool()}
	res, ok, err := runChat(ctx, d.llm, d.model, withTime(system, d.now()), sess.Messages, tools)
	if err != nil {
		return Outcome{}, fmt.Errorf("dialog: drafting chat: %w", err)
	}
	if !ok {
		return fallbackOutcome(), nil
	}
	out := resultOutcome(res)
	out.Working = working
	return out, nil
}

// resolveTemplate prefers the template recorded in working data, falling back
// to classifying the history directly when the user enters drafting without
// having gone through extraction this session.
func (d *draftingStage) resolveTemplate(sess *domain.Session) (string, map[string]string) {
	if tpl := sess.WorkingData[domain.KeyAgendaTemplate]; tpl != "" {
		return tpl, nil
	}
	etype := agenda.EngagementType(sess.WorkingData[domain.KeyEngagementType])
	if etype == "" {
		etype = classifyFromHistory(sess.Messages)
	}
	working := map[string]string{domain.KeyEngagementType: string(etype)}
	tpl, ok := agenda.ResolveTemplate(etype, d.policy)
	if !ok {
		return "", working
	}
	working[domain.KeyAgendaTemplate] = tpl
	return tpl, working
}

// classifyFromHistory runs classification extraction over the newest message
// carrying the classification label. Absent labels yield the default type.
func classifyFromHistory(msgs []domain.ChatMessage) agenda.EngagementType {
	for i := len(msgs) - 1; i >= 0; i-- {
		if t, found := agenda.ExtractEngagementType(msgs[i].Content); found {
			return t
		}
	}
	return agenda.DefaultEngagementType
}
