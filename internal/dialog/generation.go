package dialog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"agenda-agent/internal/domain"
)

const (
	// maxToolRounds bounds the generate-then-summarize loop within one turn.
	maxToolRounds = 3

	// docgenApology is the fixed user-facing reply when the document
	// collaborator fails. The raw error is logged, never surfaced.
	docgenApology = "Sorry, I am unable to generate the document at the moment. Please try again later."
)

type generateArgs struct {
	Query string `json:"query"`
}

// generationStage produces the final Word document by offering the document
// generator as a tool and executing the call it receives back.
type generationStage struct {
	llm    LLMClient
	docgen DocGenerator
	model  string
	now    func() time.Time
}

func (g *generationStage) Stage() domain.StageID { return domain.StageGeneration }

func (g *generationStage) Invoke(ctx context.Context, sess *domain.Session) (Outcome, error) {
	threadID, working, err := g.ensureThread(ctx, sess)
	if err != nil {
		slog.Error("docgen thread creation failed", "sessionId", sess.SessionID, "err", err)
		return Outcome{
			Messages: []domain.ChatMessage{{Role: domain.RoleAssistant, Content: docgenApology}},
			Reply:    docgenApology,
		}, nil
	}

	tools := []domain.ToolDefinition{generateDocumentTool(), escalateTool()}
	history := append([]domain.ChatMessage(nil), sess.Messages...)
	appended := make([]domain.ChatMessage, 0, 2*maxToolRounds)

	for round := 0; round < maxToolRounds; round++ {
		res, ok, err := runChat(ctx, g.llm, g.model, withTime(generationPrompt, g.now()), history, tools)
		if err != nil {
			return Outcome{}, fmt.Errorf("dialog: generation chat: %w", err)
		}
		if !ok {
			out := fallbackOutcome()
			out.Messages = append(appended, out.Messages...)
			out.Working = working
			return out, nil
		}

		assistant := domain.ChatMessage{Role: domain.RoleAssistant, Content: res.Content, ToolCalls: res.ToolCalls}
		appended = append(appended, assistant)
		history = append(history, assistant)

		signal := parseSignal(res.ToolCalls)
		if len(res.ToolCalls) == 0 || res.ToolCalls[0].Name != toolGenerateDocument {
			return Outcome{
				Messages: appended,
				Working:  working,
				Signal:   signal,
				Reply:    res.Content,
			}, nil
		}

		var args generateArgs
		_ = json.Unmarshal(res.ToolCalls[0].Arguments, &args)

		artifact, genErr := g.docgen.Generate(ctx, threadID, args.Query)
		if genErr != nil {
			// Stack and working data stay untouched; the transport never
			// sees the raw failure.
			slog.Error("document generation failed", "sessionId", sess.SessionID, "err", genErr)
			appended = append(appended, domain.ChatMessage{
				Role:       domain.RoleTool,
				Content:    docgenApology,
				ToolCallID: res.ToolCalls[0].ID,
			})
			return Outcome{Messages: appended, Reply: docgenApology}, nil
		}

		toolMsg := domain.ChatMessage{
			Role:       domain.RoleTool,
			Content:    artifact,
			ToolCallID: res.ToolCalls[0].ID,
		}
		appended = append(appended, toolMsg)
		history = append(history, toolMsg)
		// Loop once more so the model phrases the final reply around the
		// generated artifact.
	}

	// Tool-round budget exhausted: surface the newest tool result directly.
	last := appended[len(appended)-1]
	return Outcome{
		Messages: appended,
		Working:  working,
		Signal:   Signal{Kind: SignalEnd},
		Reply:    last.Content,
	}, nil
}

// ensureThread returns the provider thread for this session, creating one
// lazily and recording it in working data.
func (g *generationStage) ensureThread(ctx context.Context, sess *domain.Session) (string, map[string]string, error) {
	if id := sess.WorkingData[domain.KeyDocThreadID]; id != "" {
		return id, nil, nil
	}
	id, err := g.docgen.CreateThread(ctx)
	if err != nil {
		return "", nil, err
	}
	return id, map[string]string{domain.KeyDocThreadID: id}, nil
}
