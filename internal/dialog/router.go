package dialog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"agenda-agent/internal/agenda"
	"agenda-agent/internal/domain"
)

const (
	// maxTransitions bounds stage hops within one turn. A normal turn uses
	// at most three (coordinator -> delegate -> specialist).
	maxTransitions = 8

	// maxStackDepth: coordinator plus one active specialist. Specialists
	// never delegate to each other directly; control always returns to the
	// coordinator first.
	maxStackDepth = 2
)

// Config carries everything the router and its stage handlers need beyond
// their collaborators.
type Config struct {
	Model          string
	UnmappedPolicy agenda.UnmappedPolicy
	HubMaster      func(ctx context.Context) string
	Now            func() time.Time
}

// Router owns the stage handlers and the per-turn transition loop: it looks
// up the active stage, invokes it, merges its outcome, and applies the
// resulting signal to the dialog stack.
type Router struct {
	handlers map[domain.StageID]Handler
}

// NewRouter wires the four stage handlers around the given collaborators.
func NewRouter(llm LLMClient, docgen DocGenerator, cfg Config) (*Router, error) {
	if llm == nil {
		return nil, errors.New("dialog: llm client must not be nil")
	}
	if docgen == nil {
		return nil, errors.New("dialog: document generator must not be nil")
	}
	if cfg.Model == "" {
		return nil, errors.New("dialog: model must not be empty")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.UnmappedPolicy == "" {
		cfg.UnmappedPolicy = agenda.UnmappedUseDefault
	}
	handlers := []Handler{
		&coordinatorStage{llm: llm, model: cfg.Model, now: cfg.Now},
		&extractionStage{llm: llm, model: cfg.Model, now: cfg.Now},
		&draftingStage{llm: llm, model: cfg.Model, now: cfg.Now, policy: cfg.UnmappedPolicy, hubMaster: cfg.HubMaster},
		&generationStage{llm: llm, docgen: docgen, model: cfg.Model, now: cfg.Now},
	}
	byID := make(map[domain.StageID]Handler, len(handlers))
	for _, h := range handlers {
		byID[h.Stage()] = h
	}
	return &Router{handlers: byID}, nil
}

// Route processes one inbound turn to completion: any number of internal
// stage transitions happen here before the reply goes back to the caller.
// The user message must already be appended to the session.
func (r *Router) Route(ctx context.Context, sess *domain.Session) (string, error) {
	for i := 0; i < maxTransitions; i++ {
		active := sess.ActiveStage()
		h, ok := r.handlers[active]
		if !ok {
			return "", fmt.Errorf("dialog: no handler for stage %q", active)
		}

		out, err := h.Invoke(ctx, sess)
		if err != nil {
			return "", err
		}
		sess.Append(out.Messages...)
		sess.MergeWorking(out.Working)

		switch out.Signal.Kind {
		case SignalNone, SignalEnd:
			return out.Reply, nil

		case SignalDelegate:
			// Depth is capped at coordinator + one specialist; a delegation
			// while a specialist is active returns control first.
			for sess.StackDepth() >= maxStackDepth {
				sess.PopStage()
			}
			sess.PushStage(out.Signal.Target)
			sess.Append(handoffMessage(stageName(out.Signal.Target), out.Signal.ToolCallID))

		case SignalCancel:
			if active == domain.StageExtraction {
				r.recordClassification(sess)
			}
			sess.PopStage()
			sess.Append(resumeMessage(out.Signal.ToolCallID))
			slog.Debug("stage escalated to coordinator", "sessionId", sess.SessionID, "from", active, "reason", out.Signal.Reason)
		}
	}
	return "", fmt.Errorf("dialog: transition limit reached for session %s", sess.SessionID)
}

// recordClassification runs the classification extraction sub-step when the
// extraction stage hands back control: the labeled engagement type is parsed
// out of the history, validated, and used to pre-select the drafting
// template. The update is merged like any other working-data record rather
// than mutated in place mid-route.
func (r *Router) recordClassification(sess *domain.Session) {
	etype := classifyFromHistory(sess.Messages)
	updates := map[string]string{domain.KeyEngagementType: string(etype)}
	if tpl, ok := agenda.TemplateFor(etype); ok {
		updates[domain.KeyAgendaTemplate] = tpl
	}
	sess.MergeWorking(updates)
}
