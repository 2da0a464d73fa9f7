package dialog

import (
	"context"
	"encoding/json"
	"time"

	"agenda-agent/internal/domain"
)

// chatStep is one scripted LLM completion: either a result or an error.
type chatStep struct {
	res domain.ChatResult
	err error
}

// scriptedLLM replays a fixed sequence of completions and records every call.
// Steps past the end of the script return empty results.
type scriptedLLM struct {
	steps []chatStep
	msgs  [][]domain.ChatMessage
	tools [][]domain.ToolDefinition
}

func (s *scriptedLLM) Chat(_ context.Context, _ string, msgs []domain.ChatMessage, tools []domain.ToolDefinition) (domain.ChatResult, error) {
	i := len(s.msgs)
	s.msgs = append(s.msgs, msgs)
	s.tools = append(s.tools, tools)
	if i >= len(s.steps) {
		return domain.ChatResult{}, nil
	}
	return s.steps[i].res, s.steps[i].err
}

func (s *scriptedLLM) calls() int { return len(s.msgs) }

// systemPrompt returns the system message of the i-th recorded call.
func (s *scriptedLLM) systemPrompt(i int) string { return s.msgs[i][0].Content }

type fakeDocGenerator struct {
	threadID  string
	threadErr error
	artifact  string
	genErr    error

	threadCalls int
	threadIDs   []string
	queries     []string
}

func (f *fakeDocGenerator) CreateThread(context.Context) (string, error) {
	f.threadCalls++
	return f.threadID, f.threadErr
}

func (f *fakeDocGenerator) Generate(_ context.Context, threadID, query string) (string, error) {
	f.threadIDs = append(f.threadIDs, threadID)
	f.queries = append(f.queries, query)
	return f.artifact, f.genErr
}

func contentResult(text string) domain.ChatResult {
	return domain.ChatResult{Content: text}
}

func toolResult(id, name, args string) domain.ChatResult {
	return domain.ChatResult{ToolCalls: []domain.ToolCall{{
		ID:        id,
		Name:      name,
		Arguments: json.RawMessage(args),
	}}}
}

func fixedNow() time.Time {
	return time.Date(2026, time.March, 5, 10, 0, 0, 0, time.UTC)
}
