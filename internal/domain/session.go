package domain

import "time"

// StageID names a conversational sub-task in the dialog graph.
type StageID string

const (
	StageCoordinator StageID = "coordinator"
	StageExtraction  StageID = "notes_extraction"
	StageDrafting    StageID = "agenda_drafting"
	StageGeneration  StageID = "document_generation"
)

// Working-data keys shared across stages. Keys are stage-scoped by
// convention; there are no cross-stage collisions today.
const (
	KeyUserName       = "user_name"
	KeyEngagementType = "engagement_type"
	KeyAgendaTemplate = "agenda_template"
	KeyDocThreadID    = "doc_thread_id"
)

// Session carries one end-user conversation thread across turns: the
// append-only message history, the dialog stack, and stage-scoped working
// data. It is persisted between turns by the checkpoint store.
type Session struct {
	SessionID    string            `json:"sessionId"`
	Messages     []ChatMessage     `json:"messages"`
	DialogStack  []StageID         `json:"dialogStack"`
	WorkingData  map[string]string `json:"workingData"`
	Turns        int               `json:"turns"`
	StartedAt    time.Time         `json:"startedAt"`
	LastActivity time.Time         `json:"lastActivity"`
}

// NewSession returns a fresh session with the coordinator at the bottom of
// the dialog stack.
func NewSession(sessionID string, now time.Time) Session {
	return Session{
		SessionID:    sessionID,
		DialogStack:  []StageID{StageCoordinator},
		WorkingData:  map[string]string{},
		StartedAt:    now,
		LastActivity: now,
	}
}

// ActiveStage returns the top of the dialog stack, or the coordinator when
// the stack is empty.
func (s *Session) ActiveStage() StageID {
	if len(s.DialogStack) == 0 {
		return StageCoordinator
	}
	return s.DialogStack[len(s.DialogStack)-1]
}

// PushStage enters a delegated stage.
func (s *Session) PushStage(stage StageID) {
	if len(s.DialogStack) == 0 {
		s.DialogStack = []StageID{StageCoordinator}
	}
	s.DialogStack = append(s.DialogStack, stage)
}

// PopStage returns control to the caller stage. Popping at or below the
// coordinator is a no-op: the coordinator is never removed.
func (s *Session) PopStage() {
	if len(s.DialogStack) <= 1 {
		return
	}
	s.DialogStack = s.DialogStack[:len(s.DialogStack)-1]
}

// StackDepth reports the current dialog stack depth, counting the implicit
// coordinator when the stack is empty.
func (s *Session) StackDepth() int {
	if len(s.DialogStack) == 0 {
		return 1
	}
	return len(s.DialogStack)
}

// Append adds messages to the history. The history grows monotonically and
// is never reordered.
func (s *Session) Append(msgs ...ChatMessage) {
	s.Messages = append(s.Messages, msgs...)
}

// MergeWorking applies working-data updates with last-write-wins semantics
// per key.
func (s *Session) MergeWorking(updates map[string]string) {
	if len(updates) == 0 {
		return
	}
	if s.WorkingData == nil {
		s.WorkingData = map[string]string{}
	}
	for k, v := range updates {
		s.WorkingData[k] = v
	}
}

// Stale reports whether the session has been inactive longer than the idle
// threshold and should be reset before processing the next turn.
func (s *Session) Stale(now time.Time, idle time.Duration) bool {
	if s.LastActivity.IsZero() {
		return false
	}
	return now.Sub(s.LastActivity) > idle
}
