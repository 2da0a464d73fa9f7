package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"agenda-agent/internal/agenda"
	"agenda-agent/internal/dialog"
	"agenda-agent/internal/domain"
)

const (
	defaultMaxMessageLen = 8000
	defaultIdleTimeout   = 10 * time.Minute

	// promptedForNameKey flags that the greeting asked for the user's name
	// and the next message should be read as the answer.
	promptedForNameKey = "prompted_for_user_name"

	greetingPrompt = "I am TA Buddy representing the Microsoft Innovation Hub. I can help you process briefing call notes to produce agenda documents. Can you help me with your name?"
)

type ParamGetter interface {
	GetParameter(ctx context.Context, name string) (string, error)
	GetParameterOrDefault(ctx context.Context, name, def string) (string, error)
}

type LLMClient interface {
	Chat(ctx context.Context, model string, msgs []domain.ChatMessage, tools []domain.ToolDefinition) (domain.ChatResult, error)
	Moderate(ctx context.Context, input string) (bool, error)
}

type DocGenerator interface {
	CreateThread(ctx context.Context) (string, error)
	Generate(ctx context.Context, threadID, query string) (string, error)
}

type CheckpointStore interface {
	Load(ctx context.Context, sessionID string) (domain.Session, bool, error)
	Save(ctx context.Context, sess domain.Session) error
}

type HubReader interface {
	HubData(ctx context.Context, city string) (string, error)
}

type httpStatusCoder interface {
	HTTPStatusCode() int
}

// ConverseService processes one chat turn end to end: session load, staleness
// reset, greeting flow, moderation, dialog routing, and checkpointing.
type ConverseService struct {
	params        ParamGetter
	llm           LLMClient
	docgen        DocGenerator
	state         CheckpointStore
	hub           HubReader
	paramPrefix   string
	maxMessageLen int
	idleTimeout   time.Duration

	cacheMu     sync.RWMutex
	cacheLoaded bool
	model       string
	hubCity     string
	router      *dialog.Router
}

type ConverseInput struct {
	Message   string
	SessionID string
}

type ConverseOutput struct {
	Reply     string
	SessionID string
}

func NewConverseService(p ParamGetter, llm LLMClient, dg DocGenerator, s CheckpointStore, hub HubReader, paramPrefix string, maxMessageLen int, idleTimeout time.Duration) (*ConverseService, error) {
	if p == nil {
		return nil, errors.New("usecase: param getter must not be nil")
	}
	if llm == nil {
		return nil, errors.New("usecase: llm client must not be nil")
	}
	if dg == nil {
		return nil, errors.New("usecase: document generator must not be nil")
	}
	if s == nil {
		return nil, errors.New("usecase: checkpoint store must not be nil")
	}
	paramPrefix = strings.TrimRight(strings.TrimSpace(paramPrefix), "/")
	if paramPrefix == "" {
		return nil, errors.New("usecase: parameter prefix must not be empty")
	}
	if maxMessageLen <= 0 {
		maxMessageLen = defaultMaxMessageLen
	}
	if idleTimeout <= 0 {
		idleTimeout = defaultIdleTimeout
	}
	return &ConverseService{
		params:        p,
		llm:           llm,
		docgen:        dg,
		state:         s,
		hub:           hub,
		paramPrefix:   paramPrefix,
		maxMessageLen: maxMessageLen,
		idleTimeout:   idleTimeout,
	}, nil
}

func (s *ConverseService) Converse(ctx context.Context, in ConverseInput) (ConverseOutput, error) {
	message := strings.TrimSpace(in.Message)
	if message == "" {
		return ConverseOutput{}, newError(ErrorInvalidInput, "empty_message", nil)
	}
	if len(message) > s.maxMessageLen {
		return ConverseOutput{}, newError(ErrorInvalidInput, "message_too_long", nil)
	}
	if err := s.ensureConfig(ctx); err != nil {
		return ConverseOutput{}, newError(ErrorInternal, "ssm_load_error", err)
	}

	now := timeNow()
	sess, err := s.loadSession(ctx, strings.TrimSpace(in.SessionID), now)
	if err != nil {
		return ConverseOutput{}, newError(ErrorInternal, "checkpoint_load_error", err)
	}

	// First-contact greeting: capture the user's name before entering the
	// workflow.
	if reply, done := s.greetingTurn(&sess, message); done {
		sess.LastActivity = now
		if err := s.state.Save(ctx, sess); err != nil {
			return ConverseOutput{}, newError(ErrorInternal, "checkpoint_save_error", err)
		}
		return ConverseOutput{Reply: reply, SessionID: sess.SessionID}, nil
	}

	flagged, err := s.llm.Moderate(ctx, message)
	if err != nil {
		if status, ok := upstreamStatusCode(err); ok && status == 429 {
			return ConverseOutput{}, newError(ErrorRateLimited, "moderation_rate_limited", err)
		}
		return ConverseOutput{}, newError(ErrorUpstream, "moderation_error", err)
	}
	if flagged {
		return ConverseOutput{}, newError(ErrorInvalidMessage, "moderation_flagged", nil)
	}

	sess.Append(domain.ChatMessage{Role: domain.RoleUser, Content: message})
	reply, err := s.router.Route(ctx, &sess)
	if err != nil {
		if status, ok := upstreamStatusCode(err); ok {
			if status == 429 {
				return ConverseOutput{}, newError(ErrorRateLimited, "openai_rate_limited", err)
			}
			return ConverseOutput{}, newError(ErrorUpstream, "openai_error", err)
		}
		return ConverseOutput{}, newError(ErrorInternal, "dialog_error", err)
	}

	sess.LastActivity = timeNow()
	sess.Turns++
	if err := s.state.Save(ctx, sess); err != nil {
		return ConverseOutput{}, newError(ErrorInternal, "checkpoint_save_error", err)
	}

	return ConverseOutput{Reply: reply, SessionID: sess.SessionID}, nil
}

// loadSession returns the checkpointed session, a reset one when it has gone
// stale, or a fresh one when no checkpoint (or no identifier) exists.
func (s *ConverseService) loadSession(ctx context.Context, sessionID string, now time.Time) (domain.Session, error) {
	if sessionID == "" {
		return domain.NewSession(newUUID(), now), nil
	}
	sess, found, err := s.state.Load(ctx, sessionID)
	if err != nil {
		return domain.Session{}, err
	}
	if !found {
		return domain.NewSession(sessionID, now), nil
	}
	if sess.Stale(now, s.idleTimeout) {
		slog.Debug("session idle past threshold, resetting", "sessionId", sessionID)
		return domain.NewSession(sessionID, now), nil
	}
	return sess, nil
}

// greetingTurn handles the name-capture exchange. It reports whether the
// turn was consumed by the greeting flow.
func (s *ConverseService) greetingTurn(sess *domain.Session, message string) (string, bool) {
	if sess.WorkingData[domain.KeyUserName] != "" {
		return "", false
	}
	if sess.WorkingData[promptedForNameKey] == "true" {
		sess.MergeWorking(map[string]string{
			domain.KeyUserName: message,
			promptedForNameKey: "",
		})
		return fmt.Sprintf("Thanks %s. Let me know how I can help you today.", message), true
	}
	sess.MergeWorking(map[string]string{promptedForNameKey: "true"})
	return greetingPrompt, true
}

func (s *ConverseService) ensureConfig(ctx context.Context) error {
	s.cacheMu.RLock()
	if s.cacheLoaded {
		s.cacheMu.RUnlock()
		return nil
	}
	s.cacheMu.RUnlock()

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if s.cacheLoaded {
		return nil
	}

	prefix := s.paramPrefix
	model, err := s.params.GetParameter(ctx, prefix+"/config/openai_model")
	if err != nil {
		return fmt.Errorf("usecase: load openai model: %w", err)
	}
	policy, err := s.params.GetParameterOrDefault(ctx, prefix+"/config/unmapped_template_policy", string(agenda.UnmappedUseDefault))
	if err != nil {
		return fmt.Errorf("usecase: load unmapped template policy: %w", err)
	}
	hubCity, err := s.params.GetParameterOrDefault(ctx, prefix+"/config/hub_city", "Bengaluru")
	if err != nil {
		return fmt.Errorf("usecase: load hub city: %w", err)
	}

	router, err := dialog.NewRouter(s.llm, s.docgen, dialog.Config{
		Model:          model,
		UnmappedPolicy: agenda.UnmappedPolicy(policy),
		HubMaster:      s.hubMasterContext,
	})
	if err != nil {
		return fmt.Errorf("usecase: build router: %w", err)
	}

	s.model = model
	s.hubCity = hubCity
	s.router = router
	s.cacheLoaded = true
	return nil
}

// hubMasterContext fetches hub master data for the configured city. A read
// failure degrades to drafting without it.
func (s *ConverseService) hubMasterContext(ctx context.Context) string {
	if s.hub == nil {
		return ""
	}
	data, err := s.hub.HubData(ctx, s.hubCity)
	if err != nil {
		slog.Warn("hub master data unavailable", "city", s.hubCity, "err", err)
		return ""
	}
	return data
}

func upstreamStatusCode(err error) (int, bool) {
	var statusErr httpStatusCoder
	if !errors.As(err, &statusErr) {
		return 0, false
	}
	return statusErr.HTTPStatusCode(), true
}

var newUUID = func() string {
	return uuid.NewString()
}

var timeNow = time.Now
