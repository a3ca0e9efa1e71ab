package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/becomeliminal/nim-wallet/core"
	"github.com/becomeliminal/nim-wallet/kv"
)

// TranscriptLimit is how many chat entries the session keeps locally.
const TranscriptLimit = 50

// Backend is the part of the API a session talks to.
type Backend interface {
	Chat(ctx context.Context, req ChatRequest) (*Reply, error)
	ReportResult(ctx context.Context, req ReportRequest) (*Reply, error)
	ReportEnrichedResult(ctx context.Context, req ReportRequest) (*Reply, error)
}

// ActionHandler executes dispatched actions on the wallet.
type ActionHandler interface {
	Handle(ctx context.Context, details core.ActionDetails) core.ActionResult
}

// Store persists session data between runs.
type Store interface {
	GetJSON(ctx context.Context, key string, v interface{}) error
	SetJSON(ctx context.Context, key string, v interface{}) error
	Delete(ctx context.Context, key string) error
}

// ChatEntry is one line of the local transcript.
type ChatEntry struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Turn is what one Send produced.
type Turn struct {
	Messages []string
	Action   *core.ActionDetails
	Result   *core.ActionResult
	State    *core.ConversationState
}

// Session drives the chat loop for one wallet: it replays the conversation
// state, executes dispatched actions and reports their results back.
type Session struct {
	backend        Backend
	handler        ActionHandler
	store          Store
	network        core.Network
	conversationID string
	logger         *zap.Logger
	now            func() time.Time

	mu sync.Mutex
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithNetwork sets the network sent with every chat request.
func WithNetwork(n core.Network) SessionOption {
	return func(s *Session) { s.network = n }
}

// WithSessionLogger sets the logger. Nil keeps the no-op logger.
func WithSessionLogger(logger *zap.Logger) SessionOption {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSessionClock overrides the clock used to stamp transcript entries.
func WithSessionClock(now func() time.Time) SessionOption {
	return func(s *Session) { s.now = now }
}

// NewSession returns a Session on mainnet that keeps its conversation state
// and transcript in store.
func NewSession(backend Backend, handler ActionHandler, store Store, opts ...SessionOption) *Session {
	s := &Session{
		backend:        backend,
		handler:        handler,
		store:          store,
		network:        core.Mainnet,
		conversationID: uuid.NewString(),
		logger:         zap.NewNop(),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Send runs one user turn. An unreachable backend is not an error: the turn
// carries BackendUnavailableMessage and the saved state is left untouched.
func (s *Session) Send(ctx context.Context, text string) (*Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.loadState(ctx)
	if err != nil {
		return nil, err
	}

	reply, err := s.backend.Chat(ctx, ChatRequest{
		Message:        text,
		State:          state,
		ConversationID: s.conversationID,
		Network:        s.network,
	})
	if err != nil {
		if !errors.Is(err, ErrBackendUnavailable) {
			return nil, err
		}
		s.logger.Warn("backend unavailable", zap.Error(err))
		msg := BackendUnavailableMessage
		if reply != nil && reply.ResponseMessage != "" {
			msg = reply.ResponseMessage
		}
		turn := &Turn{Messages: []string{msg}, State: state}
		s.record(ctx, text, turn.Messages)
		return turn, nil
	}

	turn := &Turn{State: reply.NewState, Action: reply.ActionDetails}
	if reply.ResponseMessage != "" {
		turn.Messages = append(turn.Messages, reply.ResponseMessage)
	}

	if reply.ActionDetails != nil {
		s.execute(ctx, turn, *reply.ActionDetails, reply.NewState)
	}

	if err := s.saveState(ctx, turn.State); err != nil {
		return nil, err
	}
	s.record(ctx, text, turn.Messages)
	return turn, nil
}

// execute runs details on the wallet and reports the outcome. A failed
// report falls back to the handler's own message; the state is cleared
// either way so a finished action cannot be confirmed twice.
func (s *Session) execute(ctx context.Context, turn *Turn, details core.ActionDetails, state *core.ConversationState) {
	logger := s.logger.With(zap.String("action", string(details.Type)))

	result := s.handler.Handle(ctx, details)
	turn.Result = &result
	turn.State = nil

	req := ReportRequest{
		ActionType:     details.Type,
		Result:         result,
		State:          state,
		ConversationID: s.conversationID,
	}
	report := s.backend.ReportResult
	if details.Type == core.ActionFetchHistory {
		report = s.backend.ReportEnrichedResult
	}

	reply, err := report(ctx, req)
	if err != nil || reply == nil || reply.ResponseMessage == "" {
		if err != nil {
			logger.Warn("report failed", zap.Error(err))
		}
		turn.Messages = append(turn.Messages, result.ResponseMessage)
		return
	}

	turn.Messages = append(turn.Messages, reply.ResponseMessage)
	turn.State = reply.NewState
}

// Reset forgets the conversation state and starts a new conversation.
func (s *Session) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.conversationID = uuid.NewString()
	return s.store.Delete(ctx, kv.KeyConversationState)
}

// Transcript returns the saved chat entries, oldest first.
func (s *Session) Transcript(ctx context.Context) ([]ChatEntry, error) {
	var entries []ChatEntry
	err := s.store.GetJSON(ctx, kv.KeyChatHistory, &entries)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	return entries, err
}

func (s *Session) loadState(ctx context.Context) (*core.ConversationState, error) {
	var state core.ConversationState
	err := s.store.GetJSON(ctx, kv.KeyConversationState, &state)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load conversation state: %w", err)
	}
	return &state, nil
}

func (s *Session) saveState(ctx context.Context, state *core.ConversationState) error {
	if state == nil {
		return s.store.Delete(ctx, kv.KeyConversationState)
	}
	if err := s.store.SetJSON(ctx, kv.KeyConversationState, state); err != nil {
		return fmt.Errorf("save conversation state: %w", err)
	}
	return nil
}

// record appends the turn to the transcript. Transcript failures are logged
// only; they never fail a turn.
func (s *Session) record(ctx context.Context, text string, replies []string) {
	entries, err := s.Transcript(ctx)
	if err != nil {
		s.logger.Warn("load transcript", zap.Error(err))
		entries = nil
	}

	now := s.now().UTC()
	entries = append(entries, ChatEntry{Role: "user", Content: text, Timestamp: now})
	for _, r := range replies {
		entries = append(entries, ChatEntry{Role: "assistant", Content: r, Timestamp: now})
	}
	if len(entries) > TranscriptLimit {
		entries = entries[len(entries)-TranscriptLimit:]
	}

	if err := s.store.SetJSON(ctx, kv.KeyChatHistory, entries); err != nil {
		s.logger.Warn("save transcript", zap.Error(err))
	}
}
