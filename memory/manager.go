package memory

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// SimpleManager is the Manager used by the server: vector retrieval over a
// Store, embedding through an Embedder, and a small filter deciding which
// turns are worth remembering.
type SimpleManager struct {
	store    Store
	embedder Embedder
	config   *Config
	logger   *zap.Logger
}

// NewSimpleManager creates a new SimpleManager. A nil config uses DefaultConfig.
func NewSimpleManager(store Store, embedder Embedder, config *Config, logger *zap.Logger) *SimpleManager {
	if config == nil {
		config = DefaultConfig
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SimpleManager{
		store:    store,
		embedder: embedder,
		config:   config,
		logger:   logger,
	}
}

// Retrieve finds relevant memories and returns a formatted block.
func (m *SimpleManager) Retrieve(ctx context.Context, userID string, userMessage string) (string, error) {
	if !m.config.Enabled {
		return "", nil
	}

	embedding, err := m.embedder.Embed(ctx, userMessage)
	if err != nil {
		return "", fmt.Errorf("embed query: %w", err)
	}

	limit := m.config.RetrieveLimit
	if limit <= 0 {
		limit = DefaultConfig.RetrieveLimit
	}

	memories, err := m.store.Query(ctx, userID, embedding, limit, float32(m.config.MinSimilarity))
	if err != nil {
		return "", fmt.Errorf("query store: %w", err)
	}

	m.logger.Debug("retrieved memories",
		zap.String("user", userID),
		zap.Int("count", len(memories)),
		zap.String("query", truncate(userMessage, 50)))

	if len(memories) == 0 {
		return "", nil
	}
	return m.formatMemories(memories, userID, userMessage), nil
}

// RecordTurn embeds and stores a turn when it passes the filter.
func (m *SimpleManager) RecordTurn(ctx context.Context, userID string, turn *Turn) error {
	if !m.config.Enabled || turn == nil {
		return nil
	}
	if !m.worthStoring(turn) {
		m.logger.Debug("turn not worth storing", zap.String("action", turn.Action))
		return nil
	}
	if m.config.MaxMemoriesPerUser > 0 && m.store.Count(userID) >= m.config.MaxMemoriesPerUser {
		m.logger.Info("memory cap reached, skipping turn", zap.String("user", userID))
		return nil
	}

	mem := NewTurnMemory(userID, turn)

	embedding, err := m.embedder.Embed(ctx, mem.FormatForEmbedding())
	if err != nil {
		return fmt.Errorf("embed turn: %w", err)
	}
	mem.SetEmbedding(embedding)

	if err := m.store.Store(ctx, mem); err != nil {
		return fmt.Errorf("store turn: %w", err)
	}

	m.logger.Debug("stored turn", zap.String("user", userID), zap.String("action", turn.Action))
	return nil
}

func (m *SimpleManager) formatMemories(memories []Memory, userID string, query string) string {
	parts := []string{"=== RELEVANT PAST CONVERSATIONS ===\n"}

	maxLengthPerMemory := 2000 / len(memories)
	if maxLengthPerMemory < 100 {
		maxLengthPerMemory = 100
	}

	for i, mem := range memories {
		formatted := mem.Format(FormatContext{
			UserID:    userID,
			Query:     query,
			MaxLength: maxLengthPerMemory,
		})
		parts = append(parts, fmt.Sprintf("%d. %s\n", i+1, formatted))
	}

	return strings.Join(parts, "\n")
}

// worthStoring keeps turns that carry information about the user's habits:
// executed actions, failures, and sends (recipients and amounts). Greetings
// and short clarifications are dropped.
func (m *SimpleManager) worthStoring(turn *Turn) bool {
	if turn.Dispatched || turn.Failed {
		return true
	}
	switch turn.Action {
	case "SEND", "SWAP":
		return true
	case "GREETING":
		return false
	}
	return len(turn.UserMessage) > 30
}

// Config holds SimpleManager configuration.
type Config struct {
	// Enabled toggles the memory system. Default: false (opt-in).
	Enabled bool

	// MinSimilarity is the minimum cosine similarity for retrieval [0.0-1.0].
	MinSimilarity float64

	// RetrieveLimit is how many memories are injected at most.
	RetrieveLimit int

	// MaxMemoriesPerUser caps stored memories per user.
	MaxMemoriesPerUser int
}

// DefaultConfig returns the defaults used when no config is given.
var DefaultConfig = &Config{
	Enabled:            false,
	MinSimilarity:      0.5,
	RetrieveLimit:      5,
	MaxMemoriesPerUser: 1000,
}
