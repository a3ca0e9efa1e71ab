package memory

import (
	"context"
	"time"
)

// Memory is the core interface for all memory types.
// TurnMemory is the only implementation shipped here; the interface keeps the
// store independent of what a memory contains.
type Memory interface {
	// Identity & Ownership
	ID() string
	OwnerID() string        // User ID (empty = global memory)
	ConversationID() string // Conversation ID (empty = not conversation-specific)
	Type() string           // Memory type identifier, e.g. "turn"

	// Content & Metadata
	Content() interface{}
	Metadata() map[string]interface{}

	CreatedAt() time.Time

	Format(ctx FormatContext) string // Formats this memory for prompt injection
	Embedding() []float32
	SetEmbedding([]float32)
}

// FormatContext provides context for memory formatting.
type FormatContext struct {
	UserID    string
	Query     string
	MaxLength int // Max characters for this memory's output
}

// Turn is one finished exchange as seen by the dispatcher.
type Turn struct {
	ConversationID string
	UserMessage    string
	Reply          string
	Action         string // core.Action tag the model chose
	Thought        string
	Dispatched     bool // an executable action was handed to the wallet
	Failed         bool // the reply was an apology or error
}

// Manager orchestrates memory operations. This is the interface the engine uses.
//
// The engine decides WHEN memory is touched (before the model call, after the
// reply); the Manager decides HOW: what to retrieve, how to format it, which
// turns are worth keeping.
type Manager interface {
	// Retrieve finds relevant memories for the user's message and returns a
	// formatted block ready for prompt injection, or "" when nothing matched.
	Retrieve(ctx context.Context, userID string, userMessage string) (string, error)

	// RecordTurn stores a finished exchange if the Manager judges it useful.
	RecordTurn(ctx context.Context, userID string, turn *Turn) error
}

// Store is the vector storage backend interface.
type Store interface {
	// Store saves a memory. The embedding must be set before calling Store.
	Store(ctx context.Context, mem Memory) error

	// Query retrieves memories by vector similarity, highest first.
	// Results below minSimilarity are dropped.
	Query(ctx context.Context, userID string, embedding []float32, limit int, minSimilarity float32) ([]Memory, error)

	// Count returns how many memories a user has.
	Count(userID string) int

	Close() error
}

// Embedder converts text to vector embeddings.
// Embedder is an implementation detail of Manager; the engine never sees it.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}
