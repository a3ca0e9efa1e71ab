package chromem

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	chromem "github.com/philippgille/chromem-go"
	"go.uber.org/zap"

	"github.com/becomeliminal/nim-wallet/memory"
)

// ChromemStore wraps chromem-go for vector storage.
// chromem-go is a pure Go, embedded vector database.
type ChromemStore struct {
	db          *chromem.DB
	collections map[string]*chromem.Collection // per-user collections
	mu          sync.RWMutex
	logger      *zap.Logger
}

// New creates an in-memory store. With a non-empty path the database is
// persisted to that directory (gob files) and survives restarts.
func New(path string, logger *zap.Logger) (*ChromemStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db := chromem.NewDB()
	if path != "" {
		var err error
		db, err = chromem.NewPersistentDB(path, false)
		if err != nil {
			return nil, fmt.Errorf("open chromem db: %w", err)
		}
	}

	return &ChromemStore{
		db:          db,
		collections: make(map[string]*chromem.Collection),
		logger:      logger,
	}, nil
}

// getOrCreateCollection returns the collection for a user.
func (s *ChromemStore) getOrCreateCollection(userID string) (*chromem.Collection, error) {
	s.mu.RLock()
	col, exists := s.collections[userID]
	s.mu.RUnlock()

	if exists {
		return col, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Double-check after acquiring write lock
	if col, exists := s.collections[userID]; exists {
		return col, nil
	}

	collectionName := fmt.Sprintf("user_%s", userID)
	if userID == "" {
		collectionName = "global"
	}

	// We provide embeddings ourselves; default cosine distance.
	col, err := s.db.GetOrCreateCollection(collectionName, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	s.collections[userID] = col
	return col, nil
}

// Store saves a memory with its embedding.
func (s *ChromemStore) Store(ctx context.Context, mem memory.Memory) error {
	col, err := s.getOrCreateCollection(mem.OwnerID())
	if err != nil {
		return err
	}

	stored, err := serializeMemory(mem)
	if err != nil {
		return fmt.Errorf("serialize memory: %w", err)
	}

	doc := chromem.Document{
		ID:        mem.ID(),
		Content:   stored.ContentJSON,
		Embedding: mem.Embedding(),
		Metadata:  stored.Metadata,
	}
	if err := col.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("add document: %w", err)
	}

	s.logger.Debug("stored memory",
		zap.String("id", mem.ID()),
		zap.String("owner", mem.OwnerID()),
		zap.String("type", mem.Type()))
	return nil
}

// Query retrieves memories by vector similarity.
func (s *ChromemStore) Query(ctx context.Context, userID string, embedding []float32, limit int, minSimilarity float32) ([]memory.Memory, error) {
	col, err := s.getOrCreateCollection(userID)
	if err != nil {
		return nil, err
	}

	// chromem-go requires nResults <= collection size.
	if n := col.Count(); limit > n {
		limit = n
	}
	if limit <= 0 {
		return nil, nil
	}

	where := map[string]string{"owner_id": userID}
	results, err := col.QueryEmbedding(ctx, embedding, limit, where, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	var memories []memory.Memory
	for i, result := range results {
		if result.Similarity < minSimilarity {
			continue
		}
		mem, err := deserializeMemory(result)
		if err != nil {
			s.logger.Warn("skipping stored memory", zap.Int("index", i), zap.Error(err))
			continue
		}
		memories = append(memories, mem)
	}

	return memories, nil
}

// Count returns how many memories the user has stored.
func (s *ChromemStore) Count(userID string) int {
	col, err := s.getOrCreateCollection(userID)
	if err != nil {
		return 0
	}
	return col.Count()
}

// Close releases resources. chromem keeps everything in memory or flushes
// on write, so there is nothing to do.
func (s *ChromemStore) Close() error {
	return nil
}

// StoredMemory represents a serialized memory for storage.
type StoredMemory struct {
	Type        string
	ContentJSON string
	Metadata    map[string]string
}

func serializeMemory(mem memory.Memory) (*StoredMemory, error) {
	contentBytes, err := json.Marshal(mem.Content())
	if err != nil {
		return nil, fmt.Errorf("marshal content: %w", err)
	}

	metadata := map[string]string{
		"type":            mem.Type(),
		"owner_id":        mem.OwnerID(),
		"conversation_id": mem.ConversationID(),
		"created_at":      mem.CreatedAt().Format(time.RFC3339),
	}

	for k, v := range mem.Metadata() {
		if str, ok := v.(string); ok {
			metadata[k] = str
			continue
		}
		if bytes, err := json.Marshal(v); err == nil {
			metadata[k] = string(bytes)
		}
	}

	return &StoredMemory{
		Type:        mem.Type(),
		ContentJSON: string(contentBytes),
		Metadata:    metadata,
	}, nil
}

func deserializeMemory(result chromem.Result) (memory.Memory, error) {
	switch memType := result.Metadata["type"]; memType {
	case "turn":
		return deserializeTurnMemory(result)
	default:
		return nil, fmt.Errorf("unknown memory type: %s", memType)
	}
}

func deserializeTurnMemory(result chromem.Result) (*memory.TurnMemory, error) {
	var content struct {
		UserMessage string `json:"userMessage"`
		Reply       string `json:"reply"`
		Action      string `json:"action"`
		Thought     string `json:"thought"`
		Dispatched  bool   `json:"dispatched"`
	}
	if err := json.Unmarshal([]byte(result.Content), &content); err != nil {
		return nil, fmt.Errorf("unmarshal content: %w", err)
	}

	createdAt, _ := time.Parse(time.RFC3339, result.Metadata["created_at"])

	metadata := make(map[string]interface{})
	for k, v := range result.Metadata {
		if !strings.HasPrefix(k, "owner_id") && k != "type" && k != "conversation_id" && k != "created_at" {
			metadata[k] = v
		}
	}

	return memory.NewTurnMemoryFromStorage(
		result.ID,
		result.Metadata["owner_id"],
		result.Metadata["conversation_id"],
		createdAt,
		result.Embedding,
		content.UserMessage,
		content.Reply,
		content.Action,
		content.Thought,
		content.Dispatched,
		metadata,
	), nil
}
