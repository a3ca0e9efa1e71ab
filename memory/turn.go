package memory

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TurnMemory stores one conversational exchange.
type TurnMemory struct {
	id             string
	ownerID        string
	conversationID string
	createdAt      time.Time
	embedding      []float32
	metadata       map[string]interface{}

	UserMessage string
	Reply       string
	Action      string
	Thought     string
	Dispatched  bool
}

// NewTurnMemory creates a TurnMemory from a finished turn.
func NewTurnMemory(ownerID string, turn *Turn) *TurnMemory {
	return &TurnMemory{
		id:             uuid.New().String(),
		ownerID:        ownerID,
		conversationID: turn.ConversationID,
		createdAt:      time.Now(),
		metadata: map[string]interface{}{
			"action":     turn.Action,
			"dispatched": turn.Dispatched,
			"importance": assessTurnImportance(turn),
		},
		UserMessage: turn.UserMessage,
		Reply:       turn.Reply,
		Action:      turn.Action,
		Thought:     turn.Thought,
		Dispatched:  turn.Dispatched,
	}
}

// NewTurnMemoryFromStorage rebuilds a TurnMemory read back from a Store.
func NewTurnMemoryFromStorage(
	id string,
	ownerID string,
	conversationID string,
	createdAt time.Time,
	embedding []float32,
	userMessage string,
	reply string,
	action string,
	thought string,
	dispatched bool,
	metadata map[string]interface{},
) *TurnMemory {
	return &TurnMemory{
		id:             id,
		ownerID:        ownerID,
		conversationID: conversationID,
		createdAt:      createdAt,
		embedding:      embedding,
		metadata:       metadata,
		UserMessage:    userMessage,
		Reply:          reply,
		Action:         action,
		Thought:        thought,
		Dispatched:     dispatched,
	}
}

func (t *TurnMemory) ID() string             { return t.id }
func (t *TurnMemory) OwnerID() string        { return t.ownerID }
func (t *TurnMemory) ConversationID() string { return t.conversationID }
func (t *TurnMemory) Type() string           { return "turn" }
func (t *TurnMemory) CreatedAt() time.Time   { return t.createdAt }
func (t *TurnMemory) Embedding() []float32   { return t.embedding }

func (t *TurnMemory) SetEmbedding(emb []float32) {
	t.embedding = emb
}

func (t *TurnMemory) Metadata() map[string]interface{} {
	return t.metadata
}

func (t *TurnMemory) Content() interface{} {
	return map[string]interface{}{
		"userMessage": t.UserMessage,
		"reply":       t.Reply,
		"action":      t.Action,
		"thought":     t.Thought,
		"dispatched":  t.Dispatched,
	}
}

// Format renders the turn for the system prompt.
func (t *TurnMemory) Format(ctx FormatContext) string {
	status := "chat"
	if t.Dispatched {
		status = "executed"
	}

	parts := []string{
		fmt.Sprintf("[%s] %s (%s)", t.Action, status, t.createdAt.Format("2006-01-02")),
		fmt.Sprintf("  User: %q", truncate(t.UserMessage, ctx.MaxLength/2)),
	}
	if t.Reply != "" {
		parts = append(parts, fmt.Sprintf("  Assistant: %q", truncate(t.Reply, ctx.MaxLength/2)))
	}
	return strings.Join(parts, "\n")
}

// FormatForEmbedding returns the text that gets embedded for this turn.
func (t *TurnMemory) FormatForEmbedding() string {
	return fmt.Sprintf("User: %s\nAction: %s\nAssistant: %s", t.UserMessage, t.Action, t.Reply)
}

// assessTurnImportance scores a turn in [0.0-1.0].
func assessTurnImportance(turn *Turn) float64 {
	importance := 0.4
	if turn.Dispatched {
		importance += 0.3
	}
	if turn.Failed {
		importance += 0.2
	}
	if len(turn.Thought) > 50 {
		importance += 0.1
	}
	if importance > 1.0 {
		importance = 1.0
	}
	return importance
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen < 3 {
		return "..."
	}
	return s[:maxLen-3] + "..."
}
