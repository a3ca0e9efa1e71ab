package core

// BaseInput provides the reasoning field every structured model reply may carry.
type BaseInput struct {
	// Thought is the model's short justification for the chosen action.
	// It is logged and stored in memory, never shown to the user.
	Thought string `json:"thought,omitempty"`
}

// AgentReply is the JSON object the model is instructed to emit each turn.
type AgentReply struct {
	BaseInput
	ConversationState
}
