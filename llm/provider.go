// Package llm wraps the language-model backends the dispatcher can talk to.
//
// Every backend is reduced to a single-shot Complete call: a system
// instruction, a user prompt and an optional JSON schema for the reply.
// Conversation continuity lives in the ConversationState the client replays,
// not in provider-side chat sessions.
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/becomeliminal/nim-wallet/tools"
)

// Provider completes a prompt and returns the raw text of the reply.
type Provider interface {
	Complete(ctx context.Context, req Request) (string, error)
	Name() string
}

// Request is a single completion request.
type Request struct {
	System      string
	Prompt      string
	Schema      tools.Schema // optional; asks for JSON output when set
	MaxTokens   int64
	Temperature float32
}

func (r Request) maxTokens() int64 {
	if r.MaxTokens <= 0 {
		return 1024
	}
	return r.MaxTokens
}

// ErrEmptyResponse is returned when a backend answers without any text.
var ErrEmptyResponse = errors.New("empty completion")

// Keys holds API credentials for every backend; only the selected one is used.
type Keys struct {
	Gemini     string
	OpenRouter string
	Anthropic  string
}

// New builds the provider named by name ("gemini", "openrouter" or "anthropic").
func New(ctx context.Context, name string, keys Keys, model string) (Provider, error) {
	switch name {
	case "gemini", "":
		return NewGemini(ctx, keys.Gemini, model)
	case "openrouter":
		return NewOpenRouter(OpenRouterConfig{APIKey: keys.OpenRouter, Model: model})
	case "anthropic":
		return NewAnthropic(keys.Anthropic, model)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", name)
	}
}
