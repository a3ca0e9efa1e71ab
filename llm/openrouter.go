package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/becomeliminal/nim-wallet/retry"
	"github.com/becomeliminal/nim-wallet/tools"
)

// OpenRouterConfig configures the OpenRouter client.
type OpenRouterConfig struct {
	APIKey   string
	BaseURL  string
	Model    string
	Timeout  time.Duration
	SiteURL  string // optional, used by OpenRouter rankings
	SiteName string
}

func (c OpenRouterConfig) withDefaults() OpenRouterConfig {
	if c.BaseURL == "" {
		c.BaseURL = "https://openrouter.ai/api/v1"
	}
	if c.Model == "" {
		c.Model = "google/gemini-2.0-flash-001"
	}
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}
	if c.SiteName == "" {
		c.SiteName = "nim-wallet"
	}
	return c
}

// OpenRouterProvider calls the OpenAI-compatible chat completions endpoint of OpenRouter.
type OpenRouterProvider struct {
	cfg        OpenRouterConfig
	httpClient *http.Client
}

// NewOpenRouter creates an OpenRouter provider.
func NewOpenRouter(cfg OpenRouterConfig) (*OpenRouterProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openrouter API key is required")
	}
	cfg = cfg.withDefaults()
	return &OpenRouterProvider{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

func (o *OpenRouterProvider) Name() string { return "openrouter" }

type openRouterMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openRouterResponseFormat struct {
	Type       string                 `json:"type"`
	JSONSchema *openRouterSchemaBlock `json:"json_schema,omitempty"`
}

type openRouterSchemaBlock struct {
	Name   string       `json:"name"`
	Schema tools.Schema `json:"schema"`
}

type openRouterRequest struct {
	Model          string                    `json:"model"`
	Messages       []openRouterMessage       `json:"messages"`
	MaxTokens      int64                     `json:"max_tokens,omitempty"`
	Temperature    float32                   `json:"temperature"`
	ResponseFormat *openRouterResponseFormat `json:"response_format,omitempty"`
}

type openRouterResponse struct {
	Choices []struct {
		Message openRouterMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Complete performs one chat completion. Rate limiting (429) and server
// errors come back as retryable errors; other 4xx are permanent.
func (o *OpenRouterProvider) Complete(ctx context.Context, req Request) (string, error) {
	var messages []openRouterMessage
	if req.System != "" {
		messages = append(messages, openRouterMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, openRouterMessage{Role: "user", Content: req.Prompt})

	body := openRouterRequest{
		Model:       o.cfg.Model,
		Messages:    messages,
		MaxTokens:   req.maxTokens(),
		Temperature: req.Temperature,
	}
	if req.Schema != nil {
		body.ResponseFormat = &openRouterResponseFormat{
			Type:       "json_schema",
			JSONSchema: &openRouterSchemaBlock{Name: "conversation_state", Schema: req.Schema},
		}
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return "", retry.Permanent(fmt.Errorf("marshal request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.cfg.BaseURL+"/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return "", retry.Permanent(fmt.Errorf("create request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+o.cfg.APIKey)
	httpReq.Header.Set("HTTP-Referer", o.cfg.SiteURL)
	httpReq.Header.Set("X-Title", o.cfg.SiteName)

	resp, err := o.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4*1024*1024))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", fmt.Errorf("rate limit exceeded (429)")
	case resp.StatusCode >= 500:
		return "", fmt.Errorf("openrouter status %d: %s", resp.StatusCode, string(raw))
	case resp.StatusCode != http.StatusOK:
		return "", retry.Permanent(fmt.Errorf("openrouter status %d: %s", resp.StatusCode, string(raw)))
	}

	var orResp openRouterResponse
	if err := json.Unmarshal(raw, &orResp); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	if orResp.Error != nil {
		return "", fmt.Errorf("openrouter error: %s", orResp.Error.Message)
	}
	if len(orResp.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	text := strings.TrimSpace(orResp.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
