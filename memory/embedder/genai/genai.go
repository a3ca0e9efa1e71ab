// Package genai embeds text with Google's Gemini embedding models.
package genai

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

const defaultModel = "gemini-embedding-001"

// Embedder generates embeddings using the Gemini API.
type Embedder struct {
	client     *genai.Client
	model      string
	dimensions int32
}

// New creates a GenAI embedder. dimensions truncates the output vector
// (Matryoshka embeddings); 0 keeps the model default of 768.
func New(ctx context.Context, apiKey, model string, dimensions int32) (*Embedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	if model == "" {
		model = defaultModel
	}
	if dimensions <= 0 {
		dimensions = 768
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &Embedder{client: client, model: model, dimensions: dimensions}, nil
}

// Embed generates an embedding for a single text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(text, genai.RoleUser),
	}

	result, err := e.client.Models.EmbedContent(ctx, e.model, contents, &genai.EmbedContentConfig{
		TaskType:             "SEMANTIC_SIMILARITY",
		OutputDimensionality: genai.Ptr(e.dimensions),
	})
	if err != nil {
		return nil, fmt.Errorf("GenAI embed failed: %w", err)
	}
	if len(result.Embeddings) == 0 {
		return nil, fmt.Errorf("no embeddings returned")
	}

	return result.Embeddings[0].Values, nil
}

// Dimensions returns the configured vector size.
func (e *Embedder) Dimensions() int {
	return int(e.dimensions)
}
