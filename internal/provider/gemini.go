package provider

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// DefaultGeminiModel is the model used by the "gemini" provider.
const DefaultGeminiModel = "gemini-2.0-flash"

// Gemini generates responses with the Gemini API.
type Gemini struct {
	client    *genai.Client
	model     string
	maxTokens int32
}

// NewGemini creates a Gemini provider from a genai client configuration.
func NewGemini(ctx context.Context, model string, maxTokens int, cfg *genai.ClientConfig) (*Gemini, error) {
	if cfg == nil {
		return nil, fmt.Errorf("gemini client config cannot be nil")
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return &Gemini{client: client, model: model, maxTokens: int32(maxTokens)}, nil
}

// Generate implements Provider.
func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	var config *genai.GenerateContentConfig
	if g.maxTokens > 0 {
		config = &genai.GenerateContentConfig{MaxOutputTokens: g.maxTokens}
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), config)
	if err != nil {
		return "", fmt.Errorf("gemini generate failed: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("gemini returned no text content")
	}
	return text, nil
}
