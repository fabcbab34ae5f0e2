package provider

import (
	"context"

	"github.com/giantswarm/prompt-trainer/internal/llm"
)

// DefaultOpenAIModel is the chat model used by the "openai" provider.
const DefaultOpenAIModel = "gpt-4o-mini"

// Chat generates responses through an OpenAI-compatible chat API. It serves
// both OpenAI and self-hosted vLLM endpoints.
type Chat struct {
	client    llm.Client
	model     string
	maxTokens int
}

// NewChat creates a Chat provider. An empty model leaves the choice to the
// client's default.
func NewChat(client llm.Client, model string, maxTokens int) *Chat {
	return &Chat{client: client, model: model, maxTokens: maxTokens}
}

// Generate implements Provider.
func (c *Chat) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.ChatCompletion(ctx, llm.ChatRequest{
		Model:       c.model,
		UserMessage: prompt,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}
