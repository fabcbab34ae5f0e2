package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// DefaultClaudeModel is the model used by the "claude" provider.
const DefaultClaudeModel = "claude-sonnet-4-5"

// Claude generates responses with the Anthropic Messages API.
type Claude struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewClaude creates a Claude provider. Request options are passed to the SDK
// client, for example option.WithAPIKey.
func NewClaude(model string, maxTokens int, opts ...option.RequestOption) *Claude {
	if model == "" {
		model = DefaultClaudeModel
	}
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &Claude{
		client:    anthropic.NewClient(opts...),
		model:     model,
		maxTokens: int64(maxTokens),
	}
}

// Generate implements Provider.
func (c *Claude) Generate(ctx context.Context, prompt string) (string, error) {
	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("claude message failed: %w", err)
	}

	var b strings.Builder
	for _, block := range msg.Content {
		switch v := block.AsAny().(type) {
		case anthropic.TextBlock:
			b.WriteString(v.Text)
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("claude returned no text content")
	}
	return b.String(), nil
}
