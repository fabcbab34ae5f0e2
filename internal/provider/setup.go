package provider

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go/option"
	"google.golang.org/genai"

	"github.com/giantswarm/prompt-trainer/internal/llm"
)

// Credentials selects which hosted providers to register. A provider is
// registered only when its API key is set.
type Credentials struct {
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	AnthropicAPIKey string
	ClaudeModel     string

	GeminiAPIKey string
	GeminiModel  string

	MaxTokens int
	// Temperature applies to OpenAI chat requests. Zero keeps the API default.
	Temperature float64
}

// NewFromCredentials creates a Manager with every hosted provider whose
// credentials are present.
func NewFromCredentials(ctx context.Context, creds Credentials, opts ...ManagerOption) (*Manager, error) {
	m := NewManager(opts...)

	if creds.OpenAIAPIKey != "" {
		model := creds.OpenAIModel
		if model == "" {
			model = DefaultOpenAIModel
		}
		clientOpts := []llm.Option{llm.WithAPIKey(creds.OpenAIAPIKey), llm.WithModel(model)}
		if creds.Temperature > 0 {
			clientOpts = append(clientOpts, llm.WithTemperature(creds.Temperature))
		}
		baseURL := creds.OpenAIBaseURL
		if baseURL == "" {
			baseURL = "https://api.openai.com/v1"
		}
		clientOpts = append(clientOpts, llm.WithBaseURL(baseURL))
		m.Register(ModelOpenAI, NewChat(llm.NewOpenAIClient(clientOpts...), model, creds.MaxTokens))
	}

	if creds.AnthropicAPIKey != "" {
		m.Register(ModelClaude, NewClaude(creds.ClaudeModel, creds.MaxTokens, option.WithAPIKey(creds.AnthropicAPIKey)))
	}

	if creds.GeminiAPIKey != "" {
		g, err := NewGemini(ctx, creds.GeminiModel, creds.MaxTokens, &genai.ClientConfig{
			APIKey:     creds.GeminiAPIKey,
			Backend:    genai.BackendGeminiAPI,
			HTTPClient: http.DefaultClient,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to configure gemini provider: %w", err)
		}
		m.Register(ModelGemini, g)
	}

	slog.Info("model providers configured", "models", m.Models())
	return m, nil
}
