// Package llm wraps OpenAI-compatible chat and embedding APIs. The same
// client talks to OpenAI itself and to self-hosted vLLM or embedding
// runtimes deployed through KServe.
package llm

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// DefaultEmbeddingModel is used by Embed when no embedding model is configured.
const DefaultEmbeddingModel = "text-embedding-3-small"

// Client abstracts an OpenAI-compatible LLM API.
type Client interface {
	ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// ChatRequest is a simplified chat request.
type ChatRequest struct {
	Model         string
	SystemMessage string
	UserMessage   string
	Temperature   *float64
	MaxTokens     int
}

// ChatResponse holds the result of a chat completion.
type ChatResponse struct {
	Content string
}

// OpenAIClient implements Client and scorer.Embedder using the
// OpenAI-compatible API.
type OpenAIClient struct {
	client         *openai.Client
	model          string
	embeddingModel string
	temperature    *float64
}

// NewOpenAIClient creates a new OpenAI-compatible client.
func NewOpenAIClient(opts ...Option) *OpenAIClient {
	cfg := &clientConfig{
		baseURL: "http://localhost:8000/v1",
		apiKey:  "not-needed",
	}
	for _, opt := range opts {
		opt(cfg)
	}

	config := openai.DefaultConfig(cfg.apiKey)
	config.BaseURL = cfg.baseURL
	if cfg.httpClient != nil {
		config.HTTPClient = cfg.httpClient
	}

	return &OpenAIClient{
		client:         openai.NewClientWithConfig(config),
		model:          cfg.model,
		embeddingModel: cfg.embeddingModel,
		temperature:    cfg.temperature,
	}
}

// ChatCompletion sends a chat completion request and returns the first choice.
func (c *OpenAIClient) ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	resp, err := c.client.CreateChatCompletion(ctx, c.buildRequest(req))
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices returned")
	}

	return &ChatResponse{
		Content: resp.Choices[0].Message.Content,
	}, nil
}

// Embed returns the embedding vector for text.
func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float64, error) {
	model := c.embeddingModel
	if model == "" {
		model = DefaultEmbeddingModel
	}

	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(model),
	})
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}

	vec := make([]float64, len(resp.Data[0].Embedding))
	for i, v := range resp.Data[0].Embedding {
		vec[i] = float64(v)
	}
	return vec, nil
}

func (c *OpenAIClient) buildRequest(req ChatRequest) openai.ChatCompletionRequest {
	req = c.applyDefaults(req)

	var messages []openai.ChatCompletionMessage
	if req.SystemMessage != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role: openai.ChatMessageRoleSystem, Content: req.SystemMessage,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role: openai.ChatMessageRoleUser, Content: req.UserMessage,
	})

	out := openai.ChatCompletionRequest{
		Model:     req.Model,
		Messages:  messages,
		MaxTokens: req.MaxTokens,
	}
	if req.Temperature != nil {
		out.Temperature = float32(*req.Temperature)
	}
	return out
}

// applyDefaults applies client-level defaults to a request where
// the request does not specify its own values.
func (c *OpenAIClient) applyDefaults(req ChatRequest) ChatRequest {
	if req.Model == "" && c.model != "" {
		req.Model = c.model
	}
	if req.Temperature == nil && c.temperature != nil {
		req.Temperature = c.temperature
	}
	return req
}
