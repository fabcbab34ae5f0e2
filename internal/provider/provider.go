// Package provider dispatches prompts to the AI models a user can practise
// against and returns the generated response text.
package provider

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/giantswarm/prompt-trainer/internal/metrics"
)

// Well-known model identifiers.
const (
	ModelOpenAI = "openai"
	ModelClaude = "claude"
	ModelGemini = "gemini"
	ModelMock   = "mock"
)

// DefaultRequestTimeout bounds a single Response call.
const DefaultRequestTimeout = 60 * time.Second

// Provider generates a response for a prompt.
type Provider interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// UnsupportedModelError is returned for a model identifier with no
// registered provider.
type UnsupportedModelError struct {
	Model     string
	Supported []string
}

func (e *UnsupportedModelError) Error() string {
	return fmt.Sprintf("unsupported model %q (supported: %s)", e.Model, strings.Join(e.Supported, ", "))
}

// Manager routes prompts to providers by model identifier. It is safe for
// concurrent use; providers may be registered while serving.
type Manager struct {
	mu        sync.RWMutex
	providers map[string]Provider

	mock         Provider
	mockFallback bool
	timeout      time.Duration
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithMockFallback answers with the mock provider when a well-known model has
// no provider configured or its provider fails.
func WithMockFallback(enabled bool) ManagerOption {
	return func(m *Manager) {
		m.mockFallback = enabled
	}
}

// WithRequestTimeout sets the per-request timeout. Non-positive values
// disable it.
func WithRequestTimeout(d time.Duration) ManagerOption {
	return func(m *Manager) {
		m.timeout = d
	}
}

// NewManager creates a Manager with the mock model always registered.
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		providers: make(map[string]Provider),
		mock:      NewMock(),
		timeout:   DefaultRequestTimeout,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.providers[ModelMock] = m.mock
	return m
}

// Register adds or replaces the provider for model.
func (m *Manager) Register(model string, p Provider) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.providers[model] = p
	slog.Debug("registered model provider", "model", model)
}

// Unregister removes the provider for model. The mock model cannot be removed.
func (m *Manager) Unregister(model string) {
	if model == ModelMock {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.providers, model)
}

// Models returns the model identifiers that Response accepts, sorted.
func (m *Manager) Models() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]bool, len(m.providers))
	var models []string
	for name := range m.providers {
		seen[name] = true
		models = append(models, name)
	}
	if m.mockFallback {
		for _, name := range []string{ModelOpenAI, ModelClaude, ModelGemini} {
			if !seen[name] {
				models = append(models, name)
			}
		}
	}
	slices.Sort(models)
	return models
}

// Supports reports whether Response accepts model.
func (m *Manager) Supports(model string) bool {
	return slices.Contains(m.Models(), model)
}

// Response returns the text generated by model for prompt.
func (m *Manager) Response(ctx context.Context, prompt, model string) (string, error) {
	p, fallback, err := m.lookup(model)
	if err != nil {
		return "", err
	}

	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	if fallback {
		slog.Debug("no provider configured, using mock", "model", model)
		metrics.ProviderRequests.WithLabelValues(model, "mock").Inc()
		return generateMock(model, prompt), nil
	}

	start := time.Now()
	text, err := p.Generate(ctx, prompt)
	if err != nil {
		metrics.ProviderRequests.WithLabelValues(model, "error").Inc()
		if m.mockFallback && model != ModelMock {
			slog.Warn("model provider failed, using mock response", "model", model, "error", err)
			return generateMock(model, prompt), nil
		}
		return "", fmt.Errorf("failed to get response from %s: %w", model, err)
	}

	metrics.ProviderRequests.WithLabelValues(model, "ok").Inc()
	slog.Debug("model response received",
		"model", model,
		"duration", time.Since(start),
		"length", len(text),
	)
	return text, nil
}

func (m *Manager) lookup(model string) (Provider, bool, error) {
	m.mu.RLock()
	p, ok := m.providers[model]
	m.mu.RUnlock()
	if ok {
		return p, false, nil
	}
	if m.mockFallback && isWellKnown(model) {
		return nil, true, nil
	}
	return nil, false, &UnsupportedModelError{Model: model, Supported: m.Models()}
}

func isWellKnown(model string) bool {
	switch model {
	case ModelOpenAI, ModelClaude, ModelGemini:
		return true
	}
	return false
}
