package kserve

import (
	"context"
	"log/slog"

	"github.com/giantswarm/prompt-trainer/internal/llm"
	"github.com/giantswarm/prompt-trainer/internal/provider"
)

// Registry is where ready response models are made available to trainees.
type Registry interface {
	Register(model string, p provider.Provider)
	Unregister(model string)
}

// ResponseProvider returns a provider that answers prompts through the
// model's OpenAI-compatible endpoint.
func ResponseProvider(status ModelStatus, maxTokens int) provider.Provider {
	client := llm.NewOpenAIClient(
		llm.WithBaseURL(status.EndpointURL),
		llm.WithModel(status.Name),
	)
	return provider.NewChat(client, status.Name, maxTokens)
}

// Sync registers every ready response model with reg under its name and
// unregisters models that are not ready. It returns the registered names.
func (m *Manager) Sync(ctx context.Context, reg Registry, maxTokens int) ([]string, error) {
	statuses, err := m.List(ctx, RoleResponse)
	if err != nil {
		return nil, err
	}

	var registered []string
	for _, status := range statuses {
		if !status.Ready {
			reg.Unregister(status.Name)
			continue
		}
		reg.Register(status.Name, ResponseProvider(status, maxTokens))
		registered = append(registered, status.Name)
	}
	slog.Debug("synced self-hosted models", "registered", registered)
	return registered, nil
}
