package kserve

import (
	"fmt"
	"time"
)

// Role is what a served model is used for.
type Role string

const (
	// RoleResponse models answer trainee prompts.
	RoleResponse Role = "response"
	// RoleEmbedding models produce embeddings for semantic scoring.
	RoleEmbedding Role = "embedding"
)

// ParseRole parses a role name. The empty string means RoleResponse.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case "", RoleResponse:
		return RoleResponse, nil
	case RoleEmbedding:
		return RoleEmbedding, nil
	}
	return "", fmt.Errorf("unknown model role %q (supported: %s, %s)", s, RoleResponse, RoleEmbedding)
}

// apiPath is the OpenAI-compatible API prefix served by the role's runtime.
func (r Role) apiPath() string {
	if r == RoleEmbedding {
		return "/openai/v1"
	}
	return "/v1"
}

// ModelConfig defines a model to be served via KServe InferenceService.
type ModelConfig struct {
	// Name is the identifier for the InferenceService resource and the
	// model name it is registered under.
	Name string

	// ModelURI is the model storage URI (e.g. "hf://mistralai/Mistral-7B-Instruct-v0.3").
	ModelURI string

	Role Role

	// Runtime is the KServe serving runtime.
	Runtime string

	GPUCount int

	// RuntimeArgs are additional arguments passed to the serving runtime.
	RuntimeArgs []string

	// ReadyTimeout is how long to wait for the InferenceService to become ready.
	ReadyTimeout time.Duration
}

// ModelStatus represents the observed state of a deployed model.
type ModelStatus struct {
	Name        string `json:"name"`
	Role        Role   `json:"role"`
	Ready       bool   `json:"ready"`
	EndpointURL string `json:"endpoint_url,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
	Message     string `json:"message,omitempty"`
}

// DefaultModelConfig returns defaults for a model of the given role.
// Response models run on vLLM with one GPU; embedding models run on the
// Hugging Face runtime on CPU.
func DefaultModelConfig(name, modelURI string, role Role) ModelConfig {
	cfg := ModelConfig{
		Name:         name,
		ModelURI:     modelURI,
		Role:         RoleResponse,
		Runtime:      "kserve-vllm",
		GPUCount:     1,
		ReadyTimeout: 10 * time.Minute,
	}
	if role == RoleEmbedding {
		cfg.Role = RoleEmbedding
		cfg.Runtime = "kserve-huggingfaceserver"
		cfg.GPUCount = 0
		cfg.RuntimeArgs = []string{embeddingTaskArg}
	}
	return cfg
}
