package server

import (
	"context"

	"github.com/giantswarm/prompt-trainer/internal/challenge"
	"github.com/giantswarm/prompt-trainer/internal/kserve"
	"github.com/giantswarm/prompt-trainer/internal/provider"
	"github.com/giantswarm/prompt-trainer/internal/scorer"
	"github.com/giantswarm/prompt-trainer/internal/store"
	"github.com/giantswarm/prompt-trainer/internal/trainer"
)

// ChallengeCatalog lists and looks up challenges. Both the embedded catalog
// and the database implement it.
type ChallengeCatalog interface {
	Challenge(ctx context.Context, id string) (*challenge.Challenge, error)
	ListChallenges(ctx context.Context, difficulty string) ([]challenge.Summary, error)
}

// ServerContext holds shared dependencies for MCP tool handlers.
type ServerContext struct {
	Challenges ChallengeCatalog
	Trainer    *trainer.Service
	Evaluator  *scorer.Evaluator
	Providers  *provider.Manager
	Store      *store.Store // optional; leaderboards need it

	KServeManager *kserve.Manager
	Namespace     string
	// MaxTokens bounds responses from self-hosted models.
	MaxTokens int

	OutputDir string // batch result sets
	BatchDir  string // batch files readable by run_batch
}
