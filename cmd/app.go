package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/giantswarm/prompt-trainer/internal/challenge"
	"github.com/giantswarm/prompt-trainer/internal/config"
	"github.com/giantswarm/prompt-trainer/internal/provider"
	"github.com/giantswarm/prompt-trainer/internal/scorer"
	"github.com/giantswarm/prompt-trainer/internal/store"
	"github.com/giantswarm/prompt-trainer/internal/trainer"
)

// persistentBindings maps config keys to root flags that override them.
var persistentBindings = map[string]string{
	"database.path":  "db",
	"challenges_dir": "challenges-dir",
}

// loadConfig reads the configuration for cmd. Flags listed in bindings
// (config key to flag name) override file and environment values when set.
func loadConfig(cmd *cobra.Command, bindings map[string]string) (*config.Config, error) {
	v := config.New()
	if err := bindFlags(v, cmd, persistentBindings); err != nil {
		return nil, err
	}
	if err := bindFlags(v, cmd, bindings); err != nil {
		return nil, err
	}
	var file string
	if flag := lookupFlag(cmd, "config"); flag != nil {
		file = flag.Value.String()
	}
	return config.Load(v, file)
}

// lookupFlag finds a flag on cmd or among the root's persistent flags, which
// are not merged into cmd's flag set when serve runs as the default command.
func lookupFlag(cmd *cobra.Command, name string) *pflag.Flag {
	if flag := cmd.Flags().Lookup(name); flag != nil {
		return flag
	}
	return cmd.Root().PersistentFlags().Lookup(name)
}

func bindFlags(v *viper.Viper, cmd *cobra.Command, bindings map[string]string) error {
	for key, name := range bindings {
		flag := lookupFlag(cmd, name)
		if flag == nil {
			return fmt.Errorf("unknown flag %q", name)
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("failed to bind flag %q: %w", name, err)
		}
	}
	return nil
}

// app wires the evaluation pipeline from configuration.
type app struct {
	cfg       *config.Config
	catalog   challenge.Catalog
	store     *store.Store // nil when opened without a database
	providers *provider.Manager
	evaluator *scorer.Evaluator
	trainer   *trainer.Service
}

// newApp builds the providers, evaluator and trainer. With withStore set it
// also opens the database and syncs the challenge catalog into it.
func newApp(ctx context.Context, cfg *config.Config, withStore bool) (*app, error) {
	a := &app{
		cfg:     cfg,
		catalog: challenge.Catalog{Dir: cfg.ChallengesDir},
	}

	providers, err := provider.NewFromCredentials(ctx, cfg.Providers.Credentials(), cfg.Providers.ManagerOptions()...)
	if err != nil {
		return nil, fmt.Errorf("failed to set up model providers: %w", err)
	}
	a.providers = providers
	a.evaluator = scorer.NewEvaluator(cfg.Embedding.Embedder(), nil)

	var (
		source   trainer.ChallengeSource = a.catalog
		recorder trainer.Recorder
	)
	if withStore {
		if err := a.openStore(ctx); err != nil {
			return nil, err
		}
		source, recorder = a.store, a.store
	}
	a.trainer = trainer.New(source, providers, a.evaluator, recorder)

	slog.Debug("application ready",
		"models", providers.Models(),
		"embedding", cfg.Embedding.Backend,
		"database", withStore,
	)
	return a, nil
}

func (a *app) openStore(ctx context.Context) error {
	st, err := store.Open(a.cfg.Database.Path)
	if err != nil {
		return err
	}

	challenges, err := challenge.LoadAll(a.cfg.ChallengesDir)
	if err != nil {
		st.Close()
		return fmt.Errorf("failed to load challenges: %w", err)
	}
	if err := st.SyncChallenges(ctx, challenges); err != nil {
		st.Close()
		return err
	}
	slog.Debug("challenges synced", "count", len(challenges), "database", a.cfg.Database.Path)

	a.store = st
	return nil
}

// Close releases the database, if open.
func (a *app) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			slog.Warn("failed to close database", "error", err)
		}
	}
}
