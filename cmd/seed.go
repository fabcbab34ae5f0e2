package cmd

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/giantswarm/prompt-trainer/internal/auth"
	"github.com/giantswarm/prompt-trainer/internal/store"
)

func newSeedCmd() *cobra.Command {
	var (
		demoUser     string
		demoEmail    string
		demoPassword string
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the database and load the challenge catalog into it",
		Long: `Create the database schema if needed and upsert every challenge from the
embedded catalog and the challenges directory.

With --demo-user, a trainee account is created as well. Existing accounts are
left untouched.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, nil)
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg, true)
			if err != nil {
				return err
			}
			defer a.Close()

			counts, err := a.store.Counts(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Database: %s\n", cfg.Database.Path)
			fmt.Printf("Challenges: %d\n", counts.Challenges)

			if demoUser == "" {
				return nil
			}
			if len(demoPassword) < 6 {
				return fmt.Errorf("--demo-password must be at least 6 characters")
			}
			if demoEmail == "" {
				demoEmail = demoUser + "@example.com"
			}

			hash, err := auth.HashPassword(demoPassword)
			if err != nil {
				return err
			}
			user, err := a.store.CreateUser(cmd.Context(), demoUser, demoEmail, hash)
			switch {
			case errors.Is(err, store.ErrConflict):
				fmt.Printf("User %s already exists.\n", demoUser)
				return nil
			case err != nil:
				return err
			}

			slog.Info("demo user created", "user_id", user.ID, "username", user.Username)
			fmt.Printf("Created user %s (id %d).\n", user.Username, user.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&demoUser, "demo-user", "", "Also create a trainee account with this username")
	cmd.Flags().StringVar(&demoEmail, "demo-email", "", "Email of the demo account (default <user>@example.com)")
	cmd.Flags().StringVar(&demoPassword, "demo-password", "password123", "Password of the demo account")

	return cmd
}
