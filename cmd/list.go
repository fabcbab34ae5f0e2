package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/giantswarm/prompt-trainer/internal/challenge"
)

func newListCmd() *cobra.Command {
	var difficulty string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List available challenges",
		RunE: func(cmd *cobra.Command, args []string) error {
			switch difficulty {
			case "", challenge.DifficultyBeginner, challenge.DifficultyIntermediate, challenge.DifficultyAdvanced:
			default:
				return fmt.Errorf("unknown difficulty %q (want %s, %s or %s)", difficulty,
					challenge.DifficultyBeginner, challenge.DifficultyIntermediate, challenge.DifficultyAdvanced)
			}

			cfg, err := loadConfig(cmd, nil)
			if err != nil {
				return err
			}
			catalog := challenge.Catalog{Dir: cfg.ChallengesDir}

			summaries, err := catalog.ListChallenges(cmd.Context(), difficulty)
			if err != nil {
				return fmt.Errorf("failed to list challenges: %w", err)
			}

			if len(summaries) == 0 {
				fmt.Println("No challenges found.")
				return nil
			}

			fmt.Printf("Available challenges:\n\n")
			for _, s := range summaries {
				fmt.Printf("  - %s: %s\n", s.ID, s.Title)
				fmt.Printf("    Difficulty: %s\n", s.Difficulty)
				fmt.Printf("    Time limit: %ds\n", s.TimeLimit)
				fmt.Printf("    %s\n\n", s.Description)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&difficulty, "difficulty", "", "Only list challenges of this difficulty (beginner, intermediate, advanced)")

	return cmd
}
