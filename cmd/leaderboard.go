package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/giantswarm/prompt-trainer/internal/store"
)

func newLeaderboardCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "leaderboard <challenge-id>",
		Short: "Show the best scores for a challenge",
		Args:  cobra.ExactArgs(1),
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

			if _, err := a.store.Challenge(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("challenge %q: %w", args[0], err)
			}

			entries, err := a.store.Leaderboard(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Printf("No attempts on %s yet.\n", args[0])
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "RANK\tUSER\tSCORE\tTIME\tDATE")
			for _, e := range entries {
				fmt.Fprintf(w, "%d\t%s\t%.1f\t%ds\t%s\n",
					e.Rank, e.Username, e.Score, e.TimeTaken, e.Timestamp.Format("2006-01-02 15:04"))
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", store.DefaultLeaderboardLimit, "Number of entries to show")

	return cmd
}
