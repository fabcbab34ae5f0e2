package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/giantswarm/prompt-trainer/internal/runner"
)

func newRunCmd() *cobra.Command {
	var (
		models    []string
		outputDir string
		timeout   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "run <prompts.yaml>",
		Short: "Evaluate a batch of prompts against one or more models",
		Long: `Evaluate every prompt in a batch file against each model and record the scores.

A batch file lists challenge and prompt pairs:

  name: emails
  models: [mock]
  prompts:
    - challenge: professional_email
      prompt: Write a polite email asking to move the meeting to Friday.

Results are written to the output directory as one JSON file per model plus a
resultset.json manifest. A summary of total scores is printed per model.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			batch, err := runner.LoadBatch(args[0])
			if err != nil {
				return fmt.Errorf("failed to load batch: %w", err)
			}

			cfg, err := loadConfig(cmd, nil)
			if err != nil {
				return err
			}
			a, err := newApp(ctx, cfg, false)
			if err != nil {
				return err
			}
			defer a.Close()

			if len(models) == 0 {
				models = batch.Models
			}

			r := runner.NewRunner(a.trainer, outputDir)
			r.SetProgressFunc(func(modelName string, idx, total int) {
				fmt.Fprintf(os.Stderr, "\r  [%s] Evaluating prompt %d/%d...", modelName, idx, total)
			})

			bold := color.New(color.Bold).SprintFunc()
			fmt.Printf("Batch: %s\n", bold(batch.Name))
			if batch.Description != "" {
				fmt.Printf("Description: %s\n", batch.Description)
			}
			fmt.Printf("Prompts: %d\n", len(batch.Entries))
			fmt.Printf("Models: %v\n\n", models)

			run, err := r.Run(ctx, batch, models)
			if err != nil {
				return err
			}
			fmt.Fprintln(os.Stderr)

			fmt.Printf("\nBatch completed.\n")
			fmt.Printf("Run ID: %s\n", run.ID)
			fmt.Printf("Duration: %s\n\n", run.Duration.Round(time.Millisecond))
			for _, m := range run.Models {
				printModelSummary(m)
			}

			slog.Info("batch run complete", "run_id", run.ID)
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&models, "model", "m", nil, "Model to evaluate with (repeatable; overrides the batch's models)")
	cmd.Flags().StringVar(&outputDir, "output-dir", "results", "Directory for result sets")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Overall timeout for the run (e.g. 30m, 1h). 0 means no timeout")

	return cmd
}

func printModelSummary(m runner.ModelRun) {
	s := m.Summary
	fmt.Printf("%s\n", color.New(color.Bold).Sprint(m.ModelName))
	if s.Count == 0 {
		fmt.Printf("  %s\n", color.RedString("no prompts scored"))
	} else {
		fmt.Printf("  Mean:     %s\n", scoreColor(s.Mean)("%.1f", s.Mean))
		fmt.Printf("  Min/Max:  %.1f / %.1f\n", s.Min, s.Max)
		fmt.Printf("  Variance: %.2f (std dev %.2f)\n", s.Variance, s.StdDev)
	}
	if s.Failed > 0 {
		fmt.Printf("  Failed:   %s\n", color.RedString("%d", s.Failed))
	}
	fmt.Printf("  Results:  %s\n\n", m.ResultsFile)
}
