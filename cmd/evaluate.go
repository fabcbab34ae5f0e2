package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/giantswarm/prompt-trainer/internal/provider"
	"github.com/giantswarm/prompt-trainer/internal/trainer"
)

func newEvaluateCmd() *cobra.Command {
	var (
		prompt     string
		promptFile string
		model      string
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "evaluate <challenge-id>",
		Short: "Score a prompt against a challenge",
		Long: `Send a prompt to a model and score the model's answer against the challenge's
target response. The report lists the four component scores, the total and
feedback on how to improve the prompt.

The attempt is not recorded; use the REST API to track progress.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if promptFile != "" {
				data, err := os.ReadFile(promptFile)
				if err != nil {
					return fmt.Errorf("failed to read prompt file: %w", err)
				}
				prompt = string(data)
			}
			prompt = strings.TrimSpace(prompt)
			if prompt == "" {
				return fmt.Errorf("a prompt is required (--prompt or --prompt-file)")
			}

			cfg, err := loadConfig(cmd, nil)
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg, false)
			if err != nil {
				return err
			}
			defer a.Close()

			out, err := a.trainer.Submit(cmd.Context(), trainer.Submission{
				ChallengeID: args[0],
				Prompt:      prompt,
				ModelName:   model,
			})
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}
			printReport(args[0], model, out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&prompt, "prompt", "p", "", "Prompt text")
	cmd.Flags().StringVarP(&promptFile, "prompt-file", "f", "", "Read the prompt from a file")
	cmd.Flags().StringVarP(&model, "model", "m", provider.ModelMock, "Model that answers the prompt")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")

	return cmd
}

// scoreColor picks green for strong, yellow for fair and red for weak scores.
func scoreColor(score float64) func(format string, a ...any) string {
	switch {
	case score >= 80:
		return color.GreenString
	case score >= 60:
		return color.YellowString
	default:
		return color.RedString
	}
}

func printReport(challengeID, model string, out *trainer.Outcome) {
	bold := color.New(color.Bold).SprintFunc()
	faint := color.New(color.Faint).SprintFunc()

	fmt.Printf("%s %s (model: %s)\n\n", bold("Challenge:"), challengeID, model)
	fmt.Printf("%s\n%s\n\n", bold("Response:"), faint(out.AIResponse))

	rows := []struct {
		label string
		score float64
	}{
		{"Semantic accuracy", out.SemanticAccuracy},
		{"Task compliance", out.TaskCompliance},
		{"Style match", out.StyleMatch},
		{"Efficiency", out.EfficiencyScore},
	}
	for _, row := range rows {
		fmt.Printf("  %-18s %s\n", row.label, scoreColor(row.score)("%5.1f", row.score))
	}
	fmt.Printf("  %-18s %s\n\n", bold("Total"), scoreColor(out.TotalScore)("%5.1f", out.TotalScore))

	if len(out.Feedback) > 0 {
		fmt.Println(bold("Feedback:"))
		for _, line := range out.Feedback {
			fmt.Printf("  - %s\n", line)
		}
		fmt.Println()
	}

	m := out.DetailedMetrics
	fmt.Println(faint(fmt.Sprintf("response %d words, prompt %d words, grade %.1f, complexity %.1f",
		m.ResponseLength, m.PromptLength, m.ReadabilityGrade, m.ComplexityScore)))
}
