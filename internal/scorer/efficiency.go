package scorer

import "math"

// efficiencyBaselineWords is the prompt length up to which no efficiency
// penalty applies.
const efficiencyBaselineWords = 10

// EfficiencyScore rewards reaching a high semantic score with a short prompt.
// An empty prompt scores 0.
func EfficiencyScore(prompt string, semantic float64) float64 {
	n := wordCount(prompt)
	if n == 0 {
		return 0
	}
	quality := semantic / 100
	efficiency := quality / math.Max(float64(n)/efficiencyBaselineWords, 1)
	return clamp(efficiency * 100)
}
