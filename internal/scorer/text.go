package scorer

import (
	"regexp"
	"strings"
)

// wordCount splits on runs of whitespace.
func wordCount(text string) int {
	return len(strings.Fields(text))
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}

var (
	sentencePattern = regexp.MustCompile(`[.!?]`)
	bracketPattern  = regexp.MustCompile(`[(){}\[\]]`)
	quotePattern    = regexp.MustCompile(`["']`)
)

// ComplexityScore is a bounded heuristic over the prompt's sentence
// terminators, brackets and quotes.
func ComplexityScore(prompt string) float64 {
	sum := len(sentencePattern.FindAllStringIndex(prompt, -1)) +
		len(bracketPattern.FindAllStringIndex(prompt, -1)) +
		len(quotePattern.FindAllStringIndex(prompt, -1))
	return min(100, float64(sum)/2)
}
