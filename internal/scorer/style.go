package scorer

import (
	"strings"

	"github.com/giantswarm/prompt-trainer/internal/challenge"
)

const (
	formalityMismatchPenalty = 25
	toneMissingPenalty       = 15
)

var (
	formalIndicators   = []string{"please", "kindly", "respectfully", "sincerely", "therefore"}
	informalIndicators = []string{"hey", "gonna", "wanna", "cool", "awesome", "yeah"}
)

// toneKeywords lists the recognized tones. Other tones are not checked.
var toneKeywords = map[string][]string{
	"professional": {"professional", "business", "formal", "corporate"},
	"friendly":     {"friendly", "warm", "welcoming", "pleasant"},
	"confident":    {"confident", "strong", "assured", "certain"},
	"helpful":      {"helpful", "supportive", "assistance", "guide"},
}

// StyleScore scores how well response matches the target formality and tone.
func StyleScore(response string, style challenge.TargetStyle) float64 {
	if style.IsEmpty() {
		return 100
	}

	score := 100.0
	lower := strings.ToLower(response)

	// Formality and tone are matched exactly; "Formal" or " helpful " are
	// treated as unrecognized and carry no penalty.
	if style.Formality != "" {
		formal := countPresent(lower, formalIndicators)
		informal := countPresent(lower, informalIndicators)
		switch {
		case style.Formality == challenge.FormalityFormal && informal > formal:
			score -= formalityMismatchPenalty
		case style.Formality == challenge.FormalityInformal && formal > informal:
			score -= formalityMismatchPenalty
		}
	}

	if words, ok := toneKeywords[style.Tone]; ok {
		if countPresent(lower, words) == 0 {
			score -= toneMissingPenalty
		}
	}

	return clamp(score)
}

// countPresent returns how many of words occur in text, each counted once.
func countPresent(text string, words []string) int {
	n := 0
	for _, w := range words {
		if strings.Contains(text, w) {
			n++
		}
	}
	return n
}
