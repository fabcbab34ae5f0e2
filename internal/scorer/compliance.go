package scorer

import (
	"regexp"
	"strings"

	"github.com/giantswarm/prompt-trainer/internal/challenge"
)

// Task compliance penalties.
const (
	wordOveragePenaltyPerWord = 2
	maxWordOveragePenalty     = 30
	missingKeywordPenalty     = 15
	formatMismatchPenalty     = 25
)

var (
	bulletMarker   = regexp.MustCompile(`[•\-*]\s`)
	numberedMarker = regexp.MustCompile(`\d+\.\s`)
)

// ComplianceScore scores how well response satisfies the explicit
// constraints. Penalties are additive and only the final result is clamped.
func ComplianceScore(response string, cs challenge.ConstraintSet) float64 {
	score := 100.0

	if limit, ok := cs.WordLimit(); ok {
		if over := wordCount(response) - limit; over > 0 {
			score -= float64(min(maxWordOveragePenalty, over*wordOveragePenaltyPerWord))
		}
	}

	lower := strings.ToLower(response)
	for _, kw := range cs.RequiredKeywords {
		if !strings.Contains(lower, strings.ToLower(kw)) {
			score -= missingKeywordPenalty
		}
	}

	switch cs.Format {
	case challenge.FormatBulletPoints:
		if !bulletMarker.MatchString(response) {
			score -= formatMismatchPenalty
		}
	case challenge.FormatNumberedList:
		if !numberedMarker.MatchString(response) {
			score -= formatMismatchPenalty
		}
	}

	return clamp(score)
}
