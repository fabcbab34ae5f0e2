// Package readability computes grade-level readability estimates.
package readability

import (
	"math"
	"strings"

	"github.com/jdkato/prose/summarize"
)

// FleschKincaid computes the Flesch-Kincaid grade level.
type FleschKincaid struct{}

// Grade implements scorer.ReadabilityScorer. It never fails.
func (FleschKincaid) Grade(text string) (float64, error) {
	return Grade(text), nil
}

// Grade returns the Flesch-Kincaid grade level of text rounded to one
// decimal place. Text without words grades 0.
func Grade(text string) float64 {
	if strings.TrimSpace(text) == "" {
		return 0
	}
	doc := summarize.NewDocument(text)
	if doc.NumWords == 0 || doc.NumSentences == 0 {
		return 0
	}
	grade := doc.FleschKincaid()
	if math.IsNaN(grade) || math.IsInf(grade, 0) {
		return 0
	}
	return math.Round(grade*10) / 10
}
