package challenge

import (
	"encoding/json"
	"strings"
)

// Difficulty levels used by the built-in catalog.
const (
	DifficultyBeginner     = "beginner"
	DifficultyIntermediate = "intermediate"
	DifficultyAdvanced     = "advanced"
)

// Format values that the compliance check verifies. Any other format value
// is accepted and ignored.
const (
	FormatBulletPoints = "bullet_points"
	FormatNumberedList = "numbered_list"
)

// Formality values recognized by the style check.
const (
	FormalityFormal   = "formal"
	FormalityInformal = "informal"
)

// Challenge is a named task with a target response and the constraint set
// a generated response is scored against.
type Challenge struct {
	ID             string        `yaml:"id" json:"id"`
	Title          string        `yaml:"title" json:"title"`
	Description    string        `yaml:"description" json:"description"`
	Difficulty     string        `yaml:"difficulty" json:"difficulty"`
	TimeLimit      int           `yaml:"time_limit" json:"time_limit"` // seconds
	TargetFile     string        `yaml:"target_file" json:"-"`
	TargetResponse string        `yaml:"-" json:"target_response"` // loaded from TargetFile
	Constraints    ConstraintSet `yaml:"constraints" json:"constraints"`
}

// Summary is the public listing view of a challenge. It deliberately omits
// the target response and constraints.
type Summary struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Difficulty  string `json:"difficulty"`
	TimeLimit   int    `json:"time_limit"`
}

// Summary returns the listing view of c.
func (c *Challenge) Summary() Summary {
	return Summary{
		ID:          c.ID,
		Title:       c.Title,
		Description: c.Description,
		Difficulty:  c.Difficulty,
		TimeLimit:   c.TimeLimit,
	}
}

// ConstraintSet holds the structured rules a response should satisfy.
// Every field is optional; the zero value is a valid, empty set.
type ConstraintSet struct {
	MaxWords         *int        `yaml:"max_words,omitempty" json:"max_words,omitempty"`
	RequiredKeywords []string    `yaml:"required_keywords,omitempty" json:"required_keywords,omitempty"`
	TargetStyle      TargetStyle `yaml:"target_style,omitempty" json:"target_style,omitempty"`
	Format           string      `yaml:"format,omitempty" json:"format,omitempty"`
}

// WordLimit returns the configured word limit and whether it should be
// enforced. Non-positive limits are treated as absent.
func (c ConstraintSet) WordLimit() (int, bool) {
	if c.MaxWords == nil || *c.MaxWords <= 0 {
		return 0, false
	}
	return *c.MaxWords, true
}

// IsEmpty reports whether no constraint is set.
func (c ConstraintSet) IsEmpty() bool {
	return c.MaxWords == nil && len(c.RequiredKeywords) == 0 && c.TargetStyle.IsEmpty() && c.Format == ""
}

// TargetStyle describes the desired register of a response.
type TargetStyle struct {
	Formality string `yaml:"formality,omitempty" json:"formality,omitempty"`
	Tone      string `yaml:"tone,omitempty" json:"tone,omitempty"`
	// ReadingLevel is informational only and does not affect scoring.
	ReadingLevel *float64 `yaml:"reading_level,omitempty" json:"reading_level,omitempty"`
	// Extra holds keys the style check does not know, such as "pacing".
	// They are kept so that stored challenges round-trip unchanged.
	Extra map[string]any `yaml:",inline" json:"-"`
}

var targetStyleKeys = []string{"formality", "tone", "reading_level"}

// MarshalJSON flattens Extra next to the recognized keys.
func (s TargetStyle) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(s.Extra)+len(targetStyleKeys))
	for k, v := range s.Extra {
		out[k] = v
	}
	if s.Formality != "" {
		out["formality"] = s.Formality
	}
	if s.Tone != "" {
		out["tone"] = s.Tone
	}
	if s.ReadingLevel != nil {
		out["reading_level"] = *s.ReadingLevel
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the recognized keys and collects the rest in Extra.
func (s *TargetStyle) UnmarshalJSON(data []byte) error {
	type plain TargetStyle
	var known plain
	if err := json.Unmarshal(data, &known); err != nil {
		return err
	}
	var all map[string]any
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for _, k := range targetStyleKeys {
		delete(all, k)
	}
	known.Extra = nil
	if len(all) > 0 {
		known.Extra = all
	}
	*s = TargetStyle(known)
	return nil
}

// IsEmpty reports whether the style carries no recognized key.
func (s TargetStyle) IsEmpty() bool {
	return strings.TrimSpace(s.Formality) == "" && strings.TrimSpace(s.Tone) == "" && s.ReadingLevel == nil
}

// IntPtr returns a pointer to v. Useful for building constraint sets in code.
func IntPtr(v int) *int {
	return &v
}
