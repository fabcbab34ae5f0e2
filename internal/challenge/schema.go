package challenge

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// constraintSchema describes the persisted constraint representation.
// Unknown keys are allowed so that older challenge definitions (for example
// a "pacing" style hint) keep loading.
const constraintSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "max_words": {"type": "integer"},
    "required_keywords": {
      "type": "array",
      "items": {"type": "string"}
    },
    "target_style": {
      "type": "object",
      "properties": {
        "formality": {"type": "string"},
        "tone": {"type": "string"},
        "reading_level": {"type": "number"}
      }
    },
    "format": {"type": "string"}
  }
}`

var constraintSchemaLoader = gojsonschema.NewStringLoader(constraintSchema)

// ValidationError lists every schema violation found in a constraint set.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid constraint set: " + strings.Join(e.Problems, "; ")
}

// ValidateConstraints checks a decoded (map/slice/scalar) constraint document
// against the constraint schema.
func ValidateConstraints(doc any) error {
	if doc == nil {
		return nil
	}
	return validate(gojsonschema.NewGoLoader(doc))
}

// ParseConstraints validates and decodes the JSON representation of a
// constraint set, as stored alongside each challenge.
func ParseConstraints(data []byte) (ConstraintSet, error) {
	var cs ConstraintSet
	if len(strings.TrimSpace(string(data))) == 0 {
		return cs, nil
	}
	if err := validate(gojsonschema.NewBytesLoader(data)); err != nil {
		return cs, err
	}
	if err := json.Unmarshal(data, &cs); err != nil {
		return cs, fmt.Errorf("failed to decode constraint set: %w", err)
	}
	return cs, nil
}

// MarshalConstraints encodes a constraint set for storage.
func MarshalConstraints(cs ConstraintSet) ([]byte, error) {
	data, err := json.Marshal(cs)
	if err != nil {
		return nil, fmt.Errorf("failed to encode constraint set: %w", err)
	}
	return data, nil
}

func validate(doc gojsonschema.JSONLoader) error {
	result, err := gojsonschema.Validate(constraintSchemaLoader, doc)
	if err != nil {
		return fmt.Errorf("failed to validate constraint set: %w", err)
	}
	if result.Valid() {
		return nil
	}
	problems := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		problems = append(problems, desc.String())
	}
	return &ValidationError{Problems: problems}
}
