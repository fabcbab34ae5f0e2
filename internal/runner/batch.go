package runner

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Batch is a set of prompts to evaluate against one or more models.
type Batch struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Models      []string `yaml:"models"` // used when no models are given at run time
	Entries     []Entry  `yaml:"prompts"`
}

// Entry is one prompt written for a challenge.
type Entry struct {
	ID        string `yaml:"id"`
	Challenge string `yaml:"challenge"`
	Prompt    string `yaml:"prompt"`
	TimeTaken int    `yaml:"time_taken"`
}

// LoadBatch reads a batch file. Entries without an ID are numbered from 1.
func LoadBatch(path string) (*Batch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read batch file: %w", err)
	}
	b, err := ParseBatch(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return b, nil
}

// ParseBatch decodes and validates a YAML batch definition.
func ParseBatch(data []byte) (*Batch, error) {
	var b Batch
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("failed to parse batch: %w", err)
	}
	if len(b.Entries) == 0 {
		return nil, fmt.Errorf("batch has no prompts")
	}
	if b.Name == "" {
		b.Name = "batch"
	}

	seen := make(map[string]bool, len(b.Entries))
	for i := range b.Entries {
		e := &b.Entries[i]
		if e.ID == "" {
			e.ID = strconv.Itoa(i + 1)
		}
		if seen[e.ID] {
			return nil, fmt.Errorf("duplicate prompt id %q", e.ID)
		}
		seen[e.ID] = true
		if strings.TrimSpace(e.Challenge) == "" {
			return nil, fmt.Errorf("prompt %s: challenge is required", e.ID)
		}
		if e.TimeTaken < 0 {
			return nil, fmt.Errorf("prompt %s: time_taken must not be negative", e.ID)
		}
	}
	return &b, nil
}
