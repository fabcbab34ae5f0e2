package challenge

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed all:testdata
var embeddedChallenges embed.FS

// ErrNotFound is returned by Catalog for unknown challenge IDs.
var ErrNotFound = errors.New("challenge not found")

const (
	challengeFile     = "challenge.yaml"
	defaultTargetFile = "target.txt"
)

// Load loads a challenge by ID, searching first in the external directory
// (if provided), then in the embedded catalog.
func Load(id string, externalDir string) (*Challenge, error) {
	if externalDir != "" {
		dir := filepath.Join(externalDir, id)
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return loadFromFS(os.DirFS(dir), id)
		}
	}

	// embed.FS always uses forward slashes.
	subFS, err := fs.Sub(embeddedChallenges, path.Join("testdata", id))
	if err != nil {
		return nil, fmt.Errorf("challenge %q not found: %w", id, err)
	}
	if _, err := fs.Stat(subFS, challengeFile); err != nil {
		return nil, fmt.Errorf("challenge %q not found: %w", id, err)
	}
	return loadFromFS(subFS, id)
}

// List returns the IDs of all available challenges, sorted.
func List(externalDir string) ([]string, error) {
	seen := make(map[string]bool)
	var ids []string

	entries, err := fs.ReadDir(embeddedChallenges, "testdata")
	if err == nil {
		for _, e := range entries {
			if e.IsDir() {
				seen[e.Name()] = true
				ids = append(ids, e.Name())
			}
		}
	}

	if externalDir != "" {
		entries, err := os.ReadDir(externalDir)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read challenges directory: %w", err)
		}
		for _, e := range entries {
			if e.IsDir() && !seen[e.Name()] {
				ids = append(ids, e.Name())
			}
		}
	}

	slices.Sort(ids)
	return ids, nil
}

// LoadAll loads every available challenge. A challenge that fails to load
// aborts the whole call so that a broken catalog is noticed at startup.
func LoadAll(externalDir string) ([]*Challenge, error) {
	ids, err := List(externalDir)
	if err != nil {
		return nil, err
	}
	challenges := make([]*Challenge, 0, len(ids))
	for _, id := range ids {
		c, err := Load(id, externalDir)
		if err != nil {
			return nil, err
		}
		challenges = append(challenges, c)
	}
	return challenges, nil
}

func loadFromFS(fsys fs.FS, id string) (*Challenge, error) {
	data, err := fs.ReadFile(fsys, challengeFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s for challenge %q: %w", challengeFile, id, err)
	}

	// Validate the raw constraints first so type errors are reported with
	// schema paths rather than as opaque YAML decode failures.
	var raw struct {
		Constraints any `yaml:"constraints"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse %s for challenge %q: %w", challengeFile, id, err)
	}
	if err := ValidateConstraints(raw.Constraints); err != nil {
		return nil, fmt.Errorf("challenge %q: %w", id, err)
	}

	var c Challenge
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse %s for challenge %q: %w", challengeFile, id, err)
	}

	if c.ID == "" {
		c.ID = id
	}
	if c.Difficulty == "" {
		c.Difficulty = DifficultyBeginner
	}
	if c.TimeLimit <= 0 {
		c.TimeLimit = 300
	}
	if c.TargetFile == "" {
		c.TargetFile = defaultTargetFile
	}

	target, err := fs.ReadFile(fsys, c.TargetFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read target response for challenge %q: %w", id, err)
	}
	c.TargetResponse = strings.TrimSpace(string(target))
	if c.TargetResponse == "" {
		return nil, fmt.Errorf("challenge %q has an empty target response", id)
	}

	return &c, nil
}

// Catalog serves challenges straight from the embedded catalog and an
// optional external directory.
type Catalog struct {
	Dir string
}

// Challenge implements the lookup used by the trainer service.
func (c Catalog) Challenge(_ context.Context, id string) (*Challenge, error) {
	ch, err := Load(id, c.Dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return ch, nil
}

// ListChallenges returns the summaries of all challenges, optionally
// filtered by difficulty.
func (c Catalog) ListChallenges(_ context.Context, difficulty string) ([]Summary, error) {
	all, err := LoadAll(c.Dir)
	if err != nil {
		return nil, err
	}
	summaries := []Summary{}
	for _, ch := range all {
		if difficulty == "" || ch.Difficulty == difficulty {
			summaries = append(summaries, ch.Summary())
		}
	}
	return summaries, nil
}
