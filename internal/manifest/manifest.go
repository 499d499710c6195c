// Package manifest loads the optional vesper.yaml project manifest:
// the project name, its source roots and the language revision it
// requires, expressed as a semver constraint.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Masterminds/semver/v3"
	"github.com/goccy/go-yaml"
)

// FileName is the manifest file looked up in the project directory
const FileName = "vesper.yaml"

// Manifest describes a Vesper project
type Manifest struct {
	Name     string   `yaml:"name"`
	Language string   `yaml:"language,omitempty"` // semver constraint, e.g. ">= 0.1"
	Sources  []string `yaml:"sources,omitempty"`  // source roots relative to the manifest
}

// Load reads the manifest in dir. A missing manifest is not an error;
// both results are nil.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes manifest content, validating the language constraint
// eagerly so a malformed manifest fails at load time rather than at
// first check.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	if m.Name == "" {
		return nil, fmt.Errorf("manifest is missing a project name")
	}
	if m.Language != "" {
		if _, err := semver.NewConstraint(m.Language); err != nil {
			return nil, fmt.Errorf("invalid language constraint %q: %w", m.Language, err)
		}
	}
	return &m, nil
}

// CheckLanguage verifies that version satisfies the manifest's
// language constraint. No constraint accepts every version.
func (m *Manifest) CheckLanguage(version string) error {
	if m.Language == "" {
		return nil
	}
	c, err := semver.NewConstraint(m.Language)
	if err != nil {
		return fmt.Errorf("invalid language constraint %q: %w", m.Language, err)
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return fmt.Errorf("invalid language version %q: %w", version, err)
	}
	if !c.Check(v) {
		return fmt.Errorf("project %q requires language %s, compiler implements %s", m.Name, m.Language, version)
	}
	return nil
}
