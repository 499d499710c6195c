package source

import (
	"fmt"
	"os"
)

// Loader supplies source text for a path. Import resolution hands it
// paths already joined against the importing file's directory.
type Loader interface {
	Load(path string) (string, error)
}

// DiskLoader reads source files from the filesystem
type DiskLoader struct{}

// Load reads the file at path
func (DiskLoader) Load(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("loading %s: %w", path, err)
	}
	return string(data), nil
}

// MapLoader serves sources from memory, keyed by path. Used by tests
// and the REPL.
type MapLoader map[string]string

// Load returns the registered content for path
func (m MapLoader) Load(path string) (string, error) {
	content, ok := m[path]
	if !ok {
		return "", fmt.Errorf("no such source %q", path)
	}
	return content, nil
}
