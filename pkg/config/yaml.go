package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/goccy/go-yaml"
)

// yamlProvider implements Source for a YAML config file.
type yamlProvider struct {
	path string
}

// NewYAMLProvider creates a source reading path. A missing file yields no values.
func NewYAMLProvider(path string) Source {
	return &yamlProvider{path: path}
}

// Load parses the file into nested maps keyed like the koanf tags.
func (p *yamlProvider) Load() (map[string]any, error) {
	if p.path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(p.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", p.path, err)
	}
	var out map[string]any
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", p.path, err)
	}
	return out, nil
}

// Type returns the source type identifier.
func (p *yamlProvider) Type() SourceType {
	return SourceYAML
}
