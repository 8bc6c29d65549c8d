package formats

import (
	"context"
	"fmt"
	"os"

	"github.com/specialistvlad/calocluster/internal/tree"
	"gopkg.in/yaml.v3"
)

// YAML loads .yaml and .yml files. Only the first document is read.
type YAML struct{}

func (YAML) Extensions() []string { return []string{"yaml", "yml"} }

func (YAML) Load(_ context.Context, path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return DecodeYAML(path, data)
}

// DecodeYAML parses a YAML document whose top level must be a mapping.
func DecodeYAML(name string, data []byte) (map[string]any, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return topLevelMap(name, doc)
}

func topLevelMap(name string, doc any) (map[string]any, error) {
	if doc == nil {
		return map[string]any{}, nil
	}
	norm, err := tree.Normalize(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	m, ok := norm.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("failed to read %s: top level must be a mapping, got %T", name, doc)
	}
	return m, nil
}
