package formats

import (
	"context"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// TOML loads .toml files. Datetimes become RFC 3339 strings.
type TOML struct{}

func (TOML) Extensions() []string { return []string{"toml"} }

func (TOML) Load(_ context.Context, path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if _, err := toml.Decode(string(data), &doc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return topLevelMap(path, doc)
}
