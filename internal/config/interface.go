package config

import "context"

// Loader is the interface for a format-specific configuration file reader.
type Loader interface {
	// Extensions lists the file extensions handled, without the dot.
	Extensions() []string

	// Load reads a single file and returns it as a normalized tree.
	Load(ctx context.Context, path string) (map[string]any, error)
}
