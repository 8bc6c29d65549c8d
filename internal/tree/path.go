package tree

import (
	"fmt"
	"strings"
)

// Split parses a dotted key path like "train.num_epochs" into its segments.
func Split(path string) ([]string, error) {
	if path == "" {
		return nil, fmt.Errorf("empty key path")
	}
	segs := strings.Split(path, ".")
	for _, s := range segs {
		if s == "" {
			return nil, fmt.Errorf("key path %q has an empty segment", path)
		}
	}
	return segs, nil
}

// Join is the inverse of Split.
func Join(segs []string) string {
	return strings.Join(segs, ".")
}
