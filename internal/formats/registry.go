package formats

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/specialistvlad/calocluster/internal/config"
	"github.com/specialistvlad/calocluster/internal/ctxlog"
)

// Registry maps file extensions to loaders. Lookup order follows
// registration order, which decides which file wins when a variant exists
// in more than one format.
type Registry struct {
	order   []string
	loaders map[string]config.Loader
}

// New creates a registry with the given loaders registered in order.
func New(loaders ...config.Loader) *Registry {
	r := &Registry{loaders: map[string]config.Loader{}}
	for _, l := range loaders {
		r.Register(l)
	}
	return r
}

// Default returns a registry for YAML, TOML and HCL, in that order.
func Default() *Registry {
	return New(YAML{}, TOML{}, HCL{})
}

// Register adds l for each extension it reports. A later registration for
// the same extension replaces the earlier loader but keeps its position.
func (r *Registry) Register(l config.Loader) {
	for _, ext := range l.Extensions() {
		ext = strings.ToLower(ext)
		if _, ok := r.loaders[ext]; !ok {
			r.order = append(r.order, ext)
		}
		r.loaders[ext] = l
	}
}

// Extensions returns the registered extensions in lookup order.
func (r *Registry) Extensions() []string {
	return append([]string(nil), r.order...)
}

// Supports reports whether path has a registered extension.
func (r *Registry) Supports(path string) bool {
	_, ok := r.loaders[extOf(path)]
	return ok
}

// Find returns the first existing file named stem plus a registered
// extension, e.g. stem "configs/model/spvcnn" may yield "configs/model/spvcnn.yaml".
func (r *Registry) Find(stem string) (string, bool) {
	for _, ext := range r.order {
		candidate := stem + "." + ext
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
	}
	return "", false
}

// Load reads path with the loader registered for its extension.
func (r *Registry) Load(ctx context.Context, path string) (map[string]any, error) {
	l, ok := r.loaders[extOf(path)]
	if !ok {
		return nil, fmt.Errorf("no loader for %q (supported: %s)", path, strings.Join(r.order, ", "))
	}
	ctxlog.FromContext(ctx).Debug("Loading config file.", "path", path)
	doc, err := l.Load(ctx, path)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		doc = map[string]any{}
	}
	return doc, nil
}

func extOf(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}
