package resolver

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/specialistvlad/calocluster/internal/formats"
	"github.com/specialistvlad/calocluster/internal/fsutil"
)

// Groups indexes the config groups found under a config directory. Every
// sub-directory holding at least one loadable file is a group and every
// such file is a variant named by its stem.
type Groups struct {
	dir      string
	variants map[string]map[string]string
}

// DiscoverGroups scans dir. When a variant exists in several formats the
// registry's extension order decides which file is used.
func DiscoverGroups(dir string, reg *formats.Registry) (*Groups, error) {
	names, err := fsutil.ListDirs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list config groups in %s: %w", dir, err)
	}
	rank := map[string]int{}
	for i, ext := range reg.Extensions() {
		rank[ext] = i
	}

	g := &Groups{dir: dir, variants: map[string]map[string]string{}}
	for _, name := range names {
		files, err := fsutil.FindFilesByExtension(filepath.Join(dir, name), reg.Extensions()...)
		if err != nil {
			return nil, fmt.Errorf("failed to list variants of group %q: %w", name, err)
		}
		if len(files) == 0 {
			continue
		}
		sort.SliceStable(files, func(i, j int) bool {
			return rank[extOf(files[i])] < rank[extOf(files[j])]
		})
		variants := map[string]string{}
		for _, f := range files {
			stem := fsutil.Stem(f)
			if _, seen := variants[stem]; !seen {
				variants[stem] = f
			}
		}
		g.variants[name] = variants
	}
	return g, nil
}

// Dir is the config directory the index was built from.
func (g *Groups) Dir() string { return g.dir }

// Has reports whether name is a known group.
func (g *Groups) Has(name string) bool {
	_, ok := g.variants[name]
	return ok
}

// Names returns all group names, sorted.
func (g *Groups) Names() []string {
	out := make([]string, 0, len(g.variants))
	for name := range g.variants {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Variants returns the variant names of group, sorted.
func (g *Groups) Variants(group string) []string {
	out := make([]string, 0, len(g.variants[group]))
	for v := range g.variants[group] {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// File returns the file backing a variant.
func (g *Groups) File(group, variant string) (string, bool) {
	f, ok := g.variants[group][variant]
	return f, ok
}
