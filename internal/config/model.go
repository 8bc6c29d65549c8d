package config

import (
	"fmt"

	"github.com/specialistvlad/calocluster/internal/tree"
)

// DefaultsKey is the root-file key holding the ordered group selections.
const DefaultsKey = "defaults"

// SelfEntry may appear in a defaults list; root fields are always applied
// after the defaults, so it carries no meaning here.
const SelfEntry = "_self_"

// Selection picks one variant of a config group. An empty Variant declares
// the group without selecting anything, which is how a root file writes
// `semantic_criterion: null`.
type Selection struct {
	Group   string
	Variant string
}

func (s Selection) String() string {
	if s.Variant == "" {
		return s.Group + "=null"
	}
	return s.Group + "=" + s.Variant
}

// Root is the parsed root configuration file.
type Root struct {
	Path     string
	Defaults []Selection
	// Fields holds every top-level entry other than the defaults list.
	Fields map[string]any
}

// ParseRoot splits a loaded root document into its defaults list and fields.
func ParseRoot(path string, doc map[string]any) (*Root, error) {
	root := &Root{Path: path, Fields: map[string]any{}}
	for k, v := range doc {
		if k != DefaultsKey {
			root.Fields[k] = tree.Clone(v)
		}
	}

	raw, ok := doc[DefaultsKey]
	if !ok || raw == nil {
		return root, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, Errorf("load", path, ErrTypeMismatch, "%q must be a list", DefaultsKey)
	}

	seen := map[string]bool{}
	for i, entry := range list {
		sel, skip, err := parseDefault(entry)
		if err != nil {
			return nil, Errorf("load", path, ErrInvalidValue, "%s[%d]: %v", DefaultsKey, i, err)
		}
		if skip {
			continue
		}
		if seen[sel.Group] {
			return nil, Errorf("load", path, ErrInvalidValue, "group %q listed twice in %s", sel.Group, DefaultsKey)
		}
		seen[sel.Group] = true
		root.Defaults = append(root.Defaults, sel)
	}
	return root, nil
}

func parseDefault(entry any) (Selection, bool, error) {
	switch e := entry.(type) {
	case string:
		if e == SelfEntry {
			return Selection{}, true, nil
		}
		return Selection{}, false, fmt.Errorf("plain entry %q is not supported, use `group: variant`", e)
	case map[string]any:
		if len(e) != 1 {
			return Selection{}, false, fmt.Errorf("entry must have exactly one key, got %d", len(e))
		}
		for group, variant := range e {
			switch v := variant.(type) {
			case nil:
				return Selection{Group: group}, false, nil
			case string:
				if v == "" {
					return Selection{}, false, fmt.Errorf("group %q has an empty variant name", group)
				}
				return Selection{Group: group, Variant: v}, false, nil
			default:
				return Selection{}, false, fmt.Errorf("variant of group %q must be a name or null", group)
			}
		}
	}
	return Selection{}, false, fmt.Errorf("unsupported entry of type %T", entry)
}
