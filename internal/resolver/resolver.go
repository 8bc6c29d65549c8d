package resolver

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/specialistvlad/calocluster/internal/config"
	"github.com/specialistvlad/calocluster/internal/ctxlog"
	"github.com/specialistvlad/calocluster/internal/formats"
	"github.com/specialistvlad/calocluster/internal/override"
	"github.com/specialistvlad/calocluster/internal/tree"
)

// RunIDKey is the top-level key that, when present and null, receives the
// run id of the invocation.
const RunIDKey = "run_id"

// missingMarker marks a value that an override must supply.
const missingMarker = "???"

// Resolver resolves configuration trees. It holds no per-invocation state
// and may be reused.
type Resolver struct {
	registry *formats.Registry
	now      func() time.Time
	runID    string
	newRunID func() string
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithRegistry sets the loaders used for root and variant files.
func WithRegistry(reg *formats.Registry) Option {
	return func(r *Resolver) { r.registry = reg }
}

// WithClock fixes the time used by ${now:...} placeholders.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

// WithRunID fixes the run id. It takes precedence over a run_id set in the
// configuration.
func WithRunID(id string) Option {
	return func(r *Resolver) { r.runID = id }
}

// WithRunIDGenerator replaces the random run id source.
func WithRunIDGenerator(gen func() string) Option {
	return func(r *Resolver) { r.newRunID = gen }
}

// New creates a Resolver with YAML, TOML and HCL loaders, the wall clock
// and random run ids unless options say otherwise.
func New(opts ...Option) *Resolver {
	r := &Resolver{
		registry: formats.Default(),
		now:      time.Now,
		newRunID: NewRunID,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewRunID returns a short random identifier in the style of experiment
// trackers: eight lowercase hex characters.
func NewRunID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// ResolveFile resolves using the defaults list declared in the root file.
func (r *Resolver) ResolveFile(ctx context.Context, baseConfigPath string, overrides []string) (*config.Resolved, error) {
	root, err := r.loadRoot(ctx, baseConfigPath)
	if err != nil {
		return nil, err
	}
	return r.resolve(ctx, root, root.Defaults, overrides)
}

// Resolve resolves with an explicit defaults list, ignoring the one in the
// root file. The root file's other fields still apply.
func (r *Resolver) Resolve(ctx context.Context, baseConfigPath string, defaults []config.Selection, overrides []string) (*config.Resolved, error) {
	root, err := r.loadRoot(ctx, baseConfigPath)
	if err != nil {
		return nil, err
	}
	return r.resolve(ctx, root, defaults, overrides)
}

// Groups indexes the groups next to a root file.
func (r *Resolver) Groups(baseConfigPath string) (*Groups, error) {
	return DiscoverGroups(filepath.Dir(baseConfigPath), r.registry)
}

func (r *Resolver) loadRoot(ctx context.Context, path string) (*config.Root, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, config.Errorf("load", path, config.ErrMissingFile, "")
		}
		return nil, config.Errorf("load", path, config.ErrMissingFile, "%v", err)
	}
	if !r.registry.Supports(path) {
		return nil, config.Errorf("load", path, config.ErrMissingFile, "unsupported file extension")
	}
	doc, err := r.registry.Load(ctx, path)
	if err != nil {
		return nil, config.Errorf("load", path, config.ErrInvalidValue, "%v", err)
	}
	return config.ParseRoot(path, doc)
}

func (r *Resolver) resolve(ctx context.Context, root *config.Root, defaults []config.Selection, tokens []string) (*config.Resolved, error) {
	logger := ctxlog.FromContext(ctx)

	groups, err := r.Groups(root.Path)
	if err != nil {
		return nil, config.Errorf("load", filepath.Dir(root.Path), config.ErrMissingFile, "%v", err)
	}
	logger.Debug("Config groups discovered.", "dir", groups.Dir(), "groups", groups.Names())

	if err := validateDefaults(defaults, groups); err != nil {
		return nil, err
	}
	overrides, err := override.ParseAll(tokens, groups)
	if err != nil {
		return nil, err
	}
	if err := validateOverrides(overrides, groups, root); err != nil {
		return nil, err
	}

	p := &pass{ctx: ctx, registry: r.registry, groups: groups, tree: map[string]any{}}
	for _, sel := range defaults {
		if sel.Variant == "" {
			logger.Debug("Group declared without a selection.", "group", sel.Group)
			continue
		}
		if err := p.selectVariant(sel.Group, sel.Variant, sel.String()); err != nil {
			return nil, err
		}
	}
	tree.Merge(p.tree, root.Fields)
	for _, o := range overrides {
		if err := p.apply(o); err != nil {
			return nil, err
		}
	}

	runID := r.pickRunID(p.tree)
	if v, ok := p.tree[RunIDKey]; ok && v == nil {
		p.tree[RunIDKey] = runID
	}
	if err := expand(p.tree, r.now(), runID); err != nil {
		return nil, err
	}
	if err := checkMissing(p.tree); err != nil {
		return nil, err
	}

	resolved, err := config.NewResolved(p.tree, p.selections, tokens)
	if err != nil {
		return nil, config.Errorf("freeze", root.Path, config.ErrInvalidValue, "%v", err)
	}
	logger.Debug("Configuration resolved.", "selections", len(p.selections), "overrides", len(tokens), "run_id", runID)
	return resolved, nil
}

func (r *Resolver) pickRunID(t map[string]any) string {
	if r.runID != "" {
		return r.runID
	}
	if s, ok := t[RunIDKey].(string); ok && s != "" && s != missingMarker && !strings.Contains(s, "${") {
		return s
	}
	return r.newRunID()
}

func validateDefaults(defaults []config.Selection, groups *Groups) error {
	seen := map[string]bool{}
	for _, sel := range defaults {
		if !groups.Has(sel.Group) {
			return config.Errorf("select", sel.Group, config.ErrUnknownGroup, "in defaults list")
		}
		if seen[sel.Group] {
			return config.Errorf("select", sel.Group, config.ErrInvalidValue, "group listed twice in defaults list")
		}
		seen[sel.Group] = true
		if sel.Variant == "" {
			continue
		}
		if _, ok := groups.File(sel.Group, sel.Variant); !ok {
			return unknownVariant(sel.String(), sel.Group, sel.Variant, groups)
		}
	}
	return nil
}

func validateOverrides(overrides []override.Override, groups *Groups, root *config.Root) error {
	for _, o := range overrides {
		switch o.Kind {
		case override.Select:
			if _, ok := groups.File(o.Group, o.Variant); !ok {
				return unknownVariant(o.Token, o.Group, o.Variant, groups)
			}
		case override.Set:
			head := o.Path[0]
			if groups.Has(head) {
				continue
			}
			if _, ok := root.Fields[head]; ok {
				continue
			}
			sentinel := config.ErrUnknownKey
			if len(o.Path) > 1 {
				sentinel = config.ErrUnknownGroup
			}
			return config.Errorf("override", head, sentinel, "in %q; use '+%s' to add a new key", o.Token, o.Token)
		}
	}
	return nil
}

func unknownVariant(token, group, variant string, groups *Groups) error {
	return config.Errorf("select", token, config.ErrUnknownVariant,
		"group %q has no variant %q (available: %s)", group, variant, strings.Join(groups.Variants(group), ", "))
}

// pass is the mutable state of one resolution.
type pass struct {
	ctx        context.Context
	registry   *formats.Registry
	groups     *Groups
	tree       map[string]any
	selections []config.Selection
}

func (p *pass) selectVariant(group, variant, token string) error {
	file, ok := p.groups.File(group, variant)
	if !ok {
		return unknownVariant(token, group, variant, p.groups)
	}
	doc, err := p.registry.Load(p.ctx, file)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return config.Errorf("load", file, config.ErrMissingFile, "")
		}
		return config.Errorf("load", file, config.ErrInvalidValue, "%v", err)
	}

	p.tree[group] = doc
	ctxlog.FromContext(p.ctx).Debug("Group variant selected.", "group", group, "variant", variant, "file", file)
	for i := range p.selections {
		if p.selections[i].Group == group {
			p.selections[i].Variant = variant
			return nil
		}
	}
	p.selections = append(p.selections, config.Selection{Group: group, Variant: variant})
	return nil
}

func (p *pass) remove(o override.Override) error {
	idx := -1
	for i, s := range p.selections {
		if s.Group == o.Group {
			idx = i
			break
		}
	}
	if o.Variant != "" {
		current := ""
		if idx >= 0 {
			current = p.selections[idx].Variant
		}
		if current != o.Variant {
			return config.Errorf("override", o.Token, config.ErrInvalidValue,
				"group %q selects %q, not %q", o.Group, displayVariant(current), o.Variant)
		}
	}
	if idx >= 0 {
		p.selections = append(p.selections[:idx], p.selections[idx+1:]...)
	}
	delete(p.tree, o.Group)
	ctxlog.FromContext(p.ctx).Debug("Group removed.", "group", o.Group)
	return nil
}

func (p *pass) apply(o override.Override) error {
	switch o.Kind {
	case override.Select:
		return p.selectVariant(o.Group, o.Variant, o.Token)
	case override.Remove:
		return p.remove(o)
	case override.Set, override.Add:
		if err := tree.Set(p.tree, o.Path, o.Value); err != nil {
			return config.Errorf("override", o.Token, config.ErrTypeMismatch, "%v", err)
		}
		return nil
	}
	return config.Errorf("override", o.Token, config.ErrMalformedOverride, "unhandled kind %s", o.Kind)
}

func displayVariant(v string) string {
	if v == "" {
		return "nothing"
	}
	return v
}

func checkMissing(t map[string]any) error {
	return tree.Walk(t, func(path []string, leaf any) (any, error) {
		if s, ok := leaf.(string); ok && s == missingMarker {
			return nil, config.Errorf("validate", tree.Join(path), config.ErrMissingValue, "set it with %s=<value>", tree.Join(path))
		}
		return leaf, nil
	})
}

func extOf(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}
