package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/specialistvlad/calocluster/internal/tree"
	"gopkg.in/yaml.v3"
)

// Resolved is the fully merged, frozen configuration of one invocation.
// All accessors return copies; nothing can mutate it after construction,
// so one value may be shared by every downstream component.
type Resolved struct {
	root       map[string]any
	selections []Selection
	overrides  []string
	canonical  []byte
}

// NewResolved freezes t. selections is the final ordered list of selected
// groups and overrides the tokens that were applied, both for provenance.
func NewResolved(t map[string]any, selections []Selection, overrides []string) (*Resolved, error) {
	root := tree.Clone(t).(map[string]any)
	canonical, err := encodeYAML(root)
	if err != nil {
		return nil, fmt.Errorf("failed to encode resolved config: %w", err)
	}
	return &Resolved{
		root:       root,
		selections: append([]Selection(nil), selections...),
		overrides:  append([]string(nil), overrides...),
		canonical:  canonical,
	}, nil
}

func encodeYAML(root map[string]any) ([]byte, error) {
	doc, err := yamlNode(root)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// yamlNode builds the document by hand so floats keep their type: the plain
// encoder writes 1.0 as 1, which decodes back as an integer.
func yamlNode(v any) (*yaml.Node, error) {
	switch n := v.(type) {
	case map[string]any:
		out := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, k := range tree.SortedKeys(n) {
			key := &yaml.Node{}
			if err := key.Encode(k); err != nil {
				return nil, err
			}
			val, err := yamlNode(n[k])
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			out.Content = append(out.Content, key, val)
		}
		return out, nil
	case []any:
		out := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, e := range n {
			val, err := yamlNode(e)
			if err != nil {
				return nil, err
			}
			out.Content = append(out.Content, val)
		}
		return out, nil
	case float64:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: formatFloat(n)}, nil
	default:
		out := &yaml.Node{}
		if err := out.Encode(v); err != nil {
			return nil, err
		}
		return out, nil
	}
}

func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return ".nan"
	case math.IsInf(f, 1):
		return ".inf"
	case math.IsInf(f, -1):
		return "-.inf"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

// YAML returns the canonical encoding. Mapping keys are sorted, so equal
// configurations encode to identical bytes.
func (r *Resolved) YAML() []byte {
	return bytes.Clone(r.canonical)
}

// JSON returns an indented JSON encoding with sorted keys. JSON has no
// spelling for nan or inf, so a tree holding one is rejected.
func (r *Resolved) JSON() ([]byte, error) {
	err := tree.Walk(tree.Clone(r.root).(map[string]any), func(path []string, leaf any) (any, error) {
		if f, ok := leaf.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
			return nil, Errorf("encode", tree.Join(path), ErrInvalidValue, "%s cannot be encoded as JSON", formatFloat(f))
		}
		return leaf, nil
	})
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(r.root, "", "  ")
}

// Tree returns a deep copy of the underlying tree.
func (r *Resolved) Tree() map[string]any {
	return tree.Clone(r.root).(map[string]any)
}

// Selections returns the final group selections in application order.
func (r *Resolved) Selections() []Selection {
	return append([]Selection(nil), r.selections...)
}

// Selected reports the variant chosen for group.
func (r *Resolved) Selected(group string) (string, bool) {
	for _, s := range r.selections {
		if s.Group == group && s.Variant != "" {
			return s.Variant, true
		}
	}
	return "", false
}

// Overrides returns the override tokens in the order they were applied.
func (r *Resolved) Overrides() []string {
	return append([]string(nil), r.overrides...)
}

// Has reports whether path exists, even with a null value.
func (r *Resolved) Has(path string) bool {
	segs, err := tree.Split(path)
	if err != nil {
		return false
	}
	_, ok := tree.Lookup(r.root, segs)
	return ok
}

// Value returns the node at a dotted path.
func (r *Resolved) Value(path string) (tree.Value, error) {
	segs, err := tree.Split(path)
	if err != nil {
		return tree.Value{}, Errorf("lookup", path, ErrUnknownKey, "%v", err)
	}
	raw, ok := tree.Lookup(r.root, segs)
	if !ok {
		return tree.Value{}, Errorf("lookup", path, ErrUnknownKey, "")
	}
	return tree.ValueOf(raw)
}

func (r *Resolved) typed(path string, want tree.Kind) (tree.Value, error) {
	v, err := r.Value(path)
	if err != nil {
		return v, err
	}
	if v.Kind() != want && !(want == tree.KindFloat && v.Kind() == tree.KindInt) {
		return v, Errorf("lookup", path, ErrTypeMismatch, "want %s, got %s", want, v.Kind())
	}
	return v, nil
}

func (r *Resolved) String(path string) (string, error) {
	v, err := r.typed(path, tree.KindString)
	if err != nil {
		return "", err
	}
	s, _ := v.AsString()
	return s, nil
}

func (r *Resolved) Int(path string) (int64, error) {
	v, err := r.typed(path, tree.KindInt)
	if err != nil {
		return 0, err
	}
	i, _ := v.AsInt()
	return i, nil
}

// Float accepts integer values as well.
func (r *Resolved) Float(path string) (float64, error) {
	v, err := r.typed(path, tree.KindFloat)
	if err != nil {
		return 0, err
	}
	f, _ := v.AsFloat()
	return f, nil
}

func (r *Resolved) Bool(path string) (bool, error) {
	v, err := r.typed(path, tree.KindBool)
	if err != nil {
		return false, err
	}
	b, _ := v.AsBool()
	return b, nil
}

// Strings returns a list whose elements must all be strings.
func (r *Resolved) Strings(path string) ([]string, error) {
	v, err := r.typed(path, tree.KindList)
	if err != nil {
		return nil, err
	}
	list, _ := v.AsList()
	out := make([]string, len(list))
	for i, e := range list {
		s, ok := e.(string)
		if !ok {
			return nil, Errorf("lookup", fmt.Sprintf("%s.%d", path, i), ErrTypeMismatch, "want string, got %T", e)
		}
		out[i] = s
	}
	return out, nil
}

// Ints returns a list whose elements must all be integers.
func (r *Resolved) Ints(path string) ([]int64, error) {
	v, err := r.typed(path, tree.KindList)
	if err != nil {
		return nil, err
	}
	list, _ := v.AsList()
	out := make([]int64, len(list))
	for i, e := range list {
		n, ok := e.(int64)
		if !ok {
			return nil, Errorf("lookup", fmt.Sprintf("%s.%d", path, i), ErrTypeMismatch, "want int, got %T", e)
		}
		out[i] = n
	}
	return out, nil
}

// Map returns a deep copy of the mapping at path.
func (r *Resolved) Map(path string) (map[string]any, error) {
	v, err := r.typed(path, tree.KindMap)
	if err != nil {
		return nil, err
	}
	m, _ := v.AsMap()
	return m, nil
}

// NullableString returns ("", false, nil) for an explicit null.
func (r *Resolved) NullableString(path string) (string, bool, error) {
	v, err := r.Value(path)
	if err != nil {
		return "", false, err
	}
	if v.IsNull() {
		return "", false, nil
	}
	s, ok := v.AsString()
	if !ok {
		return "", false, Errorf("lookup", path, ErrTypeMismatch, "want string or null, got %s", v.Kind())
	}
	return s, true, nil
}
