package override

import (
	"fmt"
	"strings"

	"github.com/specialistvlad/calocluster/internal/config"
	"github.com/specialistvlad/calocluster/internal/tree"
)

// Kind is the action an override performs.
type Kind int

const (
	Select Kind = iota
	Remove
	Set
	Add
)

func (k Kind) String() string {
	switch k {
	case Select:
		return "select"
	case Remove:
		return "remove"
	case Set:
		return "set"
	case Add:
		return "add"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Override is one parsed token.
type Override struct {
	Token string
	Kind  Kind

	// Group and Variant are used by Select and Remove. A Remove with an
	// empty Variant removes whatever is selected.
	Group   string
	Variant string

	// Path and Value are used by Set and Add.
	Path  []string
	Value any
}

// GroupSet answers whether a name is a known config group.
type GroupSet interface {
	Has(group string) bool
}

// Parse classifies a single token. Unknown groups in select and remove
// tokens fail here; whether a set path is valid depends on the tree and is
// checked by the resolver.
func Parse(token string, groups GroupSet) (Override, error) {
	o := Override{Token: token}
	switch {
	case token == "":
		return o, malformed(token, "empty override")

	case strings.HasPrefix(token, "~"):
		o.Kind = Remove
		name, variant, hasVariant := strings.Cut(token[1:], "=")
		if err := checkGroup(token, name, groups); err != nil {
			return o, err
		}
		if hasVariant && variant == "" {
			return o, malformed(token, "empty variant after '='")
		}
		o.Group, o.Variant = name, variant
		return o, nil

	case strings.HasPrefix(token, "+"):
		o.Kind = Add
		key, raw, ok := strings.Cut(token[1:], "=")
		if !ok {
			return o, malformed(token, "'+' requires key=value")
		}
		return assign(o, key, raw)
	}

	key, raw, hasEq := strings.Cut(token, "=")
	if !hasEq {
		// group.variant shorthand.
		group, variant, ok := strings.Cut(token, ".")
		if !ok || group == "" || variant == "" || strings.Contains(variant, ".") {
			return o, malformed(token, "expected group=variant, ~group or key=value")
		}
		if err := checkGroup(token, group, groups); err != nil {
			return o, err
		}
		o.Kind, o.Group, o.Variant = Select, group, variant
		return o, nil
	}

	if groups.Has(key) {
		v, err := ParseValue(raw)
		if err != nil {
			return o, malformed(token, err.Error())
		}
		switch name := v.(type) {
		case nil:
			// group=null deselects, as in a defaults list.
			o.Kind, o.Group = Remove, key
			return o, nil
		case string:
			if name == "" {
				return o, malformed(token, "empty variant")
			}
			o.Kind, o.Group, o.Variant = Select, key, name
			return o, nil
		default:
			o.Kind, o.Group, o.Variant = Select, key, strings.TrimSpace(raw)
			return o, nil
		}
	}

	o.Kind = Set
	return assign(o, key, raw)
}

func assign(o Override, key, raw string) (Override, error) {
	path, err := tree.Split(key)
	if err != nil {
		return o, malformed(o.Token, err.Error())
	}
	v, err := ParseValue(raw)
	if err != nil {
		return o, malformed(o.Token, err.Error())
	}
	o.Path, o.Value = path, v
	return o, nil
}

// ParseAll parses tokens in order and stops at the first error, so a bad
// token is reported before any of them takes effect.
func ParseAll(tokens []string, groups GroupSet) ([]Override, error) {
	out := make([]Override, 0, len(tokens))
	for _, tok := range tokens {
		o, err := Parse(tok, groups)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

func checkGroup(token, name string, groups GroupSet) error {
	if name == "" || strings.Contains(name, ".") {
		return malformed(token, fmt.Sprintf("invalid group name %q", name))
	}
	if !groups.Has(name) {
		return config.Errorf("override", name, config.ErrUnknownGroup, "in %q", token)
	}
	return nil
}

func malformed(token, detail string) error {
	return config.Errorf("override", token, config.ErrMalformedOverride, "%s", detail)
}
