package resolver

import (
	"fmt"
	"strings"
	"time"

	"github.com/lestrrat-go/strftime"
	"github.com/specialistvlad/calocluster/internal/config"
	"github.com/specialistvlad/calocluster/internal/tree"
)

// expander replaces ${...} placeholders in string leaves. Supported forms:
//
//	${now:%Y-%m-%d}  the resolution time, strftime(3) directives
//	${run_id}        the run id
//	${a.b.c}         another key of the tree
//
// "$${" is a literal "${". A leaf that is exactly one reference keeps the
// referenced value's type.
type expander struct {
	root   map[string]any
	now    time.Time
	runID  string
	done   map[string]any
	active map[string]bool
}

func expand(root map[string]any, now time.Time, runID string) error {
	e := &expander{
		root:   root,
		now:    now,
		runID:  runID,
		done:   map[string]any{},
		active: map[string]bool{},
	}
	return tree.Walk(root, func(path []string, leaf any) (any, error) {
		return e.leaf(tree.Join(path), leaf)
	})
}

type segment struct {
	text        string
	placeholder bool
}

func (e *expander) leaf(key string, v any) (any, error) {
	s, ok := v.(string)
	if !ok || !strings.Contains(s, "${") {
		return v, nil
	}
	if out, ok := e.done[key]; ok {
		return out, nil
	}
	if e.active[key] {
		return nil, config.Errorf("interpolate", key, config.ErrInterpolation, "reference cycle")
	}
	e.active[key] = true
	defer delete(e.active, key)

	out, err := e.expandString(key, s)
	if err != nil {
		return nil, err
	}
	e.done[key] = out
	return out, nil
}

func (e *expander) expandString(key, s string) (any, error) {
	segs, err := scan(s)
	if err != nil {
		return nil, config.Errorf("interpolate", key, config.ErrInterpolation, "%v", err)
	}
	if len(segs) == 1 && segs[0].placeholder {
		return e.resolve(key, segs[0].text)
	}

	var b strings.Builder
	for _, seg := range segs {
		if !seg.placeholder {
			b.WriteString(seg.text)
			continue
		}
		v, err := e.resolve(key, seg.text)
		if err != nil {
			return nil, err
		}
		switch v.(type) {
		case map[string]any, []any:
			return nil, config.Errorf("interpolate", key, config.ErrInterpolation,
				"${%s} is a container and cannot be embedded in a string", seg.text)
		}
		b.WriteString(tree.Format(v))
	}
	return b.String(), nil
}

func (e *expander) resolve(key, expr string) (any, error) {
	switch {
	case expr == "run_id":
		return e.runID, nil
	case strings.HasPrefix(expr, "now:"):
		out, err := strftime.Format(strings.TrimPrefix(expr, "now:"), e.now)
		if err != nil {
			return nil, config.Errorf("interpolate", key, config.ErrInterpolation, "${%s}: %v", expr, err)
		}
		return out, nil
	}

	path, err := tree.Split(expr)
	if err != nil {
		return nil, config.Errorf("interpolate", key, config.ErrInterpolation, "${%s}: %v", expr, err)
	}
	// Walk one segment at a time so an intermediate alias like
	// "alias: ${model}" is expanded before stepping through it.
	var cur any = e.root
	for i, seg := range path {
		if i > 0 {
			if cur, err = e.leaf(tree.Join(path[:i]), cur); err != nil {
				return nil, err
			}
		}
		next, ok := tree.Child(cur, seg)
		if !ok {
			return nil, config.Errorf("interpolate", key, config.ErrInterpolation, "${%s} does not exist", expr)
		}
		cur = next
	}
	return e.node(tree.Join(path), cur)
}

// node resolves every placeholder below a referenced node and returns a copy.
func (e *expander) node(key string, v any) (any, error) {
	switch n := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(n))
		for _, k := range tree.SortedKeys(n) {
			child, err := e.node(key+"."+k, n[k])
			if err != nil {
				return nil, err
			}
			out[k] = child
		}
		return out, nil
	case []any:
		out := make([]any, len(n))
		for i, elem := range n {
			child, err := e.node(fmt.Sprintf("%s.%d", key, i), elem)
			if err != nil {
				return nil, err
			}
			out[i] = child
		}
		return out, nil
	default:
		return e.leaf(key, v)
	}
}

func scan(s string) ([]segment, error) {
	var (
		segs []segment
		lit  strings.Builder
	)
	flush := func() {
		if lit.Len() > 0 {
			segs = append(segs, segment{text: lit.String()})
			lit.Reset()
		}
	}
	for i := 0; i < len(s); {
		switch {
		case strings.HasPrefix(s[i:], "$${"):
			lit.WriteString("${")
			i += 3
		case strings.HasPrefix(s[i:], "${"):
			end := strings.IndexByte(s[i+2:], '}')
			if end < 0 {
				return nil, fmt.Errorf("unterminated placeholder in %q", s)
			}
			expr := strings.TrimSpace(s[i+2 : i+2+end])
			if expr == "" {
				return nil, fmt.Errorf("empty placeholder in %q", s)
			}
			flush()
			segs = append(segs, segment{text: expr, placeholder: true})
			i += end + 3
		default:
			lit.WriteByte(s[i])
			i++
		}
	}
	flush()
	return segs, nil
}
