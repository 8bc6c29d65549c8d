package tree

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"time"

	"github.com/knadh/koanf/maps"
)

// Normalize converts a decoded document into the canonical tree shape.
// Integers of every width become int64, float32 becomes float64, times
// become RFC 3339 strings and every mapping is keyed by string.
func Normalize(v any) (any, error) {
	switch n := v.(type) {
	case nil, bool, int64, float64, string:
		return n, nil
	case int:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case uint:
		return normalizeUint(uint64(n))
	case uint8:
		return int64(n), nil
	case uint16:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case uint64:
		return normalizeUint(n)
	case float32:
		return float64(n), nil
	case time.Time:
		return n.Format(time.RFC3339Nano), nil
	case fmt.Stringer:
		if reflect.TypeOf(n).Kind() == reflect.Struct {
			// TOML local dates and times.
			return n.String(), nil
		}
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			elem, err := Normalize(rv.Index(i).Interface())
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = elem
		}
		return out, nil
	case reflect.Map:
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			key := fmt.Sprint(iter.Key().Interface())
			elem, err := Normalize(iter.Value().Interface())
			if err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}
			out[key] = elem
		}
		return out, nil
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil, nil
		}
		return Normalize(rv.Elem().Interface())
	}
	return nil, fmt.Errorf("unsupported value of type %T", v)
}

func normalizeUint(u uint64) (any, error) {
	if u > math.MaxInt64 {
		return nil, fmt.Errorf("integer %d overflows int64", u)
	}
	return int64(u), nil
}

// Clone returns a deep copy of a normalized node.
func Clone(v any) any {
	switch n := v.(type) {
	case map[string]any:
		return maps.Copy(n)
	case []any:
		out := make([]any, len(n))
		for i, e := range n {
			out[i] = Clone(e)
		}
		return out
	default:
		return v
	}
}

// Merge deep-merges src into dst. Nested mappings merge key by key; any
// other value in src, including lists and null, replaces the value in dst.
// src is copied, never aliased.
func Merge(dst, src map[string]any) {
	maps.Merge(maps.Copy(src), dst)
}

// Lookup returns the node at path. Numeric segments index into lists.
// A null node is found and returned as nil with ok set.
func Lookup(root map[string]any, path []string) (any, bool) {
	var cur any = root
	for _, seg := range path {
		next, ok := Child(cur, seg)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// Child returns one step below node: a mapping key or a list index.
func Child(node any, seg string) (any, bool) {
	switch n := node.(type) {
	case map[string]any:
		next, ok := n[seg]
		return next, ok
	case []any:
		idx, err := strconv.Atoi(seg)
		if err != nil || idx < 0 || idx >= len(n) || strconv.Itoa(idx) != seg {
			return nil, false
		}
		return n[idx], true
	default:
		return nil, false
	}
}

// Set assigns v at path, replacing any previous value and creating
// intermediate mappings that do not exist or are null. It fails when an
// intermediate node exists but is not a mapping.
func Set(root map[string]any, path []string, v any) error {
	if len(path) == 0 {
		return fmt.Errorf("empty key path")
	}
	var parent any = root
	for i := range path[:len(path)-1] {
		next, ok := Lookup(root, path[:i+1])
		if !ok || next == nil {
			parent = nil
			break
		}
		if _, isMap := next.(map[string]any); !isMap {
			return fmt.Errorf("cannot set %q: %q is a %s, not a mapping",
				Join(path), Join(path[:i+1]), kindOf(next))
		}
		parent = next
	}
	if m, ok := parent.(map[string]any); ok {
		delete(m, path[len(path)-1])
	}
	maps.Merge(maps.Unflatten(map[string]any{Join(path): Clone(v)}, "."), root)
	return nil
}

// Delete removes the node at path and reports whether it existed. A
// mapping left empty by the removal is removed as well.
func Delete(root map[string]any, path []string) bool {
	if len(path) == 0 {
		return false
	}
	if _, ok := Lookup(root, path); !ok {
		return false
	}
	if len(path) > 1 {
		if p, _ := Lookup(root, path[:len(path)-1]); p != nil {
			if _, isMap := p.(map[string]any); !isMap {
				return false
			}
		}
	}
	maps.Delete(root, path)
	return true
}

// WalkFunc is called for every leaf. Returning a different value replaces
// the leaf in place.
type WalkFunc func(path []string, leaf any) (any, error)

// Walk visits every non-container node in deterministic order: mapping keys
// sorted, list elements by index.
func Walk(root map[string]any, fn WalkFunc) error {
	return walkMap(root, nil, fn)
}

func walkMap(m map[string]any, prefix []string, fn WalkFunc) error {
	for _, k := range SortedKeys(m) {
		path := append(append([]string(nil), prefix...), k)
		repl, err := walkNode(m[k], path, fn)
		if err != nil {
			return err
		}
		m[k] = repl
	}
	return nil
}

func walkNode(v any, path []string, fn WalkFunc) (any, error) {
	switch n := v.(type) {
	case map[string]any:
		return n, walkMap(n, path, fn)
	case []any:
		for i, e := range n {
			repl, err := walkNode(e, append(append([]string(nil), path...), strconv.Itoa(i)), fn)
			if err != nil {
				return nil, err
			}
			n[i] = repl
		}
		return n, nil
	default:
		return fn(path, v)
	}
}

// SortedKeys returns the keys of m in lexical order.
func SortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func kindOf(v any) string {
	val, err := ValueOf(v)
	if err != nil {
		return fmt.Sprintf("%T", v)
	}
	return val.Kind().String()
}
