package job

import (
	"github.com/specialistvlad/calocluster/internal/config"
)

// fields reads keys below one group and keeps the first error, so view
// constructors read like a list of declarations.
type fields struct {
	cfg    *config.Resolved
	group  string
	err    error
	seen   map[string]bool
	absent bool
}

func newFields(cfg *config.Resolved, group string) *fields {
	f := &fields{cfg: cfg, group: group, seen: map[string]bool{}}
	if group != "" && !cfg.Has(group) {
		f.absent = true
	}
	return f
}

func (f *fields) path(key string) string {
	if f.group == "" {
		return key
	}
	return f.group + "." + key
}

func (f *fields) has(key string) bool {
	f.seen[key] = true
	return f.cfg.Has(f.path(key))
}

func (f *fields) fail(err error) {
	if f.err == nil {
		f.err = err
	}
}

func (f *fields) String(key string) string {
	f.seen[key] = true
	if f.err != nil {
		return ""
	}
	v, err := f.cfg.String(f.path(key))
	f.fail(err)
	return v
}

func (f *fields) Int(key string) int64 {
	f.seen[key] = true
	if f.err != nil {
		return 0
	}
	v, err := f.cfg.Int(f.path(key))
	f.fail(err)
	return v
}

func (f *fields) Float(key string) float64 {
	f.seen[key] = true
	if f.err != nil {
		return 0
	}
	v, err := f.cfg.Float(f.path(key))
	f.fail(err)
	return v
}

func (f *fields) Bool(key string) bool {
	f.seen[key] = true
	if f.err != nil {
		return false
	}
	v, err := f.cfg.Bool(f.path(key))
	f.fail(err)
	return v
}

func (f *fields) Strings(key string) []string {
	f.seen[key] = true
	if f.err != nil {
		return nil
	}
	v, err := f.cfg.Strings(f.path(key))
	f.fail(err)
	return v
}

func (f *fields) Ints(key string) []int64 {
	f.seen[key] = true
	if f.err != nil {
		return nil
	}
	v, err := f.cfg.Ints(f.path(key))
	f.fail(err)
	return v
}

// Nullable reads a string that may be absent or null.
func (f *fields) Nullable(key string) string {
	if !f.has(key) || f.err != nil {
		return ""
	}
	v, _, err := f.cfg.NullableString(f.path(key))
	f.fail(err)
	return v
}

func (f *fields) OptString(key string) string {
	if !f.has(key) {
		return ""
	}
	return f.String(key)
}

func (f *fields) OptInt(key string) int64 {
	if !f.has(key) {
		return 0
	}
	return f.Int(key)
}

func (f *fields) OptFloat(key string) float64 {
	if !f.has(key) {
		return 0
	}
	return f.Float(key)
}

func (f *fields) OptBool(key string) bool {
	if !f.has(key) {
		return false
	}
	return f.Bool(key)
}

func (f *fields) OptStrings(key string) []string {
	if !f.has(key) {
		return nil
	}
	return f.Strings(key)
}

func (f *fields) OptInts(key string) []int64 {
	if !f.has(key) {
		return nil
	}
	return f.Ints(key)
}

// Check records an invalid-value error on key unless ok holds.
func (f *fields) Check(ok bool, key, format string, args ...any) {
	if f.err != nil || ok {
		return
	}
	f.fail(config.Errorf("validate", f.path(key), config.ErrInvalidValue, format, args...))
}

// OneOf checks that the string read from key is one of allowed.
func (f *fields) OneOf(key, value string, allowed ...string) {
	for _, a := range allowed {
		if value == a {
			return
		}
	}
	f.Check(false, key, "%q is not one of %v", value, allowed)
}

// Params returns the group's keys that were not read by the view.
func (f *fields) Params() map[string]any {
	if f.err != nil || f.group == "" {
		return nil
	}
	m, err := f.cfg.Map(f.group)
	if err != nil {
		f.fail(err)
		return nil
	}
	for k := range m {
		if f.seen[k] {
			delete(m, k)
		}
	}
	return m
}
