package tree

import (
	"fmt"
	"strconv"
)

// Kind identifies which variant of the tagged union a Value holds.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindList
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindMap:
		return "mapping"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is a read-only view of a single node in a tree.
type Value struct {
	kind Kind
	raw  any
}

// ValueOf wraps a normalized node. It returns an error for any type that
// Normalize would not produce.
func ValueOf(v any) (Value, error) {
	switch v.(type) {
	case nil:
		return Value{kind: KindNull}, nil
	case bool:
		return Value{kind: KindBool, raw: v}, nil
	case int64:
		return Value{kind: KindInt, raw: v}, nil
	case float64:
		return Value{kind: KindFloat, raw: v}, nil
	case string:
		return Value{kind: KindString, raw: v}, nil
	case []any:
		return Value{kind: KindList, raw: v}, nil
	case map[string]any:
		return Value{kind: KindMap, raw: v}, nil
	default:
		return Value{}, fmt.Errorf("unsupported node type %T", v)
	}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) AsBool() (bool, bool) {
	b, ok := v.raw.(bool)
	return b, ok
}

func (v Value) AsInt() (int64, bool) {
	i, ok := v.raw.(int64)
	return i, ok
}

// AsFloat also accepts integers, since "lr: 1" is a valid float setting.
func (v Value) AsFloat() (float64, bool) {
	switch n := v.raw.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func (v Value) AsString() (string, bool) {
	s, ok := v.raw.(string)
	return s, ok
}

// AsList returns a deep copy of the list.
func (v Value) AsList() ([]any, bool) {
	l, ok := v.raw.([]any)
	if !ok {
		return nil, false
	}
	return Clone(l).([]any), true
}

// AsMap returns a deep copy of the mapping.
func (v Value) AsMap() (map[string]any, bool) {
	m, ok := v.raw.(map[string]any)
	if !ok {
		return nil, false
	}
	return Clone(m).(map[string]any), true
}

// Interface returns a deep copy of the underlying node.
func (v Value) Interface() any {
	return Clone(v.raw)
}

// String renders scalars the way they would be written in an override.
func (v Value) String() string {
	return Format(v.raw)
}

// Format renders a scalar node as text. Lists and mappings use Go syntax.
func Format(v any) string {
	switch n := v.(type) {
	case nil:
		return "null"
	case string:
		return n
	case bool:
		return strconv.FormatBool(n)
	case int64:
		return strconv.FormatInt(n, 10)
	case float64:
		return strconv.FormatFloat(n, 'g', -1, 64)
	default:
		return fmt.Sprintf("%v", n)
	}
}
