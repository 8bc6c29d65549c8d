package tree_test

import (
	"testing"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/google/go-cmp/cmp"
	"github.com/specialistvlad/calocluster/internal/tree"
	"github.com/stretchr/testify/require"
)

func TestMerge_NestedMappingsMergeKeyByKey(t *testing.T) {
	t.Parallel()

	dst := map[string]any{
		"a":    map[string]any{"x": int64(1), "y": int64(2)},
		"list": []any{int64(1), int64(2)},
	}
	src := map[string]any{
		"a":    map[string]any{"x": int64(9), "z": "new"},
		"list": []any{int64(3)},
		"b":    nil,
	}

	tree.Merge(dst, src)

	want := map[string]any{
		"a":    map[string]any{"x": int64(9), "y": int64(2), "z": "new"},
		"list": []any{int64(3)},
		"b":    nil,
	}
	if diff := cmp.Diff(want, dst); diff != "" {
		t.Errorf("merge mismatch (-want +got):\n%s", diff)
	}
}

func TestMerge_DoesNotAliasSource(t *testing.T) {
	t.Parallel()

	src := map[string]any{"a": map[string]any{"x": int64(1)}}
	dst := map[string]any{}
	tree.Merge(dst, src)

	dst["a"].(map[string]any)["x"] = int64(2)
	require.Equal(t, int64(1), src["a"].(map[string]any)["x"], spew.Sdump(src))
}

func TestSet_CreatesIntermediateMappings(t *testing.T) {
	t.Parallel()

	root := map[string]any{"a": map[string]any{"y": int64(2)}}
	require.NoError(t, tree.Set(root, []string{"a", "b", "c"}, 0.5))

	got, ok := tree.Lookup(root, []string{"a", "b", "c"})
	require.True(t, ok)
	require.Equal(t, 0.5, got)
	require.Equal(t, int64(2), root["a"].(map[string]any)["y"])
}

func TestSet_ReplacesWholeValues(t *testing.T) {
	t.Parallel()

	root := map[string]any{
		"model": map[string]any{"opts": map[string]any{"a": int64(1), "b": int64(2)}},
		"ckpt":  nil,
	}
	require.NoError(t, tree.Set(root, []string{"model", "opts"}, map[string]any{"c": int64(3)}))
	require.NoError(t, tree.Set(root, []string{"ckpt", "path"}, "x.ckpt"))

	want := map[string]any{
		"model": map[string]any{"opts": map[string]any{"c": int64(3)}},
		"ckpt":  map[string]any{"path": "x.ckpt"},
	}
	if diff := cmp.Diff(want, root); diff != "" {
		t.Errorf("set mismatch (-want +got):\n%s", diff)
	}
}

func TestSet_FailsThroughScalar(t *testing.T) {
	t.Parallel()

	root := map[string]any{"a": "scalar"}
	err := tree.Set(root, []string{"a", "b"}, int64(1))
	require.Error(t, err)
	require.Contains(t, err.Error(), `"a" is a string`)
}

func TestDelete(t *testing.T) {
	t.Parallel()

	root := map[string]any{"a": map[string]any{"b": int64(1)}, "c": int64(2)}
	require.True(t, tree.Delete(root, []string{"a", "b"}))
	require.False(t, tree.Delete(root, []string{"a", "b"}))
	require.False(t, tree.Delete(root, []string{"missing", "b"}))
	require.True(t, tree.Delete(root, []string{"c"}))
	require.Empty(t, root, "a mapping emptied by a delete goes with it")

	list := map[string]any{"feats": []any{"x"}}
	require.False(t, tree.Delete(list, []string{"feats", "0"}), "list elements are not deleted")
}

func TestLookup_ListIndex(t *testing.T) {
	t.Parallel()

	root := map[string]any{"feats": []any{"x", "y"}}
	v, ok := tree.Lookup(root, []string{"feats", "1"})
	require.True(t, ok)
	require.Equal(t, "y", v)

	_, ok = tree.Lookup(root, []string{"feats", "01"})
	require.False(t, ok)
	_, ok = tree.Lookup(root, []string{"feats", "2"})
	require.False(t, ok)
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	in := map[any]any{
		"i":     7,
		"u":     uint32(3),
		"f":     float32(0.5),
		"when":  time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		"list":  []string{"a", "b"},
		"table": []map[string]any{{"k": 1}},
		1:       "numeric key",
	}

	got, err := tree.Normalize(in)
	require.NoError(t, err)

	want := map[string]any{
		"i":     int64(7),
		"u":     int64(3),
		"f":     0.5,
		"when":  "2024-05-01T12:00:00Z",
		"list":  []any{"a", "b"},
		"table": []any{map[string]any{"k": int64(1)}},
		"1":     "numeric key",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("normalize mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalize_RejectsOverflowAndFuncs(t *testing.T) {
	t.Parallel()

	_, err := tree.Normalize(uint64(1 << 63))
	require.Error(t, err)

	_, err = tree.Normalize(map[string]any{"f": func() {}})
	require.Error(t, err)
}

func TestWalk_ReplacesLeavesInSortedOrder(t *testing.T) {
	t.Parallel()

	root := map[string]any{
		"b": "two",
		"a": map[string]any{"c": []any{"x", int64(1)}},
	}
	var visited []string
	err := tree.Walk(root, func(path []string, leaf any) (any, error) {
		visited = append(visited, tree.Join(path))
		if s, ok := leaf.(string); ok {
			return s + "!", nil
		}
		return leaf, nil
	})
	require.NoError(t, err)
	require.Equal(t, []string{"a.c.0", "a.c.1", "b"}, visited)
	require.Equal(t, "two!", root["b"])
	require.Equal(t, []any{"x!", int64(1)}, root["a"].(map[string]any)["c"])
}

func TestValue_Accessors(t *testing.T) {
	t.Parallel()

	v, err := tree.ValueOf(int64(5))
	require.NoError(t, err)
	require.Equal(t, tree.KindInt, v.Kind())
	f, ok := v.AsFloat()
	require.True(t, ok)
	require.Equal(t, 5.0, f)
	_, ok = v.AsString()
	require.False(t, ok)

	v, err = tree.ValueOf(map[string]any{"a": []any{int64(1)}})
	require.NoError(t, err)
	require.Equal(t, "mapping", v.Kind().String())
	m, ok := v.AsMap()
	require.True(t, ok)
	m["a"].([]any)[0] = int64(2)
	again, _ := v.AsMap()
	require.Equal(t, int64(1), again["a"].([]any)[0], "AsMap must return a copy")

	_, err = tree.ValueOf(3)
	require.Error(t, err, "plain int is not a normalized node")
}

func TestSplit(t *testing.T) {
	t.Parallel()

	segs, err := tree.Split("model.cr")
	require.NoError(t, err)
	require.Equal(t, []string{"model", "cr"}, segs)

	for _, bad := range []string{"", ".a", "a..b", "a."} {
		_, err := tree.Split(bad)
		require.Error(t, err, bad)
	}
}
