package rundir_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/specialistvlad/calocluster/internal/config"
	"github.com/specialistvlad/calocluster/internal/job"
	"github.com/specialistvlad/calocluster/internal/rundir"
	"github.com/specialistvlad/calocluster/internal/testutil"
	"github.com/specialistvlad/calocluster/internal/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContext(t *testing.T) context.Context {
	ctx, _ := testutil.Context(t)
	return ctx
}

func TestWriteThenLoad(t *testing.T) {
	t.Parallel()
	ctx := testContext(t)

	cfg, err := config.NewResolved(
		map[string]any{
			"seed":  int64(7),
			"model": map[string]any{"cr": 0.5, "_target_": "SPVCNN"},
			"tags":  []any{"a", "b"},
		},
		[]config.Selection{{Group: "model", Variant: "spvcnn"}, {Group: "swa"}},
		[]string{"model.cr=0.5", "~swa"},
	)
	require.NoError(t, err)

	runDir := rundir.Locate(t.TempDir(), "hcal", "abcd1234")
	path, err := rundir.Write(ctx, runDir, cfg)
	require.NoError(t, err)
	assert.Equal(t, rundir.ConfigPath(runDir), path)

	onDisk, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, string(cfg.YAML()), string(onDisk))

	got, err := rundir.Load(ctx, runDir)
	require.NoError(t, err)
	if diff := cmp.Diff(cfg.Tree(), got.Tree()); diff != "" {
		t.Errorf("tree mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(cfg.Selections(), got.Selections()); diff != "" {
		t.Errorf("selections mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, cfg.Overrides(), got.Overrides())
	assert.Equal(t, cfg.YAML(), got.YAML())
}

func TestWriteThenLoad_FloatsKeepTheirType(t *testing.T) {
	t.Parallel()
	ctx := testContext(t)

	cfg, err := config.NewResolved(map[string]any{
		"val_check_interval": 1.0,
		"model":              map[string]any{"cr": 1.0},
		"optimizer":          map[string]any{"lr": 1e-20, "cap": 1e21},
		"num_epochs":         int64(1),
	}, nil, nil)
	require.NoError(t, err)
	assert.Contains(t, string(cfg.YAML()), "val_check_interval: 1.0\n")

	runDir := t.TempDir()
	_, err = rundir.Write(ctx, runDir, cfg)
	require.NoError(t, err)
	got, err := rundir.Load(ctx, runDir)
	require.NoError(t, err)

	for path, want := range map[string]tree.Kind{
		"val_check_interval": tree.KindFloat,
		"model.cr":           tree.KindFloat,
		"optimizer.lr":       tree.KindFloat,
		"optimizer.cap":      tree.KindFloat,
		"num_epochs":         tree.KindInt,
	} {
		v, err := got.Value(path)
		require.NoError(t, err, path)
		assert.Equal(t, want, v.Kind(), path)
	}
	if diff := cmp.Diff(cfg.Tree(), got.Tree()); diff != "" {
		t.Errorf("tree mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_MissingRun(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "hcal", "nope")
	_, err := rundir.Load(testContext(t), dir)
	var rerr *job.ResourceError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, rundir.ConfigPath(dir), rerr.Path)
	assert.ErrorIs(t, err, job.ErrNotFound)
}

func TestLoad_BadChoices(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	meta := filepath.Join(dir, rundir.MetaDir)
	require.NoError(t, os.MkdirAll(meta, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(meta, rundir.ConfigFile), []byte("seed: 1\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(meta, rundir.ChoicesFile), []byte("- model\n"), 0o600))

	_, err := rundir.Load(testContext(t), dir)
	assert.ErrorIs(t, err, config.ErrMalformedOverride)
}
