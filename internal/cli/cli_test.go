package cli_test

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/specialistvlad/calocluster/internal/app"
	"github.com/specialistvlad/calocluster/internal/cli"
	"github.com/specialistvlad/calocluster/internal/config"
	"github.com/specialistvlad/calocluster/internal/job"
	"github.com/specialistvlad/calocluster/internal/orchestrator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name       string
		args       []string
		want       *app.Config
		wantExit   bool
		wantErrMsg string
	}{
		{
			name: "train with overrides",
			args: []string{"train", "-run-id", "abc", "-runner", "python -m calo_cluster.train", "model=minkunet", "~swa"},
			want: &app.Config{
				Command: "train", ConfigDir: "configs", ConfigName: "config",
				Overrides: []string{"model=minkunet", "~swa"},
				LogFormat: "text", RunID: "abc", Runner: "python -m calo_cluster.train", OutputFormat: "yaml",
			},
		},
		{
			name: "test with version and checkpoint",
			args: []string{"test", "-ckpt-name", "epoch=3", "-log-level", "DEBUG", "1x2y3z", "outputs_dir=/out"},
			want: &app.Config{
				Command: "test", ConfigDir: "configs", ConfigName: "config",
				Overrides: []string{"outputs_dir=/out"}, RunVersion: "1x2y3z",
				LogFormat: "text", LogLevel: "debug", CkptName: "epoch=3", OutputFormat: "yaml",
			},
		},
		{
			name: "resolve as json from another dir",
			args: []string{"resolve", "-config-dir", "exp", "-config-name", "hgcal", "-format", "json"},
			want: &app.Config{
				Command: "resolve", ConfigDir: "exp", ConfigName: "hgcal",
				Overrides: []string{}, LogFormat: "text", OutputFormat: "json",
			},
		},
		{name: "no args prints usage", args: nil, wantExit: true},
		{name: "help flag", args: []string{"train", "-h"}, wantExit: true},
		{name: "unknown command", args: []string{"fit"}, wantErrMsg: `unknown command "fit"`},
		{name: "unknown flag", args: []string{"train", "-nope"}, wantErrMsg: "flag provided but not defined: -nope"},
		{name: "test without version", args: []string{"test", "model=spvcnn"}, wantErrMsg: "test requires a RUN_VERSION argument"},
		{name: "groups with overrides", args: []string{"groups", "model=spvcnn"}, wantErrMsg: "groups does not take overrides"},
		{name: "bad log format", args: []string{"resolve", "-log-format", "xml"}, wantErrMsg: `invalid log format "xml"`},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			var out bytes.Buffer
			cfg, exit, err := cli.Parse(tc.args, &out, nil)

			if tc.wantErrMsg != "" {
				var exitErr *cli.ExitError
				require.ErrorAs(t, err, &exitErr)
				assert.Equal(t, cli.CodeUsage, exitErr.Code)
				assert.Contains(t, exitErr.Message, tc.wantErrMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantExit, exit)
			if tc.wantExit {
				assert.Contains(t, out.String(), "Usage:")
				return
			}
			if diff := cmp.Diff(tc.want, cfg); diff != "" {
				t.Errorf("config mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParse_Environment(t *testing.T) {
	t.Parallel()

	env := map[string]string{
		"CALOCLUSTER_LOG_LEVEL":        "WARN",
		"CALOCLUSTER_LOG_FORMAT":       "json",
		"CALOCLUSTER_RUNNER":           "python -m calo_cluster.train",
		"CALOCLUSTER_HEALTHCHECK_PORT": "8081",
	}
	getenv := func(k string) string { return env[k] }

	var out bytes.Buffer
	cfg, _, err := cli.Parse([]string{"train", "-log-level", "debug", "seed=1"}, &out, getenv)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel, "flags beat the environment")
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "yaml", cfg.OutputFormat)
	assert.Equal(t, "python -m calo_cluster.train", cfg.Runner)
	assert.Equal(t, 8081, cfg.HealthcheckPort)

	env["CALOCLUSTER_HEALTHCHECK_PORT"] = "http"
	_, _, err = cli.Parse([]string{"train"}, &out, getenv)
	var exitErr *cli.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, cli.CodeUsage, exitErr.Code)
	assert.Contains(t, exitErr.Message, `invalid CALOCLUSTER_HEALTHCHECK_PORT "http"`)
}

func TestToExitError(t *testing.T) {
	t.Parallel()

	cfgErr := config.Errorf("override", "modle", config.ErrUnknownGroup, "")
	testCases := []struct {
		name string
		err  error
		want int
	}{
		{"config error", fmt.Errorf("resolve: %w", cfgErr), cli.CodeUsage},
		{"exit error kept", &cli.ExitError{Code: 7, Message: "x"}, 7},
		{"resource error", &job.ResourceError{Path: "a.ckpt", Err: job.ErrNotFound}, cli.CodeFailure},
		{"training error", &orchestrator.TrainingError{Stage: "fit", Err: errors.New("boom")}, cli.CodeFailure},
	}
	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := cli.ToExitError(tc.err)
			assert.Equal(t, tc.want, got.Code)
			assert.Equal(t, tc.err.Error(), got.Message)
		})
	}
}
