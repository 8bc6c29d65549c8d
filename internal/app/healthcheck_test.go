package app

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/specialistvlad/calocluster/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthMux(t *testing.T) {
	t.Parallel()

	a := NewApp(io.Discard, io.Discard, &Config{Command: CommandTrain})
	srv := httptest.NewServer(a.healthMux(a.logger))
	t.Cleanup(srv.Close)

	get := func(path string) (int, string) {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return resp.StatusCode, string(body)
	}

	code, body := get("/health")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "OK\n", body)

	code, _ = get("/config")
	assert.Equal(t, http.StatusServiceUnavailable, code)

	cfg, err := config.NewResolved(map[string]any{"seed": int64(1)}, nil, nil)
	require.NoError(t, err)
	a.setResolved(cfg)
	code, body = get("/config")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "seed: 1\n", body)
}

func TestLayerSettings(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		layers []Settings
		want   Settings
	}{
		{"defaults", []Settings{defaultSettings}, Settings{LogFormat: "text", OutputFormat: "yaml"}},
		{
			"root file level under flags",
			[]Settings{{LogLevel: "info"}, {LogLevel: "warn"}, {LogFormat: "json"}},
			Settings{LogLevel: "warn", LogFormat: "json"},
		},
		{
			"flag beats environment",
			[]Settings{defaultSettings, {Runner: "python train.py", HealthcheckPort: 8080, LogLevel: "warn"}, {LogLevel: "debug"}},
			Settings{LogLevel: "debug", LogFormat: "text", OutputFormat: "yaml", Runner: "python train.py", HealthcheckPort: 8080},
		},
		{
			"empty layers change nothing",
			[]Settings{{LogLevel: "error", HealthcheckPort: 9000}, {}, {}},
			Settings{LogLevel: "error", HealthcheckPort: 9000},
		},
	}
	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := layerSettings(tc.layers...)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestEnvSettings(t *testing.T) {
	t.Parallel()

	got, err := EnvSettings(nil)
	require.NoError(t, err)
	assert.Equal(t, Settings{}, got)

	env := map[string]string{
		"CALOCLUSTER_OUTPUT_FORMAT":    "json",
		"CALOCLUSTER_HEALTHCHECK_PORT": "8081",
		"UNRELATED":                    "x",
	}
	got, err = EnvSettings(func(k string) string { return env[k] })
	require.NoError(t, err)
	assert.Equal(t, Settings{OutputFormat: "json", HealthcheckPort: 8081}, got)

	cfg, err := NewConfig(Config{Command: CommandResolve, ConfigDir: "c", ConfigName: "config", LogFormat: "json", Env: got})
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.OutputFormat)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 8081, cfg.HealthcheckPort)

	_, err = NewConfig(Config{Command: CommandResolve, ConfigDir: "c", ConfigName: "config", Env: Settings{OutputFormat: "toml"}})
	require.EqualError(t, err, `invalid output format "toml"`)
}
