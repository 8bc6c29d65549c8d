package app

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"dario.cat/mergo"
)

// EnvPrefix starts every environment variable read by EnvSettings.
const EnvPrefix = "CALOCLUSTER_"

// Settings are the invocation options that can come from more than one
// place. Layers are merged with layerSettings; a non-zero field in a later
// layer wins. The order is built-in defaults, the root file (log level
// only), the environment, then flags.
type Settings struct {
	LogLevel        string
	LogFormat       string
	OutputFormat    string
	Runner          string
	HealthcheckPort int
}

var defaultSettings = Settings{LogFormat: "text", OutputFormat: "yaml"}

// EnvSettings reads CALOCLUSTER_LOG_LEVEL, CALOCLUSTER_LOG_FORMAT,
// CALOCLUSTER_OUTPUT_FORMAT, CALOCLUSTER_RUNNER and
// CALOCLUSTER_HEALTHCHECK_PORT. A nil getenv yields empty settings.
func EnvSettings(getenv func(string) string) (Settings, error) {
	if getenv == nil {
		return Settings{}, nil
	}
	s := Settings{
		LogLevel:     getenv(EnvPrefix + "LOG_LEVEL"),
		LogFormat:    getenv(EnvPrefix + "LOG_FORMAT"),
		OutputFormat: getenv(EnvPrefix + "OUTPUT_FORMAT"),
		Runner:       getenv(EnvPrefix + "RUNNER"),
	}
	if raw := getenv(EnvPrefix + "HEALTHCHECK_PORT"); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil {
			return s, fmt.Errorf("invalid %sHEALTHCHECK_PORT %q", EnvPrefix, raw)
		}
		s.HealthcheckPort = port
	}
	return s, nil
}

func layerSettings(layers ...Settings) (Settings, error) {
	var out Settings
	for _, l := range layers {
		if err := mergo.Merge(&out, l, mergo.WithOverride); err != nil {
			return out, fmt.Errorf("failed to merge settings: %w", err)
		}
	}
	return out, nil
}

func validLevel(s string) bool {
	switch s {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}

// newLogger creates and configures a new slog.Logger instance. It does not
// set the global logger, allowing for isolated logger instances.
func newLogger(s Settings, outW io.Writer) *slog.Logger {
	var level slog.Level
	switch s.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	if s.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(outW, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(outW, handlerOpts))
}
