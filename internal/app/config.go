package app

import (
	"errors"
	"fmt"
	"slices"
)

// Commands understood by App.Run.
const (
	CommandTrain   = "train"
	CommandTest    = "test"
	CommandResolve = "resolve"
	CommandGroups  = "groups"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	Command    string
	ConfigDir  string
	ConfigName string // root file name without extension
	Overrides  []string
	RunVersion string // test only

	LogFormat       string
	LogLevel        string // empty defers to the root file's log_level
	HealthcheckPort int
	RunID           string
	Runner          string // empty means dry run
	CkptName        string
	OutputFormat    string

	// Env holds settings read from the environment. NewConfig layers the
	// fields above over it, so a flag always beats a variable.
	Env Settings
}

func (c *Config) settings() Settings {
	return Settings{
		LogLevel:        c.LogLevel,
		LogFormat:       c.LogFormat,
		OutputFormat:    c.OutputFormat,
		Runner:          c.Runner,
		HealthcheckPort: c.HealthcheckPort,
	}
}

func NewConfig(cfg Config) (*Config, error) {
	if !slices.Contains([]string{CommandTrain, CommandTest, CommandResolve, CommandGroups}, cfg.Command) {
		return nil, fmt.Errorf("unknown command %q", cfg.Command)
	}
	if cfg.ConfigDir == "" {
		return nil, errors.New("ConfigDir is a required configuration field and cannot be empty")
	}
	if cfg.ConfigName == "" {
		return nil, errors.New("ConfigName is a required configuration field and cannot be empty")
	}
	if cfg.Command == CommandTest && cfg.RunVersion == "" {
		return nil, errors.New("test requires a run version")
	}
	if cfg.Command != CommandTest && cfg.RunVersion != "" {
		return nil, fmt.Errorf("%s does not take a run version", cfg.Command)
	}
	s, err := layerSettings(defaultSettings, cfg.Env, cfg.settings())
	if err != nil {
		return nil, err
	}
	cfg.LogLevel, cfg.LogFormat, cfg.OutputFormat = s.LogLevel, s.LogFormat, s.OutputFormat
	cfg.Runner, cfg.HealthcheckPort = s.Runner, s.HealthcheckPort

	if cfg.LogLevel != "" && !validLevel(cfg.LogLevel) {
		return nil, fmt.Errorf("invalid log level %q", cfg.LogLevel)
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, fmt.Errorf("invalid log format %q", cfg.LogFormat)
	}
	if cfg.OutputFormat != "yaml" && cfg.OutputFormat != "json" {
		return nil, fmt.Errorf("invalid output format %q", cfg.OutputFormat)
	}
	if cfg.HealthcheckPort < 0 || cfg.HealthcheckPort > 65535 {
		return nil, fmt.Errorf("invalid healthcheck port %d", cfg.HealthcheckPort)
	}
	return &cfg, nil
}
