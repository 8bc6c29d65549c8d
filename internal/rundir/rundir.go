// Package rundir persists a resolved configuration next to the outputs of
// the run it configured and reads it back for evaluation.
package rundir

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/specialistvlad/calocluster/internal/config"
	"github.com/specialistvlad/calocluster/internal/ctxlog"
	"github.com/specialistvlad/calocluster/internal/formats"
	"github.com/specialistvlad/calocluster/internal/job"
	"gopkg.in/yaml.v3"
)

const (
	// MetaDir is created inside every run directory.
	MetaDir       = ".calocluster"
	ConfigFile    = "config.yaml"
	OverridesFile = "overrides.yaml"
	ChoicesFile   = "choices.yaml"
)

// ConfigPath returns the location of the resolved config inside runDir.
func ConfigPath(runDir string) string {
	return filepath.Join(runDir, MetaDir, ConfigFile)
}

// Locate returns the directory of a finished run.
func Locate(outputsDir, project, version string) string {
	return filepath.Join(outputsDir, project, version)
}

// Write stores cfg, the applied override tokens and the final group choices
// under runDir/.calocluster and returns the path of the config file.
func Write(ctx context.Context, runDir string, cfg *config.Resolved) (string, error) {
	logger := ctxlog.FromContext(ctx)
	meta := filepath.Join(runDir, MetaDir)
	if err := os.MkdirAll(meta, 0o755); err != nil {
		return "", fmt.Errorf("failed to create run directory: %w", err)
	}

	choices := make([]string, 0, len(cfg.Selections()))
	for _, s := range cfg.Selections() {
		choices = append(choices, s.String())
	}
	overrides, err := yaml.Marshal(cfg.Overrides())
	if err != nil {
		return "", fmt.Errorf("failed to encode overrides: %w", err)
	}
	choiceDoc, err := yaml.Marshal(choices)
	if err != nil {
		return "", fmt.Errorf("failed to encode choices: %w", err)
	}

	files := []struct {
		name string
		data []byte
	}{
		{ConfigFile, cfg.YAML()},
		{OverridesFile, overrides},
		{ChoicesFile, choiceDoc},
	}
	for _, f := range files {
		if err := os.WriteFile(filepath.Join(meta, f.name), f.data, 0o644); err != nil {
			return "", fmt.Errorf("failed to write %s: %w", f.name, err)
		}
	}
	logger.Debug("Run directory written.", "dir", meta)
	return filepath.Join(meta, ConfigFile), nil
}

// Load reads back the configuration written by Write. A run directory
// without one is reported as a job.ResourceError.
func Load(ctx context.Context, runDir string) (*config.Resolved, error) {
	path := ConfigPath(runDir)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, &job.ResourceError{Path: path, Err: job.ErrNotFound}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	doc, err := formats.DecodeYAML(path, data)
	if err != nil {
		return nil, err
	}

	var overrides, choices []string
	if err := readList(filepath.Join(runDir, MetaDir, OverridesFile), &overrides); err != nil {
		return nil, err
	}
	if err := readList(filepath.Join(runDir, MetaDir, ChoicesFile), &choices); err != nil {
		return nil, err
	}
	selections := make([]config.Selection, 0, len(choices))
	for _, c := range choices {
		group, variant, ok := strings.Cut(c, "=")
		if !ok || group == "" {
			return nil, config.Errorf("load", c, config.ErrMalformedOverride, "bad choice in %s", ChoicesFile)
		}
		if variant == "null" {
			variant = ""
		}
		selections = append(selections, config.Selection{Group: group, Variant: variant})
	}

	ctxlog.FromContext(ctx).Debug("Run configuration loaded.", "path", path, "overrides", len(overrides))
	return config.NewResolved(doc, selections, overrides)
}

// readList decodes a YAML sequence of strings. A missing file is an empty list.
func readList(path string, out *[]string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return config.Errorf("load", path, config.ErrTypeMismatch, "want a list of strings: %v", err)
	}
	return nil
}
