package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/specialistvlad/calocluster/internal/config"
	"github.com/specialistvlad/calocluster/internal/ctxlog"
	"github.com/specialistvlad/calocluster/internal/job"
	"github.com/specialistvlad/calocluster/internal/rundir"
)

func (a *App) resolveRoot(ctx context.Context, overrides []string) (*config.Resolved, error) {
	path, err := a.rootPath()
	if err != nil {
		return nil, err
	}
	cfg, err := a.resolver.ResolveFile(ctx, path, overrides)
	if err != nil {
		return nil, err
	}
	ctxlog.FromContext(ctx).Debug("Configuration resolved.", "root", path, "selections", len(cfg.Selections()))
	return cfg, nil
}

// resolve prints the resolved configuration.
func (a *App) resolve(ctx context.Context) error {
	cfg, err := a.resolveRoot(ctx, a.config.Overrides)
	if err != nil {
		return err
	}
	out := cfg.YAML()
	if a.config.OutputFormat == "json" {
		if out, err = cfg.JSON(); err != nil {
			return fmt.Errorf("failed to encode config: %w", err)
		}
		out = append(out, '\n')
	}
	_, err = a.outW.Write(out)
	return err
}

// groups prints every group with its variants, one group per line.
func (a *App) groups(ctx context.Context) error {
	path, err := a.rootPath()
	if err != nil {
		return err
	}
	groups, err := a.resolver.Groups(path)
	if err != nil {
		return err
	}
	ctxlog.FromContext(ctx).Debug("Groups discovered.", "dir", groups.Dir(), "count", len(groups.Names()))
	for _, g := range groups.Names() {
		if _, err := fmt.Fprintf(a.outW, "%s: %s\n", g, strings.Join(groups.Variants(g), ", ")); err != nil {
			return err
		}
	}
	return nil
}

// train resolves the job, records it in its run directory and fits it.
func (a *App) train(ctx context.Context) error {
	cfg, err := a.resolveRoot(ctx, a.config.Overrides)
	if err != nil {
		return err
	}
	ctx = a.relevel(ctx, cfg)
	logger := ctxlog.FromContext(ctx)

	j, err := job.Build(cfg)
	if err != nil {
		return err
	}
	if err := j.CheckResources(); err != nil {
		return err
	}
	a.setResolved(cfg)

	path, err := rundir.Write(ctx, j.Settings.RunDir, cfg)
	if err != nil {
		return err
	}
	logger.Info("🚀 Starting training.", "job", j, "config", path)
	if err := a.orchestrator.Fit(ctx, j); err != nil {
		return err
	}
	logger.Info("🏁 Training finished.", "run_dir", j.Settings.RunDir)
	return nil
}

// test loads a finished run by version and evaluates one of its checkpoints.
func (a *App) test(ctx context.Context) error {
	root, err := a.resolveRoot(ctx, a.config.Overrides)
	if err != nil {
		return err
	}
	outputs, err := root.String("outputs_dir")
	if err != nil {
		return err
	}
	project, err := root.String("wandb.project")
	if err != nil {
		return err
	}

	runDir := rundir.Locate(outputs, project, a.config.RunVersion)
	cfg, err := rundir.Load(ctx, runDir)
	if err != nil {
		return err
	}
	ctx = a.relevel(ctx, cfg)
	logger := ctxlog.FromContext(ctx)

	j, err := job.Build(cfg)
	if err != nil {
		return err
	}
	a.setResolved(cfg)

	ckpt, err := job.FindCheckpoint(j.Checkpoint.DirPath, a.config.CkptName)
	if err != nil {
		return err
	}
	logger.Info("🚀 Starting evaluation.", "job", j, "ckpt", ckpt)
	if err := a.orchestrator.Predict(ctx, j, ckpt); err != nil {
		return err
	}
	logger.Info("🏁 Evaluation finished.", "run_dir", runDir)
	return nil
}
