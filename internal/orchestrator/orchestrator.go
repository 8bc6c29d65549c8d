// Package orchestrator hands a validated job to the training runtime.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/specialistvlad/calocluster/internal/ctxlog"
	"github.com/specialistvlad/calocluster/internal/job"
	"github.com/specialistvlad/calocluster/internal/rundir"
)

// Orchestrator drives training and evaluation of one job.
type Orchestrator interface {
	Fit(ctx context.Context, j *job.Job) error
	Predict(ctx context.Context, j *job.Job, ckptPath string) error
}

// Stage names used in TrainingError.
const (
	StageFit     = "fit"
	StagePredict = "predict"
)

// TrainingError wraps a failure raised by the training runtime.
type TrainingError struct {
	Stage string
	Err   error
}

func (e *TrainingError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *TrainingError) Unwrap() error {
	return e.Err
}

// Exec runs an external command per stage. The stage name and
// --config <run_dir>/.calocluster/config.yaml are appended to Command.
type Exec struct {
	Command []string
	Stdout  io.Writer
	Stderr  io.Writer
	Env     []string
}

// NewExec returns an Exec that streams to the process's own stdout and stderr.
func NewExec(command ...string) *Exec {
	return &Exec{Command: command, Stdout: os.Stdout, Stderr: os.Stderr}
}

func (e *Exec) Fit(ctx context.Context, j *job.Job) error {
	return e.run(ctx, StageFit, j)
}

func (e *Exec) Predict(ctx context.Context, j *job.Job, ckptPath string) error {
	return e.run(ctx, StagePredict, j, "--ckpt", ckptPath)
}

func (e *Exec) run(ctx context.Context, stage string, j *job.Job, extra ...string) error {
	if len(e.Command) == 0 {
		return errors.New("no runner command configured")
	}
	ctx = ctxlog.With(ctx, "stage", stage)
	logger := ctxlog.FromContext(ctx)

	args := append([]string(nil), e.Command[1:]...)
	args = append(args, stage, "--config", rundir.ConfigPath(j.Settings.RunDir))
	args = append(args, extra...)

	cmd := exec.CommandContext(ctx, e.Command[0], args...)
	cmd.Stdout = e.Stdout
	cmd.Stderr = e.Stderr
	cmd.Env = append(os.Environ(), e.Env...)
	cmd.Env = append(cmd.Env, "CALOCLUSTER_RUN_ID="+j.Settings.RunID)

	logger.Info("Starting runner.", "command", cmd.String())
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return &TrainingError{Stage: stage, Err: err}
	}
	logger.Info("Runner finished.")
	return nil
}

// DryRun logs what would run and does nothing.
type DryRun struct{}

func (DryRun) Fit(ctx context.Context, j *job.Job) error {
	ctxlog.FromContext(ctx).Info("Dry run: fit skipped.", "job", j)
	return nil
}

func (DryRun) Predict(ctx context.Context, j *job.Job, ckptPath string) error {
	ctxlog.FromContext(ctx).Info("Dry run: predict skipped.", "job", j, "ckpt", ckptPath)
	return nil
}
