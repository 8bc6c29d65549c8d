package job

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/specialistvlad/calocluster/internal/fsutil"
)

// LastCheckpoint is the file the checkpoint manager keeps pointing at the
// most recent epoch.
const LastCheckpoint = "last.ckpt"

var (
	// ErrNotFound is wrapped by ResourceError for missing paths.
	ErrNotFound = errors.New("not found")
	// ErrNoCheckpoints reports a checkpoint directory with no .ckpt files.
	ErrNoCheckpoints = errors.New("no checkpoints")
)

// FindCheckpoint returns the checkpoint to evaluate from dir. An explicit
// name wins; otherwise last.ckpt, otherwise the lexically last .ckpt file.
func FindCheckpoint(dir, name string) (string, error) {
	if name != "" {
		if filepath.Ext(name) == "" {
			name += ".ckpt"
		}
		path := filepath.Join(dir, name)
		if err := exists(path); err != nil {
			return "", err
		}
		return path, nil
	}

	if err := exists(dir); err != nil {
		return "", err
	}
	last := filepath.Join(dir, LastCheckpoint)
	if exists(last) == nil {
		return last, nil
	}
	files, err := fsutil.FindFilesByExtension(dir, "ckpt")
	if err != nil {
		return "", &ResourceError{Path: dir, Err: err}
	}
	if len(files) == 0 {
		return "", &ResourceError{Path: dir, Err: ErrNoCheckpoints}
	}
	return files[len(files)-1], nil
}

// CheckResources verifies that the checkpoints named by the settings exist.
func (j *Job) CheckResources() error {
	for _, p := range []string{j.Settings.ResumeCkpt, j.Settings.InitCkpt} {
		if p == "" {
			continue
		}
		if err := exists(p); err != nil {
			return err
		}
	}
	return nil
}

func exists(path string) error {
	_, err := os.Stat(path)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, os.ErrNotExist):
		return &ResourceError{Path: path, Err: ErrNotFound}
	default:
		return &ResourceError{Path: path, Err: fmt.Errorf("failed to stat: %w", err)}
	}
}
