package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/specialistvlad/calocluster/internal/app"
	"github.com/specialistvlad/calocluster/internal/config"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Exit codes.
const (
	CodeFailure = 1
	CodeUsage   = 2
)

// ToExitError maps an application error to the process exit code:
// configuration and usage errors exit with 2, everything else with 1.
func ToExitError(err error) *ExitError {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr
	}
	var cfgErr *config.ConfigError
	if errors.As(err, &cfgErr) {
		return &ExitError{Code: CodeUsage, Message: err.Error()}
	}
	return &ExitError{Code: CodeFailure, Message: err.Error()}
}

const usageText = `
calocluster - assemble and run calorimeter clustering experiments from config groups.

Usage:
  calocluster train   [options] [OVERRIDES...]   resolve, record the run, fit
  calocluster test    [options] RUN_VERSION [OVERRIDES...]
                                                 evaluate a checkpoint of a finished run
  calocluster resolve [options] [OVERRIDES...]   print the resolved configuration
  calocluster groups  [options]                  list config groups and variants

Overrides:
  group=variant   select a variant          ~group        remove a group
  key.path=value  set an existing key       +key=value    add a new key

Options:
`

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
// getenv supplies CALOCLUSTER_* defaults that flags override; it may be nil.
func Parse(args []string, output io.Writer, getenv func(string) string) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("calocluster", flag.ContinueOnError)
	flagSet.SetOutput(output)
	flagSet.Usage = func() {
		fmt.Fprint(output, usageText)
		flagSet.PrintDefaults()
	}

	configDir := flagSet.String("config-dir", "configs", "Directory holding the root config file and config groups.")
	configName := flagSet.String("config-name", "config", "Root config file name, without extension.")
	logFormat := flagSet.String("log-format", "", "Log output format. Options: 'text' (default) or 'json'.")
	logLevel := flagSet.String("log-level", "", "Logging level: 'debug', 'info', 'warn', 'error'. Defaults to the config's log_level.")
	runID := flagSet.String("run-id", "", "Run id to use instead of a generated one.")
	runner := flagSet.String("runner", "", "Command that executes fit and predict. Empty logs the job and exits (dry run).")
	ckptName := flagSet.String("ckpt-name", "", "Checkpoint file to evaluate (test). Defaults to last.ckpt.")
	format := flagSet.String("format", "", "Output format of resolve. Options: 'yaml' (default) or 'json'.")
	healthPort := flagSet.Int("healthcheck-port", 0, "Port for the HTTP health check server. 0 is disabled.")

	if len(args) == 0 || args[0] == "-h" || args[0] == "-help" || args[0] == "--help" || args[0] == "help" {
		flagSet.Usage()
		return nil, true, nil
	}
	command := args[0]
	switch command {
	case app.CommandTrain, app.CommandTest, app.CommandResolve, app.CommandGroups:
	default:
		flagSet.Usage()
		return nil, false, &ExitError{Code: CodeUsage, Message: fmt.Sprintf("unknown command %q", command)}
	}

	if err := flagSet.Parse(args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: CodeUsage, Message: err.Error()}
	}
	rest := flagSet.Args()
	slog.Debug("Arguments parsed successfully.", "command", command, "args", rest)

	var runVersion string
	switch command {
	case app.CommandTest:
		if len(rest) == 0 || strings.ContainsAny(rest[0], "=~+") {
			return nil, false, &ExitError{Code: CodeUsage, Message: "test requires a RUN_VERSION argument"}
		}
		runVersion, rest = rest[0], rest[1:]
	case app.CommandGroups:
		if len(rest) > 0 {
			return nil, false, &ExitError{Code: CodeUsage, Message: "groups does not take overrides"}
		}
	}

	env, err := app.EnvSettings(getenv)
	if err != nil {
		return nil, false, &ExitError{Code: CodeUsage, Message: err.Error()}
	}
	env.LogLevel, env.LogFormat, env.OutputFormat = strings.ToLower(env.LogLevel), strings.ToLower(env.LogFormat), strings.ToLower(env.OutputFormat)

	cfg, err := app.NewConfig(app.Config{
		Command:         command,
		ConfigDir:       *configDir,
		ConfigName:      *configName,
		Overrides:       rest,
		RunVersion:      runVersion,
		LogFormat:       strings.ToLower(*logFormat),
		LogLevel:        strings.ToLower(*logLevel),
		HealthcheckPort: *healthPort,
		RunID:           *runID,
		Runner:          *runner,
		CkptName:        *ckptName,
		OutputFormat:    strings.ToLower(*format),
		Env:             env,
	})
	if err != nil {
		return nil, false, &ExitError{Code: CodeUsage, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", cfg)
	return cfg, false, nil
}
