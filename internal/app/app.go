package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"sync"

	"github.com/specialistvlad/calocluster/internal/config"
	"github.com/specialistvlad/calocluster/internal/ctxlog"
	"github.com/specialistvlad/calocluster/internal/formats"
	"github.com/specialistvlad/calocluster/internal/orchestrator"
	"github.com/specialistvlad/calocluster/internal/resolver"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW         io.Writer
	logW         io.Writer
	logger       *slog.Logger
	config       *Config
	registry     *formats.Registry
	resolver     *resolver.Resolver
	orchestrator orchestrator.Orchestrator

	httpServer *http.Server
	mu         sync.RWMutex
	resolved   *config.Resolved // served by the healthcheck server
}

// Option customizes an App.
type Option func(*App)

// WithOrchestrator replaces the orchestrator derived from Config.Runner.
func WithOrchestrator(o orchestrator.Orchestrator) Option {
	return func(a *App) { a.orchestrator = o }
}

// WithResolverOptions passes extra options to the resolver.
func WithResolverOptions(opts ...resolver.Option) Option {
	return func(a *App) {
		base := []resolver.Option{resolver.WithRegistry(a.registry), resolver.WithRunID(a.config.RunID)}
		a.resolver = resolver.New(append(base, opts...)...)
	}
}

// NewApp is the constructor for the main application. Command output goes
// to outW and logs to logW, through the App's own isolated logger.
func NewApp(outW, logW io.Writer, cfg *Config, opts ...Option) *App {
	settings, _ := layerSettings(Settings{LogLevel: "info"}, cfg.settings())
	logger := newLogger(settings, logW)
	logger.Debug("Logger configured successfully.")

	a := &App{
		outW:     outW,
		logW:     logW,
		logger:   logger,
		config:   cfg,
		registry: formats.Default(),
	}
	a.resolver = resolver.New(resolver.WithRegistry(a.registry), resolver.WithRunID(cfg.RunID))
	if fields := strings.Fields(cfg.Runner); len(fields) > 0 {
		exec := orchestrator.NewExec(fields...)
		exec.Stdout = outW
		exec.Stderr = logW
		a.orchestrator = exec
	} else {
		a.orchestrator = orchestrator.DryRun{}
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run executes the configured command.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.", "command", a.config.Command)

	var err error
	switch a.config.Command {
	case CommandResolve:
		err = a.resolve(ctx)
	case CommandGroups:
		err = a.groups(ctx)
	case CommandTrain:
		err = a.withHealthcheck(ctx, a.train)
	case CommandTest:
		err = a.withHealthcheck(ctx, a.test)
	}
	a.logger.Debug("App.Run method finished.", "error", err)
	return err
}

// rootPath finds the root file by name in any supported format.
func (a *App) rootPath() (string, error) {
	stem := filepath.Join(a.config.ConfigDir, a.config.ConfigName)
	if path, ok := a.registry.Find(stem); ok {
		return path, nil
	}
	return "", config.Errorf("load", stem, config.ErrMissingFile,
		"no %s file with extension %s", a.config.ConfigName, strings.Join(a.registry.Extensions(), ", "))
}

// relevel rebuilds the logger once the root file's log_level is known.
func (a *App) relevel(ctx context.Context, cfg *config.Resolved) context.Context {
	file := Settings{}
	if lvl, err := cfg.String("log_level"); err == nil && validLevel(lvl) {
		file.LogLevel = lvl
	}
	settings, err := layerSettings(Settings{LogLevel: "info"}, file, a.config.settings())
	if err != nil {
		a.logger.Warn("Keeping initial log settings.", "error", err)
		return ctx
	}
	a.logger = newLogger(settings, a.logW)
	return ctxlog.WithLogger(ctx, a.logger)
}

func (a *App) setResolved(cfg *config.Resolved) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.resolved = cfg
}

func (a *App) currentResolved() *config.Resolved {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.resolved
}
