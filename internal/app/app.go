package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/vk/assetgrid/internal/config"
	"github.com/vk/assetgrid/internal/console"
	"github.com/vk/assetgrid/internal/ctxlog"
	"github.com/vk/assetgrid/internal/executor"
	"github.com/vk/assetgrid/internal/registry"
	"github.com/vk/assetgrid/internal/task"
	"github.com/vk/assetgrid/internal/workspace"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	ctx        context.Context
	outW       io.Writer
	logger     *slog.Logger
	config     *Config
	registry   *registry.Registry
	model      *config.Model
	workspace  *workspace.Workspace
	console    *console.Console
	executor   *executor.Executor
	httpServer *http.Server
}

// NewApp is the constructor for the main application. Task output goes to
// outW and the structured log to logW. It returns a fully initialized App
// with its own isolated logger and registry, or the first startup error.
func NewApp(outW, logW io.Writer, appConfig *Config, loader config.Loader, modules ...registry.Module) (*App, error) {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, logW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	cfgModel, converter, err := loader.Load(ctx, appConfig.GridPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.Debug("Configuration loaded and translated into unified model.", "tasks", len(cfgModel.Tasks), "aliases", len(cfgModel.Aliases))

	base, err := baseDir(appConfig)
	if err != nil {
		return nil, err
	}
	ws, err := workspace.New(base)
	if err != nil {
		return nil, fmt.Errorf("opening project: %w", err)
	}
	pkg, err := loadPackage(ws, cfgModel.PackagePath)
	if err != nil {
		return nil, err
	}
	logger.Debug("Project opened.", "base", ws.Root(), "package", pkg.Name())

	reg := registry.New()
	if len(modules) == 0 {
		modules = coreModules
	}
	for _, mod := range modules {
		mod.Register(reg)
	}
	logger.Debug("All Go modules registered.", "count", len(modules))

	out := console.New(outW, appConfig.NoColor)
	var spawner task.Spawner
	if sp, err := newProcessSpawner(appConfig, ws.Root(), outW, logW); err != nil {
		logger.Debug("Spawning child runs is unavailable.", "error", err)
	} else {
		spawner = sp
	}

	exec := executor.New(executor.Options{
		Model:     cfgModel,
		Registry:  reg,
		Converter: converter,
		Workspace: ws,
		Console:   out,
		Package:   pkg,
		Workers:   appConfig.Workers,
		Force:     appConfig.Force,
		Spawner:   spawner,
	})

	// Validate the integrity of the configuration against the registered tasks.
	if err := reg.ValidateModel(ctx, cfgModel, exec.Binder()); err != nil {
		return nil, err
	}
	logger.Debug("Configuration validation passed.")

	return &App{
		ctx:       ctx,
		outW:      outW,
		logger:    logger,
		config:    appConfig,
		registry:  reg,
		model:     cfgModel,
		workspace: ws,
		console:   out,
		executor:  exec,
	}, nil
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Workspace returns the project the app builds.
func (a *App) Workspace() *workspace.Workspace {
	return a.workspace
}
