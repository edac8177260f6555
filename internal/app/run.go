package app

import (
	"context"
	"errors"

	"github.com/vk/assetgrid/internal/ctxlog"
)

// Run executes the requested tasks, or prints the task listing when asked
// to. Interrupting a run, e.g. ending a watch session, is not an error.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.ctx = ctx
	a.logger.Debug("App.Run method started.", "tasks", a.config.Tasks)

	if a.config.List {
		a.printList()
		return nil
	}

	if err := a.healthCheckServer(); err != nil {
		return err
	}
	defer a.closeHealthCheckServer()

	err := a.executor.Run(ctx, a.config.Tasks)
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		a.logger.Debug("Run interrupted.")
		return nil
	}
	if err != nil {
		return err
	}

	a.logger.Debug("App.Run method finished.")
	return nil
}
