package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vk/assetgrid/internal/config"
	"github.com/vk/assetgrid/internal/console"
	"github.com/vk/assetgrid/internal/ctxlog"
	"github.com/vk/assetgrid/internal/pkgjson"
	"github.com/vk/assetgrid/internal/registry"
	"github.com/vk/assetgrid/internal/task"
	"github.com/vk/assetgrid/internal/workspace"
)

// Options configures an Executor.
type Options struct {
	Model     *config.Model
	Registry  *registry.Registry
	Converter config.Converter
	Workspace *workspace.Workspace
	Console   *console.Console
	Package   *pkgjson.Package
	Workers   int
	Force     bool
	Spawner   task.Spawner
}

// Executor runs task invocations sequentially.
type Executor struct {
	opts   Options
	binder *Binder
}

// TaskError reports the invocation that stopped a run.
type TaskError struct {
	Invocation Invocation
	Err        error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("task %q failed: %v", e.Invocation.String(), e.Err)
}

func (e *TaskError) Unwrap() error { return e.Err }

// New creates an Executor.
func New(opts Options) *Executor {
	if opts.Console == nil {
		opts.Console = console.Discard()
	}
	if opts.Package == nil {
		opts.Package = pkgjson.Empty()
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Executor{
		opts:   opts,
		binder: NewBinder(opts.Model, opts.Registry, opts.Converter, opts.Workspace, opts.Package),
	}
}

// Binder returns the configuration binder shared by every invocation.
func (e *Executor) Binder() *Binder { return e.binder }

// Run plans and executes names. It satisfies task.Runner, so tasks such as
// watch can re-enter it.
func (e *Executor) Run(ctx context.Context, names []string) error {
	logger := ctxlog.FromContext(ctx)

	plan, err := e.Plan(names)
	if err != nil {
		return err
	}
	logger.Debug("Execution plan resolved.", "requested", names, "invocations", len(plan))

	var firstErr *TaskError
	for _, inv := range plan {
		if err := ctx.Err(); err != nil {
			return err
		}

		e.opts.Console.Header(inv.Task, inv.Target)
		err := e.runOne(ctx, inv)
		if err == nil {
			continue
		}
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return err
		}

		e.opts.Console.Warn("%v", err)
		taskErr := &TaskError{Invocation: inv, Err: err}
		if !e.opts.Force {
			e.opts.Console.Aborted()
			return taskErr
		}
		if firstErr == nil {
			firstErr = taskErr
		}
	}

	e.opts.Console.Done(firstErr != nil)
	return nil
}

func (e *Executor) runOne(ctx context.Context, inv Invocation) error {
	rt, ok := e.opts.Registry.Task(inv.Task)
	if !ok {
		return fmt.Errorf("task %q not found", inv.Task)
	}

	ctx = ctxlog.With(ctx, "task", inv.String())
	logger := ctxlog.FromContext(ctx)

	tc := &task.Context{
		Task:      inv.Task,
		Target:    inv.Target,
		Workspace: e.opts.Workspace,
		Console:   e.opts.Console,
		Package:   e.opts.Package,
		Workers:   e.opts.Workers,
		Binder:    e.binder,
		Runner:    e,
		Spawner:   e.opts.Spawner,
	}

	start := time.Now()
	logger.Debug("Task started.")
	err := rt.Fn(ctx, tc)
	if err != nil {
		logger.Debug("Task failed.", "duration", time.Since(start), "error", err)
		return err
	}
	logger.Debug("Task finished.", "duration", time.Since(start))
	return nil
}
