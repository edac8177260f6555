// Package task defines what a task implementation receives when it is
// invoked: the target it runs for, access to its bound configuration, the
// project workspace and the console.
package task

import (
	"context"
	"os/exec"

	"github.com/vk/assetgrid/internal/console"
	"github.com/vk/assetgrid/internal/files"
	"github.com/vk/assetgrid/internal/pkgjson"
	"github.com/vk/assetgrid/internal/workspace"
)

// Runner executes task invocations ("name", "name:target" or an alias) in
// order.
type Runner interface {
	Run(ctx context.Context, names []string) error
}

// Spawner builds the command that runs task invocations in a child process.
type Spawner interface {
	Command(ctx context.Context, names []string) *exec.Cmd
}

// Binder resolves a target's configuration in the context of an invocation.
type Binder interface {
	// Options decodes the task-level options overlaid with the target's.
	Options(ctx context.Context, task, target string, into any) error
	// Data decodes the target's own attributes.
	Data(ctx context.Context, task, target string, into any) error
	// FileSpec decodes the target's file declarations without touching disk.
	FileSpec(ctx context.Context, task, target string) (files.Spec, error)
	// Files resolves the target's file declarations into mappings.
	Files(ctx context.Context, task, target string) ([]files.Mapping, error)
	// Template renders src as a template in the invocation's context.
	Template(ctx context.Context, task, target, src string) (string, error)
	// Targets lists the configured targets of a task in declaration order.
	Targets(task string) []string
}

// Context is the per-invocation view handed to a task implementation.
type Context struct {
	Task   string
	Target string

	Workspace *workspace.Workspace
	Console   *console.Console
	Package   *pkgjson.Package
	Workers   int

	Binder  Binder
	Runner  Runner
	Spawner Spawner
}

// Name is the invocation name, "task" or "task:target".
func (c *Context) Name() string {
	if c.Target == "" {
		return c.Task
	}
	return c.Task + ":" + c.Target
}

// Options decodes the merged options of this invocation into into.
func (c *Context) Options(ctx context.Context, into any) error {
	return c.Binder.Options(ctx, c.Task, c.Target, into)
}

// Data decodes the target's attributes into into.
func (c *Context) Data(ctx context.Context, into any) error {
	return c.Binder.Data(ctx, c.Task, c.Target, into)
}

// Files resolves the target's file mappings.
func (c *Context) Files(ctx context.Context) ([]files.Mapping, error) {
	return c.Binder.Files(ctx, c.Task, c.Target)
}

// Template renders src within this invocation's expression context.
func (c *Context) Template(ctx context.Context, src string) (string, error) {
	return c.Binder.Template(ctx, c.Task, c.Target, src)
}

// Targets lists every configured target of this task.
func (c *Context) Targets() []string {
	return c.Binder.Targets(c.Task)
}

// ForTarget returns a copy of the context bound to another target of the
// same task.
func (c *Context) ForTarget(target string) *Context {
	cp := *c
	cp.Target = target
	return &cp
}
