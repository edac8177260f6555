// Package testutil holds shared harnesses for tests that run tasks end to
// end against an in-memory project.
package testutil

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vk/assetgrid/internal/config"
	"github.com/vk/assetgrid/internal/console"
	"github.com/vk/assetgrid/internal/ctxlog"
	"github.com/vk/assetgrid/internal/executor"
	"github.com/vk/assetgrid/internal/hcl"
	"github.com/vk/assetgrid/internal/pkgjson"
	"github.com/vk/assetgrid/internal/registry"
	"github.com/vk/assetgrid/internal/task"
	"github.com/vk/assetgrid/internal/workspace"
)

// SafeBuffer is a thread-safe buffer for capturing output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// FixedClock is the time every harness-driven expression sees.
var FixedClock = func() time.Time {
	return time.Date(2026, time.October, 19, 9, 30, 0, 0, time.UTC)
}

// TaskEnv is a loaded Gridfile bound to an in-memory project.
type TaskEnv struct {
	Ctx       context.Context
	Model     *config.Model
	Registry  *registry.Registry
	Workspace *workspace.Workspace
	Executor  *executor.Executor
	// Output captures the console, Logs the structured log.
	Output *SafeBuffer
	Logs   *SafeBuffer
}

type envConfig struct {
	force   bool
	pkg     string
	workers int
	ws      *workspace.Workspace
	spawner task.Spawner
}

// EnvOption customises NewTaskEnv.
type EnvOption func(*envConfig)

// WithForce makes the executor continue past failing tasks.
func WithForce() EnvOption {
	return func(c *envConfig) { c.force = true }
}

// WithPackage exposes manifest as `pkg`.
func WithPackage(manifest string) EnvOption {
	return func(c *envConfig) { c.pkg = manifest }
}

// WithWorkers sets the worker count handed to tasks.
func WithWorkers(n int) EnvOption {
	return func(c *envConfig) { c.workers = n }
}

// WithWorkspace runs against ws instead of a fresh in-memory project.
func WithWorkspace(ws *workspace.Workspace) EnvOption {
	return func(c *envConfig) { c.ws = ws }
}

// WithSpawner lets tasks start child runs through sp.
func WithSpawner(sp task.Spawner) EnvOption {
	return func(c *envConfig) { c.spawner = sp }
}

// NewTaskEnv loads grid, seeds the project with files and validates the
// configuration against modules. Any failure stops the test.
func NewTaskEnv(t *testing.T, grid string, files map[string]string, modules []registry.Module, opts ...EnvOption) *TaskEnv {
	t.Helper()
	env, err := NewTaskEnvE(t, grid, files, modules, opts...)
	require.NoError(t, err)
	return env
}

// NewTaskEnvE is NewTaskEnv for tests that expect loading or validation to
// fail.
func NewTaskEnvE(t *testing.T, grid string, files map[string]string, modules []registry.Module, opts ...EnvOption) (*TaskEnv, error) {
	t.Helper()

	cfg := &envConfig{workers: 2}
	for _, o := range opts {
		o(cfg)
	}

	logs := &SafeBuffer{}
	output := &SafeBuffer{}
	logger := slog.New(slog.NewTextHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctx := ctxlog.WithLogger(context.Background(), logger)
	t.Cleanup(func() {
		if os.Getenv("ASSETGRID_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logs.String())
		}
	})

	gridPath := filepath.Join(t.TempDir(), "Gridfile.hcl")
	require.NoError(t, os.WriteFile(gridPath, []byte(grid), 0o644))

	loader := hcl.NewLoaderWithConverter(hcl.NewConverterWithClock(FixedClock))
	model, conv, err := loader.Load(ctx, gridPath)
	if err != nil {
		return nil, err
	}

	ws := cfg.ws
	if ws == nil {
		ws = workspace.NewMemory()
	}
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		require.NoError(t, ws.WriteFile(name, []byte(files[name])))
	}
	ws.TakeWritten()

	pkg := pkgjson.Empty()
	if cfg.pkg != "" {
		pkg, err = pkgjson.Parse([]byte(cfg.pkg))
		require.NoError(t, err)
	}

	reg := registry.New()
	for _, m := range modules {
		m.Register(reg)
	}

	exec := executor.New(executor.Options{
		Model:     model,
		Registry:  reg,
		Converter: conv,
		Workspace: ws,
		Console:   console.New(output, true),
		Package:   pkg,
		Workers:   cfg.workers,
		Force:     cfg.force,
		Spawner:   cfg.spawner,
	})
	if err := reg.ValidateModel(ctx, model, exec.Binder()); err != nil {
		return nil, err
	}

	return &TaskEnv{
		Ctx:       ctx,
		Model:     model,
		Registry:  reg,
		Workspace: ws,
		Executor:  exec,
		Output:    output,
		Logs:      logs,
	}, nil
}

// Run executes task names through the executor.
func (e *TaskEnv) Run(names ...string) error {
	return e.Executor.Run(e.Ctx, names)
}

// Read returns the content of a project file, failing the test when absent.
func (e *TaskEnv) Read(t *testing.T, name string) string {
	t.Helper()
	data, err := e.Workspace.ReadFile(name)
	require.NoError(t, err, "reading %s", name)
	return string(data)
}
