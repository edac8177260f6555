package app

import (
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strconv"
	"time"
)

// processSpawner starts child runs of this binary against the same project,
// sharing the parent's output.
type processSpawner struct {
	exe    string
	args   []string
	stdout io.Writer
	stderr io.Writer
}

func newProcessSpawner(cfg *Config, base string, stdout, stderr io.Writer) (*processSpawner, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, err
	}
	grid, err := filepath.Abs(cfg.GridPath)
	if err != nil {
		return nil, err
	}
	return &processSpawner{
		exe:    exe,
		args:   childArgs(cfg, grid, base),
		stdout: stdout,
		stderr: stderr,
	}, nil
}

// childArgs repeats the flags that shape a run. Tasks follow a "--".
func childArgs(cfg *Config, grid, base string) []string {
	args := []string{
		"--gridfile", grid,
		"--base", base,
		"--workers", strconv.Itoa(cfg.Workers),
		"--log-level", cfg.LogLevel,
		"--log-format", cfg.LogFormat,
	}
	if cfg.Force {
		args = append(args, "--force")
	}
	if cfg.NoColor {
		args = append(args, "--no-color")
	}
	return args
}

// Command implements task.Spawner.
func (p *processSpawner) Command(ctx context.Context, names []string) *exec.Cmd {
	args := append(slices.Clone(p.args), "--")
	cmd := exec.CommandContext(ctx, p.exe, append(args, names...)...)
	cmd.Stdout = p.stdout
	cmd.Stderr = p.stderr
	cmd.WaitDelay = time.Second
	return cmd
}
