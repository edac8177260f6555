package cli

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"github.com/vk/assetgrid/internal/app"
	"github.com/vk/assetgrid/internal/executor"
)

func TestParse(t *testing.T) {
	t.Parallel()

	defaults := app.Config{
		GridPath:  "Gridfile.hcl",
		Tasks:     []string{"default"},
		LogFormat: "text",
		LogLevel:  "warn",
		Workers:   4,
	}

	testCases := []struct {
		name string
		args []string
		want func(c *app.Config)
	}{
		{
			name: "defaults",
			args: nil,
			want: func(c *app.Config) {},
		},
		{
			name: "tasks in order",
			args: []string{"imagemin", "sass:prod"},
			want: func(c *app.Config) { c.Tasks = []string{"imagemin", "sass:prod"} },
		},
		{
			name: "flags between tasks",
			args: []string{"build", "--force", "sass:dev", "-f", "site/grid.hcl", "--no-color"},
			want: func(c *app.Config) {
				c.Tasks = []string{"build", "sass:dev"}
				c.Force = true
				c.NoColor = true
				c.GridPath = "site/grid.hcl"
			},
		},
		{
			name: "long gridfile flag and base",
			args: []string{"--gridfile", "grids", "--base", "site", "--workers", "8"},
			want: func(c *app.Config) {
				c.GridPath = "grids"
				c.BaseDir = "site"
				c.Workers = 8
			},
		},
		{
			name: "everything after double dash is a task",
			args: []string{"--list", "--", "watch"},
			want: func(c *app.Config) {
				c.List = true
				c.Tasks = []string{"watch"}
			},
		},
		{
			name: "logging and health check",
			args: []string{"--log-level", "DEBUG", "--log-format", "json", "--healthcheck-port", "8080", "watch"},
			want: func(c *app.Config) {
				c.LogLevel = "debug"
				c.LogFormat = "json"
				c.HealthcheckPort = 8080
				c.Tasks = []string{"watch"}
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			// --- Arrange ---
			want := defaults
			want.Tasks = append([]string(nil), defaults.Tasks...)
			tc.want(&want)

			// --- Act ---
			got, shouldExit, err := Parse(tc.args, &bytes.Buffer{})

			// --- Assert ---
			require.NoError(t, err)
			require.False(t, shouldExit)
			if diff := cmp.Diff(&want, got); diff != "" {
				t.Errorf("config mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParse_Help(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	out := &bytes.Buffer{}

	// --- Act ---
	cfg, shouldExit, err := Parse([]string{"-h"}, out)

	// --- Assert ---
	require.NoError(t, err)
	require.True(t, shouldExit)
	require.Nil(t, cfg)
	require.Contains(t, out.String(), "assetgrid [options] [TASK...]")
	require.Contains(t, out.String(), "-healthcheck-port")
}

func TestParse_UsageErrors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "unknown flag", args: []string{"--minify"}, wantErr: "flag provided but not defined: -minify"},
		{name: "bad log format", args: []string{"--log-format", "xml"}, wantErr: "invalid log-format"},
		{name: "bad log level", args: []string{"--log-level", "trace"}, wantErr: "invalid log-level"},
		{name: "no workers", args: []string{"--workers", "0"}, wantErr: "workers must be at least 1"},
		{name: "bad port", args: []string{"--healthcheck-port", "-1"}, wantErr: "healthcheck-port"},
		{name: "dash task", args: []string{"--", "-x"}, wantErr: `invalid task name "-x"`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			// --- Act ---
			_, _, err := Parse(tc.args, &bytes.Buffer{})

			// --- Assert ---
			var exitErr *ExitError
			require.True(t, errors.As(err, &exitErr), "got %v", err)
			require.Equal(t, CodeUsage, exitErr.Code)
			require.Contains(t, exitErr.Message, tc.wantErr)
		})
	}
}

func TestExitCode(t *testing.T) {
	t.Parallel()

	taskErr := &executor.TaskError{Invocation: executor.Invocation{Task: "sass", Target: "dev"}, Err: errors.New("boom")}

	require.Equal(t, CodeOK, ExitCode(nil))
	require.Equal(t, CodeUsage, ExitCode(&ExitError{Code: CodeUsage, Message: "bad"}))
	require.Equal(t, CodeTaskFailed, ExitCode(fmt.Errorf("running: %w", taskErr)))
	require.Equal(t, CodeFatal, ExitCode(errors.New("failed to load configuration")))
}
