package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/assetgrid/internal/cli"
)

// writeGrid creates a project holding a Gridfile plus files and returns
// the Gridfile path.
func writeGrid(t *testing.T, grid string, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	files["Gridfile.hcl"] = grid
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	}
	return filepath.Join(dir, "Gridfile.hcl")
}

func TestRun_CompilesSass(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	grid := `
task "sass" {
  target "dev" {
    options { style = "expanded" }
    files = { "css/main.css" = "scss/main.scss" }
  }
}
`
	path := writeGrid(t, grid, map[string]string{
		"scss/main.scss": ".nav { color: red; a { margin: 0; } }\n",
	})
	out := &bytes.Buffer{}

	// --- Act ---
	err := run(context.Background(), out, &bytes.Buffer{}, []string{"--no-color", "-f", path, "sass:dev"})

	// --- Assert ---
	require.NoError(t, err)
	css, err := os.ReadFile(filepath.Join(filepath.Dir(path), "css", "main.css"))
	require.NoError(t, err)
	require.Equal(t, ".nav {\n  color: red;\n}\n\n.nav a {\n  margin: 0;\n}\n", string(css))
	require.Contains(t, out.String(), `Running "sass:dev" (sass) task`)
	require.Contains(t, out.String(), "File css/main.css created.")
}

func TestRun_StartupError(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	// The missing closing brace fails loading before any task runs.
	path := writeGrid(t, `task "sass" {
  target "dev" {
`, map[string]string{})

	// --- Act ---
	err := run(context.Background(), &bytes.Buffer{}, &bytes.Buffer{}, []string{"-f", path})

	// --- Assert ---
	require.ErrorContains(t, err, "failed to load configuration")
	require.Equal(t, cli.CodeFatal, cli.ExitCode(err))
}

func TestRun_TaskFailure(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	grid := `
task "concat" {
  target "dist" {
    src  = ["js/*.js"]
  }
}
`
	path := writeGrid(t, grid, map[string]string{"js/a.js": "a();"})
	out := &bytes.Buffer{}

	// --- Act ---
	err := run(context.Background(), out, &bytes.Buffer{}, []string{"--no-color", "--gridfile", path, "concat"})

	// --- Assert ---
	require.Error(t, err)
	require.Equal(t, cli.CodeTaskFailed, cli.ExitCode(err))
	require.Contains(t, out.String(), "Aborted due to warnings.")
}

func TestRun_ShouldExit(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	// The "-h" (help) flag should cause cli.Parse to return `shouldExit=true`.
	out := &bytes.Buffer{}

	// --- Act ---
	err := run(context.Background(), out, &bytes.Buffer{}, []string{"-h"})

	// --- Assert ---
	require.NoError(t, err, "run() should return a nil error when shouldExit is true")
	require.Contains(t, out.String(), "Usage:", "Expected help text to be printed to the output buffer")
}

func TestRun_ParseError(t *testing.T) {
	t.Parallel()

	// --- Act ---
	err := run(context.Background(), &bytes.Buffer{}, &bytes.Buffer{}, []string{"--this-is-not-a-valid-flag"})

	// --- Assert ---
	require.ErrorContains(t, err, "flag provided but not defined: -this-is-not-a-valid-flag")
	require.Equal(t, cli.CodeUsage, cli.ExitCode(err))
}
