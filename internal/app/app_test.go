package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"github.com/vk/assetgrid/internal/executor"
	"github.com/vk/assetgrid/internal/hcl"
	"github.com/vk/assetgrid/internal/testutil"
)

const gridfile = `
package = "package.json"

task "concat" {
  options {
    banner = "/* ${pkg.name} */\n"
  }
  target "dist" {
    src  = ["js/libs/*.js"]
    dest = "js/plugins.js"
  }
}

task "uglify" {
  target "dist" {
    files = { "js/build/plugins.js" = "js/plugins.js" }
  }
}

alias "build" {
  description = "Bundle scripts"
  tasks       = ["concat", "uglify"]
}

alias "default" {
  tasks = ["concat:dist"]
}
`

// writeProject lays out files under a fresh directory and returns it.
func writeProject(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return dir
}

func project(t *testing.T) string {
	return writeProject(t, map[string]string{
		"Gridfile.hcl":   gridfile,
		"package.json":   `{"name": "site", "version": "1.0.0"}`,
		"js/libs/a.js":   "function a() { return 1; }",
		"js/libs/b.js":   "function b() { return 2; }",
		"scss/main.scss": ".a { color: red; }",
	})
}

// setupApp creates an app for dir with the compiled-in tasks.
func setupApp(t *testing.T, dir string, cfg Config) (*App, *testutil.SafeBuffer, error) {
	t.Helper()
	cfg.GridPath = filepath.Join(dir, "Gridfile.hcl")
	cfg.NoColor = true
	cfg.LogLevel = "debug"
	if cfg.Workers == 0 {
		cfg.Workers = 2
	}
	appConfig, err := NewConfig(cfg)
	require.NoError(t, err)

	out := &testutil.SafeBuffer{}
	logs := &testutil.SafeBuffer{}
	t.Cleanup(func() {
		if os.Getenv("ASSETGRID_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logs.String())
		}
	})
	a, err := NewApp(out, logs, appConfig, hcl.NewLoader())
	return a, out, err
}

func TestApp_RunsAliasAgainstProject(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	dir := project(t)
	a, out, err := setupApp(t, dir, Config{Tasks: []string{"build"}})
	require.NoError(t, err)

	// --- Act ---
	err = a.Run(context.Background())

	// --- Assert ---
	require.NoError(t, err)
	got, err := os.ReadFile(filepath.Join(dir, "js", "plugins.js"))
	require.NoError(t, err)
	require.Equal(t, "/* site */\nfunction a() { return 1; }\nfunction b() { return 2; }", string(got))
	require.FileExists(t, filepath.Join(dir, "js", "build", "plugins.js"))

	require.Contains(t, out.String(), `Running "concat:dist" (concat) task`)
	require.Contains(t, out.String(), `Running "uglify:dist" (uglify) task`)
	require.Contains(t, out.String(), "Done.")
}

func TestApp_DefaultTask(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	dir := project(t)
	a, out, err := setupApp(t, dir, Config{})
	require.NoError(t, err)

	// --- Act ---
	err = a.Run(context.Background())

	// --- Assert ---
	require.NoError(t, err)
	require.Contains(t, out.String(), `Running "concat:dist" (concat) task`)
	require.NotContains(t, out.String(), "uglify")
}

func TestApp_TaskFailure(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	dir := writeProject(t, map[string]string{
		"Gridfile.hcl": `
task "uglify" {
  target "broken" {
    src  = "js/bad.js"
    dest = "js/bad.min.js"
  }
}
`,
		"js/bad.js": "function (",
	})
	a, out, err := setupApp(t, dir, Config{Tasks: []string{"uglify"}})
	require.NoError(t, err)

	// --- Act ---
	err = a.Run(context.Background())

	// --- Assert ---
	var taskErr *executor.TaskError
	require.True(t, errors.As(err, &taskErr), "got %v", err)
	require.Equal(t, "uglify:broken", taskErr.Invocation.String())
	require.Contains(t, out.String(), "Aborted due to warnings.")
}

func TestNewApp_StartupErrors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		files   map[string]string
		wantErr string
	}{
		{
			name:    "missing gridfile",
			files:   map[string]string{"package.json": "{}"},
			wantErr: "failed to load configuration",
		},
		{
			name:    "syntax error",
			files:   map[string]string{"Gridfile.hcl": `task "concat" {`},
			wantErr: "failed to load configuration",
		},
		{
			name:    "unknown task",
			files:   map[string]string{"Gridfile.hcl": `task "less" {}`},
			wantErr: `task "less" is not a known task`,
		},
		{
			name:    "missing package",
			files:   map[string]string{"Gridfile.hcl": `package = "package.json"`},
			wantErr: "reading package package.json",
		},
		{
			name: "unknown option",
			files: map[string]string{"Gridfile.hcl": `
task "uglify" {
  options { compress = true }
  target "dist" {
    src  = "a.js"
    dest = "b.js"
  }
}
`},
			wantErr: "compress",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			// --- Arrange ---
			dir := writeProject(t, tc.files)

			// --- Act ---
			_, _, err := setupApp(t, dir, Config{})

			// --- Assert ---
			require.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestApp_List(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	dir := project(t)
	a, out, err := setupApp(t, dir, Config{List: true})
	require.NoError(t, err)

	// --- Act ---
	err = a.Run(context.Background())

	// --- Assert ---
	require.NoError(t, err)
	require.NotContains(t, out.String(), "Running")
	for _, want := range []string{
		"Available tasks",
		"     sass  Compile Sass to CSS.",
		"    watch  Run predefined tasks whenever watched files change.",
		"    build  Bundle scripts",
		`  default  Alias for "concat:dist" task.`,
	} {
		require.Contains(t, out.String(), want)
	}
}

func TestApp_BaseDirectory(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	dir := project(t)
	grid := writeProject(t, map[string]string{"build/Gridfile.hcl": gridfile})

	// --- Act ---
	appConfig, err := NewConfig(Config{GridPath: filepath.Join(grid, "build"), BaseDir: dir, Workers: 1})
	require.NoError(t, err)
	a, err := NewApp(&testutil.SafeBuffer{}, &testutil.SafeBuffer{}, appConfig, hcl.NewLoader())

	// --- Assert ---
	require.NoError(t, err)
	want, err := filepath.Abs(dir)
	require.NoError(t, err)
	require.Equal(t, want, a.Workspace().Root())
}

func TestHealthHandler(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	a, _, err := setupApp(t, project(t), Config{})
	require.NoError(t, err)
	rec := httptest.NewRecorder()

	// --- Act ---
	a.healthHandler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	// --- Assert ---
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "OK\n", rec.Body.String())
}

func TestChildArgs(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	cfg := &Config{Workers: 3, LogLevel: "warn", LogFormat: "json", Force: true}

	// --- Act ---
	got := childArgs(cfg, "/p/Gridfile.hcl", "/p")

	// --- Assert ---
	want := []string{
		"--gridfile", "/p/Gridfile.hcl",
		"--base", "/p",
		"--workers", "3",
		"--log-level", "warn",
		"--log-format", "json",
		"--force",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("child args mismatch (-want +got):\n%s", diff)
	}
}

func TestNewConfig(t *testing.T) {
	t.Parallel()

	// --- Act ---
	cfg, err := NewConfig(Config{GridPath: "Gridfile.hcl", Workers: 4})

	// --- Assert ---
	require.NoError(t, err)
	require.Equal(t, []string{DefaultTask}, cfg.Tasks)

	_, err = NewConfig(Config{Workers: 4})
	require.ErrorContains(t, err, "GridPath")
	_, err = NewConfig(Config{GridPath: "g", Workers: 0})
	require.ErrorContains(t, err, "workers must be at least 1")
	_, err = NewConfig(Config{GridPath: "g", Workers: 1, HealthcheckPort: 70000})
	require.ErrorContains(t, err, "healthcheck-port")
}

func TestExampleSite_Validates(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	appConfig, err := NewConfig(Config{
		GridPath: filepath.Join("..", "..", "examples", "site", "Gridfile.hcl"),
		Workers:  1,
		List:     true,
		NoColor:  true,
	})
	require.NoError(t, err)
	out := &testutil.SafeBuffer{}

	// --- Act ---
	a, err := NewApp(out, &testutil.SafeBuffer{}, appConfig, hcl.NewLoader())
	require.NoError(t, err)
	err = a.Run(context.Background())

	// --- Assert ---
	require.NoError(t, err)
	require.Contains(t, out.String(), "build  Optimize images, compress css")
	require.Contains(t, out.String(), `default  Alias for "watch" task.`)
}
