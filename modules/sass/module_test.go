package sass_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vk/assetgrid/internal/registry"
	"github.com/vk/assetgrid/internal/testutil"
	"github.com/vk/assetgrid/internal/workspace"
	"github.com/vk/assetgrid/modules/sass"
)

const sassGrid = `
task "sass" {
  target "dev" {
    options {
      style = "expanded"
    }
    files = {
      "css/styles.css"   = "scss/styles.scss"
      "css/themes/*.css" = "scss/themes/*.scss"
    }
  }
  target "prod" {
    options {
      style = "compressed"
    }
    files = {
      "css/styles.min.css" = "scss/styles.scss"
    }
  }
}
`

var project = map[string]string{
	"scss/styles.scss": `@import "vars";
.nav {
  color: $c;
  a { margin: 0; }
}
`,
	"scss/_vars.scss":         "$c: red;\n",
	"scss/themes/dark.scss":   "body { background: black; }\n",
	"scss/themes/_mixin.scss": "@mixin none {}\n",
}

func modules() []registry.Module {
	return []registry.Module{&sass.Module{}}
}

func TestSass_DevAndProd(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	env := testutil.NewTaskEnv(t, sassGrid, project, modules())

	// --- Act ---
	err := env.Run("sass")

	// --- Assert ---
	require.NoError(t, err)
	require.Equal(t, ".nav {\n  color: red;\n}\n\n.nav a {\n  margin: 0;\n}\n", env.Read(t, "css/styles.css"))
	require.Equal(t, "body {\n  background: black;\n}\n", env.Read(t, "css/themes/dark.css"))
	require.Equal(t, ".nav{color:red}.nav a{margin:0}\n", env.Read(t, "css/styles.min.css"))
	require.False(t, env.Workspace.Exists("css/themes/_mixin.css"), "partials are never compiled")

	out := env.Output.String()
	require.Contains(t, out, `Running "sass:dev" (sass) task`)
	require.Contains(t, out, `Running "sass:prod" (sass) task`)
	require.Contains(t, out, "File css/themes/dark.css created.")
	require.Contains(t, out, "Done.")
}

func TestSass_BannerAndLoadPath(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	grid := `
task "sass" {
  options {
    load_path = ["vendor"]
    banner    = "/* ${pkg.name} */\n"
  }
  target "dev" {
    src  = "scss/app.scss"
    dest = "css/app.css"
  }
}
`
	files := map[string]string{
		"scss/app.scss":     `@import "grid"; .app { width: $w / 2; }`,
		"vendor/_grid.scss": "$w: 960px;\n",
	}
	env := testutil.NewTaskEnv(t, grid, files, modules(), testutil.WithPackage(`{"name": "site"}`))

	// --- Act ---
	err := env.Run("sass:dev")

	// --- Assert ---
	require.NoError(t, err)
	require.Equal(t, "/* site */\n.app {\n  width: 480px;\n}\n", env.Read(t, "css/app.css"))
}

func TestSass_Check(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	grid := `
task "sass" {
  target "dev" {
    options { check = true }
    files = { "css/styles.css" = "scss/styles.scss" }
  }
}
`
	env := testutil.NewTaskEnv(t, grid, project, modules())

	// --- Act ---
	err := env.Run("sass:dev")

	// --- Assert ---
	require.NoError(t, err)
	require.False(t, env.Workspace.Exists("css/styles.css"))
	require.Contains(t, env.Output.String(), ">> scss/styles.scss is valid.")
}

func TestSass_Errors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		target  string
		files   map[string]string
		wantErr string
	}{
		{
			name: "syntax error carries position",
			target: `options { style = "expanded" }
    files = { "css/bad.css" = "scss/bad.scss" }`,
			files:   map[string]string{"scss/bad.scss": ".a {\n  color: $missing;\n}\n"},
			wantErr: "scss/bad.scss:2:3: undefined variable $missing",
		},
		{
			name:    "unknown style",
			target:  `options { style = "fancy" }`,
			wantErr: `unknown output style "fancy"`,
		},
		{
			name:    "several sources for one destination",
			target:  `files = { "css/all.css" = "scss/*.scss" }`,
			files:   map[string]string{"scss/a.scss": ".a{}", "scss/b.scss": ".b{}"},
			wantErr: "destination css/all.css has 2 sources",
		},
		{
			name: "unknown implementation",
			target: `options { implementation = "libsass" }
    files = { "css/a.css" = "scss/a.scss" }`,
			files:   map[string]string{"scss/a.scss": ".a{}"},
			wantErr: `implementation must be "builtin" or "dart"`,
		},
		{
			name: "compact style with dart",
			target: `options {
      implementation = "dart"
      style          = "compact"
      dart_sass_path = "/nonexistent/dart-sass/sass"
    }
    files = { "css/a.css" = "scss/a.scss" }`,
			files:   map[string]string{"scss/a.scss": ".a{}"},
			wantErr: `style "compact" is not supported by the dart implementation`,
		},
		{
			name: "dart sass binary missing",
			target: `options {
      implementation = "dart"
      dart_sass_path = "/nonexistent/dart-sass/sass"
    }
    files = { "css/a.css" = "scss/a.scss" }`,
			files:   map[string]string{"scss/a.scss": ".a{}"},
			wantErr: "starting dart sass",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			// --- Arrange ---
			grid := "task \"sass\" {\n  target \"dev\" {\n    " + tc.target + "\n  }\n}\n"
			env := testutil.NewTaskEnv(t, grid, tc.files, modules())

			// --- Act ---
			err := env.Run("sass:dev")

			// --- Assert ---
			require.ErrorContains(t, err, tc.wantErr)
			require.Contains(t, env.Output.String(), "Aborted due to warnings.")
		})
	}
}

func TestSass_Update(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	dir := t.TempDir()
	ws, err := workspace.New(dir)
	require.NoError(t, err)

	grid := `
task "sass" {
  target "dev" {
    options { update = true }
    files = { "css/styles.css" = "scss/styles.scss" }
  }
}
`
	files := map[string]string{
		"scss/styles.scss": "@import \"vars\";\n.a { color: $c; }\n",
		"scss/_vars.scss":  "$c: red;\n",
		"css/styles.css":   "stale\n",
	}
	env := testutil.NewTaskEnv(t, grid, files, modules(), testutil.WithWorkspace(ws))

	base := time.Now().Add(-time.Hour)
	touch := func(name string, at time.Time) {
		t.Helper()
		require.NoError(t, os.Chtimes(filepath.Join(dir, name), at, at))
	}
	touch("scss/styles.scss", base)
	touch("scss/_vars.scss", base)
	touch("css/styles.css", base.Add(time.Minute))

	// --- Act & Assert: destination newer than every source ---
	require.NoError(t, env.Run("sass:dev"))
	require.Equal(t, "stale\n", env.Read(t, "css/styles.css"))

	// --- Act & Assert: an imported partial changed ---
	touch("scss/_vars.scss", base.Add(2*time.Minute))
	require.NoError(t, env.Run("sass:dev"))
	require.Equal(t, ".a {\n  color: red;\n}\n", env.Read(t, "css/styles.css"))
}
