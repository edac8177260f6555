package hcl

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const siteGrid = `
package = "package.json"

task "sass" {
  options {
    load_path = ["scss/vendor"]
  }

  target "dev" {
    options {
      style = "expanded"
    }
    files = {
      "css/styles.css" = "scss/styles.scss"
    }
  }

  target "prod" {
    options {
      style = "compressed"
    }
    files = {
      "css/styles.css" = "scss/styles.scss"
    }
  }
}

task "imagemin" {
  target "dynamic" {
    files {
      expand = true
      cwd    = "img/"
      src    = ["**/*.{png,jpg,gif}"]
      dest   = "img/build/"
    }
  }
}

alias "build" {
  description = "Optimize images, compress css"
  tasks       = ["imagemin", "sass:prod"]
}
`

func writeGrid(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		p := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return dir
}

func TestLoad_TranslatesTasksTargetsAndAliases(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	dir := writeGrid(t, map[string]string{"Gridfile.hcl": siteGrid})

	// --- Act ---
	model, conv, err := NewLoader().Load(context.Background(), filepath.Join(dir, "Gridfile.hcl"))

	// --- Assert ---
	require.NoError(t, err)
	require.NotNil(t, conv)
	require.Equal(t, "package.json", model.PackagePath)
	require.Equal(t, []string{"sass", "imagemin"}, model.TaskOrder)

	sass := model.Tasks["sass"]
	require.NotNil(t, sass)
	require.Equal(t, []string{"dev", "prod"}, sass.TargetNames())
	require.Contains(t, sass.Options, "load_path")

	dev := sass.Target("dev")
	require.NotNil(t, dev)
	require.Equal(t, "sass", dev.Task)
	require.Contains(t, dev.Options, "style")
	require.Contains(t, dev.Attributes, "files")
	require.Empty(t, dev.Files)

	dynamic := model.Tasks["imagemin"].Target("dynamic")
	require.Len(t, dynamic.Files, 1)
	require.Len(t, dynamic.Files[0].Attributes, 4)
	require.Empty(t, dynamic.Attributes)

	build := model.Aliases["build"]
	require.Equal(t, []string{"imagemin", "sass:prod"}, build.Tasks)
	require.Equal(t, "Optimize images, compress css", build.Description)
}

func TestLoad_MergesDirectory(t *testing.T) {
	t.Parallel()

	dir := writeGrid(t, map[string]string{
		"grid/a.hcl": `task "concat" {
  target "dist" {
    src  = ["js/libs/*.js"]
    dest = "js/plugins.js"
  }
}`,
		"grid/nested/b.hcl": `alias "default" { tasks = ["concat"] }`,
		"grid/readme.txt":   "ignored",
	})

	model, _, err := NewLoader().Load(context.Background(), filepath.Join(dir, "grid"))

	require.NoError(t, err)
	require.Contains(t, model.Tasks, "concat")
	require.Contains(t, model.Aliases, "default")
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		grid    string
		errPart string
	}{
		{
			name:    "syntax error",
			grid:    `task "sass" {`,
			errPart: "failed to parse",
		},
		{
			name: "duplicate target",
			grid: `task "sass" {
  target "dev" {}
  target "dev" {}
}`,
			errPart: `duplicate target "dev"`,
		},
		{
			name: "unknown block in target",
			grid: `task "sass" {
  target "dev" {
    banner {}
  }
}`,
			errPart: "Unsupported block type",
		},
		{
			name: "labelled files block",
			grid: `task "imagemin" {
  target "dev" {
    files "x" {}
  }
}`,
			errPart: "Extraneous label",
		},
		{
			name: "two options blocks",
			grid: `task "sass" {
  target "dev" {
    options {}
    options {}
  }
}`,
			errPart: "Duplicate options block",
		},
		{
			name:    "unknown top-level block",
			grid:    `step "print" "a" {}`,
			errPart: "failed to decode",
		},
		{
			name:    "alias without tasks",
			grid:    `alias "default" {}`,
			errPart: "failed to decode",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			dir := writeGrid(t, map[string]string{"Gridfile.hcl": tc.grid})

			_, _, err := NewLoader().Load(context.Background(), filepath.Join(dir, "Gridfile.hcl"))

			require.Error(t, err)
			require.Contains(t, err.Error(), tc.errPart)
		})
	}
}

func TestLoad_MergesTaskAcrossFiles(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	dir := writeGrid(t, map[string]string{
		"a.hcl": `
task "concat" {
  options {
    separator = ";"
  }
  target "js" {
    src  = ["js/*.js"]
    dest = "js/all.js"
  }
}
`,
		"b.hcl": `
task "concat" {
  target "css" {
    src  = ["css/*.css"]
    dest = "css/all.css"
  }
}
`,
	})

	// --- Act ---
	model, _, err := NewLoader().Load(context.Background(), dir)

	// --- Assert ---
	require.NoError(t, err)
	require.Equal(t, []string{"concat"}, model.TaskOrder)
	task := model.Tasks["concat"]
	require.Equal(t, []string{"js", "css"}, task.TargetNames())
	require.Contains(t, task.Options, "separator")
}

func TestLoad_MergeConflictsAcrossFiles(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		second  string
		errPart string
	}{
		{
			name: "duplicate target",
			second: `
task "concat" {
  target "js" {}
}
`,
			errPart: `duplicate target "js" in task "concat"`,
		},
		{
			name: "option set twice",
			second: `
task "concat" {
  options { separator = "\n" }
}
`,
			errPart: `option "separator" of task "concat" already set`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			dir := writeGrid(t, map[string]string{
				"a.hcl": `
task "concat" {
  options { separator = ";" }
  target "js" {}
}
`,
				"b.hcl": tc.second,
			})

			_, _, err := NewLoader().Load(context.Background(), dir)

			require.Error(t, err)
			require.Contains(t, err.Error(), tc.errPart)
		})
	}
}

func TestLoad_MissingPath(t *testing.T) {
	t.Parallel()

	_, _, err := NewLoader().Load(context.Background(), filepath.Join(t.TempDir(), "nope.hcl"))
	require.Error(t, err)

	_, _, err = NewLoader().Load(context.Background(), t.TempDir())
	require.ErrorContains(t, err, "no Gridfile found")
}
