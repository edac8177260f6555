package uglify_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vk/assetgrid/internal/registry"
	"github.com/vk/assetgrid/internal/testutil"
	"github.com/vk/assetgrid/modules/uglify"
)

const addJS = `/*! add v1 */
// adds two numbers
function add(first, second) {
  var total = first + second;
  return total;
}
`

func TestMinify(t *testing.T) {
	t.Parallel()

	t.Run("mangle", func(t *testing.T) {
		t.Parallel()
		out, err := uglify.Minify(addJS, true, false)
		require.NoError(t, err)
		require.Contains(t, out, "function add(")
		require.NotContains(t, out, "second")
		require.NotContains(t, out, "/*")
		require.NotContains(t, out, "\n")
	})

	t.Run("keep names", func(t *testing.T) {
		t.Parallel()
		out, err := uglify.Minify(addJS, false, false)
		require.NoError(t, err)
		require.Contains(t, out, "first")
		require.Contains(t, out, "second")
		require.NotContains(t, out, "adds two numbers")
	})

	t.Run("preserve license", func(t *testing.T) {
		t.Parallel()
		out, err := uglify.Minify(addJS, true, true)
		require.NoError(t, err)
		require.True(t, strings.HasPrefix(out, "/*! add v1 */\n"), out)
		require.Equal(t, 1, strings.Count(out, "/*!"))
	})

	t.Run("license text inside literals", func(t *testing.T) {
		t.Parallel()
		src := "var s = \"/*! x */\";\nvar q = /\"/.test(s) ? 4 / 2 : '/*! y */';\nconsole.log(s, q);\n"
		for _, keep := range []bool{false, true} {
			out, err := uglify.Minify(src, true, keep)
			require.NoError(t, err)
			require.Contains(t, out, `"/*! x */"`)
			require.Contains(t, out, "/*! y */")
			require.Contains(t, out, `/"/.test(s)`)
			require.False(t, strings.HasPrefix(out, "/*!"), "nothing is hoisted out of literals: %s", out)
		}
	})

	t.Run("license comment between statements", func(t *testing.T) {
		t.Parallel()
		out, err := uglify.Minify("var a = 1\n/*! mid\n */\nvar b = a / 2 /*! end */\n", false, true)
		require.NoError(t, err)
		require.True(t, strings.HasPrefix(out, "/*! mid\n */\n/*! end */\n"), out)
		require.Equal(t, 2, strings.Count(out, "/*!"))
		require.Contains(t, out, "a/2")
	})

	t.Run("syntax error", func(t *testing.T) {
		t.Parallel()
		_, err := uglify.Minify("function (", true, false)
		require.Error(t, err)
	})
}

func TestUglify_WritesBannerAndReport(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	grid := `
task "uglify" {
  options {
    banner = "/*! ${pkg.name} ${today("yyyy-mm-dd")} */\n"
  }
  target "dist" {
    options { report = "min" }
    files = {
      "js/build/plugins.js" = "js/plugins.js"
      "js/build/main.js"    = ["js/a.js", "js/b.js"]
    }
  }
}
`
	files := map[string]string{
		"js/plugins.js": addJS,
		"js/a.js":       "var alpha = 1",
		"js/b.js":       "var beta = 2",
	}
	env := testutil.NewTaskEnv(t, grid, files, []registry.Module{&uglify.Module{}},
		testutil.WithPackage(`{"name": "site"}`))

	// --- Act ---
	err := env.Run("uglify")

	// --- Assert ---
	require.NoError(t, err)

	plugins := env.Read(t, "js/build/plugins.js")
	banner := "/*! site " + time.Now().Format("2006-01-02") + " */\n"
	require.True(t, strings.HasPrefix(plugins, banner+"function add("), plugins)
	require.Less(t, len(plugins), len(addJS))

	main := env.Read(t, "js/build/main.js")
	require.Contains(t, main, "alpha=1")
	require.Contains(t, main, "beta=2")

	out := env.Output.String()
	require.Contains(t, out, "File js/build/main.js created.")
	require.Contains(t, out, "File js/build/plugins.js created.")
	require.Contains(t, out, " → ")
	require.Contains(t, out, ">> 2 files created.")
}

func TestUglify_Errors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		options string
		source  string
		wantErr string
	}{
		{"bad preserve_comments", `preserve_comments = "all"`, "var a = 1", `preserve_comments must be "none" or "some"`},
		{"bad report", `report = "gzip"`, "var a = 1", `report must be "none" or "min"`},
		{"parse error", ``, "function (", "uglifying js/out.js"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			// --- Arrange ---
			grid := `
task "uglify" {
  target "dist" {
    options {
      ` + tc.options + `
    }
    src  = "js/in.js"
    dest = "js/out.js"
  }
}
`
			env := testutil.NewTaskEnv(t, grid, map[string]string{"js/in.js": tc.source}, []registry.Module{&uglify.Module{}})

			// --- Act ---
			err := env.Run("uglify:dist")

			// --- Assert ---
			require.ErrorContains(t, err, tc.wantErr)
			require.False(t, env.Workspace.Exists("js/out.js"))
		})
	}
}
