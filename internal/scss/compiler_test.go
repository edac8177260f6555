package scss

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"
)

func TestCompileString_Expanded(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "variables and nesting",
			src: `
$primary: #336699;
.nav {
  color: $primary;
  a {
    color: lighten($primary, 20%);
    &:hover { text-decoration: underline; }
  }
}`,
			want: `.nav {
  color: #336699;
}

.nav a {
  color: #6699cc;
}

.nav a:hover {
  text-decoration: underline;
}
`,
		},
		{
			name: "mixin with keyword argument and content",
			src: `
@mixin button($bg, $radius: 4px) {
  background: $bg;
  border-radius: $radius;
  @content;
}
.btn {
  @include button(red, $radius: 2px) {
    padding: 0 10px;
  }
}`,
			want: `.btn {
  background: red;
  border-radius: 2px;
  padding: 0 10px;
}
`,
		},
		{
			name: "placeholder extend",
			src: `
%message { border: 1px solid #ccc; }
.success { @extend %message; color: green; }
.error { @extend %message; color: red; }`,
			want: `.success,
.error {
  border: 1px solid #ccc;
}

.success {
  color: green;
}

.error {
  color: red;
}
`,
		},
		{
			name: "extend of a class reaches compound selectors",
			src: `
.btn { padding: 1px; }
.btn:hover { color: red; }
.primary { @extend .btn; }`,
			want: `.btn,
.primary {
  padding: 1px;
}

.btn:hover,
.primary:hover {
  color: red;
}
`,
		},
		{
			name: "media bubbles out of rules",
			src: `
.sidebar {
  width: 300px;
  @media screen and (max-width: 600px) {
    width: 100%;
  }
}`,
			want: `.sidebar {
  width: 300px;
}

@media screen and (max-width: 600px) {
  .sidebar {
    width: 100%;
  }
}
`,
		},
		{
			name: "control flow and functions",
			src: `
@function double($n) { @return $n * 2; }
@each $name in home, about {
  .icon-#{$name} { background: url("/img/#{$name}.png"); }
}
@for $i from 1 through 2 {
  .m-#{$i} { margin: double($i) * 1px; }
}
$theme: dark;
body {
  @if $theme == light { color: black; }
  @else if $theme == dark { color: white; }
  @else { color: gray; }
}`,
			want: `.icon-home {
  background: url("/img/home.png");
}

.icon-about {
  background: url("/img/about.png");
}

.m-1 {
  margin: 2px;
}

.m-2 {
  margin: 4px;
}

body {
  color: white;
}
`,
		},
		{
			name: "loud comments are kept and silent ones dropped",
			src: `
/*! keep me */
// silent
/* loud */
.a { color: red; }`,
			want: `/*! keep me */
/* loud */
.a {
  color: red;
}
`,
		},
		{
			name: "arithmetic and slash separator",
			src: `
$w: 100px;
.a {
  width: $w / 4;
  height: (100px / 4);
  margin: 10px + 5px;
  font: 12px/1.5 sans-serif;
  left: percentage(0.25);
  top: round(4.6px);
}`,
			want: `.a {
  width: 25px;
  height: 25px;
  margin: 15px;
  font: 12px/1.5 sans-serif;
  left: 25%;
  top: 5px;
}
`,
		},
		{
			name: "default and global flags",
			src: `
$size: 10px;
$size: 20px !default;
$color: null;
$color: blue !default;
.a {
  $local: 1px !global;
  width: $size;
  color: $color;
}
.b { width: $local; }`,
			want: `.a {
  width: 10px;
  color: blue;
}

.b {
  width: 1px;
}
`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			// --- Act ---
			res, err := CompileString(nil, tc.src, Options{})

			// --- Assert ---
			require.NoError(t, err)
			require.Equal(t, tc.want, res.CSS)
		})
	}
}

func TestCompileString_Styles(t *testing.T) {
	t.Parallel()

	src := `
/*! license */
/* note */
.a { color: red; margin: 0 auto; }
.b { padding: 0; }`

	testCases := []struct {
		style Style
		want  string
	}{
		{
			style: Compact,
			want: `/*! license */
/* note */
.a { color: red; margin: 0 auto; }
.b { padding: 0; }
`,
		},
		{
			style: Compressed,
			want:  "/*! license */.a{color:red;margin:0 auto}.b{padding:0}\n",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.style.String(), func(t *testing.T) {
			t.Parallel()

			// --- Act ---
			res, err := CompileString(nil, src, Options{Style: tc.style})

			// --- Assert ---
			require.NoError(t, err)
			require.Equal(t, tc.want, res.CSS)
		})
	}
}

func TestCompileString_PrecisionMatchesAcrossStyles(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	src := ".a { w: 123.456789px; h: (10px / 3); }"

	// --- Act ---
	expanded, err := CompileString(nil, src, Options{Style: Expanded})
	require.NoError(t, err)
	compressed, err := CompileString(nil, src, Options{Style: Compressed})
	require.NoError(t, err)
	short, err := CompileString(nil, src, Options{Style: Compressed, Precision: 2})
	require.NoError(t, err)

	// --- Assert ---
	require.Equal(t, ".a {\n  w: 123.45679px;\n  h: 3.33333px;\n}\n", expanded.CSS)
	require.Equal(t, ".a{w:123.45679px;h:3.33333px}\n", compressed.CSS)
	require.Equal(t, ".a{w:123.46px;h:3.33px}\n", short.CSS)
}

func TestCompile_Imports(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	fsys := fstest.MapFS{
		"scss/main.scss": {Data: []byte(`@import "vars", "base";
@import "reset.css";
.x { color: $c; }
`)},
		"scss/_vars.scss": {Data: []byte("$c: blue;\n")},
		"lib/_base.scss":  {Data: []byte(".base { margin: 0; }\n")},
	}

	// --- Act ---
	res, err := Compile(fsys, "scss/main.scss", Options{LoadPaths: []string{"lib"}})

	// --- Assert ---
	require.NoError(t, err)
	require.Equal(t, `@import "reset.css";

.base {
  margin: 0;
}

.x {
  color: blue;
}
`, res.CSS)
	require.Equal(t, []string{"scss/_vars.scss", "lib/_base.scss"}, res.Imports)
}

func TestCompile_ImportCycle(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	fsys := fstest.MapFS{
		"main.scss": {Data: []byte(`@import "a";`)},
		"_a.scss":   {Data: []byte(`@import "b";`)},
		"_b.scss":   {Data: []byte(`@import "a";`)},
	}

	// --- Act ---
	_, err := Compile(fsys, "main.scss", Options{})

	// --- Assert ---
	require.ErrorContains(t, err, "already being loaded")
}

func TestCompileString_Errors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		src     string
		wantErr string
	}{
		{
			name:    "undefined variable carries position",
			src:     ".a {\n  color: $missing;\n}",
			wantErr: "stdin:2:3: undefined variable $missing",
		},
		{
			name:    "unknown mixin",
			src:     ".a { @include nope; }",
			wantErr: `undefined mixin "nope"`,
		},
		{
			name:    "unmatched extend",
			src:     ".a { @extend .missing; }",
			wantErr: "@extend .missing !optional",
		},
		{
			name:    "error directive",
			src:     `@error "boom";`,
			wantErr: "stdin:1:1: boom",
		},
		{
			name:    "incompatible units",
			src:     ".a { width: 1px + 1s; }",
			wantErr: "incompatible units px and s",
		},
		{
			name:    "parent selector at top level",
			src:     "&.a { color: red; }",
			wantErr: "parent selector",
		},
		{
			name:    "unclosed block",
			src:     ".a { color: red;",
			wantErr: `expected "}"`,
		},
		{
			name:    "use is rejected",
			src:     `@use "x";`,
			wantErr: "@use is not supported",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			// --- Act ---
			_, err := CompileString(nil, tc.src, Options{})

			// --- Assert ---
			require.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestCompileString_Warn(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	var got []string
	opts := Options{Warn: func(msg string) { got = append(got, msg) }}

	// --- Act ---
	_, err := CompileString(nil, "@warn \"careful\";\n@debug 1 + 1;", opts)

	// --- Assert ---
	require.NoError(t, err)
	require.Equal(t, []string{"stdin:1:1: @warn: careful", "stdin:2:1: @debug: 2"}, got)
}

func TestParseStyle(t *testing.T) {
	t.Parallel()

	for name, want := range map[string]Style{
		"":           Expanded,
		"expanded":   Expanded,
		"nested":     Expanded,
		"compact":    Compact,
		"Compressed": Compressed,
	} {
		got, err := ParseStyle(name)
		require.NoError(t, err, name)
		require.Equal(t, want, got, name)
	}

	_, err := ParseStyle("fancy")
	require.ErrorContains(t, err, "unknown output style")
}

func TestIsPartial(t *testing.T) {
	t.Parallel()

	require.True(t, IsPartial("scss/_vars.scss"))
	require.False(t, IsPartial("scss/styles.scss"))
}
