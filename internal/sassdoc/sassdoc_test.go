package sassdoc

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
	"github.com/stretchr/testify/require"
)

const buttonsSCSS = `////
//// @group buttons
////

/// Creates a button.
///
/// Use it **everywhere**.
/// @param {Color} $bg - Background colour
/// @param {Length} $radius [4px] - Corner radius
/// @content Extra rules
/// @example scss - Basic
///   .btn { @include button(red); }
/// @see $base-color
/// @since 1.0.0 - First version
@mixin button($bg, $radius: 4px) {
  background: $bg;
}

/// Base colour.
/// @type Color
/// @group colors
$base-color: #336699 !default;

/// @access private
@function _half($n) { @return $n / 2; }

/// Orphan block

.foo {}

/// @bogus x
%placeholder {}
`

func TestParse(t *testing.T) {
	t.Parallel()

	// --- Act ---
	items, warnings := Parse("scss/_buttons.scss", buttonsSCSS)

	// --- Assert ---
	want := []*Item{
		{
			Kind:        KindMixin,
			Name:        "button",
			File:        "scss/_buttons.scss",
			Line:        15,
			Code:        "@mixin button($bg, $radius: 4px)",
			Description: "Creates a button.\n\nUse it **everywhere**.",
			Groups:      []string{"buttons"},
			Access:      "public",
			Params: []Param{
				{Type: "Color", Name: "bg", Description: "Background colour"},
				{Type: "Length", Name: "radius", Default: "4px", Description: "Corner radius"},
			},
			Content:  "Extra rules",
			Examples: []Example{{Type: "scss", Description: "Basic", Code: ".btn { @include button(red); }"}},
			See:      []string{"base-color"},
			Since:    []Since{{Version: "1.0.0", Description: "First version"}},
		},
		{
			Kind:        KindVariable,
			Name:        "base-color",
			Value:       "#336699",
			File:        "scss/_buttons.scss",
			Line:        22,
			Code:        "$base-color: #336699 !default;",
			Description: "Base colour.",
			Groups:      []string{"colors"},
			Access:      "public",
			Type:        "Color",
		},
		{
			Kind:      KindFunction,
			Name:      "_half",
			File:      "scss/_buttons.scss",
			Line:      25,
			Code:      "@function _half($n) { @return $n / 2; }",
			Groups:    []string{"buttons"},
			Access:    "private",
			accessSet: true,
		},
		{
			Kind:   KindPlaceholder,
			Name:   "placeholder",
			File:   "scss/_buttons.scss",
			Line:   32,
			Code:   "%placeholder {}",
			Groups: []string{"buttons"},
			Access: "public",
		},
	}
	if diff := cmp.Diff(want, items, cmp.AllowUnexported(Item{}), cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, []string{
		"scss/_buttons.scss:27: documentation block is not followed by a function, mixin, placeholder or variable",
		"scss/_buttons.scss:31: unknown annotation @bogus",
	}, warnings)
}

func TestBuild(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	items, _ := Parse("scss/_buttons.scss", buttonsSCSS)

	// --- Act ---
	doc := Build(Project{Name: "demo"}, items, Options{Groups: map[string]string{"buttons": "Buttons"}})

	// --- Assert ---
	require.Len(t, doc.Items, 3)
	require.Len(t, doc.Groups, 2)
	require.Equal(t, "Buttons", doc.Groups[0].Name)
	require.Equal(t, "colors", doc.Groups[1].Name)

	var kinds []Kind
	for _, s := range doc.Groups[0].Sections {
		kinds = append(kinds, s.Kind)
	}
	require.Equal(t, []Kind{KindMixin, KindPlaceholder}, kinds)

	withPrivate := Build(Project{}, items, Options{Private: true})
	require.Len(t, withPrivate.Items, 4)
}

func TestBuild_UndefinedGroupLast(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	items, _ := Parse("a.scss", "/// @group zeta\n$a: 1;\n\n/// No group.\n$b: 2;\n")

	// --- Act ---
	doc := Build(Project{}, items, Options{})

	// --- Assert ---
	require.Len(t, doc.Groups, 2)
	require.Equal(t, "zeta", doc.Groups[0].Slug)
	require.Equal(t, UndefinedGroup, doc.Groups[1].Slug)
	require.Equal(t, "General", doc.Groups[1].Name)
}

func TestRenderHTML(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	items, _ := Parse("scss/_buttons.scss", buttonsSCSS)
	doc := Build(Project{Name: "demo", Version: "1.2.0", Homepage: "https://example.com"}, items, Options{})

	// --- Act ---
	var buf bytes.Buffer
	err := RenderHTML(&buf, doc)

	// --- Assert ---
	require.NoError(t, err)
	page := buf.String()
	require.Contains(t, page, `<a href="https://example.com">demo</a> <small>1.2.0</small>`)
	require.Contains(t, page, `<article id="mixin-button">`)
	require.Contains(t, page, `<strong>everywhere</strong>`)
	require.Contains(t, page, `<a href="#variable-base-color">base-color</a>`)
	require.Contains(t, page, `<code class="language-scss">.btn { @include button(red); }</code>`)
	require.NotContains(t, page, "_half")
}

func TestRenderJSON(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	items, _ := Parse("scss/_buttons.scss", buttonsSCSS)
	doc := Build(Project{}, items, Options{})

	// --- Act ---
	out := RenderJSON(doc)

	// --- Assert ---
	parsed, err := oj.Parse(out)
	require.NoError(t, err)
	require.Len(t, parsed, 3)
	require.Equal(t, "button", jp.MustParseString("$[0].context.name").First(parsed))
	require.Equal(t, "4px", jp.MustParseString("$[0].parameter[1].default").First(parsed))
	require.Equal(t, "#336699", jp.MustParseString("$[1].context.value").First(parsed))
}
