package scss

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuiltins(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		expr string
		want string
	}{
		{expr: "lighten(#336699, 20%)", want: "#6699cc"},
		{expr: "darken(#336699, 10%)", want: "#264d73"},
		{expr: "mix(#f00, #00f)", want: "#800080"},
		{expr: "rgba(#000, 0.5)", want: "rgba(0, 0, 0, 0.5)"},
		{expr: "rgba(255, 0, 0, 0.25)", want: "rgba(255, 0, 0, 0.25)"},
		{expr: "rgb(0, 128, 255)", want: "#0080ff"},
		{expr: "transparentize(#fff, 0.25)", want: "rgba(255, 255, 255, 0.75)"},
		{expr: "red(#336699)", want: "51"},
		{expr: "alpha(rgba(0, 0, 0, 0.3))", want: "0.3"},
		{expr: "grayscale(50%)", want: "grayscale(50%)"},
		{expr: "percentage(0.5)", want: "50%"},
		{expr: "round(2.5px)", want: "3px"},
		{expr: "ceil(1.2)", want: "2"},
		{expr: "floor(1.8em)", want: "1em"},
		{expr: "abs(-3)", want: "3"},
		{expr: "max(1px, 3px, 2px)", want: "3px"},
		{expr: "min(10px, 5vw)", want: "min(10px, 5vw)"},
		{expr: "if(false, a, b)", want: "b"},
		{expr: "unquote(\"bold\")", want: "bold"},
		{expr: "type-of(1px)", want: "number"},
		{expr: "unit(3em)", want: `"em"`},
		{expr: "unitless(3)", want: "true"},
		{expr: "length(a b c)", want: "3"},
		{expr: "nth(a b c, -1)", want: "c"},
		{expr: "join(a b, c d, comma)", want: "a, b, c, d"},
		{expr: "append(a b, c)", want: "a b c"},
		{expr: "index(a b c, b)", want: "2"},
		{expr: "translate(10px, 5px)", want: "translate(10px, 5px)"},
		{expr: "calc(100% - #{1 + 1}px)", want: "calc(100% - 2px)"},
	}

	for _, tc := range testCases {
		t.Run(tc.expr, func(t *testing.T) {
			t.Parallel()

			// --- Act ---
			res, err := CompileString(nil, ".a { v: "+tc.expr+"; }", Options{})

			// --- Assert ---
			require.NoError(t, err)
			require.Equal(t, ".a {\n  v: "+tc.want+";\n}\n", res.CSS)
		})
	}
}

func TestBuiltins_Errors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		expr    string
		wantErr string
	}{
		{expr: "lighten(1px, 10%)", wantErr: "$color: number is not a color"},
		{expr: "lighten(#fff, 200%)", wantErr: "expected a value between 0% and 100%"},
		{expr: "percentage(1px)", wantErr: "to have no units"},
		{expr: "nth(a b, 5)", wantErr: "invalid index 5"},
		{expr: "darken(#fff)", wantErr: "missing argument $amount"},
		{expr: "mix(#fff, #000, $bogus: 1)", wantErr: "no argument named $bogus"},
	}

	for _, tc := range testCases {
		t.Run(tc.expr, func(t *testing.T) {
			t.Parallel()

			// --- Act ---
			_, err := CompileString(nil, ".a { v: "+tc.expr+"; }", Options{})

			// --- Assert ---
			require.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestHSLRoundTrip(t *testing.T) {
	t.Parallel()

	for _, c := range []Color{
		{R: 51, G: 102, B: 153, A: 1},
		{R: 255, G: 0, B: 0, A: 1},
		{R: 12, G: 200, B: 90, A: 0.5},
	} {
		h, s, l := toHSL(c)
		got := fromHSL(h, s, l, c.A)
		require.InDelta(t, c.R, got.R, 1e-9)
		require.InDelta(t, c.G, got.G, 1e-9)
		require.InDelta(t, c.B, got.B, 1e-9)
		require.Equal(t, c.A, got.A)
	}
}
