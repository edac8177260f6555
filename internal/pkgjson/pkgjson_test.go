package pkgjson

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

const manifest = `{
  "name": "my-site",
  "version": "1.4.0",
  "description": "Front-end assets",
  "private": true,
  "keywords": ["sass", "grid"],
  "repository": {"type": "git", "url": "https://example.com/site.git"},
  "engines": {},
  "stars": 12
}`

func TestParse_Accessors(t *testing.T) {
	t.Parallel()

	// --- Act ---
	p, err := Parse([]byte(manifest))

	// --- Assert ---
	require.NoError(t, err)
	require.Equal(t, "my-site", p.Name())
	require.Equal(t, "1.4.0", p.Version())
	require.Equal(t, "Front-end assets", p.Description())
	require.Empty(t, p.Homepage())

	url, err := p.Get("$.repository.url")
	require.NoError(t, err)
	require.Equal(t, "https://example.com/site.git", url)
}

func TestParse_RejectsNonObject(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte(`["a"]`))
	require.Error(t, err)

	_, err = Parse([]byte(`{"name": `))
	require.Error(t, err)
}

func TestValue_ConvertsToCty(t *testing.T) {
	t.Parallel()

	p, err := Parse([]byte(manifest))
	require.NoError(t, err)

	v := p.Value()

	require.True(t, v.Type().IsObjectType())
	require.Equal(t, cty.StringVal("my-site"), v.GetAttr("name"))
	require.Equal(t, cty.True, v.GetAttr("private"))
	require.Equal(t, cty.StringVal("git"), v.GetAttr("repository").GetAttr("type"))
	require.Equal(t, 2, v.GetAttr("keywords").LengthInt())
	require.True(t, v.GetAttr("stars").Equals(cty.NumberIntVal(12)).True())
	require.Equal(t, cty.EmptyObjectVal, v.GetAttr("engines"))
}

func TestEmpty(t *testing.T) {
	t.Parallel()

	p := Empty()
	require.Empty(t, p.Name())
	require.Equal(t, cty.EmptyObjectVal, p.Value())
}
