// Package pkgjson reads a project's package.json manifest and exposes it to
// HCL expressions (as `pkg`) and to tasks that print project metadata.
package pkgjson

import (
	"fmt"
	"sort"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
	"github.com/zclconf/go-cty/cty"
)

var (
	namePath        = jp.MustParseString("$.name")
	versionPath     = jp.MustParseString("$.version")
	descriptionPath = jp.MustParseString("$.description")
	homepagePath    = jp.MustParseString("$.homepage")
	licensePath     = jp.MustParseString("$.license")
)

// Package is a parsed manifest.
type Package struct {
	data any
}

// Empty is the manifest used when a project declares none.
func Empty() *Package {
	return &Package{data: map[string]any{}}
}

// Parse decodes manifest bytes. The document root must be an object.
func Parse(data []byte) (*Package, error) {
	doc, err := oj.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing package manifest: %w", err)
	}
	if _, ok := doc.(map[string]any); !ok {
		return nil, fmt.Errorf("package manifest must be a JSON object, got %T", doc)
	}
	return &Package{data: doc}, nil
}

// Name is the package name, or "".
func (p *Package) Name() string { return p.str(namePath) }

// Version is the package version, or "".
func (p *Package) Version() string { return p.str(versionPath) }

// Description is the package description, or "".
func (p *Package) Description() string { return p.str(descriptionPath) }

// Homepage is the package homepage, or "".
func (p *Package) Homepage() string { return p.str(homepagePath) }

// License is the package license, or "".
func (p *Package) License() string { return p.str(licensePath) }

// Get evaluates a JSONPath expression and returns the first match.
func (p *Package) Get(path string) (any, error) {
	x, err := jp.ParseString(path)
	if err != nil {
		return nil, fmt.Errorf("invalid jsonpath '%s': %w", path, err)
	}
	return x.First(p.data), nil
}

func (p *Package) str(x jp.Expr) string {
	if s, ok := x.First(p.data).(string); ok {
		return s
	}
	return ""
}

// Value converts the manifest into a cty object for expression evaluation.
func (p *Package) Value() cty.Value {
	return toCty(p.data)
}

func toCty(v any) cty.Value {
	switch tv := v.(type) {
	case nil:
		return cty.NullVal(cty.DynamicPseudoType)
	case string:
		return cty.StringVal(tv)
	case bool:
		return cty.BoolVal(tv)
	case int64:
		return cty.NumberIntVal(tv)
	case int:
		return cty.NumberIntVal(int64(tv))
	case float64:
		return cty.NumberFloatVal(tv)
	case []any:
		if len(tv) == 0 {
			return cty.EmptyTupleVal
		}
		elems := make([]cty.Value, len(tv))
		for i, e := range tv {
			elems[i] = toCty(e)
		}
		return cty.TupleVal(elems)
	case map[string]any:
		if len(tv) == 0 {
			return cty.EmptyObjectVal
		}
		keys := make([]string, 0, len(tv))
		for k := range tv {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		attrs := make(map[string]cty.Value, len(tv))
		for _, k := range keys {
			attrs[k] = toCty(tv[k])
		}
		return cty.ObjectVal(attrs)
	default:
		return cty.StringVal(fmt.Sprint(tv))
	}
}
