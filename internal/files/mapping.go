package files

import (
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/zclconf/go-cty/cty"
)

// Mapping is one destination and the files feeding it.
type Mapping struct {
	Dest string
	// Src holds the existing files matched by Patterns, in match order.
	Src      []string
	Patterns []string
}

// Spec is the raw file declaration of one target.
type Spec struct {
	// Src and Dest are the compact form.
	Src  []string
	Dest string
	// Object is the files object form: dest => src or [src...].
	Object cty.Value
	Blocks []Block
}

// Block is one files block. With Expand set, every match under Cwd produces
// its own mapping into the Dest directory.
type Block struct {
	Src     []string
	Dest    string
	Cwd     string
	Expand  bool
	Ext     string
	ExtDot  string
	Flatten bool
}

// Resolve normalises every form in spec into mappings, in declaration order:
// compact first, then the object (sorted by destination), then blocks.
func Resolve(fsys fs.FS, spec Spec) ([]Mapping, error) {
	var out []Mapping

	if len(spec.Src) > 0 || spec.Dest != "" {
		m, err := single(fsys, spec.Dest, spec.Src)
		if err != nil {
			return nil, err
		}
		out = append(out, m...)
	}

	if !spec.Object.IsNull() && spec.Object.IsKnown() {
		ty := spec.Object.Type()
		if !ty.IsObjectType() && !ty.IsMapType() {
			return nil, fmt.Errorf("files must be an object of destination = source, got %s", ty.FriendlyName())
		}
		for it := spec.Object.ElementIterator(); it.Next(); {
			k, v := it.Element()
			src, err := StringList(v)
			if err != nil {
				return nil, fmt.Errorf("files[%q]: %w", k.AsString(), err)
			}
			m, err := single(fsys, k.AsString(), src)
			if err != nil {
				return nil, err
			}
			out = append(out, m...)
		}
	}

	for i, b := range spec.Blocks {
		m, err := resolveBlock(fsys, b)
		if err != nil {
			return nil, fmt.Errorf("files block %d: %w", i+1, err)
		}
		out = append(out, m...)
	}
	return out, nil
}

// single resolves one dest => patterns pair. A dest containing "*" fans out
// into one mapping per matched source, with "*" replaced by the source's
// base name minus its extension.
func single(fsys fs.FS, dest string, patterns []string) ([]Mapping, error) {
	src, err := Expand(fsys, patterns)
	if err != nil {
		return nil, err
	}
	if !strings.Contains(dest, "*") {
		return []Mapping{{Dest: cleanPattern(dest), Src: src, Patterns: patterns}}, nil
	}

	out := make([]Mapping, 0, len(src))
	for _, s := range src {
		stem := strings.TrimSuffix(path.Base(s), path.Ext(s))
		out = append(out, Mapping{
			Dest:     cleanPattern(strings.Replace(dest, "*", stem, 1)),
			Src:      []string{s},
			Patterns: patterns,
		})
	}
	return out, nil
}

func resolveBlock(fsys fs.FS, b Block) ([]Mapping, error) {
	if !b.Expand {
		return single(fsys, b.Dest, prefixAll(b.Cwd, b.Src))
	}

	cwd := cleanPattern(b.Cwd)
	sub := fsys
	if cwd != "" && cwd != "." {
		var err error
		sub, err = fs.Sub(fsys, strings.TrimSuffix(cwd, "/"))
		if err != nil {
			return nil, err
		}
	}

	rels, err := Expand(sub, b.Src)
	if err != nil {
		return nil, err
	}

	out := make([]Mapping, 0, len(rels))
	for _, rel := range rels {
		destRel := rel
		if b.Flatten {
			destRel = path.Base(rel)
		}
		if b.Ext != "" {
			destRel = replaceExt(destRel, b.Ext, b.ExtDot)
		}
		out = append(out, Mapping{
			Dest:     path.Join(cleanPattern(b.Dest), destRel),
			Src:      []string{path.Join(cwd, rel)},
			Patterns: b.Src,
		})
	}
	return out, nil
}

func prefixAll(cwd string, patterns []string) []string {
	cwd = cleanPattern(cwd)
	if cwd == "" || cwd == "." {
		return patterns
	}
	out := make([]string, len(patterns))
	for i, p := range patterns {
		if strings.HasPrefix(p, "!") {
			out[i] = "!" + path.Join(cwd, p[1:])
			continue
		}
		out[i] = path.Join(cwd, p)
	}
	return out
}

// replaceExt swaps the extension starting at the first dot of the base name
// ("first", the default) or at the last one ("last").
func replaceExt(p, ext, extDot string) string {
	dir, base := path.Split(p)
	var idx int
	if extDot == "last" {
		idx = strings.LastIndex(base, ".")
	} else {
		idx = strings.Index(base, ".")
	}
	if idx >= 0 {
		base = base[:idx]
	}
	return dir + base + ext
}

// StringList accepts a string or a list/tuple of strings.
func StringList(v cty.Value) ([]string, error) {
	if v.IsNull() {
		return nil, nil
	}
	ty := v.Type()
	switch {
	case ty == cty.String:
		return []string{v.AsString()}, nil
	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		out := make([]string, 0, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			_, ev := it.Element()
			if ev.IsNull() || ev.Type() != cty.String {
				return nil, fmt.Errorf("expected a list of strings, found %s element", ev.Type().FriendlyName())
			}
			out = append(out, ev.AsString())
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected a string or list of strings, got %s", ty.FriendlyName())
	}
}
