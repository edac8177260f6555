package scss

import (
	"fmt"
	"io/fs"
	"path"
	"strings"
)

// Style selects the CSS output format.
type Style int

const (
	Expanded Style = iota
	Compact
	Compressed
)

func (s Style) String() string {
	switch s {
	case Compact:
		return "compact"
	case Compressed:
		return "compressed"
	}
	return "expanded"
}

// ParseStyle maps an output style name to a Style. "nested" is rendered
// as expanded.
func ParseStyle(name string) (Style, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "expanded", "nested":
		return Expanded, nil
	case "compact":
		return Compact, nil
	case "compressed":
		return Compressed, nil
	}
	return Expanded, fmt.Errorf("unknown output style %q (want expanded, nested, compact or compressed)", name)
}

// DefaultPrecision is the number of decimal digits kept in numbers.
const DefaultPrecision = 5

// Options configures a compilation.
type Options struct {
	Style Style
	// LoadPaths are searched, in order, for imports that are not found
	// next to the importing file. They are paths inside the filesystem.
	LoadPaths []string
	Precision int
	// Warn receives @warn and @debug messages.
	Warn func(msg string)
}

// Result is the output of a compilation.
type Result struct {
	CSS string
	// Imports lists every stylesheet loaded through @import.
	Imports []string
}

// Compile compiles the stylesheet name read from fsys.
func Compile(fsys fs.FS, name string, opts Options) (*Result, error) {
	name = path.Clean(strings.TrimPrefix(name, "/"))
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	return compile(fsys, name, string(data), opts)
}

// CompileString compiles src. Imports are resolved in fsys, which may be
// nil when src imports nothing.
func CompileString(fsys fs.FS, src string, opts Options) (*Result, error) {
	return compile(fsys, "stdin", src, opts)
}

func compile(fsys fs.FS, name, src string, opts Options) (*Result, error) {
	if opts.Precision <= 0 {
		opts.Precision = DefaultPrecision
	}
	stmts, err := parse(name, src)
	if err != nil {
		return nil, err
	}

	c := &compiler{
		opts:      opts,
		fsys:      fsys,
		root:      &cssNode{kind: nodeRoot},
		exprCache: make(map[string]expr),
		format:    formatter{precision: opts.Precision},
		loading:   []string{name},
	}
	e := &env{
		scope:     newScope(nil, false),
		file:      name,
		container: c.root,
		outer:     c.root,
	}
	if _, err := c.evalStmts(e, stmts); err != nil {
		return nil, err
	}
	if err := applyExtends(c.root, c.extends); err != nil {
		return nil, err
	}
	out, err := c.serialize()
	if err != nil {
		return nil, err
	}
	return &Result{CSS: out, Imports: c.loaded}, nil
}

// IsPartial reports whether name is a partial, which is only compiled
// through an import.
func IsPartial(name string) bool {
	return strings.HasPrefix(path.Base(strings.ReplaceAll(name, "\\", "/")), "_")
}
