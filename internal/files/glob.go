package files

import (
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Expand resolves patterns against fsys in order. Each pattern's matches are
// sorted; a pattern prefixed with "!" removes earlier matches. Only regular
// files are returned and every path appears once.
func Expand(fsys fs.FS, patterns []string) ([]string, error) {
	var out []string
	seen := make(map[string]struct{})

	for _, raw := range patterns {
		negate := strings.HasPrefix(raw, "!")
		pattern := cleanPattern(strings.TrimPrefix(raw, "!"))
		if pattern == "" {
			continue
		}
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid glob pattern %q", raw)
		}

		if negate {
			kept := out[:0]
			for _, p := range out {
				if ok, _ := doublestar.Match(pattern, p); ok {
					delete(seen, p)
					continue
				}
				kept = append(kept, p)
			}
			out = kept
			continue
		}

		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("expanding %q: %w", raw, err)
		}
		sort.Strings(matches)
		for _, m := range matches {
			if _, dup := seen[m]; dup {
				continue
			}
			seen[m] = struct{}{}
			out = append(out, m)
		}
	}
	return out, nil
}

// Match reports whether the project-relative name matches the pattern list,
// honouring "!" exclusions in order.
func Match(patterns []string, name string) bool {
	matched := false
	for _, raw := range patterns {
		negate := strings.HasPrefix(raw, "!")
		pattern := cleanPattern(strings.TrimPrefix(raw, "!"))
		if ok, _ := doublestar.Match(pattern, name); ok {
			matched = !negate
		}
	}
	return matched
}

// Base returns the static directory prefix of a pattern: the deepest
// directory that contains no glob metacharacters.
func Base(pattern string) string {
	base, _ := doublestar.SplitPattern(cleanPattern(strings.TrimPrefix(pattern, "!")))
	if base == "" {
		return "."
	}
	return base
}

func cleanPattern(p string) string {
	p = strings.TrimSpace(p)
	for strings.HasPrefix(p, "./") {
		p = p[2:]
	}
	return strings.TrimPrefix(p, "/")
}
