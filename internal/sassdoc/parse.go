package sassdoc

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	reFunction    = regexp.MustCompile(`^@function\s+([\w-]+)\s*(\(.*)?`)
	reMixin       = regexp.MustCompile(`^@mixin\s+([\w-]+)\s*(\(.*)?`)
	rePlaceholder = regexp.MustCompile(`^%([\w-]+)`)
	reVariable    = regexp.MustCompile(`^\$([\w-]+)\s*:\s*(.*?)\s*;?\s*$`)

	reParam  = regexp.MustCompile(`^(?:\{([^}]*)\})?\s*\$?([\w.-]+)(?:\s*\[([^\]]*)\])?\s*(?:-\s*)?(.*)$`)
	reTyped  = regexp.MustCompile(`^(?:\{([^}]*)\})?\s*(.*)$`)
	reSince  = regexp.MustCompile(`^(\S+)\s*(?:-\s*)?(.*)$`)
	reSplits = regexp.MustCompile(`\s*,\s*|\s+`)
)

// aliases maps alternative annotation names to the canonical one.
var aliases = map[string]string{
	"arg":       "param",
	"argument":  "param",
	"parameter": "param",
	"returns":   "return",
	"requires":  "require",
	"throws":    "throw",
	"exception": "throw",
	"property":  "prop",
}

type annotation struct {
	name  string
	first string
	lines []string
	line  int
}

// Parse extracts the documented items of one file. Unknown annotations and
// comment blocks that document nothing are reported as warnings.
func Parse(file, src string) ([]*Item, []string) {
	lines := strings.Split(strings.ReplaceAll(src, "\r\n", "\n"), "\n")
	var items []*Item
	var warnings []string
	warn := func(line int, format string, args ...any) {
		warnings = append(warnings, fmt.Sprintf("%s:%d: %s", file, line, fmt.Sprintf(format, args...)))
	}

	poster := &Item{}
	for i := 0; i < len(lines); {
		trimmed := strings.TrimSpace(lines[i])
		switch {
		case strings.HasPrefix(trimmed, "////"):
			start := i
			var block []string
			for ; i < len(lines) && strings.HasPrefix(strings.TrimSpace(lines[i]), "////"); i++ {
				block = append(block, stripMarker(lines[i], "////"))
			}
			apply(poster, start+1, block, warn)

		case strings.HasPrefix(trimmed, "///"):
			start := i
			var block []string
			for ; i < len(lines); i++ {
				t := strings.TrimSpace(lines[i])
				if !strings.HasPrefix(t, "///") || strings.HasPrefix(t, "////") {
					break
				}
				block = append(block, stripMarker(lines[i], "///"))
			}
			item := &Item{File: file}
			apply(item, start+1, block, warn)
			ctx, line := nextDeclaration(lines, i)
			if !detect(item, ctx) {
				warn(start+1, "documentation block is not followed by a function, mixin, placeholder or variable")
				continue
			}
			item.Line = line + 1
			inherit(item, poster)
			items = append(items, item)

		default:
			i++
		}
	}
	return items, warnings
}

func stripMarker(line, marker string) string {
	s := strings.TrimLeft(line, " \t")
	s = strings.TrimPrefix(s, marker)
	return strings.TrimPrefix(s, " ")
}

// nextDeclaration returns the first line after a comment block that is not
// blank and not a silent comment.
func nextDeclaration(lines []string, i int) (string, int) {
	for ; i < len(lines); i++ {
		t := strings.TrimSpace(lines[i])
		if t == "" || strings.HasPrefix(t, "//") && !strings.HasPrefix(t, "///") {
			continue
		}
		if strings.HasPrefix(t, "///") {
			return "", i
		}
		return t, i
	}
	return "", i
}

func detect(it *Item, decl string) bool {
	code := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(decl), "{"))
	var name string
	switch {
	case reFunction.MatchString(decl):
		it.Kind, name = KindFunction, reFunction.FindStringSubmatch(decl)[1]
	case reMixin.MatchString(decl):
		it.Kind, name = KindMixin, reMixin.FindStringSubmatch(decl)[1]
	case rePlaceholder.MatchString(decl):
		it.Kind, name = KindPlaceholder, rePlaceholder.FindStringSubmatch(decl)[1]
	case reVariable.MatchString(decl):
		m := reVariable.FindStringSubmatch(decl)
		it.Kind, name = KindVariable, m[1]
		it.Value = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(m[2]), "!default"))
	default:
		return false
	}
	if it.Name == "" {
		it.Name = name
	}
	it.Code = code
	if it.Access == "" {
		it.Access = "public"
		if strings.HasPrefix(it.Name, "_") || strings.HasPrefix(it.Name, "-") {
			it.Access = "private"
		}
	}
	return true
}

func inherit(it, poster *Item) {
	if len(it.Groups) == 0 {
		it.Groups = append(it.Groups, poster.Groups...)
	}
	if len(it.Authors) == 0 {
		it.Authors = append(it.Authors, poster.Authors...)
	}
	if poster.Access != "" && !it.accessSet {
		it.Access = poster.Access
	}
	if len(it.Groups) == 0 {
		it.Groups = []string{UndefinedGroup}
	}
}

// split groups a comment block into the description and its annotations.
func split(startLine int, block []string) ([]string, []annotation) {
	var desc []string
	var anns []annotation
	for i, l := range block {
		t := strings.TrimSpace(l)
		if strings.HasPrefix(t, "@") && len(t) > 1 {
			name, rest, _ := strings.Cut(t[1:], " ")
			name = strings.ToLower(strings.TrimSpace(name))
			if canonical, ok := aliases[name]; ok {
				name = canonical
			}
			anns = append(anns, annotation{name: name, first: strings.TrimSpace(rest), line: startLine + i})
			continue
		}
		if len(anns) > 0 {
			a := &anns[len(anns)-1]
			a.lines = append(a.lines, l)
			continue
		}
		desc = append(desc, l)
	}
	return desc, anns
}

func apply(it *Item, startLine int, block []string, warn func(int, string, ...any)) {
	desc, anns := split(startLine, block)
	if d := strings.TrimSpace(strings.Join(desc, "\n")); d != "" {
		it.Description = d
	}
	for _, a := range anns {
		body := strings.TrimSpace(strings.Join(append([]string{a.first}, a.lines...), "\n"))
		switch a.name {
		case "name":
			it.Name = a.first
		case "group":
			it.Groups = append(it.Groups, strings.ToLower(a.first))
		case "access":
			it.Access = strings.ToLower(a.first)
			it.accessSet = true
		case "param", "prop":
			m := reParam.FindStringSubmatch(body)
			if m == nil || m[2] == "" {
				warn(a.line, "malformed @%s %q", a.name, a.first)
				continue
			}
			p := Param{Type: m[1], Name: m[2], Default: m[3], Description: strings.TrimSpace(m[4])}
			if a.name == "param" {
				it.Params = append(it.Params, p)
			} else {
				it.Props = append(it.Props, p)
			}
		case "return":
			m := reTyped.FindStringSubmatch(body)
			it.Return = &Return{Type: m[1], Description: strings.TrimSpace(m[2])}
		case "example":
			it.Examples = append(it.Examples, parseExample(a))
		case "see":
			for _, s := range reSplits.Split(a.first, -1) {
				if s != "" {
					it.See = append(it.See, strings.TrimPrefix(s, "$"))
				}
			}
		case "since":
			m := reSince.FindStringSubmatch(body)
			if m == nil {
				warn(a.line, "malformed @since")
				continue
			}
			it.Since = append(it.Since, Since{Version: m[1], Description: strings.TrimSpace(m[2])})
		case "deprecated":
			it.Deprecated = true
			it.DeprecatedNote = body
		case "author":
			it.Authors = append(it.Authors, body)
		case "todo":
			it.Todos = append(it.Todos, body)
		case "link":
			url, caption, _ := strings.Cut(a.first, " ")
			it.Links = append(it.Links, Link{URL: url, Caption: strings.TrimSpace(caption)})
		case "type":
			it.Type = a.first
		case "require":
			m := reTyped.FindStringSubmatch(a.first)
			name, _, _ := strings.Cut(strings.TrimSpace(m[2]), " ")
			it.Requires = append(it.Requires, strings.TrimPrefix(name, "$"))
		case "throw":
			it.Throws = append(it.Throws, body)
		case "content":
			it.Content = body
		case "output":
			it.Output = body
		case "alias":
			it.Aliases = append(it.Aliases, a.first)
		case "ignore":
		default:
			warn(a.line, "unknown annotation @%s", a.name)
		}
	}
}

// parseExample reads "@example scss - Caption" followed by the code lines.
func parseExample(a annotation) Example {
	lang, caption, _ := strings.Cut(a.first, " ")
	ex := Example{Type: lang, Description: strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(caption), "-"))}
	if ex.Type == "" {
		ex.Type = "scss"
	}
	ex.Code = dedent(a.lines)
	return ex
}

func dedent(lines []string) string {
	for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	indent := -1
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		if n := len(l) - len(strings.TrimLeft(l, " \t")); indent < 0 || n < indent {
			indent = n
		}
	}
	out := make([]string, len(lines))
	for i, l := range lines {
		if len(l) >= indent && indent > 0 {
			l = l[indent:]
		}
		out[i] = strings.TrimRight(l, " \t")
	}
	return strings.Join(out, "\n")
}
