package scss

import (
	"errors"
	"strings"
)

// parseSelectorList splits a selector list and normalizes whitespace and
// combinators so that selectors can be compared textually.
func parseSelectorList(text string) []string {
	var out []string
	for _, part := range splitTopLevel(text, ',') {
		sel := normalizeSelector(part)
		if sel != "" {
			out = append(out, sel)
		}
	}
	return out
}

func normalizeSelector(s string) string {
	var b strings.Builder
	depth := 0
	var quote byte
	pendingSpace := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			b.WriteByte(c)
			if c == '\\' && i+1 < len(s) {
				i++
				b.WriteByte(s[i])
			} else if c == quote {
				quote = 0
			}
			continue
		}
		switch {
		case c == '"' || c == '\'':
			quote = c
		case c == '(' || c == '[':
			depth++
		case c == ')' || c == ']':
			depth--
		}
		if depth == 0 && (c == '>' || c == '+' || c == '~') {
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
			b.WriteByte(c)
			b.WriteByte(' ')
			pendingSpace = false
			continue
		}
		if isSpace(c) {
			pendingSpace = true
			continue
		}
		if pendingSpace {
			if out := b.String(); out != "" && !strings.HasSuffix(out, " ") && !strings.HasSuffix(out, "(") {
				b.WriteByte(' ')
			}
			pendingSpace = false
		}
		b.WriteByte(c)
	}
	return strings.TrimSpace(b.String())
}

var errTopLevelParent = errors.New(`top-level selectors may not contain the parent selector "&"`)

// resolveSelectors nests children inside parents, replacing "&" by the
// parent selector.
func resolveSelectors(parents, children []string) ([]string, error) {
	if parents == nil {
		for _, ch := range children {
			if strings.Contains(ch, "&") {
				return nil, errTopLevelParent
			}
		}
		return children, nil
	}
	out := make([]string, 0, len(parents)*len(children))
	for _, p := range parents {
		for _, ch := range children {
			if strings.Contains(ch, "&") {
				out = append(out, strings.ReplaceAll(ch, "&", p))
				continue
			}
			out = append(out, p+" "+ch)
		}
	}
	return out, nil
}

// splitComplex splits a normalized selector into compounds and
// combinators.
func splitComplex(sel string) []string {
	var out []string
	for _, p := range splitTopLevel(sel, ' ') {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func isCombinator(s string) bool {
	return s == ">" || s == "+" || s == "~"
}

// splitCompound splits ".a.b:hover" into its simple selectors.
func splitCompound(compound string) []string {
	var out []string
	start, depth := 0, 0
	for i := 0; i < len(compound); i++ {
		c := compound[i]
		switch c {
		case '(', '[':
			if depth == 0 && c == '[' && i > start {
				out = append(out, compound[start:i])
				start = i
			}
			depth++
			continue
		case ')', ']':
			depth--
			continue
		}
		if depth > 0 || i == start {
			continue
		}
		if c == '.' || c == '#' || c == '%' || (c == ':' && compound[i-1] != ':') {
			out = append(out, compound[start:i])
			start = i
		}
	}
	return append(out, compound[start:])
}

func isTypeSelector(simple string) bool {
	return simple == "*" || isIdentStart(simple[0])
}

func isPseudoElement(simple string) bool {
	return strings.HasPrefix(simple, "::")
}

// mergeCompound unifies the extender compound with the simple selectors
// left over after removing the extend target. It reports false when the
// two cannot match the same element.
func mergeCompound(extender string, rest []string) (string, bool) {
	if len(rest) == 0 {
		return extender, true
	}
	ext := splitCompound(extender)
	var typ string
	var body, pseudoEl []string
	seen := make(map[string]bool)
	for _, s := range append(ext, rest...) {
		if seen[s] {
			continue
		}
		seen[s] = true
		switch {
		case isTypeSelector(s):
			if typ != "" && typ != s && typ != "*" && s != "*" {
				return "", false
			}
			if typ == "" || typ == "*" {
				typ = s
			}
		case isPseudoElement(s):
			pseudoEl = append(pseudoEl, s)
		default:
			body = append(body, s)
		}
	}
	if len(pseudoEl) > 1 {
		return "", false
	}
	return typ + strings.Join(body, "") + strings.Join(pseudoEl, ""), true
}

// extendSelector returns the selectors produced by applying one extend
// request to sel.
func extendSelector(sel string, req *extendReq) []string {
	target := splitCompound(req.target)
	parts := splitComplex(sel)
	var out []string
	for i, part := range parts {
		if isCombinator(part) {
			continue
		}
		simples := splitCompound(part)
		rest, ok := without(simples, target)
		if !ok {
			continue
		}
		for _, extender := range req.extenders {
			extParts := splitComplex(extender)
			if len(extParts) == 0 {
				continue
			}
			merged, ok := mergeCompound(extParts[len(extParts)-1], rest)
			if !ok {
				continue
			}
			next := make([]string, 0, len(parts)+len(extParts))
			next = append(next, parts[:i]...)
			next = append(next, extParts[:len(extParts)-1]...)
			next = append(next, merged)
			next = append(next, parts[i+1:]...)
			out = append(out, strings.Join(next, " "))
		}
	}
	return out
}

// without removes every target simple selector from simples. It reports
// false when one of them is missing.
func without(simples, target []string) ([]string, bool) {
	rest := make([]string, 0, len(simples))
	found := 0
	for _, s := range simples {
		matched := false
		for _, t := range target {
			if s == t {
				matched = true
				break
			}
		}
		if matched {
			found++
			continue
		}
		rest = append(rest, s)
	}
	return rest, found == len(target)
}

const maxExtendPasses = 16

// applyExtends rewrites the selectors of every rule under root. Selectors
// that still contain a placeholder are dropped afterwards.
func applyExtends(root *cssNode, reqs []*extendReq) error {
	if len(reqs) > 0 {
		walkRules(root, func(r *cssNode) {
			r.selectors = extendList(r.selectors, reqs)
		})
		for _, req := range reqs {
			if !req.matched && !req.optional {
				return errorf(req.pos, "the target selector was not found; use \"@extend %s !optional\" to avoid this error", req.target)
			}
		}
	}
	walkRules(root, func(r *cssNode) {
		kept := r.selectors[:0]
		for _, sel := range r.selectors {
			if !strings.Contains(sel, "%") {
				kept = append(kept, sel)
			}
		}
		r.selectors = kept
	})
	return nil
}

func extendList(selectors []string, reqs []*extendReq) []string {
	seen := make(map[string]bool, len(selectors))
	for _, s := range selectors {
		seen[s] = true
	}
	out := selectors
	for pass := 0; pass < maxExtendPasses; pass++ {
		changed := false
		next := make([]string, 0, len(out))
		for _, sel := range out {
			next = append(next, sel)
			for _, req := range reqs {
				for _, ext := range extendSelector(sel, req) {
					req.matched = true
					if seen[ext] {
						continue
					}
					seen[ext] = true
					next = append(next, ext)
					changed = true
				}
			}
		}
		out = next
		if !changed {
			break
		}
	}
	return out
}

func walkRules(n *cssNode, fn func(*cssNode)) {
	for _, ch := range n.children {
		switch ch.kind {
		case nodeRule:
			fn(ch)
		case nodeAt:
			walkRules(ch, fn)
		}
	}
}
