package scss

import (
	"fmt"
	"strings"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
)

func isLoud(n *cssNode) bool {
	return n.kind == nodeComment && strings.HasPrefix(n.value, "/*!")
}

func keepAll(*cssNode) bool { return true }

func keepLoud(n *cssNode) bool { return isLoud(n) }

// serialize renders the evaluated tree in the requested style.
func (c *compiler) serialize() (string, error) {
	nodes := append(append([]*cssNode{}, c.imports...), c.root.children...)
	switch c.opts.Style {
	case Compressed:
		return c.compressed(nodes)
	case Compact:
		var b strings.Builder
		for _, n := range nodes {
			if n.empty(keepAll) {
				continue
			}
			writeCompact(&b, n)
			b.WriteByte('\n')
		}
		return b.String(), nil
	default:
		var b strings.Builder
		prevComment := true
		for _, n := range nodes {
			if n.empty(keepAll) {
				continue
			}
			if !prevComment {
				b.WriteByte('\n')
			}
			writeExpanded(&b, n, "")
			prevComment = n.kind == nodeComment
		}
		return b.String(), nil
	}
}

func writeExpanded(b *strings.Builder, n *cssNode, indent string) {
	switch n.kind {
	case nodeComment:
		writeComment(b, n.value, indent)
	case nodeDecl:
		fmt.Fprintf(b, "%s%s: %s;\n", indent, n.prop, n.value)
	case nodeRule:
		b.WriteString(indent)
		b.WriteString(strings.Join(n.selectors, ",\n"+indent))
		b.WriteString(" {\n")
		writeChildren(b, n, indent)
	case nodeAt:
		b.WriteString(indent + "@" + n.name)
		if n.prelude != "" {
			b.WriteString(" " + n.prelude)
		}
		if !n.block {
			b.WriteString(";\n")
			return
		}
		b.WriteString(" {\n")
		writeChildren(b, n, indent)
	}
}

func writeChildren(b *strings.Builder, n *cssNode, indent string) {
	for _, ch := range n.children {
		if ch.empty(keepAll) {
			continue
		}
		writeExpanded(b, ch, indent+"  ")
	}
	b.WriteString(indent + "}\n")
}

// writeComment re-indents the lines of a multi-line comment.
func writeComment(b *strings.Builder, text, indent string) {
	lines := strings.Split(text, "\n")
	b.WriteString(indent + lines[0] + "\n")
	if len(lines) == 1 {
		return
	}
	minIndent := -1
	for _, l := range lines[1:] {
		if strings.TrimSpace(l) == "" {
			continue
		}
		if n := len(l) - len(strings.TrimLeft(l, " \t")); minIndent < 0 || n < minIndent {
			minIndent = n
		}
	}
	for _, l := range lines[1:] {
		if len(l) >= minIndent && minIndent > 0 {
			l = l[minIndent:]
		}
		b.WriteString(indent + " " + strings.TrimRight(l, " \t") + "\n")
	}
}

func writeCompact(b *strings.Builder, n *cssNode) {
	switch n.kind {
	case nodeComment:
		b.WriteString(n.value)
	case nodeDecl:
		fmt.Fprintf(b, "%s: %s;", n.prop, n.value)
	case nodeRule:
		b.WriteString(strings.Join(n.selectors, ", "))
		b.WriteString(" {")
		compactChildren(b, n)
	case nodeAt:
		b.WriteString("@" + n.name)
		if n.prelude != "" {
			b.WriteString(" " + n.prelude)
		}
		if !n.block {
			b.WriteString(";")
			return
		}
		b.WriteString(" {")
		compactChildren(b, n)
	}
}

func compactChildren(b *strings.Builder, n *cssNode) {
	for _, ch := range n.children {
		if ch.empty(keepAll) {
			continue
		}
		b.WriteByte(' ')
		writeCompact(b, ch)
	}
	b.WriteString(" }")
}

// compressed minifies runs of nodes and keeps /*! comments between them.
func (c *compiler) compressed(nodes []*cssNode) (string, error) {
	m := minify.New()
	// Numbers are already rounded to the configured decimal places.
	m.Add("text/css", &css.Minifier{})

	var out, run strings.Builder
	flush := func() error {
		if run.Len() == 0 {
			return nil
		}
		s, err := m.String("text/css", run.String())
		if err != nil {
			return fmt.Errorf("minifying css: %w", err)
		}
		out.WriteString(s)
		run.Reset()
		return nil
	}
	for _, n := range nodes {
		if n.empty(keepLoud) {
			continue
		}
		if isLoud(n) {
			if err := flush(); err != nil {
				return "", err
			}
			out.WriteString(n.value)
			continue
		}
		writeCompact(&run, stripComments(n))
		run.WriteByte('\n')
	}
	if err := flush(); err != nil {
		return "", err
	}
	if out.Len() > 0 {
		out.WriteByte('\n')
	}
	return out.String(), nil
}

// stripComments returns a copy of n without comment children.
func stripComments(n *cssNode) *cssNode {
	if len(n.children) == 0 {
		return n
	}
	cp := *n
	cp.children = make([]*cssNode, 0, len(n.children))
	for _, ch := range n.children {
		if ch.kind == nodeComment {
			continue
		}
		cp.children = append(cp.children, stripComments(ch))
	}
	return &cp
}
