package sassdoc

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"io"

	"github.com/ohler55/ojg"
	"github.com/ohler55/ojg/oj"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

//go:embed index.html.tmpl
var indexTemplate string

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// Markdown renders a description. Raw HTML in the source is escaped by
// goldmark's default renderer.
func Markdown(src string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return template.HTML(buf.String()), nil
}

// RenderHTML writes the documentation page.
func RenderHTML(w io.Writer, doc *Document) error {
	funcs := template.FuncMap{
		"markdown": Markdown,
		"lookup": func(name string) *Item {
			it, _ := doc.Lookup(name)
			return it
		},
	}
	tmpl, err := template.New("index").Funcs(funcs).Parse(indexTemplate)
	if err != nil {
		return fmt.Errorf("parsing page template: %w", err)
	}
	if err := tmpl.Execute(w, doc); err != nil {
		return fmt.Errorf("rendering page: %w", err)
	}
	return nil
}

// RenderJSON returns the items as an indented JSON array.
func RenderJSON(doc *Document) []byte {
	data := make([]any, 0, len(doc.Items))
	for _, it := range doc.Items {
		data = append(data, it.data())
	}
	return []byte(oj.JSON(data, &ojg.Options{Indent: 2, Sort: true}) + "\n")
}

func (it *Item) data() map[string]any {
	m := map[string]any{
		"description": it.Description,
		"context": map[string]any{
			"type": string(it.Kind),
			"name": it.Name,
			"code": it.Code,
			"line": map[string]any{"start": it.Line},
		},
		"file":   map[string]any{"path": it.File},
		"group":  toAny(it.Groups),
		"access": it.Access,
	}
	if it.Value != "" {
		m["context"].(map[string]any)["value"] = it.Value
	}
	if len(it.Params) > 0 {
		m["parameter"] = params(it.Params)
	}
	if len(it.Props) > 0 {
		m["property"] = params(it.Props)
	}
	if it.Return != nil {
		m["return"] = map[string]any{"type": it.Return.Type, "description": it.Return.Description}
	}
	if len(it.Examples) > 0 {
		var exs []any
		for _, ex := range it.Examples {
			exs = append(exs, map[string]any{"type": ex.Type, "description": ex.Description, "code": ex.Code})
		}
		m["example"] = exs
	}
	if len(it.Since) > 0 {
		var out []any
		for _, s := range it.Since {
			out = append(out, map[string]any{"version": s.Version, "description": s.Description})
		}
		m["since"] = out
	}
	if len(it.Links) > 0 {
		var out []any
		for _, l := range it.Links {
			out = append(out, map[string]any{"url": l.URL, "caption": l.Caption})
		}
		m["link"] = out
	}
	if it.Deprecated {
		m["deprecated"] = it.DeprecatedNote
	}
	optional := map[string]string{"type": it.Type, "content": it.Content, "output": it.Output}
	for k, v := range optional {
		if v != "" {
			m[k] = v
		}
	}
	lists := map[string][]string{
		"see":     it.See,
		"author":  it.Authors,
		"todo":    it.Todos,
		"require": it.Requires,
		"throw":   it.Throws,
		"alias":   it.Aliases,
	}
	for k, v := range lists {
		if len(v) > 0 {
			m[k] = toAny(v)
		}
	}
	return m
}

func params(ps []Param) []any {
	out := make([]any, 0, len(ps))
	for _, p := range ps {
		pm := map[string]any{"name": p.Name, "type": p.Type, "description": p.Description}
		if p.Default != "" {
			pm["default"] = p.Default
		}
		out = append(out, pm)
	}
	return out
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
