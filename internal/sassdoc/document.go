package sassdoc

import (
	"sort"
	"strings"
)

// UndefinedGroup collects items without a @group annotation.
const UndefinedGroup = "undefined"

// Project describes the documented package in the page header.
type Project struct {
	Name        string
	Version     string
	Description string
	Homepage    string
}

// Options controls which items are documented and how groups are named.
type Options struct {
	// Groups maps group slugs to display names.
	Groups map[string]string
	// Private includes items with private access.
	Private bool
}

// Document is the set of items to render, arranged by group and kind.
type Document struct {
	Project Project
	Groups  []*Group
	Items   []*Item

	byName map[string]*Item
}

// Group is one documentation group.
type Group struct {
	Slug     string
	Name     string
	Sections []Section
}

// Section holds the items of one kind within a group.
type Section struct {
	Kind  Kind
	Items []*Item
}

// Build filters and arranges items. Items appear in source order within
// their section.
func Build(project Project, items []*Item, opts Options) *Document {
	doc := &Document{Project: project, byName: make(map[string]*Item)}
	groups := make(map[string]*Group)
	for _, it := range items {
		if it.Private() && !opts.Private {
			continue
		}
		doc.Items = append(doc.Items, it)
		if _, dup := doc.byName[it.Name]; !dup {
			doc.byName[it.Name] = it
		}
		for _, slug := range it.Groups {
			g, ok := groups[slug]
			if !ok {
				g = &Group{Slug: slug, Name: groupName(slug, opts.Groups)}
				groups[slug] = g
			}
			g.add(it)
		}
	}

	for _, g := range groups {
		doc.Groups = append(doc.Groups, g)
	}
	sort.Slice(doc.Groups, func(i, j int) bool {
		a, b := doc.Groups[i], doc.Groups[j]
		if (a.Slug == UndefinedGroup) != (b.Slug == UndefinedGroup) {
			return b.Slug == UndefinedGroup
		}
		return strings.ToLower(a.Name) < strings.ToLower(b.Name)
	})
	return doc
}

func groupName(slug string, names map[string]string) string {
	if name, ok := names[slug]; ok && name != "" {
		return name
	}
	if slug == UndefinedGroup {
		return "General"
	}
	return slug
}

func (g *Group) add(it *Item) {
	for i := range g.Sections {
		if g.Sections[i].Kind == it.Kind {
			g.Sections[i].Items = append(g.Sections[i].Items, it)
			return
		}
	}
	g.Sections = append(g.Sections, Section{Kind: it.Kind, Items: []*Item{it}})
	sort.SliceStable(g.Sections, func(i, j int) bool {
		return kindIndex(g.Sections[i].Kind) < kindIndex(g.Sections[j].Kind)
	})
}

func kindIndex(k Kind) int {
	for i, known := range Kinds {
		if known == k {
			return i
		}
	}
	return len(Kinds)
}

// Lookup finds a documented item by name.
func (d *Document) Lookup(name string) (*Item, bool) {
	it, ok := d.byName[strings.TrimPrefix(name, "$")]
	return it, ok
}
