package sassdoc

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/dustin/go-humanize/english"
	"github.com/vk/assetgrid/internal/ctxlog"
	"github.com/vk/assetgrid/internal/files"
	"github.com/vk/assetgrid/internal/pkgjson"
	"github.com/vk/assetgrid/internal/registry"
	"github.com/vk/assetgrid/internal/sassdoc"
	"github.com/vk/assetgrid/internal/task"
	"github.com/vk/assetgrid/internal/workspace"
	"github.com/zclconf/go-cty/cty"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Data holds the target attributes of the sassdoc task.
type Data struct {
	// Src is a directory or glob, or a list of them.
	Src  cty.Value `grid:"src,required"`
	Dest string    `grid:"dest"`
}

// Options defines the options of the sassdoc task.
type Options struct {
	Package string            `grid:"package"`
	Exclude []string          `grid:"exclude"`
	Groups  map[string]string `grid:"groups"`
	Private bool              `grid:"private"`
	Verbose bool              `grid:"verbose"`
}

func defaultData() *Data {
	return &Data{Src: cty.NullVal(cty.DynamicPseudoType), Dest: "sassdoc"}
}

// Run is the handler for the sassdoc task.
func Run(ctx context.Context, tc *task.Context) error {
	logger := ctxlog.FromContext(ctx)

	data := defaultData()
	if err := tc.Data(ctx, data); err != nil {
		return err
	}
	opts := &Options{}
	if err := tc.Options(ctx, opts); err != nil {
		return err
	}
	roots, err := files.StringList(data.Src)
	if err != nil {
		return fmt.Errorf("src: %w", err)
	}
	if len(roots) == 0 {
		return fmt.Errorf("sassdoc needs a src")
	}

	sources, err := Sources(tc.Workspace, roots, opts.Exclude)
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		tc.Console.Warn("No SCSS files found in %s.", strings.Join(roots, ", "))
		return nil
	}

	var items []*sassdoc.Item
	for _, name := range sources {
		src, err := tc.Workspace.ReadFile(name)
		if err != nil {
			return err
		}
		found, warnings := sassdoc.Parse(name, string(src))
		for _, w := range warnings {
			tc.Console.Warn("%s", w)
		}
		if opts.Verbose {
			tc.Console.Writeln("Parsed %s (%s).", name, english.Plural(len(found), "item", ""))
		}
		items = append(items, found...)
	}

	project, err := loadProject(tc, opts.Package)
	if err != nil {
		return err
	}
	doc := sassdoc.Build(project, items, sassdoc.Options{Groups: opts.Groups, Private: opts.Private})

	var page bytes.Buffer
	if err := sassdoc.RenderHTML(&page, doc); err != nil {
		return fmt.Errorf("rendering documentation: %w", err)
	}
	if err := tc.Workspace.WriteFile(path.Join(data.Dest, "index.html"), page.Bytes()); err != nil {
		return err
	}
	if err := tc.Workspace.WriteFile(path.Join(data.Dest, "sassdoc.json"), sassdoc.RenderJSON(doc)); err != nil {
		return err
	}

	logger.Debug("Documentation generated.", "dest", data.Dest, "files", len(sources), "items", len(doc.Items))
	tc.Console.OK("SassDoc generated in %s (%s documented).", workspace.Clean(data.Dest), english.Plural(len(doc.Items), "item", ""))
	return nil
}

// Sources expands directories and globs into the SCSS files to document,
// minus those matching exclude.
func Sources(ws *workspace.Workspace, roots, exclude []string) ([]string, error) {
	patterns := make([]string, len(roots))
	for i, r := range roots {
		if ws.IsDir(r) {
			patterns[i] = path.Join(workspace.Clean(r), "**/*.scss")
			continue
		}
		patterns[i] = r
	}
	all, err := files.Expand(ws.FS(), patterns)
	if err != nil {
		return nil, err
	}
	if len(exclude) == 0 {
		return all, nil
	}
	kept := all[:0]
	for _, name := range all {
		if !files.Match(exclude, name) {
			kept = append(kept, name)
		}
	}
	return kept, nil
}

// loadProject describes the documented package, from the package option
// when set and from the Gridfile's package otherwise.
func loadProject(tc *task.Context, manifest string) (sassdoc.Project, error) {
	pkg := tc.Package
	if manifest != "" {
		raw, err := tc.Workspace.ReadFile(manifest)
		if err != nil {
			return sassdoc.Project{}, fmt.Errorf("package: %w", err)
		}
		pkg, err = pkgjson.Parse(raw)
		if err != nil {
			return sassdoc.Project{}, fmt.Errorf("package %s: %w", manifest, err)
		}
	}
	return sassdoc.Project{
		Name:        pkg.Name(),
		Version:     pkg.Version(),
		Description: pkg.Description(),
		Homepage:    pkg.Homepage(),
	}, nil
}

// Register registers the sassdoc task with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterTask("sassdoc", &registry.RegisteredTask{
		Description: "Generate documentation for Sass files.",
		MultiTask:   true,
		NewOptions:  func() any { return &Options{} },
		NewData:     func() any { return defaultData() },
		Fn:          Run,
	})
}
