package sass

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"path/filepath"

	"github.com/bep/godartsass/v2"
	"github.com/vk/assetgrid/internal/console"
	"github.com/vk/assetgrid/internal/scss"
	"github.com/vk/assetgrid/internal/workspace"
)

// compiled is the output of one stylesheet compilation.
type compiled struct {
	css string
	// imports lists the stylesheets pulled in by the source, when known.
	imports []string
}

// compiler turns one project-relative SCSS file into CSS.
type compiler interface {
	compile(ctx context.Context, src string) (compiled, error)
	Close() error
}

type builtinCompiler struct {
	ws   *workspace.Workspace
	opts scss.Options
}

func newBuiltin(ws *workspace.Workspace, con *console.Console, opts *Options, style scss.Style) *builtinCompiler {
	return &builtinCompiler{
		ws: ws,
		opts: scss.Options{
			Style:     style,
			LoadPaths: opts.LoadPath,
			Precision: opts.Precision,
			Warn:      func(msg string) { con.Warn("%s", msg) },
		},
	}
}

func (b *builtinCompiler) compile(_ context.Context, src string) (compiled, error) {
	res, err := scss.Compile(b.ws.FS(), src, b.opts)
	if err != nil {
		return compiled{}, err
	}
	return compiled{css: res.CSS, imports: res.Imports}, nil
}

func (b *builtinCompiler) Close() error { return nil }

// dartCompiler delegates to a Dart Sass embedded process. It reads sources
// from disk, so it needs a workspace rooted in a real directory. It does not
// report imports, so update only compares the entry file.
type dartCompiler struct {
	ws        *workspace.Workspace
	t         *godartsass.Transpiler
	style     godartsass.OutputStyle
	loadPaths []string
}

func newDart(ws *workspace.Workspace, con *console.Console, opts *Options, style scss.Style) (*dartCompiler, error) {
	if style == scss.Compact {
		return nil, fmt.Errorf("style %q is not supported by the dart implementation", style)
	}
	t, err := godartsass.Start(godartsass.Options{
		DartSassEmbeddedFilename: opts.DartSassPath,
		LogEventHandler: func(e godartsass.LogEvent) {
			con.Warn("%s", e.Message)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("starting dart sass: %w", err)
	}

	loadPaths := make([]string, len(opts.LoadPath))
	for i, p := range opts.LoadPath {
		loadPaths[i] = ws.Abs(p)
	}
	return &dartCompiler{
		ws:        ws,
		t:         t,
		style:     godartsass.ParseOutputStyle(style.String()),
		loadPaths: loadPaths,
	}, nil
}

func (d *dartCompiler) compile(_ context.Context, src string) (compiled, error) {
	data, err := d.ws.ReadFile(src)
	if err != nil {
		return compiled{}, err
	}
	abs := d.ws.Abs(src)
	fileURL := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}

	res, err := d.t.Execute(godartsass.Args{
		Source:       string(data),
		URL:          fileURL.String(),
		OutputStyle:  d.style,
		SourceSyntax: godartsass.SourceSyntaxSCSS,
		IncludePaths: append([]string{d.ws.Abs(path.Dir(src))}, d.loadPaths...),
	})
	if err != nil {
		return compiled{}, err
	}
	css := res.CSS
	if css != "" {
		css += "\n"
	}
	return compiled{css: css}, nil
}

func (d *dartCompiler) Close() error {
	return d.t.Close()
}
