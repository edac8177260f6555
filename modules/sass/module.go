package sass

import (
	"context"
	"fmt"
	"strings"

	"github.com/vk/assetgrid/internal/ctxlog"
	"github.com/vk/assetgrid/internal/registry"
	"github.com/vk/assetgrid/internal/scss"
	"github.com/vk/assetgrid/internal/task"
	"github.com/vk/assetgrid/internal/workspace"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Options defines the options of the sass task.
type Options struct {
	Style     string   `grid:"style"`
	LoadPath  []string `grid:"load_path"`
	Precision int      `grid:"precision"`
	// Update writes only when the source or one of its imports is newer
	// than the destination.
	Update bool `grid:"update"`
	// Check compiles without writing.
	Check          bool   `grid:"check"`
	Banner         string `grid:"banner"`
	Implementation string `grid:"implementation"`
	DartSassPath   string `grid:"dart_sass_path"`
}

func defaultOptions() *Options {
	return &Options{
		Style:          "expanded",
		Precision:      scss.DefaultPrecision,
		Implementation: "builtin",
	}
}

type job struct {
	src  string
	dest string
}

// Run is the handler for the sass task.
func Run(ctx context.Context, tc *task.Context) error {
	logger := ctxlog.FromContext(ctx)

	opts := defaultOptions()
	if err := tc.Options(ctx, opts); err != nil {
		return err
	}
	style, err := scss.ParseStyle(opts.Style)
	if err != nil {
		return err
	}
	if opts.Precision < 1 {
		return fmt.Errorf("precision must be positive, got %d", opts.Precision)
	}

	jobs, err := collectJobs(ctx, tc)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		return nil
	}

	var comp compiler
	switch opts.Implementation {
	case "builtin":
		comp = newBuiltin(tc.Workspace, tc.Console, opts, style)
	case "dart":
		comp, err = newDart(tc.Workspace, tc.Console, opts, style)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("implementation must be \"builtin\" or \"dart\", got %q", opts.Implementation)
	}
	defer comp.Close()
	logger.Debug("Compiling stylesheets.", "count", len(jobs), "style", style, "implementation", opts.Implementation)

	return workspace.ForEach(ctx, tc.Workers, jobs, func(ctx context.Context, j job) error {
		out, err := comp.compile(ctx, j.src)
		if err != nil {
			return err
		}
		if opts.Check {
			tc.Console.OK("%s is valid.", j.src)
			return nil
		}
		if opts.Update {
			stale, err := outdated(tc.Workspace, j.dest, append([]string{j.src}, out.imports...))
			if err != nil {
				return err
			}
			if !stale {
				logger.Debug("Destination up to date.", "src", j.src, "dest", j.dest)
				return nil
			}
		}
		if err := tc.Workspace.WriteFile(j.dest, []byte(opts.Banner+out.css)); err != nil {
			return err
		}
		tc.Console.Created("File", j.dest)
		return nil
	})
}

// collectJobs pairs every non-partial source with its destination.
func collectJobs(ctx context.Context, tc *task.Context) ([]job, error) {
	logger := ctxlog.FromContext(ctx)

	mappings, err := tc.Files(ctx)
	if err != nil {
		return nil, err
	}

	var jobs []job
	for _, m := range mappings {
		if m.Dest == "" {
			return nil, fmt.Errorf("sass needs a destination for %s", strings.Join(m.Patterns, ", "))
		}
		if len(m.Src) == 0 {
			tc.Console.Warn("Destination %s not written because src files were empty.", m.Dest)
			continue
		}
		var srcs []string
		for _, s := range m.Src {
			if scss.IsPartial(s) {
				logger.Debug("Skipping partial.", "src", s)
				continue
			}
			srcs = append(srcs, s)
		}
		switch len(srcs) {
		case 0:
			continue
		case 1:
			jobs = append(jobs, job{src: srcs[0], dest: m.Dest})
		default:
			return nil, fmt.Errorf("destination %s has %d sources; use \"*\" in the destination to compile each one", m.Dest, len(srcs))
		}
	}
	return jobs, nil
}

// outdated reports whether any of srcs is newer than dest.
func outdated(ws *workspace.Workspace, dest string, srcs []string) (bool, error) {
	for _, s := range srcs {
		newer, err := ws.Newer(s, dest)
		if err != nil {
			return false, err
		}
		if newer {
			return true, nil
		}
	}
	return false, nil
}

// Register registers the sass task with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterTask("sass", &registry.RegisteredTask{
		Description: "Compile Sass to CSS.",
		MultiTask:   true,
		FileTask:    true,
		NewOptions:  func() any { return defaultOptions() },
		Fn:          Run,
	})
}
