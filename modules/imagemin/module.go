package imagemin

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"
	"github.com/vk/assetgrid/internal/ctxlog"
	"github.com/vk/assetgrid/internal/files"
	"github.com/vk/assetgrid/internal/registry"
	"github.com/vk/assetgrid/internal/task"
	"github.com/vk/assetgrid/internal/workspace"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Options defines the options of the imagemin task.
type Options struct {
	OptimizationLevel int `grid:"optimization_level"`
	Quality           int `grid:"quality"`
}

func defaultOptions() *Options {
	return &Options{OptimizationLevel: 3, Quality: 90}
}

func (o *Options) validate() error {
	if o.OptimizationLevel < 0 || o.OptimizationLevel > 7 {
		return fmt.Errorf("optimization_level must be between 0 and 7, got %d", o.OptimizationLevel)
	}
	if o.Quality < 1 || o.Quality > 100 {
		return fmt.Errorf("quality must be between 1 and 100, got %d", o.Quality)
	}
	return nil
}

// Run is the handler for the imagemin task.
func Run(ctx context.Context, tc *task.Context) error {
	logger := ctxlog.FromContext(ctx)

	opts := defaultOptions()
	if err := tc.Options(ctx, opts); err != nil {
		return err
	}
	if err := opts.validate(); err != nil {
		return err
	}
	mappings, err := tc.Files(ctx)
	if err != nil {
		return err
	}

	var jobs []files.Mapping
	for _, m := range mappings {
		switch {
		case m.Dest == "":
			return fmt.Errorf("imagemin needs a destination for %s", strings.Join(m.Patterns, ", "))
		case len(m.Src) == 0:
			tc.Console.Warn("Destination %s not written because src files were empty.", m.Dest)
		case len(m.Src) > 1:
			return fmt.Errorf("destination %s has %d sources; use an expanded files block", m.Dest, len(m.Src))
		default:
			jobs = append(jobs, m)
		}
	}

	var count, before, after atomic.Int64
	err = workspace.ForEach(ctx, tc.Workers, jobs, func(ctx context.Context, m files.Mapping) error {
		src := m.Src[0]
		format, ok := FormatOf(src)
		if !ok {
			return fmt.Errorf("%s: unsupported image type", src)
		}
		data, err := tc.Workspace.ReadFile(src)
		if err != nil {
			return err
		}
		out, err := Optimize(data, format, opts.OptimizationLevel, opts.Quality)
		if err != nil {
			return fmt.Errorf("%s: %w", src, err)
		}
		if err := tc.Workspace.WriteFile(m.Dest, out); err != nil {
			return err
		}

		count.Add(1)
		before.Add(int64(len(data)))
		after.Add(int64(len(out)))
		logger.Debug("Optimized image.", "src", src, "dest", m.Dest, "before", len(data), "after", len(out))
		return nil
	})
	if err != nil {
		return err
	}

	if n := count.Load(); n > 0 {
		saved := before.Load() - after.Load()
		tc.Console.OK("Minified %s (saved %s - %d%%)",
			english.Plural(int(n), "image", ""),
			humanize.Bytes(uint64(saved)),
			saved*100/before.Load())
	}
	return nil
}

// Register registers the imagemin task with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterTask("imagemin", &registry.RegisteredTask{
		Description: "Minify PNG, JPEG and GIF images.",
		MultiTask:   true,
		FileTask:    true,
		NewOptions:  func() any { return defaultOptions() },
		Fn:          Run,
	})
}
