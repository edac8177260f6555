package concat

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/vk/assetgrid/internal/ctxlog"
	"github.com/vk/assetgrid/internal/registry"
	"github.com/vk/assetgrid/internal/task"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Options defines the options of the concat task.
type Options struct {
	Separator    string `grid:"separator"`
	Banner       string `grid:"banner"`
	Footer       string `grid:"footer"`
	StripBanners bool   `grid:"strip_banners"`
	Process      bool   `grid:"process"`
}

func defaultOptions() *Options {
	return &Options{Separator: "\n"}
}

// leadingBanner matches a block comment at the very start of a file, unless
// it is a preserved "/*!" comment.
var leadingBanner = regexp.MustCompile(`^\s*/\*[^!][\s\S]*?\*/\s*`)

// StripBanner removes the leading block comment of src.
func StripBanner(src string) string {
	return leadingBanner.ReplaceAllString(src, "")
}

// Run is the handler for the concat task.
func Run(ctx context.Context, tc *task.Context) error {
	logger := ctxlog.FromContext(ctx)

	opts := defaultOptions()
	if err := tc.Options(ctx, opts); err != nil {
		return err
	}
	mappings, err := tc.Files(ctx)
	if err != nil {
		return err
	}

	for _, m := range mappings {
		if m.Dest == "" {
			return fmt.Errorf("concat needs a destination for %s", strings.Join(m.Patterns, ", "))
		}
		if len(m.Src) == 0 {
			tc.Console.Warn("Destination %s not written because src files were empty.", m.Dest)
			continue
		}

		parts := make([]string, 0, len(m.Src))
		for _, src := range m.Src {
			data, err := tc.Workspace.ReadFile(src)
			if err != nil {
				return err
			}
			content := string(data)
			if opts.StripBanners {
				content = StripBanner(content)
			}
			if opts.Process {
				content, err = tc.Template(ctx, content)
				if err != nil {
					return fmt.Errorf("processing %s: %w", src, err)
				}
			}
			parts = append(parts, content)
		}

		out := opts.Banner + strings.Join(parts, opts.Separator) + opts.Footer
		if err := tc.Workspace.WriteFile(m.Dest, []byte(out)); err != nil {
			return err
		}
		logger.Debug("Concatenated files.", "dest", m.Dest, "sources", len(m.Src))
		tc.Console.Created("File", m.Dest)
	}
	return nil
}

// Register registers the concat task with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterTask("concat", &registry.RegisteredTask{
		Description: "Concatenate files.",
		MultiTask:   true,
		FileTask:    true,
		NewOptions:  func() any { return defaultOptions() },
		Fn:          Run,
	})
}
