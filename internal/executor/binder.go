package executor

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/assetgrid/internal/config"
	"github.com/vk/assetgrid/internal/files"
	"github.com/vk/assetgrid/internal/pkgjson"
	"github.com/vk/assetgrid/internal/registry"
	"github.com/vk/assetgrid/internal/workspace"
	"github.com/zclconf/go-cty/cty"
)

// fileAttributes are the target attributes reserved for file tasks.
var fileAttributes = map[string]bool{"src": true, "dest": true, "files": true}

type compactFiles struct {
	Src   cty.Value `grid:"src"`
	Dest  string    `grid:"dest"`
	Files cty.Value `grid:"files"`
}

type filesBlock struct {
	Src     cty.Value `grid:"src,required"`
	Dest    string    `grid:"dest"`
	Cwd     string    `grid:"cwd"`
	Expand  bool      `grid:"expand"`
	Ext     string    `grid:"ext"`
	ExtDot  string    `grid:"ext_dot"`
	Flatten bool      `grid:"flatten"`
}

// Binder evaluates target configuration lazily, once per invocation, so
// expressions such as today() see the time the task runs.
type Binder struct {
	model     *config.Model
	registry  *registry.Registry
	converter config.Converter
	ws        *workspace.Workspace
	pkg       cty.Value
}

// NewBinder creates a Binder over a loaded model.
func NewBinder(model *config.Model, reg *registry.Registry, conv config.Converter, ws *workspace.Workspace, pkg *pkgjson.Package) *Binder {
	return &Binder{
		model:     model,
		registry:  reg,
		converter: conv,
		ws:        ws,
		pkg:       pkg.Value(),
	}
}

func (b *Binder) evalContext(task, target string) *hcl.EvalContext {
	return b.converter.EvalContext(b.pkg, map[string]cty.Value{
		"task":   cty.StringVal(task),
		"target": cty.StringVal(target),
	})
}

func (b *Binder) target(task, target string) *config.Target {
	t, ok := b.model.Tasks[task]
	if !ok || target == "" {
		return nil
	}
	return t.Target(target)
}

// Options implements task.Binder.
func (b *Binder) Options(ctx context.Context, task, target string, into any) error {
	merged := make(map[string]hcl.Expression)
	if t, ok := b.model.Tasks[task]; ok {
		for k, v := range t.Options {
			merged[k] = v
		}
	}
	if tg := b.target(task, target); tg != nil {
		for k, v := range tg.Options {
			merged[k] = v
		}
	}
	if err := b.converter.DecodeAttributes(ctx, into, merged, b.evalContext(task, target)); err != nil {
		return fmt.Errorf("options: %w", err)
	}
	return nil
}

// Data implements task.Binder.
func (b *Binder) Data(ctx context.Context, task, target string, into any) error {
	tg := b.target(task, target)
	if tg == nil {
		return nil
	}

	fileTask := b.isFileTask(task)
	if !fileTask && len(tg.Files) > 0 {
		return fmt.Errorf("%s: files blocks are not supported by task %q", tg.Files[0].DeclRange, task)
	}

	attrs := make(map[string]hcl.Expression, len(tg.Attributes))
	for k, v := range tg.Attributes {
		if fileTask && fileAttributes[k] {
			continue
		}
		attrs[k] = v
	}
	return b.converter.DecodeAttributes(ctx, into, attrs, b.evalContext(task, target))
}

// FileSpec implements task.Binder.
func (b *Binder) FileSpec(ctx context.Context, task, target string) (files.Spec, error) {
	var spec files.Spec
	tg := b.target(task, target)
	if tg == nil {
		return spec, nil
	}
	evalCtx := b.evalContext(task, target)

	attrs := make(map[string]hcl.Expression)
	for k, v := range tg.Attributes {
		if fileAttributes[k] {
			attrs[k] = v
		}
	}
	var compact compactFiles
	if err := b.converter.DecodeAttributes(ctx, &compact, attrs, evalCtx); err != nil {
		return spec, err
	}
	src, err := files.StringList(compact.Src)
	if err != nil {
		return spec, fmt.Errorf("src: %w", err)
	}
	spec.Src = src
	spec.Dest = compact.Dest
	spec.Object = compact.Files

	for _, fb := range tg.Files {
		var blk filesBlock
		if err := b.converter.DecodeAttributes(ctx, &blk, fb.Attributes, evalCtx); err != nil {
			return spec, err
		}
		src, err := files.StringList(blk.Src)
		if err != nil {
			return spec, fmt.Errorf("%s: src: %w", fb.DeclRange, err)
		}
		if blk.ExtDot != "" && blk.ExtDot != "first" && blk.ExtDot != "last" {
			return spec, fmt.Errorf("%s: ext_dot must be \"first\" or \"last\", got %q", fb.DeclRange, blk.ExtDot)
		}
		spec.Blocks = append(spec.Blocks, files.Block{
			Src:     src,
			Dest:    blk.Dest,
			Cwd:     blk.Cwd,
			Expand:  blk.Expand,
			Ext:     blk.Ext,
			ExtDot:  blk.ExtDot,
			Flatten: blk.Flatten,
		})
	}
	return spec, nil
}

// Files implements task.Binder.
func (b *Binder) Files(ctx context.Context, task, target string) ([]files.Mapping, error) {
	spec, err := b.FileSpec(ctx, task, target)
	if err != nil {
		return nil, err
	}
	return files.Resolve(b.ws.FS(), spec)
}

// Template implements task.Binder.
func (b *Binder) Template(_ context.Context, task, target, src string) (string, error) {
	return b.converter.RenderTemplate(src, b.evalContext(task, target))
}

// Targets implements task.Binder.
func (b *Binder) Targets(task string) []string {
	t, ok := b.model.Tasks[task]
	if !ok {
		return nil
	}
	return t.TargetNames()
}

func (b *Binder) isFileTask(task string) bool {
	rt, ok := b.registry.Task(task)
	return ok && rt.FileTask
}
