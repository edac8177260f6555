// This file contains the logic for translating the HCL schema structs into
// the format-agnostic configuration model defined in the config package.

package hcl

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/vk/assetgrid/internal/config"
	"github.com/vk/assetgrid/internal/ctxlog"
)

// translateTask converts a task block and its targets into the agnostic model.
func (l *Loader) translateTask(ctx context.Context, b *taskBlock) (*config.Task, error) {
	logger := ctxlog.FromContext(ctx)

	opts, err := l.extractOptions(b.Options)
	if err != nil {
		return nil, fmt.Errorf("task %q options: %w", b.Name, err)
	}

	t := &config.Task{
		Name:      b.Name,
		Options:   opts,
		DeclRange: b.DeclRange,
	}

	seen := make(map[string]hcl.Range)
	for _, tb := range b.Targets {
		if prev, dup := seen[tb.Name]; dup {
			return nil, fmt.Errorf("%s: duplicate target %q in task %q, first declared at %s", tb.DeclRange, tb.Name, b.Name, prev)
		}
		seen[tb.Name] = tb.DeclRange

		target, err := l.translateTarget(b.Name, tb)
		if err != nil {
			return nil, err
		}
		t.Targets = append(t.Targets, target)
	}

	logger.Debug("Translated task block.", "task", b.Name, "targets", len(t.Targets))
	return t, nil
}

// mergeTask folds a later declaration of the same task into the first one.
// Targets are appended; a target or task-level option may only be set once.
func mergeTask(into, from *config.Task) error {
	for name, expr := range from.Options {
		if prev, dup := into.Options[name]; dup {
			return fmt.Errorf("%s: option %q of task %q already set at %s", expr.Range(), name, from.Name, prev.Range())
		}
		into.Options[name] = expr
	}
	for _, tg := range from.Targets {
		if prev := into.Target(tg.Name); prev != nil {
			return fmt.Errorf("%s: duplicate target %q in task %q, first declared at %s", tg.DeclRange, tg.Name, from.Name, prev.DeclRange)
		}
		into.Targets = append(into.Targets, tg)
	}
	return nil
}

func (l *Loader) translateTarget(taskName string, b *targetBlock) (*config.Target, error) {
	body, ok := b.Body.(*hclsyntax.Body)
	if !ok {
		return nil, fmt.Errorf("%s: target %s:%s must use native HCL syntax", b.DeclRange, taskName, b.Name)
	}

	target := &config.Target{
		Task:       taskName,
		Name:       b.Name,
		Options:    map[string]hcl.Expression{},
		Attributes: make(map[string]hcl.Expression, len(body.Attributes)),
		DeclRange:  b.DeclRange,
	}
	for name, attr := range body.Attributes {
		target.Attributes[name] = attr.Expr
	}

	var diags hcl.Diagnostics
	sawOptions := false
	for _, blk := range body.Blocks {
		if len(blk.Labels) > 0 {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  fmt.Sprintf("Extraneous label for %s", blk.Type),
				Detail:   "No labels are expected for blocks inside a target.",
				Subject:  blk.LabelRanges[0].Ptr(),
			})
			continue
		}
		switch blk.Type {
		case "options":
			if sawOptions {
				diags = append(diags, &hcl.Diagnostic{
					Severity: hcl.DiagError,
					Summary:  "Duplicate options block",
					Detail:   fmt.Sprintf("Target %s:%s already has an options block.", taskName, b.Name),
					Subject:  blk.TypeRange.Ptr(),
				})
				continue
			}
			sawOptions = true
			opts, err := l.extractBodyAttributes(blk.Body)
			if err != nil {
				return nil, fmt.Errorf("target %s:%s options: %w", taskName, b.Name, err)
			}
			target.Options = opts
		case "files":
			fattrs, err := l.extractBodyAttributes(blk.Body)
			if err != nil {
				return nil, fmt.Errorf("target %s:%s files block: %w", taskName, b.Name, err)
			}
			target.Files = append(target.Files, &config.FilesBlock{
				Attributes: fattrs,
				DeclRange:  blk.DefRange(),
			})
		default:
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  fmt.Sprintf("Unsupported block type %q", blk.Type),
				Detail:   "Only options and files blocks are allowed inside a target.",
				Subject:  blk.TypeRange.Ptr(),
			})
		}
	}
	if diags.HasErrors() {
		return nil, diags
	}
	return target, nil
}

// translateAlias converts an alias block into the agnostic model.
func (l *Loader) translateAlias(b *aliasBlock) *config.Alias {
	return &config.Alias{
		Name:        b.Name,
		Description: b.Description,
		Tasks:       b.Tasks,
		DeclRange:   b.DeclRange,
	}
}

func (l *Loader) extractOptions(block *optionsBlock) (map[string]hcl.Expression, error) {
	if block == nil {
		return map[string]hcl.Expression{}, nil
	}
	return l.extractBodyAttributes(block.Body)
}

// extractBodyAttributes collects the unevaluated attribute expressions of a
// body. Nested blocks are rejected.
func (l *Loader) extractBodyAttributes(body hcl.Body) (map[string]hcl.Expression, error) {
	exprMap := make(map[string]hcl.Expression)
	if body == nil {
		return exprMap, nil
	}
	attrs, diags := body.JustAttributes()
	if diags.HasErrors() {
		return nil, diags
	}
	for name, attr := range attrs {
		exprMap[name] = attr.Expr
	}
	return exprMap, nil
}
