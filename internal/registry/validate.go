package registry

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/vk/assetgrid/internal/config"
	"github.com/vk/assetgrid/internal/ctxlog"
	"github.com/vk/assetgrid/internal/task"
)

// ValidateModel performs a strict parity check between the loaded
// configuration and the registered Go tasks: every configured task must be
// implemented, every target must bind onto its task's option and data
// structs, and every alias must resolve without cycles.
func (r *Registry) ValidateModel(ctx context.Context, model *config.Model, binder task.Binder) error {
	logger := ctxlog.FromContext(ctx)
	var errs []string

	for _, name := range model.TaskOrder {
		t := model.Tasks[name]
		rt, ok := r.tasks[name]
		if !ok {
			errs = append(errs, fmt.Sprintf("%s: task %q is not a known task (known: %s)", t.DeclRange, name, strings.Join(r.Names(), ", ")))
			continue
		}
		if len(t.Targets) == 0 {
			if err := r.validateOptions(ctx, rt, binder, name, ""); err != nil {
				errs = append(errs, fmt.Sprintf("task %q: %v", name, err))
			}
		}
		for _, tg := range t.Targets {
			if err := r.validateTarget(ctx, rt, binder, name, tg); err != nil {
				errs = append(errs, fmt.Sprintf("target %s:%s: %v", name, tg.Name, err))
			}
		}
		logger.Debug("Validated task configuration.", "task", name, "targets", len(t.Targets))
	}

	aliasNames := make([]string, 0, len(model.Aliases))
	for name := range model.Aliases {
		aliasNames = append(aliasNames, name)
	}
	sort.Strings(aliasNames)

	for _, name := range aliasNames {
		a := model.Aliases[name]
		if _, clash := r.tasks[name]; clash {
			errs = append(errs, fmt.Sprintf("%s: alias %q shadows the task of the same name", a.DeclRange, name))
			continue
		}
		if err := r.checkAlias(model, name, nil); err != nil {
			errs = append(errs, fmt.Sprintf("%s: alias %q: %v", a.DeclRange, name, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

func (r *Registry) validateTarget(ctx context.Context, rt *RegisteredTask, binder task.Binder, taskName string, tg *config.Target) error {
	if err := r.validateOptions(ctx, rt, binder, taskName, tg.Name); err != nil {
		return err
	}
	if rt.NewData != nil {
		if err := binder.Data(ctx, taskName, tg.Name, rt.NewData()); err != nil {
			return err
		}
	} else if err := binder.Data(ctx, taskName, tg.Name, &struct{}{}); err != nil {
		return err
	}
	if rt.FileTask {
		if _, err := binder.FileSpec(ctx, taskName, tg.Name); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) validateOptions(ctx context.Context, rt *RegisteredTask, binder task.Binder, taskName, target string) error {
	into := any(&struct{}{})
	if rt.NewOptions != nil {
		into = rt.NewOptions()
	}
	return binder.Options(ctx, taskName, target, into)
}

// checkAlias walks an alias depth first. stack holds the aliases currently
// being expanded.
func (r *Registry) checkAlias(model *config.Model, name string, stack []string) error {
	for _, s := range stack {
		if s == name {
			return fmt.Errorf("cycle: %s -> %s", strings.Join(stack, " -> "), name)
		}
	}
	stack = append(stack, name)

	for _, ref := range model.Aliases[name].Tasks {
		base, target, hasTarget := strings.Cut(ref, ":")
		if _, isAlias := model.Aliases[base]; isAlias && !hasTarget {
			if err := r.checkAlias(model, base, stack); err != nil {
				return err
			}
			continue
		}
		if err := r.CheckInvocation(model, base, target, hasTarget); err != nil {
			return err
		}
	}
	return nil
}

// CheckInvocation verifies that "base" or "base:target" names a runnable
// task invocation.
func (r *Registry) CheckInvocation(model *config.Model, base, target string, hasTarget bool) error {
	rt, ok := r.tasks[base]
	if !ok {
		return fmt.Errorf("task %q not found", base)
	}
	t := model.Tasks[base]
	if hasTarget {
		if t == nil || t.Target(target) == nil {
			return fmt.Errorf("target %q not found for task %q", target, base)
		}
		return nil
	}
	if rt.MultiTask && (t == nil || len(t.Targets) == 0) {
		return fmt.Errorf("no %q targets found", base)
	}
	return nil
}
