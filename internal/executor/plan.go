package executor

import (
	"fmt"
	"strings"
)

// Invocation is one task run, optionally bound to a target.
type Invocation struct {
	Task   string
	Target string
}

func (i Invocation) String() string {
	if i.Target == "" {
		return i.Task
	}
	return i.Task + ":" + i.Target
}

// Plan expands names into the ordered list of invocations they stand for.
func (e *Executor) Plan(names []string) ([]Invocation, error) {
	var out []Invocation
	for _, name := range names {
		invs, err := e.expand(name, nil)
		if err != nil {
			return nil, err
		}
		out = append(out, invs...)
	}
	return out, nil
}

func (e *Executor) expand(name string, stack []string) ([]Invocation, error) {
	model := e.opts.Model
	base, target, hasTarget := strings.Cut(name, ":")
	if base == "" {
		return nil, fmt.Errorf("invalid task name %q", name)
	}

	if alias, ok := model.Aliases[base]; ok && !hasTarget {
		for _, s := range stack {
			if s == base {
				return nil, fmt.Errorf("alias cycle: %s -> %s", strings.Join(stack, " -> "), base)
			}
		}
		stack = append(stack, base)

		var out []Invocation
		for _, ref := range alias.Tasks {
			invs, err := e.expand(ref, stack)
			if err != nil {
				return nil, err
			}
			out = append(out, invs...)
		}
		return out, nil
	}

	if err := e.opts.Registry.CheckInvocation(model, base, target, hasTarget); err != nil {
		return nil, err
	}
	if hasTarget {
		return []Invocation{{Task: base, Target: target}}, nil
	}

	rt, _ := e.opts.Registry.Task(base)
	if !rt.MultiTask {
		return []Invocation{{Task: base}}, nil
	}

	t := model.Tasks[base]
	out := make([]Invocation, 0, len(t.Targets))
	for _, tg := range t.Targets {
		out = append(out, Invocation{Task: base, Target: tg.Name})
	}
	return out, nil
}
