package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/vk/assetgrid/internal/task"
)

// Module is the interface that all task modules must implement to be registered.
type Module interface {
	Register(r *Registry)
}

// HandlerFunc runs one task invocation.
type HandlerFunc func(ctx context.Context, tc *task.Context) error

// RegisteredTask holds the compiled Go parts of a task.
type RegisteredTask struct {
	Description string
	// MultiTask tasks are invoked once per configured target when called
	// without one. Other tasks are invoked once with whatever target was
	// requested, possibly none.
	MultiTask bool
	// FileTask marks tasks whose src, dest and files attributes (and files
	// blocks) describe file mappings rather than task data.
	FileTask bool
	// NewOptions returns a pointer to an options struct holding defaults.
	NewOptions func() any
	// NewData returns a pointer to a struct for the target's own attributes.
	NewData func() any
	Fn      HandlerFunc
}

// Registry holds all the registered tasks for a single application instance.
type Registry struct {
	tasks map[string]*RegisteredTask
}

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{tasks: make(map[string]*RegisteredTask)}
}

// RegisterTask registers a task implementation under name.
func (r *Registry) RegisterTask(name string, t *RegisteredTask) {
	if _, exists := r.tasks[name]; exists {
		panic(fmt.Sprintf("task with name '%s' already registered", name))
	}
	if t == nil || t.Fn == nil {
		panic(fmt.Sprintf("task '%s' has no handler function", name))
	}
	slog.Debug("Registering task.", "name", name)
	r.tasks[name] = t
}

// Task looks up a registered task.
func (r *Registry) Task(name string) (*RegisteredTask, bool) {
	t, ok := r.tasks[name]
	return t, ok
}

// Names lists every registered task, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tasks))
	for name := range r.tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
