package config

import (
	"github.com/hashicorp/hcl/v2"
)

// Model is the unified, format-agnostic representation of a project's build
// configuration: its tasks, their targets and the aliases chaining them.
type Model struct {
	// PackagePath is the project-relative path of the package manifest
	// exposed to expressions as `pkg`. Empty means none.
	PackagePath string
	Tasks       map[string]*Task
	Aliases     map[string]*Alias
	// TaskOrder preserves declaration order for listings.
	TaskOrder []string
}

// NewModel returns an empty model ready to be populated by a loader.
func NewModel() *Model {
	return &Model{
		Tasks:   make(map[string]*Task),
		Aliases: make(map[string]*Alias),
	}
}

// Task is the format-agnostic representation of a `task` block.
type Task struct {
	Name      string
	Options   map[string]hcl.Expression
	Targets   []*Target
	DeclRange hcl.Range
}

// Target returns the named target, or nil.
func (t *Task) Target(name string) *Target {
	for _, tg := range t.Targets {
		if tg.Name == name {
			return tg
		}
	}
	return nil
}

// TargetNames lists the task's targets in declaration order.
func (t *Task) TargetNames() []string {
	names := make([]string, 0, len(t.Targets))
	for _, tg := range t.Targets {
		names = append(names, tg.Name)
	}
	return names
}

// Target is a named configuration of a task.
type Target struct {
	Task       string
	Name       string
	Options    map[string]hcl.Expression
	Attributes map[string]hcl.Expression
	Files      []*FilesBlock
	DeclRange  hcl.Range
}

// FilesBlock is one `files { ... }` block of a target.
type FilesBlock struct {
	Attributes map[string]hcl.Expression
	DeclRange  hcl.Range
}

// Alias is a named list of task invocations.
type Alias struct {
	Name        string
	Description string
	Tasks       []string
	DeclRange   hcl.Range
}
