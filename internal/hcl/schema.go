package hcl

import (
	"github.com/hashicorp/hcl/v2"
)

// fileRoot is used to decode all possible top-level blocks from any file.
type fileRoot struct {
	Package *string       `hcl:"package,optional"`
	Tasks   []*taskBlock  `hcl:"task,block"`
	Aliases []*aliasBlock `hcl:"alias,block"`
}

// taskBlock represents a `task` block: task-wide options plus its targets.
type taskBlock struct {
	Name      string         `hcl:"name,label"`
	Options   *optionsBlock  `hcl:"options,block"`
	Targets   []*targetBlock `hcl:"target,block"`
	DeclRange hcl.Range      `hcl:",def_range"`
}

// optionsBlock holds free-form option attributes, bound later by the task.
type optionsBlock struct {
	Body hcl.Body `hcl:",remain"`
}

// targetBlock represents a `target` block within a task. Its body mixes
// free-form attributes with `options` and `files` blocks, so it is split by
// hand rather than decoded.
type targetBlock struct {
	Name      string    `hcl:"name,label"`
	Body      hcl.Body  `hcl:",remain"`
	DeclRange hcl.Range `hcl:",def_range"`
}

// aliasBlock represents an `alias` block chaining task invocations.
type aliasBlock struct {
	Name        string    `hcl:"name,label"`
	Description string    `hcl:"description,optional"`
	Tasks       []string  `hcl:"tasks"`
	DeclRange   hcl.Range `hcl:",def_range"`
}
