// Package registry provides the central "glue" for the task system.
//
// The Registry stores the mapping between the task names used in Gridfiles
// (e.g. "sass") and the compiled Go implementations of those tasks. During
// application startup the registry is populated by every module and then
// validated against the loaded configuration, so that typos in task names,
// target references, aliases and option names are reported before any task
// runs.
package registry
