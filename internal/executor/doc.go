// Package executor turns the task names given on the command line into an
// ordered list of invocations and runs them one after another.
//
// Aliases are expanded recursively and multi-tasks called without a target
// fan out into one invocation per configured target. Everything is resolved
// before the first task starts, so an unknown task or target fails the whole
// run up front. A failing invocation aborts the run unless Force is set.
package executor
