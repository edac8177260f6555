// Package console renders the user-facing progress output of a build: task
// headers, per-file results, warnings and the final verdict. Diagnostics for
// developers go to the structured logger instead.
package console

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
)

// Console writes build progress to a single writer. It is safe for
// concurrent use by tasks that process files in parallel.
type Console struct {
	mu  sync.Mutex
	out io.Writer

	header *color.Color
	ok     *color.Color
	warn   *color.Color
	fail   *color.Color
}

// New creates a console writing to out. When noColor is set, escape codes
// are never emitted regardless of the terminal.
func New(out io.Writer, noColor bool) *Console {
	c := &Console{
		out:    out,
		header: color.New(color.Underline),
		ok:     color.New(color.FgGreen),
		warn:   color.New(color.FgYellow),
		fail:   color.New(color.FgRed, color.Bold),
	}
	if noColor {
		for _, col := range []*color.Color{c.header, c.ok, c.warn, c.fail} {
			col.DisableColor()
		}
	}
	return c
}

// Discard returns a console that drops everything.
func Discard() *Console {
	return New(io.Discard, true)
}

// Header announces a task invocation.
func (c *Console) Header(task, target string) {
	name := task
	if target != "" {
		name = task + ":" + target
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out)
	c.header.Fprintf(c.out, "Running %q (%s) task", name, task)
	fmt.Fprintln(c.out)
}

// Writeln prints an informational line.
func (c *Console) Writeln(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format+"\n", args...)
}

// OK prints a success line prefixed with ">>".
func (c *Console) OK(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ok.Fprint(c.out, ">> ")
	fmt.Fprintf(c.out, format+"\n", args...)
}

// Created reports a written file.
func (c *Console) Created(kind, dest string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, "%s ", kind)
	c.ok.Fprint(c.out, dest)
	fmt.Fprintln(c.out, " created.")
}

// Warn prints a non-fatal warning.
func (c *Console) Warn(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.warn.Fprint(c.out, "Warning: ")
	fmt.Fprintf(c.out, format+"\n", args...)
}

// Error prints a failure line.
func (c *Console) Error(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fail.Fprintf(c.out, format, args...)
	fmt.Fprintln(c.out)
}

// Done prints the final verdict of a successful run.
func (c *Console) Done(withWarnings bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out)
	if withWarnings {
		c.warn.Fprintln(c.out, "Done, but with warnings.")
		return
	}
	c.ok.Fprintln(c.out, "Done.")
}

// Aborted prints the final verdict of a run stopped by a failing task.
func (c *Console) Aborted() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.warn.Fprintln(c.out, "Use --force to continue.")
	fmt.Fprintln(c.out)
	c.fail.Fprintln(c.out, "Aborted due to warnings.")
}
