package app

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dustin/go-humanize/english"
)

// printList writes the registered tasks and the configured aliases. Tasks
// that run once per target are marked with "*".
func (a *App) printList() {
	names := a.registry.Names()
	aliases := make([]string, 0, len(a.model.Aliases))
	for name := range a.model.Aliases {
		aliases = append(aliases, name)
	}
	sort.Strings(aliases)

	width := 0
	for _, n := range append(append([]string(nil), names...), aliases...) {
		width = max(width, len(n))
	}

	a.console.Writeln("Available tasks")
	for _, name := range names {
		rt, _ := a.registry.Task(name)
		desc := rt.Description
		if rt.MultiTask {
			desc += " *"
		}
		a.console.Writeln("%*s  %s", width+2, name, desc)
	}

	if len(aliases) > 0 {
		a.console.Writeln("")
		a.console.Writeln("Aliases")
		for _, name := range aliases {
			al := a.model.Aliases[name]
			a.console.Writeln("%*s  %s", width+2, name, aliasDescription(al.Description, al.Tasks))
		}
	}

	a.console.Writeln("")
	a.console.Writeln(`Tasks run in the order specified. Arguments may be passed to tasks that
accept them by using colons, like "sass:dev". Tasks marked with * run every
target when called without one.`)
}

func aliasDescription(desc string, tasks []string) string {
	if desc != "" {
		return desc
	}
	quoted := make([]string, len(tasks))
	for i, t := range tasks {
		quoted[i] = fmt.Sprintf("%q", t)
	}
	return fmt.Sprintf("Alias for %s %s.", strings.Join(quoted, ", "), english.PluralWord(len(tasks), "task", ""))
}
