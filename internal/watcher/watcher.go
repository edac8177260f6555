// Package watcher turns raw filesystem notifications into debounced batches
// of project-relative changes matching a set of glob patterns.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/vk/assetgrid/internal/ctxlog"
	"github.com/vk/assetgrid/internal/files"
)

// Op is the kind of change seen for a path.
type Op int

const (
	Changed Op = iota
	Added
	Deleted
)

func (o Op) String() string {
	switch o {
	case Added:
		return "added"
	case Deleted:
		return "deleted"
	default:
		return "changed"
	}
}

// ParseOp maps an event filter name to an Op.
func ParseOp(s string) (Op, error) {
	switch s {
	case "changed":
		return Changed, nil
	case "added":
		return Added, nil
	case "deleted":
		return Deleted, nil
	}
	return 0, fmt.Errorf("unknown watch event %q (want changed, added or deleted)", s)
}

// Event is one path that changed during a debounce window.
type Event struct {
	Path string
	Op   Op
}

// Watcher watches the directories under the static prefix of every pattern.
type Watcher struct {
	fsw      *fsnotify.Watcher
	root     string
	patterns []string
	bases    []string
	delay    time.Duration
}

// New starts watching root for changes to files matching patterns. Patterns
// are project-relative; "!" patterns exclude.
func New(root string, patterns []string, delay time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}
	w := &Watcher{
		fsw:      fsw,
		root:     root,
		patterns: patterns,
		delay:    delay,
	}

	seen := make(map[string]bool)
	for _, p := range patterns {
		if strings.HasPrefix(p, "!") {
			continue
		}
		base := files.Base(p)
		if seen[base] {
			continue
		}
		seen[base] = true
		w.bases = append(w.bases, base)
		if err := w.addBase(base); err != nil {
			fsw.Close()
			return nil, err
		}
	}
	return w, nil
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// WatchList returns the OS directories currently watched, sorted.
func (w *Watcher) WatchList() []string {
	list := w.fsw.WatchList()
	sort.Strings(list)
	return list
}

// addBase watches base recursively. A base that does not exist yet is
// covered by watching its nearest existing ancestor.
func (w *Watcher) addBase(base string) error {
	dir := filepath.Join(w.root, filepath.FromSlash(base))
	for {
		info, err := os.Stat(dir)
		if err == nil && info.IsDir() {
			break
		}
		if dir == w.root {
			return fmt.Errorf("watch root %s is not a directory", w.root)
		}
		dir = filepath.Dir(dir)
	}
	return w.addRecursive(dir)
}

func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(p); err != nil {
			return fmt.Errorf("watching %s: %w", p, err)
		}
		return nil
	})
}

// Run delivers batches of matching events to out until ctx is done. Events
// for one path within a debounce window collapse into one.
func (w *Watcher) Run(ctx context.Context, out chan<- []Event) error {
	logger := ctxlog.FromContext(ctx)

	pending := make(map[string]Op)
	timer := time.NewTimer(w.delay)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("File watcher error.", "error", err)

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			for _, e := range w.translate(ctx, ev) {
				if prev, seen := pending[e.Path]; seen && prev == Added && e.Op == Changed {
					continue
				}
				pending[e.Path] = e.Op
			}
			if len(pending) > 0 {
				timer.Reset(w.delay)
			}

		case <-timer.C:
			batch := make([]Event, 0, len(pending))
			for p, op := range pending {
				batch = append(batch, Event{Path: p, Op: op})
			}
			pending = make(map[string]Op)
			sort.Slice(batch, func(i, j int) bool { return batch[i].Path < batch[j].Path })
			logger.Debug("File changes debounced.", "count", len(batch))

			select {
			case out <- batch:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

// translate converts one notification into matching project events. New
// directories are watched and their files reported as added.
func (w *Watcher) translate(ctx context.Context, ev fsnotify.Event) []Event {
	logger := ctxlog.FromContext(ctx)

	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.addRecursive(ev.Name); err != nil {
				logger.Warn("Failed to watch new directory.", "dir", ev.Name, "error", err)
			}
			var out []Event
			_ = filepath.WalkDir(ev.Name, func(p string, d fs.DirEntry, err error) error {
				if err == nil && !d.IsDir() {
					if e, ok := w.event(p, Added); ok {
						out = append(out, e)
					}
				}
				return nil
			})
			return out
		}
	}

	var op Op
	switch {
	case ev.Has(fsnotify.Create):
		op = Added
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		op = Deleted
	case ev.Has(fsnotify.Write):
		op = Changed
	default:
		return nil
	}
	if e, ok := w.event(ev.Name, op); ok {
		return []Event{e}
	}
	return nil
}

func (w *Watcher) event(osPath string, op Op) (Event, bool) {
	rel, err := filepath.Rel(w.root, osPath)
	if err != nil {
		return Event{}, false
	}
	rel = filepath.ToSlash(rel)
	if strings.HasPrefix(rel, "../") || !files.Match(w.patterns, rel) {
		return Event{}, false
	}
	return Event{Path: rel, Op: op}, true
}

// Paths lists the paths of a batch.
func Paths(batch []Event) []string {
	out := make([]string, len(batch))
	for i, e := range batch {
		out[i] = e.Path
	}
	return out
}
