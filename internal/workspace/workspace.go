// Package workspace is the file access layer shared by every task. All
// project-relative reads and writes go through a billy.Filesystem rooted at
// the project's base directory, which lets tests run tasks on an in-memory
// filesystem and lets the watcher tell task output apart from user edits.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/helper/iofs"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	"golang.org/x/sync/errgroup"
)

// Workspace is a project directory.
type Workspace struct {
	root string
	fs   billy.Filesystem

	// fsMu serialises writers against readers. memfs is not safe for
	// concurrent use and tasks touch the workspace from ForEach workers.
	fsMu sync.RWMutex

	mu      sync.Mutex
	written map[string]struct{}
}

// New opens the project rooted at dir on the OS filesystem.
func New(dir string) (*Workspace, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving base directory %s: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("base directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("base directory %s is not a directory", abs)
	}
	return NewWithFS(abs, osfs.New(abs)), nil
}

// NewWithFS wraps an existing filesystem. root is only used for reporting
// and for handing absolute paths to external tools.
func NewWithFS(root string, fsys billy.Filesystem) *Workspace {
	return &Workspace{root: root, fs: fsys, written: make(map[string]struct{})}
}

// NewMemory returns an empty in-memory workspace.
func NewMemory() *Workspace {
	return NewWithFS("/", memfs.New())
}

// Root is the absolute base directory.
func (w *Workspace) Root() string { return w.root }

// Abs maps a project-relative path to an OS path under Root.
func (w *Workspace) Abs(name string) string {
	return filepath.Join(w.root, filepath.FromSlash(Clean(name)))
}

// Rel maps an OS path back to a project-relative, slash-separated path.
func (w *Workspace) Rel(osPath string) (string, error) {
	rel, err := filepath.Rel(w.root, osPath)
	if err != nil {
		return "", err
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("%s is outside of %s", osPath, w.root)
	}
	return rel, nil
}

// FS exposes the workspace as an io/fs filesystem for globbing.
func (w *Workspace) FS() fs.FS {
	return &lockedFS{mu: &w.fsMu, fsys: iofs.NewReadFileFS(w.fs).(readDirStatFS)}
}

// ReadFile reads a project-relative file.
func (w *Workspace) ReadFile(name string) ([]byte, error) {
	w.fsMu.RLock()
	defer w.fsMu.RUnlock()
	return util.ReadFile(w.fs, Clean(name))
}

// WriteFile writes a project-relative file, creating parent directories as
// needed, and records it as task output.
func (w *Workspace) WriteFile(name string, data []byte) error {
	name = Clean(name)
	w.fsMu.Lock()
	defer w.fsMu.Unlock()
	if dir := path.Dir(name); dir != "." {
		if err := w.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}
	if err := util.WriteFile(w.fs, name, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	w.mu.Lock()
	w.written[name] = struct{}{}
	w.mu.Unlock()
	return nil
}

// Stat returns file information for a project-relative path.
func (w *Workspace) Stat(name string) (os.FileInfo, error) {
	w.fsMu.RLock()
	defer w.fsMu.RUnlock()
	return w.fs.Stat(Clean(name))
}

// Exists reports whether name exists.
func (w *Workspace) Exists(name string) bool {
	_, err := w.Stat(name)
	return err == nil
}

// IsDir reports whether name exists and is a directory.
func (w *Workspace) IsDir(name string) bool {
	info, err := w.Stat(name)
	return err == nil && info.IsDir()
}

// Newer reports whether src was modified after dest. A missing dest counts
// as older than anything.
func (w *Workspace) Newer(src, dest string) (bool, error) {
	si, err := w.Stat(src)
	if err != nil {
		return false, err
	}
	di, err := w.Stat(dest)
	if errors.Is(err, os.ErrNotExist) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return si.ModTime().After(di.ModTime()), nil
}

// TakeWritten returns every path written since the previous call, sorted,
// and resets the record.
func (w *Workspace) TakeWritten() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.written))
	for p := range w.written {
		out = append(out, p)
	}
	w.written = make(map[string]struct{})
	sort.Strings(out)
	return out
}

// ForEach runs fn for every item with at most workers calls in flight. The
// first error cancels the remaining work and is returned. A panic in fn is
// returned as an error.
func ForEach[T any](ctx context.Context, workers int, items []T, fn func(ctx context.Context, item T) error) error {
	if workers < 1 {
		workers = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, item := range items {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("panic: %v", r)
				}
			}()
			return fn(gctx, item)
		})
	}
	return g.Wait()
}

// Clean normalises a project-relative path: forward slashes, no leading
// "./" or "/".
func Clean(name string) string {
	name = path.Clean(filepath.ToSlash(name))
	name = strings.TrimPrefix(name, "/")
	if name == "" {
		return "."
	}
	return name
}

type readDirStatFS interface {
	fs.ReadDirFS
	fs.ReadFileFS
	fs.StatFS
}

// lockedFS holds the workspace read lock for every call. Directory handles
// are read eagerly by iofs and file contents carry their own lock, so the
// returned fs.File needs no guard.
type lockedFS struct {
	mu   *sync.RWMutex
	fsys readDirStatFS
}

func (l *lockedFS) Open(name string) (fs.File, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.fsys.Open(name)
}

func (l *lockedFS) ReadDir(name string) ([]fs.DirEntry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.fsys.ReadDir(name)
}

func (l *lockedFS) ReadFile(name string) ([]byte, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.fsys.ReadFile(name)
}

func (l *lockedFS) Stat(name string) (fs.FileInfo, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.fsys.Stat(name)
}
