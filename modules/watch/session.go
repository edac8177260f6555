package watch

import (
	"context"
	"time"

	"github.com/vk/assetgrid/internal/ctxlog"
	"github.com/vk/assetgrid/internal/notify"
	"github.com/vk/assetgrid/internal/task"
	"github.com/vk/assetgrid/internal/watcher"
	"golang.org/x/sync/errgroup"
)

// ignoreGrace is how long after the end of a run, beyond twice the
// debounce delay, changes to files the run wrote are ignored.
const ignoreGrace = 500 * time.Millisecond

type batch struct {
	target *target
	events []watcher.Event
}

// child is a spawned run in flight.
type child struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// session dispatches change batches to their targets, one at a time.
type session struct {
	tc *task.Context
	// ignore holds paths written by in-process runs, until the time their
	// change events stop being suppressed.
	ignore  map[string]time.Time
	running map[string]*child
}

func newSession(tc *task.Context) *session {
	return &session{
		tc:      tc,
		ignore:  make(map[string]time.Time),
		running: make(map[string]*child),
	}
}

func (s *session) run(ctx context.Context, targets []*target) error {
	logger := ctxlog.FromContext(ctx)
	root := s.tc.Workspace.Root()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	batches := make(chan batch)

	for _, t := range targets {
		w, err := watcher.New(root, t.patterns, t.delay)
		if err != nil {
			return err
		}
		defer w.Close()
		logger.Debug("Watching directories.", "target", t.name, "dirs", w.WatchList())

		out := make(chan []watcher.Event)
		g.Go(func() error { return w.Run(gctx, out) })
		g.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					return nil
				case events := <-out:
					select {
					case batches <- batch{target: t, events: events}:
					case <-gctx.Done():
						return nil
					}
				}
			}
		})
	}

	for _, t := range targets {
		if t.atBegin {
			s.trigger(gctx, t, nil)
		}
	}
	s.tc.Console.Writeln("Waiting...")

	for {
		select {
		case <-gctx.Done():
			s.stopAll()
			return g.Wait()
		case b := <-batches:
			events := s.filter(ctx, b)
			if len(events) == 0 {
				continue
			}
			for _, e := range events {
				s.tc.Console.OK("File %q %s.", e.Path, e.Op)
			}
			s.trigger(gctx, b.target, events)
		}
	}
}

// filter drops events the target does not listen for and changes made by
// the watch session's own in-process runs.
func (s *session) filter(ctx context.Context, b batch) []watcher.Event {
	logger := ctxlog.FromContext(ctx)
	now := time.Now()
	for p, until := range s.ignore {
		if now.After(until) {
			delete(s.ignore, p)
		}
	}

	var out []watcher.Event
	for _, e := range b.events {
		if _, own := s.ignore[e.Path]; own {
			logger.Debug("Ignoring change to task output.", "path", e.Path)
			continue
		}
		if !b.target.accepts(e.Op) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// trigger runs the tasks of t for a batch of changes. events is nil for the
// run at startup.
func (s *session) trigger(ctx context.Context, t *target, events []watcher.Event) {
	start := time.Now()
	changed := watcher.Paths(events)

	if len(t.tasks) == 0 {
		s.notify(ctx, t, changed, nil)
		s.waiting(start)
		return
	}
	if t.spawn {
		s.spawn(ctx, t, changed, start)
		return
	}

	s.tc.Workspace.TakeWritten()
	err := s.tc.Runner.Run(ctx, t.tasks)
	written := s.tc.Workspace.TakeWritten()

	until := time.Now().Add(2*t.delay + ignoreGrace)
	for _, p := range written {
		s.ignore[p] = until
	}
	if err != nil {
		ctxlog.FromContext(ctx).Debug("Watched run failed.", "target", t.name, "error", err)
		s.waiting(start)
		return
	}
	s.notify(ctx, t, changed, written)
	s.waiting(start)
}

// spawn runs the tasks of t in a child process. A run still in flight for
// the same target is interrupted when the target allows it and awaited
// otherwise.
func (s *session) spawn(ctx context.Context, t *target, changed []string, start time.Time) {
	logger := ctxlog.FromContext(ctx)

	if prev := s.running[t.name]; prev != nil {
		if t.interrupt {
			logger.Debug("Interrupting spawned run.", "target", t.name)
			prev.cancel()
		}
		<-prev.done
	}

	cctx, cancel := context.WithCancel(ctx)
	c := &child{cancel: cancel, done: make(chan struct{})}
	s.running[t.name] = c
	cmd := s.tc.Spawner.Command(cctx, t.tasks)

	go func() {
		defer close(c.done)
		defer cancel()

		err := cmd.Run()
		switch {
		case cctx.Err() != nil:
			logger.Debug("Spawned run stopped.", "target", t.name)
		case err != nil:
			s.tc.Console.Warn("Tasks %v failed: %v", t.tasks, err)
			s.waiting(start)
		default:
			s.notify(ctx, t, changed, nil)
			s.waiting(start)
		}
	}()
}

func (s *session) stopAll() {
	for _, c := range s.running {
		c.cancel()
		<-c.done
	}
}

func (s *session) notify(ctx context.Context, t *target, changed, written []string) {
	p := notify.Payload{
		Tasks:   t.tasks,
		Changed: changed,
		Written: written,
		Time:    time.Now(),
	}
	for _, sender := range t.senders {
		if err := sender.Send(ctx, p); err != nil {
			s.tc.Console.Warn("Notification failed: %v", err)
		}
	}
}

func (s *session) waiting(start time.Time) {
	s.tc.Console.Writeln("Completed in %.3fs at %s - Waiting...", time.Since(start).Seconds(), time.Now().Format("Mon Jan 02 2006 15:04:05"))
}
