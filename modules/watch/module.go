package watch

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/vk/assetgrid/internal/ctxlog"
	"github.com/vk/assetgrid/internal/files"
	"github.com/vk/assetgrid/internal/notify"
	"github.com/vk/assetgrid/internal/registry"
	"github.com/vk/assetgrid/internal/task"
	"github.com/vk/assetgrid/internal/watcher"
	"github.com/zclconf/go-cty/cty"
)

// DialFunc connects a notification sender.
type DialFunc func(ctx context.Context, cfg notify.Config) (notify.Sender, error)

// Module implements the registry.Module interface for this package.
type Module struct {
	// Dial overrides how notification senders connect. Nil uses
	// notify.Dial.
	Dial DialFunc
}

// Data holds the target attributes of the watch task.
type Data struct {
	Files cty.Value `grid:"files,required"`
	Tasks cty.Value `grid:"tasks"`
}

// Options defines the options of the watch task.
type Options struct {
	Spawn         bool      `grid:"spawn"`
	Interrupt     bool      `grid:"interrupt"`
	DebounceDelay string    `grid:"debounce_delay"`
	Event         cty.Value `grid:"event"`
	AtBegin       bool      `grid:"at_begin"`
	// Notify holds url, namespace and event of a socket.io server told
	// about every successful run.
	Notify map[string]string `grid:"notify"`
	// LiveReload is the base URL of a LiveReload server, e.g.
	// "http://localhost:35729".
	LiveReload string `grid:"livereload"`
}

func defaultOptions() *Options {
	return &Options{
		Spawn:         true,
		DebounceDelay: "500ms",
		Event:         cty.StringVal("all"),
	}
}

func defaultData() *Data {
	return &Data{
		Files: cty.NullVal(cty.DynamicPseudoType),
		Tasks: cty.NullVal(cty.DynamicPseudoType),
	}
}

var notifyKeys = map[string]bool{"url": true, "namespace": true, "event": true}

// target is one resolved watch target.
type target struct {
	name      string
	patterns  []string
	tasks     []string
	spawn     bool
	interrupt bool
	atBegin   bool
	delay     time.Duration
	// events is nil when every kind of change triggers the target.
	events map[watcher.Op]bool
	notify     *notify.Config
	livereload string
	senders    []notify.Sender
}

func (t *target) accepts(op watcher.Op) bool {
	return t.events == nil || t.events[op]
}

// loadTarget binds the configuration of one watch target.
func loadTarget(ctx context.Context, tc *task.Context) (*target, error) {
	data := defaultData()
	if err := tc.Data(ctx, data); err != nil {
		return nil, err
	}
	opts := defaultOptions()
	if err := tc.Options(ctx, opts); err != nil {
		return nil, err
	}

	t := &target{
		name:      tc.Target,
		spawn:     opts.Spawn,
		interrupt: opts.Interrupt,
		atBegin:   opts.AtBegin,
	}

	var err error
	if t.patterns, err = files.StringList(data.Files); err != nil {
		return nil, fmt.Errorf("files: %w", err)
	}
	if len(t.patterns) == 0 {
		return nil, fmt.Errorf("watch target %q has no files", tc.Target)
	}
	if t.tasks, err = files.StringList(data.Tasks); err != nil {
		return nil, fmt.Errorf("tasks: %w", err)
	}

	if t.delay, err = time.ParseDuration(opts.DebounceDelay); err != nil {
		return nil, fmt.Errorf("debounce_delay: %w", err)
	}
	if t.delay < 0 {
		return nil, fmt.Errorf("debounce_delay must not be negative, got %s", opts.DebounceDelay)
	}

	events, err := files.StringList(opts.Event)
	if err != nil {
		return nil, fmt.Errorf("event: %w", err)
	}
	for _, e := range events {
		if e == "all" {
			t.events = nil
			break
		}
		op, err := watcher.ParseOp(e)
		if err != nil {
			return nil, err
		}
		if t.events == nil {
			t.events = make(map[watcher.Op]bool)
		}
		t.events[op] = true
	}

	if t.spawn && tc.Spawner == nil {
		return nil, fmt.Errorf("watch target %q cannot spawn tasks here; set spawn = false", tc.Target)
	}
	if t.interrupt && !t.spawn {
		ctxlog.FromContext(ctx).Warn("interrupt has no effect without spawn.", "target", tc.Target)
	}

	if len(opts.Notify) > 0 {
		keys := make([]string, 0, len(opts.Notify))
		for k := range opts.Notify {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if !notifyKeys[k] {
				return nil, fmt.Errorf("notify: unknown key %q (want url, namespace or event)", k)
			}
		}
		if opts.Notify["url"] == "" {
			return nil, fmt.Errorf("notify: url is required")
		}
		ns := opts.Notify["namespace"]
		if ns == "" {
			ns = "/"
		}
		t.notify = &notify.Config{
			URL:       opts.Notify["url"],
			Namespace: ns,
			Event:     opts.Notify["event"],
		}
	}
	if opts.LiveReload != "" {
		if _, err := notify.NewLiveReload(opts.LiveReload); err != nil {
			return nil, err
		}
		t.livereload = opts.LiveReload
	}
	return t, nil
}

func (m *Module) dial(ctx context.Context, cfg notify.Config) (notify.Sender, error) {
	if m.Dial != nil {
		return m.Dial(ctx, cfg)
	}
	return notify.Dial(ctx, cfg)
}

// Run is the handler for the watch task. Without a target every configured
// target is watched. It returns when ctx is done.
func (m *Module) Run(ctx context.Context, tc *task.Context) error {
	logger := ctxlog.FromContext(ctx)

	names := []string{tc.Target}
	if tc.Target == "" {
		names = tc.Targets()
	}
	if len(names) == 0 {
		return fmt.Errorf("no watch targets configured")
	}

	targets := make([]*target, 0, len(names))
	for _, name := range names {
		t, err := loadTarget(ctx, tc.ForTarget(name))
		if err != nil {
			return fmt.Errorf("target %s: %w", name, err)
		}
		targets = append(targets, t)
	}

	senders := make(map[notify.Config]notify.Sender)
	reloaders := make(map[string]notify.Sender)
	defer func() {
		for _, s := range senders {
			s.Close()
		}
		for _, s := range reloaders {
			s.Close()
		}
	}()
	for _, t := range targets {
		if t.livereload != "" {
			lr, ok := reloaders[t.livereload]
			if !ok {
				// Validated when the target was loaded.
				lr, _ = notify.NewLiveReload(t.livereload)
				reloaders[t.livereload] = lr
			}
			t.senders = append(t.senders, lr)
		}
		if t.notify == nil {
			continue
		}
		if s, ok := senders[*t.notify]; ok {
			t.senders = append(t.senders, s)
			continue
		}
		s, err := m.dial(ctx, *t.notify)
		if err != nil {
			tc.Console.Warn("Notifications to %s disabled: %v", t.notify.URL, err)
			continue
		}
		senders[*t.notify] = s
		t.senders = append(t.senders, s)
	}

	logger.Debug("Watching.", "targets", strings.Join(names, ","))
	return newSession(tc).run(ctx, targets)
}

// Register registers the watch task with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterTask("watch", &registry.RegisteredTask{
		Description: "Run predefined tasks whenever watched files change.",
		NewOptions:  func() any { return defaultOptions() },
		NewData:     func() any { return defaultData() },
		Fn:          m.Run,
	})
}
