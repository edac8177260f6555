package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/vk/assetgrid/internal/registry"
	"github.com/vk/assetgrid/internal/task"
)

// SimpleModule registers a single task under Name.
type SimpleModule struct {
	Name string
	Task *registry.RegisteredTask
}

// Register implements the registry.Module interface.
func (m *SimpleModule) Register(r *registry.Registry) {
	r.RegisterTask(m.Name, m.Task)
}

// RecorderOptions is the option set accepted by recorder tasks.
type RecorderOptions struct {
	Message string `grid:"message"`
	Fail    bool   `grid:"fail"`
}

// Recorder is a multi-task that records the invocations it receives in
// order. A target with option fail = true returns ErrRecorderFailed.
type Recorder struct {
	mu    sync.Mutex
	calls []string
	msgs  []string
}

// ErrRecorderFailed is returned by recorder targets configured to fail.
var ErrRecorderFailed = errors.New("recorder target failed")

// Module returns a module registering the recorder under name.
func (r *Recorder) Module(name string, multi bool) registry.Module {
	return &SimpleModule{
		Name: name,
		Task: &registry.RegisteredTask{
			Description: "Records invocations.",
			MultiTask:   multi,
			FileTask:    true,
			NewOptions:  func() any { return &RecorderOptions{} },
			Fn:          r.run,
		},
	}
}

func (r *Recorder) run(ctx context.Context, tc *task.Context) error {
	opts := &RecorderOptions{}
	if err := tc.Options(ctx, opts); err != nil {
		return err
	}
	r.mu.Lock()
	r.calls = append(r.calls, tc.Name())
	r.msgs = append(r.msgs, opts.Message)
	r.mu.Unlock()
	if opts.Fail {
		return ErrRecorderFailed
	}
	return nil
}

// Calls returns the recorded invocation names.
func (r *Recorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

// Messages returns the message option seen by each call.
func (r *Recorder) Messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.msgs...)
}
