// Package notify pushes build results to a development server over
// socket.io, typically to trigger a live reload in connected browsers.
package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"time"

	"github.com/vk/assetgrid/internal/ctxlog"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// DefaultEvent is emitted when Config.Event is empty.
const DefaultEvent = "assetgrid:built"

// Config describes the server to notify.
type Config struct {
	URL                string
	Namespace          string
	Event              string
	InsecureSkipVerify bool
	// Timeout bounds the initial connection. Zero means 15s.
	Timeout time.Duration
}

// Payload is the body of one notification.
type Payload struct {
	Tasks   []string
	Changed []string
	Written []string
	Time    time.Time
}

// Map renders the payload as the JSON object sent on the wire.
func (p Payload) Map() map[string]any {
	return map[string]any{
		"tasks":   nonNil(p.Tasks),
		"changed": nonNil(p.Changed),
		"written": nonNil(p.Written),
		"time":    p.Time.UTC().Format(time.RFC3339),
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// Sender delivers payloads.
type Sender interface {
	Send(ctx context.Context, p Payload) error
	Close() error
}

// Notifier is a persistent socket.io client.
type Notifier struct {
	cfg Config
	io  *socket.Socket
}

// Dial connects to the server described by cfg and waits for the namespace
// to accept the connection.
func Dial(ctx context.Context, cfg Config) (*Notifier, error) {
	logger := ctxlog.FromContext(ctx).With("url", cfg.URL, "namespace", cfg.Namespace)

	parsedURL, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("notify url %q must be absolute", cfg.URL)
	}
	if cfg.Event == "" {
		cfg.Event = DefaultEvent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	opts := socket.DefaultOptions()
	if parsedURL.Path != "" && parsedURL.Path != "/" {
		opts.SetPath(parsedURL.Path)
	}
	if cfg.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	connectChan := make(chan error, 1)

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(cfg.Namespace, opts)

	io.Once(types.EventName("connect"), func(...any) {
		logger.Debug("Notification channel connected.", "sid", io.Id())
		select {
		case connectChan <- nil:
		default:
		}
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		err := fmt.Errorf("connect error")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		select {
		case connectChan <- err:
		default:
		}
	})

	io.Connect()

	select {
	case err := <-connectChan:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("socket.io connection failed: %w", err)
		}
		return &Notifier{cfg: cfg, io: io}, nil
	case <-ctx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("context cancelled while waiting for socket.io connection")
	case <-time.After(cfg.Timeout):
		io.Disconnect()
		return nil, fmt.Errorf("timed out after %s waiting for socket.io connection", cfg.Timeout)
	}
}

// Send emits p under the configured event name.
func (n *Notifier) Send(ctx context.Context, p Payload) error {
	if err := n.io.Emit(n.cfg.Event, p.Map()); err != nil {
		return fmt.Errorf("emitting %s: %w", n.cfg.Event, err)
	}
	ctxlog.FromContext(ctx).Debug("Notification sent.", "event", n.cfg.Event, "changed", len(p.Changed), "written", len(p.Written))
	return nil
}

// Close disconnects from the server.
func (n *Notifier) Close() error {
	n.io.Disconnect()
	return nil
}
