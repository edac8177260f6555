package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vk/assetgrid/internal/ctxlog"
)

// LiveReload tells a LiveReload server (tiny-lr and compatible) which files
// changed so that connected browsers reload them.
type LiveReload struct {
	endpoint string
	client   *http.Client
}

// NewLiveReload returns a sender posting to the /changed endpoint of the
// server at base, e.g. "http://localhost:35729".
func NewLiveReload(base string) (*LiveReload, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("livereload url %q must be absolute", base)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/changed"
	return &LiveReload{
		endpoint: u.String(),
		client:   &http.Client{Timeout: 5 * time.Second},
	}, nil
}

// Send posts the written files, or the changed ones when the run wrote
// nothing.
func (l *LiveReload) Send(ctx context.Context, p Payload) error {
	changed := p.Written
	if len(changed) == 0 {
		changed = p.Changed
	}
	body, err := json.Marshal(map[string][]string{"files": nonNil(changed)})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("livereload server answered %s", resp.Status)
	}
	ctxlog.FromContext(ctx).Debug("LiveReload notified.", "endpoint", l.endpoint, "files", len(changed))
	return nil
}

// Close releases idle connections.
func (l *LiveReload) Close() error {
	l.client.CloseIdleConnections()
	return nil
}
