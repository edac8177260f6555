package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/vk/assetgrid/internal/ctxlog"
)

// healthHandler answers liveness probes for long-running sessions such as
// watch.
func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	logger := ctxlog.FromContext(a.ctx)
	logger.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

// healthCheckServer binds the health check port and serves it in the
// background. A port of 0 disables it.
func (a *App) healthCheckServer() error {
	logger := ctxlog.FromContext(a.ctx)
	if a.config.HealthcheckPort <= 0 {
		logger.Debug("Health check server not started: disabled")
		return nil
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", a.healthHandler)

	addr := fmt.Sprintf(":%d", a.config.HealthcheckPort)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("starting health check server: %w", err)
	}
	a.httpServer = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("Health check server starting", "address", fmt.Sprintf("http://localhost%s/health", addr))
		// Serve returns ErrServerClosed on graceful shutdown.
		if err := a.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Health check server failed unexpectedly", "error", err)
		}
	}()
	return nil
}

func (a *App) closeHealthCheckServer() error {
	logger := ctxlog.FromContext(a.ctx)
	if a.httpServer == nil {
		logger.Debug("Health check server was not running.")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(a.ctx), 5*time.Second)
	defer cancel()

	logger.Debug("Shutting down health check server...")
	if err := a.httpServer.Shutdown(ctx); err != nil {
		logger.Error("Health check server shutdown failed", "error", err)
		return err
	}
	a.httpServer = nil
	logger.Debug("Health check server shut down gracefully.")
	return nil
}
