package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/vk/syncgraph/internal/ctxlog"
	"github.com/vk/syncgraph/internal/progress"
)

// progressResponse is the body of GET /progress.
type progressResponse struct {
	Active  []string                   `json:"active"`
	Records map[string]progress.Record `json:"records"`
}

// healthHandler answers liveness probes.
func (app *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	logger := ctxlog.FromContext(app.ctx)
	logger.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

// progressHandler serves the progress snapshot. With ?id= it serves the
// record of one pipeline connection, or 404 when none is tracked.
func (app *App) progressHandler(w http.ResponseWriter, r *http.Request) {
	ctx := app.ctx
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Progress endpoint hit.", "remote_addr", r.RemoteAddr, "query", r.URL.RawQuery)

	var body any
	if id := r.URL.Query().Get("id"); id != "" {
		rec, ok := app.progress.GetProgressForSource(ctx, id)
		if !ok {
			http.Error(w, "no progress tracked for "+id, http.StatusNotFound)
			return
		}
		body = rec
	} else {
		body = progressResponse{
			Active:  app.progress.ActiveSyncs(ctx),
			Records: app.progress.GetStoredState(ctx),
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("Failed to write progress response", "error", err)
	}
}

func (app *App) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", app.healthHandler)
	mux.HandleFunc("GET /progress", app.progressHandler)
	return mux
}

// healthCheckServer binds and runs the health check HTTP server.
func (app *App) healthCheckServer() error {
	logger := ctxlog.FromContext(app.ctx)
	logger.Debug("Configuring health check server.")
	if app.config.HealthcheckPort <= 0 {
		logger.Warn("Health check server not started: disabled")
		return nil
	}

	addr := fmt.Sprintf(":%d", app.config.HealthcheckPort)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind health check server: %w", err)
	}

	app.httpServer = &http.Server{
		Addr:              addr,
		Handler:           app.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("🩺 Health check server starting", "address", fmt.Sprintf("http://localhost%s/health", addr))
		// Serve returns ErrServerClosed on graceful shutdown.
		if err := app.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Health check server failed unexpectedly", "error", err)
		}
	}()
	return nil
}

func (app *App) closeHealthCheckServer() error {
	logger := ctxlog.FromContext(app.ctx)
	logger.Debug("Closing health check server...")

	if app.httpServer == nil {
		logger.Debug("Health check server was not running.")
		return nil
	}

	ctx, cancel := context.WithTimeout(app.ctx, 5*time.Second)
	defer cancel()

	logger.Info("🩺 Shutting down health check server...")
	if err := app.httpServer.Shutdown(ctx); err != nil {
		logger.Error("Health check server shutdown failed", "error", err)
		return err
	}
	app.httpServer = nil

	logger.Debug("Health check server shut down gracefully.")
	return nil
}
