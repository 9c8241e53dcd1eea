package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"Delphi/internal/service/renderer"
	"Delphi/internal/usecase"
	"Delphi/pkg/config"
	xhttp "Delphi/pkg/http"
	applogger "Delphi/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg     *config.Config
	log     *applogger.Logger
	chart   *usecase.Chart
	bridge  *renderer.Bridge
	handler xhttp.Handler

	httpServer *xhttp.Server
}

// New creates the application with all dependencies injected.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	chart *usecase.Chart,
	bridge *renderer.Bridge,
	handler xhttp.Handler,
) *App {
	return &App{
		cfg:     cfg,
		log:     log,
		chart:   chart,
		bridge:  bridge,
		handler: handler,
	}
}

// Run starts the channels, the event loop, and the HTTP server, then blocks
// until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Renderer peer events flow back into the orchestrator.
	a.bridge.SetHandlers(renderer.Handlers{
		OnViewport: func(x, y *[2]float64) {
			if err := a.chart.SyncViewport(x, y); err != nil {
				a.log.Warn("viewport sync dropped", applogger.Error(err))
			}
		},
		OnSelecting: func(start, end int64) {
			if err := a.chart.SelectionRange(start, end); err != nil {
				a.log.Debug("live selection ignored", applogger.Error(err))
			}
		},
		OnSelected: func(start, end int64) {
			if _, err := a.chart.CommitSelection(start, end); err != nil {
				a.log.Warn("selection commit rejected", applogger.Error(err))
			}
		},
	})

	opts := []xhttp.ServerOption{
		xhttp.WithLogger(a.log),
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	}
	if a.cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetricsLogging(a.log, time.Second))
	}
	a.httpServer = xhttp.NewServer(a.handler, opts...)

	a.chart.Run(ctx)
	a.log.Info("channels started", applogger.String("backend", a.cfg.Backend.BaseURL))

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}
	a.log.Info("http server started", applogger.Int("port", a.cfg.Server.Port))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	cancel()
	return a.shutdown()
}

// shutdown stops the orchestrator and drains the HTTP server.
func (a *App) shutdown() error {
	a.chart.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
		return err
	}

	a.log.Info("shutdown complete")
	return nil
}
