package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"MacroPulse/internal/handler/stream"
	"MacroPulse/internal/service/ratelimit"
	"MacroPulse/internal/usecase"
	"MacroPulse/pkg/config"
	xhttp "MacroPulse/pkg/http"
	applogger "MacroPulse/pkg/logger"
)

const limiterSweepInterval = 5 * time.Minute

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	l          *applogger.Logger
	collector  *usecase.Collector
	httpServer *xhttp.Server
	hub        *stream.Hub
	limiter    *ratelimit.Limiter
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	collector *usecase.Collector,
	httpServer *xhttp.Server,
	hub *stream.Hub,
	limiter *ratelimit.Limiter,
) *App {
	return &App{
		cfg:        cfg,
		l:          l,
		collector:  collector,
		httpServer: httpServer,
		hub:        hub,
		limiter:    limiter,
	}
}

// Run starts the collector and the HTTP server and blocks until ctx is
// cancelled, then shuts both down.
func (a *App) Run(ctx context.Context) error {
	collectorDone := make(chan error, 1)
	go func() {
		collectorDone <- a.collector.Run(ctx)
	}()
	a.l.Info("collector started",
		applogger.Strings("symbols", a.collector.Symbols()),
		applogger.Duration("interval", a.cfg.Collector.Interval),
	)

	if err := a.httpServer.Start(); err != nil {
		a.l.Error("http server start error", applogger.Error(err))
		return err
	}

	sweep := time.NewTicker(limiterSweepInterval)
	defer sweep.Stop()
	for {
		select {
		case <-ctx.Done():
			a.l.Info("shutdown signal received")
			return a.shutdown(collectorDone)
		case err := <-collectorDone:
			if ctx.Err() != nil {
				a.l.Info("shutdown signal received")
				return a.shutdown(nil)
			}
			a.l.Error("collector exited early", applogger.Error(err))
			_ = a.shutdown(nil)
			return fmt.Errorf("collector exited early: %v", err)
		case <-sweep.C:
			if n := a.limiter.Sweep(); n > 0 {
				a.l.Debug("client limiter swept", applogger.Int("buckets", n))
			}
		}
	}
}

// shutdown gracefully stops all services. Infrastructure clients are closed
// by the cleanup returned from the injector.
func (a *App) shutdown(collectorDone <-chan error) error {
	a.hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.l.Error("http shutdown error", applogger.Error(err))
		errs = append(errs, err)
	}

	if collectorDone != nil {
		select {
		case <-collectorDone:
		case <-shutdownCtx.Done():
			a.l.Warn("collector did not stop before the shutdown timeout")
			errs = append(errs, errors.New("collector stop timed out"))
		}
	}

	a.l.Info("shutdown complete")
	return errors.Join(errs...)
}
