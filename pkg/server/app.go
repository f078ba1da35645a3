package server

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"GridPulse/internal/usecase"
	"GridPulse/pkg/config"
	xhttp "GridPulse/pkg/http"
	applogger "GridPulse/pkg/logger"
)

// Ingress is the reading transport the app starts and stops.
type Ingress interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Connected() bool
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	monitor    *usecase.Monitor
	ingress    Ingress
	httpServer *xhttp.Server
	closers    []io.Closer
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	monitor *usecase.Monitor,
	ingress Ingress,
	httpServer *xhttp.Server,
) *App {
	return &App{
		cfg:        cfg,
		log:        log,
		monitor:    monitor,
		ingress:    ingress,
		httpServer: httpServer,
	}
}

// AddCloser registers infrastructure closed after everything else stopped.
func (a *App) AddCloser(c io.Closer) {
	if c != nil {
		a.closers = append(a.closers, c)
	}
}

// Run starts the application and blocks until SIGINT or SIGTERM.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx)
}

// RunContext runs until ctx is cancelled, then shuts down.
func (a *App) RunContext(ctx context.Context) error {
	loopCtx, cancelLoop := context.WithCancel(context.Background())
	defer cancelLoop()

	monitorDone := make(chan error, 1)
	go func() { monitorDone <- a.monitor.Run(loopCtx) }()

	// a broker that is down at startup leaves the monitor running without data
	if err := a.ingress.Start(loopCtx); err != nil {
		a.log.Error("ingress start failed, running without live data",
			applogger.String("ingress", a.cfg.Ingress.Type),
			applogger.Error(err),
		)
	} else {
		a.log.Info("ingress started", applogger.String("ingress", a.cfg.Ingress.Type))
	}

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		cancelLoop()
		<-monitorDone
		return err
	}

	select {
	case <-ctx.Done():
		a.log.Info("shutdown signal received")
	case err := <-monitorDone:
		// the loop only returns early if something is badly wrong
		a.log.Error("monitor exited", applogger.Error(err))
		monitorDone <- err
	}
	return a.shutdown(cancelLoop, monitorDone)
}

// shutdown stops intake first so no reading is accepted after the loop ends.
func (a *App) shutdown(cancelLoop context.CancelFunc, monitorDone <-chan error) error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.ingress.Stop(ctx); err != nil {
		a.log.Warn("ingress stop error", applogger.Error(err))
		errs = append(errs, err)
	}
	if err := a.httpServer.Stop(ctx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
		errs = append(errs, err)
	}

	cancelLoop()
	select {
	case <-monitorDone:
	case <-time.After(2 * a.cfg.Monitor.TickInterval):
		a.log.Warn("monitor did not stop in time")
	}

	// flush the log digest while its publisher is still open
	a.log.Info("shutdown complete")
	a.log.DetachDigest()

	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.log.Warn("close error", applogger.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
