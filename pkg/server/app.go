package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"StockBrain/pkg/config"
	xhttp "StockBrain/pkg/http"
	pkgkafka "StockBrain/pkg/kafka"
	applogger "StockBrain/pkg/logger"
)

// Worker is a background component started before HTTP and stopped after it.
type Worker interface {
	Start() error
	Stop(ctx context.Context) error
}

type namedWorker struct {
	name string
	w    Worker
}

type namedCloser struct {
	name string
	c    io.Closer
}

type Option func(*App)

// WithConsumer runs the Kafka consumer with h registered on it.
func WithConsumer(c *pkgkafka.Consumer, h pkgkafka.MessageHandler) Option {
	return func(a *App) {
		if c != nil && h != nil {
			a.consumer = c
			a.consumerHandler = h
		}
	}
}

func WithWorker(name string, w Worker) Option {
	return func(a *App) {
		if w != nil {
			a.workers = append(a.workers, namedWorker{name: name, w: w})
		}
	}
}

// WithCloser registers a resource closed on shutdown. Closers run in reverse order.
func WithCloser(name string, c io.Closer) Option {
	return func(a *App) {
		if c != nil {
			a.closers = append(a.closers, namedCloser{name: name, c: c})
		}
	}
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg             *config.Config
	logger          *applogger.Logger
	httpServer      *xhttp.Server
	consumer        *pkgkafka.Consumer
	consumerHandler pkgkafka.MessageHandler
	workers         []namedWorker
	closers         []namedCloser
}

// New creates a new App instance with all dependencies.
func New(cfg *config.Config, l *applogger.Logger, srv *xhttp.Server, opts ...Option) *App {
	if l == nil {
		l = applogger.NewNop()
	}
	a := &App{cfg: cfg, logger: l, httpServer: srv}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Start brings up workers, the consumer and the HTTP server without blocking.
// On error the caller is expected to call Shutdown.
func (a *App) Start() error {
	for _, nw := range a.workers {
		if err := nw.w.Start(); err != nil {
			return fmt.Errorf("start %s: %w", nw.name, err)
		}
		a.logger.Info("worker started", applogger.String("worker", nw.name))
	}

	if a.consumer != nil {
		a.consumer.RegisterHandler(a.consumerHandler)
		if err := a.consumer.Start(); err != nil {
			return fmt.Errorf("start kafka consumer: %w", err)
		}
		a.logger.Info("kafka consumer started", applogger.String("topic", a.consumerHandler.Topic()))
	}

	if a.httpServer != nil {
		if err := a.httpServer.Start(); err != nil {
			return fmt.Errorf("start http server: %w", err)
		}
	}
	return nil
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	if err := a.Start(); err != nil {
		a.logger.Error("startup failed", applogger.Error(err))
		return errors.Join(err, a.Shutdown(context.Background()))
	}
	a.logger.Info("stockbrain started",
		applogger.String("env", a.cfg.Environment),
		applogger.String("source", a.cfg.Source.Type),
		applogger.Int("port", a.cfg.Server.Port),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	sig := <-sigCh
	a.logger.Info("shutdown signal received", applogger.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	return a.Shutdown(ctx)
}

// Shutdown stops components in reverse start order: HTTP, consumer, workers, then closers.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error

	if a.httpServer != nil {
		if err := a.httpServer.Stop(ctx); err != nil {
			a.logger.Error("http shutdown error", applogger.Error(err))
			errs = append(errs, err)
		}
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.logger.Warn("kafka consumer stop error", applogger.Error(err))
			errs = append(errs, err)
		}
	}

	if err := a.stopWorkers(ctx, len(a.workers)); err != nil {
		errs = append(errs, err)
	}

	a.logger.RemoveCollector()
	for i := len(a.closers) - 1; i >= 0; i-- {
		nc := a.closers[i]
		if err := nc.c.Close(); err != nil {
			a.logger.Warn("close error", applogger.String("resource", nc.name), applogger.Error(err))
			errs = append(errs, fmt.Errorf("close %s: %w", nc.name, err))
		}
	}

	a.logger.Info("shutdown complete")
	return errors.Join(errs...)
}

// stopWorkers stops the first n workers in reverse order.
func (a *App) stopWorkers(ctx context.Context, n int) error {
	var errs []error
	for i := n - 1; i >= 0; i-- {
		nw := a.workers[i]
		if err := nw.w.Stop(ctx); err != nil {
			a.logger.Warn("worker stop error", applogger.String("worker", nw.name), applogger.Error(err))
			errs = append(errs, fmt.Errorf("stop %s: %w", nw.name, err))
		}
	}
	return errors.Join(errs...)
}
