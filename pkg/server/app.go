package server

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	xhttp "FinAlloc/pkg/http"
	pkgkafka "FinAlloc/pkg/kafka"
	applogger "FinAlloc/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	log             *applogger.Logger
	httpServer      *xhttp.Server
	consumer        *pkgkafka.Consumer
	handlers        []pkgkafka.MessageHandler
	closers         []io.Closer
	shutdownTimeout time.Duration
}

// New creates an App. consumer may be nil. closers are closed in reverse order on shutdown.
func New(l *applogger.Logger, httpServer *xhttp.Server, consumer *pkgkafka.Consumer, handlers []pkgkafka.MessageHandler, closers ...io.Closer) *App {
	return &App{
		log:             l,
		httpServer:      httpServer,
		consumer:        consumer,
		handlers:        handlers,
		closers:         closers,
		shutdownTimeout: 15 * time.Second,
	}
}

// Start launches the HTTP server and the Kafka consumer.
func (a *App) Start() error {
	if a.consumer != nil && len(a.handlers) > 0 {
		for _, h := range a.handlers {
			a.consumer.RegisterHandler(h)
		}
		if err := a.consumer.Start(); err != nil {
			return err
		}
	}
	return a.httpServer.Start()
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	if err := a.Start(); err != nil {
		a.log.Error("app start failed", applogger.Error(err))
		a.closeAll()
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	a.log.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()
	return a.Shutdown(shutdownCtx)
}

// Shutdown stops intake first, then flushes and closes infrastructure.
func (a *App) Shutdown(ctx context.Context) error {
	if err := a.httpServer.Stop(ctx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}
	// the digest sink is one of the closers
	a.log.DetachDigest()
	a.closeAll()
	a.log.Info("shutdown complete")
	return nil
}

func (a *App) closeAll() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.log.Warn("close error", applogger.Error(err))
		}
	}
}
