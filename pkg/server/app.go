package server

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	domrepo "BoltX/internal/domain/repository"
	"BoltX/internal/domain/service"
	mid "BoltX/internal/middleware"
	"BoltX/pkg/cache"
	pkgch "BoltX/pkg/clickhouse"
	"BoltX/pkg/config"
	xhttp "BoltX/pkg/http"
	pkgkafka "BoltX/pkg/kafka"
	applogger "BoltX/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	httpServer *xhttp.Server
	pipeline   *mid.PersistPipeline
	consumer   *pkgkafka.Consumer // nil when consumption is disabled
	handler    pkgkafka.MessageHandler
	publisher  domrepo.PredictionPublisher
	producer   *pkgkafka.Producer // nil without brokers
	cache      cache.Service
	chClient   *pkgch.Client
	auth       service.IdentityResolver
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	httpServer *xhttp.Server,
	pipeline *mid.PersistPipeline,
	consumer *pkgkafka.Consumer,
	handler pkgkafka.MessageHandler,
	publisher domrepo.PredictionPublisher,
	producer *pkgkafka.Producer,
	c cache.Service,
	chClient *pkgch.Client,
	auth service.IdentityResolver,
) *App {
	return &App{
		cfg:        cfg,
		log:        log,
		httpServer: httpServer,
		pipeline:   pipeline,
		consumer:   consumer,
		handler:    handler,
		publisher:  publisher,
		producer:   producer,
		cache:      c,
		chClient:   chClient,
		auth:       auth,
	}
}

// Run starts the application and blocks until interrupted or the HTTP server fails.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.pipeline.Start(ctx)

	if a.consumer != nil && a.handler != nil {
		a.consumer.RegisterHandler(a.handler)
		if err := a.consumer.Start(ctx); err != nil {
			return fmt.Errorf("kafka consumer: %w", err)
		}
		a.log.Info("kafka consumer started", applogger.String("topic", a.handler.Topic()))
	}

	if err := a.httpServer.Start(); err != nil {
		return fmt.Errorf("http server: %w", err)
	}

	var runErr error
	select {
	case <-ctx.Done():
		a.log.Info("shutdown signal received")
	case err := <-a.httpServer.Err():
		a.log.Error("http server error", applogger.Error(err))
		runErr = err
	}

	a.shutdown()
	return runErr
}

// shutdown stops intake first, then drains the pipeline, then closes clients.
func (a *App) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	a.log.Info("shutting down")

	if err := a.httpServer.Stop(ctx); err != nil {
		a.log.Error("http shutdown", applogger.Error(err))
	}
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.log.Warn("kafka consumer stop", applogger.Error(err))
		}
	}
	if err := a.pipeline.Stop(ctx); err != nil {
		a.log.Warn("persist pipeline stop", applogger.Error(err))
	}

	// The collector publishes through the producer, so it goes first.
	a.log.RemoveCollector()
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.log.Warn("prediction publisher close", applogger.Error(err))
		}
	}
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.log.Warn("kafka producer close", applogger.Error(err))
		}
	}
	if c, ok := a.auth.(io.Closer); ok {
		if err := c.Close(); err != nil {
			a.log.Warn("identity cache close", applogger.Error(err))
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.log.Warn("cache close", applogger.Error(err))
		}
	}
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.log.Warn("clickhouse close", applogger.Error(err))
		}
	}
	a.log.Info("shutdown complete")
}
