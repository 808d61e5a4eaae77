package di

import (
	"context"
	"fmt"
	"time"

	"BoltX/internal/domain/repository"
	"BoltX/internal/domain/service"
	"BoltX/internal/handler/api"
	mid "BoltX/internal/middleware"
	internalrepo "BoltX/internal/repository"
	"BoltX/internal/service/ratelimit"
	"BoltX/internal/services/identity"
	"BoltX/internal/services/risk"
	"BoltX/internal/usecase"
	"BoltX/pkg/cache"
	pkgch "BoltX/pkg/clickhouse"
	"BoltX/pkg/config"
	xhttp "BoltX/pkg/http"
	pkgkafka "BoltX/pkg/kafka"
	applogger "BoltX/pkg/logger"
	"BoltX/pkg/metrics"
	"BoltX/pkg/server"

	"github.com/prometheus/client_golang/prometheus"
)

// ProvideLogger creates the root logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		Output:     cfg.Logger.Output,
		TimeFormat: time.RFC3339,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder on the default registry.
func ProvideMetrics() repository.Metrics {
	return metrics.New(prometheus.DefaultRegisterer)
}

// ProvideClickHouseClient creates a ClickHouse client.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideCache returns Redis behind an in-process L1 when Redis is enabled, else memory only.
func ProvideCache(cfg *config.Config, log *applogger.Logger) (cache.Service, error) {
	if !cfg.Redis.Enabled {
		log.Info("redis disabled, using in-memory cache")
		return cache.NewMemoryCache(
			cache.WithMemoryMaxSize(cfg.Redis.L1Size),
			cache.WithMemoryDefaultTTL(cfg.Redis.L1TTL),
		), nil
	}
	remote, err := cache.NewRedisCache(
		cache.WithRedisHost(cfg.Redis.Host),
		cache.WithRedisPort(cfg.Redis.Port),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return cache.NewLayeredCache(remote,
		cache.WithLayeredMemorySize(cfg.Redis.L1Size),
		cache.WithLayeredMemoryTTL(cfg.Redis.L1TTL),
	), nil
}

// ProvideKafkaProducer creates a Kafka producer, or nil when no brokers are configured.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if len(cfg.Kafka.Brokers) == 0 {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
		pkgkafka.WithAutoCreateTopics(cfg.Environment != "production"),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvidePredictionPublisher publishes persisted predictions to Kafka when a producer exists.
func ProvidePredictionPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.PredictionPublisher {
	if producer == nil {
		return internalrepo.NopPublisher{}
	}
	return internalrepo.NewKafkaPredictionPublisher(producer, cfg.Kafka.PredictionsTopic)
}

func tables(cfg *config.Config) pkgch.Tables {
	return pkgch.Tables{
		Database:    cfg.ClickHouse.Database,
		Events:      cfg.ClickHouse.EventsTable,
		Predictions: cfg.ClickHouse.PredictionsTable,
	}
}

// ProvideEventStore creates the ClickHouse checkout event reader.
func ProvideEventStore(ch *pkgch.Client, cfg *config.Config, log *applogger.Logger) repository.EventStore {
	return internalrepo.NewCHEventStore(ch, cfg.ClickHouse.EventsTable, log)
}

// ProvidePredictionStore creates the prediction log, ensures its schema and fronts it with the cache.
func ProvidePredictionStore(ch *pkgch.Client, c cache.Service, cfg *config.Config, log *applogger.Logger) (repository.PredictionStore, error) {
	store := internalrepo.NewCHPredictionStore(ch, tables(cfg), log)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return internalrepo.NewCachedPredictionStore(store, c, cfg.Risk.PredictionCacheTTL, log), nil
}

// ProvidePredictionSink persists then publishes each accepted prediction.
func ProvidePredictionSink(store repository.PredictionStore, pub repository.PredictionPublisher, m repository.Metrics, log *applogger.Logger) *usecase.PredictionSink {
	return usecase.NewPredictionSink(store, pub, m, log)
}

// ProvidePersistPipeline buffers predictions between scoring and storage.
func ProvidePersistPipeline(sink *usecase.PredictionSink, m repository.Metrics, cfg *config.Config, log *applogger.Logger) *mid.PersistPipeline {
	return mid.NewPersistPipeline(sink, m,
		mid.WithBufferSize(cfg.Persist.BufferSize),
		mid.WithRetry(cfg.Persist.MaxAttempts, cfg.Persist.BackoffMin, cfg.Persist.BackoffMax),
		mid.WithTimeout(cfg.Persist.Timeout),
		mid.WithLogger(log),
	)
}

// ProvideRiskScorer returns the weighted heuristic model.
func ProvideRiskScorer() service.RiskScorer {
	return risk.NewWeightedModel()
}

// ProvideRiskUseCase creates the real-time evaluation use case.
func ProvideRiskUseCase(
	events repository.EventStore,
	predictions repository.PredictionStore,
	scorer service.RiskScorer,
	pipe *mid.PersistPipeline,
	c cache.Service,
	m repository.Metrics,
	log *applogger.Logger,
	cfg *config.Config,
) *usecase.RiskUseCase {
	return usecase.NewRiskUseCase(events, predictions, scorer, pipe, c, m, log, usecase.RiskConfig{
		TypicalCheckoutSeconds: cfg.Risk.TypicalCheckoutSeconds,
		HysteresisThreshold:    cfg.Risk.HysteresisThreshold,
		SessionWindow:          cfg.Risk.SessionWindow,
		HistoryWindow:          cfg.Risk.HistoryWindow,
		EvaluateTimeout:        cfg.Risk.EvaluateTimeout,
		HistoryCacheTTL:        cfg.Risk.HistoryCacheTTL,
		HistoricalTypical:      cfg.Risk.HistoricalTypical,
	})
}

// ProvideIdentityResolver maps request credentials to customers.
// Resolved credentials stay in a bounded process-local cache, never in Redis.
func ProvideIdentityResolver(cfg *config.Config) service.IdentityResolver {
	if cfg.Auth.Mode == "http" {
		client := xhttp.NewClient(xhttp.WithTimeout(cfg.Auth.Timeout))
		credentials := cache.NewMemoryCache(
			cache.WithMemoryMaxSize(cfg.Auth.CacheSize),
			cache.WithMemoryDefaultTTL(cfg.Auth.CacheTTL),
		)
		return identity.NewHTTPResolver(client, cfg.Auth.IdentityURL, credentials, cfg.Auth.CacheTTL)
	}
	return identity.NewHeaderResolver()
}

// ProvideRiskHandler creates the risk HTTP and websocket routes.
func ProvideRiskHandler(
	cfg *config.Config,
	log *applogger.Logger,
	uc *usecase.RiskUseCase,
	auth service.IdentityResolver,
	ch *pkgch.Client,
) *api.RiskEchoHandler {
	opts := []api.HandlerOption{
		api.WithHealthCheck("clickhouse", ch.Health),
		api.WithStream(api.StreamConfig{
			Interval:     cfg.Stream.Interval,
			WriteTimeout: cfg.Stream.WriteTimeout,
		}),
	}
	if cfg.RateLimit.Enabled {
		opts = append(opts, api.WithRateLimiter(ratelimit.New(cfg.RateLimit.RPS, cfg.RateLimit.Burst)))
	}
	return api.NewRiskEchoHandler(log, uc, auth, cfg.Auth.Header, opts...)
}

// ProvideHTTPServer creates the Echo server hosting the risk routes.
func ProvideHTTPServer(cfg *config.Config, log *applogger.Logger, h *api.RiskEchoHandler) *xhttp.Server {
	opts := []xhttp.ServerOption{
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(cfg.Server.CORS),
		xhttp.WithAuthHeader(cfg.Auth.Header),
		xhttp.WithLogger(log),
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetricsPath(cfg.Metrics.Path))
	}
	return xhttp.NewServer(opts, h)
}

// ProvideKafkaConsumer creates the checkout events consumer, or nil when disabled.
func ProvideKafkaConsumer(cfg *config.Config, log *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Consumer.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
		pkgkafka.WithConsumerLogger(log),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideCheckoutEventsHandler re-scores sessions as checkout events arrive.
func ProvideCheckoutEventsHandler(cfg *config.Config, uc *usecase.RiskUseCase, m repository.Metrics, log *applogger.Logger) pkgkafka.MessageHandler {
	return usecase.NewCheckoutEventsHandler(cfg.Kafka.EventsTopic, uc, m, log)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	log *applogger.Logger,
	httpServer *xhttp.Server,
	pipe *mid.PersistPipeline,
	consumer *pkgkafka.Consumer,
	handler pkgkafka.MessageHandler,
	pub repository.PredictionPublisher,
	producer *pkgkafka.Producer,
	c cache.Service,
	ch *pkgch.Client,
	auth service.IdentityResolver,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.TraceHook())
	}
	if cfg.Logger.Collector.Enabled && producer != nil {
		log.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   cfg.Logger.Collector.FlushInterval,
			CountThreshold: cfg.Logger.Collector.MaxBatch,
			Topic:          cfg.Logger.Collector.Topic,
			Publisher:      producer,
		})
	}
	return server.New(cfg, log, httpServer, pipe, consumer, handler, pub, producer, c, ch, auth)
}
