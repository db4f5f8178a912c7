package di

import (
	"context"
	"fmt"
	"io"
	"time"

	"FinAlloc/internal/domain/models"
	"FinAlloc/internal/domain/repository"
	domsvc "FinAlloc/internal/domain/service"
	"FinAlloc/internal/handler/api"
	internalrepo "FinAlloc/internal/repository"
	"FinAlloc/internal/services/forecast"
	"FinAlloc/internal/services/portfolio"
	"FinAlloc/internal/usecase"
	pkgcache "FinAlloc/pkg/cache"
	pkgch "FinAlloc/pkg/clickhouse"
	"FinAlloc/pkg/config"
	xhttp "FinAlloc/pkg/http"
	pkgkafka "FinAlloc/pkg/kafka"
	applogger "FinAlloc/pkg/logger"
	"FinAlloc/pkg/metrics"
	"FinAlloc/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideModel loads the attention LSTM. Without a weights path it falls back
// to seeded random weights, which is only useful for local runs.
func ProvideModel(cfg *config.Config, l *applogger.Logger) (domsvc.SequencePredictor, error) {
	arch := forecast.Architecture{InputDim: 1, HiddenDim: cfg.Model.HiddenDim, OutputDim: 1}
	if cfg.Model.Path == "" {
		l.Warn("model.path not set, using random weights", applogger.Int("seed", int(cfg.Model.Seed)))
		return forecast.New(forecast.InitWeights(arch, cfg.Model.Seed), forecast.WithWindow(cfg.Model.Window))
	}
	m, err := forecast.Load(cfg.Model.Path, arch, forecast.WithWindow(cfg.Model.Window))
	if err != nil {
		return nil, err
	}
	l.Info("model loaded",
		applogger.String("path", cfg.Model.Path),
		applogger.String("arch", arch.String()),
		applogger.String("fingerprint", m.Fingerprint()),
	)
	return m, nil
}

// ProvideCacheService creates the in-memory cache, layered over Redis when enabled.
func ProvideCacheService(cfg *config.Config) (pkgcache.Service, error) {
	mem := []pkgcache.MemoryOption{
		pkgcache.WithMemoryMaxSize(cfg.Cache.Memory.MaxSize),
		pkgcache.WithMemoryCleanup(cfg.Cache.Memory.Cleanup),
	}
	if !cfg.Cache.Redis.Enabled {
		return pkgcache.NewMemoryCache(mem...), nil
	}
	r := cfg.Cache.Redis
	rc, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisAddr(r.Addr),
		pkgcache.WithRedisAuth(r.Password, r.DB),
		pkgcache.WithRedisPool(r.PoolSize, r.MinIdleConns, r.PoolTimeout),
		pkgcache.WithRedisPrefix(r.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return pkgcache.NewLayeredCache(rc,
		pkgcache.WithLayeredMemory(mem...),
		pkgcache.WithLayeredMemoryTTL(cfg.Cache.Memory.L1TTL),
	), nil
}

// ProvideForecastCache returns nil when forecast caching is disabled.
func ProvideForecastCache(cfg *config.Config, svc pkgcache.Service) repository.ForecastCache {
	if !cfg.Cache.Enabled {
		return nil
	}
	return internalrepo.NewCachedForecasts(svc, cfg.Cache.TTL)
}

// ProvideForecaster creates the return forecaster.
func ProvideForecaster(
	model domsvc.SequencePredictor,
	cache repository.ForecastCache,
	l *applogger.Logger,
	m repository.Metrics,
	cfg *config.Config,
) domsvc.ReturnForecaster {
	opts := []usecase.ForecasterOption{
		usecase.WithForecasterLogger(l),
		usecase.WithForecasterMetrics(m),
	}
	if cfg.Allocation.Workers > 0 {
		opts = append(opts, usecase.WithWorkers(cfg.Allocation.Workers))
	}
	if cache != nil {
		opts = append(opts, usecase.WithForecastCache(cache))
	}
	return usecase.NewReturnForecaster(model, opts...)
}

// ProvidePriceHistory opens the configured price source.
func ProvidePriceHistory(cfg *config.Config, l *applogger.Logger) (repository.PriceHistory, error) {
	switch cfg.History.Source {
	case "sqlite":
		h, err := internalrepo.OpenSQLitePriceHistory(cfg.History.SQLitePath)
		if err != nil {
			return nil, err
		}
		h.SetLogger(l)
		return h, nil
	case "clickhouse":
		client, err := pkgch.NewClient(
			pkgch.WithHost(cfg.ClickHouse.Host),
			pkgch.WithPort(cfg.ClickHouse.Port),
			pkgch.WithDatabase(cfg.ClickHouse.Database),
			pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
			pkgch.WithMaxConnections(10, 5),
			pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
			pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
			pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
		)
		if err != nil {
			return nil, fmt.Errorf("clickhouse client: %w", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := client.InitSchema(ctx, internalrepo.ClickHousePriceSchema(cfg.History.Table)); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("clickhouse schema: %w", err)
		}
		h := internalrepo.NewCHPriceHistory(client, cfg.History.Table)
		h.SetLogger(l)
		return h, nil
	default:
		h := internalrepo.NewCSVPriceHistory(cfg.History.Dir)
		h.SetLogger(l)
		return h, nil
	}
}

// ProvideKafkaProducer creates a Kafka producer, or nil when Kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
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
		pkgkafka.WithAutoCreateTopics(cfg.Kafka.Producer.AutoCreate),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideKafkaPlanPublisher wraps the producer, or returns nil without one.
func ProvideKafkaPlanPublisher(producer *pkgkafka.Producer, cfg *config.Config) *internalrepo.KafkaPlanPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaPlanPublisher(producer, cfg.Kafka.ResultTopic)
}

// ProvidePlanPublisher exposes the Kafka publisher as a PlanPublisher.
func ProvidePlanPublisher(k *internalrepo.KafkaPlanPublisher) repository.PlanPublisher {
	if k == nil {
		return nil
	}
	return k
}

// ProvidePipeline creates the allocation pipeline.
func ProvidePipeline(
	history repository.PriceHistory,
	forecaster domsvc.ReturnForecaster,
	publisher repository.PlanPublisher,
	l *applogger.Logger,
	m repository.Metrics,
	cfg *config.Config,
) (*usecase.AllocationPipeline, error) {
	opts := []usecase.PipelineOption{
		usecase.WithTopN(cfg.Allocation.TopN),
		usecase.WithAmplification(cfg.Allocation.Amplification),
		usecase.WithRule(models.AllocationRule(cfg.Allocation.Rule)),
		usecase.WithWindow(cfg.Model.Window),
		usecase.WithPipelineLogger(l),
		usecase.WithPipelineMetrics(m),
	}
	if publisher != nil {
		opts = append(opts, usecase.WithPlanPublisher(publisher))
	}
	return usecase.NewAllocationPipeline(history, forecaster, portfolio.DefaultTable(), opts...)
}

// ProvideKafkaConsumer creates a Kafka consumer, or nil when Kafka is disabled.
func ProvideKafkaConsumer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
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
		pkgkafka.WithConsumerLogger(l),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithConsumerHook(pkgkafka.TraceHook())
	return consumer, nil
}

// ProvidePlanRequestHandler creates the handler for the plan request topic.
func ProvidePlanRequestHandler(
	pipeline *usecase.AllocationPipeline,
	publisher repository.PlanPublisher,
	l *applogger.Logger,
	m repository.Metrics,
	cfg *config.Config,
) *usecase.PlanRequestHandler {
	return usecase.NewPlanRequestHandler(cfg.Kafka.RequestTopic, pipeline, publisher, l, m)
}

// ProvideInvestHandler creates the HTTP handler.
func ProvideInvestHandler(l *applogger.Logger, pipeline *usecase.AllocationPipeline) *api.InvestHandler {
	return api.NewInvestHandler(l, pipeline)
}

// ProvideHTTPServer creates the Echo server.
func ProvideHTTPServer(cfg *config.Config, l *applogger.Logger, h *api.InvestHandler) *xhttp.Server {
	return xhttp.NewServer([]xhttp.Handler{h},
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithRateLimit(cfg.Server.RateLimit.RPS, cfg.Server.RateLimit.Burst),
		xhttp.WithCORS(cfg.Server.CORS.Enabled, cfg.Server.CORS.Origins...),
		xhttp.WithLogger(l),
	)
}

// ProvideApp assembles the application and attaches the log digest when enabled.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	srv *xhttp.Server,
	consumer *pkgkafka.Consumer,
	planHandler *usecase.PlanRequestHandler,
	history repository.PriceHistory,
	cache pkgcache.Service,
	kpub *internalrepo.KafkaPlanPublisher,
) *server.App {
	closers := []io.Closer{history, cache}
	if kpub != nil {
		closers = append(closers, kpub)
		if cfg.Log.Digest.Enabled {
			l.AttachDigest(&applogger.DigestConfig{
				Interval:  cfg.Log.Digest.Interval,
				Threshold: cfg.Log.Digest.Threshold,
				Topic:     cfg.Log.Digest.Topic,
				Sink:      kpub,
			})
		}
	}
	var handlers []pkgkafka.MessageHandler
	if consumer != nil {
		handlers = append(handlers, planHandler)
	}
	return server.New(l, srv, consumer, handlers, closers...)
}
