package di

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	domrepo "StockBrain/internal/domain/repository"
	"StockBrain/internal/handler/api"
	internalrepo "StockBrain/internal/repository"
	svcmetrics "StockBrain/internal/service/metrics"
	"StockBrain/internal/service/ratelimit"
	"StockBrain/internal/service/twelvedata"
	"StockBrain/internal/services/forecast"
	"StockBrain/internal/services/network"
	"StockBrain/internal/usecase"
	"StockBrain/pkg/cache"
	pkgch "StockBrain/pkg/clickhouse"
	"StockBrain/pkg/config"
	xhttp "StockBrain/pkg/http"
	pkgkafka "StockBrain/pkg/kafka"
	applogger "StockBrain/pkg/logger"
	"StockBrain/pkg/metrics"
	pkgpg "StockBrain/pkg/postgres"
	"StockBrain/pkg/queue"
	"StockBrain/pkg/server"
	"StockBrain/pkg/sqldb"
)

const schemaTimeout = 10 * time.Second

// JobQueue is the queue the forecast jobs run on. Both queue implementations satisfy it.
type JobQueue interface {
	usecase.Enqueuer
	server.Worker
}

// ProvideLogger builds the root logger from the log section.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() domrepo.Metrics {
	svcmetrics.Register()
	return metrics.New()
}

// ProvideRedisCache connects to Redis. It returns nil when redis is disabled.
func ProvideRedisCache(cfg *config.Config) (*cache.RedisCache, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	rc, err := cache.NewRedisCache(context.Background(),
		cache.WithRedisAddr(cfg.Redis.Host, cfg.Redis.Port),
		cache.WithRedisAuth(cfg.Redis.Password, cfg.Redis.DB),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return rc, nil
}

// ProvideCache layers memory over Redis, or falls back to memory alone.
func ProvideCache(rc *cache.RedisCache) cache.Service {
	if rc == nil {
		return cache.NewMemoryCache(cache.WithMemoryMaxSize(5000))
	}
	return cache.NewLayeredCache(rc, 2000, time.Minute)
}

// ProvideClickHouseClient creates a ClickHouse client and the bars table. Nil unless the source is clickhouse.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if cfg.Source.Type != config.SourceClickHouse {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), schemaTimeout)
	defer cancel()

	client, err := pkgch.NewClient(ctx,
		pkgch.WithAddr(net.JoinHostPort(cfg.ClickHouse.Host, strconv.Itoa(cfg.ClickHouse.Port))),
		pkgch.WithAuth(cfg.ClickHouse.Database, cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithCompression(cfg.ClickHouse.Compress),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	if err := client.InitSchema(ctx, internalrepo.ClickHouseSchema(cfg.ClickHouse.Database)); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvidePostgresClient opens Postgres and creates the bars table. Nil unless the source is postgres.
func ProvidePostgresClient(cfg *config.Config) (*pkgpg.Client, error) {
	if cfg.Source.Type != config.SourcePostgres {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), schemaTimeout)
	defer cancel()

	client, err := pkgpg.NewClient(ctx, cfg.Postgres.DSN, sqldb.PoolConfig{
		MaxOpenConns:    cfg.Postgres.MaxOpen,
		MaxIdleConns:    cfg.Postgres.MaxIdle,
		ConnMaxLifetime: cfg.Postgres.ConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("postgres client: %w", err)
	}

	if err := client.InitSchema(ctx, internalrepo.PostgresSchema()); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("postgres schema: %w", err)
	}
	return client, nil
}

// ProvideBarStore returns the writable store for the configured source, or nil for twelvedata.
func ProvideBarStore(cfg *config.Config, ch *pkgch.Client, pg *pkgpg.Client, l *applogger.Logger) domrepo.BarStore {
	switch {
	case ch != nil:
		s := internalrepo.NewClickHouseBarStore(ch.SQL(), cfg.ClickHouse.Database)
		s.SetLogger(l)
		return s
	case pg != nil:
		s := internalrepo.NewPostgresBarStore(pg.SQL())
		s.SetLogger(l)
		return s
	default:
		return nil
	}
}

// ProvideTwelveDataClient builds the vendor client. Nil without an API key.
func ProvideTwelveDataClient(cfg *config.Config, l *applogger.Logger) *twelvedata.Client {
	if cfg.TwelveData.APIKey == "" {
		return nil
	}
	return twelvedata.New(twelvedata.Config{
		APIKey:          cfg.TwelveData.APIKey,
		BaseURL:         cfg.TwelveData.BaseURL,
		Timeout:         cfg.TwelveData.Timeout,
		RequestsPerSec:  cfg.TwelveData.RequestsPerSec,
		Burst:           cfg.TwelveData.Burst,
		MaxRetryElapsed: cfg.TwelveData.MaxRetryElapsed,
	}, l)
}

// ProvideBarSource wraps the store (or the TwelveData client) in the bars cache.
func ProvideBarSource(cfg *config.Config, store domrepo.BarStore, td *twelvedata.Client, c cache.Service, l *applogger.Logger) (*internalrepo.CachedBarSource, error) {
	var next domrepo.BarSource
	switch {
	case store != nil:
		next = store
	case td != nil:
		next = td
	default:
		return nil, fmt.Errorf("source %q has neither a bar store nor a twelvedata api key", cfg.Source.Type)
	}
	src := internalrepo.NewCachedBarSource(next, c, cfg.Source.CacheTTL)
	src.SetLogger(l)
	return src, nil
}

// ProvideMarketDirectory exposes symbol search and quotes when the vendor is configured.
func ProvideMarketDirectory(td *twelvedata.Client) domrepo.MarketDirectory {
	if td == nil {
		return nil
	}
	return td
}

// ProvideKafkaProducer creates a Kafka producer. Nil when kafka is disabled.
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
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideForecastPublisher publishes finished forecasts to kafka, or drops them.
func ProvideForecastPublisher(cfg *config.Config, producer *pkgkafka.Producer) domrepo.Publisher {
	if producer == nil {
		return internalrepo.NopPublisher{}
	}
	return internalrepo.NewKafkaForecastPublisher(producer, cfg.Kafka.Topics.Forecasts)
}

// ProvideKafkaConsumer creates the bars consumer. Nil unless kafka and the consumer are enabled.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled || !cfg.Kafka.Consumer.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerAutoOffsetReset(cfg.Kafka.Consumer.Offset),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideBarsIngestHandler handles the bars topic. Nil when there is no store to write to.
func ProvideBarsIngestHandler(cfg *config.Config, store domrepo.BarStore, src *internalrepo.CachedBarSource, m domrepo.Metrics) *usecase.BarsIngestHandler {
	if store == nil {
		return nil
	}
	return usecase.NewBarsIngestHandler(cfg.Kafka.Topics.Bars, store, m).WithInvalidator(src)
}

// ProvideEngine builds the forecasting engine from the engine section.
func ProvideEngine(cfg *config.Config, l *applogger.Logger) (*forecast.Engine, error) {
	opts := []forecast.Option{
		forecast.WithWindow(cfg.Engine.Window),
		forecast.WithEpochs(cfg.Engine.Epochs, cfg.Engine.ErrorThreshold),
		forecast.WithLogger(l),
	}
	if cfg.Engine.LearningRate > 0 {
		opts = append(opts, forecast.WithLearningRate(cfg.Engine.LearningRate))
	}
	if cfg.Engine.Seed != 0 {
		opts = append(opts, forecast.WithSeed(cfg.Engine.Seed))
	}
	if len(cfg.Engine.Architecture) > 0 {
		arch, err := architecture(cfg.Engine.Architecture)
		if err != nil {
			return nil, err
		}
		opts = append(opts, forecast.WithArchitecture(arch))
	}

	e, err := forecast.NewEngine(opts...)
	if err != nil {
		return nil, fmt.Errorf("forecast engine: %w", err)
	}
	return e, nil
}

func architecture(layers []config.LayerConfig) ([]network.LayerSpec, error) {
	arch := make([]network.LayerSpec, len(layers))
	for i, lc := range layers {
		arch[i] = network.LayerSpec{Size: lc.Size, BatchNorm: lc.BatchNorm, Dropout: lc.Dropout}
		// the input entry only carries a width
		if i == 0 || lc.Activation == "" {
			continue
		}
		act, err := network.ParseActivation(lc.Activation)
		if err != nil {
			return nil, fmt.Errorf("engine.architecture[%d]: %w", i, err)
		}
		arch[i].Activation = act
	}
	return arch, nil
}

func ProvideForecastUseCase(
	cfg *config.Config,
	src *internalrepo.CachedBarSource,
	engine *forecast.Engine,
	pub domrepo.Publisher,
	m domrepo.Metrics,
	l *applogger.Logger,
) *usecase.ForecastUseCase {
	return usecase.NewForecastUseCase(src, engine, pub, m, l, usecase.ForecastConfig{
		MaxDays: cfg.Forecast.MaxDays,
		Timeout: cfg.Forecast.Timeout,
	})
}

func ProvideBatchForecastUseCase(cfg *config.Config, uc *usecase.ForecastUseCase) *usecase.BatchForecastUseCase {
	return usecase.NewBatchForecastUseCase(uc, cfg.Forecast.BatchConcurrency)
}

func ProvideBarsUseCase(src *internalrepo.CachedBarSource) *usecase.BarsUseCase {
	return usecase.NewBarsUseCase(src)
}

func ProvideMarketUseCase(dir domrepo.MarketDirectory, src *internalrepo.CachedBarSource, c cache.Service, l *applogger.Logger) *usecase.MarketUseCase {
	return usecase.NewMarketUseCase(dir, src, c, l)
}

// ProvideJobStore keeps job records in the shared cache.
func ProvideJobStore(cfg *config.Config, c cache.Service) domrepo.JobStore {
	return internalrepo.NewCacheJobStore(c, cfg.Queue.JobTTL)
}

// ProvideJobQueue runs forecast jobs on Redis when the queue is enabled, in-process otherwise.
func ProvideJobQueue(
	cfg *config.Config,
	rc *cache.RedisCache,
	store domrepo.JobStore,
	uc *usecase.ForecastUseCase,
	l *applogger.Logger,
) JobQueue {
	qcfg := &queue.QueueConfig{
		Workers:    cfg.Queue.Workers,
		QueueSize:  cfg.Queue.QueueSize,
		RetryLimit: cfg.Queue.RetryLimit,
		RetryDelay: cfg.Queue.RetryDelay,
		JobTimeout: cfg.Forecast.Timeout,
	}
	job := usecase.NewForecastJobHandler(store, uc, l)

	if cfg.Queue.Enabled && rc != nil {
		q := queue.NewRedisQueue(l, qcfg, rc.Client(), queue.WithKeyPrefix(cfg.Redis.Prefix+":queue"))
		q.RegisterJob(job)
		return q
	}
	q := queue.NewMemoryQueue(l, qcfg)
	q.RegisterJob(job)
	return q
}

func ProvideForecastJobs(store domrepo.JobStore, q JobQueue) *usecase.ForecastJobs {
	return usecase.NewForecastJobs(store, q)
}

// ProvideRateLimiter limits forecast routes per client. Nil when rate_limit_rps is zero.
func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	if cfg.Forecast.RateLimitRPS <= 0 {
		return nil
	}
	return ratelimit.New(cfg.Forecast.RateLimitRPS, cfg.Forecast.RateLimitBurst)
}

// ProvideHealthChecks collects a ping per configured backend.
func ProvideHealthChecks(store domrepo.BarStore, rc *cache.RedisCache) map[string]api.HealthCheck {
	checks := map[string]api.HealthCheck{}
	if store != nil {
		checks["bars"] = store.Health
	}
	if rc != nil {
		checks["redis"] = rc.Ping
	}
	return checks
}

// ProvideHTTPHandler registers every route group on one server.
func ProvideHTTPHandler(
	l *applogger.Logger,
	uc *usecase.ForecastUseCase,
	batch *usecase.BatchForecastUseCase,
	jobs *usecase.ForecastJobs,
	bars *usecase.BarsUseCase,
	market *usecase.MarketUseCase,
	rl *ratelimit.Limiter,
	checks map[string]api.HealthCheck,
) xhttp.Handler {
	return xhttp.Handlers{
		api.NewHealthHandler(checks),
		api.NewForecastHandler(l, uc, batch, jobs, rl),
		api.NewBarsHandler(l, bars),
		api.NewMarketHandler(l, market, rl),
	}
}

func ProvideHTTPServer(cfg *config.Config, h xhttp.Handler, l *applogger.Logger) *xhttp.Server {
	return xhttp.NewServer(h,
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithMetrics(cfg.Metrics.Enabled, cfg.Metrics.Path),
		xhttp.WithCORSOrigins(cfg.Server.CORSOrigins...),
		xhttp.WithLogger(l),
	)
}

// kafkaLogPublisher ships aggregated error and warn logs to the logs topic.
type kafkaLogPublisher struct {
	p *pkgkafka.Producer
}

func (k kafkaLogPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return k.p.Publish(ctx, topic, nil, payload)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	srv *xhttp.Server,
	q JobQueue,
	consumer *pkgkafka.Consumer,
	ingest *usecase.BarsIngestHandler,
	producer *pkgkafka.Producer,
	c cache.Service,
	ch *pkgch.Client,
	pg *pkgpg.Client,
) *server.App {
	opts := []server.Option{server.WithWorker("forecast-jobs", q)}

	if consumer != nil {
		consumer.SetLogger(l)
		consumer.WithConsumerHook(pkgkafka.NewHookChain(pkgkafka.TraceHook{}, pkgkafka.NewLoggingHook(l, 5*time.Second)))
		if ingest != nil {
			opts = append(opts, server.WithConsumer(consumer, ingest))
		} else {
			l.Warn("kafka consumer enabled but source has no bar store, bars topic ignored",
				applogger.String("source", cfg.Source.Type))
		}
	}

	// closed in reverse: producer last so shutdown logs still ship
	if producer != nil {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          cfg.Kafka.Topics.Logs,
			Publisher:      kafkaLogPublisher{p: producer},
		})
		opts = append(opts, server.WithCloser("kafka producer", producer))
	}
	if ch != nil {
		opts = append(opts, server.WithCloser("clickhouse", ch))
	}
	if pg != nil {
		opts = append(opts, server.WithCloser("postgres", pg))
	}
	if c != nil {
		opts = append(opts, server.WithCloser("cache", c))
	}

	return server.New(cfg, l, srv, opts...)
}
