package di

import (
	"context"
	"fmt"
	"time"

	"IgniteX/internal/domain/models"
	"IgniteX/internal/domain/repository"
	domsvc "IgniteX/internal/domain/service"
	"IgniteX/internal/handler/api"
	mid "IgniteX/internal/middleware"
	internalrepo "IgniteX/internal/repository"
	"IgniteX/internal/services/marketdata"
	"IgniteX/internal/services/ml"
	regimesvc "IgniteX/internal/services/regime"
	"IgniteX/internal/services/strategy"
	"IgniteX/internal/usecase"
	pkgch "IgniteX/pkg/clickhouse"
	"IgniteX/pkg/config"
	xhttp "IgniteX/pkg/http"
	pkgkafka "IgniteX/pkg/kafka"
	"IgniteX/pkg/logger"
	"IgniteX/pkg/metrics"
	"IgniteX/pkg/queue"
	"IgniteX/pkg/server"

	"github.com/redis/go-redis/v9"
)

// ProvideLogger builds the structured logger from the log section.
func ProvideLogger(mgr *config.Manager) (*logger.Logger, error) {
	cfg := mgr.Current()
	return logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
}

// ProvideMetrics creates the Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideRedisClient creates the shared Redis client.
func ProvideRedisClient(mgr *config.Manager) (*redis.Client, error) {
	cfg := mgr.Current()
	cli := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := cli.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return cli, nil
}

// ProvideClickHouseClient creates the ClickHouse client and applies the
// archive schema.
func ProvideClickHouseClient(mgr *config.Manager) (*pkgch.Client, error) {
	cfg := mgr.Current()
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, internalrepo.SchemaStatements(cfg.ClickHouse.Database)); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideKafkaProducer creates the tier topic producer. Hashing by key keeps
// one instrument's signals on one partition.
func ProvideKafkaProducer(mgr *config.Manager) (*pkgkafka.Producer, error) {
	cfg := mgr.Current()
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithMaxAttempts(cfg.Kafka.MaxAttempts),
		pkgkafka.WithWriteTimeout(cfg.Kafka.WriteTimeout),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideDedupStore creates the Redis-backed duplicate suppression store.
func ProvideDedupStore(cli *redis.Client) repository.DedupStore {
	return internalrepo.NewRedisDedupStore(cli)
}

// ProvideWeightStore creates the per-regime weight and win-rate store.
func ProvideWeightStore(cli *redis.Client) *internalrepo.RedisWeightStore {
	return internalrepo.NewRedisWeightStore(cli)
}

// ProvideWeightStorePort exposes the weight store through its domain port.
func ProvideWeightStorePort(s *internalrepo.RedisWeightStore) repository.WeightStore {
	return s
}

// ProvideWeightReader exposes the weight tables to the operator API.
func ProvideWeightReader(s *internalrepo.RedisWeightStore) api.WeightReader {
	return s
}

// ProvideBufferStore creates the tier buffer persistence store.
func ProvideBufferStore(cli *redis.Client) repository.BufferStore {
	return internalrepo.NewRedisBufferStore(cli)
}

// ProvideSubscriberStore creates the Kafka-backed tier publisher.
func ProvideSubscriberStore(producer *pkgkafka.Producer, mgr *config.Manager) repository.SubscriberStore {
	cfg := mgr.Current()
	return internalrepo.NewKafkaSubscriberStore(producer, cfg.Kafka.TopicPrefix, cfg.Kafka.AlertTopic)
}

// ProvideSignalArchive creates the ClickHouse archive.
func ProvideSignalArchive(ch *pkgch.Client, lgr *logger.Logger) repository.SignalArchive {
	archive := internalrepo.NewCHSignalArchive(ch)
	archive.SetLogger(lgr)
	return archive
}

// ProvideQueue creates the Redis outcome queue in combined producer and
// consumer mode.
func ProvideQueue(lgr *logger.Logger, mgr *config.Manager, cli *redis.Client) *queue.RedisQueue {
	cfg := mgr.Current()
	return queue.NewRedisQueue(lgr, &queue.QueueConfig{
		Workers:    cfg.Queue.Workers,
		RetryLimit: cfg.Queue.RetryLimit,
		RetryDelay: cfg.Queue.RetryDelay,
	}, cli, queue.ModeProducerConsumer)
}

// ProvideOutcomeQueue adapts the Redis queue to the monitor's outcome port.
func ProvideOutcomeQueue(q *queue.RedisQueue) repository.OutcomeQueue {
	return usecase.NewQueueOutcomePublisher(q)
}

// ProvideStrategies lists the bundled pattern detectors.
func ProvideStrategies() []domsvc.Strategy {
	return []domsvc.Strategy{
		strategy.NewMomentum(),
		strategy.NewMeanReversion(),
	}
}

// ProvideRegimeDetector creates the candle-based regime classifier.
func ProvideRegimeDetector() domsvc.RegimeDetector {
	return regimesvc.NewHeuristicDetector()
}

// ProvideWinProbEstimator creates the external model client.
func ProvideWinProbEstimator(mgr *config.Manager) domsvc.WinProbEstimator {
	return ml.NewHTTPWinProbEstimator(mgr)
}

// ProvideMarketProvider creates the tick-fed snapshot provider.
func ProvideMarketProvider() *marketdata.TickAggregatingProvider {
	return marketdata.NewTickAggregatingProvider()
}

// ProvideMarketDataPort exposes the provider through its domain contract.
func ProvideMarketDataPort(p *marketdata.TickAggregatingProvider) domsvc.MarketDataProvider {
	return p
}

// ProvidePriceStream creates the WebSocket trade stream.
func ProvidePriceStream(mgr *config.Manager, lgr *logger.Logger) domsvc.PriceStream {
	cfg := mgr.Current()
	return marketdata.NewWSPriceStream(
		cfg.MarketData.WebSocketURL,
		cfg.MarketData.APIKey,
		cfg.MarketData.ReconnectDelay,
		cfg.MarketData.PingInterval,
		lgr,
	)
}

// ProvideAggregator creates the weighted consensus vote.
func ProvideAggregator(weights repository.WeightStore, m repository.Metrics, lgr *logger.Logger) *usecase.Aggregator {
	return usecase.NewAggregator(weights, m, lgr)
}

// ProvideExpiryCalculator creates the dynamic validity window calculator.
func ProvideExpiryCalculator() *usecase.ExpiryCalculator {
	return usecase.NewExpiryCalculator()
}

// ProvideQualityGate creates the three-stage admission gate.
func ProvideQualityGate(
	mgr *config.Manager,
	estimator domsvc.WinProbEstimator,
	weights repository.WeightStore,
	expiry *usecase.ExpiryCalculator,
	m repository.Metrics,
	lgr *logger.Logger,
) *usecase.QualityGate {
	return usecase.NewQualityGate(mgr, estimator, weights, expiry, m, lgr)
}

// ProvideDistributor creates the tiered release scheduler.
func ProvideDistributor(
	mgr *config.Manager,
	store repository.SubscriberStore,
	buffers repository.BufferStore,
	m repository.Metrics,
	lgr *logger.Logger,
) *usecase.Distributor {
	return usecase.NewDistributor(mgr, store, buffers, m, lgr)
}

// ProvideOutcomeMonitor creates the barrier classifier for released signals.
func ProvideOutcomeMonitor(
	archive repository.SignalArchive,
	outQueue repository.OutcomeQueue,
	dedup repository.DedupStore,
	m repository.Metrics,
	lgr *logger.Logger,
) *usecase.OutcomeMonitor {
	return usecase.NewOutcomeMonitor(archive, outQueue, dedup, m, lgr)
}

// ProvideFeedbackLoop creates the outcome-driven weight adjuster.
func ProvideFeedbackLoop(
	mgr *config.Manager,
	weights repository.WeightStore,
	m repository.Metrics,
	lgr *logger.Logger,
) *usecase.FeedbackLoop {
	return usecase.NewFeedbackLoop(mgr, weights, m, lgr)
}

// ProvideEngine creates the cycle driver.
func ProvideEngine(
	mgr *config.Manager,
	marketData domsvc.MarketDataProvider,
	regime domsvc.RegimeDetector,
	strategies []domsvc.Strategy,
	aggregator *usecase.Aggregator,
	gate *usecase.QualityGate,
	dedup repository.DedupStore,
	distributor *usecase.Distributor,
	archive repository.SignalArchive,
	m repository.Metrics,
	lgr *logger.Logger,
) *usecase.Engine {
	return usecase.NewEngine(mgr, marketData, regime, strategies, aggregator, gate,
		dedup, distributor, archive, m, lgr)
}

// ProvideTickPipeline bridges the price stream to the snapshot provider and
// the outcome monitor.
func ProvideTickPipeline(
	stream domsvc.PriceStream,
	mgr *config.Manager,
	m repository.Metrics,
	lgr *logger.Logger,
	provider *marketdata.TickAggregatingProvider,
	monitor *usecase.OutcomeMonitor,
) *mid.TickPipeline {
	cfg := mgr.Current()
	sinks := []mid.TickSink{
		mid.TickSinkFunc(func(_ context.Context, tick models.PriceTick) {
			provider.OnTick(tick)
		}),
		monitor,
	}
	return mid.NewTickPipeline(stream, cfg.Engine.Instruments, m, lgr, sinks,
		mid.WithMaxTicksPerSec(cfg.MarketData.MaxTicksPerSec))
}

// ProvideOperatorHandler creates the operational HTTP API.
func ProvideOperatorHandler(
	lgr *logger.Logger,
	mgr *config.Manager,
	monitor *usecase.OutcomeMonitor,
	distributor *usecase.Distributor,
	archive repository.SignalArchive,
	weights api.WeightReader,
) xhttp.Handler {
	return api.NewOperatorHandler(lgr, mgr, monitor, distributor, archive, weights)
}

// ProvideApp assembles the application. The release hook and the outcome job
// are attached here so the distributor, monitor, and feedback loop stay free
// of each other's constructors.
func ProvideApp(
	mgr *config.Manager,
	lgr *logger.Logger,
	engine *usecase.Engine,
	distributor *usecase.Distributor,
	monitor *usecase.OutcomeMonitor,
	feedback *usecase.FeedbackLoop,
	pipeline *mid.TickPipeline,
	q *queue.RedisQueue,
	handler xhttp.Handler,
	chClient *pkgch.Client,
	producer *pkgkafka.Producer,
	redisCli *redis.Client,
) *server.App {
	distributor.WithReleaseHook(monitor.Track)
	q.RegisterJob(usecase.NewOutcomeJob(feedback))
	return server.New(mgr, lgr, engine, distributor, monitor, pipeline, q,
		handler, chClient, producer, redisCli)
}
