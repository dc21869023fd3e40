package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	mid "IgniteX/internal/middleware"
	"IgniteX/internal/usecase"
	pkgch "IgniteX/pkg/clickhouse"
	"IgniteX/pkg/config"
	xhttp "IgniteX/pkg/http"
	pkgkafka "IgniteX/pkg/kafka"
	applogger "IgniteX/pkg/logger"
	"IgniteX/pkg/queue"

	"github.com/redis/go-redis/v9"
)

const configWatchInterval = 10 * time.Second

// App encapsulates the entire application lifecycle.
type App struct {
	cfg         *config.Manager
	logger      *applogger.Logger
	engine      *usecase.Engine
	distributor *usecase.Distributor
	monitor     *usecase.OutcomeMonitor
	pipeline    *mid.TickPipeline
	queue       *queue.RedisQueue
	handler     xhttp.Handler
	httpServer  *xhttp.Server
	chClient    *pkgch.Client
	producer    *pkgkafka.Producer
	redis       *redis.Client
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Manager,
	logger *applogger.Logger,
	engine *usecase.Engine,
	distributor *usecase.Distributor,
	monitor *usecase.OutcomeMonitor,
	pipeline *mid.TickPipeline,
	q *queue.RedisQueue,
	handler xhttp.Handler,
	chClient *pkgch.Client,
	producer *pkgkafka.Producer,
	redisCli *redis.Client,
) *App {
	return &App{
		cfg:         cfg,
		logger:      logger,
		engine:      engine,
		distributor: distributor,
		monitor:     monitor,
		pipeline:    pipeline,
		queue:       q,
		handler:     handler,
		chClient:    chClient,
		producer:    producer,
		redis:       redisCli,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := a.logger
	snap := a.cfg.Current()

	// Hot reload of thresholds, cadences, and windows.
	a.cfg.Watch(ctx, configWatchInterval, func(err error) {
		l.Warn("config reload rejected, keeping previous snapshot", applogger.Error(err))
	})

	if err := a.queue.Start(); err != nil {
		return err
	}

	if err := a.distributor.Start(ctx); err != nil {
		l.Error("distributor start failed", applogger.Error(err))
		return err
	}
	l.Info("distributor started")

	a.monitor.Start(ctx)
	l.Info("outcome monitor started")

	if err := a.pipeline.Start(ctx); err != nil {
		// The engine degrades to skipping instruments without market data,
		// so a feed outage at boot is not fatal. Keep retrying.
		l.Error("tick pipeline start failed, retrying in background", applogger.Error(err))
		go a.retryPipeline(ctx)
	} else {
		l.Info("tick pipeline started", applogger.Strings("instruments", snap.Engine.Instruments))
	}

	a.engine.Start(ctx)
	l.Info("engine started",
		applogger.Duration("cycle_interval", snap.Engine.CycleInterval),
		applogger.Int("instruments", len(snap.Engine.Instruments)))

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(snap.Server.Port),
		xhttp.WithTimeouts(snap.Server.ReadTimeout, snap.Server.WriteTimeout, snap.Server.ShutdownTimeout),
		xhttp.WithMetricsPath(metricsPath(snap)),
	)
	if err := a.httpServer.Start(); err != nil {
		l.Error("http server start error", applogger.Error(err))
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	l.Info("shutdown signal received")
	cancel()
	return a.shutdown()
}

func (a *App) retryPipeline(ctx context.Context) {
	delay := a.cfg.Current().MarketData.ReconnectDelay
	if delay <= 0 {
		delay = 5 * time.Second
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		if err := a.pipeline.Start(ctx); err != nil {
			a.logger.Warn("tick pipeline retry failed", applogger.Error(err))
			continue
		}
		a.logger.Info("tick pipeline started after retry")
		return
	}
}

// shutdown gracefully stops all services.
func (a *App) shutdown() error {
	l := a.logger
	snap := a.cfg.Current()

	a.pipeline.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), snap.Server.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		l.Error("http shutdown error", applogger.Error(err))
	}

	if err := a.queue.Stop(shutdownCtx); err != nil {
		l.Warn("queue stop error", applogger.Error(err))
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			l.Warn("kafka producer close error", applogger.Error(err))
		}
	}
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			l.Warn("clickhouse close error", applogger.Error(err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			l.Warn("redis close error", applogger.Error(err))
		}
	}

	l.Info("shutdown complete")
	return nil
}

func metricsPath(c *config.Config) string {
	if !c.Metrics.Enabled {
		return ""
	}
	return c.Metrics.Path
}
