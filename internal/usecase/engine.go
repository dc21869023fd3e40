package usecase

import (
	"context"
	"sync"
	"time"

	"IgniteX/internal/domain/models"
	"IgniteX/internal/domain/repository"
	"IgniteX/internal/domain/service"
	"IgniteX/pkg/config"
	"IgniteX/pkg/logger"
)

// Engine drives the admission path: one serialized aggregation and gating
// pass per instrument per cycle, instruments processed in parallel. One bad
// instrument never halts a cycle.
type Engine struct {
	cfg         *config.Manager
	marketData  service.MarketDataProvider
	regime      service.RegimeDetector
	strategies  []service.Strategy
	aggregator  *Aggregator
	gate        *QualityGate
	dedup       repository.DedupStore
	distributor *Distributor
	archive     repository.SignalArchive
	metrics     repository.Metrics
	logger      *logger.Logger
	clock       func() time.Time
}

func NewEngine(
	cfg *config.Manager,
	marketData service.MarketDataProvider,
	regime service.RegimeDetector,
	strategies []service.Strategy,
	aggregator *Aggregator,
	gate *QualityGate,
	dedup repository.DedupStore,
	distributor *Distributor,
	archive repository.SignalArchive,
	metrics repository.Metrics,
	lgr *logger.Logger,
) *Engine {
	return &Engine{
		cfg:         cfg,
		marketData:  marketData,
		regime:      regime,
		strategies:  strategies,
		aggregator:  aggregator,
		gate:        gate,
		dedup:       dedup,
		distributor: distributor,
		archive:     archive,
		metrics:     metrics,
		logger:      lgr,
		clock:       time.Now,
	}
}

// Start launches the cycle loop and the dedup sweep loop.
func (e *Engine) Start(ctx context.Context) {
	go e.runCycles(ctx)
	go e.runSweep(ctx)
}

func (e *Engine) runCycles(ctx context.Context) {
	ticker := time.NewTicker(e.cfg.Current().Engine.CycleInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.RunCycle(ctx)
		}
	}
}

func (e *Engine) runSweep(ctx context.Context) {
	ticker := time.NewTicker(e.cfg.Current().Dedup.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			dc := e.cfg.Current().Dedup
			removed, err := e.dedup.Sweep(ctx, dc.Window, dc.MaxEntries)
			if err != nil {
				e.metrics.RecordError("dedup_sweep")
				e.logger.Error("dedup sweep failed", logger.Error(err))
				continue
			}
			if removed > 0 {
				e.logger.Debug("dedup swept", logger.Int("removed", removed))
			}
		}
	}
}

// RunCycle evaluates every configured instrument once, in parallel.
func (e *Engine) RunCycle(ctx context.Context) {
	instruments := e.cfg.Current().Engine.Instruments
	started := e.clock()

	var wg sync.WaitGroup
	for _, instrument := range instruments {
		wg.Add(1)
		go func(instrument string) {
			defer wg.Done()
			e.processInstrument(ctx, instrument)
		}(instrument)
	}
	wg.Wait()

	e.metrics.RecordLatency("cycle", e.clock().Sub(started).Seconds())
}

func (e *Engine) processInstrument(ctx context.Context, instrument string) {
	snapshot, err := e.marketData.Snapshot(ctx, instrument)
	if err != nil {
		e.metrics.RecordError("snapshot")
		e.logger.Warn("snapshot unavailable",
			logger.String("instrument", instrument), logger.Error(err))
		return
	}

	regime, err := e.regime.Detect(ctx, snapshot)
	if err != nil {
		// Regime feeds multipliers and lookups, not correctness; degrade to
		// the neutral default rather than skipping the instrument.
		regime = models.RegimeChoppy
		e.logger.Debug("regime detection failed, assuming choppy",
			logger.String("instrument", instrument), logger.Error(err))
	}

	opinions := e.collectOpinions(ctx, instrument, snapshot)
	verdict := e.aggregator.Aggregate(ctx, instrument, regime, opinions)
	if verdict.Direction == models.Neutral {
		return
	}

	decision := e.gate.Evaluate(ctx, verdict, snapshot)
	if !decision.Accepted {
		e.logger.Debug("verdict rejected",
			logger.String("instrument", instrument),
			logger.Strings("gates", decision.FailedGates),
			logger.String("reason", decision.Reason))
		return
	}
	signal := *decision.Signal

	dc := e.cfg.Current().Dedup
	duplicate, remaining, err := e.dedup.Reserve(ctx, signal.DedupKey(), dc.Window)
	if err != nil {
		e.metrics.RecordError("dedup_reserve")
		e.logger.Error("dedup reserve failed",
			logger.String("instrument", instrument), logger.Error(err))
		return
	}
	if duplicate {
		e.metrics.RecordDuplicate(instrument)
		e.logger.Debug("duplicate suppressed",
			logger.String("key", signal.DedupKey()),
			logger.Duration("remaining", remaining))
		return
	}

	e.distributor.Enqueue(ctx, signal)
	if err := e.archive.ArchiveSignal(ctx, signal); err != nil {
		e.metrics.RecordError("signal_archive")
		e.logger.Warn("signal archive failed",
			logger.String("signal", signal.ID), logger.Error(err))
	}

	e.logger.Info("signal admitted",
		logger.String("signal", signal.ID),
		logger.String("instrument", instrument),
		logger.String("direction", string(signal.Verdict.Direction)),
		logger.String("tier", string(signal.Verdict.Tier)),
		logger.Float64("confidence", signal.Verdict.Confidence))
}

// collectOpinions asks every registered strategy for its read. A nil opinion
// means no call this cycle; a strategy error is logged and skipped.
func (e *Engine) collectOpinions(ctx context.Context, instrument string, snapshot models.MarketSnapshot) []models.StrategyOpinion {
	opinions := make([]models.StrategyOpinion, 0, len(e.strategies))
	for _, s := range e.strategies {
		op, err := s.Evaluate(ctx, instrument, snapshot)
		if err != nil {
			e.metrics.RecordError("strategy")
			e.logger.Warn("strategy errored",
				logger.String("strategy", s.ID()),
				logger.String("instrument", instrument),
				logger.Error(err))
			continue
		}
		if op == nil {
			continue
		}
		opinions = append(opinions, *op)
	}
	return opinions
}
