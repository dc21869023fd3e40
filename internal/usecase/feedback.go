package usecase

import (
	"context"
	"fmt"
	"sync"

	"IgniteX/internal/domain/models"
	"IgniteX/internal/domain/repository"
	"IgniteX/pkg/config"
	"IgniteX/pkg/logger"
	"IgniteX/pkg/util"
)

// Weight bounds and tuning steps.
const (
	minStrategyWeight = 0.1
	maxStrategyWeight = 3.0
	defaultWinRate    = 0.5
	thresholdStep     = 0.05
	thresholdCeiling  = 0.9
)

// classFactors nudges contributor weights multiplicatively per outcome class.
// Ordered like the training values so a full stop always costs more than a
// wrong timeout.
var classFactors = map[models.OutcomeClass]float64{
	models.WinTP3:            1.05,
	models.WinTP2:            1.04,
	models.WinTP1:            1.02,
	models.TimeoutValid:      1.00,
	models.TimeoutLowVol:     0.98,
	models.TimeoutStagnation: 0.97,
	models.TimeoutWrong:      0.90,
	models.LossPartial:       0.89,
	models.LossStopFull:      0.88,
}

// FeedbackLoop consumes resolved outcomes from the queue and folds them back
// into the strategy weight table. It also watches the timeout share of recent
// outcomes and proposes tightening the ML gate when approvals keep expiring.
type FeedbackLoop struct {
	cfg     *config.Manager
	weights repository.WeightStore
	metrics repository.Metrics
	logger  *logger.Logger

	mu       sync.Mutex
	timeouts []bool // rolling window, true = timed out
}

func NewFeedbackLoop(
	cfg *config.Manager,
	weights repository.WeightStore,
	metrics repository.Metrics,
	lgr *logger.Logger,
) *FeedbackLoop {
	return &FeedbackLoop{
		cfg:     cfg,
		weights: weights,
		metrics: metrics,
		logger:  lgr,
	}
}

// Process applies one outcome: weight nudge and win-rate EMA per contributor,
// then the timeout-rate check. Called once per record by the queue consumer.
func (f *FeedbackLoop) Process(ctx context.Context, record models.OutcomeRecord) error {
	fc := f.cfg.Current().Feedback
	factor, ok := classFactors[record.Class]
	if !ok {
		factor = 1.0
	}

	for _, strategyID := range record.Strategies {
		if err := f.adjust(ctx, strategyID, record, factor, fc.WinRateAlpha); err != nil {
			return fmt.Errorf("feedback adjust %s: %w", strategyID, err)
		}
	}

	f.observeTimeout(record.Class.IsTimeout(), fc.ObservationWindow, fc.TimeoutRateLimit)
	return nil
}

func (f *FeedbackLoop) adjust(ctx context.Context, strategyID string, record models.OutcomeRecord, factor, alpha float64) error {
	w, ok, err := f.weights.Weight(ctx, strategyID, record.Regime)
	if err != nil {
		return err
	}
	if !ok {
		w = 1.0
	}
	next := util.Clamp(w*factor, minStrategyWeight, maxStrategyWeight)
	if err := f.weights.SetWeight(ctx, strategyID, record.Regime, next); err != nil {
		return err
	}

	rate, ok, err := f.weights.WinRate(ctx, strategyID, record.Regime)
	if err != nil {
		return err
	}
	if !ok {
		rate = defaultWinRate
	}
	nextRate := rate + alpha*(record.TrainingValue-rate)
	if err := f.weights.SetWinRate(ctx, strategyID, record.Regime, nextRate); err != nil {
		return err
	}

	f.logger.Debug("strategy reweighted",
		logger.String("strategy", strategyID),
		logger.String("regime", string(record.Regime)),
		logger.String("class", string(record.Class)),
		logger.Float64("weight", next),
		logger.Float64("win_rate", nextRate))
	return nil
}

// observeTimeout tracks the timeout share over the observation window. When
// the share exceeds the limit, a higher ML threshold is proposed and, with
// auto-tune on, applied to the live config. The window resets after a
// proposal so one bad stretch triggers one proposal.
func (f *FeedbackLoop) observeTimeout(timedOut bool, window int, limit float64) {
	if window <= 0 {
		return
	}

	f.mu.Lock()
	f.timeouts = append(f.timeouts, timedOut)
	if len(f.timeouts) > window {
		f.timeouts = f.timeouts[len(f.timeouts)-window:]
	}
	if len(f.timeouts) < window {
		f.mu.Unlock()
		return
	}
	count := 0
	for _, t := range f.timeouts {
		if t {
			count++
		}
	}
	rate := float64(count) / float64(window)
	if rate <= limit {
		f.mu.Unlock()
		return
	}
	f.timeouts = nil
	f.mu.Unlock()

	current := f.cfg.Current()
	proposed := util.Clamp(current.Gate.MLThreshold+thresholdStep, 0, thresholdCeiling)
	f.metrics.RecordError("timeout_rate_exceeded")
	f.logger.Warn("timeout rate exceeded, proposing higher ml threshold",
		logger.Float64("timeout_rate", rate),
		logger.Float64("current_threshold", current.Gate.MLThreshold),
		logger.Float64("proposed_threshold", proposed))

	if current.Gate.AutoTune && proposed > current.Gate.MLThreshold {
		next := *current
		next.Gate.MLThreshold = proposed
		f.cfg.Apply(&next)
		f.logger.Info("ml threshold raised", logger.Float64("threshold", proposed))
	}
}
