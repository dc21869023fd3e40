package strategy

import (
	"context"
	"fmt"
	"math"
	"time"

	"IgniteX/internal/domain/models"
	domsvc "IgniteX/internal/domain/service"
)

const (
	momentumFastWindow = 8
	momentumSlowWindow = 24

	// Minimum fast/slow separation, as a fraction of the slow average,
	// before the crossover counts as a setup.
	momentumMinGap = 0.002

	momentumVolumeFloor = 0.8
)

// Momentum votes with the prevailing drift: a fast moving average pulling
// away from a slow one, backed by at least average volume.
type Momentum struct{}

func NewMomentum() *Momentum {
	return &Momentum{}
}

func (s *Momentum) ID() string {
	return "momentum"
}

func (s *Momentum) Evaluate(ctx context.Context, instrument string, snapshot models.MarketSnapshot) (*models.StrategyOpinion, error) {
	prices := closes(snapshot.Candles)
	if len(prices) < momentumSlowWindow {
		return nil, nil
	}

	fast := sma(prices[len(prices)-momentumFastWindow:])
	slow := sma(prices[len(prices)-momentumSlowWindow:])
	if slow <= 0 {
		return nil, fmt.Errorf("momentum %s: nonpositive slow average", instrument)
	}

	gap := (fast - slow) / slow
	if math.Abs(gap) < momentumMinGap || snapshot.VolumeRatio < momentumVolumeFloor {
		return nil, nil
	}

	dir := models.Long
	if gap < 0 {
		dir = models.Short
	}

	// Confidence grows with separation, saturating at 5x the entry gap.
	confidence := 55 + 40*math.Min(math.Abs(gap)/(5*momentumMinGap), 1)

	entry, targets, stop := tradeLevels(snapshot, dir)
	return &models.StrategyOpinion{
		StrategyID: s.ID(),
		Instrument: instrument,
		Direction:  dir,
		Confidence: confidence,
		Rationale:  fmt.Sprintf("ma gap %.2f%% with volume ratio %.2f", gap*100, snapshot.VolumeRatio),
		Entry:      entry,
		Targets:    targets,
		Stop:       stop,
		Timestamp:  time.Now(),
	}, nil
}

var _ domsvc.Strategy = (*Momentum)(nil)
