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
	meanRevWindow = 20

	// Entry and saturation bands in standard deviations from the mean.
	meanRevEntryZ = 2.0
	meanRevMaxZ   = 3.5
)

// MeanReversion fades stretched prices: when the last price sits more than
// two standard deviations from its rolling mean, it votes for the snap back.
type MeanReversion struct{}

func NewMeanReversion() *MeanReversion {
	return &MeanReversion{}
}

func (s *MeanReversion) ID() string {
	return "mean-reversion"
}

func (s *MeanReversion) Evaluate(ctx context.Context, instrument string, snapshot models.MarketSnapshot) (*models.StrategyOpinion, error) {
	prices := closes(snapshot.Candles)
	if len(prices) < meanRevWindow {
		return nil, nil
	}

	window := prices[len(prices)-meanRevWindow:]
	mean := sma(window)
	sigma := stddev(window, mean)
	if sigma <= 0 {
		return nil, nil
	}

	z := (snapshot.LastPrice - mean) / sigma
	if math.Abs(z) < meanRevEntryZ {
		return nil, nil
	}

	// Stretched above the mean means fade short, below means fade long.
	dir := models.Short
	if z < 0 {
		dir = models.Long
	}

	excess := math.Min(math.Abs(z), meanRevMaxZ) - meanRevEntryZ
	confidence := 55 + 40*excess/(meanRevMaxZ-meanRevEntryZ)

	entry, targets, stop := tradeLevels(snapshot, dir)
	return &models.StrategyOpinion{
		StrategyID: s.ID(),
		Instrument: instrument,
		Direction:  dir,
		Confidence: confidence,
		Rationale:  fmt.Sprintf("price %.1f sigma from %d-bar mean", z, meanRevWindow),
		Entry:      entry,
		Targets:    targets,
		Stop:       stop,
		Timestamp:  time.Now(),
	}, nil
}

var _ domsvc.Strategy = (*MeanReversion)(nil)
