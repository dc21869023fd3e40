package regime

import (
	"context"
	"fmt"
	"math"

	"IgniteX/internal/domain/models"
	domsvc "IgniteX/internal/domain/service"
)

const (
	// Minimum history needed before the classifier trusts its ratios.
	minCandles = 12

	trendEfficiency    = 0.55
	breakoutVolume     = 1.8
	breakoutRangeRatio = 1.6
	quietATRPct        = 0.6
	accumulationVolume = 1.15
)

// HeuristicDetector classifies the market regime from recent candles using
// Kaufman's efficiency ratio for trend strength and volume/range expansion
// for breakouts. No external model service is involved.
type HeuristicDetector struct{}

func NewHeuristicDetector() *HeuristicDetector {
	return &HeuristicDetector{}
}

func (d *HeuristicDetector) Detect(ctx context.Context, snapshot models.MarketSnapshot) (models.Regime, error) {
	candles := snapshot.Candles
	if len(candles) < minCandles {
		return "", fmt.Errorf("regime detect %s: need %d candles, have %d",
			snapshot.Instrument, minCandles, len(candles))
	}

	// Range expansion on the latest bar relative to the lookback average.
	avgRange := 0.0
	for _, c := range candles {
		avgRange += c.High - c.Low
	}
	avgRange /= float64(len(candles))
	lastRange := candles[len(candles)-1].High - candles[len(candles)-1].Low

	if avgRange > 0 &&
		lastRange/avgRange >= breakoutRangeRatio &&
		snapshot.VolumeRatio >= breakoutVolume {
		return models.RegimeBreakout, nil
	}

	if efficiencyRatio(candles) >= trendEfficiency {
		return models.RegimeTrending, nil
	}

	if snapshot.ATRPct > 0 && snapshot.ATRPct <= quietATRPct &&
		snapshot.VolumeRatio >= accumulationVolume {
		return models.RegimeAccumulation, nil
	}

	return models.RegimeChoppy, nil
}

// efficiencyRatio is net price change over the window divided by the sum of
// bar-to-bar absolute changes. 1.0 is a straight line, 0.0 pure noise.
func efficiencyRatio(candles []models.Candle) float64 {
	first := candles[0].Close
	last := candles[len(candles)-1].Close

	noise := 0.0
	for i := 1; i < len(candles); i++ {
		noise += math.Abs(candles[i].Close - candles[i-1].Close)
	}
	if noise == 0 {
		return 0
	}
	return math.Abs(last-first) / noise
}

var _ domsvc.RegimeDetector = (*HeuristicDetector)(nil)
