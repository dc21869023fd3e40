package strategy

import (
	"math"

	"IgniteX/internal/domain/models"
)

const (
	targetATRStep = 1.0
	stopATRMult   = 1.5
)

// tradeLevels derives entry, three ATR-spaced targets, and a stop from the
// snapshot. ATRPct is a daily percentage, so the absolute step scales with
// price.
func tradeLevels(snapshot models.MarketSnapshot, dir models.Direction) (entry float64, targets []float64, stop float64) {
	entry = snapshot.LastPrice
	atr := entry * snapshot.ATRPct / 100
	if atr <= 0 {
		atr = entry * 0.005
	}

	sign := 1.0
	if dir == models.Short {
		sign = -1.0
	}

	targets = []float64{
		entry + sign*targetATRStep*atr,
		entry + sign*2*targetATRStep*atr,
		entry + sign*3*targetATRStep*atr,
	}
	stop = entry - sign*stopATRMult*atr
	return entry, targets, stop
}

func sma(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func stddev(values []float64, mean float64) float64 {
	if len(values) < 2 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)-1))
}

func closes(candles []models.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}
