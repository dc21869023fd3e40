package strategy

import (
	"context"
	"testing"
	"time"

	"IgniteX/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshotFromCloses(closes []float64, lastPrice, atrPct, volumeRatio float64) models.MarketSnapshot {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	candles := make([]models.Candle, len(closes))
	for i, c := range closes {
		candles[i] = models.Candle{
			Bucket: base.Add(time.Duration(i) * time.Minute),
			Open:   c,
			High:   c + 0.5,
			Low:    c - 0.5,
			Close:  c,
			Volume: 100,
		}
	}
	return models.MarketSnapshot{
		Instrument:  "BTCUSDT",
		LastPrice:   lastPrice,
		Candles:     candles,
		ATRPct:      atrPct,
		VolumeRatio: volumeRatio,
		Timestamp:   base.Add(time.Duration(len(closes)) * time.Minute),
	}
}

func risingCloses(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

func flatCloses(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestMomentumVotesLongOnUptrend(t *testing.T) {
	s := NewMomentum()
	snap := snapshotFromCloses(risingCloses(24, 100, 0.5), 111.5, 2.0, 1.2)

	op, err := s.Evaluate(context.Background(), "BTCUSDT", snap)
	require.NoError(t, err)
	require.NotNil(t, op)

	assert.Equal(t, "momentum", op.StrategyID)
	assert.Equal(t, models.Long, op.Direction)
	assert.InDelta(t, 95, op.Confidence, 0.5)
	assert.Equal(t, 111.5, op.Entry)
	require.Len(t, op.Targets, 3)
	assert.Greater(t, op.Targets[0], op.Entry)
	assert.Greater(t, op.Targets[2], op.Targets[1])
	assert.Less(t, op.Stop, op.Entry)
}

func TestMomentumVotesShortOnDowntrend(t *testing.T) {
	s := NewMomentum()
	snap := snapshotFromCloses(risingCloses(24, 120, -0.5), 108.5, 2.0, 1.2)

	op, err := s.Evaluate(context.Background(), "BTCUSDT", snap)
	require.NoError(t, err)
	require.NotNil(t, op)

	assert.Equal(t, models.Short, op.Direction)
	assert.Less(t, op.Targets[0], op.Entry)
	assert.Greater(t, op.Stop, op.Entry)
}

func TestMomentumNoCallOnFlatMarket(t *testing.T) {
	s := NewMomentum()
	snap := snapshotFromCloses(flatCloses(24, 100), 100, 2.0, 1.2)

	op, err := s.Evaluate(context.Background(), "BTCUSDT", snap)
	require.NoError(t, err)
	assert.Nil(t, op)
}

func TestMomentumNoCallOnThinVolume(t *testing.T) {
	s := NewMomentum()
	snap := snapshotFromCloses(risingCloses(24, 100, 0.5), 111.5, 2.0, 0.5)

	op, err := s.Evaluate(context.Background(), "BTCUSDT", snap)
	require.NoError(t, err)
	assert.Nil(t, op)
}

func TestMomentumNoCallWithoutHistory(t *testing.T) {
	s := NewMomentum()
	snap := snapshotFromCloses(risingCloses(10, 100, 0.5), 104.5, 2.0, 1.2)

	op, err := s.Evaluate(context.Background(), "BTCUSDT", snap)
	require.NoError(t, err)
	assert.Nil(t, op)
}

func alternatingWindow(n int, lo, hi float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		if i%2 == 0 {
			out[i] = lo
		} else {
			out[i] = hi
		}
	}
	return out
}

func TestMeanReversionFadesStretchedPrice(t *testing.T) {
	s := NewMeanReversion()
	// Mean 100, sigma ~0.513; last price 102 sits ~3.9 sigma above.
	snap := snapshotFromCloses(alternatingWindow(20, 99.5, 100.5), 102, 2.0, 1.0)

	op, err := s.Evaluate(context.Background(), "BTCUSDT", snap)
	require.NoError(t, err)
	require.NotNil(t, op)

	assert.Equal(t, "mean-reversion", op.StrategyID)
	assert.Equal(t, models.Short, op.Direction)
	assert.InDelta(t, 95, op.Confidence, 0.5)
	assert.Less(t, op.Targets[0], op.Entry)
}

func TestMeanReversionFadesLongBelowMean(t *testing.T) {
	s := NewMeanReversion()
	snap := snapshotFromCloses(alternatingWindow(20, 99.5, 100.5), 98, 2.0, 1.0)

	op, err := s.Evaluate(context.Background(), "BTCUSDT", snap)
	require.NoError(t, err)
	require.NotNil(t, op)
	assert.Equal(t, models.Long, op.Direction)
}

func TestMeanReversionQuietInsideBand(t *testing.T) {
	s := NewMeanReversion()
	snap := snapshotFromCloses(alternatingWindow(20, 99.5, 100.5), 100.5, 2.0, 1.0)

	op, err := s.Evaluate(context.Background(), "BTCUSDT", snap)
	require.NoError(t, err)
	assert.Nil(t, op)
}

func TestTradeLevelsScaleWithATR(t *testing.T) {
	snap := models.MarketSnapshot{LastPrice: 100, ATRPct: 2}

	entry, targets, stop := tradeLevels(snap, models.Long)
	assert.Equal(t, 100.0, entry)
	assert.InDelta(t, 102, targets[0], 1e-9)
	assert.InDelta(t, 106, targets[2], 1e-9)
	assert.InDelta(t, 97, stop, 1e-9)

	_, targets, stop = tradeLevels(snap, models.Short)
	assert.InDelta(t, 98, targets[0], 1e-9)
	assert.InDelta(t, 103, stop, 1e-9)
}
