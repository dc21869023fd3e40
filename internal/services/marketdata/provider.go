package marketdata

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"IgniteX/internal/domain/models"
	domsvc "IgniteX/internal/domain/service"
)

const (
	candleInterval = time.Minute
	maxCandles     = 240

	atrWindow       = 14
	volumeWindowHot = 5
	imbalanceWindow = 20

	// Bars per day at the candle interval, used to scale per-bar range to a
	// daily figure under diffusion scaling.
	barsPerDay = 1440
)

type instrumentState struct {
	candles []models.Candle
	signed  []float64 // tick-rule signed volume per closed candle
	cur     *models.Candle
	curSign float64
	lastPx  float64
	lastAt  time.Time
}

// TickAggregatingProvider builds per-instrument snapshots from the live
// trade stream. Ticks are bucketed into one-minute candles; ATR, volume
// ratio, and order flow imbalance are derived from that history, so no
// separate candle API is needed.
type TickAggregatingProvider struct {
	mu     sync.RWMutex
	states map[string]*instrumentState
}

func NewTickAggregatingProvider() *TickAggregatingProvider {
	return &TickAggregatingProvider{states: make(map[string]*instrumentState)}
}

// OnTick folds one trade print into the instrument's candle history.
func (p *TickAggregatingProvider) OnTick(tick models.PriceTick) {
	if tick.Instrument == "" || tick.Price <= 0 {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	st, ok := p.states[tick.Instrument]
	if !ok {
		st = &instrumentState{}
		p.states[tick.Instrument] = st
	}

	bucket := tick.Timestamp.Truncate(candleInterval)
	if st.cur != nil && bucket.After(st.cur.Bucket) {
		st.candles = append(st.candles, *st.cur)
		st.signed = append(st.signed, st.curSign)
		if len(st.candles) > maxCandles {
			st.candles = st.candles[len(st.candles)-maxCandles:]
			st.signed = st.signed[len(st.signed)-maxCandles:]
		}
		st.cur = nil
	}

	if st.cur == nil {
		st.cur = &models.Candle{
			Bucket: bucket,
			Open:   tick.Price,
			High:   tick.Price,
			Low:    tick.Price,
		}
		st.curSign = 0
	}

	c := st.cur
	if tick.Price > c.High {
		c.High = tick.Price
	}
	if tick.Price < c.Low {
		c.Low = tick.Price
	}
	c.Close = tick.Price
	c.Volume += tick.Volume

	// Tick rule: an uptick counts the volume as buying, a downtick as
	// selling. Unchanged prices carry no sign.
	if st.lastPx > 0 {
		switch {
		case tick.Price > st.lastPx:
			st.curSign += tick.Volume
		case tick.Price < st.lastPx:
			st.curSign -= tick.Volume
		}
	}
	st.lastPx = tick.Price
	st.lastAt = tick.Timestamp
}

// Snapshot returns the current normalized view for one instrument.
func (p *TickAggregatingProvider) Snapshot(ctx context.Context, instrument string) (models.MarketSnapshot, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	st, ok := p.states[instrument]
	if !ok || st.lastPx <= 0 {
		return models.MarketSnapshot{}, fmt.Errorf("no market data for %s", instrument)
	}

	candles := append([]models.Candle(nil), st.candles...)
	if st.cur != nil {
		candles = append(candles, *st.cur)
	}

	return models.MarketSnapshot{
		Instrument:         instrument,
		LastPrice:          st.lastPx,
		Candles:            candles,
		ATRPct:             dailyATRPct(candles, st.lastPx),
		VolumeRatio:        volumeRatio(candles),
		OrderBookImbalance: flowImbalance(st.signed, st.candles),
		Timestamp:          st.lastAt,
	}, nil
}

// dailyATRPct averages the true range over the ATR window and scales the
// per-bar figure to a daily percentage with sqrt-of-time scaling.
func dailyATRPct(candles []models.Candle, lastPrice float64) float64 {
	if len(candles) < 2 || lastPrice <= 0 {
		return 0
	}
	start := len(candles) - atrWindow
	if start < 1 {
		start = 1
	}
	sum := 0.0
	n := 0
	for i := start; i < len(candles); i++ {
		prevClose := candles[i-1].Close
		tr := candles[i].High - candles[i].Low
		if hc := math.Abs(candles[i].High - prevClose); hc > tr {
			tr = hc
		}
		if lc := math.Abs(candles[i].Low - prevClose); lc > tr {
			tr = lc
		}
		sum += tr
		n++
	}
	if n == 0 {
		return 0
	}
	atr := sum / float64(n)
	return atr / lastPrice * 100 * math.Sqrt(barsPerDay)
}

func volumeRatio(candles []models.Candle) float64 {
	if len(candles) < volumeWindowHot*2 {
		return 1
	}
	total := 0.0
	for _, c := range candles {
		total += c.Volume
	}
	base := total / float64(len(candles))
	if base <= 0 {
		return 1
	}
	recent := 0.0
	for _, c := range candles[len(candles)-volumeWindowHot:] {
		recent += c.Volume
	}
	return recent / float64(volumeWindowHot) / base
}

// flowImbalance is net signed volume over gross volume for the recent
// window, in [-1, 1]. Positive means buyers dominated.
func flowImbalance(signed []float64, candles []models.Candle) float64 {
	if len(signed) == 0 {
		return 0
	}
	start := len(signed) - imbalanceWindow
	if start < 0 {
		start = 0
	}
	net := 0.0
	gross := 0.0
	for i := start; i < len(signed); i++ {
		net += signed[i]
		gross += candles[i].Volume
	}
	if gross <= 0 {
		return 0
	}
	return net / gross
}

var _ domsvc.MarketDataProvider = (*TickAggregatingProvider)(nil)
