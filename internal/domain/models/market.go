package models

import "time"

// Regime is the detected market state for an instrument.
type Regime string

const (
	RegimeTrending     Regime = "trending"
	RegimeChoppy       Regime = "choppy"
	RegimeBreakout     Regime = "breakout"
	RegimeAccumulation Regime = "accumulation"
)

// Candle is one OHLCV bar from the market snapshot provider.
type Candle struct {
	Bucket time.Time `json:"bucket"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// MarketSnapshot is the normalized per-instrument view supplied by the
// upstream market data collaborator. The core treats it as an opaque read.
type MarketSnapshot struct {
	Instrument         string    `json:"instrument"`
	LastPrice          float64   `json:"last_price"`
	Candles            []Candle  `json:"candles"`
	ATRPct             float64   `json:"atr_pct"`      // daily average true range, percent
	VolumeRatio        float64   `json:"volume_ratio"` // recent / average volume
	OrderBookImbalance float64   `json:"orderbook_imbalance"`
	Timestamp          time.Time `json:"timestamp"`
}

// PriceTick is a single trade print from the price stream.
type PriceTick struct {
	Instrument string    `json:"instrument"`
	Price      float64   `json:"price"`
	Volume     float64   `json:"volume"`
	Timestamp  time.Time `json:"timestamp"`
}
