package models

import "time"

// Direction is a strategy's directional call on an instrument.
type Direction string

const (
	Long    Direction = "LONG"
	Short   Direction = "SHORT"
	Neutral Direction = "NEUTRAL"
)

// Opposite returns the mirrored direction. Neutral mirrors to itself.
func (d Direction) Opposite() Direction {
	switch d {
	case Long:
		return Short
	case Short:
		return Long
	default:
		return Neutral
	}
}

// StrategyOpinion is one independent call per strategy per cycle. Immutable
// after production.
type StrategyOpinion struct {
	StrategyID string    `json:"strategy_id" validate:"required"`
	Instrument string    `json:"instrument" validate:"required"`
	Direction  Direction `json:"direction" validate:"required,oneof=LONG SHORT NEUTRAL"`
	Confidence float64   `json:"confidence" validate:"gte=0,lte=100"`
	Rationale  string    `json:"rationale"`
	Entry      float64   `json:"entry" validate:"gte=0"`
	Targets    []float64 `json:"targets" validate:"max=3,dive,gt=0"`
	Stop       float64   `json:"stop" validate:"gte=0"`
	Timestamp  time.Time `json:"timestamp"`
}
