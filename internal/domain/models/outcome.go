package models

import "time"

// OutcomeClass is the nine-way triple-barrier classification of a released
// signal.
type OutcomeClass string

const (
	// Upper barrier touched first, by deepest target crossed on that tick.
	WinTP1 OutcomeClass = "WIN_TP1"
	WinTP2 OutcomeClass = "WIN_TP2"
	WinTP3 OutcomeClass = "WIN_TP3"

	// Lower barrier touched first, or an adverse manual close before it.
	LossStopFull OutcomeClass = "LOSS_STOP_FULL"
	LossPartial  OutcomeClass = "LOSS_PARTIAL"

	// Time barrier crossed first; subtype disambiguates cause from the final
	// unrealized move.
	TimeoutValid      OutcomeClass = "TIMEOUT_VALID"
	TimeoutWrong      OutcomeClass = "TIMEOUT_WRONG"
	TimeoutLowVol     OutcomeClass = "TIMEOUT_LOWVOL"
	TimeoutStagnation OutcomeClass = "TIMEOUT_STAGNATION"
)

// trainingValues maps each class to a scalar in [0,1]. Every WIN value
// exceeds every TIMEOUT and LOSS value, which is what lets the feedback loop
// tell a premature-but-correct call from an outright wrong one.
var trainingValues = map[OutcomeClass]float64{
	WinTP3:            1.00,
	WinTP2:            0.95,
	WinTP1:            0.85,
	TimeoutValid:      0.50,
	TimeoutLowVol:     0.35,
	TimeoutStagnation: 0.30,
	TimeoutWrong:      0.15,
	LossPartial:       0.10,
	LossStopFull:      0.00,
}

// TrainingValue returns the scalar feedback value for the class. Unknown
// classes score a neutral 0.5.
func (c OutcomeClass) TrainingValue() float64 {
	if v, ok := trainingValues[c]; ok {
		return v
	}
	return 0.5
}

// IsWin reports whether the class is a price-barrier win.
func (c OutcomeClass) IsWin() bool {
	return c == WinTP1 || c == WinTP2 || c == WinTP3
}

// IsTimeout reports whether the time barrier resolved the signal.
func (c OutcomeClass) IsTimeout() bool {
	switch c {
	case TimeoutValid, TimeoutWrong, TimeoutLowVol, TimeoutStagnation:
		return true
	}
	return false
}

// OutcomeRecord is produced once per resolved signal by the outcome monitor
// and consumed exactly once by the feedback loop.
type OutcomeRecord struct {
	SignalID      string        `json:"signal_id"`
	Instrument    string        `json:"instrument"`
	Direction     Direction     `json:"direction"`
	Class         OutcomeClass  `json:"class"`
	ExitPrice     float64       `json:"exit_price"`
	ReturnPct     float64       `json:"return_pct"`
	Duration      time.Duration `json:"duration"`
	Regime        Regime        `json:"regime"`
	Strategies    []string      `json:"strategies"` // winning-direction contributors
	TrainingValue float64       `json:"training_value"`
	ResolvedAt    time.Time     `json:"resolved_at"`
}
