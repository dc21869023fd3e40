package usecase

import (
	"math"

	"IgniteX/internal/domain/models"
	"IgniteX/pkg/util"
)

// Validity window bounds in minutes.
const (
	minExpiryMinutes = 60.0
	maxExpiryMinutes = 1440.0

	minutesPerDay = 1440.0

	// Targets resolve on intraday bursts rather than the instrument's
	// average daily pace; calibrated so a 10% target against a 2%/day ATR
	// yields a 720 minute window.
	paceFactor = 10.0
)

// ExpiryInput carries everything the dynamic validity window depends on.
type ExpiryInput struct {
	Entry       float64
	Target      float64
	Stop        float64
	Regime      models.Regime
	ATRPct      float64 // daily average true range, percent
	Confidence  float64 // [0,100]
	VolumeRatio float64 // recent / average volume
}

// ExpiryCalculator computes minutes-to-expiry for an admitted verdict:
// short windows for fast, volatile, confident setups; long windows for
// slow, thin, low-conviction ones.
type ExpiryCalculator struct{}

func NewExpiryCalculator() *ExpiryCalculator {
	return &ExpiryCalculator{}
}

// Minutes returns the validity window clamped to [60, 1440]. Missing price
// or volatility inputs degrade to the longest window instead of failing.
func (c *ExpiryCalculator) Minutes(in ExpiryInput) float64 {
	if in.Entry <= 0 || in.ATRPct <= 0 {
		return maxExpiryMinutes
	}

	distance := math.Abs(in.Target-in.Entry) / in.Entry
	base := distance / (in.ATRPct / minutesPerDay) * paceFactor

	mult := regimeMultiplier(in.Regime) *
		volatilityMultiplier(in.ATRPct) *
		confidenceMultiplier(in.Confidence) *
		liquidityMultiplier(in.VolumeRatio)

	return util.Clamp(base*mult, minExpiryMinutes, maxExpiryMinutes)
}

func regimeMultiplier(r models.Regime) float64 {
	switch r {
	case models.RegimeTrending:
		return 1.5
	case models.RegimeChoppy:
		return 0.6
	case models.RegimeAccumulation:
		return 1.2
	default: // breakout and unknown
		return 1.0
	}
}

// volatilityMultiplier is monotone non-increasing in ATR: quiet instruments
// get more time, extreme ones less.
func volatilityMultiplier(atrPct float64) float64 {
	switch {
	case atrPct < 1:
		return 1.4
	case atrPct < 2:
		return 1.2
	case atrPct < 4:
		return 1.0
	case atrPct < 6:
		return 0.8
	default:
		return 0.6
	}
}

func confidenceMultiplier(confidence float64) float64 {
	// High-conviction setups get more room before expiry.
	return util.Lerp(0.8, 1.2, confidence/100)
}

func liquidityMultiplier(volumeRatio float64) float64 {
	switch {
	case volumeRatio >= 1.5:
		return 0.8 // price discovers faster in heavy volume
	case volumeRatio > 0 && volumeRatio <= 0.5:
		return 1.2
	default:
		return 1.0
	}
}
