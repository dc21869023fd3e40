package models

import "time"

// Tier classifies the strength of a consensus verdict.
type Tier string

const (
	TierHigh   Tier = "HIGH"
	TierMedium Tier = "MEDIUM"
	TierLow    Tier = "LOW"
)

// ConsensusVerdict is the weighted combination of all opinions for one
// instrument in one cycle. Owned by the aggregator, read-only afterward.
type ConsensusVerdict struct {
	Instrument     string            `json:"instrument"`
	Direction      Direction         `json:"direction"`
	Confidence     float64           `json:"confidence"`      // [0,100]
	AgreementScore float64           `json:"agreement_score"` // [0,100]
	Tier           Tier              `json:"tier"`
	Regime         Regime            `json:"regime"`
	Timestamp      time.Time         `json:"timestamp"`
	Opinions       []StrategyOpinion `json:"opinions"`

	// Diagnostic detail kept for gating and the operator API.
	WeightedVotes map[Direction]float64 `json:"weighted_votes"`
	RawVotes      map[Direction]int     `json:"raw_votes"`
}

// Contributors returns the opinions that voted the verdict's direction.
func (v ConsensusVerdict) Contributors() []StrategyOpinion {
	out := make([]StrategyOpinion, 0, len(v.Opinions))
	for _, op := range v.Opinions {
		if op.Direction == v.Direction {
			out = append(out, op)
		}
	}
	return out
}

// LeadOpinion returns the highest-confidence contributor, or false when the
// verdict has none (NEUTRAL or empty input).
func (v ConsensusVerdict) LeadOpinion() (StrategyOpinion, bool) {
	var lead StrategyOpinion
	found := false
	for _, op := range v.Contributors() {
		if !found || op.Confidence > lead.Confidence {
			lead = op
			found = true
		}
	}
	return lead, found
}
