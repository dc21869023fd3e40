package usecase

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"

	"IgniteX/internal/domain/models"
	"IgniteX/internal/domain/repository"
	"IgniteX/pkg/logger"
)

// Tier thresholds. The two boundaries are the load-bearing contract; the
// confidence blend below them is tunable.
const (
	highConfidence   = 70.0
	highAgreement    = 70.0
	highVotes        = 3
	mediumConfidence = 55.0
	mediumAgreement  = 55.0
	mediumVotes      = 2

	minWinnerVotes = 2

	// Final confidence blend between the winner's normalized weighted vote
	// and the agreement score.
	confidenceBlend = 0.6
	agreementBlend  = 0.4
)

var opinionValidate = validator.New()

// Aggregator combines N strategy opinions for one instrument into one
// weighted consensus verdict.
type Aggregator struct {
	weights repository.WeightStore
	metrics repository.Metrics
	logger  *logger.Logger
	now     func() time.Time
}

func NewAggregator(weights repository.WeightStore, metrics repository.Metrics, lgr *logger.Logger) *Aggregator {
	return &Aggregator{weights: weights, metrics: metrics, logger: lgr, now: time.Now}
}

// Aggregate runs one weighted vote. Malformed opinions are skipped, an empty
// set degrades to a NEUTRAL zero-confidence verdict, and the outputs are
// always inside [0,100].
func (a *Aggregator) Aggregate(ctx context.Context, instrument string, regime models.Regime, opinions []models.StrategyOpinion) models.ConsensusVerdict {
	verdict := models.ConsensusVerdict{
		Instrument:    instrument,
		Direction:     models.Neutral,
		Tier:          models.TierLow,
		Regime:        regime,
		Timestamp:     a.now(),
		WeightedVotes: make(map[models.Direction]float64),
		RawVotes:      make(map[models.Direction]int),
	}

	valid := make([]models.StrategyOpinion, 0, len(opinions))
	for _, op := range opinions {
		if err := opinionValidate.Struct(op); err != nil {
			a.metrics.RecordOpinion(op.StrategyID, false)
			a.logger.Warn("opinion skipped",
				logger.String("instrument", instrument),
				logger.String("strategy", op.StrategyID),
				logger.Error(err))
			continue
		}
		a.metrics.RecordOpinion(op.StrategyID, true)
		valid = append(valid, op)
	}

	if len(valid) == 0 {
		return verdict
	}
	verdict.Opinions = valid

	defaultWeight := 1.0 / float64(len(valid))
	weightSums := make(map[models.Direction]float64)

	for _, op := range valid {
		w := defaultWeight
		if a.weights != nil {
			learned, ok, err := a.weights.Weight(ctx, op.StrategyID, regime)
			switch {
			case err != nil:
				// Degrade to the uniform default, but never silently.
				a.metrics.RecordError("weight_lookup")
				a.logger.Warn("weight lookup failed",
					logger.String("instrument", instrument),
					logger.String("strategy", op.StrategyID),
					logger.Error(err))
			case ok:
				w = learned * defaultWeight
			}
		}
		verdict.WeightedVotes[op.Direction] += w * op.Confidence / 100
		verdict.RawVotes[op.Direction]++
		weightSums[op.Direction] += w
	}

	winner, ok := pickWinner(verdict.WeightedVotes, verdict.RawVotes)
	if !ok {
		return verdict
	}

	verdict.AgreementScore = float64(verdict.RawVotes[winner]) / float64(len(valid)) * 100

	winnerConf := 0.0
	if weightSums[winner] > 0 {
		winnerConf = verdict.WeightedVotes[winner] / weightSums[winner] * 100
	}
	verdict.Confidence = confidenceBlend*winnerConf + agreementBlend*verdict.AgreementScore

	if winner == models.Neutral {
		// A neutral consensus carries its confidence but never a direction
		// or a tradable tier.
		verdict.Direction = models.Neutral
		verdict.Tier = models.TierLow
		return verdict
	}

	verdict.Direction = winner
	verdict.Tier = classifyTier(verdict.Confidence, verdict.AgreementScore, verdict.RawVotes[winner])
	a.metrics.RecordVerdict(string(verdict.Tier))
	return verdict
}

// pickWinner returns the direction with the highest weighted vote among
// buckets holding at least two raw votes. A weighted tie yields NEUTRAL.
func pickWinner(weighted map[models.Direction]float64, raw map[models.Direction]int) (models.Direction, bool) {
	var (
		best     models.Direction
		bestVote float64
		found    bool
		tied     bool
	)
	for _, d := range []models.Direction{models.Long, models.Short, models.Neutral} {
		if raw[d] < minWinnerVotes {
			continue
		}
		v := weighted[d]
		switch {
		case !found || v > bestVote:
			best, bestVote, found, tied = d, v, true, false
		case v == bestVote:
			tied = true
		}
	}
	if !found {
		return models.Neutral, false
	}
	if tied {
		return models.Neutral, true
	}
	return best, true
}

// classifyTier applies the stepped tier contract.
func classifyTier(confidence, agreement float64, directionalVotes int) models.Tier {
	if confidence >= highConfidence && agreement >= highAgreement && directionalVotes >= highVotes {
		return models.TierHigh
	}
	if confidence >= mediumConfidence && agreement >= mediumAgreement && directionalVotes >= mediumVotes {
		return models.TierMedium
	}
	return models.TierLow
}
