package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"IgniteX/internal/domain/models"
)

func newTestAggregator(weights *stubWeights) (*Aggregator, *countingMetrics) {
	metrics := newCountingMetrics()
	return NewAggregator(weights, metrics, testLogger()), metrics
}

func TestAggregateSplitScenario(t *testing.T) {
	agg, _ := newTestAggregator(newStubWeights())

	verdict := agg.Aggregate(context.Background(), "BTCUSDT", models.RegimeTrending, []models.StrategyOpinion{
		opinion("momentum", models.Long, 80),
		opinion("breakout", models.Long, 75),
		opinion("meanrev", models.Short, 60),
		opinion("volume", models.Neutral, 50),
	})

	assert.Equal(t, models.Long, verdict.Direction)
	assert.Equal(t, 2, verdict.RawVotes[models.Long])
	assert.InDelta(t, 50.0, verdict.AgreementScore, 1e-9)
	assert.Equal(t, models.TierLow, verdict.Tier)
	// Winner confidence 77.5 blended with agreement 50.
	assert.InDelta(t, 66.5, verdict.Confidence, 0.01)
}

func TestAggregateUnanimous(t *testing.T) {
	agg, metrics := newTestAggregator(newStubWeights())

	verdict := agg.Aggregate(context.Background(), "BTCUSDT", models.RegimeTrending, []models.StrategyOpinion{
		opinion("a", models.Long, 80),
		opinion("b", models.Long, 90),
		opinion("c", models.Long, 100),
	})

	assert.Equal(t, models.Long, verdict.Direction)
	assert.InDelta(t, 100.0, verdict.AgreementScore, 1e-9)
	assert.Equal(t, models.TierHigh, verdict.Tier)
	assert.Equal(t, 1, metrics.count("verdict:HIGH"))
}

func TestAggregateEmptyInput(t *testing.T) {
	agg, _ := newTestAggregator(newStubWeights())

	verdict := agg.Aggregate(context.Background(), "BTCUSDT", models.RegimeChoppy, nil)

	assert.Equal(t, models.Neutral, verdict.Direction)
	assert.Zero(t, verdict.Confidence)
	assert.Equal(t, models.TierLow, verdict.Tier)
}

func TestAggregateSkipsInvalidOpinions(t *testing.T) {
	agg, metrics := newTestAggregator(newStubWeights())

	bad := opinion("broken", models.Long, 150) // confidence out of range
	verdict := agg.Aggregate(context.Background(), "BTCUSDT", models.RegimeTrending, []models.StrategyOpinion{
		bad,
		opinion("solo", models.Long, 90),
	})

	// One valid directional vote is below the two-vote winner floor.
	assert.Equal(t, models.Neutral, verdict.Direction)
	assert.Equal(t, 1, metrics.count("opinion:broken:false"))
	assert.Equal(t, 1, metrics.count("opinion:solo:true"))
}

func TestAggregateWeightedTieIsNeutral(t *testing.T) {
	agg, _ := newTestAggregator(newStubWeights())

	verdict := agg.Aggregate(context.Background(), "BTCUSDT", models.RegimeChoppy, []models.StrategyOpinion{
		opinion("a", models.Long, 70),
		opinion("b", models.Long, 70),
		opinion("c", models.Short, 70),
		opinion("d", models.Short, 70),
	})

	assert.Equal(t, models.Neutral, verdict.Direction)
	assert.Equal(t, models.TierLow, verdict.Tier)
}

func TestAggregateLearnedWeightsFlipWinner(t *testing.T) {
	weights := newStubWeights()
	ctx := context.Background()
	require.NoError(t, weights.SetWeight(ctx, "a", models.RegimeTrending, 3.0))
	require.NoError(t, weights.SetWeight(ctx, "b", models.RegimeTrending, 3.0))
	agg, _ := newTestAggregator(weights)

	opinions := []models.StrategyOpinion{
		opinion("a", models.Long, 60),
		opinion("b", models.Long, 60),
		opinion("c", models.Short, 90),
		opinion("d", models.Short, 90),
	}

	verdict := agg.Aggregate(ctx, "BTCUSDT", models.RegimeTrending, opinions)
	assert.Equal(t, models.Long, verdict.Direction)

	// Without the learned boost the stronger raw confidence wins.
	unweighted, _ := newTestAggregator(newStubWeights())
	verdict = unweighted.Aggregate(ctx, "BTCUSDT", models.RegimeTrending, opinions)
	assert.Equal(t, models.Short, verdict.Direction)
}

func TestAggregateDegradesToDefaultWeightsOnStoreError(t *testing.T) {
	weights := newStubWeights()
	weights.err = errors.New("store unavailable")
	agg, metrics := newTestAggregator(weights)

	verdict := agg.Aggregate(context.Background(), "BTCUSDT", models.RegimeTrending, []models.StrategyOpinion{
		opinion("a", models.Long, 80),
		opinion("b", models.Long, 90),
	})

	// The failed lookups fall back to uniform weights and are counted.
	assert.Equal(t, models.Long, verdict.Direction)
	assert.InDelta(t, 91.0, verdict.Confidence, 0.01)
	assert.Equal(t, 2, metrics.count("error:weight_lookup"))
}

func TestAggregateOutputsStayBounded(t *testing.T) {
	agg, _ := newTestAggregator(newStubWeights())

	sets := [][]models.StrategyOpinion{
		{opinion("a", models.Long, 100), opinion("b", models.Long, 100)},
		{opinion("a", models.Short, 0), opinion("b", models.Short, 0)},
		{opinion("a", models.Long, 33), opinion("b", models.Short, 66), opinion("c", models.Long, 99)},
	}
	for _, ops := range sets {
		verdict := agg.Aggregate(context.Background(), "BTCUSDT", models.RegimeBreakout, ops)
		assert.GreaterOrEqual(t, verdict.Confidence, 0.0)
		assert.LessOrEqual(t, verdict.Confidence, 100.0)
		assert.GreaterOrEqual(t, verdict.AgreementScore, 0.0)
		assert.LessOrEqual(t, verdict.AgreementScore, 100.0)
	}
}

func TestClassifyTierBoundaries(t *testing.T) {
	cases := []struct {
		name       string
		confidence float64
		agreement  float64
		votes      int
		want       models.Tier
	}{
		{"exact high", 70, 70, 3, models.TierHigh},
		{"confidence 71", 71, 70, 3, models.TierHigh},
		{"confidence 69", 69, 70, 3, models.TierMedium},
		{"agreement 69", 70, 69, 3, models.TierMedium},
		{"two votes only", 70, 70, 2, models.TierMedium},
		{"exact medium", 55, 55, 2, models.TierMedium},
		{"below medium confidence", 54.9, 55, 2, models.TierLow},
		{"below medium agreement", 55, 54.9, 2, models.TierLow},
		{"single vote", 90, 100, 1, models.TierLow},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, classifyTier(tc.confidence, tc.agreement, tc.votes))
		})
	}
}
