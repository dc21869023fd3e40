package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"IgniteX/internal/domain/models"
	"IgniteX/pkg/config"
)

func outcomeOf(class models.OutcomeClass) models.OutcomeRecord {
	return models.OutcomeRecord{
		SignalID:      "sig-1",
		Instrument:    "BTCUSDT",
		Direction:     models.Long,
		Class:         class,
		Regime:        models.RegimeTrending,
		Strategies:    []string{"lead"},
		TrainingValue: class.TrainingValue(),
		ResolvedAt:    time.Now(),
	}
}

func newFeedbackFixture(manager *config.Manager) (*FeedbackLoop, *stubWeights) {
	weights := newStubWeights()
	return NewFeedbackLoop(manager, weights, newCountingMetrics(), testLogger()), weights
}

func TestFeedbackNudgesWeightFromDefault(t *testing.T) {
	loop, weights := newFeedbackFixture(testManager())
	ctx := context.Background()

	require.NoError(t, loop.Process(ctx, outcomeOf(models.WinTP1)))

	w, ok, err := weights.Weight(ctx, "lead", models.RegimeTrending)
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 1.02, w, 1e-9)
}

func TestFeedbackWeightClamps(t *testing.T) {
	loop, weights := newFeedbackFixture(testManager())
	ctx := context.Background()

	require.NoError(t, weights.SetWeight(ctx, "lead", models.RegimeTrending, 2.95))
	require.NoError(t, loop.Process(ctx, outcomeOf(models.WinTP3)))
	w, _, err := weights.Weight(ctx, "lead", models.RegimeTrending)
	require.NoError(t, err)
	assert.InDelta(t, 3.0, w, 1e-9)

	require.NoError(t, weights.SetWeight(ctx, "lead", models.RegimeTrending, 0.11))
	require.NoError(t, loop.Process(ctx, outcomeOf(models.LossStopFull)))
	w, _, err = weights.Weight(ctx, "lead", models.RegimeTrending)
	require.NoError(t, err)
	assert.InDelta(t, 0.1, w, 1e-9)
}

func TestFeedbackWinRateEMAMovesTowardOutcome(t *testing.T) {
	loop, weights := newFeedbackFixture(testManager())
	ctx := context.Background()

	require.NoError(t, loop.Process(ctx, outcomeOf(models.WinTP3)))
	rate, ok, err := weights.WinRate(ctx, "lead", models.RegimeTrending)
	require.NoError(t, err)
	require.True(t, ok)
	// From the 0.5 default toward 1.0 at alpha 0.1.
	assert.InDelta(t, 0.55, rate, 1e-9)

	require.NoError(t, loop.Process(ctx, outcomeOf(models.LossStopFull)))
	rate, _, err = weights.WinRate(ctx, "lead", models.RegimeTrending)
	require.NoError(t, err)
	assert.InDelta(t, 0.495, rate, 1e-9)
}

func TestFeedbackProposesThresholdOnTimeoutRate(t *testing.T) {
	cfg := testConfig()
	cfg.Feedback.ObservationWindow = 4
	cfg.Gate.AutoTune = true
	manager := config.Static(cfg)
	loop, _ := newFeedbackFixture(manager)
	ctx := context.Background()

	for _, class := range []models.OutcomeClass{
		models.TimeoutWrong, models.TimeoutStagnation, models.TimeoutLowVol, models.WinTP1,
	} {
		require.NoError(t, loop.Process(ctx, outcomeOf(class)))
	}

	assert.InDelta(t, 0.50, manager.Current().Gate.MLThreshold, 1e-9)
}

func TestFeedbackProposalWithoutAutoTuneLeavesThreshold(t *testing.T) {
	cfg := testConfig()
	cfg.Feedback.ObservationWindow = 4
	manager := config.Static(cfg)
	loop, _ := newFeedbackFixture(manager)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		require.NoError(t, loop.Process(ctx, outcomeOf(models.TimeoutWrong)))
	}

	assert.InDelta(t, 0.45, manager.Current().Gate.MLThreshold, 1e-9)
}

func TestFeedbackHealthyWindowNeverProposes(t *testing.T) {
	cfg := testConfig()
	cfg.Feedback.ObservationWindow = 4
	cfg.Gate.AutoTune = true
	manager := config.Static(cfg)
	loop, _ := newFeedbackFixture(manager)
	ctx := context.Background()

	for i := 0; i < 8; i++ {
		class := models.WinTP1
		if i%2 == 0 {
			class = models.TimeoutValid
		}
		require.NoError(t, loop.Process(ctx, outcomeOf(class)))
	}

	// Timeout rate sits exactly at the 0.5 limit, never above it.
	assert.InDelta(t, 0.45, manager.Current().Gate.MLThreshold, 1e-9)
}
