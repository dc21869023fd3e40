package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrainingValuesOrderWinsAboveEverythingElse(t *testing.T) {
	wins := []OutcomeClass{WinTP1, WinTP2, WinTP3}
	others := []OutcomeClass{
		TimeoutValid, TimeoutWrong, TimeoutLowVol, TimeoutStagnation,
		LossPartial, LossStopFull,
	}

	for _, w := range wins {
		for _, o := range others {
			assert.Greater(t, w.TrainingValue(), o.TrainingValue(),
				"%s must outrank %s", w, o)
		}
	}
}

func TestTrainingValuesStayInUnitInterval(t *testing.T) {
	for class, v := range trainingValues {
		assert.GreaterOrEqual(t, v, 0.0, "%s", class)
		assert.LessOrEqual(t, v, 1.0, "%s", class)
	}
	assert.Equal(t, 0.5, OutcomeClass("bogus").TrainingValue())
}

func TestClassPredicates(t *testing.T) {
	assert.True(t, WinTP2.IsWin())
	assert.False(t, WinTP2.IsTimeout())
	assert.True(t, TimeoutStagnation.IsTimeout())
	assert.False(t, LossStopFull.IsWin())
	assert.False(t, LossStopFull.IsTimeout())
}
