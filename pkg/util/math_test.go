package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClamp(t *testing.T) {
	assert.Equal(t, 60.0, Clamp(12, 60, 1440))
	assert.Equal(t, 1440.0, Clamp(7200, 60, 1440))
	assert.Equal(t, 720.0, Clamp(720, 60, 1440))
}

func TestLerp(t *testing.T) {
	assert.Equal(t, 0.8, Lerp(0.8, 1.2, 0))
	assert.Equal(t, 1.2, Lerp(0.8, 1.2, 1))
	assert.InDelta(t, 1.0, Lerp(0.8, 1.2, 0.5), 1e-9)
	// out-of-range t is clamped
	assert.Equal(t, 1.2, Lerp(0.8, 1.2, 4))
}

func TestPctChange(t *testing.T) {
	assert.InDelta(t, 10.0, PctChange(100, 110), 1e-9)
	assert.InDelta(t, -5.0, PctChange(100, 95), 1e-9)
	assert.Equal(t, 0.0, PctChange(0, 50))
}
