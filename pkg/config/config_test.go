package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalYAML = `
engine:
  instruments: [BTCUSDT, ETHUSDT]
kafka:
  brokers: ["localhost:9092"]
distributor:
  tiers:
    - name: premium
      cadence: 15m
    - name: free
      cadence: 2h
`

func TestParseDefaults(t *testing.T) {
	c, err := Parse([]byte(minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, []string{"HIGH", "MEDIUM"}, c.Gate.AcceptTiers)
	assert.Equal(t, 0.45, c.Gate.MLThreshold)
	assert.Equal(t, 0.35, c.Gate.WinRateThreshold)
	assert.Equal(t, 24*time.Hour, c.Dedup.Window)
	assert.Equal(t, 5*time.Second, c.Distributor.CheckInterval)
	assert.Equal(t, 25, c.Distributor.Tiers[0].BufferCap)
	assert.Equal(t, "info", c.Log.Level)
}

func TestParseRejectsLowAcceptTier(t *testing.T) {
	_, err := Parse([]byte(minimalYAML + `
gate:
  accept_tiers: [HIGH, LOW]
`))
	assert.Error(t, err)
}

func TestParseRejectsCheckIntervalSlowerThanCadence(t *testing.T) {
	_, err := Parse([]byte(`
engine:
  instruments: [BTCUSDT]
kafka:
  brokers: ["localhost:9092"]
distributor:
  check_interval: 30m
  tiers:
    - name: premium
      cadence: 15m
`))
	assert.Error(t, err)
}

func TestParseRequiresInstruments(t *testing.T) {
	_, err := Parse([]byte(`
kafka:
  brokers: ["localhost:9092"]
distributor:
  tiers:
    - name: premium
      cadence: 15m
`))
	assert.Error(t, err)
}

func TestManagerApplyNotifiesListeners(t *testing.T) {
	c, err := Parse([]byte(minimalYAML))
	require.NoError(t, err)

	m := Static(c)
	var seen *Config
	m.OnReload(func(next *Config) { seen = next })

	next := *c
	next.Gate.MLThreshold = 0.6
	m.Apply(&next)

	require.NotNil(t, seen)
	assert.Equal(t, 0.6, seen.Gate.MLThreshold)
	assert.Equal(t, 0.6, m.Current().Gate.MLThreshold)
}
