package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"IgniteX/internal/domain/models"
	"IgniteX/pkg/config"
	"IgniteX/pkg/logger"
)

func testConfig() *config.Config {
	c := &config.Config{}
	c.Engine.Instruments = []string{"BTCUSDT"}
	c.Engine.CycleInterval = time.Minute
	c.Gate.AcceptTiers = []string{"HIGH", "MEDIUM"}
	c.Gate.MLThreshold = 0.45
	c.Gate.WinRateThreshold = 0.35
	c.Dedup.Window = 24 * time.Hour
	c.Dedup.SweepInterval = 10 * time.Minute
	c.Dedup.MaxEntries = 10000
	c.Distributor.CheckInterval = 5 * time.Second
	c.Distributor.Tiers = []config.TierConfig{
		{Name: "vip", Cadence: time.Hour, BufferCap: 25},
		{Name: "basic", Cadence: 4 * time.Hour, BufferCap: 25},
	}
	c.Feedback.WinRateAlpha = 0.1
	c.Feedback.ObservationWindow = 20
	c.Feedback.TimeoutRateLimit = 0.5
	c.Kafka.RetryBackoff = time.Millisecond
	c.Kafka.RetryMax = 2
	return c
}

func testManager() *config.Manager {
	return config.Static(testConfig())
}

func testLogger() *logger.Logger {
	return logger.Nop()
}

// opinion builds a valid directional opinion for BTCUSDT.
func opinion(strategyID string, dir models.Direction, confidence float64) models.StrategyOpinion {
	return models.StrategyOpinion{
		StrategyID: strategyID,
		Instrument: "BTCUSDT",
		Direction:  dir,
		Confidence: confidence,
		Entry:      100,
		Targets:    []float64{110, 115, 120},
		Stop:       95,
		Timestamp:  time.Now(),
	}
}

type weightKey struct {
	strategy string
	regime   models.Regime
}

// stubWeights is an in-memory WeightStore. Setting err fails every lookup.
type stubWeights struct {
	mu       sync.Mutex
	err      error
	weights  map[weightKey]float64
	winRates map[weightKey]float64
}

func newStubWeights() *stubWeights {
	return &stubWeights{
		weights:  make(map[weightKey]float64),
		winRates: make(map[weightKey]float64),
	}
}

func (s *stubWeights) Weight(_ context.Context, id string, r models.Regime) (float64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, false, s.err
	}
	w, ok := s.weights[weightKey{id, r}]
	return w, ok, nil
}

func (s *stubWeights) SetWeight(_ context.Context, id string, r models.Regime, w float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.weights[weightKey{id, r}] = w
	return nil
}

func (s *stubWeights) WinRate(_ context.Context, id string, r models.Regime) (float64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rate, ok := s.winRates[weightKey{id, r}]
	return rate, ok, nil
}

func (s *stubWeights) SetWinRate(_ context.Context, id string, r models.Regime, rate float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.winRates[weightKey{id, r}] = rate
	return nil
}

// countingMetrics records call counts per label for assertions.
type countingMetrics struct {
	mu     sync.Mutex
	counts map[string]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{counts: make(map[string]int)}
}

func (m *countingMetrics) inc(key string) {
	m.mu.Lock()
	m.counts[key]++
	m.mu.Unlock()
}

func (m *countingMetrics) count(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[key]
}

func (m *countingMetrics) RecordOpinion(id string, valid bool) {
	m.inc(fmt.Sprintf("opinion:%s:%t", id, valid))
}
func (m *countingMetrics) RecordVerdict(tier string) { m.inc("verdict:" + tier) }

func (m *countingMetrics) RecordAdmission(instrument string) { m.inc("admission:" + instrument) }

func (m *countingMetrics) RecordRejection(gate string) { m.inc("rejection:" + gate) }

func (m *countingMetrics) RecordDuplicate(instrument string) { m.inc("duplicate:" + instrument) }

func (m *countingMetrics) RecordRelease(tier string) { m.inc("release:" + tier) }

func (m *countingMetrics) RecordOutcome(class string) { m.inc("outcome:" + class) }

func (m *countingMetrics) RecordBufferDepth(string, int) {}

func (m *countingMetrics) RecordError(kind string) { m.inc("error:" + kind) }

func (m *countingMetrics) RecordLatency(string, float64) {}

// stubEstimator returns a fixed probability or error.
type stubEstimator struct {
	value float64
	err   error
}

func (s stubEstimator) Estimate(context.Context, models.ConsensusVerdict, models.MarketSnapshot) (float64, error) {
	return s.value, s.err
}

// captureSubscribers records publishes and can fail the first N attempts,
// or every attempt for one tier.
type captureSubscribers struct {
	mu        sync.Mutex
	failFirst int
	failTier  string
	attempts  int
	published []publishedSignal
	alerts    []models.AdmittedSignal
}

type publishedSignal struct {
	tier   string
	signal models.AdmittedSignal
}

func (c *captureSubscribers) Publish(_ context.Context, tier string, signal models.AdmittedSignal) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attempts++
	if c.failTier != "" && tier == c.failTier {
		return errors.New("broker unavailable")
	}
	if c.attempts <= c.failFirst {
		return errors.New("broker unavailable")
	}
	c.published = append(c.published, publishedSignal{tier, signal})
	return nil
}

func (c *captureSubscribers) Alert(_ context.Context, _ string, signal models.AdmittedSignal) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.alerts = append(c.alerts, signal)
	return nil
}

func (c *captureSubscribers) Close() error { return nil }

func (c *captureSubscribers) releases() []publishedSignal {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]publishedSignal, len(c.published))
	copy(out, c.published)
	return out
}

// memBuffers is an in-memory BufferStore.
type memBuffers struct {
	mu sync.Mutex
	m  map[string][]models.BufferedCandidate
}

func newMemBuffers() *memBuffers {
	return &memBuffers{m: make(map[string][]models.BufferedCandidate)}
}

func (b *memBuffers) Save(_ context.Context, tier string, cs []models.BufferedCandidate) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	snapshot := make([]models.BufferedCandidate, len(cs))
	copy(snapshot, cs)
	b.m[tier] = snapshot
	return nil
}

func (b *memBuffers) Load(_ context.Context, tier string) ([]models.BufferedCandidate, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.m[tier], nil
}

// stubArchive records archived signals and outcomes.
type stubArchive struct {
	mu       sync.Mutex
	signals  []models.AdmittedSignal
	outcomes []models.OutcomeRecord
}

func (a *stubArchive) ArchiveSignal(_ context.Context, s models.AdmittedSignal) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.signals = append(a.signals, s)
	return nil
}

func (a *stubArchive) ArchiveOutcome(_ context.Context, o models.OutcomeRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.outcomes = append(a.outcomes, o)
	return nil
}

func (a *stubArchive) RecentOutcomes(_ context.Context, limit int) ([]models.OutcomeRecord, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if limit > len(a.outcomes) {
		limit = len(a.outcomes)
	}
	return a.outcomes[len(a.outcomes)-limit:], nil
}

func (a *stubArchive) Close() error { return nil }

// stubQueue records enqueued outcome records.
type stubQueue struct {
	mu      sync.Mutex
	records []models.OutcomeRecord
}

func (q *stubQueue) Enqueue(_ context.Context, record models.OutcomeRecord) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.records = append(q.records, record)
	return nil
}

func (q *stubQueue) all() []models.OutcomeRecord {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]models.OutcomeRecord, len(q.records))
	copy(out, q.records)
	return out
}

// fixedClock is a manually advanced time source.
type fixedClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFixedClock(t time.Time) *fixedClock {
	return &fixedClock{t: t}
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}
