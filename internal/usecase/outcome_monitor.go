package usecase

import (
	"context"
	"math"
	"sync"
	"time"

	"IgniteX/internal/domain/models"
	"IgniteX/internal/domain/repository"
	"IgniteX/pkg/logger"
)

// Timeout subtype thresholds, as fractions of the target and stop distances.
const (
	validDriftFraction  = 0.60
	wrongDriftFraction  = 0.30
	wrongStopFraction   = 0.50
	lowVolPeakFraction  = 0.25
	expiryCheckInterval = 5 * time.Second
)

// trackedSignal is one released signal under triple-barrier observation.
type trackedSignal struct {
	signal     models.AdmittedSignal
	entry      float64
	targetDist float64 // |first target - entry|
	stopDist   float64 // |entry - stop|
	last       float64 // last observed price
	peak       float64 // max favorable excursion, absolute price units
	seenTick   bool
}

// favorable converts a price into the signed move in the signal's direction.
// Positive is toward the target, negative toward the stop.
func (t *trackedSignal) favorable(price float64) float64 {
	if t.signal.Verdict.Direction == models.Short {
		return t.entry - price
	}
	return price - t.entry
}

// OutcomeMonitor watches price after release and classifies each signal
// against three barriers: first target above, stop below, expiry in time.
// Monitoring stops the instant any barrier is touched or the signal is
// withdrawn, and every tracked signal resolves to exactly one OutcomeRecord.
type OutcomeMonitor struct {
	archive repository.SignalArchive
	queue   repository.OutcomeQueue
	dedup   repository.DedupStore
	metrics repository.Metrics
	logger  *logger.Logger
	clock   func() time.Time

	mu      sync.Mutex
	tracked map[string]map[string]*trackedSignal // instrument -> signal ID
}

func NewOutcomeMonitor(
	archive repository.SignalArchive,
	queue repository.OutcomeQueue,
	dedup repository.DedupStore,
	metrics repository.Metrics,
	lgr *logger.Logger,
) *OutcomeMonitor {
	return &OutcomeMonitor{
		archive: archive,
		queue:   queue,
		dedup:   dedup,
		metrics: metrics,
		logger:  lgr,
		clock:   time.Now,
		tracked: make(map[string]map[string]*trackedSignal),
	}
}

// WithClock overrides the time source. Used by tests.
func (m *OutcomeMonitor) WithClock(clock func() time.Time) *OutcomeMonitor {
	m.clock = clock
	return m
}

// Start launches the periodic time-barrier check.
func (m *OutcomeMonitor) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(expiryCheckInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.CheckExpiries(ctx, m.clock())
			}
		}
	}()
}

// Track begins observing a released signal. Wired as the distributor's
// release hook so no release goes unwatched.
func (m *OutcomeMonitor) Track(_ context.Context, signal models.AdmittedSignal) {
	target := signal.FirstTarget()
	t := &trackedSignal{
		signal:     signal,
		entry:      signal.Entry,
		targetDist: math.Abs(target - signal.Entry),
		stopDist:   math.Abs(signal.Entry - signal.Stop),
		last:       signal.Entry,
	}

	m.mu.Lock()
	byID, ok := m.tracked[signal.Verdict.Instrument]
	if !ok {
		byID = make(map[string]*trackedSignal)
		m.tracked[signal.Verdict.Instrument] = byID
	}
	byID[signal.ID] = t
	m.mu.Unlock()

	m.logger.Info("tracking released signal",
		logger.String("signal", signal.ID),
		logger.String("instrument", signal.Verdict.Instrument),
		logger.String("direction", string(signal.Verdict.Direction)))
}

// OnTick advances every tracked signal on the tick's instrument. Price
// barriers take priority over the time barrier; when a single tick spans
// both, the stop wins so an ambiguous gap never counts as profit.
func (m *OutcomeMonitor) OnTick(ctx context.Context, tick models.PriceTick) {
	m.mu.Lock()
	byID := m.tracked[tick.Instrument]
	resolved := make([]resolution, 0, 1)
	for id, t := range byID {
		t.last = tick.Price
		t.seenTick = true
		if fav := t.favorable(tick.Price); fav > t.peak {
			t.peak = fav
		}

		if class, exit, ok := t.priceBarrier(tick.Price); ok {
			delete(byID, id)
			resolved = append(resolved, resolution{t, class, exit, tick.Timestamp})
			continue
		}
		if t.signal.IsExpired(tick.Timestamp) {
			delete(byID, id)
			resolved = append(resolved, resolution{t, t.timeoutClass(), tick.Price, tick.Timestamp})
		}
	}
	m.mu.Unlock()

	for _, r := range resolved {
		m.resolve(ctx, r)
	}
}

// CheckExpiries resolves signals whose time barrier passed without a tick
// landing exactly on it.
func (m *OutcomeMonitor) CheckExpiries(ctx context.Context, now time.Time) {
	m.mu.Lock()
	resolved := make([]resolution, 0, 1)
	for _, byID := range m.tracked {
		for id, t := range byID {
			if t.signal.IsExpired(now) {
				delete(byID, id)
				resolved = append(resolved, resolution{t, t.timeoutClass(), t.last, now})
			}
		}
	}
	m.mu.Unlock()

	for _, r := range resolved {
		m.resolve(ctx, r)
	}
}

// Withdraw stops monitoring a signal on operator request. An adverse
// unrealized move past half the stop distance classifies as a partial loss;
// otherwise the timeout rules apply to the position as it stands. The dedup
// reservation is released so a replacement can be admitted.
func (m *OutcomeMonitor) Withdraw(ctx context.Context, signalID string) bool {
	m.mu.Lock()
	var found *trackedSignal
	for _, byID := range m.tracked {
		if t, ok := byID[signalID]; ok {
			found = t
			delete(byID, signalID)
			break
		}
	}
	m.mu.Unlock()

	if found == nil {
		return false
	}

	class := found.timeoutClass()
	if found.favorable(found.last) <= -wrongStopFraction*found.stopDist {
		class = models.LossPartial
	}
	m.resolve(ctx, resolution{found, class, found.last, m.clock()})

	if err := m.dedup.Release(ctx, found.signal.DedupKey()); err != nil {
		m.logger.Warn("dedup release failed",
			logger.String("signal", signalID), logger.Error(err))
	}
	return true
}

// Active lists signals currently under observation, for the operator API.
func (m *OutcomeMonitor) Active() []models.AdmittedSignal {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.AdmittedSignal, 0)
	for _, byID := range m.tracked {
		for _, t := range byID {
			out = append(out, t.signal)
		}
	}
	return out
}

type resolution struct {
	t     *trackedSignal
	class models.OutcomeClass
	exit  float64
	at    time.Time
}

func (m *OutcomeMonitor) resolve(ctx context.Context, r resolution) {
	sig := r.t.signal
	record := models.OutcomeRecord{
		SignalID:      sig.ID,
		Instrument:    sig.Verdict.Instrument,
		Direction:     sig.Verdict.Direction,
		Class:         r.class,
		ExitPrice:     r.exit,
		ReturnPct:     returnPct(r.t, r.exit),
		Duration:      r.at.Sub(sig.ReleasedAt),
		Regime:        sig.Verdict.Regime,
		Strategies:    contributorIDs(sig.Verdict),
		TrainingValue: r.class.TrainingValue(),
		ResolvedAt:    r.at,
	}
	sig.Outcome = &record

	m.metrics.RecordOutcome(string(r.class))
	m.logger.Info("signal resolved",
		logger.String("signal", sig.ID),
		logger.String("class", string(r.class)),
		logger.Float64("return_pct", record.ReturnPct),
		logger.Duration("held", record.Duration))

	if err := m.archive.ArchiveOutcome(ctx, record); err != nil {
		m.metrics.RecordError("outcome_archive")
		m.logger.Error("outcome archive failed", logger.String("signal", sig.ID), logger.Error(err))
	}
	if err := m.queue.Enqueue(ctx, record); err != nil {
		m.metrics.RecordError("outcome_enqueue")
		m.logger.Error("outcome enqueue failed", logger.String("signal", sig.ID), logger.Error(err))
	}
}

// priceBarrier checks the stop and target barriers at one price. The deepest
// target crossed on the tick picks the WIN subtype.
func (t *trackedSignal) priceBarrier(price float64) (models.OutcomeClass, float64, bool) {
	fav := t.favorable(price)
	if t.stopDist > 0 && fav <= -t.stopDist {
		return models.LossStopFull, t.signal.Stop, true
	}
	if t.targetDist <= 0 {
		return "", 0, false
	}
	if fav < t.targetDist {
		return "", 0, false
	}

	deepest := 0
	for i, target := range t.signal.Targets {
		if fav >= math.Abs(target-t.entry) {
			deepest = i + 1
		}
	}
	switch deepest {
	case 3:
		return models.WinTP3, price, true
	case 2:
		return models.WinTP2, price, true
	default:
		return models.WinTP1, price, true
	}
}

// timeoutClass disambiguates a time-barrier exit by the final drift and the
// peak excursion relative to the target and stop distances.
func (t *trackedSignal) timeoutClass() models.OutcomeClass {
	if t.targetDist <= 0 || !t.seenTick {
		return models.TimeoutStagnation
	}
	final := t.favorable(t.last)
	switch {
	case final >= validDriftFraction*t.targetDist:
		return models.TimeoutValid
	case final <= -wrongDriftFraction*t.targetDist,
		t.stopDist > 0 && final <= -wrongStopFraction*t.stopDist:
		return models.TimeoutWrong
	case t.peak < lowVolPeakFraction*t.targetDist:
		return models.TimeoutLowVol
	default:
		return models.TimeoutStagnation
	}
}

func contributorIDs(v models.ConsensusVerdict) []string {
	contributors := v.Contributors()
	ids := make([]string, 0, len(contributors))
	for _, op := range contributors {
		ids = append(ids, op.StrategyID)
	}
	return ids
}

func returnPct(t *trackedSignal, exit float64) float64 {
	if t.entry == 0 {
		return 0
	}
	return t.favorable(exit) / t.entry * 100
}
