package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"IgniteX/internal/domain/models"
	"IgniteX/internal/domain/repository"
	"IgniteX/pkg/config"
	"IgniteX/pkg/logger"
)

// TierState is the per-tier release state machine.
type TierState string

const (
	TierIdle     TierState = "IDLE"
	TierWaiting  TierState = "WAITING"
	TierDropping TierState = "DROPPING"
)

// ReleaseHook is invoked after a successful publish, with the released
// signal carrying its stamped validity window. The engine wires it to the
// outcome monitor so a release is never generated without a consumer.
type ReleaseHook func(ctx context.Context, signal models.AdmittedSignal)

type tierBuffer struct {
	name     string
	state    TierState
	nextDrop time.Time
	buffer   []models.BufferedCandidate
}

// Distributor buffers admitted signals per subscriber tier and releases the
// single best buffered candidate per tier on that tier's cadence. Discarding
// the rest of the buffer at each drop enforces the per-tier quota by
// construction: cadence = window / quota.
type Distributor struct {
	cfg     *config.Manager
	store   repository.SubscriberStore
	buffers repository.BufferStore
	metrics repository.Metrics
	logger  *logger.Logger
	hook    ReleaseHook
	clock   func() time.Time

	mu       sync.Mutex
	tiers    []*tierBuffer
	inflight sync.WaitGroup
}

func NewDistributor(
	cfg *config.Manager,
	store repository.SubscriberStore,
	buffers repository.BufferStore,
	metrics repository.Metrics,
	lgr *logger.Logger,
) *Distributor {
	d := &Distributor{
		cfg:     cfg,
		store:   store,
		buffers: buffers,
		metrics: metrics,
		logger:  lgr,
		clock:   time.Now,
	}
	for _, tc := range cfg.Current().Distributor.Tiers {
		d.tiers = append(d.tiers, &tierBuffer{name: tc.Name, state: TierIdle})
	}
	return d
}

// WithClock overrides the time source. Used by tests.
func (d *Distributor) WithClock(clock func() time.Time) *Distributor {
	d.clock = clock
	return d
}

// WithReleaseHook attaches the post-publish consumer.
func (d *Distributor) WithReleaseHook(hook ReleaseHook) *Distributor {
	d.hook = hook
	return d
}

// Start reloads persisted buffers, aligns every tier's first drop against a
// single clock reading, and launches the periodic check. Buffers must be
// reloaded before any new admission or restarts would leak duplicates.
func (d *Distributor) Start(ctx context.Context) error {
	d.mu.Lock()
	base := d.clock()
	for _, t := range d.tiers {
		if d.buffers != nil {
			loaded, err := d.buffers.Load(ctx, t.name)
			if err != nil {
				d.mu.Unlock()
				return err
			}
			t.buffer = loaded
			sortCandidates(t.buffer)
		}
		// The timer base and the tier's first drop share one clock reading,
		// so the first drop lands exactly one cadence after start.
		t.nextDrop = base.Add(d.cadence(t.name))
		t.state = TierWaiting
	}
	d.mu.Unlock()

	go d.run(ctx)
	return nil
}

func (d *Distributor) run(ctx context.Context) {
	ticker := time.NewTicker(d.cfg.Current().Distributor.CheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			d.inflight.Wait()
			return
		case <-ticker.C:
			d.checkOnce(ctx, d.clock())
		}
	}
}

// Enqueue appends the admitted signal to every tier's buffer. Each tier owns
// an independent lifecycle for the same signal.
func (d *Distributor) Enqueue(ctx context.Context, signal models.AdmittedSignal) {
	now := d.clock()

	d.mu.Lock()
	defer d.mu.Unlock()
	for _, t := range d.tiers {
		capacity := d.tierCap(t.name)
		t.buffer = append(t.buffer, models.BufferedCandidate{
			Signal:         signal,
			SubscriberTier: t.name,
			BufferedAt:     now,
		})
		sortCandidates(t.buffer)
		if capacity > 0 && len(t.buffer) > capacity {
			// Lowest-confidence candidates fall off the end.
			t.buffer = t.buffer[:capacity]
		}
		d.persist(ctx, t)
		d.metrics.RecordBufferDepth(t.name, len(t.buffer))
	}
}

// checkOnce inspects every tier once. Runs faster than any tier's cadence;
// a missed tick self-corrects on the next one. The buffer pop, the timer
// advance, and the state flip happen in a single lock pass per tier; the
// broker publish runs in a per-tier goroutine so a slow or failing broker
// never stalls admissions or another tier's drop.
func (d *Distributor) checkOnce(ctx context.Context, now time.Time) {
	type pendingRelease struct {
		tier   *tierBuffer
		signal models.AdmittedSignal
	}
	var due []pendingRelease

	d.mu.Lock()
	for _, t := range d.tiers {
		if t.state != TierWaiting || now.Before(t.nextDrop) {
			continue
		}

		if len(t.buffer) == 0 {
			// Timer desync: countdown reached zero with nothing buffered.
			// Skip and retry at the next check without advancing the timer.
			d.logger.Warn("drop due with empty buffer", logger.String("tier", t.name))
			continue
		}
		t.state = TierDropping

		best := t.buffer[0]
		t.buffer = nil // leftovers are discarded for this interval
		d.persist(ctx, t)
		d.metrics.RecordBufferDepth(t.name, 0)

		signal := best.Signal
		signal.ReleasedAt = now
		signal.ExpiresAt = now.Add(time.Duration(signal.ExpiryMinutes * float64(time.Minute)))

		cadence := d.cadence(t.name)
		t.nextDrop = t.nextDrop.Add(cadence)
		for !t.nextDrop.After(now) {
			t.nextDrop = t.nextDrop.Add(cadence)
		}

		due = append(due, pendingRelease{tier: t, signal: signal})
	}
	d.mu.Unlock()

	for _, r := range due {
		d.inflight.Add(1)
		go func(t *tierBuffer, signal models.AdmittedSignal) {
			defer d.inflight.Done()
			d.publish(ctx, t.name, signal)
			d.mu.Lock()
			t.state = TierWaiting
			d.mu.Unlock()
		}(r.tier, r.signal)
	}
}

// publish retries with exponential backoff and escalates to the operator
// channel when retries exhaust. An admitted signal is never silently
// dropped.
func (d *Distributor) publish(ctx context.Context, tier string, signal models.AdmittedSignal) {
	kc := d.cfg.Current().Kafka
	backoff := kc.RetryBackoff
	var err error
	for attempt := 0; attempt <= kc.RetryMax; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff *= 2
		}
		if err = d.store.Publish(ctx, tier, signal); err == nil {
			d.metrics.RecordRelease(tier)
			d.logger.Info("signal released",
				logger.String("tier", tier),
				logger.String("signal", signal.ID),
				logger.String("instrument", signal.Verdict.Instrument),
				logger.Float64("confidence", signal.Verdict.Confidence))
			if d.hook != nil {
				d.hook(ctx, signal)
			}
			return
		}
		d.metrics.RecordError("publish_retry")
	}

	d.metrics.RecordError("publish_exhausted")
	d.logger.Error("publish retries exhausted",
		logger.String("tier", tier),
		logger.String("signal", signal.ID),
		logger.Error(err))
	if alertErr := d.store.Alert(ctx, "publish retries exhausted", signal); alertErr != nil {
		d.logger.Error("operator alert failed", logger.Error(alertErr))
	}
}

// Tiers reports each tier's state for the operator API.
func (d *Distributor) Tiers() []TierStatus {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]TierStatus, 0, len(d.tiers))
	for _, t := range d.tiers {
		out = append(out, TierStatus{
			Name:     t.name,
			State:    t.state,
			NextDrop: t.nextDrop,
			Buffered: len(t.buffer),
		})
	}
	return out
}

// TierStatus is a read-only view of one tier.
type TierStatus struct {
	Name     string    `json:"name"`
	State    TierState `json:"state"`
	NextDrop time.Time `json:"next_drop"`
	Buffered int       `json:"buffered"`
}

func (d *Distributor) persist(ctx context.Context, t *tierBuffer) {
	if d.buffers == nil {
		return
	}
	if err := d.buffers.Save(ctx, t.name, t.buffer); err != nil {
		d.metrics.RecordError("buffer_persist")
		d.logger.Warn("buffer persist failed", logger.String("tier", t.name), logger.Error(err))
	}
}

func (d *Distributor) cadence(tier string) time.Duration {
	for _, tc := range d.cfg.Current().Distributor.Tiers {
		if tc.Name == tier {
			return tc.Cadence
		}
	}
	return time.Hour
}

func (d *Distributor) tierCap(tier string) int {
	for _, tc := range d.cfg.Current().Distributor.Tiers {
		if tc.Name == tier {
			return tc.BufferCap
		}
	}
	return 0
}

func sortCandidates(cs []models.BufferedCandidate) {
	sort.SliceStable(cs, func(i, j int) bool {
		return cs[i].Signal.Verdict.Confidence > cs[j].Signal.Verdict.Confidence
	})
}
