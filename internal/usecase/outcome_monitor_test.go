package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"IgniteX/internal/domain/models"
	"IgniteX/internal/repository"
)

var monitorStart = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func releasedSignal(dir models.Direction) models.AdmittedSignal {
	verdict := testVerdict(models.TierHigh)
	verdict.Direction = dir
	for i := range verdict.Opinions {
		verdict.Opinions[i].Direction = dir
	}
	sig := models.AdmittedSignal{
		ID:            "sig-1",
		Verdict:       verdict,
		Entry:         100,
		Targets:       []float64{110, 115, 120},
		Stop:          95,
		LeadStrategy:  "lead",
		ExpiryMinutes: 120,
		CreatedAt:     monitorStart,
		ReleasedAt:    monitorStart,
		ExpiresAt:     monitorStart.Add(2 * time.Hour),
	}
	if dir == models.Short {
		sig.Targets = []float64{90, 85, 80}
		sig.Stop = 105
	}
	return sig
}

type monitorFixture struct {
	m       *OutcomeMonitor
	archive *stubArchive
	queue   *stubQueue
	dedup   *repository.MemoryDedupStore
	clock   *fixedClock
	metrics *countingMetrics
}

func newMonitorFixture(t *testing.T) *monitorFixture {
	t.Helper()
	clock := newFixedClock(monitorStart)
	archive := &stubArchive{}
	queue := &stubQueue{}
	dedup := repository.NewMemoryDedupStore().WithClock(clock.Now)
	metrics := newCountingMetrics()
	m := NewOutcomeMonitor(archive, queue, dedup, metrics, testLogger()).WithClock(clock.Now)
	return &monitorFixture{m: m, archive: archive, queue: queue, dedup: dedup, clock: clock, metrics: metrics}
}

func (f *monitorFixture) tick(price float64, at time.Time) {
	f.m.OnTick(context.Background(), models.PriceTick{
		Instrument: "BTCUSDT",
		Price:      price,
		Timestamp:  at,
	})
}

func TestMonitorWinSubtypeByDeepestTarget(t *testing.T) {
	cases := []struct {
		name  string
		price float64
		want  models.OutcomeClass
	}{
		{"first target", 110, models.WinTP1},
		{"gap through second", 116, models.WinTP2},
		{"gap through third", 121, models.WinTP3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newMonitorFixture(t)
			f.m.Track(context.Background(), releasedSignal(models.Long))

			f.tick(tc.price, monitorStart.Add(time.Minute))

			records := f.queue.all()
			require.Len(t, records, 1)
			assert.Equal(t, tc.want, records[0].Class)
			assert.Equal(t, tc.price, records[0].ExitPrice)
			assert.Empty(t, f.m.Active())
		})
	}
}

func TestMonitorStopBarrier(t *testing.T) {
	f := newMonitorFixture(t)
	f.m.Track(context.Background(), releasedSignal(models.Long))

	f.tick(94.5, monitorStart.Add(time.Minute))

	records := f.queue.all()
	require.Len(t, records, 1)
	assert.Equal(t, models.LossStopFull, records[0].Class)
	assert.Equal(t, 95.0, records[0].ExitPrice)
	assert.Zero(t, records[0].TrainingValue)
}

func TestMonitorShortDirectionBarriers(t *testing.T) {
	f := newMonitorFixture(t)
	f.m.Track(context.Background(), releasedSignal(models.Short))

	f.tick(89.5, monitorStart.Add(time.Minute))

	records := f.queue.all()
	require.Len(t, records, 1)
	assert.Equal(t, models.WinTP1, records[0].Class)
	assert.Positive(t, records[0].ReturnPct)
}

func TestMonitorPriceBarrierBeatsTimeBarrier(t *testing.T) {
	f := newMonitorFixture(t)
	f.m.Track(context.Background(), releasedSignal(models.Long))

	// Tick lands after expiry but at the target; price wins.
	f.tick(110, monitorStart.Add(3*time.Hour))

	records := f.queue.all()
	require.Len(t, records, 1)
	assert.Equal(t, models.WinTP1, records[0].Class)
}

func TestMonitorTimeoutSubtypes(t *testing.T) {
	cases := []struct {
		name  string
		ticks []float64
		want  models.OutcomeClass
	}{
		{"valid drift toward target", []float64{103, 107}, models.TimeoutValid},
		{"adverse drift", []float64{101, 96.5}, models.TimeoutWrong},
		{"never moved", []float64{100.5, 101}, models.TimeoutLowVol},
		{"moved then faded", []float64{104, 103}, models.TimeoutStagnation},
		{"no ticks at all", nil, models.TimeoutStagnation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newMonitorFixture(t)
			f.m.Track(context.Background(), releasedSignal(models.Long))
			for i, price := range tc.ticks {
				f.tick(price, monitorStart.Add(time.Duration(i+1)*time.Minute))
			}

			f.clock.Advance(2*time.Hour + time.Minute)
			f.m.CheckExpiries(context.Background(), f.clock.Now())

			records := f.queue.all()
			require.Len(t, records, 1)
			assert.Equal(t, tc.want, records[0].Class)
			assert.True(t, records[0].Class.IsTimeout())
		})
	}
}

func TestMonitorResolvesExactlyOnce(t *testing.T) {
	f := newMonitorFixture(t)
	f.m.Track(context.Background(), releasedSignal(models.Long))

	f.tick(111, monitorStart.Add(time.Minute))
	f.tick(95, monitorStart.Add(2*time.Minute))
	f.clock.Advance(3 * time.Hour)
	f.m.CheckExpiries(context.Background(), f.clock.Now())

	assert.Len(t, f.queue.all(), 1)
	f.archive.mu.Lock()
	assert.Len(t, f.archive.outcomes, 1)
	f.archive.mu.Unlock()
	assert.Equal(t, 1, f.metrics.count("outcome:WIN_TP1"))
}

func TestMonitorWithdrawAdverseIsPartialLoss(t *testing.T) {
	f := newMonitorFixture(t)
	ctx := context.Background()
	sig := releasedSignal(models.Long)
	f.m.Track(ctx, sig)

	dup, _, err := f.dedup.Reserve(ctx, sig.DedupKey(), 24*time.Hour)
	require.NoError(t, err)
	require.False(t, dup)

	// Past half the stop distance (entry 100, stop 95, half = 2.5).
	f.tick(97, monitorStart.Add(time.Minute))
	require.True(t, f.m.Withdraw(ctx, sig.ID))

	records := f.queue.all()
	require.Len(t, records, 1)
	assert.Equal(t, models.LossPartial, records[0].Class)

	// The dedup reservation is released so a replacement can be admitted.
	dup, _, err = f.dedup.Reserve(ctx, sig.DedupKey(), 24*time.Hour)
	require.NoError(t, err)
	assert.False(t, dup)
}

func TestMonitorWithdrawBenignUsesTimeoutRules(t *testing.T) {
	f := newMonitorFixture(t)
	ctx := context.Background()
	sig := releasedSignal(models.Long)
	f.m.Track(ctx, sig)

	f.tick(107, monitorStart.Add(time.Minute))
	require.True(t, f.m.Withdraw(ctx, sig.ID))

	records := f.queue.all()
	require.Len(t, records, 1)
	assert.Equal(t, models.TimeoutValid, records[0].Class)

	assert.False(t, f.m.Withdraw(ctx, "missing"))
}

func TestMonitorRecordCarriesContributors(t *testing.T) {
	f := newMonitorFixture(t)
	f.m.Track(context.Background(), releasedSignal(models.Long))

	f.tick(110, monitorStart.Add(45*time.Minute))

	records := f.queue.all()
	require.Len(t, records, 1)
	assert.ElementsMatch(t, []string{"lead", "second"}, records[0].Strategies)
	assert.Equal(t, 45*time.Minute, records[0].Duration)
	assert.InDelta(t, 10.0, records[0].ReturnPct, 1e-9)
}
