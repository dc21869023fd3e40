package repository

import (
	"context"
	"time"

	"IgniteX/internal/domain/models"
)

// DedupStore enforces the minimum spacing between two admissions of the same
// instrument+direction. Implementations must survive restarts or duplicates
// can escape the window immediately after one.
type DedupStore interface {
	// Reserve attempts to claim the key. A live entry younger than the
	// window yields duplicate=true and the remaining suppression time;
	// otherwise the key is inserted or overwritten with the current
	// timestamp.
	Reserve(ctx context.Context, key string, window time.Duration) (duplicate bool, remaining time.Duration, err error)
	// Release drops a reservation (manual withdrawal).
	Release(ctx context.Context, key string) error
	// Sweep removes entries older than the window and enforces the size cap,
	// evicting oldest first.
	Sweep(ctx context.Context, window time.Duration, cap int) (removed int, err error)
	Len(ctx context.Context) (int, error)
}

// WeightStore is the adaptive weight table keyed by (strategyID, regime),
// read by the aggregator and quality gate, written by the feedback loop.
type WeightStore interface {
	Weight(ctx context.Context, strategyID string, regime models.Regime) (w float64, ok bool, err error)
	SetWeight(ctx context.Context, strategyID string, regime models.Regime, w float64) error
	WinRate(ctx context.Context, strategyID string, regime models.Regime) (rate float64, ok bool, err error)
	SetWinRate(ctx context.Context, strategyID string, regime models.Regime, rate float64) error
}

// SubscriberStore is the downstream collaborator the distributor publishes
// to. Persistence, per-subscriber fan-out, and quota accounting live behind
// it, not in the core.
type SubscriberStore interface {
	Publish(ctx context.Context, tier string, signal models.AdmittedSignal) error
	// Alert surfaces a release that exhausted its publish retries to the
	// operator channel.
	Alert(ctx context.Context, message string, signal models.AdmittedSignal) error
	Close() error
}

// BufferStore persists the distributor's per-tier buffers so they can be
// reloaded before accepting new admissions after a restart.
type BufferStore interface {
	Save(ctx context.Context, tier string, candidates []models.BufferedCandidate) error
	Load(ctx context.Context, tier string) ([]models.BufferedCandidate, error)
}

// SignalArchive stores resolved signals and outcomes for offline analysis.
type SignalArchive interface {
	ArchiveSignal(ctx context.Context, s models.AdmittedSignal) error
	ArchiveOutcome(ctx context.Context, o models.OutcomeRecord) error
	RecentOutcomes(ctx context.Context, limit int) ([]models.OutcomeRecord, error)
	Close() error
}

// OutcomeQueue hands resolved outcomes to the feedback loop. Each record is
// enqueued exactly once.
type OutcomeQueue interface {
	Enqueue(ctx context.Context, record models.OutcomeRecord) error
}

// Metrics is the instrumentation port.
type Metrics interface {
	RecordOpinion(strategyID string, valid bool)
	RecordVerdict(tier string)
	RecordAdmission(instrument string)
	RecordRejection(gate string)
	RecordDuplicate(instrument string)
	RecordRelease(tier string)
	RecordOutcome(class string)
	RecordBufferDepth(tier string, depth int)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
