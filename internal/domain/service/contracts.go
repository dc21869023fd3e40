package service

import (
	"context"

	"IgniteX/internal/domain/models"
)

// Strategy is an independent pattern-detection rule. Evaluate returns nil
// with no error when the strategy has no call for this cycle.
type Strategy interface {
	ID() string
	Evaluate(ctx context.Context, instrument string, snapshot models.MarketSnapshot) (*models.StrategyOpinion, error)
}

// WinProbEstimator supplies the auxiliary ML win-probability estimate used
// by the quality gate.
type WinProbEstimator interface {
	Estimate(ctx context.Context, verdict models.ConsensusVerdict, snapshot models.MarketSnapshot) (float64, error)
}

// RegimeDetector classifies the current market regime for an instrument.
type RegimeDetector interface {
	Detect(ctx context.Context, snapshot models.MarketSnapshot) (models.Regime, error)
}

// MarketDataProvider is the upstream collaborator producing normalized
// per-instrument snapshots. Treated as an opaque read by the core.
type MarketDataProvider interface {
	Snapshot(ctx context.Context, instrument string) (models.MarketSnapshot, error)
}

// PriceStream delivers trade prints for the outcome monitor's barrier
// checks.
type PriceStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context, instruments []string) error
	Read(ctx context.Context) (<-chan models.PriceTick, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}
