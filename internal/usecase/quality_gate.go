package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"IgniteX/internal/domain/models"
	"IgniteX/internal/domain/repository"
	"IgniteX/internal/domain/service"
	"IgniteX/pkg/config"
	"IgniteX/pkg/logger"
)

// Gate names used in decisions and metrics.
const (
	GateTier    = "tier"
	GateML      = "ml_probability"
	GateWinRate = "win_rate_veto"
)

// GateDecision is a structured admission outcome. A rejection is expected
// control flow, not an error.
type GateDecision struct {
	Accepted    bool
	Reason      string
	FailedGates []string
	Signal      *models.AdmittedSignal
}

// QualityGate is the multi-threshold admission filter in front of the
// distributor. Thresholds are read from the live config snapshot on every
// evaluation so hot reloads apply immediately.
type QualityGate struct {
	cfg       *config.Manager
	estimator service.WinProbEstimator
	weights   repository.WeightStore
	expiry    *ExpiryCalculator
	metrics   repository.Metrics
	logger    *logger.Logger
	now       func() time.Time
}

func NewQualityGate(
	cfg *config.Manager,
	estimator service.WinProbEstimator,
	weights repository.WeightStore,
	expiry *ExpiryCalculator,
	metrics repository.Metrics,
	lgr *logger.Logger,
) *QualityGate {
	return &QualityGate{
		cfg:       cfg,
		estimator: estimator,
		weights:   weights,
		expiry:    expiry,
		metrics:   metrics,
		logger:    lgr,
		now:       time.Now,
	}
}

// Evaluate runs all three gates. Every gate is checked even after a failure
// so the rejection lists complete diagnostics; only the expensive per-regime
// win-rate lookup is skipped once the tier gate has already failed.
func (g *QualityGate) Evaluate(ctx context.Context, verdict models.ConsensusVerdict, snapshot models.MarketSnapshot) GateDecision {
	gc := g.cfg.Current().Gate
	failed := make([]string, 0, 3)
	detail := make([]string, 0, 3)

	tierOK := verdict.Tier != models.TierLow && tierAccepted(gc.AcceptTiers, verdict.Tier)
	if !tierOK {
		failed = append(failed, GateTier)
		detail = append(detail, fmt.Sprintf("tier %s not in accept set", verdict.Tier))
	}

	estimate, err := g.estimator.Estimate(ctx, verdict, snapshot)
	if err != nil {
		// Estimator unavailable degrades to a failed gate, never a crash.
		failed = append(failed, GateML)
		detail = append(detail, fmt.Sprintf("ml estimate unavailable: %v", err))
	} else if estimate < gc.MLThreshold {
		failed = append(failed, GateML)
		detail = append(detail, fmt.Sprintf("ml probability %.2f below %.2f", estimate, gc.MLThreshold))
	}

	lead, hasLead := verdict.LeadOpinion()
	if tierOK {
		if !hasLead {
			failed = append(failed, GateWinRate)
			detail = append(detail, "no directional contributor")
		} else if rate, ok, werr := g.weights.WinRate(ctx, lead.StrategyID, verdict.Regime); werr == nil && ok && rate < gc.WinRateThreshold {
			// Unknown strategies pass: no penalty for lack of history.
			failed = append(failed, GateWinRate)
			detail = append(detail, fmt.Sprintf("strategy %s win rate %.2f below %.2f in %s regime",
				lead.StrategyID, rate, gc.WinRateThreshold, verdict.Regime))
		}
	}

	if len(failed) > 0 {
		for _, gate := range failed {
			g.metrics.RecordRejection(gate)
		}
		return GateDecision{
			Accepted:    false,
			Reason:      strings.Join(detail, "; "),
			FailedGates: failed,
		}
	}

	signal := g.admit(verdict, lead, snapshot, estimate)
	g.metrics.RecordAdmission(verdict.Instrument)
	return GateDecision{
		Accepted: true,
		Reason:   signal.Reason,
		Signal:   &signal,
	}
}

func (g *QualityGate) admit(verdict models.ConsensusVerdict, lead models.StrategyOpinion, snapshot models.MarketSnapshot, estimate float64) models.AdmittedSignal {
	now := g.now()
	minutes := g.expiry.Minutes(ExpiryInput{
		Entry:       lead.Entry,
		Target:      firstTarget(lead),
		Stop:        lead.Stop,
		Regime:      verdict.Regime,
		ATRPct:      snapshot.ATRPct,
		Confidence:  verdict.Confidence,
		VolumeRatio: snapshot.VolumeRatio,
	})
	return models.AdmittedSignal{
		ID:           uuid.NewString(),
		Verdict:      verdict,
		Entry:        lead.Entry,
		Targets:      lead.Targets,
		Stop:         lead.Stop,
		LeadStrategy: lead.StrategyID,
		Reason: fmt.Sprintf("tier %s, ml probability %.2f, agreement %.0f%%",
			verdict.Tier, estimate, verdict.AgreementScore),
		ExpiryMinutes: minutes,
		CreatedAt:     now,
	}
}

func tierAccepted(accept []string, tier models.Tier) bool {
	for _, t := range accept {
		if models.Tier(t) == tier {
			return true
		}
	}
	return false
}

func firstTarget(op models.StrategyOpinion) float64 {
	if len(op.Targets) == 0 {
		return op.Entry
	}
	return op.Targets[0]
}
