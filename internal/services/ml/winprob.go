package ml

import (
	"context"
	"fmt"
	"time"

	"IgniteX/internal/domain/models"
	domsvc "IgniteX/internal/domain/service"
	"IgniteX/pkg/cache"
	"IgniteX/pkg/config"
	xhttp "IgniteX/pkg/http"
)

// HTTPWinProbEstimator calls the external model service for a win-probability
// estimate. Responses are cached briefly so repeated gate checks for the same
// setup do not hammer the service.
type HTTPWinProbEstimator struct {
	cfg    *config.Manager
	client *xhttp.Client
	cache  *cache.TTLCache
}

func NewHTTPWinProbEstimator(cfg *config.Manager) *HTTPWinProbEstimator {
	return &HTTPWinProbEstimator{
		cfg:    cfg,
		client: xhttp.NewClient(xhttp.WithTimeout(cfg.Current().ML.Timeout)),
		cache:  cache.NewTTLCache(),
	}
}

type winProbRequest struct {
	Instrument string             `json:"instrument"`
	Direction  string             `json:"direction"`
	Tier       string             `json:"tier"`
	Regime     string             `json:"regime"`
	Features   map[string]float64 `json:"features"`
}

type winProbResponse struct {
	WinProb float64 `json:"win_prob"`
}

func (e *HTTPWinProbEstimator) Estimate(ctx context.Context, verdict models.ConsensusVerdict, snapshot models.MarketSnapshot) (float64, error) {
	cfg := e.cfg.Current()
	if cfg.ML.BaseURL == "" {
		return 0, fmt.Errorf("ml service url not configured")
	}

	key := cacheKey(verdict)
	if v, ok := e.cache.Get(key); ok {
		return v.(float64), nil
	}

	req := winProbRequest{
		Instrument: verdict.Instrument,
		Direction:  string(verdict.Direction),
		Tier:       string(verdict.Tier),
		Regime:     string(verdict.Regime),
		Features: map[string]float64{
			"confidence":          verdict.Confidence,
			"agreement":           verdict.AgreementScore,
			"atr_pct":             snapshot.ATRPct,
			"volume_ratio":        snapshot.VolumeRatio,
			"orderbook_imbalance": snapshot.OrderBookImbalance,
		},
	}

	var resp winProbResponse
	if err := e.postWithRetry(ctx, cfg.ML.BaseURL+"/v1/winprob", req, &resp, 3); err != nil {
		return 0, fmt.Errorf("win prob estimate: %w", err)
	}
	if resp.WinProb < 0 || resp.WinProb > 1 {
		return 0, fmt.Errorf("win prob out of range: %v", resp.WinProb)
	}

	e.cache.Set(key, resp.WinProb, cfg.ML.CacheTTL)
	return resp.WinProb, nil
}

func (e *HTTPWinProbEstimator) postWithRetry(ctx context.Context, url string, payload, dest interface{}, attempts int) error {
	var err error
	for i := 1; i <= attempts; i++ {
		err = e.client.SendAndParse(ctx, &xhttp.RequestOptions{
			Method: xhttp.MethodPost,
			URL:    url,
			Body:   payload,
		}, dest)
		if err == nil {
			return nil
		}
		select {
		case <-time.After(time.Duration(i) * 50 * time.Millisecond):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func cacheKey(v models.ConsensusVerdict) string {
	return fmt.Sprintf("%s|%s|%s|%.0f", v.Instrument, v.Direction, v.Tier, v.Confidence)
}

var _ domsvc.WinProbEstimator = (*HTTPWinProbEstimator)(nil)
