package api

import (
	"context"

	"IgniteX/internal/domain/models"
	domrepo "IgniteX/internal/domain/repository"
	"IgniteX/internal/usecase"
	"IgniteX/pkg/config"
	xhttp "IgniteX/pkg/http"
	xlogger "IgniteX/pkg/logger"

	"github.com/labstack/echo/v4"
)

// WeightReader exposes the learned per-regime weight tables for inspection.
type WeightReader interface {
	Snapshot(ctx context.Context, regime models.Regime) (weights, winRates map[string]float64, err error)
}

// OperatorHandler serves the operational API: live signals, outcome history,
// learned weights, tier schedules, and config control.
type OperatorHandler struct {
	logger      *xlogger.Logger
	cfg         *config.Manager
	monitor     *usecase.OutcomeMonitor
	distributor *usecase.Distributor
	archive     domrepo.SignalArchive
	weights     WeightReader
}

func NewOperatorHandler(
	logger *xlogger.Logger,
	cfg *config.Manager,
	monitor *usecase.OutcomeMonitor,
	distributor *usecase.Distributor,
	archive domrepo.SignalArchive,
	weights WeightReader,
) *OperatorHandler {
	return &OperatorHandler{
		logger:      logger,
		cfg:         cfg,
		monitor:     monitor,
		distributor: distributor,
		archive:     archive,
		weights:     weights,
	}
}

func (h *OperatorHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)

	g := e.Group("/api")
	g.GET("/signals/active", h.ActiveSignals)
	g.POST("/signals/:id/withdraw", h.WithdrawSignal)
	g.GET("/outcomes", h.RecentOutcomes)
	g.GET("/weights", h.Weights)
	g.GET("/tiers", h.Tiers)
	g.GET("/config", h.ConfigView)
	g.POST("/config/reload", h.ConfigReload)
}

func (h *OperatorHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

// ActiveSignals lists released signals still awaiting an outcome.
func (h *OperatorHandler) ActiveSignals(c echo.Context) error {
	active := h.monitor.Active()
	return xhttp.ListResponse(c, active, int64(len(active)))
}

// WithdrawSignal closes a live signal early and classifies it immediately.
func (h *OperatorHandler) WithdrawSignal(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return xhttp.BadRequestResponse(c, "signal id required")
	}
	if !h.monitor.Withdraw(c.Request().Context(), id) {
		return xhttp.NotFoundResponse(c, "no active signal with that id")
	}
	h.logger.Info("signal withdrawn by operator", xlogger.String("signal_id", id))
	return xhttp.NoContentResponse(c)
}

type outcomesRequest struct {
	Limit int `query:"limit" default:"50" validate:"gt=0,lte=500"`
}

func (h *OperatorHandler) RecentOutcomes(c echo.Context) error {
	req := &outcomesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	records, err := h.archive.RecentOutcomes(c.Request().Context(), req.Limit)
	if err != nil {
		h.logger.Error("recent outcomes query failed", xlogger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}
	return xhttp.ListResponse(c, records, int64(len(records)))
}

type weightsRequest struct {
	Regime string `query:"regime" default:"trending" validate:"oneof=trending choppy breakout accumulation"`
}

type weightsView struct {
	Regime   string             `json:"regime"`
	Weights  map[string]float64 `json:"weights"`
	WinRates map[string]float64 `json:"win_rates"`
}

func (h *OperatorHandler) Weights(c echo.Context) error {
	req := &weightsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	weights, winRates, err := h.weights.Snapshot(c.Request().Context(), models.Regime(req.Regime))
	if err != nil {
		h.logger.Error("weight snapshot failed", xlogger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}
	return xhttp.SuccessResponse(c, weightsView{
		Regime:   req.Regime,
		Weights:  weights,
		WinRates: winRates,
	})
}

func (h *OperatorHandler) Tiers(c echo.Context) error {
	tiers := h.distributor.Tiers()
	return xhttp.ListResponse(c, tiers, int64(len(tiers)))
}

// configView exposes the hot-reloadable sections, never credentials.
type configView struct {
	Environment string      `json:"environment"`
	Engine      interface{} `json:"engine"`
	Gate        interface{} `json:"gate"`
	Dedup       interface{} `json:"dedup"`
	Distributor interface{} `json:"distributor"`
	Feedback    interface{} `json:"feedback"`
}

func (h *OperatorHandler) ConfigView(c echo.Context) error {
	cfg := h.cfg.Current()
	return xhttp.SuccessResponse(c, configView{
		Environment: cfg.Environment,
		Engine:      cfg.Engine,
		Gate:        cfg.Gate,
		Dedup:       cfg.Dedup,
		Distributor: cfg.Distributor,
		Feedback:    cfg.Feedback,
	})
}

func (h *OperatorHandler) ConfigReload(c echo.Context) error {
	if err := h.cfg.Reload(); err != nil {
		h.logger.Error("config reload rejected", xlogger.Error(err))
		return xhttp.BadRequestResponse(c, err.Error())
	}
	h.logger.Info("config reloaded by operator")
	return xhttp.NoContentResponse(c)
}

var _ xhttp.Handler = (*OperatorHandler)(nil)
