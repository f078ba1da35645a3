package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"GridPulse/internal/domain/models"
	"GridPulse/internal/service/board"
	"GridPulse/internal/service/ratelimit"
	xhttp "GridPulse/pkg/http"
	xlogger "GridPulse/pkg/logger"

	"github.com/labstack/echo/v4"
)

// Controller is the command surface of the tick loop.
type Controller interface {
	Settings(ctx context.Context) (models.Settings, error)
	UpdateSettings(ctx context.Context, req models.SettingsRequest) (models.Settings, error)
	Reset(ctx context.Context) error
	Bounds() models.SettingsBounds
}

// FrameCache serves the last frame written by the snapshot sink.
type FrameCache interface {
	Latest(ctx context.Context) ([]byte, bool, error)
}

// IngressStatus is satisfied by every ingress runner.
type IngressStatus interface {
	Connected() bool
}

// DashboardHandler exposes the monitor over HTTP: read endpoints for the
// latest frame, control endpoints for settings and reset, and a WebSocket
// stream pushing every frame.
type DashboardHandler struct {
	logger  *xlogger.Logger
	ctrl    Controller
	board   *board.Board
	cache   FrameCache
	ingress IngressStatus
	rl      *ratelimit.Limiter
}

type DashboardOption func(*DashboardHandler)

// WithFrameCache makes /api/snapshot read through the snapshot cache first.
func WithFrameCache(c FrameCache) DashboardOption {
	return func(h *DashboardHandler) { h.cache = c }
}

func WithIngress(s IngressStatus) DashboardOption {
	return func(h *DashboardHandler) { h.ingress = s }
}

// WithControlLimiter rate limits the mutating endpoints per client address.
func WithControlLimiter(rl *ratelimit.Limiter) DashboardOption {
	return func(h *DashboardHandler) { h.rl = rl }
}

func NewDashboardHandler(logger *xlogger.Logger, ctrl Controller, b *board.Board, opts ...DashboardOption) *DashboardHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	h := &DashboardHandler{logger: logger, ctrl: ctrl, board: b}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *DashboardHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)

	g := e.Group("/api")
	g.GET("/snapshot", h.Snapshot)
	g.GET("/history", h.History)
	g.GET("/settings", h.GetSettings)
	g.PUT("/settings", h.UpdateSettings, h.limited("settings"))
	g.POST("/reset", h.Reset, h.limited("reset"))
	g.GET("/stream", h.Stream)
}

func (h *DashboardHandler) limited(name string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if h.rl != nil && !h.rl.Allow(c.RealIP()+":"+name) {
				return xhttp.TooManyRequestsResponse(c)
			}
			return next(c)
		}
	}
}

type healthResponse struct {
	Status             string `json:"status"`
	IngressConnected   bool   `json:"ingress_connected"`
	InferenceAvailable bool   `json:"inference_available"`
	LastTick           uint64 `json:"last_tick"`
	Subscribers        int    `json:"stream_subscribers"`
}

// Health always answers 200 while the process is up; degraded parts show in the body.
func (h *DashboardHandler) Health(c echo.Context) error {
	res := healthResponse{Status: "ok", Subscribers: h.board.Subscribers()}
	if h.ingress != nil {
		res.IngressConnected = h.ingress.Connected()
		if !res.IngressConnected {
			res.Status = "degraded"
		}
	}
	if f, ok := h.board.Latest(); ok {
		res.InferenceAvailable = f.Status.InferenceAvailable
		res.LastTick = f.Tick
		if !f.Status.InferenceAvailable {
			res.Status = "degraded"
		}
	}
	return xhttp.SuccessResponse(c, res)
}

// Snapshot returns the latest frame.
func (h *DashboardHandler) Snapshot(c echo.Context) error {
	if h.cache != nil {
		b, ok, err := h.cache.Latest(c.Request().Context())
		switch {
		case err != nil:
			h.logger.Warn("snapshot cache_get_error", xlogger.Error(err))
		case ok:
			h.logger.Debug("snapshot cache_hit")
			return xhttp.SuccessResponse(c, json.RawMessage(b))
		}
	}
	b, ok := h.board.LatestJSON()
	if !ok {
		return xhttp.AppErrorResponse(c, xhttp.UnavailableError("no frame rendered yet"))
	}
	return xhttp.SuccessResponse(c, json.RawMessage(b))
}

type historyResponse struct {
	Observed []float64 `json:"observed"`
	Forecast []float64 `json:"forecast"`
	Count    int       `json:"count"`
}

// History returns the newest `last` entries of both series.
func (h *DashboardHandler) History(c echo.Context) error {
	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res := historyResponse{Observed: []float64{}, Forecast: []float64{}}
	if f, ok := h.board.Latest(); ok {
		res.Observed = tail(f.History.Observed, req.Last)
		res.Forecast = tail(f.History.Forecast, req.Last)
	}
	res.Count = len(res.Observed)
	return xhttp.SuccessResponse(c, res)
}

func tail(s []float64, n int) []float64 {
	if len(s) > n {
		s = s[len(s)-n:]
	}
	out := make([]float64, len(s))
	copy(out, s)
	return out
}

type settingsResponse struct {
	models.Settings
	ThresholdMin float64 `json:"threshold_min"`
	ThresholdMax float64 `json:"threshold_max"`
}

func (h *DashboardHandler) settingsResponse(s models.Settings) settingsResponse {
	b := h.ctrl.Bounds()
	return settingsResponse{Settings: s, ThresholdMin: b.ThresholdMin, ThresholdMax: b.ThresholdMax}
}

func (h *DashboardHandler) GetSettings(c echo.Context) error {
	s, err := h.ctrl.Settings(c.Request().Context())
	if err != nil {
		return h.loopError(c, "settings", err)
	}
	return xhttp.SuccessResponse(c, h.settingsResponse(s))
}

func (h *DashboardHandler) UpdateSettings(c echo.Context) error {
	req := &models.SettingsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if req.PricePerUnit == nil && req.AlertThreshold == nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("nothing to update"))
	}

	s, err := h.ctrl.UpdateSettings(c.Request().Context(), *req)
	if errors.Is(err, models.ErrInvalidSettings) {
		return xhttp.AppErrorResponse(c, xhttp.UnprocessableError("alert_threshold", err.Error()).WithError(err))
	}
	if err != nil {
		return h.loopError(c, "update settings", err)
	}
	return xhttp.SuccessResponse(c, h.settingsResponse(s))
}

func (h *DashboardHandler) Reset(c echo.Context) error {
	if err := h.ctrl.Reset(c.Request().Context()); err != nil {
		return h.loopError(c, "reset", err)
	}
	return xhttp.SuccessResponse(c, map[string]string{"result": "history cleared"})
}

func (h *DashboardHandler) loopError(c echo.Context, op string, err error) error {
	h.logger.Error(fmt.Sprintf("%s command failed", op), xlogger.Error(err))
	return xhttp.AppErrorResponse(c, xhttp.UnavailableError("monitor not available").WithError(err))
}
