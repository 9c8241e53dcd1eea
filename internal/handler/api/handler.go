package api

import (
	"errors"
	"net/http"

	"Delphi/internal/domain/models"
	"Delphi/internal/service/renderer"
	"Delphi/internal/usecase"
	xhttp "Delphi/pkg/http"
	"Delphi/pkg/logger"

	"github.com/labstack/echo/v4"
)

// Handler exposes the user-interaction surface: ticker control, view
// toggles, settings, the labeling workflow, and read-only status routes.
// The renderer peer attaches through the same server.
type Handler struct {
	chart  *usecase.Chart
	bridge *renderer.Bridge
	log    *logger.Logger
}

func NewHandler(chart *usecase.Chart, bridge *renderer.Bridge, log *logger.Logger) *Handler {
	return &Handler{chart: chart, bridge: bridge, log: log}
}

// RegisterRoutes implements xhttp.Handler.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	api := e.Group("/api")
	api.POST("/ticker", h.setTicker)
	api.POST("/toggles/:name", h.toggle)
	api.GET("/settings", h.getSettings)
	api.PUT("/settings", h.putSettings)
	api.GET("/status", h.status)
	api.GET("/chain", h.chain)
	api.GET("/gainers", h.gainers)
	api.GET("/tickers/unique", h.uniqueTickers)
	api.GET("/tickers/:ticker/info", h.tickerInfo)

	sel := api.Group("/selection")
	sel.POST("/enter", h.selectionEnter)
	sel.POST("/range", h.selectionRange)
	sel.POST("/commit", h.selectionCommit)
	sel.POST("/submit", h.selectionSubmit)
	sel.POST("/cancel", h.selectionCancel)

	e.GET("/renderer/ws", h.bridge.Attach)
}

func (h *Handler) setTicker(c echo.Context) error {
	req := new(models.TickerRequest)
	if errs := xhttp.ReadAndValidateRequest(c, req); errs != nil {
		return xhttp.BadRequestResponse(c, errs)
	}
	if err := h.chart.SetTicker(req.Ticker); err != nil {
		return h.opError(c, err)
	}
	return xhttp.SuccessResponse(c, map[string]string{"ticker": req.Ticker})
}

func (h *Handler) toggle(c echo.Context) error {
	value, err := h.chart.Toggle(c.Param("name"))
	if err != nil {
		return h.opError(c, err)
	}
	return xhttp.SuccessResponse(c, map[string]bool{"enabled": value})
}

func (h *Handler) getSettings(c echo.Context) error {
	s, err := h.chart.Settings()
	if err != nil {
		return h.opError(c, err)
	}
	return xhttp.SuccessResponse(c, s)
}

func (h *Handler) putSettings(c echo.Context) error {
	req := new(models.AppSettings)
	if errs := xhttp.ReadAndValidateRequest(c, req); errs != nil {
		return xhttp.BadRequestResponse(c, errs)
	}
	if err := h.chart.UpdateSettings(req); err != nil {
		return h.opError(c, err)
	}
	return xhttp.SuccessResponse(c, req)
}

func (h *Handler) status(c echo.Context) error {
	s, err := h.chart.Status()
	if err != nil {
		return h.opError(c, err)
	}
	return xhttp.SuccessResponse(c, s)
}

func (h *Handler) chain(c echo.Context) error {
	chain, err := h.chart.Chain()
	if err != nil {
		return h.opError(c, err)
	}
	return xhttp.SuccessResponse(c, chain)
}

func (h *Handler) gainers(c echo.Context) error {
	g, err := h.chart.Gainers()
	if err != nil {
		return h.opError(c, err)
	}
	return xhttp.SuccessResponse(c, g)
}

func (h *Handler) uniqueTickers(c echo.Context) error {
	list, err := h.chart.UniqueTickers(c.Request().Context())
	if err != nil {
		return h.opError(c, err)
	}
	return xhttp.SuccessResponse(c, list)
}

func (h *Handler) tickerInfo(c echo.Context) error {
	info, err := h.chart.TickerInfo(c.Param("ticker"))
	if err != nil {
		return h.opError(c, err)
	}
	if info == nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("no info for %s", c.Param("ticker")))
	}
	return xhttp.SuccessResponse(c, info)
}

func (h *Handler) selectionEnter(c echo.Context) error {
	if err := h.chart.EnterSelection(); err != nil {
		return h.opError(c, err)
	}
	return xhttp.SuccessResponse(c, map[string]string{"selection": "active"})
}

func (h *Handler) selectionRange(c echo.Context) error {
	req := new(models.SelectionRangeRequest)
	if errs := xhttp.ReadAndValidateRequest(c, req); errs != nil {
		return xhttp.BadRequestResponse(c, errs)
	}
	if err := h.chart.SelectionRange(req.Start, req.End); err != nil {
		return h.opError(c, err)
	}
	return xhttp.NoContentResponse(c)
}

func (h *Handler) selectionCommit(c echo.Context) error {
	req := new(models.SelectionRangeRequest)
	if errs := xhttp.ReadAndValidateRequest(c, req); errs != nil {
		return xhttp.BadRequestResponse(c, errs)
	}
	count, err := h.chart.CommitSelection(req.Start, req.End)
	if err != nil {
		return h.opError(c, err)
	}
	return xhttp.SuccessResponse(c, map[string]int{"candles": count})
}

func (h *Handler) selectionSubmit(c echo.Context) error {
	req := new(models.SelectionSubmitRequest)
	if errs := xhttp.ReadAndValidateRequest(c, req); errs != nil {
		return xhttp.BadRequestResponse(c, errs)
	}
	count, err := h.chart.SubmitSelection(req.Label)
	if err != nil {
		return h.opError(c, err)
	}
	return xhttp.SuccessResponse(c, map[string]int{"patterns": count})
}

func (h *Handler) selectionCancel(c echo.Context) error {
	if err := h.chart.CancelSelection(); err != nil {
		return h.opError(c, err)
	}
	return xhttp.SuccessResponse(c, map[string]string{"selection": "inactive"})
}

// opError maps orchestrator errors onto HTTP responses. Window validation
// failures carry the full problem list so the caller sees every bad window
// at once.
func (h *Handler) opError(c echo.Context, err error) error {
	var wve *usecase.WindowValidationError
	if errors.As(err, &wve) {
		appErr := xhttp.NewAppError("ERR_INVALID_WINDOWS", "", "pattern windows failed validation",
			http.StatusUnprocessableEntity).WithParam("problems", wve.Problems)
		return xhttp.AppErrorResponse(c, appErr)
	}

	switch {
	case errors.Is(err, usecase.ErrNotLoaded),
		errors.Is(err, usecase.ErrUnknownToggle),
		errors.Is(err, usecase.ErrNoQualifyingCandles):
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
	case errors.Is(err, usecase.ErrSelectionState):
		return xhttp.AppErrorResponse(c,
			xhttp.NewAppError("ERR_CONFLICT", "", err.Error(), http.StatusConflict))
	case errors.Is(err, usecase.ErrBusy):
		return xhttp.AppErrorResponse(c,
			xhttp.NewAppError("ERR_BUSY", "", err.Error(), http.StatusServiceUnavailable))
	}

	h.log.Error("request failed",
		logger.String("path", c.Path()),
		logger.Error(err))
	return xhttp.AppErrorResponse(c, xhttp.InternalError(err.Error()).WithError(err))
}
