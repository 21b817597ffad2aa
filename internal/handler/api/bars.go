package api

import (
	"StockBrain/internal/domain/models"
	domrepo "StockBrain/internal/domain/repository"
	"StockBrain/internal/usecase"
	xhttp "StockBrain/pkg/http"
	xlogger "StockBrain/pkg/logger"

	"github.com/labstack/echo/v4"
)

type BarsHandler struct {
	logger *xlogger.Logger
	uc     *usecase.BarsUseCase
}

func NewBarsHandler(logger *xlogger.Logger, uc *usecase.BarsUseCase) *BarsHandler {
	return &BarsHandler{logger: logger, uc: uc}
}

func (h *BarsHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/api/bars", h.Bars)
}

func (h *BarsHandler) Bars(c echo.Context) error {
	req := &models.BarsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	bars, err := h.uc.GetBars(c.Request().Context(), usecase.GetBarsParams{
		Symbol:   req.Symbol,
		N:        req.N,
		Interval: domrepo.NormalizeInterval(req.Interval),
	})
	if err != nil {
		appErr := toAppError(err)
		if appErr.Status >= 500 {
			h.logger.Error("bars usecase error", xlogger.Error(err))
		}
		return xhttp.AppErrorResponse(c, appErr)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=60")
	return xhttp.SuccessResponse(c, bars)
}
