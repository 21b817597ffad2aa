package api

import (
	"strings"

	"StockBrain/internal/domain/models"
	"StockBrain/internal/service/ratelimit"
	"StockBrain/internal/usecase"
	xhttp "StockBrain/pkg/http"
	xlogger "StockBrain/pkg/logger"

	"github.com/labstack/echo/v4"
)

// MarketHandler serves symbol search and quotes. Both hit the vendor quota,
// so they share the forecast rate limiter.
type MarketHandler struct {
	logger *xlogger.Logger
	uc     *usecase.MarketUseCase
	rl     *ratelimit.Limiter
}

func NewMarketHandler(logger *xlogger.Logger, uc *usecase.MarketUseCase, rl *ratelimit.Limiter) *MarketHandler {
	return &MarketHandler{logger: logger, uc: uc, rl: rl}
}

func (h *MarketHandler) RegisterRoutes(e *echo.Echo) {
	var mw []echo.MiddlewareFunc
	if h.rl != nil {
		mw = append(mw, ratelimit.Middleware(h.rl))
	}
	e.GET("/api/symbols/search", h.Search, mw...)
	e.GET("/api/quotes", h.Quotes, mw...)
}

func (h *MarketHandler) Search(c echo.Context) error {
	req := &models.SymbolSearchRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	matches, err := h.uc.SearchSymbols(c.Request().Context(), req.Query, req.Limit)
	if err != nil {
		return h.fail(c, "symbol search", err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=3600")
	return xhttp.SuccessResponse(c, matches)
}

func (h *MarketHandler) Quotes(c echo.Context) error {
	req := &models.QuotesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	quotes, err := h.uc.GetQuotes(c.Request().Context(), strings.Split(req.Symbols, ","))
	if err != nil {
		return h.fail(c, "quotes", err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=60")
	return xhttp.SuccessResponse(c, quotes)
}

func (h *MarketHandler) fail(c echo.Context, op string, err error) error {
	appErr := toAppError(err)
	if appErr.Status >= 500 {
		h.logger.Error(op+" usecase error", xlogger.Error(err))
	} else {
		h.logger.Debug(op+" rejected", xlogger.String("code", appErr.Code), xlogger.Error(err))
	}
	return xhttp.AppErrorResponse(c, appErr)
}
