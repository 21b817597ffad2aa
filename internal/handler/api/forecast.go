package api

import (
	"StockBrain/internal/domain/models"
	domrepo "StockBrain/internal/domain/repository"
	"StockBrain/internal/service/ratelimit"
	"StockBrain/internal/usecase"
	xhttp "StockBrain/pkg/http"
	xlogger "StockBrain/pkg/logger"

	"github.com/labstack/echo/v4"
)

// ForecastHandler serves the forecast routes.
type ForecastHandler struct {
	logger *xlogger.Logger
	uc     *usecase.ForecastUseCase
	batch  *usecase.BatchForecastUseCase
	jobs   *usecase.ForecastJobs
	rl     *ratelimit.Limiter
}

func NewForecastHandler(
	logger *xlogger.Logger,
	uc *usecase.ForecastUseCase,
	batch *usecase.BatchForecastUseCase,
	jobs *usecase.ForecastJobs,
	rl *ratelimit.Limiter,
) *ForecastHandler {
	return &ForecastHandler{logger: logger, uc: uc, batch: batch, jobs: jobs, rl: rl}
}

func (h *ForecastHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/forecast")
	if h.rl != nil {
		g.Use(ratelimit.Middleware(h.rl))
	}
	g.GET("", h.Forecast)
	g.POST("", h.ForecastInline)
	g.POST("/batch", h.Batch)
	g.POST("/jobs", h.SubmitJob)
	g.GET("/jobs/:id", h.GetJob)
	g.GET("/stream", h.Stream)
}

func (h *ForecastHandler) Forecast(c echo.Context) error {
	req := &models.ForecastRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	report, err := h.uc.ForecastSymbol(c.Request().Context(), paramsFromRequest(req))
	if err != nil {
		return h.fail(c, "forecast", err)
	}
	return xhttp.SuccessResponse(c, report)
}

func (h *ForecastHandler) ForecastInline(c echo.Context) error {
	req := &models.InlineForecastRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	report, err := h.uc.ForecastBars(c.Request().Context(), req.Symbol, req.Bars, usecase.ForecastParams{
		Days:   req.Days,
		Epochs: req.Epochs,
	})
	if err != nil {
		return h.fail(c, "forecast_inline", err)
	}
	return xhttp.SuccessResponse(c, report)
}

func (h *ForecastHandler) Batch(c echo.Context) error {
	req := &models.BatchForecastRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	items, err := h.batch.Run(c.Request().Context(), usecase.BatchParams{
		Symbols:  req.Symbols,
		N:        req.N,
		Days:     req.Days,
		Epochs:   req.Epochs,
		Interval: domrepo.NormalizeInterval(req.Interval),
	})
	if err != nil {
		return h.fail(c, "forecast_batch", err)
	}
	return xhttp.SuccessResponse(c, items)
}

func (h *ForecastHandler) SubmitJob(c echo.Context) error {
	req := &models.ForecastRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	job, err := h.jobs.Submit(c.Request().Context(), *req)
	if err != nil {
		return h.fail(c, "forecast_job_submit", err)
	}
	return xhttp.AcceptedResponse(c, map[string]interface{}{
		"job_id": job.ID,
		"status": job.Status,
	})
}

func (h *ForecastHandler) GetJob(c echo.Context) error {
	req := &models.JobRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	job, err := h.jobs.Get(c.Request().Context(), req.ID)
	if err != nil {
		return h.fail(c, "forecast_job_get", err)
	}
	return xhttp.SuccessResponse(c, job)
}

func (h *ForecastHandler) fail(c echo.Context, op string, err error) error {
	appErr := toAppError(err)
	if appErr.Status >= 500 {
		h.logger.Error(op+" usecase error", xlogger.Error(err))
	} else {
		h.logger.Debug(op+" rejected", xlogger.String("code", appErr.Code), xlogger.Error(err))
	}
	return xhttp.AppErrorResponse(c, appErr)
}

func paramsFromRequest(req *models.ForecastRequest) usecase.ForecastParams {
	return usecase.ForecastParams{
		Symbol:   req.Symbol,
		N:        req.N,
		Days:     req.Days,
		Epochs:   req.Epochs,
		Interval: domrepo.NormalizeInterval(req.Interval),
		Seed:     req.Seed,
	}
}
