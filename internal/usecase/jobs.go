package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"StockBrain/internal/domain/models"
	domrepo "StockBrain/internal/domain/repository"
	svcmetrics "StockBrain/internal/service/metrics"
	pkgkafka "StockBrain/pkg/kafka"
	"StockBrain/pkg/logger"
	"StockBrain/pkg/queue"

	"github.com/google/uuid"
)

// ForecastJobType is the queue message type for asynchronous forecasts.
const ForecastJobType = "forecast.run"

// Enqueuer is satisfied by queue.RedisQueue and queue.MemoryQueue.
type Enqueuer interface {
	EnqueueWithID(ctx context.Context, id, msgType string, payload interface{}) (string, error)
}

type forecastJobPayload struct {
	JobID string `json:"job_id"`
}

// ForecastJobs submits forecasts to the queue and reports their status.
type ForecastJobs struct {
	store domrepo.JobStore
	q     Enqueuer
	now   func() time.Time
}

func NewForecastJobs(store domrepo.JobStore, q Enqueuer) *ForecastJobs {
	return &ForecastJobs{store: store, q: q, now: time.Now}
}

// Submit records a queued job and hands it to the workers.
func (j *ForecastJobs) Submit(ctx context.Context, req models.ForecastRequest) (*models.ForecastJob, error) {
	now := j.now().UTC()
	job := &models.ForecastJob{
		ID:        uuid.NewString(),
		Status:    models.JobQueued,
		Request:   req,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := j.store.Save(ctx, job); err != nil {
		return nil, err
	}
	if _, err := j.q.EnqueueWithID(ctx, job.ID, ForecastJobType, forecastJobPayload{JobID: job.ID}); err != nil {
		job.Status = models.JobFailed
		job.Error = "enqueue: " + err.Error()
		_ = j.store.Save(ctx, job)
		return nil, fmt.Errorf("enqueue job: %w", err)
	}
	return job, nil
}

func (j *ForecastJobs) Get(ctx context.Context, id string) (*models.ForecastJob, error) {
	return j.store.Get(ctx, id)
}

// ForecastJobHandler is the queue worker side of ForecastJobs.
type ForecastJobHandler struct {
	store  domrepo.JobStore
	uc     *ForecastUseCase
	logger *logger.Logger
	now    func() time.Time
}

func NewForecastJobHandler(store domrepo.JobStore, uc *ForecastUseCase, l *logger.Logger) *ForecastJobHandler {
	if l == nil {
		l = logger.NewNop()
	}
	return &ForecastJobHandler{store: store, uc: uc, logger: l, now: time.Now}
}

func (h *ForecastJobHandler) Name() string { return "forecast_job" }
func (h *ForecastJobHandler) Type() string { return ForecastJobType }

// Handle runs one job. Forecast failures are terminal and recorded on the job;
// only job store errors are returned so the queue retries them.
func (h *ForecastJobHandler) Handle(ctx context.Context, payload interface{}) error {
	p, err := queue.ParsePayload[forecastJobPayload](payload)
	if err != nil {
		return fmt.Errorf("%w: %w", queue.ErrPermanent, err)
	}
	job, err := h.store.Get(ctx, p.JobID)
	if err != nil {
		if errors.Is(err, domrepo.ErrJobNotFound) {
			return fmt.Errorf("%w: %w", queue.ErrPermanent, err)
		}
		return err
	}
	if job.Done() {
		return nil
	}

	start := h.now()
	job.Status = models.JobRunning
	job.UpdatedAt = start.UTC()
	if err := h.store.Save(ctx, job); err != nil {
		return err
	}

	// the published forecast event carries the job id as its trace id
	req := job.Request
	report, ferr := h.uc.ForecastSymbol(pkgkafka.ContextWithTraceID(ctx, job.ID), ForecastParams{
		Symbol:   req.Symbol,
		N:        req.N,
		Days:     req.Days,
		Epochs:   req.Epochs,
		Interval: domrepo.NormalizeInterval(req.Interval),
		Seed:     req.Seed,
	})
	if ferr != nil {
		job.Status = models.JobFailed
		job.Error = ferr.Error()
		h.logger.Warn("forecast job failed", logger.String("job_id", job.ID), logger.Error(ferr))
	} else {
		job.Status = models.JobDone
		job.Report = report
	}
	job.UpdatedAt = h.now().UTC()
	svcmetrics.JobsTotal.WithLabelValues(string(job.Status)).Inc()
	svcmetrics.JobDuration.Observe(job.UpdatedAt.Sub(start).Seconds())

	// the worker context may be done; the result still has to land
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	return h.store.Save(saveCtx, job)
}

var _ queue.Job = (*ForecastJobHandler)(nil)
