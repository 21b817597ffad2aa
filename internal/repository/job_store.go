package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"StockBrain/internal/domain/models"
	domrepo "StockBrain/internal/domain/repository"
	"StockBrain/pkg/cache"
)

const jobsKeyPrefix = "jobs"

// CacheJobStore keeps forecast jobs in the shared cache until ttl passes.
type CacheJobStore struct {
	cache cache.Service
	ttl   time.Duration
}

func NewCacheJobStore(c cache.Service, ttl time.Duration) *CacheJobStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &CacheJobStore{cache: c, ttl: ttl}
}

func (s *CacheJobStore) Save(ctx context.Context, job *models.ForecastJob) error {
	if job == nil || job.ID == "" {
		return fmt.Errorf("save job: missing id")
	}
	if err := s.cache.Set(ctx, cache.GenerateKey(jobsKeyPrefix, job.ID), job, s.ttl); err != nil {
		return fmt.Errorf("save job %s: %w", job.ID, err)
	}
	return nil
}

func (s *CacheJobStore) Get(ctx context.Context, id string) (*models.ForecastJob, error) {
	var job models.ForecastJob
	if err := s.cache.Get(ctx, cache.GenerateKey(jobsKeyPrefix, id), &job); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, fmt.Errorf("job %s: %w", id, domrepo.ErrJobNotFound)
		}
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	return &job, nil
}

var _ domrepo.JobStore = (*CacheJobStore)(nil)
