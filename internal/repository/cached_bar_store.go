package repository

import (
	"context"
	"time"

	"StockBrain/internal/domain/models"
	domrepo "StockBrain/internal/domain/repository"
	"StockBrain/pkg/cache"
	applogger "StockBrain/pkg/logger"
)

// DefaultBarsTTL matches the vendor's update cadence for daily history.
const DefaultBarsTTL = 15 * time.Minute

const barsKeyPrefix = "bars"

// CachedBarSource decorates a BarSource with a read-through cache keyed by
// (symbol, interval, n).
type CachedBarSource struct {
	next  domrepo.BarSource
	cache cache.Service
	bars  *cache.ReadThrough[[]models.PriceBar]
}

func NewCachedBarSource(next domrepo.BarSource, c cache.Service, ttl time.Duration) *CachedBarSource {
	if ttl <= 0 {
		ttl = DefaultBarsTTL
	}
	return &CachedBarSource{next: next, cache: c, bars: cache.NewReadThrough[[]models.PriceBar](c, ttl)}
}

// SetLogger reports cache failures, which otherwise fall through silently.
func (s *CachedBarSource) SetLogger(l *applogger.Logger) {
	s.bars.OnCacheError = func(key string, err error) {
		l.Warn("bars cache failed", applogger.String("key", key), applogger.Error(err))
	}
}

func (s *CachedBarSource) GetLatestNBars(ctx context.Context, symbol string, n int, iv domrepo.Interval) ([]models.PriceBar, error) {
	return s.bars.Get(ctx, cache.GenerateKey(barsKeyPrefix, symbol, iv, n), func(ctx context.Context) ([]models.PriceBar, error) {
		return s.next.GetLatestNBars(ctx, symbol, n, iv)
	})
}

// Invalidate drops every cached window for symbol. Called after ingestion writes.
func (s *CachedBarSource) Invalidate(ctx context.Context, symbol string) error {
	return s.cache.DeleteByPattern(ctx, cache.BuildPattern(barsKeyPrefix, symbol))
}

var _ domrepo.BarSource = (*CachedBarSource)(nil)
