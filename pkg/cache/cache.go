package cache

import (
	"context"
	"errors"
	"io"
	"time"

	"golang.org/x/sync/singleflight"
)

var ErrCacheMiss = errors.New("cache: key not found")

// Service is implemented by MemoryCache, RedisCache and LayeredCache. Values are
// stored JSON-encoded (strings and []byte verbatim), so Get decodes into any
// pointer regardless of which backend answered.
type Service interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
	// DeleteByPattern takes a Redis glob such as "bars:AAPL:*".
	DeleteByPattern(ctx context.Context, pattern string) error
	io.Closer
}

// ReadThrough serves T values from a cache, loading and storing them on a miss.
// Concurrent misses for one key share a single load.
type ReadThrough[T any] struct {
	c     Service
	ttl   time.Duration
	group singleflight.Group

	// OnCacheError sees cache read and write failures. Those never fail a call.
	OnCacheError func(key string, err error)
}

func NewReadThrough[T any](c Service, ttl time.Duration) *ReadThrough[T] {
	return &ReadThrough[T]{c: c, ttl: ttl}
}

// Get returns the cached value for key or the result of load. Load errors are
// returned and never cached.
func (r *ReadThrough[T]) Get(ctx context.Context, key string, load func(context.Context) (T, error)) (T, error) {
	var v T
	err := r.c.Get(ctx, key, &v)
	if err == nil {
		return v, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		r.report(key, err)
	}

	res, err, _ := r.group.Do(key, func() (interface{}, error) {
		loaded, err := load(ctx)
		if err != nil {
			return nil, err
		}
		if err := r.c.Set(ctx, key, loaded, r.ttl); err != nil {
			r.report(key, err)
		}
		return loaded, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return res.(T), nil
}

func (r *ReadThrough[T]) report(key string, err error) {
	if r.OnCacheError != nil {
		r.OnCacheError(key, err)
	}
}
