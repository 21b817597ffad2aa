package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"StockBrain/internal/domain/models"
	domrepo "StockBrain/internal/domain/repository"
	"StockBrain/pkg/cache"
	applogger "StockBrain/pkg/logger"

	"golang.org/x/sync/errgroup"
)

// ErrDirectoryUnavailable is returned by symbol search when no vendor key is configured.
var ErrDirectoryUnavailable = errors.New("symbol directory unavailable")

const (
	MaxQuoteSymbols  = 10
	MaxSearchResults = 10

	searchTTL = time.Hour
	quotesTTL = time.Minute
)

// MarketUseCase serves symbol search and quote lookups for the picker UI.
// Without a directory, quotes are derived from the last two bars of history.
type MarketUseCase struct {
	dir    domrepo.MarketDirectory
	bars   domrepo.BarSource
	search *cache.ReadThrough[[]models.SymbolMatch]
	quotes *cache.ReadThrough[[]models.Quote]
}

// NewMarketUseCase accepts a nil dir.
func NewMarketUseCase(dir domrepo.MarketDirectory, bars domrepo.BarSource, c cache.Service, l *applogger.Logger) *MarketUseCase {
	uc := &MarketUseCase{
		dir:    dir,
		bars:   bars,
		search: cache.NewReadThrough[[]models.SymbolMatch](c, searchTTL),
		quotes: cache.NewReadThrough[[]models.Quote](c, quotesTTL),
	}
	if l != nil {
		report := func(key string, err error) {
			l.Warn("market cache failed", applogger.String("key", key), applogger.Error(err))
		}
		uc.search.OnCacheError = report
		uc.quotes.OnCacheError = report
	}
	return uc
}

func (uc *MarketUseCase) SearchSymbols(ctx context.Context, query string, limit int) ([]models.SymbolMatch, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query required", ErrInvalidRequest)
	}
	if limit <= 0 || limit > MaxSearchResults {
		limit = MaxSearchResults
	}
	if uc.dir == nil {
		return nil, ErrDirectoryUnavailable
	}

	key := cache.GenerateKey("symsearch", strings.ToLower(query), limit)
	return uc.search.Get(ctx, key, func(ctx context.Context) ([]models.SymbolMatch, error) {
		matches, err := uc.dir.SearchSymbols(ctx, query, limit)
		if err != nil {
			return nil, fmt.Errorf("search symbols: %w", err)
		}
		if matches == nil {
			matches = []models.SymbolMatch{}
		}
		return matches, nil
	})
}

// GetQuotes returns quotes in request order, skipping unknown symbols. It
// fails with ErrSymbolNotFound only when none of them resolve.
func (uc *MarketUseCase) GetQuotes(ctx context.Context, symbols []string) ([]models.Quote, error) {
	symbols = dedupeSymbols(symbols)
	switch {
	case len(symbols) == 0:
		return nil, fmt.Errorf("%w: at least one symbol required", ErrInvalidRequest)
	case len(symbols) > MaxQuoteSymbols:
		return nil, fmt.Errorf("%w: at most %d symbols per request, got %d", ErrInvalidRequest, MaxQuoteSymbols, len(symbols))
	}

	key := cache.GenerateKey("quotes", strings.Join(symbols, ","))
	return uc.quotes.Get(ctx, key, func(ctx context.Context) ([]models.Quote, error) {
		if uc.dir != nil {
			quotes, err := uc.dir.GetQuotes(ctx, symbols)
			if err != nil {
				return nil, fmt.Errorf("get quotes: %w", err)
			}
			return quotes, nil
		}
		return uc.quotesFromBars(ctx, symbols)
	})
}

func (uc *MarketUseCase) quotesFromBars(ctx context.Context, symbols []string) ([]models.Quote, error) {
	found := make([]*models.Quote, len(symbols))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, sym := range symbols {
		g.Go(func() error {
			bars, err := uc.bars.GetLatestNBars(gctx, sym, 2, domrepo.DefaultInterval())
			if errors.Is(err, domrepo.ErrSymbolNotFound) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("quote %s: %w", sym, err)
			}
			if q, ok := models.QuoteFromBars(sym, bars); ok {
				found[i] = &q
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]models.Quote, 0, len(symbols))
	for _, q := range found {
		if q != nil {
			out = append(out, *q)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("quotes %s: %w", strings.Join(symbols, ","), domrepo.ErrSymbolNotFound)
	}
	return out, nil
}
