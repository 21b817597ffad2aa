package usecase

import (
	"context"
	"strings"

	"StockBrain/internal/domain/models"
	domrepo "StockBrain/internal/domain/repository"

	"golang.org/x/sync/errgroup"
)

// BatchForecastUseCase forecasts several symbols with bounded concurrency.
// One symbol failing does not fail the batch.
type BatchForecastUseCase struct {
	uc          *ForecastUseCase
	concurrency int
}

func NewBatchForecastUseCase(uc *ForecastUseCase, concurrency int) *BatchForecastUseCase {
	if concurrency < 1 {
		concurrency = 1
	}
	return &BatchForecastUseCase{uc: uc, concurrency: concurrency}
}

type BatchParams struct {
	Symbols  []string
	N        int
	Days     int
	Epochs   int
	Interval domrepo.Interval
}

// Run returns one item per distinct symbol, in request order.
func (b *BatchForecastUseCase) Run(ctx context.Context, p BatchParams) ([]models.BatchItem, error) {
	symbols := dedupeSymbols(p.Symbols)
	items := make([]models.BatchItem, len(symbols))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)
	for i, sym := range symbols {
		items[i].Symbol = sym
		g.Go(func() error {
			report, err := b.uc.ForecastSymbol(gctx, ForecastParams{
				Symbol:   sym,
				N:        p.N,
				Days:     p.Days,
				Epochs:   p.Epochs,
				Interval: p.Interval,
			})
			if err != nil {
				items[i].Error = err.Error()
				return nil
			}
			items[i].Report = report
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return items, ctx.Err()
}

func dedupeSymbols(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
