package usecase

import (
	"context"
	"fmt"
	"strings"

	"StockBrain/internal/domain/models"
	domrepo "StockBrain/internal/domain/repository"
)

const maxBars = 5000

// BarsUseCase exposes raw history for charting and debugging.
type BarsUseCase struct {
	source domrepo.BarSource
}

func NewBarsUseCase(source domrepo.BarSource) *BarsUseCase {
	return &BarsUseCase{source: source}
}

type GetBarsParams struct {
	Symbol   string
	N        int
	Interval domrepo.Interval
}

func (uc *BarsUseCase) GetBars(ctx context.Context, p GetBarsParams) ([]models.PriceBar, error) {
	p.Symbol = strings.ToUpper(strings.TrimSpace(p.Symbol))
	if p.Symbol == "" {
		return nil, fmt.Errorf("%w: symbol required", ErrInvalidRequest)
	}
	if p.N <= 0 {
		p.N = 120
	}
	if p.N > maxBars {
		p.N = maxBars
	}
	if p.Interval == "" {
		p.Interval = domrepo.DefaultInterval()
	}

	bars, err := uc.source.GetLatestNBars(ctx, p.Symbol, p.N, p.Interval)
	if err != nil {
		return nil, fmt.Errorf("get bars: %w", err)
	}
	return bars, nil
}
