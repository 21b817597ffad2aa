package repository

import (
	"context"
	"errors"

	"StockBrain/internal/domain/models"
)

// ErrSymbolNotFound is returned when a source has no bars for a symbol.
var ErrSymbolNotFound = errors.New("symbol not found")

// BarSource provides read-only, chronologically ordered price history.
type BarSource interface {
	GetLatestNBars(ctx context.Context, symbol string, n int, interval Interval) ([]models.PriceBar, error)
}

// BarWriter persists ingested bars. Writing the same (symbol, interval, date) twice keeps one row.
type BarWriter interface {
	StoreBars(ctx context.Context, symbol string, interval Interval, bars []models.PriceBar) error
}

// BarStore is a source that can also be written and health-checked.
type BarStore interface {
	BarSource
	BarWriter
	Health(ctx context.Context) error
}

// MarketDirectory lists tradable symbols and their latest quotes.
type MarketDirectory interface {
	SearchSymbols(ctx context.Context, query string, limit int) ([]models.SymbolMatch, error)
	GetQuotes(ctx context.Context, symbols []string) ([]models.Quote, error)
}
