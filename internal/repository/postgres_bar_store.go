package repository

import (
	"context"
	"database/sql"
	"fmt"

	"StockBrain/internal/domain/models"
	domrepo "StockBrain/internal/domain/repository"
	applogger "StockBrain/pkg/logger"
)

// PostgresSchema returns the DDL for the bars table.
func PostgresSchema() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS bars (
            symbol TEXT NOT NULL,
            bar_interval TEXT NOT NULL,
            date TEXT NOT NULL,
            open DOUBLE PRECISION NOT NULL,
            high DOUBLE PRECISION NOT NULL,
            low DOUBLE PRECISION NOT NULL,
            close DOUBLE PRECISION NOT NULL,
            volume DOUBLE PRECISION NOT NULL DEFAULT 0,
            updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
            PRIMARY KEY (symbol, bar_interval, date)
        )`,
	}
}

// PostgresBarStore implements BarStore on Postgres via lib/pq.
type PostgresBarStore struct {
	db *sql.DB
	l  *applogger.Logger
}

func NewPostgresBarStore(db *sql.DB) *PostgresBarStore {
	return &PostgresBarStore{db: db}
}

// SetLogger injects a structured logger.
func (s *PostgresBarStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *PostgresBarStore) GetLatestNBars(ctx context.Context, symbol string, n int, iv domrepo.Interval) ([]models.PriceBar, error) {
	const q = `
        SELECT date, open, high, low, close, volume
        FROM bars
        WHERE symbol = $1 AND bar_interval = $2
        ORDER BY date DESC
        LIMIT $3
    `
	rows, err := s.db.QueryContext(ctx, q, symbol, string(iv), n)
	if err != nil {
		if s.l != nil {
			s.l.Error("postgres latest_bars query error",
				applogger.String("symbol", symbol),
				applogger.String("interval", string(iv)),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("postgres latest_bars: %w", err)
	}
	defer rows.Close()

	bars, err := scanBars(rows, n)
	if err != nil {
		return nil, fmt.Errorf("postgres latest_bars: %w", err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("postgres %s: %w", symbol, domrepo.ErrSymbolNotFound)
	}
	reverseBars(bars)
	return bars, nil
}

// StoreBars upserts bars keyed by (symbol, interval, date) inside one transaction.
func (s *PostgresBarStore) StoreBars(ctx context.Context, symbol string, iv domrepo.Interval, bars []models.PriceBar) error {
	bars = validBars(bars)
	if len(bars) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres store_bars begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Postgres caps bind parameters at 65535, 8 per row.
	const chunk = 1000
	for start := 0; start < len(bars); start += chunk {
		part := bars[start:min(start+chunk, len(bars))]
		args := make([]interface{}, 0, len(part)*8)
		for _, b := range part {
			args = append(args, symbol, string(iv), b.Date, b.Open, b.High, b.Low, b.Price, b.Volume)
		}
		q := `INSERT INTO bars (symbol, bar_interval, date, open, high, low, close, volume) VALUES ` +
			valuesList(len(part), 8, true) +
			` ON CONFLICT (symbol, bar_interval, date) DO UPDATE SET
                open = EXCLUDED.open, high = EXCLUDED.high, low = EXCLUDED.low,
                close = EXCLUDED.close, volume = EXCLUDED.volume, updated_at = now()`
		if _, err := tx.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("postgres store_bars: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres store_bars commit: %w", err)
	}
	return nil
}

func (s *PostgresBarStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

var _ domrepo.BarStore = (*PostgresBarStore)(nil)
