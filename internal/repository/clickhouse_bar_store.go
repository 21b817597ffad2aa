package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"StockBrain/internal/domain/models"
	domrepo "StockBrain/internal/domain/repository"
	applogger "StockBrain/pkg/logger"
)

// ClickHouseSchema returns the DDL for the bars table in database db.
func ClickHouseSchema(db string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", db),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.bars (
            symbol LowCardinality(String),
            bar_interval LowCardinality(String),
            date String,
            open Float64,
            high Float64,
            low Float64,
            close Float64,
            volume Float64,
            inserted_at DateTime DEFAULT now()
        ) ENGINE = ReplacingMergeTree(inserted_at)
        ORDER BY (symbol, bar_interval, date)`, db),
	}
}

// ClickHouseBarStore implements BarStore backed by ClickHouse.
type ClickHouseBarStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewClickHouseBarStore(db *sql.DB, database string) *ClickHouseBarStore {
	return &ClickHouseBarStore{db: db, table: database + ".bars"}
}

// SetLogger injects a structured logger.
func (s *ClickHouseBarStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *ClickHouseBarStore) GetLatestNBars(ctx context.Context, symbol string, n int, iv domrepo.Interval) ([]models.PriceBar, error) {
	start := time.Now()
	const qtpl = `
        SELECT date, open, high, low, close, volume
        FROM %s FINAL
        WHERE symbol = ? AND bar_interval = ?
        ORDER BY date DESC
        LIMIT ?
    `
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(qtpl, s.table), symbol, string(iv), n)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse latest_bars query error",
				applogger.String("symbol", symbol),
				applogger.String("interval", string(iv)),
				applogger.Int("limit", n),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("clickhouse latest_bars: %w", err)
	}
	defer rows.Close()

	bars, err := scanBars(rows, n)
	if err != nil {
		return nil, fmt.Errorf("clickhouse latest_bars: %w", err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("clickhouse %s: %w", symbol, domrepo.ErrSymbolNotFound)
	}
	reverseBars(bars)

	if s.l != nil {
		s.l.Debug("clickhouse latest_bars ok",
			applogger.String("symbol", symbol),
			applogger.String("interval", string(iv)),
			applogger.Int("rows", len(bars)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return bars, nil
}

// StoreBars inserts in chunks. ReplacingMergeTree collapses duplicate dates on merge.
func (s *ClickHouseBarStore) StoreBars(ctx context.Context, symbol string, iv domrepo.Interval, bars []models.PriceBar) error {
	bars = validBars(bars)
	for start := 0; start < len(bars); start += insertChunkSize {
		chunk := bars[start:min(start+insertChunkSize, len(bars))]
		args := make([]interface{}, 0, len(chunk)*8)
		for _, b := range chunk {
			args = append(args, symbol, string(iv), b.Date, b.Open, b.High, b.Low, b.Price, b.Volume)
		}
		q := fmt.Sprintf("INSERT INTO %s (symbol, bar_interval, date, open, high, low, close, volume) VALUES %s",
			s.table, valuesList(len(chunk), 8, false))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("clickhouse store_bars: %w", err)
		}
	}
	return nil
}

func (s *ClickHouseBarStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

var _ domrepo.BarStore = (*ClickHouseBarStore)(nil)
