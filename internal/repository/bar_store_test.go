package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"StockBrain/internal/domain/models"
	domrepo "StockBrain/internal/domain/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var barColumns = []string{"date", "open", "high", "low", "close", "volume"}

func TestClickHouseLatestBarsChronological(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("FROM stockbrain.bars FINAL")).
		WithArgs("AAPL", "1day", 3).
		WillReturnRows(sqlmock.NewRows(barColumns).
			AddRow("2024-01-03", 3.0, 3.0, 3.0, 3.0, 30.0).
			AddRow("2024-01-02", 2.0, 2.0, 2.0, 2.0, 20.0).
			AddRow("2024-01-01", 1.0, 1.0, 1.0, 1.0, 10.0))

	store := NewClickHouseBarStore(db, "stockbrain")
	bars, err := store.GetLatestNBars(context.Background(), "AAPL", 3, domrepo.Interval1Day)
	require.NoError(t, err)
	require.Len(t, bars, 3)
	assert.Equal(t, "2024-01-01", bars[0].Date)
	assert.Equal(t, 3.0, bars[2].Price)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClickHouseLatestBarsEmpty(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows(barColumns))

	_, err = NewClickHouseBarStore(db, "stockbrain").GetLatestNBars(context.Background(), "ZZZZ", 10, domrepo.Interval1Day)
	assert.ErrorIs(t, err, domrepo.ErrSymbolNotFound)
}

func TestClickHouseLatestBarsQueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT").WillReturnError(errors.New("boom"))

	_, err = NewClickHouseBarStore(db, "stockbrain").GetLatestNBars(context.Background(), "AAPL", 10, domrepo.Interval1Day)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "clickhouse latest_bars")
}

func TestClickHouseStoreBarsSkipsInvalid(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO stockbrain.bars (symbol, bar_interval, date, open, high, low, close, volume) VALUES (?, ?, ?, ?, ?, ?, ?, ?)")).
		WithArgs("AAPL", "1day", "2024-01-01", 10.0, 10.0, 10.0, 10.0, 5.0).
		WillReturnResult(sqlmock.NewResult(0, 1))

	bars := []models.PriceBar{
		{Date: "2024-01-01", Price: 10, Volume: 5},
		{Date: "2024-01-02", Price: 0},
		{Price: 11},
	}
	err = NewClickHouseBarStore(db, "stockbrain").StoreBars(context.Background(), "AAPL", domrepo.Interval1Day, bars)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLatestBars(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE symbol = $1 AND bar_interval = $2")).
		WithArgs("MSFT", "1h", 2).
		WillReturnRows(sqlmock.NewRows(barColumns).
			AddRow("2024-01-01 11:00:00", 2.0, 2.0, 2.0, 2.0, 0.0).
			AddRow("2024-01-01 10:00:00", 1.0, 1.0, 1.0, 1.0, 0.0))

	bars, err := NewPostgresBarStore(db).GetLatestNBars(context.Background(), "MSFT", 2, domrepo.Interval1Hour)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, models.Prices(bars))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreBarsUpsertInTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("VALUES ($1, $2, $3, $4, $5, $6, $7, $8),($9, $10, $11, $12, $13, $14, $15, $16) ON CONFLICT")).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	bars := []models.PriceBar{
		{Date: "2024-01-01", Price: 10},
		{Date: "2024-01-02", Price: 11, Open: 10.5, High: 11.2, Low: 10.1, Volume: 900},
	}
	require.NoError(t, NewPostgresBarStore(db).StoreBars(context.Background(), "MSFT", domrepo.Interval1Day, bars))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreBarsCollapsesRepeatedDates(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("VALUES ($1, $2, $3, $4, $5, $6, $7, $8),($9, $10, $11, $12, $13, $14, $15, $16) ON CONFLICT")).
		WithArgs(
			"MSFT", "1day", "2024-01-01", 12.0, 12.0, 12.0, 12.0, 0.0,
			"MSFT", "1day", "2024-01-02", 11.0, 11.0, 11.0, 11.0, 0.0,
		).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	bars := []models.PriceBar{
		{Date: "2024-01-01", Price: 10},
		{Date: "2024-01-02", Price: 11},
		{Date: "2024-01-01", Price: 12},
	}
	require.NoError(t, NewPostgresBarStore(db).StoreBars(context.Background(), "MSFT", domrepo.Interval1Day, bars))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreBarsRollsBackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO bars").WillReturnError(errors.New("constraint"))
	mock.ExpectRollback()

	err = NewPostgresBarStore(db).StoreBars(context.Background(), "MSFT", domrepo.Interval1Day,
		[]models.PriceBar{{Date: "2024-01-01", Price: 10}})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreBarsNothingValid(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, NewPostgresBarStore(db).StoreBars(context.Background(), "MSFT", domrepo.Interval1Day,
		[]models.PriceBar{{Date: "2024-01-01", Price: -1}}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestValuesList(t *testing.T) {
	assert.Equal(t, "(?, ?),(?, ?)", valuesList(2, 2, false))
	assert.Equal(t, "($1, $2, $3),($4, $5, $6)", valuesList(2, 3, true))
}
