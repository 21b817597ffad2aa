package sqldb

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenPingsAndInitsSchema(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	mock.ExpectPing()
	mock.ExpectExec("CREATE TABLE a").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE INDEX b").WillReturnError(errors.New("denied"))
	mock.ExpectClose()

	d, err := Open(context.Background(), "postgres", db, DefaultPool())
	require.NoError(t, err)

	err = d.InitSchema(context.Background(), []string{"CREATE TABLE a", "CREATE INDEX b", "never"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres schema statement 2")

	require.NoError(t, d.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOpenClosesOnPingFailure(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	mock.ExpectPing().WillReturnError(errors.New("refused"))
	mock.ExpectClose()

	_, err = Open(context.Background(), "clickhouse", db, DefaultPool())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "clickhouse ping")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPoolMerge(t *testing.T) {
	p := DefaultPool().Merge(PoolConfig{MaxOpenConns: 20, ConnMaxLifetime: time.Minute})
	assert.Equal(t, 20, p.MaxOpenConns)
	assert.Equal(t, 5, p.MaxIdleConns)
	assert.Equal(t, time.Minute, p.ConnMaxLifetime)
	assert.Equal(t, 5*time.Second, p.PingTimeout)

	var nilDB *DB
	assert.NoError(t, nilDB.Close())
}
