package clickhouse

import (
	"testing"
	"time"

	"StockBrain/pkg/sqldb"

	ch "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/stretchr/testify/assert"
)

func TestOptionsNative(t *testing.T) {
	cfg := &ClientConfig{Pool: sqldb.DefaultPool()}
	for _, opt := range []ClientOption{
		WithAddr("ch-1:9000", "ch-2:9000"),
		WithAuth("stockbrain", "default", "pw"),
		WithTimeouts(2*time.Second, 0, 0),
	} {
		opt(cfg)
	}

	o := options(cfg)
	assert.Equal(t, []string{"ch-1:9000", "ch-2:9000"}, o.Addr)
	assert.Equal(t, ch.Auth{Database: "stockbrain", Username: "default", Password: "pw"}, o.Auth)
	assert.Equal(t, ch.Native, o.Protocol)
	assert.Equal(t, 2*time.Second, o.DialTimeout)
	assert.Nil(t, o.Compression)
	assert.Empty(t, o.Settings)
	assert.Equal(t, 10, o.MaxOpenConns)
}

func TestOptionsHTTPWithSettings(t *testing.T) {
	cfg := &ClientConfig{Addr: []string{"ch:8123"}, Pool: sqldb.DefaultPool()}
	for _, opt := range []ClientOption{
		WithHTTP(true),
		WithCompression(true),
		WithAsyncInsert(true, true),
		WithTimeouts(0, 0, 30*time.Second),
		WithPool(sqldb.PoolConfig{MaxOpenConns: 4}),
	} {
		opt(cfg)
	}

	o := options(cfg)
	assert.Equal(t, ch.HTTP, o.Protocol)
	assert.Equal(t, ch.CompressionLZ4, o.Compression.Method)
	assert.Equal(t, ch.Settings{
		"max_execution_time":    30,
		"async_insert":          1,
		"wait_for_async_insert": 1,
	}, o.Settings)
	assert.Equal(t, 4, o.MaxOpenConns)
	assert.Equal(t, 5, o.MaxIdleConns)
}
