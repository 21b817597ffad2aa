package clickhouse

import (
	"context"
	"errors"
	"time"

	"StockBrain/pkg/sqldb"

	ch "github.com/ClickHouse/clickhouse-go/v2"
)

// Client is a database/sql pool over clickhouse-go.
type Client struct {
	*sqldb.DB
}

func NewClient(ctx context.Context, opts ...ClientOption) (*Client, error) {
	cfg := &ClientConfig{
		Addr:        []string{"localhost:9000"},
		Database:    "default",
		User:        "default",
		DialTimeout: 5 * time.Second,
		ReadTimeout: 30 * time.Second,
		Pool:        sqldb.DefaultPool(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if len(cfg.Addr) == 0 || cfg.Addr[0] == "" {
		return nil, errors.New("clickhouse: addr is required")
	}

	db, err := sqldb.Open(ctx, "clickhouse", ch.OpenDB(options(cfg)), cfg.Pool)
	if err != nil {
		return nil, err
	}
	return &Client{DB: db}, nil
}

func options(cfg *ClientConfig) *ch.Options {
	o := &ch.Options{
		Addr: cfg.Addr,
		Auth: ch.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
		Protocol:        ch.Native,
		DialTimeout:     cfg.DialTimeout,
		ReadTimeout:     cfg.ReadTimeout,
		MaxOpenConns:    cfg.Pool.MaxOpenConns,
		MaxIdleConns:    cfg.Pool.MaxIdleConns,
		ConnMaxLifetime: cfg.Pool.ConnMaxLifetime,
		Settings:        ch.Settings{},
	}
	if cfg.UseHTTP {
		o.Protocol = ch.HTTP
	}
	if cfg.Compress {
		o.Compression = &ch.Compression{Method: ch.CompressionLZ4}
	}
	if cfg.MaxExecTime > 0 {
		o.Settings["max_execution_time"] = int(cfg.MaxExecTime.Seconds())
	}
	if cfg.AsyncInsert {
		o.Settings["async_insert"] = 1
		if cfg.WaitForAsync {
			o.Settings["wait_for_async_insert"] = 1
		}
	}
	return o
}
