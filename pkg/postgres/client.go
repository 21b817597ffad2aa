package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"StockBrain/pkg/sqldb"

	"github.com/lib/pq"
)

// Client is a database/sql pool over lib/pq.
type Client struct {
	*sqldb.DB
}

// NewClient accepts a key=value DSN or a postgres:// URL.
func NewClient(ctx context.Context, dsn string, pool sqldb.PoolConfig) (*Client, error) {
	if dsn == "" {
		return nil, errors.New("postgres: dsn is required")
	}
	conn, err := pq.NewConnector(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres dsn: %w", err)
	}
	db, err := sqldb.Open(ctx, "postgres", sql.OpenDB(conn), sqldb.DefaultPool().Merge(pool))
	if err != nil {
		return nil, err
	}
	return &Client{DB: db}, nil
}
