// Package sqldb holds the connection-pool plumbing shared by the ClickHouse
// and Postgres clients.
package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	PingTimeout     time.Duration
}

// DefaultPool suits a single service instance talking to one database.
func DefaultPool() PoolConfig {
	return PoolConfig{
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
		PingTimeout:     5 * time.Second,
	}
}

// Merge keeps p's values where o leaves them unset.
func (p PoolConfig) Merge(o PoolConfig) PoolConfig {
	if o.MaxOpenConns > 0 {
		p.MaxOpenConns = o.MaxOpenConns
	}
	if o.MaxIdleConns > 0 {
		p.MaxIdleConns = o.MaxIdleConns
	}
	if o.ConnMaxLifetime > 0 {
		p.ConnMaxLifetime = o.ConnMaxLifetime
	}
	if o.PingTimeout > 0 {
		p.PingTimeout = o.PingTimeout
	}
	return p
}

// DB is an open, verified pool. Name prefixes its errors.
type DB struct {
	*sql.DB
	name string
}

// Open applies pool limits to db and pings it. db is closed when the ping fails.
func Open(ctx context.Context, name string, db *sql.DB, pool PoolConfig) (*DB, error) {
	db.SetMaxOpenConns(pool.MaxOpenConns)
	db.SetMaxIdleConns(pool.MaxIdleConns)
	db.SetConnMaxLifetime(pool.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, pool.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s ping: %w", name, err)
	}
	return &DB{DB: db, name: name}, nil
}

// SQL returns the underlying pool for repositories.
func (d *DB) SQL() *sql.DB { return d.DB }

func (d *DB) Health(ctx context.Context) error {
	return d.PingContext(ctx)
}

// InitSchema runs idempotent DDL in order, stopping at the first failure.
func (d *DB) InitSchema(ctx context.Context, stmts []string) error {
	for i, stmt := range stmts {
		if _, err := d.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%s schema statement %d: %w", d.name, i+1, err)
		}
	}
	return nil
}

func (d *DB) Close() error {
	if d == nil || d.DB == nil {
		return nil
	}
	return d.DB.Close()
}
