package clickhouse

import (
	"time"

	"StockBrain/pkg/sqldb"
)

type ClientOption func(*ClientConfig)

type ClientConfig struct {
	Addr     []string
	Database string
	User     string
	Password string
	UseHTTP  bool
	// Compress enables LZ4 block compression on the native protocol.
	Compress     bool
	AsyncInsert  bool
	WaitForAsync bool
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	MaxExecTime  time.Duration
	Pool         sqldb.PoolConfig
}

// WithAddr takes host:port pairs; several enable client-side failover.
func WithAddr(addr ...string) ClientOption {
	return func(c *ClientConfig) {
		c.Addr = append(c.Addr[:0], addr...)
	}
}

func WithAuth(database, user, password string) ClientOption {
	return func(c *ClientConfig) {
		c.Database = database
		c.User = user
		c.Password = password
	}
}

func WithHTTP(useHTTP bool) ClientOption {
	return func(c *ClientConfig) {
		c.UseHTTP = useHTTP
	}
}

func WithCompression(enabled bool) ClientOption {
	return func(c *ClientConfig) {
		c.Compress = enabled
	}
}

// WithAsyncInsert sets the async_insert and wait_for_async_insert settings.
func WithAsyncInsert(enabled, wait bool) ClientOption {
	return func(c *ClientConfig) {
		c.AsyncInsert = enabled
		c.WaitForAsync = wait
	}
}

// WithTimeouts ignores non-positive values. maxExec becomes the server-side
// max_execution_time setting.
func WithTimeouts(dial, read, maxExec time.Duration) ClientOption {
	return func(c *ClientConfig) {
		if dial > 0 {
			c.DialTimeout = dial
		}
		if read > 0 {
			c.ReadTimeout = read
		}
		if maxExec > 0 {
			c.MaxExecTime = maxExec
		}
	}
}

func WithPool(p sqldb.PoolConfig) ClientOption {
	return func(c *ClientConfig) {
		c.Pool = c.Pool.Merge(p)
	}
}
