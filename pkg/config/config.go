package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	SourceTwelveData = "twelvedata"
	SourceClickHouse = "clickhouse"
	SourcePostgres   = "postgres"
)

// LayerConfig is one entry of engine.architecture. The first entry is the input layer.
type LayerConfig struct {
	Size       int     `yaml:"size"`
	Activation string  `yaml:"activation"`
	BatchNorm  bool    `yaml:"batch_norm"`
	Dropout    float64 `yaml:"dropout"`
}

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"15s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"120s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"15s"`
		CORSOrigins     []string      `yaml:"cors_origins" default:"[\"*\"]"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Log struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"json"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`
	Source struct {
		Type     string        `yaml:"type" default:"twelvedata"`
		Interval string        `yaml:"interval" default:"1day"`
		CacheTTL time.Duration `yaml:"cache_ttl" default:"15m"`
	} `yaml:"source"`
	TwelveData struct {
		APIKey          string        `yaml:"api_key"`
		BaseURL         string        `yaml:"base_url" default:"https://api.twelvedata.com"`
		Timeout         time.Duration `yaml:"timeout" default:"10s"`
		RequestsPerSec  float64       `yaml:"requests_per_sec" default:"8"`
		Burst           int           `yaml:"burst" default:"4"`
		MaxRetryElapsed time.Duration `yaml:"max_retry_elapsed" default:"20s"`
	} `yaml:"twelvedata"`
	Kafka struct {
		Enabled bool     `yaml:"enabled"`
		Brokers []string `yaml:"brokers"`
		Topics  struct {
			Forecasts string `yaml:"forecasts" default:"stockbrain.forecasts"`
			Bars      string `yaml:"bars" default:"stockbrain.bars"`
			Logs      string `yaml:"logs" default:"stockbrain.logs"`
		} `yaml:"topics"`
		RequiredAcks int    `yaml:"required_acks" default:"1"`
		Compression  string `yaml:"compression" default:"snappy"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"5"`
			Linger       time.Duration `yaml:"linger" default:"50ms"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			Enabled    bool          `yaml:"enabled"`
			GroupID    string        `yaml:"group_id" default:"stockbrain-bars"`
			Offset     string        `yaml:"offset" default:"earliest"` // earliest|latest for a new group
			Workers    int           `yaml:"workers" default:"4"`
			BufferSize int           `yaml:"buffer_size" default:"256"`
			RetryMax   int           `yaml:"retry_max" default:"3"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"100ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"5s"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes" default:"1"`
			MaxBytes   int           `yaml:"max_bytes" default:"10485760"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"stockbrain"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		Compress         bool          `yaml:"compress"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
	} `yaml:"clickhouse"`
	Postgres struct {
		DSN             string        `yaml:"dsn"`
		MaxOpen         int           `yaml:"max_open" default:"10"`
		MaxIdle         int           `yaml:"max_idle" default:"5"`
		ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" default:"30m"`
	} `yaml:"postgres"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Host     string `yaml:"host" default:"localhost"`
		Port     int    `yaml:"port" default:"6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix" default:"stockbrain"`
	} `yaml:"redis"`
	Queue struct {
		Enabled    bool          `yaml:"enabled"`
		Workers    int           `yaml:"workers" default:"2"`
		QueueSize  int           `yaml:"queue_size" default:"100"`
		RetryLimit int           `yaml:"retry_limit" default:"2"`
		RetryDelay time.Duration `yaml:"retry_delay" default:"10s"`
		JobTTL     time.Duration `yaml:"job_ttl" default:"24h"`
	} `yaml:"queue"`
	Engine struct {
		Window         int           `yaml:"window" default:"10"`
		Epochs         int           `yaml:"epochs" default:"2000"`
		ErrorThreshold float64       `yaml:"error_threshold" default:"0.001"`
		LearningRate   float64       `yaml:"learning_rate" default:"0.01"`
		Seed           uint64        `yaml:"seed"`
		Architecture   []LayerConfig `yaml:"architecture"`
	} `yaml:"engine"`
	Forecast struct {
		DefaultBars      int           `yaml:"default_bars" default:"120"`
		DefaultDays      int           `yaml:"default_days" default:"5"`
		MaxDays          int           `yaml:"max_days" default:"30"`
		BatchConcurrency int           `yaml:"batch_concurrency" default:"4"`
		Timeout          time.Duration `yaml:"timeout" default:"90s"`
		RateLimitRPS     float64       `yaml:"rate_limit_rps" default:"2"`
		RateLimitBurst   int           `yaml:"rate_limit_burst" default:"5"`
	} `yaml:"forecast"`
}

// Default returns a config populated from the struct tags only.
func Default() (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	return &c, nil
}

// Load reads and parses a YAML configuration file on top of the defaults.
func Load(path string) (*Config, error) {
	c, err := parse(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads .env (if present), the YAML file, and applies environment overrides.
func LoadWithEnv(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	c, err := parse(path)
	if err != nil {
		return nil, err
	}
	c.applyEnv()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func parse(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	c, err := Default()
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("TWELVEDATA_API_KEY"); v != "" {
		c.TwelveData.APIKey = v
	}
	if v := os.Getenv("SOURCE_TYPE"); v != "" {
		c.Source.Type = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		host, port, found := strings.Cut(v, ":")
		c.Redis.Host = host
		if p, err := strconv.Atoi(port); found && err == nil {
			c.Redis.Port = p
		}
		c.Redis.Enabled = true
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		c.Postgres.DSN = v
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	switch c.Source.Type {
	case SourceTwelveData:
		if c.TwelveData.APIKey == "" {
			return fmt.Errorf("twelvedata.api_key is required when source.type is '%s'", SourceTwelveData)
		}
	case SourcePostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("postgres.dsn is required when source.type is '%s'", SourcePostgres)
		}
	case SourceClickHouse:
	default:
		return fmt.Errorf("source.type must be one of twelvedata, clickhouse, postgres, got '%s'", c.Source.Type)
	}
	if c.Engine.Window < 2 {
		return fmt.Errorf("engine.window must be >= 2, got %d", c.Engine.Window)
	}
	if c.Engine.Epochs < 1 {
		return fmt.Errorf("engine.epochs must be positive, got %d", c.Engine.Epochs)
	}
	if c.Forecast.MaxDays < 1 || c.Forecast.MaxDays > 30 {
		return fmt.Errorf("forecast.max_days must be within 1..30, got %d", c.Forecast.MaxDays)
	}
	if c.Forecast.DefaultDays < 1 || c.Forecast.DefaultDays > c.Forecast.MaxDays {
		return fmt.Errorf("forecast.default_days must be within 1..%d, got %d", c.Forecast.MaxDays, c.Forecast.DefaultDays)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Queue.Enabled && !c.Redis.Enabled {
		return fmt.Errorf("queue requires redis.enabled")
	}
	return nil
}
