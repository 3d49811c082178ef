package config

import (
	"context"
	"runtime"
	"time"
)

// Config represents the complete configuration for the training pipeline.
type Config struct {
	ML         MLConfig         `koanf:"ml"         validate:"required"`
	Runtime    RuntimeConfig    `koanf:"runtime"`
	Store      StoreConfig      `koanf:"store"`
	Redis      RedisConfig      `koanf:"redis"`
	Server     ServerConfig     `koanf:"server"`
	Status     StatusConfig     `koanf:"status"`
	Monitoring MonitoringConfig `koanf:"monitoring"`
}

// MLConfig controls batching, crawler concurrency and generation.
type MLConfig struct {
	SampleSize      int           `koanf:"sample_size"      validate:"required,min=1"      env:"ML_SAMPLE_SIZE"`
	Tasks           int           `koanf:"tasks"            validate:"required,min=1"      env:"ML_TASKS"`
	MaxTries        int           `koanf:"max_tries"        validate:"required,min=1"      env:"ML_MAX_TRIES"`
	TypingTime      float64       `koanf:"typing_time"      validate:"min=0"               env:"ML_TYPING_TIME"`
	Workers         int           `koanf:"workers"          validate:"min=1"               env:"ML_WORKERS"`
	Scope           string        `koanf:"scope"            validate:"oneof=global author" env:"ML_SCOPE"`
	MinWords        int           `koanf:"min_words"        validate:"min=0"               env:"ML_MIN_WORDS"`
	ShuffleChannels bool          `koanf:"shuffle_channels"                                env:"ML_SHUFFLE_CHANNELS"`
	RetryDelay      time.Duration `koanf:"retry_delay"                                     env:"ML_RETRY_DELAY"`
}

// TypingDelay converts TypingTime seconds into a duration.
func (c *MLConfig) TypingDelay() time.Duration {
	return time.Duration(c.TypingTime * float64(time.Second))
}

// RuntimeConfig contains process-level behavior.
type RuntimeConfig struct {
	LogLevel string `koanf:"log_level" validate:"oneof=debug info warn error disabled" env:"RUNTIME_LOG_LEVEL"`
	LogJSON  bool   `koanf:"log_json"                                                  env:"RUNTIME_LOG_JSON"`
}

// StoreConfig selects where crawl watermarks and message records live. Replay retrains
// every recorded message at startup; only the sqlite driver keeps records.
type StoreConfig struct {
	Driver     string `koanf:"driver"      validate:"oneof=memory sqlite redis miniredis" env:"STORE_DRIVER"`
	SQLitePath string `koanf:"sqlite_path"                                                env:"STORE_SQLITE_PATH"`
	Replay     bool   `koanf:"replay"                                                     env:"STORE_REPLAY"`
}

// RedisConfig contains connection settings for the redis store driver.
type RedisConfig struct {
	URL         string        `koanf:"url"          env:"REDIS_URL"`
	Prefix      string        `koanf:"prefix"       env:"REDIS_PREFIX"`
	PingTimeout time.Duration `koanf:"ping_timeout" env:"REDIS_PING_TIMEOUT"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Enabled   bool            `koanf:"enabled"                               env:"SERVER_ENABLED"`
	Host      string          `koanf:"host"                                  env:"SERVER_HOST"`
	Port      int             `koanf:"port"       validate:"min=0,max=65535" env:"SERVER_PORT"`
	Timeout   time.Duration   `koanf:"timeout"                               env:"SERVER_TIMEOUT"`
	MaxBody   int64           `koanf:"max_body"   validate:"min=0"           env:"SERVER_MAX_BODY"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
}

// RateLimitConfig controls per-client request limits on the HTTP surface. Shared keeps
// the counters in redis when a redis store driver is configured.
type RateLimitConfig struct {
	Enabled bool          `koanf:"enabled"                   env:"RATE_LIMIT_ENABLED"`
	Limit   int64         `koanf:"limit"   validate:"min=0"  env:"RATE_LIMIT_LIMIT"`
	Period  time.Duration `koanf:"period"                    env:"RATE_LIMIT_PERIOD"`
	Shared  bool          `koanf:"shared"                    env:"RATE_LIMIT_SHARED"`
}

// StatusConfig controls the throughput reporter and the presence publisher.
type StatusConfig struct {
	Interval        time.Duration `koanf:"interval"         env:"STATUS_INTERVAL"`
	PublishInterval time.Duration `koanf:"publish_interval" env:"STATUS_PUBLISH_INTERVAL"`
}

// MonitoringConfig controls the prometheus exporter.
type MonitoringConfig struct {
	Enabled bool   `koanf:"enabled" env:"MONITORING_ENABLED"`
	Path    string `koanf:"path"    env:"MONITORING_PATH"`
}

// Service defines the configuration loading contract.
type Service interface {
	Load(ctx context.Context, sources ...Source) (*Config, error)
	Validate(config *Config) error
	GetSource(key string) SourceType
}

// Source defines the interface for configuration sources.
type Source interface {
	// Load reads configuration from the source.
	Load() (map[string]any, error)
	// Type returns the source type identifier.
	Type() SourceType
}

// SourceType identifies the type of configuration source.
type SourceType string

const (
	SourceCLI     SourceType = "cli"
	SourceYAML    SourceType = "yaml"
	SourceEnv     SourceType = "env"
	SourceDefault SourceType = "default"
)

// Metadata contains metadata about configuration sources.
type Metadata struct {
	Sources  map[string]SourceType `json:"sources"`
	LoadedAt time.Time             `json:"loaded_at"`
}

// Default returns a Config with default values. The required ML settings stay zero
// so a missing environment variable fails validation at startup.
func Default() *Config {
	return &Config{
		ML: MLConfig{
			Workers:    runtime.NumCPU(),
			Scope:      "global",
			MinWords:   1,
			RetryDelay: 10 * time.Millisecond,
		},
		Runtime: RuntimeConfig{
			LogLevel: "info",
		},
		Store: StoreConfig{
			Driver:     "memory",
			SQLitePath: "senvr.db",
		},
		Redis: RedisConfig{
			Prefix:      "senvr",
			PingTimeout: 10 * time.Second,
		},
		Server: ServerConfig{
			Enabled: true,
			Host:    "0.0.0.0",
			Port:    8765,
			Timeout: 30 * time.Second,
			MaxBody: 1 << 20,
			RateLimit: RateLimitConfig{
				Enabled: true,
				Limit:   100,
				Period:  time.Minute,
			},
		},
		Status: StatusConfig{
			Interval:        2 * time.Second,
			PublishInterval: time.Second,
		},
		Monitoring: MonitoringConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}
