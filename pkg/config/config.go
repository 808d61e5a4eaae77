package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
		CORS            bool          `yaml:"cors"`
	} `yaml:"server"`
	Logger struct {
		Level     string `yaml:"level"`
		Format    string `yaml:"format"`
		Output    string `yaml:"output"`
		Collector struct {
			Enabled       bool          `yaml:"enabled"`
			Topic         string        `yaml:"topic"`
			FlushInterval time.Duration `yaml:"flush_interval"`
			MaxBatch      int           `yaml:"max_batch"`
		} `yaml:"collector"`
	} `yaml:"logger"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Kafka struct {
		Brokers          []string `yaml:"brokers"`
		EventsTopic      string   `yaml:"events_topic"`
		PredictionsTopic string   `yaml:"predictions_topic"`
		RequiredAcks     int      `yaml:"required_acks"`
		Compression      string   `yaml:"compression"`
		Producer         struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			Enabled    bool          `yaml:"enabled"`
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			BufferSize int           `yaml:"buffer_size"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes"`
			MaxBytes   int           `yaml:"max_bytes"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
		EventsTable      string        `yaml:"events_table"`
		PredictionsTable string        `yaml:"predictions_table"`
	} `yaml:"clickhouse"`
	Redis struct {
		Enabled  bool          `yaml:"enabled"`
		Host     string        `yaml:"host"`
		Port     int           `yaml:"port"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db"`
		Prefix   string        `yaml:"prefix"`
		L1TTL    time.Duration `yaml:"l1_ttl"`
		L1Size   int           `yaml:"l1_size"`
	} `yaml:"redis"`
	Risk struct {
		TypicalCheckoutSeconds float64       `yaml:"typical_checkout_seconds"`
		HysteresisThreshold    int           `yaml:"hysteresis_threshold"`
		SessionWindow          time.Duration `yaml:"session_window"`
		HistoryWindow          time.Duration `yaml:"history_window"`
		EvaluateTimeout        time.Duration `yaml:"evaluate_timeout"`
		HistoryCacheTTL        time.Duration `yaml:"history_cache_ttl"`
		HistoricalTypical      bool          `yaml:"historical_typical"`
		PredictionCacheTTL     time.Duration `yaml:"prediction_cache_ttl"`
	} `yaml:"risk"`
	Stream struct {
		Interval     time.Duration `yaml:"interval"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
	} `yaml:"stream"`
	Persist struct {
		BufferSize  int           `yaml:"buffer_size"`
		MaxAttempts int           `yaml:"max_attempts"`
		BackoffMin  time.Duration `yaml:"backoff_min"`
		BackoffMax  time.Duration `yaml:"backoff_max"`
		Timeout     time.Duration `yaml:"timeout"`
	} `yaml:"persist"`
	Auth struct {
		Mode        string        `yaml:"mode"` // header or http
		Header      string        `yaml:"header"`
		IdentityURL string        `yaml:"identity_url"`
		Timeout     time.Duration `yaml:"timeout"`
		CacheTTL    time.Duration `yaml:"cache_ttl"`
		CacheSize   int           `yaml:"cache_size"`
	} `yaml:"auth"`
	RateLimit struct {
		Enabled bool    `yaml:"enabled"`
		RPS     float64 `yaml:"rps"`
		Burst   int     `yaml:"burst"`
	} `yaml:"rate_limit"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML, fills defaults and validates.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	c.ApplyDefaults()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	c.applyEnv(os.Getenv)
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv("APP_ENV"); v != "" {
		c.Environment = v
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := getenv("KAFKA_EVENTS_TOPIC"); v != "" {
		c.Kafka.EventsTopic = v
	}
	if v := getenv("KAFKA_PREDICTIONS_TOPIC"); v != "" {
		c.Kafka.PredictionsTopic = v
	}
	if v := getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	if v := getenv("REDIS_HOST"); v != "" {
		c.Redis.Host = v
	}
	if v := getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := getenv("AUTH_IDENTITY_URL"); v != "" {
		c.Auth.IdentityURL = v
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Logger.Level = v
	}
	if v := getenv("HTTP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
}

// ApplyDefaults fills zero values with the service defaults.
func (c *Config) ApplyDefaults() {
	setDuration := func(d *time.Duration, v time.Duration) {
		if *d <= 0 {
			*d = v
		}
	}
	setInt := func(i *int, v int) {
		if *i <= 0 {
			*i = v
		}
	}
	setString := func(s *string, v string) {
		if *s == "" {
			*s = v
		}
	}

	setInt(&c.Server.Port, 8080)
	setDuration(&c.Server.ReadTimeout, 10*time.Second)
	setDuration(&c.Server.WriteTimeout, 10*time.Second)
	setDuration(&c.Server.ShutdownTimeout, 10*time.Second)

	setString(&c.Logger.Level, "info")
	setString(&c.Logger.Format, "console")
	setString(&c.Logger.Output, "stdout")
	setString(&c.Logger.Collector.Topic, "boltx.error-logs")
	setDuration(&c.Logger.Collector.FlushInterval, 30*time.Second)
	setInt(&c.Logger.Collector.MaxBatch, 100)

	setString(&c.Metrics.Path, "/metrics")

	setString(&c.Kafka.EventsTopic, "checkout.events")
	setString(&c.Kafka.PredictionsTopic, "checkout.predictions")
	setString(&c.Kafka.Consumer.GroupID, "boltx-risk")

	setString(&c.ClickHouse.Database, "boltx")
	setString(&c.ClickHouse.EventsTable, "checkout_events")
	setString(&c.ClickHouse.PredictionsTable, "abandonment_predictions")

	setInt(&c.Redis.Port, 6379)
	setString(&c.Redis.Prefix, "boltx")
	setDuration(&c.Redis.L1TTL, 30*time.Second)
	setInt(&c.Redis.L1Size, 1000)

	if c.Risk.TypicalCheckoutSeconds <= 0 {
		c.Risk.TypicalCheckoutSeconds = 180
	}
	if c.Risk.HysteresisThreshold <= 0 {
		c.Risk.HysteresisThreshold = 10
	}
	setDuration(&c.Risk.SessionWindow, 7*24*time.Hour)
	setDuration(&c.Risk.HistoryWindow, 30*24*time.Hour)
	setDuration(&c.Risk.EvaluateTimeout, 10*time.Second)
	setDuration(&c.Risk.HistoryCacheTTL, 5*time.Minute)
	setDuration(&c.Risk.PredictionCacheTTL, 24*time.Hour)

	setDuration(&c.Stream.Interval, 5*time.Second)
	setDuration(&c.Stream.WriteTimeout, 5*time.Second)

	setInt(&c.Persist.BufferSize, 1000)
	setInt(&c.Persist.MaxAttempts, 3)
	setDuration(&c.Persist.BackoffMin, 100*time.Millisecond)
	setDuration(&c.Persist.BackoffMax, 2*time.Second)
	setDuration(&c.Persist.Timeout, 5*time.Second)

	setString(&c.Auth.Mode, "header")
	setString(&c.Auth.Header, "X-Customer-ID")
	setDuration(&c.Auth.Timeout, 3*time.Second)
	setDuration(&c.Auth.CacheTTL, time.Minute)
	setInt(&c.Auth.CacheSize, 10000)

	if c.RateLimit.RPS <= 0 {
		c.RateLimit.RPS = 5
	}
	setInt(&c.RateLimit.Burst, 10)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required")
	}
	switch c.Auth.Mode {
	case "header":
	case "http":
		if c.Auth.IdentityURL == "" {
			return fmt.Errorf("auth.identity_url is required when auth.mode is 'http'")
		}
	default:
		return fmt.Errorf("auth.mode must be 'header' or 'http', got '%s'", c.Auth.Mode)
	}
	if c.Kafka.Consumer.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when the consumer is enabled")
	}
	return nil
}
