package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Log         struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"console"`
		Output string `yaml:"output" default:"stdout"`
		Digest struct {
			Enabled   bool          `yaml:"enabled"`
			Interval  time.Duration `yaml:"interval" default:"30s"`
			Threshold int           `yaml:"threshold" default:"100"`
			Topic     string        `yaml:"topic" default:"finalloc.log-digest"`
		} `yaml:"digest"`
	} `yaml:"log"`
	Server struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"30s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		RateLimit       struct {
			RPS   float64 `yaml:"rps" default:"5"`
			Burst int     `yaml:"burst" default:"10"`
		} `yaml:"rate_limit"`
		CORS struct {
			Enabled bool     `yaml:"enabled" default:"true"`
			Origins []string `yaml:"origins" default:"[\"*\"]"`
		} `yaml:"cors"`
	} `yaml:"server"`
	Model struct {
		Path      string `yaml:"path"`
		HiddenDim int    `yaml:"hidden_dim" default:"64"`
		Window    int    `yaml:"window" default:"60"`
		Seed      uint64 `yaml:"seed" default:"42"`
	} `yaml:"model"`
	Allocation struct {
		Rule          string  `yaml:"rule" default:"exp_tilt"`
		TopN          int     `yaml:"top_n" default:"3"`
		Amplification float64 `yaml:"amplification" default:"10"`
		Workers       int     `yaml:"workers"`
	} `yaml:"allocation"`
	History struct {
		Source     string `yaml:"source" default:"csv"`
		Dir        string `yaml:"dir" default:"data"`
		SQLitePath string `yaml:"sqlite_path" default:"data/prices.db"`
		Table      string `yaml:"table" default:"prices"`
	} `yaml:"history"`
	Cache struct {
		Enabled bool          `yaml:"enabled"`
		TTL     time.Duration `yaml:"ttl" default:"6h"`
		Memory  struct {
			MaxSize int           `yaml:"max_size" default:"5000"`
			Cleanup time.Duration `yaml:"cleanup" default:"1m"`
			L1TTL   time.Duration `yaml:"l1_ttl" default:"10m"`
		} `yaml:"memory"`
		Redis struct {
			Enabled      bool          `yaml:"enabled"`
			Addr         string        `yaml:"addr"`
			Password     string        `yaml:"password"`
			DB           int           `yaml:"db"`
			Prefix       string        `yaml:"prefix" default:"finalloc"`
			PoolSize     int           `yaml:"pool_size" default:"10"`
			MinIdleConns int           `yaml:"min_idle_conns" default:"2"`
			PoolTimeout  time.Duration `yaml:"pool_timeout" default:"30s"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		RequestTopic string   `yaml:"request_topic" default:"plans.requests"`
		ResultTopic  string   `yaml:"result_topic" default:"plans.results"`
		RequiredAcks int      `yaml:"required_acks" default:"-1"`
		Compression  string   `yaml:"compression" default:"gzip"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"50ms"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			AutoCreate   bool          `yaml:"auto_create_topics"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id" default:"finalloc"`
			Workers    int           `yaml:"workers" default:"2"`
			BufferSize int           `yaml:"buffer_size" default:"10"`
			RetryMax   int           `yaml:"retry_max" default:"3"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"100ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"5s"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes" default:"1"`
			MaxBytes   int           `yaml:"max_bytes" default:"10000000"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"default"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
	} `yaml:"clickhouse"`
}

// Load reads and parses a YAML configuration file. Missing keys take the
// values of the default tags.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML bytes and validates the result.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
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
	if v := getenv("MODEL_PATH"); v != "" {
		c.Model.Path = v
	}
	if v := getenv("HISTORY_SOURCE"); v != "" {
		c.History.Source = v
	}
	if v := getenv("HISTORY_DIR"); v != "" {
		c.History.Dir = v
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		c.Cache.Redis.Addr = v
		c.Cache.Redis.Enabled = true
	}
	if v := getenv("ALLOCATION_RULE"); v != "" {
		c.Allocation.Rule = v
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch c.History.Source {
	case "csv":
		if c.History.Dir == "" {
			return fmt.Errorf("history.dir is required for csv source")
		}
	case "sqlite":
		if c.History.SQLitePath == "" {
			return fmt.Errorf("history.sqlite_path is required for sqlite source")
		}
	case "clickhouse":
		if c.ClickHouse.Host == "" || c.History.Table == "" {
			return fmt.Errorf("clickhouse.host and history.table are required for clickhouse source")
		}
	default:
		return fmt.Errorf("history.source must be 'csv', 'sqlite' or 'clickhouse', got '%s'", c.History.Source)
	}
	if c.Allocation.Rule != "exp_tilt" && c.Allocation.Rule != "markowitz" {
		return fmt.Errorf("allocation.rule must be 'exp_tilt' or 'markowitz', got '%s'", c.Allocation.Rule)
	}
	if c.Allocation.TopN <= 0 {
		return fmt.Errorf("allocation.top_n must be positive")
	}
	if c.Model.Window < 2 {
		return fmt.Errorf("model.window must be at least 2")
	}
	if c.Model.HiddenDim <= 0 {
		return fmt.Errorf("model.hidden_dim must be positive")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Cache.Redis.Enabled && c.Cache.Redis.Addr == "" {
		return fmt.Errorf("cache.redis.addr is required when redis is enabled")
	}
	if c.Log.Digest.Enabled && !c.Kafka.Enabled {
		return fmt.Errorf("log.digest requires kafka")
	}
	return nil
}
