package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Defaults applied when a value is missing or fails validation. The service
// favors coming up in a degraded configuration over refusing to start, since
// the gateway keeps mirroring traffic at us either way.
const (
	DefaultBatchMaxSize  = 100
	DefaultBatchMaxWait  = 2 * time.Second
	DefaultQueueCapacity = 10000
	DefaultAckBuffer     = 4
	DefaultBaseURL       = "https://api.moesif.net"
	DefaultTimeout       = 5 * time.Second
	DefaultListen        = ":50051"
	DefaultMetricsListen = ":9090"
)

type Config struct {
	ApplicationID   string          `mapstructure:"application_id"`
	UserIDHeader    string          `mapstructure:"user_id_header"`
	CompanyIDHeader string          `mapstructure:"company_id_header"`
	Server          ServerConfig    `mapstructure:"server"`
	Batch           BatchConfig     `mapstructure:"batch"`
	Queue           QueueConfig     `mapstructure:"queue"`
	Stream          StreamConfig    `mapstructure:"stream"`
	Collector       CollectorConfig `mapstructure:"collector"`
	Logging         LoggingConfig   `mapstructure:"logging"`
}

type ServerConfig struct {
	Listen        string `mapstructure:"listen"`
	MetricsListen string `mapstructure:"metrics_listen"`
}

type BatchConfig struct {
	MaxSize int           `mapstructure:"max_size"`
	MaxWait time.Duration `mapstructure:"max_wait"`
}

type QueueConfig struct {
	Capacity int `mapstructure:"capacity"`
}

type StreamConfig struct {
	// AckBuffer is the per-stream depth of the outbound acknowledgement
	// queue between the message loop and the gRPC send side.
	AckBuffer int `mapstructure:"ack_buffer"`
}

type CollectorConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from an optional YAML file and MOESIF_* environment
// variables, environment taking precedence. Identity header names are folded
// to lowercase here so lookups against the normalized header map are direct.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetDefault("application_id", "")
	v.SetDefault("user_id_header", "")
	v.SetDefault("company_id_header", "")
	v.SetDefault("server.listen", DefaultListen)
	v.SetDefault("server.metrics_listen", DefaultMetricsListen)
	v.SetDefault("batch.max_size", DefaultBatchMaxSize)
	v.SetDefault("batch.max_wait", DefaultBatchMaxWait)
	v.SetDefault("queue.capacity", DefaultQueueCapacity)
	v.SetDefault("stream.ack_buffer", DefaultAckBuffer)
	v.SetDefault("collector.base_url", DefaultBaseURL)
	v.SetDefault("collector.timeout", DefaultTimeout)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/moesif-extproc")
	}

	v.SetEnvPrefix("MOESIF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found; env and defaults carry it.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.UserIDHeader = strings.ToLower(strings.TrimSpace(cfg.UserIDHeader))
	cfg.CompanyIDHeader = strings.ToLower(strings.TrimSpace(cfg.CompanyIDHeader))

	return &cfg, nil
}

// Validate checks every tunable and replaces invalid values with defaults,
// logging each substitution. A missing application id is reported but does not
// stop the service: the data path must stay up even when deliveries will be
// rejected upstream.
func (c *Config) Validate() {
	if c.ApplicationID == "" {
		slog.Error("application_id is empty; collector will reject deliveries")
	}
	if c.Batch.MaxSize <= 0 {
		slog.Warn("invalid batch.max_size, using default",
			slog.Int("value", c.Batch.MaxSize),
			slog.Int("default", DefaultBatchMaxSize))
		c.Batch.MaxSize = DefaultBatchMaxSize
	}
	if c.Batch.MaxWait <= 0 {
		slog.Warn("invalid batch.max_wait, using default",
			slog.Duration("value", c.Batch.MaxWait),
			slog.Duration("default", DefaultBatchMaxWait))
		c.Batch.MaxWait = DefaultBatchMaxWait
	}
	if c.Queue.Capacity <= 0 {
		slog.Warn("invalid queue.capacity, using default",
			slog.Int("value", c.Queue.Capacity),
			slog.Int("default", DefaultQueueCapacity))
		c.Queue.Capacity = DefaultQueueCapacity
	}
	if c.Stream.AckBuffer <= 0 {
		slog.Warn("invalid stream.ack_buffer, using default",
			slog.Int("value", c.Stream.AckBuffer),
			slog.Int("default", DefaultAckBuffer))
		c.Stream.AckBuffer = DefaultAckBuffer
	}
	if c.Collector.BaseURL == "" {
		slog.Warn("empty collector.base_url, using default",
			slog.String("default", DefaultBaseURL))
		c.Collector.BaseURL = DefaultBaseURL
	}
	if c.Collector.Timeout <= 0 {
		slog.Warn("invalid collector.timeout, using default",
			slog.Duration("value", c.Collector.Timeout),
			slog.Duration("default", DefaultTimeout))
		c.Collector.Timeout = DefaultTimeout
	}
	if c.Server.Listen == "" {
		c.Server.Listen = DefaultListen
	}
	if c.Server.MetricsListen == "" {
		c.Server.MetricsListen = DefaultMetricsListen
	}
}
