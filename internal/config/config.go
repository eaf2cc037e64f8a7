// Package config loads engine configuration from a YAML file with
// environment-friendly defaults.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level engine configuration.
type Config struct {
	Postgres   PostgresConfig   `yaml:"postgres"`
	Clickhouse ClickhouseConfig `yaml:"clickhouse"`
	Redis      RedisConfig      `yaml:"redis"`
	Feed       FeedConfig       `yaml:"feed"`
	Engine     EngineConfig     `yaml:"engine"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Log        LogConfig        `yaml:"log"`
}

type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

type ClickhouseConfig struct {
	DSN string `yaml:"dsn"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"` // empty disables the wallet cache
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type FeedConfig struct {
	Endpoint string   `yaml:"endpoint"`
	Assets   []string `yaml:"assets"`
}

type EngineConfig struct {
	// CycleInterval is how often the buy-cycle counters reset.
	CycleInterval time.Duration `yaml:"cycle_interval"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"` // empty disables the metrics endpoint
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// Default returns the configuration used when a field is absent.
func Default() Config {
	return Config{
		Engine: EngineConfig{CycleInterval: time.Hour},
		Metrics: MetricsConfig{
			Addr: ":9090",
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads and validates a YAML config file.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks required fields.
func (c *Config) Validate() error {
	if c.Postgres.DSN == "" {
		return fmt.Errorf("config: postgres.dsn is required")
	}
	if c.Clickhouse.DSN == "" {
		return fmt.Errorf("config: clickhouse.dsn is required")
	}
	if c.Feed.Endpoint == "" {
		return fmt.Errorf("config: feed.endpoint is required")
	}
	if c.Engine.CycleInterval <= 0 {
		return fmt.Errorf("config: engine.cycle_interval must be positive")
	}
	return nil
}
