package config

import (
	"fmt"
	"log/slog"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

const defaultRedisChannel = "roconal_database_realtime"

type Config struct {
	AppEnv   string `env:"APP_ENV" default:"development"`
	Port     string `env:"PORT" default:"3001"`
	RedisURL string `env:"REDIS_URL" default:"redis://127.0.0.1:6379"`

	// RedisChannel is the base channel the backend publishes realtime
	// envelopes on. RedisChannelLegacy is the older variable name for the
	// same setting; it is consulted only when REALTIME_REDIS_CHANNEL is
	// unset. RedisPrefix mirrors the key prefix some deployments configure
	// on the publishing side.
	RedisChannel       string `env:"REALTIME_REDIS_CHANNEL"`
	RedisChannelLegacy string `env:"REDIS_CHANNEL"`
	RedisPrefix        string `env:"REDIS_PREFIX"`

	// InternalEventsToken guards POST /internal/events. Empty means the
	// endpoint is open; main logs a loud warning in that case.
	InternalEventsToken string `env:"INTERNAL_EVENTS_TOKEN"`

	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`

	MaxConnections int `env:"MAX_CONNECTIONS" default:"10000"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if cfg.RedisChannel == "" {
		cfg.RedisChannel = cfg.RedisChannelLegacy
	}
	if cfg.RedisChannel == "" {
		cfg.RedisChannel = defaultRedisChannel
	}
	if cfg.MaxConnections <= 0 {
		return nil, fmt.Errorf("MAX_CONNECTIONS must be positive, got %d", cfg.MaxConnections)
	}

	return &cfg, nil
}

// ChannelNames resolves the exact-match subscription set: the base channel
// plus the prefixed variant when a prefix is configured, deduplicated.
func (c *Config) ChannelNames() []string {
	channels := []string{c.RedisChannel}
	if c.RedisPrefix != "" {
		prefixed := c.RedisPrefix + c.RedisChannel
		if prefixed != c.RedisChannel {
			channels = append(channels, prefixed)
		}
	}
	return channels
}

// PatternName is the safety-net pattern subscription: it catches publishes
// on any channel ending in the base channel name, whatever prefixing the
// publishing side applied.
func (c *Config) PatternName() string {
	return "*" + c.RedisChannel
}
