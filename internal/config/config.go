package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage backends for quizzes, attempts and results.
const (
	StorageMemory   = "memory"
	StorageRedis    = "redis"
	StoragePostgres = "postgres"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	// Storage selects the system of record. Empty picks postgres when a URL is
	// configured, then redis, then memory.
	Storage string `yaml:"storage"`
	Redis   struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		TTL string `yaml:"ttl"`
	} `yaml:"quiz"`
	LLM struct {
		Provider    string  `yaml:"provider"`
		Model       string  `yaml:"model"`
		APIKey      string  `yaml:"api_key"`
		BaseURL     string  `yaml:"base_url"`
		Timeout     string  `yaml:"timeout"`
		MaxTokens   int     `yaml:"max_tokens"`
		Temperature float64 `yaml:"temperature"`
		Retry       struct {
			MaxAttempts int     `yaml:"max_attempts"`
			InitialWait string  `yaml:"initial_wait"`
			MaxWait     string  `yaml:"max_wait"`
			Multiplier  float64 `yaml:"multiplier"`
		} `yaml:"retry"`
	} `yaml:"llm"`
	Generation struct {
		MaxQuestions     int    `yaml:"max_questions"`
		Timeout          string `yaml:"timeout"`
		WeakTopicTimeout string `yaml:"weak_topic_timeout"`
	} `yaml:"generation"`
	Audit struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"audit"`
	Events struct {
		RedisChannel string `yaml:"redis_channel"`
	} `yaml:"events"`
}

// Load reads YAML config from path. A missing file yields the zero config so
// the service can run from flags and environment alone.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate rejects unknown storage backends and backends missing their connection settings.
func (c Config) Validate() error {
	switch c.Storage {
	case "", StorageMemory:
	case StorageRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("storage %q requires redis.addr", c.Storage)
		}
	case StoragePostgres:
		if c.Postgres.URL == "" {
			return fmt.Errorf("storage %q requires postgres.url", c.Storage)
		}
	default:
		return fmt.Errorf("unknown storage %q", c.Storage)
	}
	if c.Events.RedisChannel != "" && c.Redis.Addr == "" {
		return fmt.Errorf("events.redis_channel requires redis.addr")
	}
	return nil
}

// StorageBackend resolves the configured or implied storage backend.
func (c Config) StorageBackend() string {
	switch {
	case c.Storage != "":
		return c.Storage
	case c.Postgres.URL != "":
		return StoragePostgres
	case c.Redis.Addr != "":
		return StorageRedis
	}
	return StorageMemory
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
