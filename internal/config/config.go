// Package config loads the service configuration from a yaml file layered
// under environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config holds all service configuration.
type Config struct {
	Environment string `yaml:"environment" validate:"oneof=development staging production"`

	Server struct {
		Address string `yaml:"address" validate:"required"`
	} `yaml:"server"`

	Database struct {
		DSN string `yaml:"dsn" validate:"required"`
	} `yaml:"database"`

	Redis struct {
		Addr     string `yaml:"addr" validate:"required"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db" validate:"gte=0"`
	} `yaml:"redis"`

	Cache CacheConfig `yaml:"cache"`

	Events struct {
		QueueSize int `yaml:"queue_size" validate:"gt=0"`
		Workers   int `yaml:"workers" validate:"gt=0"`
	} `yaml:"events"`

	Jobs struct {
		AdjustmentQuota int  `yaml:"adjustment_quota" validate:"gt=0"`
		RunOnStart      bool `yaml:"run_on_start"`
	} `yaml:"jobs"`

	Tracing struct {
		Enabled  bool   `yaml:"enabled"`
		Endpoint string `yaml:"endpoint"`
	} `yaml:"tracing"`

	LogLevel string `yaml:"log_level" validate:"oneof=debug info warn error"`
}

// CacheConfig carries the TTL settings the watcher hot-reloads.
type CacheConfig struct {
	ListTTL       time.Duration `yaml:"list_ttl" validate:"gt=0"`
	LockTTL       time.Duration `yaml:"lock_ttl" validate:"gt=0"`
	WarmFeatured  bool          `yaml:"warm_featured"`
	FeaturedLimit int           `yaml:"featured_limit" validate:"gt=0"`
}

func defaults() *Config {
	cfg := &Config{
		Environment: "development",
		LogLevel:    "info",
	}
	cfg.Server.Address = ":8080"
	cfg.Database.DSN = "file:tutorhub.db?_fk=1"
	cfg.Redis.Addr = "localhost:6379"
	cfg.Cache = CacheConfig{
		ListTTL:       10 * time.Minute,
		LockTTL:       10 * time.Second,
		WarmFeatured:  true,
		FeaturedLimit: 8,
	}
	cfg.Events.QueueSize = 1024
	cfg.Events.Workers = 4
	cfg.Jobs.AdjustmentQuota = 3
	return cfg
}

// Load reads the config file at path (optional) and applies environment
// overrides, then validates the result.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}
		}
	}

	applyEnv(cfg)

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Environment = getEnv("ENVIRONMENT", cfg.Environment)
	cfg.Server.Address = getEnv("SERVER_ADDRESS", cfg.Server.Address)
	cfg.Database.DSN = getEnv("DATABASE_DSN", cfg.Database.DSN)
	cfg.Redis.Addr = getEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = getEnvInt("REDIS_DB", cfg.Redis.DB)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.Tracing.Endpoint = getEnv("OTLP_ENDPOINT", cfg.Tracing.Endpoint)
	if cfg.Tracing.Endpoint != "" {
		cfg.Tracing.Enabled = true
	}
	if ttl := getEnvDuration("CACHE_LIST_TTL", 0); ttl > 0 {
		cfg.Cache.ListTTL = ttl
	}
	if ttl := getEnvDuration("CACHE_LOCK_TTL", 0); ttl > 0 {
		cfg.Cache.LockTTL = ttl
	}
	cfg.Jobs.AdjustmentQuota = getEnvInt("ADJUSTMENT_QUOTA", cfg.Jobs.AdjustmentQuota)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
