// Package config loads service settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"golang.org/x/exp/slices"
)

// Store backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendNode   = "node"
)

var backends = []string{BackendMemory, BackendRedis, BackendNode}

var levels = []string{"panic", "fatal", "error", "warn", "warning", "info", "debug", "trace"}

// Config holds the scoring service settings.
type Config struct {
	Listen   string `env:"SCORING_LISTEN,default=:8080"`
	LogFile  string `env:"SCORING_LOG_FILE"`
	LogLevel string `env:"SCORING_LOG_LEVEL,default=info"`

	Salt       string `env:"SCORING_SALT,default=Otus"`
	AdminLogin string `env:"SCORING_ADMIN_LOGIN,default=admin"`
	AdminSalt  string `env:"SCORING_ADMIN_SALT,default=42"`

	Store Store
}

// Store configures the remote store and the client's retry policy.
type Store struct {
	Backend  string `env:"STORE_BACKEND,default=memory"`
	Addr     string `env:"STORE_ADDR"`
	Password string `env:"STORE_PASSWORD"`
	DB       int    `env:"STORE_DB,default=0"`
	Shards   int    `env:"STORE_SHARDS,default=4"`

	Timeout       time.Duration `env:"STORE_TIMEOUT,default=3s"`
	MaxAttempts   int           `env:"STORE_MAX_ATTEMPTS,default=20"`
	MinDelay      time.Duration `env:"STORE_MIN_DELAY,default=100ms"`
	MaxDelay      time.Duration `env:"STORE_MAX_DELAY,default=15m"`
	Jitter        time.Duration `env:"STORE_JITTER,default=100ms"`
	CacheAttempts int           `env:"STORE_CACHE_ATTEMPTS,default=3"`
	MaxQPS        float64       `env:"STORE_MAX_QPS,default=0"`
	Serialize     bool          `env:"STORE_SERIALIZE,default=false"`

	HealthInterval time.Duration `env:"STORE_HEALTH_INTERVAL,default=10s"`
}

// Node holds the store node settings.
type Node struct {
	ID       string `env:"NODE_ID,default=node-1"`
	Listen   string `env:"NODE_LISTEN,default=:8081"`
	LogFile  string `env:"NODE_LOG_FILE"`
	LogLevel string `env:"NODE_LOG_LEVEL,default=info"`
}

// Load reads envFile when it exists, then decodes Config from the
// environment and validates it. An empty envFile means ".env".
func Load(envFile string) (*Config, error) {
	if err := loadDotEnv(envFile); err != nil {
		return nil, err
	}

	var cfg Config
	if err := decode(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadNode is Load for the store node.
func LoadNode(envFile string) (*Node, error) {
	if err := loadDotEnv(envFile); err != nil {
		return nil, err
	}

	var cfg Node
	if err := decode(&cfg); err != nil {
		return nil, err
	}
	if !slices.Contains(levels, strings.ToLower(cfg.LogLevel)) {
		return nil, fmt.Errorf("NODE_LOG_LEVEL: unknown level %q", cfg.LogLevel)
	}
	return &cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var result *multierror.Error

	if c.Listen == "" {
		result = multierror.Append(result, errors.New("SCORING_LISTEN must not be empty"))
	}
	if !slices.Contains(levels, strings.ToLower(c.LogLevel)) {
		result = multierror.Append(result, fmt.Errorf("SCORING_LOG_LEVEL: unknown level %q", c.LogLevel))
	}

	s := c.Store
	if !slices.Contains(backends, s.Backend) {
		result = multierror.Append(result, fmt.Errorf("STORE_BACKEND: unknown backend %q (want one of %s)",
			s.Backend, strings.Join(backends, ", ")))
	}
	if s.Backend != BackendMemory && s.Backend != "" && s.Addr == "" {
		result = multierror.Append(result, fmt.Errorf("STORE_ADDR is required for the %s backend", s.Backend))
	}
	if s.MaxAttempts <= 0 {
		result = multierror.Append(result, fmt.Errorf("STORE_MAX_ATTEMPTS must be positive, got %d", s.MaxAttempts))
	}
	if s.CacheAttempts <= 0 {
		result = multierror.Append(result, fmt.Errorf("STORE_CACHE_ATTEMPTS must be positive, got %d", s.CacheAttempts))
	}
	if s.MinDelay <= 0 || s.MaxDelay < s.MinDelay {
		result = multierror.Append(result, fmt.Errorf("STORE_MIN_DELAY/STORE_MAX_DELAY: need 0 < min <= max, got %s and %s",
			s.MinDelay, s.MaxDelay))
	}
	if s.Jitter < 0 {
		result = multierror.Append(result, errors.New("STORE_JITTER must not be negative"))
	}
	if s.MaxQPS < 0 {
		result = multierror.Append(result, errors.New("STORE_MAX_QPS must not be negative"))
	}
	if s.Shards <= 0 {
		result = multierror.Append(result, fmt.Errorf("STORE_SHARDS must be positive, got %d", s.Shards))
	}
	if s.HealthInterval <= 0 {
		result = multierror.Append(result, errors.New("STORE_HEALTH_INTERVAL must be positive"))
	}

	if result == nil {
		return nil
	}
	result.ErrorFormat = func(errs []error) string {
		msgs := make([]string, len(errs))
		for i, err := range errs {
			msgs[i] = err.Error()
		}
		return "invalid configuration: " + strings.Join(msgs, "; ")
	}
	return result
}

func loadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func decode(target any) error {
	if err := envdecode.Decode(target); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return fmt.Errorf("decode environment: %w", err)
	}
	return nil
}
