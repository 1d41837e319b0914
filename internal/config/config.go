// Package config loads jobrun settings from YAML with environment overrides
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jzx17/gojobs/pkg/retry"
	"github.com/jzx17/gojobs/pkg/types"
)

// EnvPrefix prefixes every environment override, e.g. GOJOBS_WORKERS
const EnvPrefix = "GOJOBS"

// Config is the full set of jobrun settings
type Config struct {
	// Workers is the pool size; 0 means one per CPU
	Workers int `yaml:"workers"`

	// QueueCapacity bounds the job queue; 0 means unbounded
	QueueCapacity int `yaml:"queue_capacity"`

	Retry   RetryConfig   `yaml:"retry"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// RetryConfig configures retries of transient handler failures
type RetryConfig struct {
	// MaxAttempts counts the first call; 1 disables retries
	MaxAttempts  int           `yaml:"max_attempts"`
	InitialDelay time.Duration `yaml:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
	Multiplier   float64       `yaml:"multiplier"`
	Jitter       bool          `yaml:"jitter"`
	Seed         uint64        `yaml:"seed"`
}

// LogConfig configures the slog handler
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig configures the prometheus endpoint
type MetricsConfig struct {
	// Addr is the listen address for /metrics; empty disables it
	Addr string `yaml:"addr"`
}

// Default returns the built-in settings
func Default() *Config {
	return &Config{
		Retry: RetryConfig{
			MaxAttempts:  1,
			InitialDelay: 100 * time.Millisecond,
			MaxDelay:     5 * time.Second,
			Multiplier:   2,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := LoadYAML(path, cfg); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, fmt.Errorf("failed to apply env overrides: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadYAML loads configuration from a YAML file
func LoadYAML(path string, target interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read YAML file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, target); err != nil {
		return fmt.Errorf("failed to unmarshal YAML: %w", err)
	}

	return nil
}

// ApplyEnv overrides fields from PREFIX_FIELD variables found by lookup
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	ints := map[string]*int{
		"WORKERS":            &c.Workers,
		"QUEUE_CAPACITY":     &c.QueueCapacity,
		"RETRY_MAX_ATTEMPTS": &c.Retry.MaxAttempts,
	}
	for name, field := range ints {
		raw, ok := lookup(EnvPrefix + "_" + name)
		if !ok {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("%s_%s: %w", EnvPrefix, name, err)
		}
		*field = v
	}

	strs := map[string]*string{
		"LOG_LEVEL":    &c.Log.Level,
		"LOG_FORMAT":   &c.Log.Format,
		"METRICS_ADDR": &c.Metrics.Addr,
	}
	for name, field := range strs {
		if raw, ok := lookup(EnvPrefix + "_" + name); ok {
			*field = raw
		}
	}
	return nil
}

// Validate checks every field and reports all problems at once
func (c *Config) Validate() error {
	var errs []error
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must not be negative, got %d", c.Workers))
	}
	if c.QueueCapacity < 0 {
		errs = append(errs, fmt.Errorf("queue_capacity must not be negative, got %d", c.QueueCapacity))
	}
	if c.Retry.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("retry.max_attempts must be at least 1, got %d", c.Retry.MaxAttempts))
	}
	if c.Retry.InitialDelay < 0 || c.Retry.MaxDelay < 0 {
		errs = append(errs, errors.New("retry delays must not be negative"))
	}
	if c.Retry.Multiplier != 0 && c.Retry.Multiplier < 1 {
		errs = append(errs, fmt.Errorf("retry.multiplier must be at least 1, got %v", c.Retry.Multiplier))
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", types.ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// RetryPolicy builds the retry policy described by the retry section
func (c *Config) RetryPolicy() *retry.Policy {
	var opts []retry.BackoffOption
	if c.Retry.Multiplier > 0 {
		opts = append(opts, retry.WithMultiplier(c.Retry.Multiplier))
	}
	if c.Retry.MaxDelay > 0 {
		opts = append(opts, retry.WithMaxDelay(c.Retry.MaxDelay))
	}
	if c.Retry.Jitter {
		opts = append(opts, retry.WithJitter(retry.EqualJitter(rand.New(rand.NewPCG(c.Retry.Seed, 0)))))
	}
	return retry.NewPolicy(c.Retry.MaxAttempts, retry.NewExponentialBackoff(c.Retry.InitialDelay, opts...))
}

// NewLogger builds a slog logger writing to w
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.Log.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if strings.EqualFold(c.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}
