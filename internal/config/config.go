// Package config loads program configuration: embedded defaults, then an
// optional YAML file, then GUTENBERG_* environment overrides.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

//go:embed config.yml
var defaults []byte

type (
	ServerConfig struct {
		Port           string        `yaml:"port"`
		APIKey         string        `yaml:"api_key"`
		Workers        int           `yaml:"workers"`
		QueueSize      int           `yaml:"queue_size"`
		MaxUploadBytes int64         `yaml:"max_upload_bytes"`
		JobTTL         time.Duration `yaml:"job_ttl"`
		RateLimit      int           `yaml:"rate_limit"`       // requests per minute and client, 0 disables
		RenderCacheTTL time.Duration `yaml:"render_cache_ttl"` // 0 disables
	}

	BuildConfig struct {
		Workers              int     `yaml:"workers"`
		StylesDir            string  `yaml:"styles_dir"`
		HyphenationDir       string  `yaml:"hyphenation_dir"`
		DefaultStyle         string  `yaml:"default_style"`
		PageCapacity         float64 `yaml:"page_capacity"` // 0 takes the style's content height
		PDFFallbackPdftotext bool    `yaml:"pdf_fallback_pdftotext"`
	}

	Config struct {
		Version int           `yaml:"version"`
		Server  ServerConfig  `yaml:"server"`
		Build   BuildConfig   `yaml:"build"`
		Logging LoggingConfig `yaml:"logging"`
	}
)

func unmarshalConfig(data []byte, cfg *Config) (*Config, error) {
	// Unknown keys are errors so typos do not silently fall back to defaults.
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration data: %w", err)
	}
	return cfg, nil
}

// Default returns the embedded defaults.
func Default() *Config {
	cfg, err := unmarshalConfig(defaults, &Config{})
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load superimposes the file at path, when given, and the environment on the
// defaults and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if cfg, err = unmarshalConfig(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to process configuration file: %w", err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Server.Port = envOr("GUTENBERG_PORT", c.Server.Port)
	c.Server.APIKey = envOr("GUTENBERG_API_KEY", c.Server.APIKey)
	c.Server.Workers = envInt("GUTENBERG_WORKERS", c.Server.Workers)
	c.Server.QueueSize = envInt("GUTENBERG_QUEUE_SIZE", c.Server.QueueSize)
	c.Server.MaxUploadBytes = envInt64("GUTENBERG_MAX_UPLOAD_BYTES", c.Server.MaxUploadBytes)
	c.Server.JobTTL = envDuration("GUTENBERG_JOB_TTL", c.Server.JobTTL)
	c.Server.RateLimit = envInt("GUTENBERG_RATE_LIMIT", c.Server.RateLimit)
	c.Build.StylesDir = envOr("GUTENBERG_STYLES_DIR", c.Build.StylesDir)
	c.Build.HyphenationDir = envOr("GUTENBERG_HYPHENATION_DIR", c.Build.HyphenationDir)
	c.Logging.ConsoleLogger.Level = envOr("GUTENBERG_LOG_LEVEL", c.Logging.ConsoleLogger.Level)
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var err error
	if c.Version != 1 {
		err = multierr.Append(err, fmt.Errorf("unsupported configuration version %d", c.Version))
	}
	if c.Server.Port == "" {
		err = multierr.Append(err, errors.New("server.port is required"))
	}
	if c.Server.Workers <= 0 {
		err = multierr.Append(err, errors.New("server.workers must be positive"))
	}
	if c.Server.QueueSize <= 0 {
		err = multierr.Append(err, errors.New("server.queue_size must be positive"))
	}
	if c.Server.MaxUploadBytes <= 0 {
		err = multierr.Append(err, errors.New("server.max_upload_bytes must be positive"))
	}
	if c.Server.JobTTL <= 0 {
		err = multierr.Append(err, errors.New("server.job_ttl must be positive"))
	}
	if c.Server.RateLimit < 0 {
		err = multierr.Append(err, errors.New("server.rate_limit must not be negative"))
	}
	if c.Server.RenderCacheTTL < 0 {
		err = multierr.Append(err, errors.New("server.render_cache_ttl must not be negative"))
	}
	if c.Build.Workers <= 0 {
		err = multierr.Append(err, errors.New("build.workers must be positive"))
	}
	if c.Build.PageCapacity < 0 {
		err = multierr.Append(err, errors.New("build.page_capacity must not be negative"))
	}
	return multierr.Append(err, c.Logging.validate())
}

// Dump returns the configuration as YAML.
func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %w", err)
	}
	return data, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
