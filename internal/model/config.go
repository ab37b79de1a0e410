package model

import (
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// Config holds the runtime settings of the annotation engine
type Config struct {
	Store        StoreConfig       `yaml:"store" mapstructure:"store"`
	Annotate     AnnotateConfig    `yaml:"annotate" mapstructure:"annotate"`
	Cache        CacheConfig       `yaml:"cache" mapstructure:"cache"`
	Concurrency  ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	HTTP         HTTPConfig        `yaml:"http" mapstructure:"http"`
	RateLimiting RateLimitConfig   `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Logging      LoggingConfig     `yaml:"logging" mapstructure:"logging"`
}

// StoreConfig points at the SQLite database
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// AnnotateConfig controls batch annotation
type AnnotateConfig struct {
	BatchSize   int    `yaml:"batch_size" mapstructure:"batch_size"`     // Reviews committed per transaction
	LexiconPath string `yaml:"lexicon_path" mapstructure:"lexicon_path"` // Optional YAML overlay for the word lists
}

// CacheConfig controls memoization of annotation results
type CacheConfig struct {
	Enabled bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir     string        `yaml:"dir" mapstructure:"dir"`
	TTL     time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

// ConcurrencyConfig controls the worker pool
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// HTTPConfig controls remote dump downloads
type HTTPConfig struct {
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent     string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	MaxRetries    int           `yaml:"max_retries" mapstructure:"max_retries"`
	RespectRobots bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
	HTTPProxy     string        `yaml:"http_proxy" mapstructure:"http_proxy"`
	HTTPSProxy    string        `yaml:"https_proxy" mapstructure:"https_proxy"`
	NoProxy       string        `yaml:"no_proxy" mapstructure:"no_proxy"`
}

// RateLimitConfig bounds requests per host
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// LoggingConfig selects the zap encoder and level
type LoggingConfig struct {
	Verbose bool   `yaml:"verbose" mapstructure:"verbose"`
	Format  string `yaml:"format" mapstructure:"format"` // json or console
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Path: filepath.Join(defaultHome(), "restomaps.db"),
		},
		Annotate: AnnotateConfig{
			BatchSize: 100,
		},
		Cache: CacheConfig{
			Enabled: true,
			Dir:     filepath.Join(defaultHome(), "cache"),
			TTL:     7 * 24 * time.Hour,
		},
		Concurrency: ConcurrencyConfig{
			Workers: runtime.NumCPU(),
		},
		HTTP: HTTPConfig{
			Timeout:       30 * time.Second,
			UserAgent:     "Restomaps/0.1 (+https://github.com/ppiankov/restomaps)",
			MaxBodyBytes:  64 << 20,
			MaxRetries:    3,
			RespectRobots: true,
		},
		RateLimiting: RateLimitConfig{
			RequestsPerSecond: 2,
			BurstSize:         4,
		},
		Logging: LoggingConfig{
			Format: "console",
		},
	}
}

// defaultHome is the per-user state directory, falling back to the working directory.
func defaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".restomaps"
	}
	return filepath.Join(home, ".restomaps")
}
