package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to environment variable overrides, e.g. SITEGRAPH_MAX_PAGES
const EnvPrefix = "SITEGRAPH"

// Config holds all runtime configuration parameters
type Config struct {
	SeedURL            string   `mapstructure:"seed_url"`
	MaxPages           int      `mapstructure:"max_pages"`
	OutputName         string   `mapstructure:"output_name"`
	DBPath             string   `mapstructure:"db_path"`
	MetricsPath        string   `mapstructure:"metrics_path"`
	Workers            int      `mapstructure:"workers"`
	RequestTimeoutMs   int      `mapstructure:"request_timeout_ms"`
	UserAgent          string   `mapstructure:"user_agent"`
	ResourceExtensions []string `mapstructure:"resource_extensions"`
	SkipParentLinks    bool     `mapstructure:"skip_parent_links"`
	FoldSegments       []string `mapstructure:"fold_segments"`
	HTTPOnly           bool     `mapstructure:"http_only"`
	LogLevel           string   `mapstructure:"log_level"`
}

// RequestTimeout returns the per-request timeout as a duration
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMs) * time.Millisecond
}

// LoadConfig reads configuration from an optional file and the environment,
// applies defaults and validates the result. An empty path skips the file.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	applyDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for unspecified fields
func applyDefaults(v *viper.Viper) {
	v.SetDefault("seed_url", "http://158.101.167.252")
	v.SetDefault("max_pages", 50)
	v.SetDefault("output_name", "graph")
	v.SetDefault("db_path", "")
	v.SetDefault("metrics_path", "")
	v.SetDefault("workers", 1)
	v.SetDefault("request_timeout_ms", 10000)
	v.SetDefault("user_agent", "")
	v.SetDefault("resource_extensions", []string{
		".pdf", ".docx", ".xlsx", ".pptx", ".zip", ".tar.gz", ".rar", ".apk",
		".jpg", ".jpeg", ".png", ".gif",
		".mp4", ".mp3", ".avi", ".mov", ".mkv", ".webm", ".flv", ".wmv",
		".txt", ".csv", ".json", ".xml",
	})
	v.SetDefault("skip_parent_links", true)
	v.SetDefault("fold_segments", []string{})
	v.SetDefault("http_only", false)
	v.SetDefault("log_level", "info")
}

// Validate checks that required fields are present and values are sensible
func (c *Config) Validate() error {
	if c.SeedURL == "" {
		return errors.New("seed_url is required")
	}
	parsed, err := url.Parse(c.SeedURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("seed_url must be an absolute http(s) URL, got %q", c.SeedURL)
	}
	if c.MaxPages < 0 {
		return errors.New("max_pages must be >= 0")
	}
	if c.OutputName == "" {
		return errors.New("output_name is required")
	}
	if c.Workers < 1 {
		return errors.New("workers must be >= 1")
	}
	if c.RequestTimeoutMs < 100 {
		return errors.New("request_timeout_ms must be >= 100")
	}
	return nil
}
