// Package config loads client configuration from an optional YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds all client configuration.
type Config struct {
	Credential CredentialConfig `yaml:"credential"`
	Upload     UploadConfig     `yaml:"upload"`
	Download   DownloadConfig   `yaml:"download"`
	Log        LogConfig        `yaml:"log"`
	History    HistoryConfig    `yaml:"history"`
}

// CredentialConfig holds credential storage configuration.
type CredentialConfig struct {
	File       string `yaml:"file" envconfig:"BILI_CREDENTIAL_FILE" default:"cookies.json"`
	Passphrase string `yaml:"passphrase" envconfig:"BILI_CREDENTIAL_PASSPHRASE"`
}

// UploadConfig holds upload pipeline configuration.
type UploadConfig struct {
	// Limit caps concurrently in-flight chunk uploads per file.
	Limit        int           `yaml:"limit" envconfig:"BILI_UPLOAD_LIMIT" default:"3"`
	Line         string        `yaml:"line" envconfig:"BILI_UPLOAD_LINE"`
	ProbeTimeout time.Duration `yaml:"probe_timeout" envconfig:"BILI_PROBE_TIMEOUT" default:"3s"`
	Timeout      time.Duration `yaml:"timeout" envconfig:"BILI_UPLOAD_TIMEOUT" default:"30s"`
	UserAgent    string        `yaml:"user_agent" envconfig:"BILI_USER_AGENT"`
}

// DownloadConfig holds segmented download configuration.
type DownloadConfig struct {
	Timeout      time.Duration `yaml:"timeout" envconfig:"BILI_DOWNLOAD_TIMEOUT" default:"10m"`
	ReadTimeout  time.Duration `yaml:"read_timeout" envconfig:"BILI_DOWNLOAD_READ_TIMEOUT" default:"60s"`
	MinFreeSpace int64         `yaml:"min_free_space" envconfig:"BILI_MIN_FREE_SPACE" default:"524288000"` // 500MB
	UserAgent    string        `yaml:"user_agent" envconfig:"BILI_DOWNLOAD_USER_AGENT" default:"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"`
}

// LogConfig holds rolling log file configuration.
type LogConfig struct {
	Dir        string `yaml:"dir" envconfig:"BILI_LOG_DIR" default:"."`
	MaxSizeMB  int    `yaml:"max_size_mb" envconfig:"BILI_LOG_MAX_SIZE_MB" default:"20"`
	MaxBackups int    `yaml:"max_backups" envconfig:"BILI_LOG_MAX_BACKUPS" default:"3"`
	Level      string `yaml:"level" envconfig:"BILI_LOG_LEVEL" default:"info"`
}

// HistoryConfig holds the local operation history store configuration.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled" envconfig:"BILI_HISTORY_ENABLED" default:"true"`
	Path    string `yaml:"path" envconfig:"BILI_HISTORY_PATH" default:"bilistream.db"`
}

// Load reads configuration from file and environment variables.
// Environment variables override file values.
func Load(configPath string) (*Config, error) {
	cfg := &Config{}

	// Load from YAML file if provided
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	// Override with environment variables
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are usable.
func (c *Config) Validate() error {
	if c.Upload.Limit < 1 {
		return fmt.Errorf("upload limit must be at least 1, got %d", c.Upload.Limit)
	}
	if c.Download.ReadTimeout <= 0 {
		return fmt.Errorf("download read timeout must be positive")
	}
	return nil
}
