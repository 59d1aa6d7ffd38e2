package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for accounthub.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Service  ServiceConfig  `yaml:"service"`
	Database DatabaseConfig `yaml:"database"`
	API      APIConfig      `yaml:"api"`
	Security SecurityConfig `yaml:"security"`
	Mail     MailConfig     `yaml:"mail"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServiceConfig contains service identity settings.
type ServiceConfig struct {
	Name string `yaml:"name"`
	// BaseURL is the externally visible URL, used to build links in
	// outbound email (password reset, email verification).
	BaseURL string `yaml:"base_url"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`

	// ItemLimit is the page size for cursor-paginated list endpoints.
	ItemLimit int `yaml:"item_limit"`
}

// APITimeoutConfig contains HTTP timeout settings (seconds).
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// SecurityConfig contains security settings.
type SecurityConfig struct {
	// Secret signs session tokens. Required, minimum 32 characters.
	Secret string `yaml:"secret"`

	// SessionTTL is the session cookie/token lifetime in seconds.
	SessionTTL int `yaml:"session_ttl"`

	// OneTimeTokenTTL is the lifetime of reset/verification tokens in seconds.
	OneTimeTokenTTL int `yaml:"one_time_token_ttl"`
}

// MailConfig contains outbound SMTP settings.
type MailConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

// MetricsConfig contains InfluxDB metrics sink settings.
type MetricsConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: ACCOUNTHUB_SECTION_KEY
// For example: ACCOUNTHUB_DATABASE_PATH, ACCOUNTHUB_SECRET
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	// Start with defaults
	cfg := defaultConfig()

	// Read and parse YAML file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultSessionTTL is the default session lifetime: 3 days, matching the
// Authorization cookie max-age.
const defaultSessionTTL = 259200

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:    "accounthub",
			BaseURL: "http://localhost:8080",
		},
		Database: DatabaseConfig{
			Path:        "./data/accounthub.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
			ItemLimit: 10,
		},
		Security: SecurityConfig{
			SessionTTL:      defaultSessionTTL,
			OneTimeTokenTTL: 300,
		},
		Mail: MailConfig{
			Port: 587,
			From: "no-reply@accounthub.local",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: ACCOUNTHUB_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Service
	if v := os.Getenv("ACCOUNTHUB_BASE_URL"); v != "" {
		cfg.Service.BaseURL = v
	}

	// Database
	if v := os.Getenv("ACCOUNTHUB_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// API
	if v := os.Getenv("ACCOUNTHUB_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("ACCOUNTHUB_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}

	// Mail
	if v := os.Getenv("ACCOUNTHUB_MAIL_HOST"); v != "" {
		cfg.Mail.Host = v
	}
	if v := os.Getenv("ACCOUNTHUB_MAIL_USERNAME"); v != "" {
		cfg.Mail.Username = v
	}
	if v := os.Getenv("ACCOUNTHUB_MAIL_PASSWORD"); v != "" {
		cfg.Mail.Password = v
	}

	// Metrics
	if v := os.Getenv("ACCOUNTHUB_METRICS_TOKEN"); v != "" {
		cfg.Metrics.Token = v
	}

	// Security - signing secret (IMPORTANT: always override in production)
	if v := os.Getenv("ACCOUNTHUB_SECRET"); v != "" {
		cfg.Security.Secret = v
	}
}

// Validate checks the configuration for errors and security issues.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Database validation
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	// API validation
	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}
	if c.API.ItemLimit < 1 {
		errs = append(errs, "api.item_limit must be at least 1")
	}

	// Security validation - signing secret is REQUIRED.
	// An empty or weak secret would let an attacker forge session tokens
	// for any account, including SUPER ADMIN.
	const minSecretLength = 32
	if c.Security.Secret == "" {
		errs = append(errs, "security.secret is required (set ACCOUNTHUB_SECRET environment variable)")
	} else if len(c.Security.Secret) < minSecretLength {
		errs = append(errs, "security.secret must be at least 32 characters for adequate security")
	}

	if c.Security.SessionTTL < 1 {
		errs = append(errs, "security.session_ttl must be positive")
	}
	if c.Security.OneTimeTokenTTL < 1 {
		errs = append(errs, "security.one_time_token_ttl must be positive")
	}

	// Mail validation only applies when delivery is enabled
	if c.Mail.Enabled {
		if c.Mail.Host == "" {
			errs = append(errs, "mail.host is required when mail is enabled")
		}
		if c.Mail.From == "" {
			errs = append(errs, "mail.from is required when mail is enabled")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// GetSessionTTL returns the session token lifetime as a Duration.
func (c *Config) GetSessionTTL() time.Duration {
	return time.Duration(c.Security.SessionTTL) * time.Second
}

// GetOneTimeTokenTTL returns the one-time token lifetime as a Duration.
func (c *Config) GetOneTimeTokenTTL() time.Duration {
	return time.Duration(c.Security.OneTimeTokenTTL) * time.Second
}
