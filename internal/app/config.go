package app

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/aussiebroadwan/hoodauth/pkg/robinhood"
	"github.com/aussiebroadwan/hoodauth/pkg/session"
)

type Config struct {
	BaseURL       string        // Optional: API host (default: https://api.robinhood.com)
	Username      string        // Optional: prompted when empty
	DeviceToken   string        // Optional: device identifier (default: random UUID)
	ChallengeType string        // Optional: challenge delivery, sms or email (default: sms)
	MFASecret     string        // Optional: base32 TOTP seed; MFA codes are prompted when empty
	HTTPTimeout   time.Duration // Optional: per request timeout (default: 10s)
	Env           string        // Environment (dev, staging, prod) (default: prod)
	LogLevel      string        // Log level (debug, info, warn, error) (default: warn)
	LogFormat     string        // Log format (json, text) (default: text)
}

// fileConfig is the YAML overlay read from ROBINHOOD_CONFIG_FILE. Empty
// fields leave the environment value in place.
type fileConfig struct {
	BaseURL       string `yaml:"base_url"`
	Username      string `yaml:"username"`
	DeviceToken   string `yaml:"device_token"`
	ChallengeType string `yaml:"challenge_type"`
	MFASecret     string `yaml:"mfa_secret"`
	HTTPTimeout   string `yaml:"http_timeout"`
	Env           string `yaml:"env"`
	LogLevel      string `yaml:"log_level"`
	LogFormat     string `yaml:"log_format"`
}

// LoadConfig reads the configuration from the environment, after loading
// the .env file named by ROBINHOOD_ENV_FILE (default .env) when it exists.
// Values from the YAML file named by ROBINHOOD_CONFIG_FILE win over the
// environment.
func LoadConfig() (Config, error) {
	if err := loadDotEnv(getEnvOrDefault("ROBINHOOD_ENV_FILE", ".env")); err != nil {
		return Config{}, err
	}

	cfg := Config{
		BaseURL:       getEnvOrDefault("ROBINHOOD_BASE_URL", robinhood.DefaultBaseURL),
		Username:      os.Getenv("ROBINHOOD_USERNAME"),
		DeviceToken:   os.Getenv("ROBINHOOD_DEVICE_TOKEN"),
		ChallengeType: getEnvOrDefault("ROBINHOOD_CHALLENGE_TYPE", "sms"),
		MFASecret:     os.Getenv("ROBINHOOD_MFA_SECRET"),
		HTTPTimeout:   getEnvDurationOrDefault("ROBINHOOD_HTTP_TIMEOUT", robinhood.DefaultTimeout),
		Env:           getEnvOrDefault("ENV", "prod"),
		LogLevel:      getEnvOrDefault("LOG_LEVEL", "warn"),
		LogFormat:     getEnvOrDefault("LOG_FORMAT", "text"),
	}

	if path := os.Getenv("ROBINHOOD_CONFIG_FILE"); path != "" {
		if err := cfg.overlayFile(path); err != nil {
			return Config{}, err
		}
	}

	if cfg.DeviceToken == "" {
		cfg.DeviceToken = robinhood.NewDeviceToken()
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (cfg Config) Validate() error {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid base url %q", cfg.BaseURL)
	}
	if _, err := session.ParseChallengeType(cfg.ChallengeType); err != nil {
		return fmt.Errorf("invalid challenge type: %w", err)
	}
	if cfg.HTTPTimeout <= 0 {
		return fmt.Errorf("http timeout must be positive, got %s", cfg.HTTPTimeout)
	}
	return nil
}

// Challenge returns the configured challenge delivery method.
func (cfg Config) Challenge() session.ChallengeType {
	t, err := session.ParseChallengeType(cfg.ChallengeType)
	if err != nil {
		return session.ChallengeTypeSMS
	}
	return t
}

func (cfg *Config) overlayFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	overlay(&cfg.BaseURL, fc.BaseURL)
	overlay(&cfg.Username, fc.Username)
	overlay(&cfg.DeviceToken, fc.DeviceToken)
	overlay(&cfg.ChallengeType, fc.ChallengeType)
	overlay(&cfg.MFASecret, fc.MFASecret)
	overlay(&cfg.Env, fc.Env)
	overlay(&cfg.LogLevel, fc.LogLevel)
	overlay(&cfg.LogFormat, fc.LogFormat)

	if fc.HTTPTimeout != "" {
		d, err := time.ParseDuration(fc.HTTPTimeout)
		if err != nil {
			return fmt.Errorf("invalid http_timeout in %s: %w", path, err)
		}
		cfg.HTTPTimeout = d
	}
	return nil
}

func overlay(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

// loadDotEnv loads path into the environment without overriding variables
// that are already set. A missing file is not an error.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "10s", "1m")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Try parsing as integer seconds
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}

	return defaultValue
}
