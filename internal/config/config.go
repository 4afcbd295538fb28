package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"amesdash/internal/errors"
)

// DefaultDatasetURL is the canonical remote location of the Ames Housing CSV.
const DefaultDatasetURL = "https://raw.githubusercontent.com/Viniciusalgueiro/Ameshousing/refs/heads/main/AmesHousing.csv"

// Config represents the complete application configuration
type Config struct {
	Server ServerConfig
	Data   DataConfig
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port    string
	GinMode string
}

// DataConfig holds dataset acquisition settings
type DataConfig struct {
	// URLs are tried in order until one of them yields a parseable CSV.
	URLs []string
	// LocalFile, when set, takes precedence over the remote URLs.
	// Both .csv and .xlsx are accepted.
	LocalFile string
	// PreviewRows is how many raw rows the data preview shows.
	PreviewRows int
	// FetchTimeout bounds a single remote download attempt.
	FetchTimeout time.Duration
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			Port:    getEnv("PORT", "8080"),
			GinMode: getEnv("GIN_MODE", "release"),
		},
		Data: DataConfig{
			URLs:         splitList(getEnv("DATASET_URLS", DefaultDatasetURL)),
			LocalFile:    os.Getenv("DATASET_FILE"),
			PreviewRows:  getEnvInt("PREVIEW_ROWS", 10),
			FetchTimeout: getEnvDuration("FETCH_TIMEOUT", 30*time.Second),
		},
	}

	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) validate() error {
	if c.Server.Port == "" {
		return errors.ConfigInvalid("PORT must not be empty")
	}
	if len(c.Data.URLs) == 0 && c.Data.LocalFile == "" {
		return errors.ConfigInvalid("either DATASET_URLS or DATASET_FILE must be set")
	}
	if c.Data.PreviewRows <= 0 {
		return errors.ConfigInvalid("PREVIEW_ROWS must be positive")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
