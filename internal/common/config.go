// Package common provides shared utilities for the paper trader.
package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for the paper trader.
type Config struct {
	Storage Area          `toml:"storage"`
	Clients ClientsConfig `toml:"clients"`
	Trading TradingConfig `toml:"trading"`
	Logging LoggingConfig `toml:"logging"`
}

// Area holds path configuration for the data directory.
type Area struct {
	Path string `toml:"path"`
}

// ClientsConfig holds API client configurations.
type ClientsConfig struct {
	AlphaVantage AlphaVantageConfig `toml:"alphavantage"`
}

// AlphaVantageConfig holds Alpha Vantage API configuration.
type AlphaVantageConfig struct {
	BaseURL   string `toml:"base_url"`
	APIKey    string `toml:"api_key"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the per-quote timeout duration.
func (c *AlphaVantageConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 15 * time.Second
	}
	return d
}

// TradingConfig holds simulated account configuration.
type TradingConfig struct {
	StartingCash float64 `toml:"starting_cash"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `toml:"level"`
}

// NewDefaultConfig returns a Config with sensible defaults.
func NewDefaultConfig() *Config {
	return &Config{
		Storage: Area{Path: "data"},
		Clients: ClientsConfig{
			AlphaVantage: AlphaVantageConfig{
				BaseURL:   "https://www.alphavantage.co/query",
				RateLimit: 5,
				Timeout:   "15s",
			},
		},
		Trading: TradingConfig{
			StartingCash: 10000.0,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides.
// Later files override earlier ones; missing files are skipped.
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config.
func applyEnvOverrides(config *Config) {
	if path := os.Getenv("TRADER_DATA_PATH"); path != "" {
		config.Storage.Path = path
	}

	if level := os.Getenv("TRADER_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if key := os.Getenv("ALPHA_VANTAGE_API_KEY"); key != "" {
		config.Clients.AlphaVantage.APIKey = key
	}

	if url := os.Getenv("TRADER_ALPHAVANTAGE_URL"); url != "" {
		config.Clients.AlphaVantage.BaseURL = url
	}

	if cash := os.Getenv("TRADER_STARTING_CASH"); cash != "" {
		if v, err := strconv.ParseFloat(cash, 64); err == nil && v > 0 {
			config.Trading.StartingCash = v
		}
	}
}
