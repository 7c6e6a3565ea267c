package config

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/paaliaq/tradingapi/internal/broker"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the trading API.
type Config struct {
	Alpaca  Alpaca  `yaml:"alpaca"`
	IB      IB      `yaml:"ib"`
	Sim     Sim     `yaml:"sim"`
	Logging Logging `yaml:"logging"`
}

// Alpaca holds credentials and endpoints for the Alpaca broker API.
type Alpaca struct {
	APIKey     string `yaml:"api_key"`
	APISecret  string `yaml:"api_secret"`
	BaseURL    string `yaml:"base_url"`
	RetryLimit int    `yaml:"retry_limit"`
}

// IB holds connection parameters for the IB Client Portal gateway.
type IB struct {
	GatewayURL         string `yaml:"gateway_url"`
	AccountID          string `yaml:"account_id"`
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
}

// Sim holds parameters for the simulated broker.
type Sim struct {
	DBPath       string  `yaml:"db_path"`
	StartingCash float64 `yaml:"starting_cash"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at the given path, parses it into a
// Config struct, and then applies environment variable overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("ALPACA_API_SECRET"); v != "" {
		cfg.Alpaca.APISecret = v
	}
	if v := os.Getenv("ALPACA_BASE_URL"); v != "" {
		cfg.Alpaca.BaseURL = v
	}

	if v := os.Getenv("IB_GATEWAY_URL"); v != "" {
		cfg.IB.GatewayURL = v
	}
	if v := os.Getenv("IB_ACCOUNT_ID"); v != "" {
		cfg.IB.AccountID = v
	}

	if v := os.Getenv("SIM_DB_PATH"); v != "" {
		cfg.Sim.DBPath = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	// Standard Alpaca env vars (highest priority — canonical names used by SDK).
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}
}

// ---------------------------------------------------------------------------
// Broker settings bridges
// ---------------------------------------------------------------------------

// AlpacaSettings flattens the Alpaca section into broker settings.
func (c *Config) AlpacaSettings() broker.Settings {
	s := broker.Settings{
		"api_key":    c.Alpaca.APIKey,
		"api_secret": c.Alpaca.APISecret,
		"base_url":   c.Alpaca.BaseURL,
	}
	if c.Alpaca.RetryLimit > 0 {
		s["retry_limit"] = strconv.Itoa(c.Alpaca.RetryLimit)
	}
	return s
}

// IBSettings flattens the IB section into broker settings.
func (c *Config) IBSettings() broker.Settings {
	s := broker.Settings{
		"gateway_url": c.IB.GatewayURL,
		"account_id":  c.IB.AccountID,
	}
	if c.IB.InsecureSkipVerify {
		s["insecure_skip_verify"] = "true"
	}
	return s
}

// SimSettings flattens the Sim section into broker settings.
func (c *Config) SimSettings() broker.Settings {
	s := broker.Settings{
		"db_path": c.Sim.DBPath,
	}
	if c.Sim.StartingCash > 0 {
		s["starting_cash"] = strconv.FormatFloat(c.Sim.StartingCash, 'f', -1, 64)
	}
	return s
}
