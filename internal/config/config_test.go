package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
alpaca:
  api_key: "test-key"
  api_secret: "test-secret"
  base_url: "https://paper-api.alpaca.markets"
  retry_limit: 3
ib:
  gateway_url: "https://localhost:5000/v1/api"
  account_id: "DU1234567"
  insecure_skip_verify: true
sim:
  db_path: "/tmp/tradingapi/sim.db"
  starting_cash: 50000
logging:
  level: "debug"
  format: "json"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Alpaca.APIKey != "test-key" || cfg.Alpaca.RetryLimit != 3 {
		t.Errorf("alpaca section = %+v", cfg.Alpaca)
	}
	if cfg.IB.AccountID != "DU1234567" || !cfg.IB.InsecureSkipVerify {
		t.Errorf("ib section = %+v", cfg.IB)
	}
	if cfg.Sim.DBPath != "/tmp/tradingapi/sim.db" || cfg.Sim.StartingCash != 50000 {
		t.Errorf("sim section = %+v", cfg.Sim)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("logging section = %+v", cfg.Logging)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load of a missing file should fail")
	}
}

func TestEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
alpaca:
  api_key: "file-key"
  api_secret: "file-secret"
ib:
  account_id: "file-account"
`)

	t.Setenv("ALPACA_API_KEY", "env-key")
	t.Setenv("IB_ACCOUNT_ID", "env-account")
	// Canonical Alpaca names win over both the file and ALPACA_* vars.
	t.Setenv("APCA_API_KEY_ID", "apca-key")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Alpaca.APIKey != "apca-key" {
		t.Errorf("APIKey = %q, want apca-key", cfg.Alpaca.APIKey)
	}
	if cfg.Alpaca.APISecret != "file-secret" {
		t.Errorf("APISecret = %q, want file-secret", cfg.Alpaca.APISecret)
	}
	if cfg.IB.AccountID != "env-account" {
		t.Errorf("AccountID = %q, want env-account", cfg.IB.AccountID)
	}
}

func TestSettingsBridges(t *testing.T) {
	cfg := &Config{}
	cfg.Alpaca = Alpaca{APIKey: "k", APISecret: "s", RetryLimit: 2}
	cfg.IB = IB{GatewayURL: "https://localhost:5000/v1/api", AccountID: "DU1", InsecureSkipVerify: true}
	cfg.Sim = Sim{DBPath: "sim.db", StartingCash: 25000}

	as := cfg.AlpacaSettings()
	if as["api_key"] != "k" || as["retry_limit"] != "2" {
		t.Errorf("alpaca settings = %v", as)
	}

	is := cfg.IBSettings()
	if is["account_id"] != "DU1" || is["insecure_skip_verify"] != "true" {
		t.Errorf("ib settings = %v", is)
	}

	ss := cfg.SimSettings()
	if ss["db_path"] != "sim.db" || ss["starting_cash"] != "25000" {
		t.Errorf("sim settings = %v", ss)
	}

	// Unset optionals leave no key rather than an empty value that
	// would trip settings validation.
	empty := (&Config{}).AlpacaSettings()
	if _, ok := empty["retry_limit"]; ok {
		t.Error("zero retry_limit should not produce a settings key")
	}
}
