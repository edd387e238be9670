package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/tradeloop/risk"
)

// Config is the complete runtime configuration.
type Config struct {
	Session SessionConfig `json:"session" yaml:"session"`
	Broker  BrokerConfig  `json:"broker" yaml:"broker"`
	Persist PersistConfig `json:"persist" yaml:"persist"`
	Web     WebConfig     `json:"web" yaml:"web"`
	Risk    risk.Config   `json:"risk" yaml:"risk"`
}

// SessionConfig drives the control loop.
type SessionConfig struct {
	Mode           string   `json:"mode" yaml:"mode"` // paper | live
	Strategy       string   `json:"strategy" yaml:"strategy"`
	Watchlist      []string `json:"watchlist" yaml:"watchlist"`
	RefreshSeconds int      `json:"refresh_seconds" yaml:"refresh_seconds"`
	SubmitTimeout  string   `json:"submit_timeout" yaml:"submit_timeout"` // e.g. "30s"
	OrderFee       float64  `json:"order_fee" yaml:"order_fee"`
}

// BrokerConfig selects the execution adapter.
type BrokerConfig struct {
	Kind string `json:"kind" yaml:"kind"` // paper | groww | upstox | zerodha | none
}

// PersistConfig locates the durable artifacts.
type PersistConfig struct {
	SnapshotFile      string `json:"snapshot_file" yaml:"snapshot_file"`
	JournalFile       string `json:"journal_file" yaml:"journal_file"`
	AutoResumeSession bool   `json:"auto_resume_session" yaml:"auto_resume_session"`
}

// WebConfig configures the web dashboard surface.
type WebConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Addr    string `json:"addr" yaml:"addr"`
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Session: SessionConfig{
			Mode:           "paper",
			Strategy:       "sma-cross",
			Watchlist:      []string{"RELIANCE", "TCS", "INFY"},
			RefreshSeconds: 15,
			SubmitTimeout:  "30s",
		},
		Broker: BrokerConfig{Kind: "paper"},
		Persist: PersistConfig{
			SnapshotFile:      "data/session_state.json",
			JournalFile:       "data/order_journal.db",
			AutoResumeSession: true,
		},
		Web: WebConfig{Enabled: true, Addr: "127.0.0.1:8787"},
		Risk: risk.DefaultConfig(),
	}
}

// LoadFromFile loads configuration from a YAML or JSON file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jerr := json.Unmarshal(data, cfg); jerr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SaveToFile writes the configuration as YAML (or JSON for .json paths).
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error
	if strings.HasSuffix(path, ".json") {
		data, err = json.MarshalIndent(c, "", "  ")
	} else {
		data, err = yaml.Marshal(c)
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks the configuration for obvious mistakes.
func (c *Config) Validate() error {
	if c.Session.Mode != "paper" && c.Session.Mode != "live" {
		return fmt.Errorf("session.mode must be 'paper' or 'live'")
	}
	if len(c.Session.Watchlist) == 0 {
		return fmt.Errorf("session.watchlist requires at least one symbol")
	}
	if c.Session.RefreshSeconds < 1 {
		return fmt.Errorf("session.refresh_seconds must be >= 1")
	}
	if _, err := c.SubmitTimeout(); err != nil {
		return fmt.Errorf("session.submit_timeout: %w", err)
	}
	switch c.Broker.Kind {
	case "paper", "none", "groww", "upstox", "zerodha":
	default:
		return fmt.Errorf("broker.kind %q not supported", c.Broker.Kind)
	}
	if c.Persist.SnapshotFile == "" || c.Persist.JournalFile == "" {
		return fmt.Errorf("persist.snapshot_file and persist.journal_file are required")
	}
	if c.Risk.InitialCapital <= 0 {
		return fmt.Errorf("risk.initial_capital must be positive")
	}
	if c.Risk.RiskPerTradePct <= 0 || c.Risk.RiskPerTradePct > 1 {
		return fmt.Errorf("risk.risk_per_trade_pct must be in (0, 1]")
	}
	if c.Risk.MaxPositionPct <= 0 || c.Risk.MaxPositionPct > 1 {
		return fmt.Errorf("risk.max_position_pct must be in (0, 1]")
	}
	if c.Risk.MaxOrdersPerDay < 1 {
		return fmt.Errorf("risk.max_orders_per_day must be >= 1")
	}
	return nil
}

// SubmitTimeout parses the configured submitted-order timeout.
func (c *Config) SubmitTimeout() (time.Duration, error) {
	if c.Session.SubmitTimeout == "" {
		return 30 * time.Second, nil
	}
	return time.ParseDuration(c.Session.SubmitTimeout)
}

// RefreshInterval returns the control loop tick interval.
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.Session.RefreshSeconds) * time.Second
}
