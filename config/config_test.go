package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	t.Parallel()

	cfg := Default()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, "paper", cfg.Session.Mode)
	assert.Equal(t, 15*time.Second, cfg.RefreshInterval())

	timeout, err := cfg.SubmitTimeout()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, timeout)
}

func TestSaveLoadYAMLRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "session.yaml")
	cfg := Default()
	cfg.Session.Watchlist = []string{"SBIN"}
	cfg.Risk.StopLossPct = 0.05
	require.NoError(t, cfg.SaveToFile(path))

	got, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"SBIN"}, got.Session.Watchlist)
	assert.InDelta(t, 0.05, got.Risk.StopLossPct, 1e-9)
}

func TestLoadJSONFallback(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "session.json")
	cfg := Default()
	cfg.Broker.Kind = "none"
	require.NoError(t, cfg.SaveToFile(path))

	got, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "none", got.Broker.Kind)
}

func TestValidateRejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad_mode", func(c *Config) { c.Session.Mode = "demo" }},
		{"empty_watchlist", func(c *Config) { c.Session.Watchlist = nil }},
		{"zero_refresh", func(c *Config) { c.Session.RefreshSeconds = 0 }},
		{"bad_timeout", func(c *Config) { c.Session.SubmitTimeout = "soon" }},
		{"unknown_broker", func(c *Config) { c.Broker.Kind = "robinhood" }},
		{"missing_snapshot_path", func(c *Config) { c.Persist.SnapshotFile = "" }},
		{"zero_capital", func(c *Config) { c.Risk.InitialCapital = 0 }},
		{"risk_pct_above_one", func(c *Config) { c.Risk.RiskPerTradePct = 1.5 }},
		{"zero_max_orders", func(c *Config) { c.Risk.MaxOrdersPerDay = 0 }},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
