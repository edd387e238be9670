package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func testAccount() Account {
	return Account{
		Mode:        "paper",
		Cash:        100_000,
		Equity:      100_000,
		BuyEnabled:  map[string]bool{},
		SellEnabled: map[string]bool{},
	}
}

func TestEvaluate(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		cfg        func(Config) Config
		intent     Intent
		acct       func(Account) Account
		wantOK     bool
		wantReason string
		wantQty    int
	}{
		{
			name:       "kill_switch_blocks_entry",
			cfg:        func(c Config) Config { c.KillSwitchEnabled = true; return c },
			intent:     Intent{Now: now, Symbol: "TCS", Side: SideBuy, Price: 100},
			wantOK:     false,
			wantReason: "kill_switch_enabled",
		},
		{
			name:    "kill_switch_spares_exit",
			cfg:     func(c Config) Config { c.KillSwitchEnabled = true; return c },
			intent:  Intent{Now: now, Symbol: "TCS", Side: SideSell, Price: 100, Quantity: 5, IsExit: true},
			wantOK:  true,
			wantQty: 5,
		},
		{
			name:       "day_cap_blocks_entry",
			cfg:        func(c Config) Config { c.MaxOrdersPerDay = 2; return c },
			intent:     Intent{Now: now, Symbol: "TCS", Side: SideBuy, Price: 100},
			acct:       func(a Account) Account { a.OrdersToday = 2; return a },
			wantOK:     false,
			wantReason: "max_orders_per_day_reached",
		},
		{
			name:    "day_cap_spares_exit",
			cfg:     func(c Config) Config { c.MaxOrdersPerDay = 2; return c },
			intent:  Intent{Now: now, Symbol: "TCS", Side: SideSell, Price: 100, Quantity: 3, IsExit: true},
			acct:    func(a Account) Account { a.OrdersToday = 2; return a },
			wantOK:  true,
			wantQty: 3,
		},
		{
			name:       "global_buy_disabled",
			cfg:        func(c Config) Config { c.BuyEnabled = false; return c },
			intent:     Intent{Now: now, Symbol: "TCS", Side: SideBuy, Price: 100},
			wantOK:     false,
			wantReason: "side_disabled",
		},
		{
			name:       "per_symbol_sell_disabled",
			cfg:        func(c Config) Config { return c },
			intent:     Intent{Now: now, Symbol: "TCS", Side: SideSell, Price: 100, Quantity: 1, IsExit: true},
			acct:       func(a Account) Account { a.SellEnabled["TCS"] = false; return a },
			wantOK:     false,
			wantReason: "side_disabled",
		},
		{
			name:       "insufficient_cash",
			cfg:        func(c Config) Config { return c },
			intent:     Intent{Now: now, Symbol: "TCS", Side: SideBuy, Price: 100, Quantity: 50},
			acct:       func(a Account) Account { a.Cash = 1000; return a },
			wantOK:     false,
			wantReason: "insufficient_cash",
		},
		{
			name:   "clips_to_allocation_cap",
			cfg:    func(c Config) Config { c.MaxPositionPct = 0.10; return c },
			intent: Intent{Now: now, Symbol: "TCS", Side: SideBuy, Price: 100, Quantity: 200},
			// cap = 100000 * 0.10 = 10000 => 100 shares at 100
			wantOK:  true,
			wantQty: 100,
		},
		{
			name:       "exposure_cap_blocks",
			cfg:        func(c Config) Config { return c },
			intent:     Intent{Now: now, Symbol: "TCS", Side: SideBuy, Price: 100, Quantity: 50},
			acct:       func(a Account) Account { a.Exposure = 99_000; return a },
			wantOK:     false,
			wantReason: "exposure_exceeded",
		},
		{
			name:   "auto_sizes_when_quantity_zero",
			cfg:    func(c Config) Config { return c },
			intent: Intent{Now: now, Symbol: "TCS", Side: SideBuy, Price: 100},
			// risk budget 1% of 100k = 1000, per-share risk 100*0.02 = 2 => 500
			// alloc 10% of 100k / 100 = 100 shares, binding constraint
			wantOK:  true,
			wantQty: 100,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := tt.cfg(DefaultConfig())
			acct := testAccount()
			if tt.acct != nil {
				acct = tt.acct(acct)
			}

			d := Evaluate(cfg, tt.intent, acct)
			assert.Equal(t, tt.wantOK, d.Approved, "approved, reason=%s", d.Reason())
			if tt.wantOK {
				assert.Equal(t, tt.wantQty, d.Quantity)
			} else {
				assert.Equal(t, tt.wantReason, d.Reason())
			}
		})
	}
}

func TestEvaluateMarketHoursLiveOnly(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.MarketHoursOnly = true

	// Saturday, well outside the session.
	weekend := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	intent := Intent{Now: weekend, Symbol: "TCS", Side: SideBuy, Price: 100, Quantity: 10}

	paper := testAccount()
	d := Evaluate(cfg, intent, paper)
	assert.True(t, d.Approved, "paper mode ignores the hours guard")

	live := testAccount()
	live.Mode = "live"
	d = Evaluate(cfg, intent, live)
	assert.False(t, d.Approved)
	assert.Equal(t, "outside_market_hours", d.Reason())
}

func TestEvaluateDeterministic(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	intent := Intent{
		Now:    time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC),
		Symbol: "INFY", Side: SideBuy, Price: 1500,
	}
	acct := testAccount()

	first := Evaluate(cfg, intent, acct)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Evaluate(cfg, intent, acct))
	}
}
