package risk

// Config holds the runtime risk limits. Percentages are fractions
// (0.02 == 2%). All fields are adjustable at runtime via control commands.
type Config struct {
	InitialCapital float64 `json:"initial_capital" yaml:"initial_capital"`

	// Risk limits
	MaxDailyLossPct float64 `json:"max_daily_loss_pct" yaml:"max_daily_loss_pct"`
	MaxPositionPct  float64 `json:"max_position_pct" yaml:"max_position_pct"`
	RiskPerTradePct float64 `json:"risk_per_trade_pct" yaml:"risk_per_trade_pct"`
	StopLossPct     float64 `json:"stop_loss_pct" yaml:"stop_loss_pct"`
	TakeProfitPct   float64 `json:"take_profit_pct" yaml:"take_profit_pct"`

	// Execution toggles
	BuyEnabled        bool `json:"buy_enabled" yaml:"buy_enabled"`
	SellEnabled       bool `json:"sell_enabled" yaml:"sell_enabled"`
	KillSwitchEnabled bool `json:"kill_switch_enabled" yaml:"kill_switch_enabled"`
	MarketHoursOnly   bool `json:"market_hours_only" yaml:"market_hours_only"`
	AllowShort        bool `json:"allow_short" yaml:"allow_short"`

	MaxOrdersPerDay int `json:"max_orders_per_day" yaml:"max_orders_per_day"`
}

// DefaultConfig returns the limits used when no saved session exists.
func DefaultConfig() Config {
	return Config{
		InitialCapital:  100000,
		MaxDailyLossPct: 0.03,
		MaxPositionPct:  0.10,
		RiskPerTradePct: 0.01,
		StopLossPct:     0.02,
		TakeProfitPct:   0.04,
		BuyEnabled:      true,
		SellEnabled:     true,
		MarketHoursOnly: true,
		MaxOrdersPerDay: 40,
	}
}
