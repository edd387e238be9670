package risk

import (
	"fmt"
	"time"
)

// Side is the direction of a candidate order.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Intent is a candidate order before it is sized and gated.
type Intent struct {
	Now      time.Time
	Symbol   string
	Side     Side
	Price    float64
	Quantity int  // 0 means "size it for me"
	IsExit   bool // exits bypass the kill switch and the day-order cap
}

// Account is the point-in-time financial state the guard evaluates against.
type Account struct {
	Mode        string // "paper" or "live"
	Cash        float64
	Equity      float64
	Exposure    float64 // sum of open position notionals
	OrdersToday int

	// Per-symbol side toggles; missing symbol means both sides enabled.
	BuyEnabled  map[string]bool
	SellEnabled map[string]bool
}

type Violation struct {
	Code string
	Msg  string
}

// Decision is the guard's verdict. Quantity is the sized (possibly clipped)
// quantity when approved.
type Decision struct {
	Approved   bool
	Quantity   int
	Violations []Violation
}

func (d *Decision) reject(code, msg string) {
	d.Violations = append(d.Violations, Violation{Code: code, Msg: msg})
	d.Approved = false
}

// Reason returns the first violation code, or "ok".
func (d Decision) Reason() string {
	if len(d.Violations) == 0 {
		return "ok"
	}
	return d.Violations[0].Code
}

// Evaluate gates and sizes a candidate order. It is a pure function of its
// inputs: same intent, account and config always produce the same decision,
// so it is safe to re-run during reconciliation.
//
// Checks short-circuit in order: kill switch, market hours, day-order cap,
// per-symbol side toggle, allocation cap, cash, total exposure.
func Evaluate(cfg Config, intent Intent, acct Account) Decision {
	d := Decision{Approved: true}

	if cfg.KillSwitchEnabled && !intent.IsExit {
		d.reject("kill_switch_enabled", "kill switch is on")
		return d
	}

	if acct.Mode == "live" && cfg.MarketHoursOnly && !MarketOpen(intent.Now) {
		d.reject("outside_market_hours", "outside the market session window")
		return d
	}

	maxOrders := cfg.MaxOrdersPerDay
	if maxOrders < 1 {
		maxOrders = 1
	}
	if !intent.IsExit && acct.OrdersToday >= maxOrders {
		d.reject("max_orders_per_day_reached",
			fmt.Sprintf("orders today %d >= max %d", acct.OrdersToday, maxOrders))
		return d
	}

	if !sideEnabled(cfg, intent, acct) {
		d.reject("side_disabled",
			fmt.Sprintf("%s disabled for %s", intent.Side, intent.Symbol))
		return d
	}

	if intent.IsExit {
		d.Quantity = intent.Quantity
		return d
	}

	qty := intent.Quantity
	if qty == 0 {
		qty = Size(SizeInputs{
			Cash:        entryCash(cfg, intent, acct),
			Price:       intent.Price,
			RiskPct:     cfg.RiskPerTradePct,
			StopLossPct: cfg.StopLossPct,
			MaxPosPct:   cfg.MaxPositionPct,
			CapitalBase: cfg.InitialCapital,
		})
	}
	if qty <= 0 {
		d.reject("zero_quantity", "sized quantity is zero")
		return d
	}

	notional := intent.Price * float64(qty)
	if maxNotional := cfg.InitialCapital * cfg.MaxPositionPct; notional > maxNotional {
		// Clip rather than reject when the cap still allows a smaller entry.
		clipped := int(maxNotional / intent.Price)
		if clipped <= 0 {
			d.reject("max_position_exceeded",
				fmt.Sprintf("notional %.2f exceeds allocation cap %.2f", notional, maxNotional))
			return d
		}
		qty = clipped
		notional = intent.Price * float64(qty)
	}

	if intent.Side == SideBuy && notional > acct.Cash {
		d.reject("insufficient_cash",
			fmt.Sprintf("notional %.2f exceeds cash %.2f", notional, acct.Cash))
		return d
	}

	if acct.Exposure+notional > cfg.InitialCapital {
		d.reject("exposure_exceeded", "projected exposure exceeds total capital")
		return d
	}

	d.Quantity = qty
	return d
}

func sideEnabled(cfg Config, intent Intent, acct Account) bool {
	switch intent.Side {
	case SideBuy:
		if !cfg.BuyEnabled {
			return false
		}
		if enabled, ok := acct.BuyEnabled[intent.Symbol]; ok && !enabled {
			return false
		}
	case SideSell:
		if !cfg.SellEnabled {
			return false
		}
		if enabled, ok := acct.SellEnabled[intent.Symbol]; ok && !enabled {
			return false
		}
	}
	return true
}

// Short entries are sized against at least the capital base so a cash-rich
// short is not starved by a temporarily low cash balance.
func entryCash(cfg Config, intent Intent, acct Account) float64 {
	if intent.Side == SideSell && acct.Cash < cfg.InitialCapital {
		return cfg.InitialCapital
	}
	return acct.Cash
}
