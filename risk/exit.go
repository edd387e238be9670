package risk

import "math"

// ExitReason names why an in-trade check wants out of a position.
type ExitReason string

const (
	ExitNone       ExitReason = "NONE"
	ExitStopLoss   ExitReason = "STOP_LOSS"
	ExitTakeProfit ExitReason = "TAKE_PROFIT"
)

// CheckExitLong evaluates SL/TP for a long position from entry and mark price.
func CheckExitLong(cfg Config, entry, mark float64) (bool, ExitReason) {
	if entry <= 0 {
		return false, ExitNone
	}
	move := (mark - entry) / entry
	if move <= -math.Abs(cfg.StopLossPct) {
		return true, ExitStopLoss
	}
	if move >= math.Abs(cfg.TakeProfitPct) {
		return true, ExitTakeProfit
	}
	return false, ExitNone
}

// CheckExitShort mirrors CheckExitLong for short positions: profit when the
// mark falls below entry.
func CheckExitShort(cfg Config, entry, mark float64) (bool, ExitReason) {
	if entry <= 0 {
		return false, ExitNone
	}
	move := (entry - mark) / entry
	if move <= -math.Abs(cfg.StopLossPct) {
		return true, ExitStopLoss
	}
	if move >= math.Abs(cfg.TakeProfitPct) {
		return true, ExitTakeProfit
	}
	return false, ExitNone
}

// DailyLossBreached reports whether realized losses hit the daily circuit
// breaker. New entries are disabled for the rest of the day when it trips.
func DailyLossBreached(cfg Config, realizedPnL float64) bool {
	limit := cfg.InitialCapital * cfg.MaxDailyLossPct
	return realizedPnL <= -math.Abs(limit)
}
