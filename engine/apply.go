package engine

import (
	"fmt"
	"time"
)

// applyCommand mutates the session for one queued command. Runs only on the
// control loop goroutine, strictly in arrival order. Conflicting settings in
// the same drain resolve to the last applied value.
func (e *Engine) applyCommand(cmd Command, now time.Time) {
	switch cmd.Kind {
	case CmdSetBuyEnabled:
		if cmd.Symbol == "" {
			e.sess.Risk.BuyEnabled = cmd.Bool
			e.event(now, "command", "Buying %s.", onOffWord(cmd.Bool))
		} else if w, ok := e.sess.Watchlist[cmd.Symbol]; ok {
			w.BuyEnabled = cmd.Bool
			e.event(now, "command", "%s: buying %s.", cmd.Symbol, onOffWord(cmd.Bool))
		}
	case CmdSetSellEnabled:
		if cmd.Symbol == "" {
			e.sess.Risk.SellEnabled = cmd.Bool
			e.event(now, "command", "Selling %s.", onOffWord(cmd.Bool))
		} else if w, ok := e.sess.Watchlist[cmd.Symbol]; ok {
			w.SellEnabled = cmd.Bool
			e.event(now, "command", "%s: selling %s.", cmd.Symbol, onOffWord(cmd.Bool))
		}
	case CmdSetStopLoss:
		e.sess.Risk.StopLossPct = cmd.Pct
		e.event(now, "command", "Stop loss set to %.2f%%.", cmd.Pct*100)
	case CmdSetTakeProfit:
		e.sess.Risk.TakeProfitPct = cmd.Pct
		e.event(now, "command", "Take profit set to %.2f%%.", cmd.Pct*100)
	case CmdSetRiskPct:
		e.sess.Risk.RiskPerTradePct = cmd.Pct
		e.event(now, "command", "Risk per trade set to %.2f%%.", cmd.Pct*100)
	case CmdSetMaxPosPct:
		e.sess.Risk.MaxPositionPct = cmd.Pct
		e.event(now, "command", "Max position size set to %.2f%%.", cmd.Pct*100)
	case CmdSetKillSwitch:
		e.sess.Risk.KillSwitchEnabled = cmd.Bool
		if cmd.Bool {
			e.event(now, "command", "Kill switch engaged. New entries are blocked.")
		} else {
			e.event(now, "command", "Kill switch released.")
		}
	case CmdSetMarketHoursGuard:
		e.sess.Risk.MarketHoursOnly = cmd.Bool
		e.event(now, "command", "Market hours guard %s.", onOffWord(cmd.Bool))
	case CmdSetMaxOrders:
		e.sess.Risk.MaxOrdersPerDay = cmd.Int
		e.event(now, "command", "Max orders per day set to %d.", cmd.Int)
	case CmdSetMode:
		if e.sess.Mode != cmd.Str {
			e.sess.Mode = cmd.Str
			e.event(now, "command", "Mode switched to %s.", cmd.Str)
		}
	case CmdAddSymbol:
		if _, ok := e.sess.Watchlist[cmd.Symbol]; !ok {
			e.sess.AddSymbol(cmd.Symbol)
			e.event(now, "command", "%s added to watchlist.", cmd.Symbol)
		}
	case CmdRemoveSymbol:
		if pos, ok := e.sess.Positions[cmd.Symbol]; ok && pos.Quantity != 0 {
			e.event(now, "command", "%s has an open position; not removed.", cmd.Symbol)
			return
		}
		if _, ok := e.sess.Watchlist[cmd.Symbol]; ok {
			e.sess.RemoveSymbol(cmd.Symbol)
			e.event(now, "command", "%s removed from watchlist.", cmd.Symbol)
		}
	case CmdClearState:
		if err := e.snaps.Clear(); err != nil {
			e.event(now, "command", "Saved state could not be cleared (%v).", err)
			return
		}
		e.event(now, "command", "Saved session state cleared. Next start begins fresh.")
	}
}

func (e *Engine) event(now time.Time, kind, format string, args ...any) {
	e.sess.AddEvent(now, kind, fmt.Sprintf(format, args...))
}

func onOffWord(b bool) string {
	if b {
		return "enabled"
	}
	return "disabled"
}
