package ledger

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rustyeddy/tradeloop/strategy"
)

// ErrShortNotAllowed is returned when a fill would take a position negative
// while short selling is disabled.
var ErrShortNotAllowed = errors.New("short selling not enabled")

// WatchEntry is one row of the watchlist.
type WatchEntry struct {
	Symbol       string          `json:"symbol"`
	LastPrice    float64         `json:"last_price"`
	ChangePct    float64         `json:"change_pct"`
	LatestSignal strategy.Signal `json:"latest_signal"`
	BuyEnabled   bool            `json:"buy_enabled"`
	SellEnabled  bool            `json:"sell_enabled"`
}

// Position holds an open position. Quantity is signed: negative means short.
type Position struct {
	Symbol          string    `json:"symbol"`
	Quantity        int       `json:"quantity"`
	AvgEntryPrice   float64   `json:"avg_entry_price"`
	LastPrice       float64   `json:"last_price"`
	UnrealizedPnL   float64   `json:"unrealized_pnl"`
	StopLossPrice   float64   `json:"stop_loss_price"`
	TakeProfitPrice float64   `json:"take_profit_price"`
	OpenedAt        time.Time `json:"opened_at"`
}

// Side returns LONG or SHORT from the quantity sign.
func (p *Position) Side() string {
	if p.Quantity < 0 {
		return "SHORT"
	}
	return "LONG"
}

// Mark returns the price used for valuation: last seen, else entry.
func (p *Position) Mark() float64 {
	if p.LastPrice > 0 {
		return p.LastPrice
	}
	return p.AvgEntryPrice
}

// MarketValue is quantity * mark; negative for shorts.
func (p *Position) MarketValue() float64 {
	return float64(p.Quantity) * p.Mark()
}

// Exposure is the absolute notional of the position.
func (p *Position) Exposure() float64 {
	return math.Abs(p.MarketValue())
}

// ApplyFill mutates cash, positions and realized PnL for one filled order.
// Buys carry quantity > 0, sells quantity < 0 (pass -qty for a sell).
// It returns the realized PnL delta for any closed quantity.
//
// Same-direction fills average the entry price. Opposite-direction fills
// close quantity first (realizing PnL), then open a flipped position with
// any remainder. The fee is charged against cash on every fill.
func (s *Session) ApplyFill(symbol string, delta int, price, fee float64, now time.Time) (float64, error) {
	if delta == 0 {
		return 0, errors.New("zero fill quantity")
	}
	if price <= 0 {
		return 0, fmt.Errorf("invalid fill price %.4f", price)
	}

	pos := s.Positions[symbol]
	current := 0
	if pos != nil {
		current = pos.Quantity
	}

	if current+delta < 0 && !s.Risk.AllowShort {
		return 0, ErrShortNotAllowed
	}

	var realized float64

	switch {
	case pos == nil || current == 0 || sameSign(current, delta):
		// Opening or adding: weighted average entry.
		if pos == nil {
			pos = &Position{Symbol: symbol, OpenedAt: now}
			s.Positions[symbol] = pos
		}
		total := current + delta
		pos.AvgEntryPrice = (pos.AvgEntryPrice*math.Abs(float64(current)) +
			price*math.Abs(float64(delta))) / math.Abs(float64(total))
		pos.Quantity = total
		s.Cash -= float64(delta) * price

	default:
		// Reducing, closing or flipping.
		closing := delta
		if abs(delta) > abs(current) {
			closing = -current
		}
		// -closing is the signed closed quantity: positive for a long
		// close, negative for a short cover.
		realized = (price - pos.AvgEntryPrice) * float64(-closing)
		s.RealizedPnL += realized
		s.Cash -= float64(closing) * price
		pos.Quantity = current + closing

		remainder := delta - closing
		if pos.Quantity == 0 && remainder == 0 {
			delete(s.Positions, symbol)
		} else if remainder != 0 {
			// Flip: remainder opens a fresh position at the fill price.
			pos.Quantity = remainder
			pos.AvgEntryPrice = price
			pos.OpenedAt = now
			s.Cash -= float64(remainder) * price
		}
	}

	s.Cash -= fee

	if p := s.Positions[symbol]; p != nil {
		p.LastPrice = price
		p.UnrealizedPnL = (price - p.AvgEntryPrice) * float64(p.Quantity)
	}
	s.RecomputeEquity()
	return realized, nil
}

// MarkPrice updates the watch entry and any open position for a new quote,
// then recomputes equity.
func (s *Session) MarkPrice(symbol string, price, changePct float64) {
	if w, ok := s.Watchlist[symbol]; ok {
		w.LastPrice = price
		w.ChangePct = changePct
	}
	if p, ok := s.Positions[symbol]; ok {
		p.LastPrice = price
		p.UnrealizedPnL = (price - p.AvgEntryPrice) * float64(p.Quantity)
	}
	s.RecomputeEquity()
}

// TotalExposure sums absolute open notionals, used by the risk guard.
func (s *Session) TotalExposure() float64 {
	var total float64
	for _, p := range s.Positions {
		total += p.Exposure()
	}
	return total
}

func sameSign(a, b int) bool {
	return (a > 0 && b > 0) || (a < 0 && b < 0)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
