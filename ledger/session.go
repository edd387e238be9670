package ledger

import (
	"time"

	"github.com/rustyeddy/tradeloop/risk"
)

// Runtime execution modes.
const (
	ModePaper = "paper"
	ModeLive  = "live"
)

const (
	maxRecentEvents  = 30
	maxEquityHistory = 500
)

// Event is one entry in the bounded recent-events log. The same information
// is written to the durable journal; this copy exists for the dashboards.
type Event struct {
	Time    time.Time `json:"time"`
	Kind    string    `json:"kind"`
	Message string    `json:"message"`
}

// Session is the single authoritative runtime state. It is owned by the
// control loop and mutated only there; every other consumer sees copies.
type Session struct {
	Mode          string  `json:"mode"`
	Cash          float64 `json:"cash"`
	Equity        float64 `json:"equity"`
	RealizedPnL   float64 `json:"realized_pnl"`
	DayOrderCount int     `json:"day_order_count"`
	LastResetDate string  `json:"last_reset_date"` // YYYY-MM-DD, UTC

	Risk risk.Config `json:"risk_config"`

	Watchlist map[string]*WatchEntry `json:"watchlist"`
	Positions map[string]*Position   `json:"positions"`

	Events        []Event   `json:"events"`
	EquityHistory []float64 `json:"equity_history"`
}

// NewSession builds a fresh session funded with the configured capital.
func NewSession(mode string, cfg risk.Config, now time.Time) *Session {
	return &Session{
		Mode:          mode,
		Cash:          cfg.InitialCapital,
		Equity:        cfg.InitialCapital,
		LastResetDate: now.UTC().Format("2006-01-02"),
		Risk:          cfg,
		Watchlist:     make(map[string]*WatchEntry),
		Positions:     make(map[string]*Position),
	}
}

// RecomputeEquity rebuilds equity from cash plus the market value of every
// position. It is called synchronously after every mutation so the value is
// never a stale derivation.
func (s *Session) RecomputeEquity() {
	equity := s.Cash
	for _, p := range s.Positions {
		equity += p.MarketValue()
	}
	s.Equity = equity
}

// AddEvent appends to the bounded recent-events log.
func (s *Session) AddEvent(now time.Time, kind, message string) {
	s.Events = append(s.Events, Event{Time: now, Kind: kind, Message: message})
	if len(s.Events) > maxRecentEvents {
		s.Events = s.Events[len(s.Events)-maxRecentEvents:]
	}
}

// RecordEquityPoint appends the current equity to the bounded history.
func (s *Session) RecordEquityPoint() {
	s.EquityHistory = append(s.EquityHistory, s.Equity)
	if len(s.EquityHistory) > maxEquityHistory {
		s.EquityHistory = s.EquityHistory[len(s.EquityHistory)-maxEquityHistory:]
	}
}

// RollDay resets the day order counter once per UTC calendar day.
// It returns true when a reset happened.
func (s *Session) RollDay(now time.Time) bool {
	today := now.UTC().Format("2006-01-02")
	if today == s.LastResetDate {
		return false
	}
	s.LastResetDate = today
	s.DayOrderCount = 0
	return true
}

// AddSymbol ensures a watchlist entry exists for symbol.
func (s *Session) AddSymbol(symbol string) *WatchEntry {
	if w, ok := s.Watchlist[symbol]; ok {
		return w
	}
	w := &WatchEntry{Symbol: symbol, BuyEnabled: true, SellEnabled: true}
	s.Watchlist[symbol] = w
	return w
}

// RemoveSymbol drops a symbol from the watchlist. The control loop refuses
// removal while a position is open, so a removed symbol never has a position
// left behind without a quote feed.
func (s *Session) RemoveSymbol(symbol string) {
	delete(s.Watchlist, symbol)
}

// Symbols returns the watched symbols; order is unspecified.
func (s *Session) Symbols() []string {
	out := make([]string, 0, len(s.Watchlist))
	for sym := range s.Watchlist {
		out = append(out, sym)
	}
	return out
}

// Clone deep-copies the session. Projections are built from clones so the
// surfaces never alias the live state.
func (s *Session) Clone() *Session {
	cp := *s
	cp.Watchlist = make(map[string]*WatchEntry, len(s.Watchlist))
	for k, v := range s.Watchlist {
		w := *v
		cp.Watchlist[k] = &w
	}
	cp.Positions = make(map[string]*Position, len(s.Positions))
	for k, v := range s.Positions {
		p := *v
		cp.Positions[k] = &p
	}
	cp.Events = append([]Event(nil), s.Events...)
	cp.EquityHistory = append([]float64(nil), s.EquityHistory...)
	return &cp
}
