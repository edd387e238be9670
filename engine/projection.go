package engine

import (
	"sort"
	"time"

	"github.com/rustyeddy/tradeloop/journal"
	"github.com/rustyeddy/tradeloop/ledger"
	"github.com/rustyeddy/tradeloop/risk"
)

// Projection is the immutable read-only view of the session published to
// both surfaces. It is rebuilt from a deep copy every tick; consumers never
// touch the live state.
type Projection struct {
	StrategyName string `json:"strategy_name"`
	Mode         string `json:"mode"`

	Cash        float64 `json:"cash"`
	Equity      float64 `json:"equity"`
	RealizedPnL float64 `json:"realized_pnl"`

	DayOrderCount int `json:"day_order_count"`

	Risk risk.Config `json:"risk"`

	Watchlist []ledger.WatchEntry `json:"watchlist"`
	Positions []PositionView      `json:"positions"`

	Events        []ledger.Event `json:"events"`
	EquityHistory []float64      `json:"equity_history"`

	Metrics MetricsSnapshot `json:"metrics"`
	Orders  journal.Summary `json:"orders"`

	Degraded  bool      `json:"degraded"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PositionView is a position row with derived display fields.
type PositionView struct {
	Symbol        string    `json:"symbol"`
	Side          string    `json:"side"`
	Quantity      int       `json:"quantity"`
	AvgEntryPrice float64   `json:"avg_entry_price"`
	MarketPrice   float64   `json:"market_price"`
	UnrealizedPnL float64   `json:"unrealized_pnl"`
	OpenedAt      time.Time `json:"opened_at"`
}

func buildProjection(
	strategyName string,
	sess *ledger.Session,
	metrics MetricsSnapshot,
	orders journal.Summary,
	degraded bool,
	now time.Time,
) *Projection {
	cp := sess.Clone()

	watch := make([]ledger.WatchEntry, 0, len(cp.Watchlist))
	for _, w := range cp.Watchlist {
		watch = append(watch, *w)
	}
	sort.Slice(watch, func(i, j int) bool { return watch[i].Symbol < watch[j].Symbol })

	positions := make([]PositionView, 0, len(cp.Positions))
	for _, p := range cp.Positions {
		positions = append(positions, PositionView{
			Symbol:        p.Symbol,
			Side:          p.Side(),
			Quantity:      p.Quantity,
			AvgEntryPrice: p.AvgEntryPrice,
			MarketPrice:   p.Mark(),
			UnrealizedPnL: p.UnrealizedPnL,
			OpenedAt:      p.OpenedAt,
		})
	}
	sort.Slice(positions, func(i, j int) bool { return positions[i].Symbol < positions[j].Symbol })

	return &Projection{
		StrategyName:  strategyName,
		Mode:          cp.Mode,
		Cash:          cp.Cash,
		Equity:        cp.Equity,
		RealizedPnL:   cp.RealizedPnL,
		DayOrderCount: cp.DayOrderCount,
		Risk:          cp.Risk,
		Watchlist:     watch,
		Positions:     positions,
		Events:        cp.Events,
		EquityHistory: cp.EquityHistory,
		Metrics:       metrics,
		Orders:        orders,
		Degraded:      degraded,
		UpdatedAt:     now.UTC(),
	}
}
