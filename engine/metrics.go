package engine

import (
	"math"
	"time"
)

// Metrics accumulates runtime counters for the dashboards.
type Metrics struct {
	totalOrders    int
	filledOrders   int
	rejectedOrders int
	maxEquity      float64
	minEquity      float64
}

func NewMetrics() *Metrics {
	return &Metrics{minEquity: math.Inf(1)}
}

func (m *Metrics) OnOrder(terminalStatus string) {
	m.totalOrders++
	switch terminalStatus {
	case "FILLED":
		m.filledOrders++
	case "REJECTED", "FAILED":
		m.rejectedOrders++
	}
}

// MetricsSnapshot is the exported view, published with every projection.
type MetricsSnapshot struct {
	Timestamp      time.Time `json:"timestamp"`
	TotalOrders    int       `json:"total_orders"`
	FilledOrders   int       `json:"filled_orders"`
	RejectedOrders int       `json:"rejected_orders"`
	MaxEquity      float64   `json:"max_equity"`
	MinEquity      float64   `json:"min_equity"`
	DrawdownPct    float64   `json:"drawdown_pct"`
}

func (m *Metrics) Snapshot(now time.Time, equity float64) MetricsSnapshot {
	m.maxEquity = math.Max(m.maxEquity, equity)
	m.minEquity = math.Min(m.minEquity, equity)

	var drawdown float64
	if m.maxEquity > 0 {
		drawdown = (equity - m.maxEquity) / m.maxEquity * 100
	}

	minEq := m.minEquity
	if math.IsInf(minEq, 1) {
		minEq = equity
	}
	return MetricsSnapshot{
		Timestamp:      now.UTC(),
		TotalOrders:    m.totalOrders,
		FilledOrders:   m.filledOrders,
		RejectedOrders: m.rejectedOrders,
		MaxEquity:      m.maxEquity,
		MinEquity:      minEq,
		DrawdownPct:    drawdown,
	}
}
