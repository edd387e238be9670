package risk

import "math"

// SizeInputs are the values needed to size a candidate entry.
type SizeInputs struct {
	Cash        float64
	Price       float64
	RiskPct     float64 // fraction of capital risked if the stop is hit
	StopLossPct float64 // stop distance as a fraction of entry price
	MaxPosPct   float64 // allocation cap as a fraction of capital
	CapitalBase float64
}

// Size returns the quantity for a candidate order: the risk-budget quantity
// clipped by the allocation cap and by available cash. Zero means no trade.
//
//	qty = floor(capital*riskPct / (price * stopLossPct))
func Size(in SizeInputs) int {
	if in.Price <= 0 || in.Cash <= 0 {
		return 0
	}

	stop := math.Max(in.StopLossPct, 0.001)
	riskBudget := in.CapitalBase * math.Max(in.RiskPct, 0.001)
	allocBudget := in.CapitalBase * math.Max(in.MaxPosPct, 0.01)

	byRisk := int(riskBudget / (in.Price * stop))
	byAlloc := int(allocBudget / in.Price)
	byCash := int(in.Cash / in.Price)

	qty := byRisk
	if byAlloc < qty {
		qty = byAlloc
	}
	if byCash < qty {
		qty = byCash
	}
	if qty < 0 {
		return 0
	}
	return qty
}
