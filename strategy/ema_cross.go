package strategy

import "github.com/rustyeddy/tradeloop/market"

// ema is a streaming exponential moving average seeded with an SMA over the
// warmup window.
type ema struct {
	period     int
	multiplier float64
	value      float64
	count      int
	warmupSum  float64
}

func newEMA(period int) *ema {
	return &ema{
		period:     period,
		multiplier: 2.0 / float64(period+1),
	}
}

func (e *ema) update(price float64) {
	if e.count < e.period {
		e.warmupSum += price
		e.count++
		if e.count == e.period {
			e.value = e.warmupSum / float64(e.period)
		}
		return
	}
	e.value = (price-e.value)*e.multiplier + e.value
}

func (e *ema) ready() bool { return e.count >= e.period }

// EmaCross signals on a fast/slow exponential moving average crossover.
// Faster to react than the SMA variant on the same periods.
type EmaCross struct {
	FastPeriod int
	SlowPeriod int

	state map[string]*emaState
}

type emaState struct {
	fast     *ema
	slow     *ema
	lastDiff float64
	haveDiff bool
}

func NewEmaCross(fast, slow int) *EmaCross {
	if fast <= 0 {
		fast = 10
	}
	if slow <= fast {
		slow = fast * 3
	}
	return &EmaCross{
		FastPeriod: fast,
		SlowPeriod: slow,
		state:      make(map[string]*emaState),
	}
}

func (s *EmaCross) Name() string { return "ema-cross" }

func (s *EmaCross) Reset() {
	s.state = make(map[string]*emaState)
}

func (s *EmaCross) Update(q market.Quote) Signal {
	st, ok := s.state[q.Symbol]
	if !ok {
		st = &emaState{fast: newEMA(s.FastPeriod), slow: newEMA(s.SlowPeriod)}
		s.state[q.Symbol] = st
	}

	st.fast.update(q.Price)
	st.slow.update(q.Price)
	if !st.slow.ready() {
		return Hold
	}

	diff := st.fast.value - st.slow.value
	if !st.haveDiff {
		st.lastDiff = diff
		st.haveDiff = true
		return Hold
	}

	bull := diff > 0 && st.lastDiff <= 0
	bear := diff < 0 && st.lastDiff >= 0
	st.lastDiff = diff

	switch {
	case bull:
		return Buy
	case bear:
		return Sell
	default:
		return Hold
	}
}

func init() {
	Register("ema-cross", NewEmaCross(10, 30))
}
