package strategy

import "github.com/rustyeddy/tradeloop/market"

// SmaCross signals on a fast/slow simple moving average crossover,
// tracked independently per symbol.
type SmaCross struct {
	FastPeriod int
	SlowPeriod int

	state map[string]*smaState
}

type smaState struct {
	closes   []float64
	lastDiff float64
	haveDiff bool
}

func NewSmaCross(fast, slow int) *SmaCross {
	if fast <= 0 {
		fast = 5
	}
	if slow <= fast {
		slow = fast * 4
	}
	return &SmaCross{
		FastPeriod: fast,
		SlowPeriod: slow,
		state:      make(map[string]*smaState),
	}
}

func (s *SmaCross) Name() string { return "sma-cross" }

func (s *SmaCross) Reset() {
	s.state = make(map[string]*smaState)
}

func (s *SmaCross) Update(q market.Quote) Signal {
	st, ok := s.state[q.Symbol]
	if !ok {
		st = &smaState{}
		s.state[q.Symbol] = st
	}

	st.closes = append(st.closes, q.Price)
	if len(st.closes) > s.SlowPeriod {
		st.closes = st.closes[len(st.closes)-s.SlowPeriod:]
	}
	if len(st.closes) < s.SlowPeriod {
		return Hold
	}

	diff := mean(st.closes[len(st.closes)-s.FastPeriod:]) - mean(st.closes)
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

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func init() {
	Register("sma-cross", NewSmaCross(5, 20))
}
