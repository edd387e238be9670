package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rustyeddy/tradeloop/market"
)

func feedEma(s *EmaCross, symbol string, prices []float64) Signal {
	var last Signal
	for _, p := range prices {
		last = s.Update(market.Quote{Symbol: symbol, Price: p})
	}
	return last
}

func TestEmaWarmupSeedsWithSMA(t *testing.T) {
	t.Parallel()

	e := newEMA(3)
	e.update(10)
	e.update(20)
	assert.False(t, e.ready())
	e.update(30)
	assert.True(t, e.ready())
	assert.InDelta(t, 20, e.value, 1e-9)

	// Next update applies the EMA formula with multiplier 0.5.
	e.update(40)
	assert.InDelta(t, 30, e.value, 1e-9)
}

func TestEmaCrossHoldsDuringWarmup(t *testing.T) {
	t.Parallel()

	s := NewEmaCross(2, 4)
	for i := 0; i < 4; i++ {
		assert.Equal(t, Hold, s.Update(market.Quote{Symbol: "TCS", Price: 100}))
	}
}

func TestEmaCrossSignalsOnCrossover(t *testing.T) {
	t.Parallel()

	s := NewEmaCross(2, 4)
	// Downtrend establishes a negative diff, then a strong reversal crosses
	// the fast EMA back over the slow.
	sig := feedEma(s, "TCS", []float64{110, 108, 106, 104, 102, 100, 130})
	assert.Equal(t, Buy, sig)

	// Opposite cross flips to a sell.
	sig = s.Update(market.Quote{Symbol: "TCS", Price: 90})
	assert.Equal(t, Sell, sig)
}

func TestEmaCrossRegistered(t *testing.T) {
	t.Parallel()

	got := Get("ema-cross")
	assert.NotNil(t, got)
	assert.Equal(t, "ema-cross", got.Name())
}
