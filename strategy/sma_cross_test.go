package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/tradeloop/market"
)

func feed(s *SmaCross, symbol string, prices []float64) Signal {
	var last Signal
	for _, p := range prices {
		last = s.Update(market.Quote{Symbol: symbol, Price: p})
	}
	return last
}

func TestSmaCrossWarmupHolds(t *testing.T) {
	t.Parallel()

	s := NewSmaCross(2, 4)
	for i := 0; i < 4; i++ {
		sig := s.Update(market.Quote{Symbol: "TCS", Price: 100})
		assert.Equal(t, Hold, sig, "no signal before the slow window fills and a diff exists")
	}
}

func TestSmaCrossBullishCrossover(t *testing.T) {
	t.Parallel()

	s := NewSmaCross(2, 4)
	// Falling prices establish a negative fast-slow diff, then a sharp rise
	// flips it positive.
	sig := feed(s, "TCS", []float64{104, 103, 102, 101, 100, 99, 110})
	assert.Equal(t, Buy, sig)
}

func TestSmaCrossBearishCrossover(t *testing.T) {
	t.Parallel()

	s := NewSmaCross(2, 4)
	sig := feed(s, "TCS", []float64{96, 97, 98, 99, 100, 101, 90})
	assert.Equal(t, Sell, sig)
}

func TestSmaCrossPerSymbolState(t *testing.T) {
	t.Parallel()

	s := NewSmaCross(2, 4)
	feed(s, "TCS", []float64{104, 103, 102, 101, 100, 99})

	// A different symbol starts cold and must not inherit TCS state.
	sig := s.Update(market.Quote{Symbol: "INFY", Price: 500})
	assert.Equal(t, Hold, sig)
}

func TestSmaCrossReset(t *testing.T) {
	t.Parallel()

	s := NewSmaCross(2, 4)
	feed(s, "TCS", []float64{104, 103, 102, 101, 100, 99})
	s.Reset()

	sig := s.Update(market.Quote{Symbol: "TCS", Price: 200})
	assert.Equal(t, Hold, sig, "reset clears accumulated windows")
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	got := Get("sma-cross")
	require.NotNil(t, got)
	assert.Equal(t, "sma-cross", got.Name())
	assert.Nil(t, Get("no-such-strategy"))
	assert.Contains(t, Names(), "sma-cross")
}
