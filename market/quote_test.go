package market

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChangePct(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 10, Quote{Price: 110, PrevClose: 100}.ChangePct(), 1e-9)
	assert.InDelta(t, -5, Quote{Price: 95, PrevClose: 100}.ChangePct(), 1e-9)
	assert.Zero(t, Quote{Price: 95}.ChangePct(), "no previous close, no change")
}

func TestQuoteStore(t *testing.T) {
	t.Parallel()

	s := NewQuoteStore()
	_, err := s.Get("TCS")
	assert.ErrorIs(t, err, ErrNoQuote)

	s.Set(Quote{Symbol: "TCS", Price: 100})
	q, err := s.Get("TCS")
	require.NoError(t, err)
	assert.InDelta(t, 100, q.Price, 1e-9)
}

func TestSimSourceDeterministicBase(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	a := NewSimSource()
	b := NewSimSource()
	qa, err := a.GetQuote(ctx, "TCS")
	require.NoError(t, err)
	qb, err := b.GetQuote(ctx, "TCS")
	require.NoError(t, err)

	assert.InDelta(t, qa.Price, qb.Price, 1e-9, "same symbol seeds the same walk")
	assert.Greater(t, qa.Price, 0.0)
}

func TestSimSourceWalksPerSymbol(t *testing.T) {
	t.Parallel()

	s := NewSimSource()
	ctx := context.Background()

	q1, err := s.GetQuote(ctx, "TCS")
	require.NoError(t, err)
	q2, err := s.GetQuote(ctx, "INFY")
	require.NoError(t, err)
	assert.NotEqual(t, q1.Price, q2.Price, "independent walks")

	// Steps stay inside the configured band.
	prev := q1.Price
	for i := 0; i < 20; i++ {
		q, err := s.GetQuote(ctx, "TCS")
		require.NoError(t, err)
		move := (q.Price - prev) / prev
		assert.LessOrEqual(t, move, 0.003+1e-9)
		assert.GreaterOrEqual(t, move, -0.003-1e-9)
		prev = q.Price
	}
}

type scriptedQuoter struct{ prices []float64 }

func (s *scriptedQuoter) GetQuote(_ context.Context, _ string) (float64, time.Time, error) {
	if len(s.prices) == 0 {
		return 0, time.Time{}, ErrNoQuote
	}
	p := s.prices[0]
	s.prices = s.prices[1:]
	return p, time.Now(), nil
}

func TestQuoterSourceTracksFirstPriceAsPrevClose(t *testing.T) {
	t.Parallel()

	src := NewQuoterSource(&scriptedQuoter{prices: []float64{100, 105, 95}})
	ctx := context.Background()

	q, err := src.GetQuote(ctx, "TCS")
	require.NoError(t, err)
	assert.InDelta(t, 100, q.PrevClose, 1e-9)
	assert.Zero(t, q.ChangePct())

	q, err = src.GetQuote(ctx, "TCS")
	require.NoError(t, err)
	assert.InDelta(t, 100, q.PrevClose, 1e-9)
	assert.InDelta(t, 5, q.ChangePct(), 1e-9)

	q, err = src.GetQuote(ctx, "TCS")
	require.NoError(t, err)
	assert.InDelta(t, -5, q.ChangePct(), 1e-9)
}
