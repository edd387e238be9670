package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/tradeloop/risk"
)

func newTestSession(t *testing.T) *Session {
	t.Helper()
	cfg := risk.DefaultConfig()
	cfg.AllowShort = true
	return NewSession(ModePaper, cfg, time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC))
}

// equityInvariant checks equity == cash + sum(quantity * mark) after any
// sequence of fills.
func equityInvariant(t *testing.T, s *Session) {
	t.Helper()
	want := s.Cash
	for _, p := range s.Positions {
		want += float64(p.Quantity) * p.Mark()
	}
	assert.InDelta(t, want, s.Equity, 1e-9)
}

func TestApplyFillOpenLong(t *testing.T) {
	t.Parallel()
	s := newTestSession(t)
	now := time.Now()

	realized, err := s.ApplyFill("TCS", 10, 100, 0, now)
	require.NoError(t, err)
	assert.Zero(t, realized)

	assert.InDelta(t, 99_000, s.Cash, 1e-9)
	assert.InDelta(t, 100_000, s.Equity, 1e-9)
	pos := s.Positions["TCS"]
	require.NotNil(t, pos)
	assert.Equal(t, 10, pos.Quantity)
	assert.Equal(t, "LONG", pos.Side())
	assert.InDelta(t, 100, pos.AvgEntryPrice, 1e-9)
	equityInvariant(t, s)
}

func TestApplyFillAveragesEntry(t *testing.T) {
	t.Parallel()
	s := newTestSession(t)
	now := time.Now()

	_, err := s.ApplyFill("TCS", 10, 100, 0, now)
	require.NoError(t, err)
	_, err = s.ApplyFill("TCS", 10, 110, 0, now)
	require.NoError(t, err)

	pos := s.Positions["TCS"]
	assert.Equal(t, 20, pos.Quantity)
	assert.InDelta(t, 105, pos.AvgEntryPrice, 1e-9)
	assert.InDelta(t, 97_900, s.Cash, 1e-9)
	equityInvariant(t, s)
}

func TestApplyFillPartialClose(t *testing.T) {
	t.Parallel()
	s := newTestSession(t)
	now := time.Now()

	_, err := s.ApplyFill("TCS", 10, 100, 0, now)
	require.NoError(t, err)

	realized, err := s.ApplyFill("TCS", -4, 110, 0, now)
	require.NoError(t, err)
	assert.InDelta(t, 40, realized, 1e-9)
	assert.InDelta(t, 40, s.RealizedPnL, 1e-9)

	pos := s.Positions["TCS"]
	assert.Equal(t, 6, pos.Quantity)
	assert.InDelta(t, 100, pos.AvgEntryPrice, 1e-9, "entry unchanged by a reduce")
	assert.InDelta(t, 99_440, s.Cash, 1e-9)
	equityInvariant(t, s)
}

func TestApplyFillFullCloseRemovesPosition(t *testing.T) {
	t.Parallel()
	s := newTestSession(t)
	now := time.Now()

	_, err := s.ApplyFill("TCS", 10, 100, 0, now)
	require.NoError(t, err)
	realized, err := s.ApplyFill("TCS", -10, 95, 0, now)
	require.NoError(t, err)

	assert.InDelta(t, -50, realized, 1e-9)
	assert.NotContains(t, s.Positions, "TCS")
	assert.InDelta(t, 99_950, s.Cash, 1e-9)
	equityInvariant(t, s)
}

func TestApplyFillFlipLongToShort(t *testing.T) {
	t.Parallel()
	s := newTestSession(t)
	now := time.Now()

	_, err := s.ApplyFill("TCS", 10, 100, 0, now)
	require.NoError(t, err)
	realized, err := s.ApplyFill("TCS", -15, 110, 0, now)
	require.NoError(t, err)

	assert.InDelta(t, 100, realized, 1e-9)
	pos := s.Positions["TCS"]
	require.NotNil(t, pos)
	assert.Equal(t, -5, pos.Quantity)
	assert.Equal(t, "SHORT", pos.Side())
	assert.InDelta(t, 110, pos.AvgEntryPrice, 1e-9)
	assert.InDelta(t, 100_650, s.Cash, 1e-9)
	equityInvariant(t, s)
}

func TestApplyFillShortCover(t *testing.T) {
	t.Parallel()
	s := newTestSession(t)
	now := time.Now()

	_, err := s.ApplyFill("TCS", -10, 100, 0, now)
	require.NoError(t, err)
	realized, err := s.ApplyFill("TCS", 10, 90, 0, now)
	require.NoError(t, err)

	assert.InDelta(t, 100, realized, 1e-9, "short profits when price falls")
	assert.NotContains(t, s.Positions, "TCS")
	equityInvariant(t, s)
}

func TestApplyFillShortGuard(t *testing.T) {
	t.Parallel()
	cfg := risk.DefaultConfig() // AllowShort false
	s := NewSession(ModePaper, cfg, time.Now())

	_, err := s.ApplyFill("TCS", -5, 100, 0, time.Now())
	assert.ErrorIs(t, err, ErrShortNotAllowed)
	assert.Empty(t, s.Positions)
	assert.InDelta(t, cfg.InitialCapital, s.Cash, 1e-9, "rejected fill must not move cash")
}

func TestApplyFillChargesFee(t *testing.T) {
	t.Parallel()
	s := newTestSession(t)

	_, err := s.ApplyFill("TCS", 10, 100, 20, time.Now())
	require.NoError(t, err)
	assert.InDelta(t, 98_980, s.Cash, 1e-9)
}

func TestApplyFillRejectsBadInputs(t *testing.T) {
	t.Parallel()
	s := newTestSession(t)

	_, err := s.ApplyFill("TCS", 0, 100, 0, time.Now())
	assert.Error(t, err)
	_, err = s.ApplyFill("TCS", 5, 0, 0, time.Now())
	assert.Error(t, err)
}

func TestMarkPriceUpdatesUnrealized(t *testing.T) {
	t.Parallel()
	s := newTestSession(t)
	s.AddSymbol("TCS")

	_, err := s.ApplyFill("TCS", 10, 100, 0, time.Now())
	require.NoError(t, err)

	s.MarkPrice("TCS", 107, 7)
	pos := s.Positions["TCS"]
	assert.InDelta(t, 70, pos.UnrealizedPnL, 1e-9)
	assert.InDelta(t, 107, s.Watchlist["TCS"].LastPrice, 1e-9)
	assert.InDelta(t, 99_000+1070, s.Equity, 1e-9)
	equityInvariant(t, s)
}
