package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/tradeloop/ledger"
	"github.com/rustyeddy/tradeloop/risk"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "session.json")
	st := New(path)
	now := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)

	cfg := risk.DefaultConfig()
	sess := ledger.NewSession(ledger.ModePaper, cfg, now)
	sess.AddSymbol("TCS")
	_, err := sess.ApplyFill("TCS", 10, 100, 0, now)
	require.NoError(t, err)

	require.NoError(t, st.Save(sess, now))

	snap, err := st.Load()
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Version)
	assert.Equal(t, now, snap.SavedAt.UTC())

	got := snap.Session
	assert.InDelta(t, 99_000, got.Cash, 1e-9)
	require.Contains(t, got.Positions, "TCS")
	assert.Equal(t, 10, got.Positions["TCS"].Quantity)
	assert.InDelta(t, cfg.InitialCapital, got.Equity, 1e-9)
	assert.Contains(t, got.Watchlist, "TCS")
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	st := New(filepath.Join(t.TempDir(), "nope.json"))
	_, err := st.Load()
	assert.ErrorIs(t, err, ErrNoSnapshot)
}

func TestLoadCorruptFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := New(path).Load()
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoSnapshot)
}

func TestSaveIsAtomicReplacement(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "session.json")
	st := New(path)
	now := time.Now()

	first := ledger.NewSession(ledger.ModePaper, risk.DefaultConfig(), now)
	require.NoError(t, st.Save(first, now))

	second := first.Clone()
	second.Cash = 42
	require.NoError(t, st.Save(second, now))

	snap, err := st.Load()
	require.NoError(t, err)
	assert.InDelta(t, 42, snap.Session.Cash, 1e-9)

	// No temp files left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "session.json", entries[0].Name())
}

func TestClear(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "session.json")
	st := New(path)
	require.NoError(t, st.Save(ledger.NewSession(ledger.ModePaper, risk.DefaultConfig(), time.Now()), time.Now()))

	require.NoError(t, st.Clear())
	_, err := st.Load()
	assert.ErrorIs(t, err, ErrNoSnapshot)

	assert.NoError(t, st.Clear(), "clearing an absent snapshot is not an error")
}
