package market

import (
	"context"
	"hash/fnv"
	"math/rand"
	"sync"
	"time"
)

// SimSource generates random-walk quotes for paper sessions with no real
// data feed attached. Each symbol gets a deterministic seed so restarts
// produce comparable price levels.
type SimSource struct {
	mu    sync.Mutex
	walks map[string]*walk
}

type walk struct {
	rng       *rand.Rand
	price     float64
	prevClose float64
}

func NewSimSource() *SimSource {
	return &SimSource{walks: make(map[string]*walk)}
}

func (s *SimSource) GetQuote(_ context.Context, symbol string) (Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.walks[symbol]
	if !ok {
		w = newWalk(symbol)
		s.walks[symbol] = w
	}

	// Step of up to +/-0.3% per observation.
	w.price *= 1 + (w.rng.Float64()-0.5)*0.006
	return Quote{
		Symbol:    symbol,
		Price:     w.price,
		PrevClose: w.prevClose,
		Time:      time.Now(),
	}, nil
}

func newWalk(symbol string) *walk {
	h := fnv.New64a()
	h.Write([]byte(symbol))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))
	// Base price in the 100..2100 range, stable per symbol.
	base := 100 + rng.Float64()*2000
	return &walk{rng: rng, price: base, prevClose: base}
}

// Quoter is a price-capable collaborator, typically a broker adapter that
// also serves market data.
type Quoter interface {
	GetQuote(ctx context.Context, symbol string) (price float64, at time.Time, err error)
}

// QuoterSource adapts a Quoter into a Source. The first price seen per
// symbol is kept as the previous close so change percentages have a
// reference point within the session.
type QuoterSource struct {
	q Quoter

	mu    sync.Mutex
	first map[string]float64
}

func NewQuoterSource(q Quoter) *QuoterSource {
	return &QuoterSource{q: q, first: make(map[string]float64)}
}

func (s *QuoterSource) GetQuote(ctx context.Context, symbol string) (Quote, error) {
	price, at, err := s.q.GetQuote(ctx, symbol)
	if err != nil {
		return Quote{}, err
	}

	s.mu.Lock()
	prev, ok := s.first[symbol]
	if !ok {
		s.first[symbol] = price
		prev = price
	}
	s.mu.Unlock()

	return Quote{Symbol: symbol, Price: price, PrevClose: prev, Time: at}, nil
}
