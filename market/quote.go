package market

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Quote is a single price observation for a symbol.
type Quote struct {
	Symbol    string
	Price     float64
	PrevClose float64
	Time      time.Time
}

// ChangePct returns the percent change against the previous close.
func (q Quote) ChangePct() float64 {
	if q.PrevClose == 0 {
		return 0
	}
	return (q.Price - q.PrevClose) / q.PrevClose * 100
}

// Source supplies live quotes. Implementations are external collaborators
// (broker quote feeds, data vendors); the engine only sees this interface.
type Source interface {
	GetQuote(ctx context.Context, symbol string) (Quote, error)
}

var ErrNoQuote = errors.New("no quote for symbol")

// QuoteStore keeps the latest quote per symbol.
type QuoteStore struct {
	mu     sync.RWMutex
	quotes map[string]Quote
}

func NewQuoteStore() *QuoteStore {
	return &QuoteStore{quotes: make(map[string]Quote)}
}

func (s *QuoteStore) Set(q Quote) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quotes[q.Symbol] = q
}

func (s *QuoteStore) Get(symbol string) (Quote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.quotes[symbol]
	if !ok {
		return Quote{}, ErrNoQuote
	}
	return q, nil
}
