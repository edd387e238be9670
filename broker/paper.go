package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rustyeddy/tradeloop/pkg/id"
)

// Paper simulates a broker that fills every order instantly at the request
// price. It keeps its own positions so reconciliation paths can be exercised
// against it in tests and paper sessions.
type Paper struct {
	mu        sync.Mutex
	orders    map[string]StatusReport
	positions map[string]*Position
}

func NewPaper() *Paper {
	return &Paper{
		orders:    make(map[string]StatusReport),
		positions: make(map[string]*Position),
	}
}

func (p *Paper) Name() string { return "paper" }

func (p *Paper) SubmitOrder(ctx context.Context, req OrderRequest) (Ack, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if req.Quantity <= 0 || req.Price <= 0 {
		return Ack{}, fmt.Errorf("paper: invalid order %s qty=%d price=%.4f",
			req.Symbol, req.Quantity, req.Price)
	}

	brokerID := id.New()
	p.orders[brokerID] = StatusReport{
		BrokerOrderID: brokerID,
		Status:        StatusFilled,
		FilledQty:     req.Quantity,
		AvgFillPrice:  req.Price,
	}

	delta := req.Quantity
	if req.Side == "SELL" {
		delta = -req.Quantity
	}
	pos := p.positions[req.Symbol]
	if pos == nil {
		pos = &Position{Symbol: req.Symbol}
		p.positions[req.Symbol] = pos
	}
	pos.Quantity += delta
	pos.AvgPrice = req.Price
	if pos.Quantity == 0 {
		delete(p.positions, req.Symbol)
	}

	return Ack{BrokerOrderID: brokerID, Status: StatusFilled, FillPrice: req.Price}, nil
}

func (p *Paper) CancelOrder(ctx context.Context, brokerOrderID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	rep, ok := p.orders[brokerOrderID]
	if !ok {
		return ErrOrderNotFound
	}
	if rep.Status == StatusFilled {
		return fmt.Errorf("paper: order %s already filled", brokerOrderID)
	}
	rep.Status = StatusCancelled
	p.orders[brokerOrderID] = rep
	return nil
}

func (p *Paper) GetOrderStatus(ctx context.Context, brokerOrderID string) (StatusReport, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	rep, ok := p.orders[brokerOrderID]
	if !ok {
		return StatusReport{}, ErrOrderNotFound
	}
	return rep, nil
}

func (p *Paper) GetPositions(ctx context.Context) ([]Position, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]Position, 0, len(p.positions))
	for _, pos := range p.positions {
		out = append(out, *pos)
	}
	return out, nil
}

// GetQuote is a trivial quoter so paper sessions can run without a data
// vendor: it echoes the last traded price for the symbol.
func (p *Paper) GetQuote(ctx context.Context, symbol string) (float64, time.Time, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if pos, ok := p.positions[symbol]; ok {
		return pos.AvgPrice, time.Now(), nil
	}
	return 0, time.Time{}, fmt.Errorf("paper: no quote for %s", symbol)
}
