package broker

import (
	"context"
	"errors"
	"time"
)

// Normalized broker order statuses. Adapters map vendor strings onto these.
const (
	StatusOpen      = "OPEN"
	StatusFilled    = "FILLED"
	StatusCancelled = "CANCELLED"
	StatusRejected  = "REJECTED"
)

var (
	ErrNotConfigured = errors.New("broker not configured")
	ErrOrderNotFound = errors.New("broker order not found")
)

// OrderRequest is a submission handed to the broker. ClientID is the
// runtime-generated id used for idempotent resubmission.
type OrderRequest struct {
	ClientID string
	Symbol   string
	Side     string // BUY or SELL
	Quantity int
	Price    float64
}

// Ack is the broker's acknowledgment of a submission.
type Ack struct {
	BrokerOrderID string
	Status        string
	FillPrice     float64 // set when Status is FILLED
}

// StatusReport is the broker's answer to a status query.
type StatusReport struct {
	BrokerOrderID string
	Status        string
	FilledQty     int
	AvgFillPrice  float64
}

// Position is a broker-side position, used during reconciliation.
type Position struct {
	Symbol   string
	Quantity int
	AvgPrice float64
}

// Broker is the closed capability set every adapter implements. All calls
// are fallible and treated as retryable by the engine.
type Broker interface {
	Name() string
	SubmitOrder(ctx context.Context, req OrderRequest) (Ack, error)
	CancelOrder(ctx context.Context, brokerOrderID string) error
	GetOrderStatus(ctx context.Context, brokerOrderID string) (StatusReport, error)
	GetPositions(ctx context.Context) ([]Position, error)
}

// Quoter is implemented by brokers that can also serve market data.
type Quoter interface {
	GetQuote(ctx context.Context, symbol string) (float64, time.Time, error)
}
