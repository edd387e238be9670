package journal

import "time"

// Transition is one append-only journal record: an order entering a new
// lifecycle status. The journal is the reconciliation source of truth,
// independent of the snapshot's current values.
type Transition struct {
	OrderID       string
	At            time.Time
	Symbol        string
	Side          string
	Quantity      int
	Price         float64
	Mode          string
	Status        string
	Reason        string
	BrokerOrderID string
	IsExit        bool
}

// Summary aggregates journal activity since a point in time.
type Summary struct {
	TotalOrders  int `json:"total_orders"`
	OpenOrders   int `json:"open_orders"`
	ClosedOrders int `json:"closed_orders"`
}

// Journal is the durable, append-only order transition log.
type Journal interface {
	// Record appends one transition. Callers append before mutating any
	// financial state so the audit trail survives a crash mid-handling.
	Record(Transition) error

	// OpenSubmitted returns the latest transition of every order whose most
	// recent status is SUBMITTED, i.e. orders needing reconciliation.
	OpenSubmitted() ([]Transition, error)

	// ListBySymbol returns transitions for a symbol, newest first.
	ListBySymbol(symbol string, limit int) ([]Transition, error)

	// ListBetween returns transitions with At in [start, end), oldest first.
	ListBetween(start, end time.Time) ([]Transition, error)

	// Summarize counts orders recorded since the given time.
	Summarize(since time.Time) (Summary, error)

	Close() error
}

var terminalStatuses = map[string]bool{
	"FILLED":    true,
	"REJECTED":  true,
	"CANCELLED": true,
	"FAILED":    true,
}

// Terminal reports whether a journal status string is terminal.
func Terminal(status string) bool {
	return terminalStatuses[status]
}
