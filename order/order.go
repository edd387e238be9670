package order

import (
	"time"

	"github.com/rustyeddy/tradeloop/risk"
)

// Status is an order's position in the lifecycle state machine:
//
//	Requested -> RiskApproved -> Submitted -> {Filled, Rejected, Cancelled, Failed}
//
// Filled is the only status that mutates the ledger.
type Status string

const (
	StatusRequested    Status = "REQUESTED"
	StatusRiskApproved Status = "RISK_APPROVED"
	StatusSubmitted    Status = "SUBMITTED"
	StatusFilled       Status = "FILLED"
	StatusRejected     Status = "REJECTED"
	StatusCancelled    Status = "CANCELLED"
	StatusFailed       Status = "FAILED"
)

// Terminal reports whether the status ends the lifecycle.
func (s Status) Terminal() bool {
	switch s {
	case StatusFilled, StatusRejected, StatusCancelled, StatusFailed:
		return true
	}
	return false
}

var transitions = map[Status][]Status{
	StatusRequested:    {StatusRiskApproved, StatusRejected},
	StatusRiskApproved: {StatusSubmitted, StatusRejected, StatusCancelled, StatusFailed},
	StatusSubmitted:    {StatusFilled, StatusRejected, StatusCancelled, StatusFailed},
}

func (s Status) canBecome(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Record tracks one order from request to terminal outcome. The client id is
// generated before submission and used for idempotent resubmission.
type Record struct {
	ID              string
	Symbol          string
	Side            risk.Side
	Quantity        int
	Price           float64
	Status          Status
	IsExit          bool
	Reason          string // exit/entry trigger, e.g. STRATEGY_BUY, STOP_LOSS
	RequestedAt     time.Time
	SubmittedAt     time.Time
	FilledAt        time.Time
	FillPrice       float64
	BrokerOrderID   string
	RejectionReason string
}
