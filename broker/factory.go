package broker

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// Supported adapter names. The named SDK variants share the REST adapter;
// credentials come from the environment (loaded from .env by the CLI).
const (
	KindPaper   = "paper"
	KindNone    = "none"
	KindGroww   = "groww"
	KindUpstox  = "upstox"
	KindZerodha = "zerodha"
)

// None is a data-only broker: every trading capability fails with
// ErrNotConfigured. Used when watching markets without execution.
type None struct{}

func (None) Name() string { return KindNone }

func (None) SubmitOrder(context.Context, OrderRequest) (Ack, error) {
	return Ack{}, ErrNotConfigured
}

func (None) CancelOrder(context.Context, string) error {
	return ErrNotConfigured
}

func (None) GetOrderStatus(context.Context, string) (StatusReport, error) {
	return StatusReport{}, ErrNotConfigured
}

func (None) GetPositions(context.Context) ([]Position, error) {
	return nil, ErrNotConfigured
}

// New selects a broker adapter by name.
func New(kind string) (Broker, error) {
	switch strings.ToLower(kind) {
	case KindPaper, "":
		return NewPaper(), nil
	case KindNone:
		return None{}, nil
	case KindGroww, KindUpstox, KindZerodha:
		prefix := strings.ToUpper(kind)
		return NewREST(RESTConfig{
			Vendor:  kind,
			BaseURL: os.Getenv(prefix + "_API_BASE_URL"),
			Token:   os.Getenv(prefix + "_ACCESS_TOKEN"),
		})
	default:
		return nil, fmt.Errorf("unknown broker %q", kind)
	}
}
