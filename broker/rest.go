package broker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// RESTConfig parameterises the generic REST adapter. The named broker
// variants (groww, upstox, zerodha) differ only in base URL, auth header and
// status vocabulary, all of which live here.
type RESTConfig struct {
	Vendor     string
	BaseURL    string
	Token      string
	AuthHeader string // defaults to Authorization: Bearer <token>
	Timeout    time.Duration
}

// REST talks to a broker's order-management HTTP API. Endpoint shape:
//
//	POST   {base}/orders
//	DELETE {base}/orders/{id}
//	GET    {base}/orders/{id}
//	GET    {base}/positions
type REST struct {
	cfg    RESTConfig
	client *http.Client
}

func NewREST(cfg RESTConfig) (*REST, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%s: %w (missing base URL)", cfg.Vendor, ErrNotConfigured)
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("%s: %w (missing access token)", cfg.Vendor, ErrNotConfigured)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &REST{cfg: cfg, client: &http.Client{Timeout: timeout}}, nil
}

func (r *REST) Name() string { return r.cfg.Vendor }

type restOrder struct {
	OrderID      string  `json:"order_id"`
	ClientID     string  `json:"client_order_id"`
	Symbol       string  `json:"symbol"`
	Side         string  `json:"side"`
	Quantity     int     `json:"quantity"`
	Price        float64 `json:"price"`
	Status       string  `json:"status"`
	FilledQty    int     `json:"filled_quantity"`
	AvgFillPrice float64 `json:"average_price"`
}

func (r *REST) SubmitOrder(ctx context.Context, req OrderRequest) (Ack, error) {
	body := restOrder{
		ClientID: req.ClientID,
		Symbol:   req.Symbol,
		Side:     req.Side,
		Quantity: req.Quantity,
		Price:    req.Price,
	}
	var resp restOrder
	if err := r.do(ctx, http.MethodPost, "/orders", body, &resp); err != nil {
		return Ack{}, fmt.Errorf("%s submit: %w", r.cfg.Vendor, err)
	}
	return Ack{
		BrokerOrderID: resp.OrderID,
		Status:        normalizeStatus(resp.Status),
		FillPrice:     resp.AvgFillPrice,
	}, nil
}

func (r *REST) CancelOrder(ctx context.Context, brokerOrderID string) error {
	path := "/orders/" + url.PathEscape(brokerOrderID)
	if err := r.do(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("%s cancel: %w", r.cfg.Vendor, err)
	}
	return nil
}

func (r *REST) GetOrderStatus(ctx context.Context, brokerOrderID string) (StatusReport, error) {
	var resp restOrder
	path := "/orders/" + url.PathEscape(brokerOrderID)
	if err := r.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return StatusReport{}, fmt.Errorf("%s status: %w", r.cfg.Vendor, err)
	}
	return StatusReport{
		BrokerOrderID: resp.OrderID,
		Status:        normalizeStatus(resp.Status),
		FilledQty:     resp.FilledQty,
		AvgFillPrice:  resp.AvgFillPrice,
	}, nil
}

func (r *REST) GetPositions(ctx context.Context) ([]Position, error) {
	var resp []struct {
		Symbol   string  `json:"symbol"`
		Quantity int     `json:"quantity"`
		AvgPrice float64 `json:"average_price"`
	}
	if err := r.do(ctx, http.MethodGet, "/positions", nil, &resp); err != nil {
		return nil, fmt.Errorf("%s positions: %w", r.cfg.Vendor, err)
	}
	out := make([]Position, len(resp))
	for i, p := range resp {
		out[i] = Position{Symbol: p.Symbol, Quantity: p.Quantity, AvgPrice: p.AvgPrice}
	}
	return out, nil
}

func (r *REST) do(ctx context.Context, method, path string, in, out any) error {
	var body *bytes.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(r.cfg.BaseURL, "/")+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if r.cfg.AuthHeader != "" {
		req.Header.Set(r.cfg.AuthHeader, r.cfg.Token)
	} else {
		req.Header.Set("Authorization", "Bearer "+r.cfg.Token)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrOrderNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("http %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// normalizeStatus maps vendor status strings onto the broker package's
// closed status set.
func normalizeStatus(s string) string {
	switch strings.ToUpper(s) {
	case "COMPLETE", "COMPLETED", "EXECUTED", "FILLED":
		return StatusFilled
	case "CANCELLED", "CANCELED":
		return StatusCancelled
	case "REJECTED":
		return StatusRejected
	default:
		return StatusOpen
	}
}
