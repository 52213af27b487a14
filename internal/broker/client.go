package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-resty/resty/v2"

	"github.com/quantbyte/scoretrader/internal/config"
	"github.com/quantbyte/scoretrader/internal/domain"
	"github.com/quantbyte/scoretrader/internal/logger"
)

const (
	envReal     = "REAL"
	envSimulate = "SIMULATE"
)

// Client talks JSON over HTTP to the local OpenD bridge. Orders are routed
// to the simulated environment when the simulation flag is set, the same
// bridge instance serves both.
type Client struct {
	client *resty.Client
	trdEnv string
	logger *logger.Logger
}

var _ Gateway = (*Client)(nil)

func NewClient(cfg *config.Config, log *logger.Logger) *Client {
	client := resty.New()
	client.SetBaseURL(fmt.Sprintf("http://%s:%d", cfg.Futu.Host, cfg.Futu.Port))
	client.SetTimeout(cfg.FutuTimeout())

	env := envReal
	if cfg.IsSimulation() {
		env = envSimulate
	}

	return &Client{
		client: client,
		trdEnv: env,
		logger: log,
	}
}

// TradeEnv reports which environment orders are routed to.
func (c *Client) TradeEnv() string {
	return c.trdEnv
}

type holdingsResponse struct {
	Positions []struct {
		Code     string  `json:"code"`
		Quantity int64   `json:"qty"`
		AvgCost  float64 `json:"cost_price"`
	} `json:"positions"`
}

func (c *Client) ListHoldings(ctx context.Context) ([]Holding, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("trd_env", c.trdEnv).
		Get("/positions")
	if err != nil {
		return nil, brokerageErr("list holdings", err)
	}
	if resp.StatusCode() != 200 {
		return nil, brokerageStatus("list holdings", resp)
	}

	var body holdingsResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, brokerageErr("parse holdings", err)
	}

	holdings := make([]Holding, 0, len(body.Positions))
	for _, p := range body.Positions {
		symbol := stripMarket(p.Code)
		if symbol == "" || p.Quantity <= 0 {
			continue
		}
		holdings = append(holdings, Holding{
			Symbol:   symbol,
			Quantity: p.Quantity,
			AvgCost:  p.AvgCost,
		})
	}
	return holdings, nil
}

type placeOrderRequest struct {
	Code      string `json:"code"`
	Side      string `json:"trd_side"`
	Quantity  int64  `json:"qty"`
	OrderType string `json:"order_type"`
	TrdEnv    string `json:"trd_env"`
}

type placeOrderResponse struct {
	OrderID string `json:"order_id"`
}

func (c *Client) PlaceOrder(ctx context.Context, symbol string, action domain.Action, quantity int64) (string, error) {
	req := placeOrderRequest{
		Code:      marketCode(symbol),
		Side:      string(action),
		Quantity:  quantity,
		OrderType: "MARKET",
		TrdEnv:    c.trdEnv,
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(req).
		Post("/orders")
	if err != nil {
		return "", brokerageErr("place order", err)
	}
	if resp.StatusCode() != 200 {
		return "", brokerageStatus("place order", resp)
	}

	var body placeOrderResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return "", brokerageErr("parse order response", err)
	}
	if body.OrderID == "" {
		return "", brokerageErr("place order", fmt.Errorf("bridge returned empty order id"))
	}

	c.logger.Debug("order placed", "symbol", symbol, "side", action, "qty", quantity, "order_id", body.OrderID)
	return body.OrderID, nil
}

type orderStatusResponse struct {
	Status      string  `json:"status"` // PENDING, FILLED, FAILED
	FilledPrice float64 `json:"filled_price"`
}

func (c *Client) PollOrder(ctx context.Context, orderID string) (OrderUpdate, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("trd_env", c.trdEnv).
		Get("/orders/" + orderID)
	if err != nil {
		return OrderUpdate{}, brokerageErr("poll order", err)
	}
	if resp.StatusCode() != 200 {
		return OrderUpdate{}, brokerageStatus("poll order", resp)
	}

	var body orderStatusResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return OrderUpdate{}, brokerageErr("parse order status", err)
	}

	switch body.Status {
	case "FILLED":
		return OrderUpdate{State: domain.OrderFilled, FilledPrice: body.FilledPrice}, nil
	case "FAILED", "CANCELLED":
		return OrderUpdate{State: domain.OrderFailed}, nil
	default:
		return OrderUpdate{State: domain.OrderPending}, nil
	}
}

type quoteResponse struct {
	LastPrice float64 `json:"last_price"`
}

func (c *Client) LivePrice(ctx context.Context, symbol string) (float64, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("code", marketCode(symbol)).
		Get("/quote")
	if err != nil {
		return 0, brokerageErr("live price", err)
	}
	if resp.StatusCode() == 404 {
		return 0, fmt.Errorf("quote %s: %w", symbol, domain.ErrNotFound)
	}
	if resp.StatusCode() != 200 {
		return 0, brokerageStatus("live price", resp)
	}

	var body quoteResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return 0, brokerageErr("parse quote", err)
	}
	if body.LastPrice <= 0 {
		return 0, fmt.Errorf("quote %s: %w", symbol, domain.ErrNotFound)
	}
	return body.LastPrice, nil
}

// marketCode prefixes the US market the way the bridge expects.
func marketCode(symbol string) string {
	return "US." + symbol
}

func stripMarket(code string) string {
	if len(code) > 3 && code[:3] == "US." {
		return code[3:]
	}
	return code
}

func brokerageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrBrokerage, err)
}

func brokerageStatus(op string, resp *resty.Response) error {
	return fmt.Errorf("%s: %w: status %d: %s", op, domain.ErrBrokerage, resp.StatusCode(), resp.String())
}
