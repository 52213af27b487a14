package broker

import (
	"context"

	"github.com/quantbyte/scoretrader/internal/domain"
)

// Holding is one actual brokerage position.
type Holding struct {
	Symbol   string
	Quantity int64
	AvgCost  float64
}

// OrderUpdate is the polled state of a submitted order. FilledPrice is only
// meaningful when State is FILLED.
type OrderUpdate struct {
	State       domain.OrderState
	FilledPrice float64
}

// Gateway is the brokerage collaborator consumed by the core. The session
// with the gateway process is assumed to be established and authenticated.
type Gateway interface {
	// ListHoldings returns every open position held at the brokerage.
	ListHoldings(ctx context.Context) ([]Holding, error)

	// PlaceOrder submits a market order and returns the brokerage order id.
	PlaceOrder(ctx context.Context, symbol string, action domain.Action, quantity int64) (string, error)

	// PollOrder fetches the current state of an order.
	PollOrder(ctx context.Context, orderID string) (OrderUpdate, error)

	// LivePrice returns the last traded price for a symbol, or
	// domain.ErrNotFound when no quote is available.
	LivePrice(ctx context.Context, symbol string) (float64, error)
}
