package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/quantbyte/scoretrader/internal/broker"
	"github.com/quantbyte/scoretrader/internal/domain"
	"github.com/quantbyte/scoretrader/internal/engine"
	"github.com/quantbyte/scoretrader/internal/logger"
	"github.com/quantbyte/scoretrader/internal/storage"
)

// Ledger is the slice of the repository the executor needs.
type Ledger interface {
	GetPosition(symbol string) (*storage.Position, error)
	UpsertPosition(pos *storage.Position) error
	RemovePosition(symbol string) error
	RecordTrade(trade *storage.Trade) error
}

// Notifier receives one message per order attempt, success or failure.
type Notifier interface {
	NotifyTrade(symbol string, action domain.Action, quantity int64, price, total float64, score *int, reason domain.Reason)
	NotifySellPnL(symbol string, quantity int64, price, avgCost, pnl float64)
	NotifyOrderFailed(symbol string, action domain.Action, status domain.OrderState, detail string)
}

// Options carry the trading parameters the executor applies on fills.
type Options struct {
	DefaultQuantity int64
	TakeProfitPct   float64
	StopLossPct     float64
	PollAttempts    int
	PollDelay       time.Duration
}

// Executor turns intents into confirmed fills or failures and keeps the
// ledger in step. Intents run strictly sequentially, a failed order never
// aborts the rest of the cycle.
type Executor struct {
	gateway  broker.Gateway
	ledger   Ledger
	notifier Notifier
	opts     Options
	logger   *logger.Logger
}

func New(gateway broker.Gateway, ledger Ledger, notifier Notifier, opts Options, log *logger.Logger) *Executor {
	if opts.PollAttempts < 1 {
		opts.PollAttempts = 1
	}
	return &Executor{
		gateway:  gateway,
		ledger:   ledger,
		notifier: notifier,
		opts:     opts,
		logger:   log,
	}
}

// Execute runs every intent in order. It stops early only on context
// cancellation, which is the safe shutdown boundary between intents.
func (e *Executor) Execute(ctx context.Context, intents []engine.Intent) {
	for _, intent := range intents {
		if ctx.Err() != nil {
			e.logger.Info("execution interrupted", "remaining", len(intents))
			return
		}

		var err error
		switch intent.Action {
		case domain.ActionBuy:
			err = e.executeBuy(ctx, intent)
		case domain.ActionSell:
			err = e.executeSell(ctx, intent)
		default:
			e.logger.Warn("unknown intent action", "action", intent.Action, "symbol", intent.Symbol)
			continue
		}
		if err != nil {
			e.logger.Error("intent execution failed",
				"symbol", intent.Symbol, "action", intent.Action, "error", err)
		}
	}
}

func (e *Executor) executeBuy(ctx context.Context, intent engine.Intent) error {
	quantity := e.opts.DefaultQuantity

	update, orderID, err := e.submitAndPoll(ctx, intent, quantity)
	if err != nil {
		return err
	}
	if update.State != domain.OrderFilled {
		return nil
	}

	fillPrice := update.FilledPrice
	pos := &storage.Position{
		Symbol:        intent.Symbol,
		Quantity:      quantity,
		AvgCost:       fillPrice,
		EntryTime:     time.Now(),
		EntryScore:    intent.Score,
		TargetPrice:   engine.TargetPrice(fillPrice, e.opts.TakeProfitPct),
		StopLossPrice: engine.StopPrice(fillPrice, e.opts.StopLossPct),
	}
	if err := e.ledger.UpsertPosition(pos); err != nil {
		return fmt.Errorf("record buy fill %s: %w", intent.Symbol, err)
	}

	e.recordTrade(intent, quantity, fillPrice, orderID, domain.OrderFilled)
	e.notifier.NotifyTrade(intent.Symbol, domain.ActionBuy, quantity,
		fillPrice, engine.TradeAmount(quantity, fillPrice), intent.Score, intent.Reason)

	e.logger.Info("BUY filled", "symbol", intent.Symbol, "quantity", quantity,
		"price", fillPrice, "target", pos.TargetPrice, "stop", pos.StopLossPrice)
	return nil
}

func (e *Executor) executeSell(ctx context.Context, intent engine.Intent) error {
	pos, err := e.ledger.GetPosition(intent.Symbol)
	if err != nil {
		return fmt.Errorf("sell %s: %w", intent.Symbol, err)
	}

	update, orderID, err := e.submitAndPoll(ctx, intent, pos.Quantity)
	if err != nil {
		return err
	}
	if update.State != domain.OrderFilled {
		return nil
	}

	fillPrice := update.FilledPrice
	if err := e.ledger.RemovePosition(intent.Symbol); err != nil {
		return fmt.Errorf("record sell fill %s: %w", intent.Symbol, err)
	}

	e.recordTrade(intent, pos.Quantity, fillPrice, orderID, domain.OrderFilled)
	e.notifier.NotifyTrade(intent.Symbol, domain.ActionSell, pos.Quantity,
		fillPrice, engine.TradeAmount(pos.Quantity, fillPrice), intent.Score, intent.Reason)

	pnl := engine.TradeAmount(pos.Quantity, fillPrice) - engine.TradeAmount(pos.Quantity, pos.AvgCost)
	e.notifier.NotifySellPnL(intent.Symbol, pos.Quantity, fillPrice, pos.AvgCost, pnl)

	e.logger.Info("SELL filled", "symbol", intent.Symbol, "quantity", pos.Quantity,
		"price", fillPrice, "pnl", pnl, "reason", intent.Reason)
	return nil
}

// submitAndPoll places the order and polls until a terminal state or the
// attempt budget runs out. Non-filled outcomes are recorded and notified
// here; the ledger is left unchanged for them.
func (e *Executor) submitAndPoll(ctx context.Context, intent engine.Intent, quantity int64) (broker.OrderUpdate, string, error) {
	orderID, err := e.gateway.PlaceOrder(ctx, intent.Symbol, intent.Action, quantity)
	if err != nil {
		e.recordTrade(intent, quantity, 0, "", domain.OrderFailed)
		e.notifier.NotifyOrderFailed(intent.Symbol, intent.Action, domain.OrderFailed, err.Error())
		return broker.OrderUpdate{}, "", fmt.Errorf("place %s %s: %w", intent.Action, intent.Symbol, err)
	}

	update, err := e.pollUntilTerminal(ctx, orderID)
	if err != nil {
		e.recordTrade(intent, quantity, 0, orderID, domain.OrderFailed)
		e.notifier.NotifyOrderFailed(intent.Symbol, intent.Action, domain.OrderFailed, err.Error())
		return broker.OrderUpdate{}, orderID, fmt.Errorf("poll %s %s: %w", intent.Action, intent.Symbol, err)
	}

	switch update.State {
	case domain.OrderFilled:
		return update, orderID, nil
	case domain.OrderPending:
		// Never reached terminal state within the attempt budget.
		e.recordTrade(intent, quantity, 0, orderID, domain.OrderTimedOut)
		e.notifier.NotifyOrderFailed(intent.Symbol, intent.Action, domain.OrderTimedOut,
			fmt.Sprintf("order %s still pending after %d polls", orderID, e.opts.PollAttempts))
		e.logger.Warn("order timed out", "symbol", intent.Symbol, "order_id", orderID)
		return broker.OrderUpdate{State: domain.OrderTimedOut}, orderID, nil
	default:
		e.recordTrade(intent, quantity, 0, orderID, domain.OrderFailed)
		e.notifier.NotifyOrderFailed(intent.Symbol, intent.Action, domain.OrderFailed,
			fmt.Sprintf("order %s rejected by brokerage", orderID))
		return update, orderID, nil
	}
}

func (e *Executor) pollUntilTerminal(ctx context.Context, orderID string) (broker.OrderUpdate, error) {
	var update broker.OrderUpdate
	var err error

	for attempt := 1; attempt <= e.opts.PollAttempts; attempt++ {
		update, err = e.gateway.PollOrder(ctx, orderID)
		if err != nil {
			return broker.OrderUpdate{}, err
		}
		if update.State.Terminal() {
			return update, nil
		}

		select {
		case <-ctx.Done():
			return update, nil
		case <-time.After(e.opts.PollDelay * time.Duration(attempt)):
		}
	}
	return update, nil
}

func (e *Executor) recordTrade(intent engine.Intent, quantity int64, price float64, orderID string, status domain.OrderState) {
	trade := &storage.Trade{
		Symbol:      intent.Symbol,
		Action:      string(intent.Action),
		Quantity:    quantity,
		Price:       price,
		TotalAmount: engine.TradeAmount(quantity, price),
		AIScore:     intent.Score,
		Reason:      string(intent.Reason),
		OrderID:     orderID,
		Status:      string(status),
	}
	if err := e.ledger.RecordTrade(trade); err != nil {
		e.logger.Error("record trade", "symbol", intent.Symbol, "error", err)
	}
}
