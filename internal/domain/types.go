package domain

// Action is the side of an order.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
)

// Reason explains why an intent or ledger mutation happened.
type Reason string

const (
	ReasonStrongBuy       Reason = "STRONG_BUY"
	ReasonScoreDrop       Reason = "SCORE_DROP"
	ReasonTakeProfit      Reason = "TAKE_PROFIT"
	ReasonStopLoss        Reason = "STOP_LOSS"
	ReasonReconcileAdd    Reason = "RECONCILE_ADD"
	ReasonReconcileRemove Reason = "RECONCILE_REMOVE"
	ReasonReconcileUpdate Reason = "RECONCILE_UPDATE"
)

// OrderState is the terminal (or pending) classification of an order.
type OrderState string

const (
	OrderPending  OrderState = "PENDING"
	OrderFilled   OrderState = "FILLED"
	OrderFailed   OrderState = "FAILED"
	OrderTimedOut OrderState = "TIMED_OUT"
)

// Terminal reports whether the state will no longer change.
func (s OrderState) Terminal() bool {
	return s == OrderFilled || s == OrderFailed
}
