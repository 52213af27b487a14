package storage

import "time"

// Position is one currently held symbol. At most one row per symbol.
type Position struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Symbol     string    `gorm:"uniqueIndex;not null" json:"symbol"`
	Quantity   int64     `gorm:"not null" json:"quantity"`
	AvgCost    float64   `gorm:"not null" json:"avg_cost"`
	EntryTime  time.Time `json:"entry_time"`
	EntryScore *int      `json:"entry_score"` // nil when opened by reconciliation

	TargetPrice   float64 `json:"target_price"`
	StopLossPrice float64 `json:"stop_loss_price"`
}

// Trade is an append-only record of an executed order attempt. Rows are
// never mutated after reaching a terminal status.
type Trade struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	Symbol      string  `gorm:"index;not null" json:"symbol"`
	Action      string  `gorm:"not null" json:"action"` // BUY or SELL
	Quantity    int64   `gorm:"not null" json:"quantity"`
	Price       float64 `json:"price"`
	TotalAmount float64 `json:"total_amount"`
	AIScore     *int    `json:"ai_score"`
	Reason      string  `json:"reason"`
	OrderID     string  `json:"order_id"`
	Status      string  `gorm:"not null;default:'FILLED'" json:"status"`
}

// ScoreHistory keeps one row per (date, symbol), written on each daily
// snapshot refresh. Audit only, the decision engine never reads it.
type ScoreHistory struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	Date        string   `gorm:"uniqueIndex:idx_score_date_symbol;not null" json:"date"`
	Symbol      string   `gorm:"uniqueIndex:idx_score_date_symbol;not null" json:"symbol"`
	AIScore     int      `json:"ai_score"`
	Fundamental int      `json:"fundamental"`
	Technical   int      `json:"technical"`
	Sentiment   int      `json:"sentiment"`
	TargetPrice *float64 `json:"target_price"`
}
