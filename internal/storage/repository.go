package storage

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/quantbyte/scoretrader/internal/domain"
)

// Repository is the position ledger plus the trade and score-history logs.
// Every error it returns wraps domain.ErrStorage so callers can abort the
// cycle, except lookups of missing rows which wrap domain.ErrNotFound.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Positions

func (r *Repository) GetPosition(symbol string) (*Position, error) {
	var pos Position
	err := r.db.Where("symbol = ?", symbol).First(&pos).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("position %s: %w", symbol, domain.ErrNotFound)
	}
	if err != nil {
		return nil, storageErr("get position", err)
	}
	return &pos, nil
}

func (r *Repository) ListPositions() ([]Position, error) {
	var positions []Position
	if err := r.db.Order("symbol asc").Find(&positions).Error; err != nil {
		return nil, storageErr("list positions", err)
	}
	return positions, nil
}

func (r *Repository) CountPositions() (int, error) {
	var count int64
	if err := r.db.Model(&Position{}).Count(&count).Error; err != nil {
		return 0, storageErr("count positions", err)
	}
	return int(count), nil
}

// UpsertPosition inserts the position or replaces the row for its symbol.
func (r *Repository) UpsertPosition(pos *Position) error {
	err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "symbol"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"quantity", "avg_cost", "entry_time", "entry_score",
			"target_price", "stop_loss_price", "updated_at",
		}),
	}).Create(pos).Error
	if err != nil {
		return storageErr("upsert position", err)
	}
	return nil
}

func (r *Repository) RemovePosition(symbol string) error {
	if err := r.db.Where("symbol = ?", symbol).Delete(&Position{}).Error; err != nil {
		return storageErr("remove position", err)
	}
	return nil
}

// Trades

func (r *Repository) RecordTrade(trade *Trade) error {
	if err := r.db.Create(trade).Error; err != nil {
		return storageErr("record trade", err)
	}
	return nil
}

func (r *Repository) RecentTrades(limit int) ([]Trade, error) {
	var trades []Trade
	if err := r.db.Order("created_at DESC").Limit(limit).Find(&trades).Error; err != nil {
		return nil, storageErr("recent trades", err)
	}
	return trades, nil
}

// Score history

// SaveScore writes the daily score row for a symbol, replacing an earlier
// write for the same (date, symbol).
func (r *Repository) SaveScore(rec *ScoreHistory) error {
	err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "date"}, {Name: "symbol"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"ai_score", "fundamental", "technical", "sentiment", "target_price",
		}),
	}).Create(rec).Error
	if err != nil {
		return storageErr("save score", err)
	}
	return nil
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStorage, err)
}
