package engine

import "github.com/shopspring/decimal"

// TargetPrice derives the take-profit level from the entry cost, rounded to
// cents.
func TargetPrice(cost, takeProfitPct float64) float64 {
	return decimal.NewFromFloat(cost).
		Mul(decimal.NewFromFloat(1 + takeProfitPct)).
		Round(2).
		InexactFloat64()
}

// StopPrice derives the stop-loss level from the entry cost, rounded to
// cents.
func StopPrice(cost, stopLossPct float64) float64 {
	return decimal.NewFromFloat(cost).
		Mul(decimal.NewFromFloat(1 - stopLossPct)).
		Round(2).
		InexactFloat64()
}

// TradeAmount is quantity * price exact to the cent.
func TradeAmount(quantity int64, price float64) float64 {
	return decimal.NewFromFloat(price).
		Mul(decimal.NewFromInt(quantity)).
		Round(2).
		InexactFloat64()
}
