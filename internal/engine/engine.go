package engine

import (
	"sort"

	"github.com/quantbyte/scoretrader/internal/domain"
	"github.com/quantbyte/scoretrader/internal/snapshot"
	"github.com/quantbyte/scoretrader/internal/storage"
)

// Intent is a proposed order, not yet executed.
type Intent struct {
	Symbol string
	Action domain.Action
	Reason domain.Reason
	Score  *int    // triggering AI score, nil for pure price exits
	Price  float64 // live price at decision time, 0 when unknown
}

// Engine turns a score snapshot, the open positions and live prices into an
// ordered list of intents. It is pure: no ledger access, no side effects.
type Engine struct {
	maxPositions  int
	buyThreshold  int
	sellThreshold int
}

func New(maxPositions, buyThreshold, sellThreshold int) *Engine {
	return &Engine{
		maxPositions:  maxPositions,
		buyThreshold:  buyThreshold,
		sellThreshold: sellThreshold,
	}
}

// Decide runs the sell pass over every open position, then the buy pass over
// the snapshot. Sells come first so capital protection never waits behind
// new entries.
func (e *Engine) Decide(snap *snapshot.Snapshot, positions []storage.Position, prices map[string]float64) []Intent {
	intents := e.DecideExits(snap, positions, prices)
	intents = append(intents, e.decideBuys(snap, positions)...)
	return intents
}

// DecideExits runs only the sell pass. The high-frequency price trigger uses
// it directly with snap == nil, skipping score-drop checks.
//
// Precedence when several conditions hold: STOP_LOSS over TAKE_PROFIT over
// SCORE_DROP. At most one SELL per symbol.
func (e *Engine) DecideExits(snap *snapshot.Snapshot, positions []storage.Position, prices map[string]float64) []Intent {
	var intents []Intent

	for _, pos := range positions {
		price, hasPrice := prices[pos.Symbol]

		if hasPrice && pos.StopLossPrice > 0 && price <= pos.StopLossPrice {
			intents = append(intents, Intent{
				Symbol: pos.Symbol,
				Action: domain.ActionSell,
				Reason: domain.ReasonStopLoss,
				Price:  price,
			})
			continue
		}

		if hasPrice && pos.TargetPrice > 0 && price >= pos.TargetPrice {
			intents = append(intents, Intent{
				Symbol: pos.Symbol,
				Action: domain.ActionSell,
				Reason: domain.ReasonTakeProfit,
				Price:  price,
			})
			continue
		}

		if sc, ok := snap.Score(pos.Symbol); ok && sc.AIScore < e.sellThreshold {
			score := sc.AIScore
			intents = append(intents, Intent{
				Symbol: pos.Symbol,
				Action: domain.ActionSell,
				Reason: domain.ReasonScoreDrop,
				Score:  &score,
				Price:  price,
			})
		}
	}

	return intents
}

// decideBuys emits BUY intents for snapshot symbols at or above the buy
// threshold that are not already held, in ascending symbol order, until the
// position cap is reached. Symbols beyond the cap are dropped for this
// cycle, not queued.
func (e *Engine) decideBuys(snap *snapshot.Snapshot, positions []storage.Position) []Intent {
	if snap == nil {
		return nil
	}

	held := make(map[string]bool, len(positions))
	for _, pos := range positions {
		held[pos.Symbol] = true
	}

	symbols := make([]string, 0, len(snap.Scores))
	for symbol := range snap.Scores {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	room := e.maxPositions - len(positions)

	var intents []Intent
	for _, symbol := range symbols {
		if room <= 0 {
			break
		}
		if held[symbol] {
			continue
		}
		sc := snap.Scores[symbol]
		if sc.AIScore < e.buyThreshold {
			continue
		}

		score := sc.AIScore
		intents = append(intents, Intent{
			Symbol: symbol,
			Action: domain.ActionBuy,
			Reason: domain.ReasonStrongBuy,
			Score:  &score,
		})
		room--
	}

	return intents
}
