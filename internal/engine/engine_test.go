package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quantbyte/scoretrader/internal/danelfin"
	"github.com/quantbyte/scoretrader/internal/domain"
	"github.com/quantbyte/scoretrader/internal/snapshot"
	"github.com/quantbyte/scoretrader/internal/storage"
)

func snapOf(scores map[string]int) *snapshot.Snapshot {
	s := &snapshot.Snapshot{AsOf: "2026-08-28", Scores: map[string]danelfin.Score{}}
	for symbol, score := range scores {
		s.Scores[symbol] = danelfin.Score{Symbol: symbol, AIScore: score, Date: s.AsOf}
	}
	return s
}

func position(symbol string, avgCost, target, stop float64) storage.Position {
	return storage.Position{
		Symbol:        symbol,
		Quantity:      100,
		AvgCost:       avgCost,
		TargetPrice:   target,
		StopLossPrice: stop,
	}
}

func TestDecideBuysTopScore(t *testing.T) {
	eng := New(8, 10, 7)

	intents := eng.Decide(snapOf(map[string]int{"AAPL": 10}), nil, nil)

	require.Len(t, intents, 1)
	require.Equal(t, "AAPL", intents[0].Symbol)
	require.Equal(t, domain.ActionBuy, intents[0].Action)
	require.Equal(t, domain.ReasonStrongBuy, intents[0].Reason)
	require.NotNil(t, intents[0].Score)
	require.Equal(t, 10, *intents[0].Score)
}

func TestDecideSkipsScoresBelowThreshold(t *testing.T) {
	eng := New(8, 10, 7)

	intents := eng.Decide(snapOf(map[string]int{"AAPL": 9, "MSFT": 8}), nil, nil)

	require.Empty(t, intents)
}

func TestDecideSkipsHeldSymbols(t *testing.T) {
	eng := New(8, 10, 7)
	positions := []storage.Position{position("AAPL", 100, 115, 92)}

	intents := eng.Decide(snapOf(map[string]int{"AAPL": 10, "MSFT": 10}), positions, nil)

	require.Len(t, intents, 1)
	require.Equal(t, "MSFT", intents[0].Symbol)
}

func TestDecideRespectsPositionCap(t *testing.T) {
	eng := New(3, 10, 7)
	positions := []storage.Position{
		position("AAA", 100, 115, 92),
		position("BBB", 100, 115, 92),
	}
	snap := snapOf(map[string]int{"CCC": 10, "DDD": 10, "EEE": 10})

	intents := eng.Decide(snap, positions, nil)

	// Room for exactly one more; the rest are dropped, not queued.
	require.Len(t, intents, 1)
	require.Equal(t, "CCC", intents[0].Symbol)
}

func TestDecideBuyOrderIsDeterministic(t *testing.T) {
	eng := New(8, 10, 7)
	snap := snapOf(map[string]int{"ZZZ": 10, "MMM": 10, "AAA": 10})

	for i := 0; i < 10; i++ {
		intents := eng.Decide(snap, nil, nil)
		require.Len(t, intents, 3)
		require.Equal(t, "AAA", intents[0].Symbol)
		require.Equal(t, "MMM", intents[1].Symbol)
		require.Equal(t, "ZZZ", intents[2].Symbol)
	}
}

func TestDecideNilSnapshotNoBuys(t *testing.T) {
	eng := New(8, 10, 7)

	intents := eng.Decide(nil, nil, map[string]float64{"AAPL": 200})

	require.Empty(t, intents)
}

func TestStopLossExit(t *testing.T) {
	eng := New(8, 10, 7)
	positions := []storage.Position{position("XYZ", 100, 115, 92)}
	prices := map[string]float64{"XYZ": 90}

	intents := eng.DecideExits(nil, positions, prices)

	require.Len(t, intents, 1)
	require.Equal(t, "XYZ", intents[0].Symbol)
	require.Equal(t, domain.ActionSell, intents[0].Action)
	require.Equal(t, domain.ReasonStopLoss, intents[0].Reason)
}

func TestTakeProfitExit(t *testing.T) {
	eng := New(8, 10, 7)
	positions := []storage.Position{position("XYZ", 100, 115, 92)}
	prices := map[string]float64{"XYZ": 116.5}

	intents := eng.DecideExits(nil, positions, prices)

	require.Len(t, intents, 1)
	require.Equal(t, domain.ReasonTakeProfit, intents[0].Reason)
}

func TestScoreDropExit(t *testing.T) {
	eng := New(8, 10, 7)
	score := 9
	pos := position("ABC", 100, 115, 92)
	pos.EntryScore = &score
	prices := map[string]float64{"ABC": 101}

	intents := eng.Decide(snapOf(map[string]int{"ABC": 6}), []storage.Position{pos}, prices)

	require.Len(t, intents, 1)
	require.Equal(t, domain.ActionSell, intents[0].Action)
	require.Equal(t, domain.ReasonScoreDrop, intents[0].Reason)
	require.Equal(t, 6, *intents[0].Score)
}

func TestSellPrecedenceStopLossWins(t *testing.T) {
	eng := New(8, 10, 7)

	// Degenerate config where stop and target are both satisfied.
	pos := position("XYZ", 100, 80, 95)
	prices := map[string]float64{"XYZ": 90}

	intents := eng.DecideExits(snapOf(map[string]int{"XYZ": 2}), []storage.Position{pos}, prices)

	require.Len(t, intents, 1)
	require.Equal(t, domain.ReasonStopLoss, intents[0].Reason)
}

func TestTakeProfitBeatsScoreDrop(t *testing.T) {
	eng := New(8, 10, 7)
	pos := position("XYZ", 100, 115, 92)
	prices := map[string]float64{"XYZ": 120}

	intents := eng.DecideExits(snapOf(map[string]int{"XYZ": 2}), []storage.Position{pos}, prices)

	require.Len(t, intents, 1)
	require.Equal(t, domain.ReasonTakeProfit, intents[0].Reason)
}

func TestNoDoubleSellPerSymbol(t *testing.T) {
	eng := New(8, 10, 7)
	positions := []storage.Position{
		position("AAA", 100, 115, 92),
		position("BBB", 100, 115, 92),
	}
	prices := map[string]float64{"AAA": 50, "BBB": 200}
	snap := snapOf(map[string]int{"AAA": 1, "BBB": 1})

	intents := eng.DecideExits(snap, positions, prices)

	seen := map[string]int{}
	for _, intent := range intents {
		require.Equal(t, domain.ActionSell, intent.Action)
		seen[intent.Symbol]++
	}
	require.Equal(t, 1, seen["AAA"])
	require.Equal(t, 1, seen["BBB"])
}

func TestMissingPriceSkipsPriceChecks(t *testing.T) {
	eng := New(8, 10, 7)
	positions := []storage.Position{position("XYZ", 100, 115, 92)}

	// No quote this cycle: price exits are skipped, score drop still fires.
	intents := eng.DecideExits(nil, positions, map[string]float64{})
	require.Empty(t, intents)

	intents = eng.DecideExits(snapOf(map[string]int{"XYZ": 3}), positions, map[string]float64{})
	require.Len(t, intents, 1)
	require.Equal(t, domain.ReasonScoreDrop, intents[0].Reason)
}

func TestCapInvariantHolds(t *testing.T) {
	maxPositions := 4
	eng := New(maxPositions, 10, 7)

	positions := []storage.Position{
		position("AAA", 100, 115, 92),
		position("BBB", 100, 115, 92),
	}
	snap := snapOf(map[string]int{
		"CCC": 10, "DDD": 10, "EEE": 10, "FFF": 10, "GGG": 10,
	})

	intents := eng.Decide(snap, positions, nil)

	buys := 0
	for _, intent := range intents {
		if intent.Action == domain.ActionBuy {
			buys++
		}
	}
	require.LessOrEqual(t, len(positions)+buys, maxPositions)
}
