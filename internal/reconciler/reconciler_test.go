package reconciler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quantbyte/scoretrader/internal/broker"
	"github.com/quantbyte/scoretrader/internal/domain"
	"github.com/quantbyte/scoretrader/internal/logger"
	"github.com/quantbyte/scoretrader/internal/storage"
)

type fakeGateway struct {
	holdings []broker.Holding
	err      error
}

func (g *fakeGateway) ListHoldings(ctx context.Context) ([]broker.Holding, error) {
	return g.holdings, g.err
}

func (g *fakeGateway) PlaceOrder(ctx context.Context, symbol string, action domain.Action, quantity int64) (string, error) {
	return "", errors.New("not implemented")
}

func (g *fakeGateway) PollOrder(ctx context.Context, orderID string) (broker.OrderUpdate, error) {
	return broker.OrderUpdate{}, errors.New("not implemented")
}

func (g *fakeGateway) LivePrice(ctx context.Context, symbol string) (float64, error) {
	return 0, domain.ErrNotFound
}

type fakeLedger struct {
	positions map[string]storage.Position
	writes    int
}

func newFakeLedger(positions ...storage.Position) *fakeLedger {
	l := &fakeLedger{positions: map[string]storage.Position{}}
	for _, p := range positions {
		l.positions[p.Symbol] = p
	}
	return l
}

func (l *fakeLedger) ListPositions() ([]storage.Position, error) {
	var out []storage.Position
	for _, p := range l.positions {
		out = append(out, p)
	}
	return out, nil
}

func (l *fakeLedger) UpsertPosition(pos *storage.Position) error {
	l.positions[pos.Symbol] = *pos
	l.writes++
	return nil
}

func (l *fakeLedger) RemovePosition(symbol string) error {
	delete(l.positions, symbol)
	l.writes++
	return nil
}

type fakeNotifier struct {
	summaries int
}

func (n *fakeNotifier) NotifyReconcile(added, removed, updated int) {
	n.summaries++
}

func newReconciler(g *fakeGateway, l *fakeLedger, n *fakeNotifier) *Reconciler {
	return New(g, l, n, 0.15, 0.08, logger.New("error"))
}

func TestSyncAddsMissingPosition(t *testing.T) {
	gateway := &fakeGateway{holdings: []broker.Holding{
		{Symbol: "BAC", Quantity: 100, AvgCost: 40},
	}}
	ledger := newFakeLedger()
	notifier := &fakeNotifier{}

	sum, err := newReconciler(gateway, ledger, notifier).Sync(context.Background())
	require.NoError(t, err)
	require.Equal(t, Summary{Added: 1}, sum)

	pos, ok := ledger.positions["BAC"]
	require.True(t, ok)
	require.EqualValues(t, 100, pos.Quantity)
	require.Equal(t, 40.0, pos.AvgCost)
	require.Nil(t, pos.EntryScore)
	require.Equal(t, 46.0, pos.TargetPrice)
	require.Equal(t, 36.8, pos.StopLossPrice)
	require.Equal(t, 1, notifier.summaries)
}

func TestSyncRemovesStalePosition(t *testing.T) {
	gateway := &fakeGateway{}
	ledger := newFakeLedger(storage.Position{Symbol: "DEF", Quantity: 50, AvgCost: 20})
	notifier := &fakeNotifier{}

	sum, err := newReconciler(gateway, ledger, notifier).Sync(context.Background())
	require.NoError(t, err)
	require.Equal(t, Summary{Removed: 1}, sum)
	require.NotContains(t, ledger.positions, "DEF")
	require.Equal(t, 1, notifier.summaries)
}

func TestSyncUpdatesDivergedPosition(t *testing.T) {
	score := 10
	gateway := &fakeGateway{holdings: []broker.Holding{
		{Symbol: "OZK", Quantity: 150, AvgCost: 42.5},
	}}
	existing := storage.Position{
		Symbol:        "OZK",
		Quantity:      100,
		AvgCost:       40,
		EntryScore:    &score,
		TargetPrice:   46,
		StopLossPrice: 36.8,
	}
	ledger := newFakeLedger(existing)
	notifier := &fakeNotifier{}

	sum, err := newReconciler(gateway, ledger, notifier).Sync(context.Background())
	require.NoError(t, err)
	require.Equal(t, Summary{Updated: 1}, sum)

	pos := ledger.positions["OZK"]
	require.EqualValues(t, 150, pos.Quantity)
	require.Equal(t, 42.5, pos.AvgCost)
	// Entry score and exit levels survive the update.
	require.NotNil(t, pos.EntryScore)
	require.Equal(t, 46.0, pos.TargetPrice)
	require.Equal(t, 36.8, pos.StopLossPrice)
}

func TestSyncIsIdempotent(t *testing.T) {
	gateway := &fakeGateway{holdings: []broker.Holding{
		{Symbol: "BAC", Quantity: 100, AvgCost: 40},
		{Symbol: "FHN", Quantity: 200, AvgCost: 15},
	}}
	ledger := newFakeLedger(storage.Position{Symbol: "SSB", Quantity: 10, AvgCost: 80})
	notifier := &fakeNotifier{}
	rec := newReconciler(gateway, ledger, notifier)

	first, err := rec.Sync(context.Background())
	require.NoError(t, err)
	require.False(t, first.Empty())

	writesAfterFirst := ledger.writes

	second, err := rec.Sync(context.Background())
	require.NoError(t, err)
	require.True(t, second.Empty())
	require.Equal(t, writesAfterFirst, ledger.writes)
	require.Equal(t, 1, notifier.summaries)
}

func TestSyncBrokerageFailureLeavesLedgerUntouched(t *testing.T) {
	gateway := &fakeGateway{err: domain.ErrBrokerage}
	ledger := newFakeLedger(storage.Position{Symbol: "BAC", Quantity: 100, AvgCost: 40})
	notifier := &fakeNotifier{}

	_, err := newReconciler(gateway, ledger, notifier).Sync(context.Background())
	require.Error(t, err)
	require.ErrorIs(t, err, domain.ErrBrokerage)
	require.Contains(t, ledger.positions, "BAC")
	require.Zero(t, ledger.writes)
	require.Zero(t, notifier.summaries)
}
