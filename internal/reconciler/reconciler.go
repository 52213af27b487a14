package reconciler

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

// Ledger is the slice of the repository the reconciler mutates.
type Ledger interface {
	ListPositions() ([]storage.Position, error)
	UpsertPosition(pos *storage.Position) error
	RemovePosition(symbol string) error
}

// Notifier receives the per-run summary.
type Notifier interface {
	NotifyReconcile(added, removed, updated int)
}

// Summary counts the mutations one run performed.
type Summary struct {
	Added   int
	Removed int
	Updated int
}

func (s Summary) Empty() bool {
	return s.Added == 0 && s.Removed == 0 && s.Updated == 0
}

// Reconciler aligns the position ledger with the brokerage's actual
// holdings. It is the only component allowed to resolve divergence between
// the two, and it never writes trade records: reconciliation changes had no
// order behind them.
type Reconciler struct {
	gateway       broker.Gateway
	ledger        Ledger
	notifier      Notifier
	takeProfitPct float64
	stopLossPct   float64
	logger        *logger.Logger
}

func New(gateway broker.Gateway, ledger Ledger, notifier Notifier, takeProfitPct, stopLossPct float64, log *logger.Logger) *Reconciler {
	return &Reconciler{
		gateway:       gateway,
		ledger:        ledger,
		notifier:      notifier,
		takeProfitPct: takeProfitPct,
		stopLossPct:   stopLossPct,
		logger:        log,
	}
}

// Sync fetches actual holdings and applies adds, removes and updates to the
// ledger. A brokerage fetch failure leaves the ledger untouched; the caller
// surfaces the error and the previous state stays authoritative. Running
// Sync twice with no brokerage-side change is a no-op the second time.
func (r *Reconciler) Sync(ctx context.Context) (Summary, error) {
	holdings, err := r.gateway.ListHoldings(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("reconcile: %w", err)
	}

	positions, err := r.ledger.ListPositions()
	if err != nil {
		return Summary{}, fmt.Errorf("reconcile: %w", err)
	}

	held := make(map[string]broker.Holding, len(holdings))
	for _, h := range holdings {
		held[h.Symbol] = h
	}
	local := make(map[string]storage.Position, len(positions))
	for _, p := range positions {
		local[p.Symbol] = p
	}

	var sum Summary

	for _, h := range holdings {
		pos, ok := local[h.Symbol]
		if !ok {
			added := &storage.Position{
				Symbol:        h.Symbol,
				Quantity:      h.Quantity,
				AvgCost:       h.AvgCost,
				EntryTime:     time.Now(),
				EntryScore:    nil,
				TargetPrice:   engine.TargetPrice(h.AvgCost, r.takeProfitPct),
				StopLossPrice: engine.StopPrice(h.AvgCost, r.stopLossPct),
			}
			if err := r.ledger.UpsertPosition(added); err != nil {
				return sum, fmt.Errorf("reconcile add %s: %w", h.Symbol, err)
			}
			r.logger.Warn("position held at broker but missing locally, added",
				"symbol", h.Symbol, "quantity", h.Quantity, "reason", domain.ReasonReconcileAdd)
			sum.Added++
			continue
		}

		if pos.Quantity != h.Quantity || pos.AvgCost != h.AvgCost {
			// Quantity and cost follow the broker; entry score and the
			// target/stop levels keep their original values.
			pos.Quantity = h.Quantity
			pos.AvgCost = h.AvgCost
			if err := r.ledger.UpsertPosition(&pos); err != nil {
				return sum, fmt.Errorf("reconcile update %s: %w", h.Symbol, err)
			}
			r.logger.Warn("position diverged from broker, updated",
				"symbol", h.Symbol, "quantity", h.Quantity, "avg_cost", h.AvgCost, "reason", domain.ReasonReconcileUpdate)
			sum.Updated++
		}
	}

	for _, p := range positions {
		if _, ok := held[p.Symbol]; ok {
			continue
		}
		if err := r.ledger.RemovePosition(p.Symbol); err != nil {
			return sum, fmt.Errorf("reconcile remove %s: %w", p.Symbol, err)
		}
		r.logger.Warn("position no longer held at broker, removed",
			"symbol", p.Symbol, "reason", domain.ReasonReconcileRemove)
		sum.Removed++
	}

	if !sum.Empty() {
		r.notifier.NotifyReconcile(sum.Added, sum.Removed, sum.Updated)
	}

	r.logger.Info("position sync completed",
		"added", sum.Added, "removed", sum.Removed, "updated", sum.Updated)
	return sum, nil
}
