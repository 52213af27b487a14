package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/quantbyte/scoretrader/internal/broker"
	"github.com/quantbyte/scoretrader/internal/config"
	"github.com/quantbyte/scoretrader/internal/domain"
	"github.com/quantbyte/scoretrader/internal/engine"
	"github.com/quantbyte/scoretrader/internal/executor"
	"github.com/quantbyte/scoretrader/internal/logger"
	"github.com/quantbyte/scoretrader/internal/reconciler"
	"github.com/quantbyte/scoretrader/internal/snapshot"
	"github.com/quantbyte/scoretrader/internal/storage"
	"github.com/quantbyte/scoretrader/internal/telegram"
)

// Scheduler fires the decision, price-check and reconcile cycles. All cycles
// run to completion on the loop goroutine, so no two cycles ever overlap and
// the ledger needs no locking.
type Scheduler struct {
	gateway    broker.Gateway
	cache      *snapshot.Cache
	engine     *engine.Engine
	executor   *executor.Executor
	reconciler *reconciler.Reconciler
	repo       *storage.Repository
	notifier   *telegram.Notifier
	config     *config.Config
	logger     *logger.Logger
	loc        *time.Location

	lastDailyCheck string // YYYY-MM-DD of the last completed daily cycle
}

func New(
	gateway broker.Gateway,
	cache *snapshot.Cache,
	eng *engine.Engine,
	exec *executor.Executor,
	rec *reconciler.Reconciler,
	repo *storage.Repository,
	notifier *telegram.Notifier,
	cfg *config.Config,
	log *logger.Logger,
) *Scheduler {
	return &Scheduler{
		gateway:    gateway,
		cache:      cache,
		engine:     eng,
		executor:   exec,
		reconciler: rec,
		repo:       repo,
		notifier:   notifier,
		config:     cfg,
		logger:     log,
		loc:        cfg.Location(),
	}
}

// Run blocks until ctx is cancelled. On start it reconciles once and runs
// the daily cycle immediately (the cycle itself skips if it already ran
// today), then serves the timers.
func (s *Scheduler) Run(ctx context.Context) {
	s.runCycle(ctx, "reconcile", s.reconcileCycle)
	s.runCycle(ctx, "daily", s.dailyCycle)

	priceTicker := time.NewTicker(s.config.PriceCheckInterval())
	defer priceTicker.Stop()
	reconcileTicker := time.NewTicker(s.config.ReconcileInterval())
	defer reconcileTicker.Stop()

	dailyTimer := time.NewTimer(s.untilNext(s.config.DailyCheckClock()))
	defer dailyTimer.Stop()
	summaryTimer := time.NewTimer(s.untilNext(s.config.DailySummaryClock()))
	defer summaryTimer.Stop()

	s.logger.Info("scheduler started",
		"daily_check", s.config.Trading.DailyCheckTime,
		"daily_summary", s.config.Trading.DailySummaryTime,
		"price_interval", s.config.PriceCheckInterval().String(),
		"reconcile_interval", s.config.ReconcileInterval().String())

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		case <-dailyTimer.C:
			s.runCycle(ctx, "daily", s.dailyCycle)
			dailyTimer.Reset(s.untilNext(s.config.DailyCheckClock()))
		case <-summaryTimer.C:
			s.runCycle(ctx, "summary", s.summaryCycle)
			summaryTimer.Reset(s.untilNext(s.config.DailySummaryClock()))
		case <-priceTicker.C:
			s.runCycle(ctx, "price", s.priceCycle)
		case <-reconcileTicker.C:
			s.runCycle(ctx, "reconcile", s.reconcileCycle)
		}
	}
}

// runCycle is the single boundary where collaborator failures become a log
// entry plus an alert instead of propagating.
func (s *Scheduler) runCycle(ctx context.Context, name string, fn func(ctx context.Context) error) {
	if ctx.Err() != nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic in cycle", "cycle", name, "panic", fmt.Sprint(r))
			s.notifier.NotifyAlert(name+" cycle panic", fmt.Errorf("%v", r))
		}
	}()

	if err := fn(ctx); err != nil {
		s.logger.Error("cycle failed", "cycle", name, "error", err)
		s.notifier.NotifyAlert(name+" cycle", err)
	}
}

// dailyCycle reconciles, refreshes the score snapshot and runs the full
// decision pass. When the provider refresh fails the retained snapshot still
// drives exits but no buys are considered until a fresh refresh succeeds.
func (s *Scheduler) dailyCycle(ctx context.Context) error {
	today := time.Now().In(s.loc).Format("2006-01-02")
	if today == s.lastDailyCheck {
		s.logger.Info("daily check already ran today, skipping")
		return nil
	}

	s.logger.Info("starting daily decision cycle", "date", today)

	if _, err := s.reconciler.Sync(ctx); err != nil {
		// Ledger from the prior run stays authoritative; storage failures
		// abort the cycle, brokerage failures only skip the sync.
		if errors.Is(err, domain.ErrStorage) {
			return err
		}
		s.logger.Error("reconciliation skipped", "error", err)
		s.notifier.NotifyAlert("reconcile", err)
	}

	snap, refreshErr := s.cache.Refresh(ctx, s.config.Trading.Watchlist, today)
	if refreshErr != nil {
		s.logger.Error("snapshot refresh failed, no buy candidates this cycle", "error", refreshErr)
		s.notifier.NotifyAlert("score refresh", refreshErr)
	}

	positions, err := s.repo.ListPositions()
	if err != nil {
		return err
	}

	prices := s.fetchPrices(ctx, positions)

	var intents []engine.Intent
	if refreshErr != nil {
		// The retained snapshot still drives score-drop exits, but a stale
		// view never opens new positions.
		intents = s.engine.DecideExits(s.cache.Current(), positions, prices)
	} else {
		intents = s.engine.Decide(snap, positions, prices)
	}

	s.logger.Info("decision pass completed", "intents", len(intents))

	// Announce the signals before any order goes out.
	for _, intent := range intents {
		s.notifier.NotifySignal(intent.Symbol, intent.Action, intent.Reason, intent.Score, intent.Price)
	}
	s.executor.Execute(ctx, intents)

	s.lastDailyCheck = today
	return nil
}

// priceCycle evaluates stop-loss and take-profit exits for current holdings.
// Work is bounded to open positions; score checks belong to the daily cycle.
func (s *Scheduler) priceCycle(ctx context.Context) error {
	positions, err := s.repo.ListPositions()
	if err != nil {
		return err
	}
	if len(positions) == 0 {
		return nil
	}

	prices := s.fetchPrices(ctx, positions)
	intents := s.engine.DecideExits(nil, positions, prices)
	if len(intents) == 0 {
		return nil
	}

	s.logger.Info("price check produced exits", "intents", len(intents))
	s.executor.Execute(ctx, intents)
	return nil
}

func (s *Scheduler) reconcileCycle(ctx context.Context) error {
	_, err := s.reconciler.Sync(ctx)
	return err
}

// summaryCycle pushes the daily portfolio digest.
func (s *Scheduler) summaryCycle(ctx context.Context) error {
	positions, err := s.repo.ListPositions()
	if err != nil {
		return err
	}

	prices := s.fetchPrices(ctx, positions)
	count, totalValue, totalPnL := summarize(positions, prices)

	s.notifier.NotifyDailySummary(count, totalValue, totalPnL)
	s.logger.Info("daily summary sent",
		"positions", count, "total_value", totalValue, "pnl", totalPnL)
	return nil
}

// summarize values each position at its live price, falling back to average
// cost for symbols without a quote this cycle.
func summarize(positions []storage.Position, prices map[string]float64) (count int, totalValue, totalPnL float64) {
	for _, pos := range positions {
		price, ok := prices[pos.Symbol]
		if !ok {
			price = pos.AvgCost
		}
		value := engine.TradeAmount(pos.Quantity, price)
		totalValue += value
		totalPnL += value - engine.TradeAmount(pos.Quantity, pos.AvgCost)
	}
	return len(positions), totalValue, totalPnL
}

// fetchPrices collects live prices for the open positions. Symbols without a
// quote are skipped for this cycle, not treated as a failure.
func (s *Scheduler) fetchPrices(ctx context.Context, positions []storage.Position) map[string]float64 {
	prices := make(map[string]float64, len(positions))
	for _, pos := range positions {
		price, err := s.gateway.LivePrice(ctx, pos.Symbol)
		if err != nil {
			s.logger.Warn("no live price, skipping price checks", "symbol", pos.Symbol, "error", err)
			continue
		}
		prices[pos.Symbol] = price
	}
	return prices
}

// untilNext computes the wait until the next occurrence of the given clock
// time in the scheduling timezone.
func (s *Scheduler) untilNext(hour, minute int) time.Duration {
	now := time.Now().In(s.loc)
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, s.loc)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next.Sub(now)
}
