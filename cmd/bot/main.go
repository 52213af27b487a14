package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/quantbyte/scoretrader/internal/broker"
	"github.com/quantbyte/scoretrader/internal/config"
	"github.com/quantbyte/scoretrader/internal/danelfin"
	"github.com/quantbyte/scoretrader/internal/engine"
	"github.com/quantbyte/scoretrader/internal/executor"
	"github.com/quantbyte/scoretrader/internal/logger"
	"github.com/quantbyte/scoretrader/internal/reconciler"
	"github.com/quantbyte/scoretrader/internal/scheduler"
	"github.com/quantbyte/scoretrader/internal/snapshot"
	"github.com/quantbyte/scoretrader/internal/storage"
	"github.com/quantbyte/scoretrader/internal/telegram"
	"github.com/quantbyte/scoretrader/internal/web"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	dbPath := flag.String("db", "data/scoretrader.db", "path to SQLite database")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level)

	mode := "LIVE"
	if cfg.IsSimulation() {
		mode = "SIMULATION"
	}
	log.Info("starting scoretrader", "mode", mode)

	db, err := storage.NewDatabase(*dbPath)
	if err != nil {
		log.Fatal("database init failed", "error", err)
	}
	repo := storage.NewRepository(db)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gateway := broker.NewClient(cfg, log)
	provider := danelfin.NewClient(cfg, log)
	notifier := telegram.NewNotifier(cfg, log)
	cache := snapshot.NewCache(provider, repo, log)
	eng := engine.New(cfg.Trading.MaxPositions, cfg.Trading.BuyScoreThreshold, cfg.Trading.SellScoreThreshold)
	exec := executor.New(gateway, repo, notifier, executor.Options{
		DefaultQuantity: cfg.Trading.DefaultQuantity,
		TakeProfitPct:   cfg.Trading.TakeProfitPct,
		StopLossPct:     cfg.Trading.StopLossPct,
		PollAttempts:    cfg.Trading.OrderPollAttempts,
		PollDelay:       cfg.OrderPollDelay(),
	}, log)
	rec := reconciler.New(gateway, repo, notifier, cfg.Trading.TakeProfitPct, cfg.Trading.StopLossPct, log)
	sched := scheduler.New(gateway, cache, eng, exec, rec, repo, notifier, cfg, log)
	webServer := web.NewServer(gateway, repo, cfg, log)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		sched.Run(ctx)
	}()

	go func() {
		if err := webServer.Start(); err != nil {
			log.Error("status server error", "error", err)
		}
	}()

	notifier.NotifyStartup(cfg.IsSimulation())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info("shutdown signal received", "signal", sig.String())

	// Let the running cycle finish at its next safe boundary.
	cancel()
	wg.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := webServer.Shutdown(shutdownCtx); err != nil {
		log.Error("status server shutdown error", "error", err)
	}

	notifier.NotifyShutdown()
	log.Info("scoretrader stopped")
}
