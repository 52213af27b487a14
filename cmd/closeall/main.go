package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/quantbyte/scoretrader/internal/broker"
	"github.com/quantbyte/scoretrader/internal/config"
	"github.com/quantbyte/scoretrader/internal/domain"
	"github.com/quantbyte/scoretrader/internal/logger"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	dryRun := flag.Bool("dry-run", false, "show holdings without selling")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level)
	gateway := broker.NewClient(cfg, log)

	ctx := context.Background()

	holdings, err := gateway.ListHoldings(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "list holdings error: %v\n", err)
		os.Exit(1)
	}

	if len(holdings) == 0 {
		fmt.Println("No open positions.")
		return
	}

	fmt.Printf("Found %d position(s) [%s]:\n\n", len(holdings), gateway.TradeEnv())
	for _, h := range holdings {
		fmt.Printf("  %s: %d shares, avg cost $%.2f\n", h.Symbol, h.Quantity, h.AvgCost)
	}
	fmt.Println()

	if *dryRun {
		fmt.Println("Dry run, no orders placed.")
		return
	}

	var closed, failed int
	for _, h := range holdings {
		orderID, err := gateway.PlaceOrder(ctx, h.Symbol, domain.ActionSell, h.Quantity)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  [FAIL] %s: %v\n", h.Symbol, err)
			failed++
			continue
		}

		state := waitForFill(ctx, gateway, orderID)
		if state == domain.OrderFilled {
			fmt.Printf("  [OK]   %s: sold %d shares (order %s)\n", h.Symbol, h.Quantity, orderID)
			closed++
		} else {
			fmt.Fprintf(os.Stderr, "  [FAIL] %s: order %s ended %s\n", h.Symbol, orderID, state)
			failed++
		}
	}

	fmt.Printf("\nDone: %d closed, %d failed.\n", closed, failed)
	if failed > 0 {
		os.Exit(1)
	}
}

func waitForFill(ctx context.Context, gateway broker.Gateway, orderID string) domain.OrderState {
	for attempt := 0; attempt < 10; attempt++ {
		update, err := gateway.PollOrder(ctx, orderID)
		if err != nil {
			return domain.OrderFailed
		}
		if update.State.Terminal() {
			return update.State
		}
		time.Sleep(2 * time.Second)
	}
	return domain.OrderTimedOut
}
