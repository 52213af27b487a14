package telegram

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quantbyte/scoretrader/internal/config"
	"github.com/quantbyte/scoretrader/internal/domain"
	"github.com/quantbyte/scoretrader/internal/logger"
)

func TestSignalText(t *testing.T) {
	score := 9
	msg := signalText("BAC", domain.ActionBuy, domain.ReasonStrongBuy, &score, 40.17)

	require.Contains(t, msg, "*Signal* BUY BAC")
	require.Contains(t, msg, "Reason: STRONG_BUY")
	require.Contains(t, msg, "AI Score: 9/10")
	require.Contains(t, msg, "Price: $40.17")
}

func TestSignalTextWithoutScoreOrPrice(t *testing.T) {
	msg := signalText("XYZ", domain.ActionSell, domain.ReasonStopLoss, nil, 0)

	require.Contains(t, msg, "*Signal* SELL XYZ")
	require.Contains(t, msg, "Reason: STOP_LOSS")
	require.NotContains(t, msg, "AI Score")
	require.NotContains(t, msg, "Price:")
}

func TestDailySummaryText(t *testing.T) {
	msg := dailySummaryText(3, 12500.50, 320.25)

	require.Contains(t, msg, "Positions: 3")
	require.Contains(t, msg, "Total value: $12500.50")
	require.Contains(t, msg, "Unrealized P&L: +$320.25")

	msg = dailySummaryText(1, 900, -100)
	require.Contains(t, msg, "Unrealized P&L: $-100.00")
}

func TestDisabledNotifierIsNoOp(t *testing.T) {
	cfg := &config.Config{}
	cfg.Telegram.MinInterval = "1ms"

	n := NewNotifier(cfg, logger.New("error"))
	require.False(t, n.enabled)

	// Every method must be safe to call without a connected bot.
	score := 8
	n.NotifySignal("BAC", domain.ActionBuy, domain.ReasonStrongBuy, &score, 40)
	n.NotifyDailySummary(0, 0, 0)
	n.NotifyTrade("BAC", domain.ActionBuy, 100, 40, 4000, &score, domain.ReasonStrongBuy)
	n.NotifySellPnL("BAC", 100, 44, 40, 400)
	n.NotifyOrderFailed("BAC", domain.ActionBuy, domain.OrderTimedOut, "pending too long")
	n.NotifyReconcile(1, 0, 0)
	n.NotifyAlert("daily cycle", nil)
	n.NotifyStartup(true)
	n.NotifyShutdown()
}
