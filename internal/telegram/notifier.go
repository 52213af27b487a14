package telegram

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"github.com/quantbyte/scoretrader/internal/config"
	"github.com/quantbyte/scoretrader/internal/domain"
	"github.com/quantbyte/scoretrader/internal/logger"
)

// sendWait bounds how long a cycle may block on the notifier's rate limit.
const sendWait = 10 * time.Second

type Notifier struct {
	bot     *tgbotapi.BotAPI
	chatID  int64
	enabled bool
	limiter *rate.Limiter
	logger  *logger.Logger
}

func NewNotifier(cfg *config.Config, log *logger.Logger) *Notifier {
	limiter := rate.NewLimiter(rate.Every(cfg.TelegramMinInterval()), 1)

	if !cfg.Telegram.Enabled {
		return &Notifier{enabled: false, limiter: limiter, logger: log}
	}

	bot, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		log.Error("failed to create telegram bot", "error", err)
		return &Notifier{enabled: false, limiter: limiter, logger: log}
	}

	log.Info("telegram bot connected", "username", bot.Self.UserName)

	return &Notifier{
		bot:     bot,
		chatID:  cfg.Telegram.ChatID,
		enabled: true,
		limiter: limiter,
		logger:  log,
	}
}

// NotifySignal announces an intent the decision pass produced, before any
// order is placed. Fills and failures get their own messages afterwards.
func (n *Notifier) NotifySignal(symbol string, action domain.Action, reason domain.Reason, score *int, price float64) {
	n.send(signalText(symbol, action, reason, score, price))
}

func signalText(symbol string, action domain.Action, reason domain.Reason, score *int, price float64) string {
	msg := fmt.Sprintf("📊 *Signal* %s %s\nReason: %s", action, symbol, reason)
	if score != nil {
		msg += fmt.Sprintf("\nAI Score: %d/10", *score)
	}
	if price > 0 {
		msg += fmt.Sprintf("\nPrice: $%.2f", price)
	}
	return msg
}

// NotifyDailySummary pushes the portfolio digest: open position count, total
// market value and unrealized P&L.
func (n *Notifier) NotifyDailySummary(positions int, totalValue, totalPnL float64) {
	n.send(dailySummaryText(positions, totalValue, totalPnL))
}

func dailySummaryText(positions int, totalValue, totalPnL float64) string {
	emoji := "📉"
	sign := ""
	if totalPnL >= 0 {
		emoji = "📈"
		sign = "+"
	}
	return fmt.Sprintf("%s *Daily summary*\nPositions: %d\nTotal value: $%.2f\nUnrealized P&L: %s$%.2f",
		emoji, positions, totalValue, sign, totalPnL)
}

func (n *Notifier) NotifyTrade(symbol string, action domain.Action, quantity int64, price, total float64, score *int, reason domain.Reason) {
	emoji := "🟢"
	switch reason {
	case domain.ReasonStopLoss:
		emoji = "🛑"
	case domain.ReasonTakeProfit:
		emoji = "💰"
	case domain.ReasonScoreDrop:
		emoji = "🔴"
	}

	msg := fmt.Sprintf("%s *%s* %s\nQty: %d\nPrice: $%.2f\nTotal: $%.2f",
		emoji, action, symbol, quantity, price, total)
	if score != nil {
		msg += fmt.Sprintf("\nAI Score: %d/10", *score)
	}
	msg += fmt.Sprintf("\nReason: %s", reason)
	n.send(msg)
}

func (n *Notifier) NotifySellPnL(symbol string, quantity int64, price, avgCost, pnl float64) {
	emoji := "📉"
	sign := ""
	if pnl >= 0 {
		emoji = "📈"
		sign = "+"
	}
	pct := 0.0
	if avgCost > 0 {
		pct = (price - avgCost) / avgCost * 100
	}
	msg := fmt.Sprintf("%s *P&L* %s\nQty: %d\nAvg Cost: $%.2f\nSold: $%.2f\nP&L: %s$%.2f (%s%.1f%%)",
		emoji, symbol, quantity, avgCost, price, sign, pnl, sign, pct)
	n.send(msg)
}

func (n *Notifier) NotifyOrderFailed(symbol string, action domain.Action, status domain.OrderState, detail string) {
	msg := fmt.Sprintf("⚠️ *%s %s %s*\n%s", action, symbol, status, detail)
	n.send(msg)
}

func (n *Notifier) NotifyReconcile(added, removed, updated int) {
	msg := fmt.Sprintf("🔄 *Position sync*\nAdded: %d\nRemoved: %d\nUpdated: %d",
		added, removed, updated)
	n.send(msg)
}

// NotifyAlert reports provider, storage and cycle-level failures. Alerts are
// visually distinct from trade notifications.
func (n *Notifier) NotifyAlert(scope string, err error) {
	msg := fmt.Sprintf("🚨 *Alert* [%s]\n%v", scope, err)
	n.send(msg)
}

func (n *Notifier) NotifyStartup(simulation bool) {
	mode := "LIVE"
	emoji := "🚀"
	if simulation {
		mode = "SIMULATION"
		emoji = "🧪"
	}
	n.send(fmt.Sprintf("%s *Score trader started* (%s)", emoji, mode))
}

func (n *Notifier) NotifyShutdown() {
	n.send("🛑 *Score trader stopped*")
}

func (n *Notifier) send(text string) {
	if !n.enabled {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), sendWait)
	defer cancel()
	if err := n.limiter.Wait(ctx); err != nil {
		n.logger.Warn("telegram rate limit wait expired, dropping message")
		return
	}

	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown

	if _, err := n.bot.Send(msg); err != nil {
		n.logger.Error("send telegram message", "error",
			fmt.Errorf("%w: %w", domain.ErrNotification, err))
	}
}
