package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Danelfin DanelfinConfig `yaml:"danelfin"`
	Futu     FutuConfig     `yaml:"futu"`
	Trading  TradingConfig  `yaml:"trading"`
	Telegram TelegramConfig `yaml:"telegram"`
	Web      WebConfig      `yaml:"web"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type DanelfinConfig struct {
	APIKey         string `yaml:"api_key"`
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type FutuConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	Simulation     bool   `yaml:"simulation"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type TradingConfig struct {
	Watchlist          []string `yaml:"watchlist"`
	MaxPositions       int      `yaml:"max_positions"`
	TakeProfitPct      float64  `yaml:"take_profit_pct"`
	StopLossPct        float64  `yaml:"stop_loss_pct"`
	BuyScoreThreshold  int      `yaml:"buy_score_threshold"`
	SellScoreThreshold int      `yaml:"sell_score_threshold"`
	DefaultQuantity    int64    `yaml:"default_quantity"`
	DailyCheckTime     string   `yaml:"daily_check_time"`
	DailySummaryTime   string   `yaml:"daily_summary_time"`
	PriceCheckInterval string   `yaml:"price_check_interval"`
	ReconcileInterval  string   `yaml:"reconcile_interval"`
	OrderPollAttempts  int      `yaml:"order_poll_attempts"`
	OrderPollDelay     string   `yaml:"order_poll_delay"`
}

type TelegramConfig struct {
	Enabled     bool   `yaml:"enabled"`
	BotToken    string `yaml:"bot_token"`
	ChatID      int64  `yaml:"chat_id"`
	MinInterval string `yaml:"min_interval"`
}

type WebConfig struct {
	Port int `yaml:"port"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

func Load(path string) (*Config, error) {
	// Secrets may come from .env instead of the yaml file.
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnv(cfg)
	setDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("DANELFIN_API_KEY"); v != "" {
		cfg.Danelfin.APIKey = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
}

func setDefaults(cfg *Config) {
	if cfg.Danelfin.BaseURL == "" {
		cfg.Danelfin.BaseURL = "https://apirest.danelfin.com/ranking"
	}
	if cfg.Danelfin.TimeoutSeconds == 0 {
		cfg.Danelfin.TimeoutSeconds = 10
	}
	if cfg.Futu.Host == "" {
		cfg.Futu.Host = "127.0.0.1"
	}
	if cfg.Futu.Port == 0 {
		cfg.Futu.Port = 11111
	}
	if cfg.Futu.TimeoutSeconds == 0 {
		cfg.Futu.TimeoutSeconds = 15
	}
	if len(cfg.Trading.Watchlist) == 0 {
		cfg.Trading.Watchlist = []string{"BAC", "FHN", "OZK", "NBTB", "SSB"}
	}
	if cfg.Trading.MaxPositions == 0 {
		cfg.Trading.MaxPositions = 8
	}
	if cfg.Trading.TakeProfitPct == 0 {
		cfg.Trading.TakeProfitPct = 0.15
	}
	if cfg.Trading.StopLossPct == 0 {
		cfg.Trading.StopLossPct = 0.08
	}
	if cfg.Trading.BuyScoreThreshold == 0 {
		cfg.Trading.BuyScoreThreshold = 10
	}
	if cfg.Trading.SellScoreThreshold == 0 {
		cfg.Trading.SellScoreThreshold = 7
	}
	if cfg.Trading.DefaultQuantity == 0 {
		cfg.Trading.DefaultQuantity = 100
	}
	if cfg.Trading.DailyCheckTime == "" {
		cfg.Trading.DailyCheckTime = "21:00"
	}
	if cfg.Trading.DailySummaryTime == "" {
		cfg.Trading.DailySummaryTime = "05:00"
	}
	if cfg.Trading.PriceCheckInterval == "" {
		cfg.Trading.PriceCheckInterval = "1m"
	}
	if cfg.Trading.ReconcileInterval == "" {
		cfg.Trading.ReconcileInterval = "1h"
	}
	if cfg.Trading.OrderPollAttempts == 0 {
		cfg.Trading.OrderPollAttempts = 10
	}
	if cfg.Trading.OrderPollDelay == "" {
		cfg.Trading.OrderPollDelay = "2s"
	}
	if cfg.Telegram.MinInterval == "" {
		cfg.Telegram.MinInterval = "1s"
	}
	if cfg.Web.Port == 0 {
		cfg.Web.Port = 8080
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

func (c *Config) Validate() error {
	if c.Danelfin.APIKey == "" {
		return fmt.Errorf("danelfin.api_key is required")
	}
	if c.Trading.BuyScoreThreshold < 1 || c.Trading.BuyScoreThreshold > 10 {
		return fmt.Errorf("trading.buy_score_threshold must be in 1..10")
	}
	if c.Trading.SellScoreThreshold < 1 || c.Trading.SellScoreThreshold > 10 {
		return fmt.Errorf("trading.sell_score_threshold must be in 1..10")
	}
	if c.Trading.StopLossPct <= 0 || c.Trading.StopLossPct >= 1 {
		return fmt.Errorf("trading.stop_loss_pct must be in (0, 1)")
	}
	if c.Trading.TakeProfitPct <= 0 {
		return fmt.Errorf("trading.take_profit_pct must be positive")
	}
	if c.Trading.StopLossPct >= c.Trading.TakeProfitPct {
		return fmt.Errorf("trading.stop_loss_pct must be below trading.take_profit_pct")
	}
	if _, err := time.ParseDuration(c.Trading.PriceCheckInterval); err != nil {
		return fmt.Errorf("invalid trading.price_check_interval %q: %w", c.Trading.PriceCheckInterval, err)
	}
	if _, err := time.ParseDuration(c.Trading.ReconcileInterval); err != nil {
		return fmt.Errorf("invalid trading.reconcile_interval %q: %w", c.Trading.ReconcileInterval, err)
	}
	if _, err := parseClock(c.Trading.DailyCheckTime); err != nil {
		return fmt.Errorf("invalid trading.daily_check_time %q: %w", c.Trading.DailyCheckTime, err)
	}
	if _, err := parseClock(c.Trading.DailySummaryTime); err != nil {
		return fmt.Errorf("invalid trading.daily_summary_time %q: %w", c.Trading.DailySummaryTime, err)
	}
	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == 0 {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}
	return nil
}

func (c *Config) IsSimulation() bool {
	return c.Futu.Simulation
}

// Location returns the scheduling timezone. The daily score check fires on
// Hong Kong time, before the US market opens.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation("Asia/Hong_Kong")
	if err != nil {
		loc = time.FixedZone("HKT", 8*60*60)
	}
	return loc
}

func (c *Config) PriceCheckInterval() time.Duration {
	d, _ := time.ParseDuration(c.Trading.PriceCheckInterval)
	return d
}

func (c *Config) ReconcileInterval() time.Duration {
	d, _ := time.ParseDuration(c.Trading.ReconcileInterval)
	return d
}

func (c *Config) OrderPollDelay() time.Duration {
	d, _ := time.ParseDuration(c.Trading.OrderPollDelay)
	return d
}

func (c *Config) DanelfinTimeout() time.Duration {
	return time.Duration(c.Danelfin.TimeoutSeconds) * time.Second
}

func (c *Config) FutuTimeout() time.Duration {
	return time.Duration(c.Futu.TimeoutSeconds) * time.Second
}

func (c *Config) TelegramMinInterval() time.Duration {
	d, _ := time.ParseDuration(c.Telegram.MinInterval)
	return d
}

// DailyCheckClock returns the configured daily trigger as hour and minute.
func (c *Config) DailyCheckClock() (hour, minute int) {
	hm, _ := parseClock(c.Trading.DailyCheckTime)
	return hm[0], hm[1]
}

// DailySummaryClock returns the configured portfolio summary trigger as hour
// and minute.
func (c *Config) DailySummaryClock() (hour, minute int) {
	hm, _ := parseClock(c.Trading.DailySummaryTime)
	return hm[0], hm[1]
}

func parseClock(s string) ([2]int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return [2]int{}, err
	}
	return [2]int{t.Hour(), t.Minute()}, nil
}
