package danelfin

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-resty/resty/v2"

	"github.com/quantbyte/scoretrader/internal/config"
	"github.com/quantbyte/scoretrader/internal/domain"
	"github.com/quantbyte/scoretrader/internal/logger"
	"github.com/quantbyte/scoretrader/internal/retry"
)

// Score is the daily Danelfin ranking for one symbol.
type Score struct {
	Symbol      string
	AIScore     int
	Fundamental int
	Technical   int
	Sentiment   int
	TargetPrice *float64
	Date        string // YYYY-MM-DD
}

type Client struct {
	client *resty.Client
	policy retry.Policy
	logger *logger.Logger
}

func NewClient(cfg *config.Config, log *logger.Logger) *Client {
	client := resty.New()
	client.SetBaseURL(cfg.Danelfin.BaseURL)
	client.SetTimeout(cfg.DanelfinTimeout())
	client.SetHeader("x-api-key", cfg.Danelfin.APIKey)

	return &Client{
		client: client,
		policy: retry.DefaultPolicy(),
		logger: log,
	}
}

type rankingResponse struct {
	AIScore     int      `json:"aiscore"`
	Fundamental int      `json:"fundamental"`
	Technical   int      `json:"technical"`
	Sentiment   int      `json:"sentiment"`
	TargetPrice *float64 `json:"target_price"`
}

// GetScore fetches the ranking for one symbol on the given date.
func (c *Client) GetScore(ctx context.Context, symbol, date string) (*Score, error) {
	var body rankingResponse

	err := retry.Do(ctx, c.policy, func() error {
		resp, err := c.client.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"ticker": symbol,
				"date":   date,
			}).
			Get("")
		if err != nil {
			return fmt.Errorf("fetch ranking for %s: %w", symbol, err)
		}
		if resp.StatusCode() != 200 {
			return fmt.Errorf("ranking for %s: status %d: %s", symbol, resp.StatusCode(), resp.String())
		}
		if err := json.Unmarshal(resp.Body(), &body); err != nil {
			return fmt.Errorf("parse ranking for %s: %w", symbol, err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrProvider, err)
	}

	return &Score{
		Symbol:      symbol,
		AIScore:     body.AIScore,
		Fundamental: body.Fundamental,
		Technical:   body.Technical,
		Sentiment:   body.Sentiment,
		TargetPrice: body.TargetPrice,
		Date:        date,
	}, nil
}

// GetScores fetches rankings for the whole watchlist. Symbols that fail are
// logged and omitted; the call fails only when no symbol could be fetched.
func (c *Client) GetScores(ctx context.Context, symbols []string, date string) (map[string]Score, error) {
	results := make(map[string]Score, len(symbols))
	var lastErr error

	for _, symbol := range symbols {
		score, err := c.GetScore(ctx, symbol, date)
		if err != nil {
			c.logger.Warn("score fetch failed", "symbol", symbol, "error", err)
			lastErr = err
			continue
		}
		results[symbol] = *score
	}

	if len(results) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return results, nil
}
