package snapshot

import (
	"context"
	"fmt"
	"sync"

	"github.com/quantbyte/scoretrader/internal/danelfin"
	"github.com/quantbyte/scoretrader/internal/logger"
	"github.com/quantbyte/scoretrader/internal/storage"
)

// Snapshot is the full score-per-symbol view for one date. It is immutable
// once published; a refresh replaces the whole value.
type Snapshot struct {
	AsOf   string // YYYY-MM-DD
	Scores map[string]danelfin.Score
}

// Score looks up a symbol in the snapshot.
func (s *Snapshot) Score(symbol string) (danelfin.Score, bool) {
	if s == nil {
		return danelfin.Score{}, false
	}
	sc, ok := s.Scores[symbol]
	return sc, ok
}

// Provider is the scoring collaborator.
type Provider interface {
	GetScores(ctx context.Context, symbols []string, date string) (map[string]danelfin.Score, error)
}

// HistoryStore persists the daily score rows.
type HistoryStore interface {
	SaveScore(rec *storage.ScoreHistory) error
}

// Cache holds the latest published snapshot.
type Cache struct {
	provider Provider
	history  HistoryStore
	logger   *logger.Logger

	mu      sync.RWMutex
	current *Snapshot
}

func NewCache(provider Provider, history HistoryStore, log *logger.Logger) *Cache {
	return &Cache{
		provider: provider,
		history:  history,
		logger:   log,
	}
}

// Current returns the latest snapshot, or nil before the first successful
// refresh. Callers must treat nil as "no buy candidates".
func (c *Cache) Current() *Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Refresh fetches scores for the watchlist and publishes a new snapshot.
// On provider failure the previous snapshot is kept and the error returned;
// the next daily trigger retries.
func (c *Cache) Refresh(ctx context.Context, symbols []string, asOf string) (*Snapshot, error) {
	scores, err := c.provider.GetScores(ctx, symbols, asOf)
	if err != nil {
		return nil, fmt.Errorf("refresh snapshot %s: %w", asOf, err)
	}

	for _, sc := range scores {
		rec := &storage.ScoreHistory{
			Date:        asOf,
			Symbol:      sc.Symbol,
			AIScore:     sc.AIScore,
			Fundamental: sc.Fundamental,
			Technical:   sc.Technical,
			Sentiment:   sc.Sentiment,
			TargetPrice: sc.TargetPrice,
		}
		if err := c.history.SaveScore(rec); err != nil {
			c.logger.Error("save score history", "symbol", sc.Symbol, "error", err)
		}
	}

	snap := &Snapshot{AsOf: asOf, Scores: scores}

	c.mu.Lock()
	// AsOf is monotonic, an out-of-order refresh never regresses the view.
	if c.current == nil || c.current.AsOf <= snap.AsOf {
		c.current = snap
	}
	c.mu.Unlock()

	c.logger.Info("snapshot refreshed", "as_of", asOf, "symbols", len(scores))
	return snap, nil
}
