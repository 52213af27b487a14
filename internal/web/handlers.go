package web

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/quantbyte/scoretrader/internal/storage"
)

type positionView struct {
	Symbol        string    `json:"symbol"`
	Quantity      int64     `json:"quantity"`
	AvgCost       float64   `json:"avg_cost"`
	EntryTime     time.Time `json:"entry_time"`
	EntryScore    *int      `json:"entry_score"`
	TargetPrice   float64   `json:"target_price"`
	StopLossPrice float64   `json:"stop_loss_price"`
	CurrentPrice  float64   `json:"current_price,omitempty"`
	PnL           float64   `json:"pnl,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	mode := "LIVE"
	if s.config.IsSimulation() {
		mode = "SIMULATION"
	}
	writeJSON(w, map[string]string{"status": "ok", "mode": mode})
}

func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	positions, err := s.repo.ListPositions()
	if err != nil {
		s.logger.Error("list positions for status", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	views := make([]positionView, 0, len(positions))
	for _, pos := range positions {
		v := positionView{
			Symbol:        pos.Symbol,
			Quantity:      pos.Quantity,
			AvgCost:       pos.AvgCost,
			EntryTime:     pos.EntryTime,
			EntryScore:    pos.EntryScore,
			TargetPrice:   pos.TargetPrice,
			StopLossPrice: pos.StopLossPrice,
		}
		if price, err := s.gateway.LivePrice(r.Context(), pos.Symbol); err == nil {
			v.CurrentPrice = price
			v.PnL = (price - pos.AvgCost) * float64(pos.Quantity)
		}
		views = append(views, v)
	}

	writeJSON(w, views)
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	trades, err := s.repo.RecentTrades(limit)
	if err != nil {
		s.logger.Error("recent trades for status", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if trades == nil {
		trades = []storage.Trade{}
	}

	writeJSON(w, trades)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
