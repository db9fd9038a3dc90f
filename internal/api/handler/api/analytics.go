// internal/api/handler/api/analytics.go
package api

import (
	"encoding/json"
	"net/http"
	"sort"

	"github.com/newthinker/pairdash/internal/analytics"
	"github.com/newthinker/pairdash/internal/api/response"
	"github.com/newthinker/pairdash/internal/core"
)

// TradeJournal lists recorded trades.
type TradeJournal interface {
	List(f analytics.Filter) []analytics.Trade
	Add(t analytics.Trade) (analytics.Trade, error)
}

// AnalyticsHandler serves the trade journal and performance figures.
type AnalyticsHandler struct {
	journal TradeJournal
}

// NewAnalyticsHandler creates a new analytics handler.
func NewAnalyticsHandler(journal TradeJournal) *AnalyticsHandler {
	return &AnalyticsHandler{journal: journal}
}

// Trades lists trades filtered by ?symbol, ?status and ?strategy.
func (h *AnalyticsHandler) Trades(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	trades := h.journal.List(analytics.Filter{
		Symbol:   q.Get("symbol"),
		Status:   analytics.Status(q.Get("status")),
		Strategy: q.Get("strategy"),
	})
	response.JSON(w, http.StatusOK, map[string]any{
		"trades": trades,
		"count":  len(trades),
	})
}

// AddTrade records a trade.
func (h *AnalyticsHandler) AddTrade(w http.ResponseWriter, r *http.Request) {
	var t analytics.Trade
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		response.Fail(w, core.WrapError(core.ErrBadRequest, err))
		return
	}
	added, err := h.journal.Add(t)
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusCreated, added)
}

// Performance computes metrics over every trade, or one strategy's with ?strategy.
func (h *AnalyticsHandler) Performance(w http.ResponseWriter, r *http.Request) {
	trades := h.journal.List(analytics.Filter{Strategy: r.URL.Query().Get("strategy")})
	response.JSON(w, http.StatusOK, analytics.Compute(trades))
}

// StrategyPerformance is the metrics of one strategy.
type StrategyPerformance struct {
	Strategy string                       `json:"strategy"`
	Metrics  analytics.PerformanceMetrics `json:"metrics"`
}

// Strategies computes metrics per strategy, sorted by name.
func (h *AnalyticsHandler) Strategies(w http.ResponseWriter, r *http.Request) {
	grouped := make(map[string][]analytics.Trade)
	for _, t := range h.journal.List(analytics.Filter{}) {
		grouped[t.Strategy] = append(grouped[t.Strategy], t)
	}

	names := make([]string, 0, len(grouped))
	for name := range grouped {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]StrategyPerformance, 0, len(names))
	for _, name := range names {
		out = append(out, StrategyPerformance{Strategy: name, Metrics: analytics.Compute(grouped[name])})
	}
	response.JSON(w, http.StatusOK, out)
}
