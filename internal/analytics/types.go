// Package analytics keeps the trade journal and derives performance figures
// from it.
package analytics

import "time"

// Side is the trade direction.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Status tells whether a trade is still running.
type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

// Trade is one journal entry. Close fields are nil while the trade is open.
type Trade struct {
	ID         string     `json:"id"`
	Symbol     string     `json:"symbol"`
	Side       Side       `json:"type"`
	OpenTime   time.Time  `json:"open_time"`
	CloseTime  *time.Time `json:"close_time,omitempty"`
	OpenPrice  float64    `json:"open_price"`
	ClosePrice *float64   `json:"close_price,omitempty"`
	Lots       float64    `json:"lots"`
	Profit     *float64   `json:"profit,omitempty"`
	Status     Status     `json:"status"`
	Strategy   string     `json:"strategy"`
}

// IsClosed returns true if the trade has an exit
func (t Trade) IsClosed() bool {
	return t.Status == StatusClosed && t.Profit != nil && t.CloseTime != nil
}

// IsWin returns true if the trade closed in profit
func (t Trade) IsWin() bool {
	return t.IsClosed() && *t.Profit > 0
}

// Duration is how long a closed trade was held.
func (t Trade) Duration() time.Duration {
	if t.CloseTime == nil {
		return 0
	}
	return t.CloseTime.Sub(t.OpenTime)
}

// PerformanceMetrics summarises a set of trades.
type PerformanceMetrics struct {
	TotalTrades       int                `json:"total_trades"`
	WinningTrades     int                `json:"winning_trades"`
	LosingTrades      int                `json:"losing_trades"`
	WinRate           float64            `json:"win_rate"`      // percent of closed trades
	AverageProfit     float64            `json:"average_profit"`
	AverageLoss       float64            `json:"average_loss"`  // negative
	ProfitFactor      float64            `json:"profit_factor"` // 0 when there are no losses
	TotalProfit       float64            `json:"total_profit"`
	SharpeRatio       float64            `json:"sharpe_ratio"`
	MaxDrawdown       float64            `json:"max_drawdown"`
	AvgTradeDuration  string             `json:"avg_trade_duration"`
	TradesPerPair     map[string]int     `json:"trades_per_pair"`
	ProfitPerPair     map[string]float64 `json:"profit_per_pair"`
	ProfitPerStrategy map[string]float64 `json:"profit_per_strategy"`
}
