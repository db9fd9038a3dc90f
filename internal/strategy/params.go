// Package strategy holds pair-trading strategy parameters and their store.
package strategy

import (
	"fmt"
	"strings"
	"time"

	"github.com/newthinker/pairdash/internal/core"
)

// Timeframes lists the chart periods a strategy may run on.
var Timeframes = []string{"M1", "M5", "M15", "M30", "H1", "H4", "D1", "W1", "MN"}

// CurrencyPairs lists the symbols offered when building a strategy.
var CurrencyPairs = []string{
	"EURUSD", "GBPUSD", "USDJPY", "AUDUSD", "USDCAD", "USDCHF", "NZDUSD",
	"EURJPY", "GBPJPY", "EURGBP", "AUDCAD", "AUDCHF", "AUDJPY", "AUDNZD",
	"CADJPY", "CHFJPY", "EURAUD", "EURCAD", "EURCHF", "EURNZD", "GBPAUD",
	"GBPCAD", "GBPCHF", "GBPNZD", "NZDCAD", "NZDCHF", "NZDJPY",
}

// Parameters configure an RSI/correlation pair strategy.
type Parameters struct {
	CurrencyPair1     string  `json:"currency_pair1"`
	CurrencyPair2     string  `json:"currency_pair2"`
	RSIPeriod         int     `json:"rsi_period"`
	CorrelationWindow int     `json:"correlation_window"`
	RSIOverbought     float64 `json:"rsi_overbought"`
	RSIOversold       float64 `json:"rsi_oversold"`
	EntryThreshold    float64 `json:"entry_threshold"`
	ExitThreshold     float64 `json:"exit_threshold"`
	Timeframe         string  `json:"timeframe"`
	LotSize1          float64 `json:"lot_size1"`
	LotSize2          float64 `json:"lot_size2"`
	MagicNumber       int64   `json:"magic_number"`
	Comment           string  `json:"comment"`
}

// DefaultParameters returns the EURUSD/GBPUSD starter strategy.
func DefaultParameters() Parameters {
	return Parameters{
		CurrencyPair1:     "EURUSD",
		CurrencyPair2:     "GBPUSD",
		RSIPeriod:         14,
		CorrelationWindow: 20,
		RSIOverbought:     70,
		RSIOversold:       30,
		EntryThreshold:    0.8,
		ExitThreshold:     0.5,
		Timeframe:         "H1",
		LotSize1:          0.1,
		LotSize2:          0.1,
		MagicNumber:       12345,
		Comment:           "Correlation Strategy",
	}
}

// Validate checks every field against the ranges the strategy form accepts.
func (p Parameters) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if strings.TrimSpace(p.CurrencyPair1) == "" || strings.TrimSpace(p.CurrencyPair2) == "" {
		add("both currency pairs are required")
	} else if strings.EqualFold(p.CurrencyPair1, p.CurrencyPair2) {
		add("currency pairs must differ")
	}
	if p.RSIPeriod < 3 || p.RSIPeriod > 50 {
		add("rsi_period must be within [3,50], got %d", p.RSIPeriod)
	}
	if p.CorrelationWindow < 5 || p.CorrelationWindow > 100 {
		add("correlation_window must be within [5,100], got %d", p.CorrelationWindow)
	}
	if p.RSIOverbought < 50 || p.RSIOverbought > 95 {
		add("rsi_overbought must be within [50,95], got %g", p.RSIOverbought)
	}
	if p.RSIOversold < 5 || p.RSIOversold > 50 {
		add("rsi_oversold must be within [5,50], got %g", p.RSIOversold)
	}
	if p.RSIOversold >= p.RSIOverbought {
		add("rsi_oversold must be below rsi_overbought")
	}
	if p.EntryThreshold < 0 || p.EntryThreshold > 1 {
		add("entry_threshold must be within [0,1], got %g", p.EntryThreshold)
	}
	if p.ExitThreshold < 0 || p.ExitThreshold > 1 {
		add("exit_threshold must be within [0,1], got %g", p.ExitThreshold)
	}
	if !validTimeframe(p.Timeframe) {
		add("unknown timeframe %q", p.Timeframe)
	}
	if p.LotSize1 < 0.01 || p.LotSize1 > 10 {
		add("lot_size1 must be within [0.01,10], got %g", p.LotSize1)
	}
	if p.LotSize2 < 0.01 || p.LotSize2 > 10 {
		add("lot_size2 must be within [0.01,10], got %g", p.LotSize2)
	}
	if p.MagicNumber <= 0 {
		add("magic_number must be positive")
	}

	if len(problems) > 0 {
		return core.WithMessage(core.ErrParamsInvalid, strings.Join(problems, "; "))
	}
	return nil
}

func validTimeframe(tf string) bool {
	for _, t := range Timeframes {
		if t == tf {
			return true
		}
	}
	return false
}

// Strategy is a named, persisted parameter set.
type Strategy struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Parameters Parameters `json:"parameters"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}
