package analytics

import (
	"math"
	"sort"
	"time"
)

// Compute derives performance metrics from trades. Open trades only count
// towards TotalTrades and TradesPerPair.
func Compute(trades []Trade) PerformanceMetrics {
	m := PerformanceMetrics{
		TotalTrades:       len(trades),
		TradesPerPair:     map[string]int{},
		ProfitPerPair:     map[string]float64{},
		ProfitPerStrategy: map[string]float64{},
	}
	if len(trades) == 0 {
		return m
	}

	var closed []Trade
	for _, t := range trades {
		m.TradesPerPair[t.Symbol]++
		if t.IsClosed() {
			closed = append(closed, t)
		}
	}

	var grossProfit, grossLoss float64
	var held time.Duration
	profits := make([]float64, 0, len(closed))

	for _, t := range closed {
		p := *t.Profit
		profits = append(profits, p)
		m.TotalProfit += p
		m.ProfitPerPair[t.Symbol] += p
		m.ProfitPerStrategy[t.Strategy] += p
		held += t.Duration()

		switch {
		case p > 0:
			m.WinningTrades++
			grossProfit += p
		case p < 0:
			m.LosingTrades++
			grossLoss += p
		}
	}

	if n := len(closed); n > 0 {
		m.WinRate = float64(m.WinningTrades) / float64(n) * 100
		m.AvgTradeDuration = (held / time.Duration(n)).Round(time.Minute).String()
	}
	if m.WinningTrades > 0 {
		m.AverageProfit = grossProfit / float64(m.WinningTrades)
	}
	if m.LosingTrades > 0 {
		m.AverageLoss = grossLoss / float64(m.LosingTrades)
		m.ProfitFactor = grossProfit / math.Abs(grossLoss)
	}

	m.MaxDrawdown = calculateMaxDrawdown(byCloseTime(closed))
	m.SharpeRatio = calculateSharpeRatio(profits)
	return m
}

func byCloseTime(closed []Trade) []float64 {
	sorted := make([]Trade, len(closed))
	copy(sorted, closed)
	sort.SliceStable(sorted, func(i, j int) bool {
		ci, cj := sorted[i].CloseTime, sorted[j].CloseTime
		if ci == nil || cj == nil {
			return ci != nil && cj == nil
		}
		return ci.Before(*cj)
	})

	out := make([]float64, len(sorted))
	for i, t := range sorted {
		out[i] = *t.Profit
	}
	return out
}

// calculateMaxDrawdown finds the largest peak-to-trough decline of the
// running profit, starting from zero
func calculateMaxDrawdown(profits []float64) float64 {
	var maxDD, peak, cumulative float64
	for _, p := range profits {
		cumulative += p
		if cumulative > peak {
			peak = cumulative
		}
		if dd := peak - cumulative; dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

// calculateSharpeRatio is mean over sample standard deviation of the
// per-trade profit, with a zero risk-free rate and no annualisation
func calculateSharpeRatio(profits []float64) float64 {
	if len(profits) < 2 {
		return 0
	}

	var sum float64
	for _, p := range profits {
		sum += p
	}
	mean := sum / float64(len(profits))

	var variance float64
	for _, p := range profits {
		variance += (p - mean) * (p - mean)
	}
	stdDev := math.Sqrt(variance / float64(len(profits)-1))

	if stdDev == 0 {
		return 0
	}
	return mean / stdDev
}
