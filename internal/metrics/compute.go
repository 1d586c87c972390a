package metrics

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"

	"smc-lab/internal/domain"
)

// Compute calculates performance statistics from closed trades and an
// equity curve. Trades are sorted by EntryTime ASC, TradeID ASC before
// order-dependent metrics (MaxConsecutiveLosses). Either input may be empty.
func Compute(trades []domain.Trade, curve []domain.EquityPoint) *domain.PerformanceStats {
	out := &domain.PerformanceStats{
		MaxDrawdownPct: computeMaxDrawdownPct(curve),
		Sharpe:         computeSharpe(curve),
	}

	n := len(trades)
	if n == 0 {
		return out
	}

	// Sort trades deterministically by EntryTime ASC, TradeID ASC
	sorted := make([]domain.Trade, n)
	copy(sorted, trades)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].EntryTime != sorted[j].EntryTime {
			return sorted[i].EntryTime < sorted[j].EntryTime
		}
		return sorted[i].TradeID < sorted[j].TradeID
	})

	pnls := make(stats.Float64Data, n)
	var hold int64
	for i, t := range sorted {
		pnls[i] = t.PnL
		hold += t.ExitTime - t.EntryTime
		if t.IsWin() {
			out.Wins++
			out.GrossProfit += t.PnL
		} else {
			out.Losses++
			out.GrossLoss -= t.PnL
		}
	}

	out.Trades = n
	out.WinRate = float64(out.Wins) / float64(n) * 100
	if out.GrossLoss > 0 {
		out.ProfitFactor = out.GrossProfit / out.GrossLoss
	}
	out.AvgHoldMs = hold / int64(n)
	out.MaxConsecutiveLosses = computeMaxConsecutiveLosses(sorted)

	out.PnLMean, _ = stats.Mean(pnls)
	out.PnLMedian, _ = stats.Median(pnls)
	out.PnLP10 = percentile(pnls, 10)
	out.PnLP90 = percentile(pnls, 90)
	if n > 1 {
		out.PnLStddev, _ = stats.StandardDeviationSample(pnls)
	}

	return out
}

// percentile falls back to the extremes when the sample is too small for
// the requested rank.
func percentile(data stats.Float64Data, p float64) float64 {
	v, err := stats.Percentile(data, p)
	if err == nil && !math.IsNaN(v) {
		return v
	}
	if p < 50 {
		v, _ = stats.Min(data)
	} else {
		v, _ = stats.Max(data)
	}
	return v
}

// computeMaxConsecutiveLosses finds longest streak of pnl <= 0.
// Trades must be in chronological order.
func computeMaxConsecutiveLosses(trades []domain.Trade) int {
	maxStreak := 0
	currentStreak := 0

	for i := range trades {
		if !trades[i].IsWin() {
			currentStreak++
			if currentStreak > maxStreak {
				maxStreak = currentStreak
			}
		} else {
			currentStreak = 0
		}
	}
	return maxStreak
}

// computeMaxDrawdownPct recomputes the worst peak-to-trough drop of the curve.
func computeMaxDrawdownPct(curve []domain.EquityPoint) float64 {
	if len(curve) == 0 {
		return 0
	}

	peak := curve[0].Equity
	maxDrawdown := 0.0
	for _, p := range curve {
		if p.Equity > peak {
			peak = p.Equity
		}
		if peak > 0 {
			if dd := (peak - p.Equity) / peak * 100; dd > maxDrawdown {
				maxDrawdown = dd
			}
		}
	}
	return maxDrawdown
}

// computeSharpe is mean over sample stddev of step returns. Steps from a
// non-positive equity are skipped.
func computeSharpe(curve []domain.EquityPoint) float64 {
	var returns stats.Float64Data
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Equity
		if prev <= 0 {
			continue
		}
		returns = append(returns, curve[i].Equity/prev-1)
	}
	if len(returns) < 2 {
		return 0
	}

	mean, _ := stats.Mean(returns)
	sd, err := stats.StandardDeviationSample(returns)
	if err != nil || sd == 0 {
		return 0
	}
	return mean / sd
}
