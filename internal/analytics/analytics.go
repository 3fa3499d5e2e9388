// Package analytics computes descriptive statistics over price series and
// portfolio value paths.
package analytics

import (
	"math"
	"sort"

	"PortfolioLab/internal/model"
)

// TradingDays is the number of trading days used to annualize daily figures.
const TradingDays = 252

// AnnualizedReturn converts a mean daily log-return into a yearly simple
// return.
func AnnualizedReturn(meanDaily float64) float64 {
	return math.Exp(meanDaily*TradingDays) - 1
}

// AnnualizedVolatility scales a daily standard deviation to a yearly horizon.
func AnnualizedVolatility(stdDaily float64) float64 {
	return stdDaily * math.Sqrt(TradingDays)
}

// SharpeRatio returns the excess annualized return per unit of annualized
// volatility. It reports false when volatility is not positive.
func SharpeRatio(annualReturn, annualVol, riskFree float64) (float64, bool) {
	if annualVol <= 0 || math.IsNaN(annualVol) {
		return 0, false
	}
	return (annualReturn - riskFree) / annualVol, true
}

// MaxDrawdown returns the largest peak-to-trough decline of a value path as a
// number in [-1, 0]. It reports false when the path has no points.
func MaxDrawdown(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	peak := values[0]
	worst := 0.0
	for _, v := range values {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			if dd := v/peak - 1; dd < worst {
				worst = dd
			}
		}
	}
	return worst, true
}

// Percentile returns the level-th percentile of samples using linear
// interpolation between closest ranks. Level is in [0, 100]. The input slice
// is not modified.
func Percentile(samples []float64, level float64) (float64, bool) {
	if len(samples) == 0 {
		return 0, false
	}
	sorted := make([]float64, len(samples))
	copy(sorted, samples)
	sort.Float64s(sorted)

	if level <= 0 {
		return sorted[0], true
	}
	if level >= 100 {
		return sorted[len(sorted)-1], true
	}

	rank := level / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo], true
	}
	frac := rank - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac, true
}

// Summary bundles the headline statistics for one series.
type Summary struct {
	Symbol           string
	Points           int
	LatestClose      float64
	MeanDailyReturn  float64
	DailyVolatility  float64
	AnnualReturn     float64
	AnnualVolatility float64
	Sharpe           float64
	HasSharpe        bool
}

// Summarize computes the summary statistics for a series. It reports false
// when the series has fewer than two points.
func Summarize(s *model.PriceSeries, riskFree float64) (Summary, bool) {
	if s == nil {
		return Summary{}, false
	}
	stats := s.Stats()
	if stats == nil {
		return Summary{}, false
	}

	sum := Summary{
		Symbol:           s.Symbol,
		Points:           s.Len(),
		MeanDailyReturn:  stats.Mean,
		DailyVolatility:  stats.Std,
		AnnualReturn:     AnnualizedReturn(stats.Mean),
		AnnualVolatility: AnnualizedVolatility(stats.Std),
	}
	if latest, ok := s.LatestClose(); ok {
		sum.LatestClose = latest
	}
	sum.Sharpe, sum.HasSharpe = SharpeRatio(sum.AnnualReturn, sum.AnnualVolatility, riskFree)
	return sum, true
}
