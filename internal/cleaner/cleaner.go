// Package cleaner removes invalid bars, duplicate dates and statistical
// outliers from a price series before analysis.
package cleaner

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"PortfolioLab/internal/model"
)

// DefaultOutlierThreshold is the number of standard deviations a daily
// log-return may move before the bar is treated as an outlier.
const DefaultOutlierThreshold = 3.0

// Options selects which cleaning passes run. Invalid bars are always removed.
type Options struct {
	RemoveDuplicates bool
	RemoveOutliers   bool
	OutlierThreshold float64
}

// DefaultOptions enables every pass with the default outlier threshold.
func DefaultOptions() Options {
	return Options{
		RemoveDuplicates: true,
		RemoveOutliers:   true,
		OutlierThreshold: DefaultOutlierThreshold,
	}
}

// Result counts how many points each pass removed.
type Result struct {
	InvalidRemoved    int
	DuplicatesRemoved int
	OutliersRemoved   int
}

// Total reports the number of points removed across all passes.
func (r Result) Total() int {
	return r.InvalidRemoved + r.DuplicatesRemoved + r.OutliersRemoved
}

// Clean returns a new chronologically sorted series with invalid bars,
// duplicate dates and outliers removed. The input series is not modified.
func Clean(s *model.PriceSeries, opts Options) (*model.PriceSeries, Result) {
	var res Result
	if s == nil {
		return nil, res
	}
	if opts.OutlierThreshold <= 0 {
		opts.OutlierThreshold = DefaultOutlierThreshold
	}

	points := make([]model.PricePoint, len(s.Points))
	copy(points, s.Points)

	points, res.InvalidRemoved = removeInvalid(points)
	if opts.RemoveDuplicates {
		points, res.DuplicatesRemoved = removeDuplicates(points)
	}

	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Date.Before(points[j].Date)
	})

	if opts.RemoveOutliers {
		points, res.OutliersRemoved = removeOutliers(points, opts.OutlierThreshold)
	}

	return model.NewPriceSeries(s.Symbol, s.Name, s.Source, s.Currency, points), res
}

func validBar(p model.PricePoint) bool {
	for _, v := range []float64{p.Open, p.High, p.Low, p.Close} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			return false
		}
	}
	if p.High < p.Low {
		return false
	}
	if p.Open < p.Low || p.Open > p.High {
		return false
	}
	if p.Close < p.Low || p.Close > p.High {
		return false
	}
	return p.Volume >= 0
}

func removeInvalid(points []model.PricePoint) ([]model.PricePoint, int) {
	kept := points[:0]
	removed := 0
	for _, p := range points {
		if validBar(p) {
			kept = append(kept, p)
		} else {
			removed++
		}
	}
	return kept, removed
}

// removeDuplicates keeps the first bar seen for each calendar date,
// in the order the points arrived.
func removeDuplicates(points []model.PricePoint) ([]model.PricePoint, int) {
	seen := make(map[string]struct{}, len(points))
	kept := points[:0]
	removed := 0
	for _, p := range points {
		key := p.DateKey()
		if _, dup := seen[key]; dup {
			removed++
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, p)
	}
	return kept, removed
}

// removeOutliers drops bars whose daily log-return deviates from the mean by
// more than threshold standard deviations. Mean and deviation come from the
// series as it stands before removal, and every flagged bar goes in a single
// pass. The first bar has no return and is never flagged.
func removeOutliers(points []model.PricePoint, threshold float64) ([]model.PricePoint, int) {
	if len(points) < 2 {
		return points, 0
	}

	returns := make([]float64, len(points)-1)
	for i := 1; i < len(points); i++ {
		returns[i-1] = math.Log(points[i].Close / points[i-1].Close)
	}

	mean := stat.Mean(returns, nil)
	std := stat.StdDev(returns, nil)
	if std == 0 || math.IsNaN(std) {
		return points, 0
	}

	kept := points[:0:0]
	kept = append(kept, points[0])
	removed := 0
	for i, r := range returns {
		if math.Abs(r-mean) > threshold*std {
			removed++
			continue
		}
		kept = append(kept, points[i+1])
	}
	return kept, removed
}
