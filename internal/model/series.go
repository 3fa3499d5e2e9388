package model

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

// ReturnStats holds the derived statistics of a price series: mean and sample
// standard deviation of consecutive chronological log-returns, plus the
// returns themselves. Absent (nil on the series) when fewer than 2 points.
type ReturnStats struct {
	Mean    float64
	Std     float64
	Returns []float64
}

// PriceSeries is an ordered-by-date collection of price points for one
// symbol. Producers are not required to deliver points pre-sorted; all
// derived statistics are computed over chronologically sorted data.
//
// A PriceSeries is not safe for concurrent mutation; callers own
// serialization.
type PriceSeries struct {
	Symbol   string
	Name     string
	Source   string
	Currency string
	Points   []PricePoint

	stats *ReturnStats
}

// NewPriceSeries builds a series and computes its derived statistics.
func NewPriceSeries(symbol, name, source, currency string, points []PricePoint) *PriceSeries {
	s := &PriceSeries{
		Symbol:   symbol,
		Name:     name,
		Source:   source,
		Currency: currency,
		Points:   points,
	}
	s.RecomputeStats()
	return s
}

// AddPoint appends a point and recomputes the derived statistics.
func (s *PriceSeries) AddPoint(p PricePoint) {
	s.Points = append(s.Points, p)
	s.RecomputeStats()
}

// SortByDate sorts the points chronologically. The sort is stable so that
// the first of several points sharing a date keeps its original position.
func (s *PriceSeries) SortByDate() {
	sort.SliceStable(s.Points, func(i, j int) bool {
		return s.Points[i].Date.Before(s.Points[j].Date)
	})
}

// RecomputeStats recalculates the cached return statistics from the current
// points. Must be called after any mutation of Points. With fewer than 2
// points the statistics are absent.
func (s *PriceSeries) RecomputeStats() {
	s.stats = nil
	if len(s.Points) < 2 {
		return
	}

	closes := s.sortedCloses()
	returns := make([]float64, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		returns[i-1] = math.Log(closes[i] / closes[i-1])
	}

	s.stats = &ReturnStats{
		Mean:    stat.Mean(returns, nil),
		Std:     stat.StdDev(returns, nil),
		Returns: returns,
	}
}

// Stats returns the cached return statistics, or nil when they are absent.
func (s *PriceSeries) Stats() *ReturnStats {
	return s.stats
}

// Len returns the number of points.
func (s *PriceSeries) Len() int { return len(s.Points) }

// LatestClose returns the most recent closing price.
func (s *PriceSeries) LatestClose() (float64, bool) {
	if len(s.Points) == 0 {
		return 0, false
	}
	latest := s.Points[0]
	for _, p := range s.Points[1:] {
		if p.Date.After(latest.Date) {
			latest = p
		}
	}
	return latest.Close, true
}

// Period returns the first and last dates covered by the series.
func (s *PriceSeries) Period() (start, end time.Time, ok bool) {
	if len(s.Points) == 0 {
		return time.Time{}, time.Time{}, false
	}
	start, end = s.Points[0].Date, s.Points[0].Date
	for _, p := range s.Points[1:] {
		if p.Date.Before(start) {
			start = p.Date
		}
		if p.Date.After(end) {
			end = p.Date
		}
	}
	return start, end, true
}

// SortedCloses returns the closing prices in chronological order.
func (s *PriceSeries) SortedCloses() []float64 {
	return s.sortedCloses()
}

// ClosesByDate returns a calendar-day keyed map of closing prices. For
// duplicate dates the chronologically first point wins.
func (s *PriceSeries) ClosesByDate() map[string]float64 {
	out := make(map[string]float64, len(s.Points))
	sorted := make([]PricePoint, len(s.Points))
	copy(sorted, s.Points)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })
	for _, p := range sorted {
		key := p.DateKey()
		if _, seen := out[key]; !seen {
			out[key] = p.Close
		}
	}
	return out
}

// Clone returns a deep copy of the series with its own point slice and
// freshly computed statistics.
func (s *PriceSeries) Clone() *PriceSeries {
	points := make([]PricePoint, len(s.Points))
	copy(points, s.Points)
	return NewPriceSeries(s.Symbol, s.Name, s.Source, s.Currency, points)
}

func (s *PriceSeries) sortedCloses() []float64 {
	sorted := make([]PricePoint, len(s.Points))
	copy(sorted, s.Points)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })
	closes := make([]float64, len(sorted))
	for i, p := range sorted {
		closes[i] = p.Close
	}
	return closes
}
